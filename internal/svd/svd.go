// Package svd parses CMSIS-SVD hardware description documents into
// single-chip register trees.
//
// One document describes one chip. Every peripheral element becomes a
// model.Peripheral carrying one instance (the element's name and base
// address) and one mapping (its register layout), all uniformly scoped to
// that chip. Cross-chip unification happens later in the merge engine; this
// package only ingests.
package svd

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
)

// ErrMalformed marks a document missing a required field. The error is
// fatal for that chip's ingestion only; callers exclude the chip and keep
// going.
var ErrMalformed = errors.New("malformed svd document")

// Document is one parsed chip description.
type Document struct {
	Chip        string
	Peripherals []*model.Peripheral
}

// integer accepts the numeric literal forms SVD uses: decimal and 0x hex.
type integer uint64

func (n *integer) UnmarshalXMLAttr(attr xml.Attr) error {
	return n.parse(attr.Value)
}

func (n *integer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	return n.parse(s)
}

func (n *integer) parse(s string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return fmt.Errorf("integer literal %q: %w", s, err)
	}
	*n = integer(v)
	return nil
}

type documentElement struct {
	Name        string `xml:"name"`
	Peripherals struct {
		Elements []peripheralElement `xml:"peripheral"`
	} `xml:"peripherals"`
}

type peripheralElement struct {
	DerivedFrom string   `xml:"derivedFrom,attr"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Group       string   `xml:"groupName"`
	BaseAddress *integer `xml:"baseAddress"`
	Registers   struct {
		Elements []registerElement `xml:"register"`
	} `xml:"registers"`
}

type registerElement struct {
	Name          string   `xml:"name"`
	DisplayName   string   `xml:"displayName"`
	Description   string   `xml:"description"`
	Access        string   `xml:"access"`
	AddressOffset *integer `xml:"addressOffset"`
	Size          *integer `xml:"size"`
	Fields        struct {
		Elements []fieldElement `xml:"field"`
	} `xml:"fields"`
}

type fieldElement struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	BitOffset   *integer `xml:"bitOffset"`
	BitWidth    *integer `xml:"bitWidth"`
	LSB         *integer `xml:"lsb"`
	MSB         *integer `xml:"msb"`
	BitRange    string   `xml:"bitRange"`
}

// ParseFile parses the SVD document at path. The chip identifier is the
// document's device name.
func ParseFile(path string, sink *diag.Sink) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("svd: open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := Parse(f, sink)
	if err != nil {
		return nil, fmt.Errorf("svd: parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads one SVD document from r. Every peripheral element yields one
// peripheral with one instance and one mapping, scoped to the device's chip
// identifier. Advisory findings (display-name mismatches) go to sink.
func Parse(r io.Reader, sink *diag.Sink) (*Document, error) {
	var root documentElement
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if root.Name == "" {
		return nil, fmt.Errorf("device name: %w", ErrMalformed)
	}

	doc := &Document{Chip: root.Name}
	byName := make(map[string]*peripheralElement, len(root.Peripherals.Elements))
	for i := range root.Peripherals.Elements {
		elem := &root.Peripherals.Elements[i]
		p, err := buildPeripheral(doc.Chip, elem, byName, sink)
		if err != nil {
			return nil, fmt.Errorf("chip %s: %w", doc.Chip, err)
		}
		byName[elem.Name] = elem
		doc.Peripherals = append(doc.Peripherals, p)
	}
	return doc, nil
}

func buildPeripheral(chipName string, elem *peripheralElement, byName map[string]*peripheralElement, sink *diag.Sink) (*model.Peripheral, error) {
	if elem.Name == "" {
		return nil, fmt.Errorf("peripheral name: %w", ErrMalformed)
	}
	if elem.BaseAddress == nil {
		return nil, fmt.Errorf("peripheral %s: missing baseAddress: %w", elem.Name, ErrMalformed)
	}

	// A derivedFrom peripheral reuses the description, group and register
	// layout of an earlier element in the same document.
	src := elem
	if elem.DerivedFrom != "" {
		base, ok := byName[elem.DerivedFrom]
		if !ok {
			return nil, fmt.Errorf("peripheral %s: derivedFrom %q not found: %w",
				elem.Name, elem.DerivedFrom, ErrMalformed)
		}
		merged := *base
		merged.Name = elem.Name
		merged.BaseAddress = elem.BaseAddress
		if elem.Description != "" {
			merged.Description = elem.Description
		}
		if elem.Group != "" {
			merged.Group = elem.Group
		}
		if len(elem.Registers.Elements) > 0 {
			merged.Registers = elem.Registers
		}
		src = &merged
	}

	group := src.Group
	if group == "" {
		group = strings.TrimRight(src.Name, "0123456789")
	}

	// The logical name stays empty; classification assigns it before the
	// first cross-chip merge.
	scope := chip.NewSet(chipName)
	p := model.NewPeripheral(scope, "", normalizeBrief(src.Description), group)
	p.AddInstance(model.NewInstance(chip.NewSet(chipName), src.Name, uint64(*src.BaseAddress)))

	m := model.NewMapping(chip.NewSet(chipName))
	for i := range src.Registers.Elements {
		regElem := &src.Registers.Elements[i]
		reg, offset, err := buildRegister(chipName, src.Name, regElem, sink)
		if err != nil {
			return nil, fmt.Errorf("peripheral %s: %w", src.Name, err)
		}
		p.AddRegister(reg)
		m.Put(offset, reg)
	}
	p.AddMapping(m)
	return p, nil
}

func buildRegister(chipName, periphName string, elem *registerElement, sink *diag.Sink) (*model.Register, uint, error) {
	if elem.Name == "" {
		return nil, 0, fmt.Errorf("register name: %w", ErrMalformed)
	}
	if elem.AddressOffset == nil {
		return nil, 0, fmt.Errorf("register %s: missing addressOffset: %w", elem.Name, ErrMalformed)
	}
	if elem.DisplayName != "" && elem.DisplayName != elem.Name {
		sink.Warnf(diag.KindDisplayName, chipName, periphName,
			"register %s has display name %s", elem.Name, elem.DisplayName)
	}

	var size uint
	if elem.Size != nil {
		size = uint(*elem.Size)
	}
	reg := model.NewRegister(chip.NewSet(chipName), elem.Name, elem.Description, size, elem.Access)

	for i := range elem.Fields.Elements {
		fieldElem := &elem.Fields.Elements[i]
		f, err := buildField(chipName, fieldElem)
		if err != nil {
			return nil, 0, fmt.Errorf("register %s: %w", elem.Name, err)
		}
		reg.AddField(f, true)
	}
	return reg, uint(*elem.AddressOffset), nil
}

func buildField(chipName string, elem *fieldElement) (*model.Field, error) {
	if elem.Name == "" {
		return nil, fmt.Errorf("field name: %w", ErrMalformed)
	}
	offset, width, err := bitRange(elem)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", elem.Name, err)
	}
	return model.NewField(chip.NewSet(chipName), elem.Name, elem.Description, offset, width), nil
}

// bitRange resolves the three SVD bit-range forms: bitOffset+bitWidth,
// lsb+msb, and bitRange "[msb:lsb]".
func bitRange(elem *fieldElement) (offset, width uint, err error) {
	switch {
	case elem.BitOffset != nil:
		width = 1
		if elem.BitWidth != nil {
			width = uint(*elem.BitWidth)
		}
		return uint(*elem.BitOffset), width, nil
	case elem.LSB != nil && elem.MSB != nil:
		lsb, msb := uint(*elem.LSB), uint(*elem.MSB)
		if msb < lsb {
			return 0, 0, fmt.Errorf("msb %d below lsb %d: %w", msb, lsb, ErrMalformed)
		}
		return lsb, msb - lsb + 1, nil
	case elem.BitRange != "":
		s := strings.TrimSpace(elem.BitRange)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("bitRange %q: %w", elem.BitRange, ErrMalformed)
		}
		msb, err1 := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
		lsb, err2 := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err1 != nil || err2 != nil || msb < lsb {
			return 0, 0, fmt.Errorf("bitRange %q: %w", elem.BitRange, ErrMalformed)
		}
		return uint(lsb), uint(msb - lsb + 1), nil
	default:
		return 0, 0, fmt.Errorf("no bit range: %w", ErrMalformed)
	}
}

// normalizeBrief lowercases a description and folds dashes and line breaks
// to spaces; the node's own SetBrief collapses the whitespace runs left
// behind.
func normalizeBrief(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
