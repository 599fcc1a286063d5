// Package emit renders the finalized peripheral tree as C++ headers.
//
// Each peripheral becomes one header: register struct types, the class
// laying them out in memory order with RESERVED padding, and one accessor
// macro per instance. Nodes that exist only on part of the merged chip set
// are wrapped in preprocessor conditionals keyed on the guard aliases the
// define-inference pass produced; the guard header defines those aliases per
// chip.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SooL/sool-builder/internal/model"
)

// GuardHeaderName is the file the per-chip guard defines land in.
const GuardHeaderName = "sool_chip_setup.h"

// WriteHeaders renders one header per peripheral plus the guard header into
// dir, creating it as needed.
func WriteHeaders(dir string, periphs []*model.Peripheral, guards *model.GuardTable) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	for _, p := range periphs {
		path := filepath.Join(dir, p.NodeName()+".h")
		if err := os.WriteFile(path, []byte(RenderPeripheralHeader(p)), 0o644); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
	}
	path := filepath.Join(dir, GuardHeaderName)
	if err := os.WriteFile(path, []byte(RenderGuardHeader(guards)), 0o644); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}

// RenderPeripheralHeader renders one peripheral's complete header file.
func RenderPeripheralHeader(p *model.Peripheral) string {
	var b strings.Builder
	guard := "SOOL_" + strings.ToUpper(p.NodeName()) + "_H"
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	fmt.Fprintf(&b, "#include \"%s\"\n\n", GuardHeaderName)

	b.WriteString(RenderPeripheral(p))

	for _, inst := range p.Instances() {
		b.WriteByte('\n')
		b.WriteString(renderInstance(p, inst))
	}

	fmt.Fprintf(&b, "\n#endif // %s\n", guard)
	return b.String()
}

// RenderPeripheral renders the peripheral class: register types first, then
// the memory layout of each mapping in offset order.
func RenderPeripheral(p *model.Peripheral) string {
	var b strings.Builder
	if p.Brief() != "" {
		fmt.Fprintf(&b, "class %s /// %s\n{\npublic:\n", p.NodeName(), p.Brief())
	} else {
		fmt.Fprintf(&b, "class %s\n{\npublic:\n", p.NodeName())
	}

	for _, r := range p.Registers() {
		b.WriteString(RenderRegister(r, "\t"))
	}

	b.WriteByte('\n')
	mappings := p.Mappings()
	if len(mappings) > 1 {
		// Divergent layouts share the address space; each one only exists
		// for its own chips.
		b.WriteString("\tunion\n\t{\n")
		for _, m := range mappings {
			guarded := !m.Scope().Equal(p.Scope())
			if guarded {
				fmt.Fprintf(&b, "#if %s\n", m.Scope().Defines())
			}
			b.WriteString("\t\tstruct\n\t\t{\n")
			renderLayout(&b, m, "\t\t\t")
			b.WriteString("\t\t};\n")
			if guarded {
				b.WriteString("#endif\n")
			}
		}
		b.WriteString("\t};\n")
	} else if len(mappings) == 1 {
		renderLayout(&b, mappings[0], "\t")
	}

	b.WriteString("};\n")
	return b.String()
}

// renderLayout writes a mapping's members in offset order, padding layout
// holes with RESERVED byte arrays.
func renderLayout(b *strings.Builder, m *model.Mapping, indent string) {
	cursor := uint(0)
	reserved := 0
	for _, off := range m.Offsets() {
		r := m.At(off)
		if off > cursor {
			fmt.Fprintf(b, "%suint8_t RESERVED_%d[%d];\n", indent, reserved, off-cursor)
			reserved++
		}
		line := fmt.Sprintf("%s%s_t %s; /// @0x%03X", indent, r.NodeName(), r.NodeName(), off)
		if r.NeedsGuard() {
			fmt.Fprintf(b, "#ifdef %s\n%s\n#endif\n", r.Alias(), line)
		} else {
			b.WriteString(line + "\n")
		}
		if end := off + r.ByteSize(); end > cursor {
			cursor = end
		}
	}
}

// RenderRegister renders one register struct type. More than one variant
// turns the body into a union of the per-variant blocks; a template-deferred
// variant is referenced, not inlined.
func RenderRegister(r *model.Register, indent string) string {
	var b strings.Builder

	if r.Brief() != "" {
		fmt.Fprintf(&b, "%sstruct %s_t: Reg%d_t /// %s\n%s{\n", indent, r.NodeName(), r.Size(), r.Brief(), indent)
	} else {
		fmt.Fprintf(&b, "%sstruct %s_t: Reg%d_t\n%s{\n", indent, r.NodeName(), r.Size(), indent)
	}

	concrete := make([]*model.Variant, 0, len(r.Variants()))
	for _, v := range r.Variants() {
		if !v.ForTemplate {
			concrete = append(concrete, v)
		}
	}

	union := len(concrete) > 1 || (len(concrete) > 0 && r.HasTemplate())
	inner := indent + "\t"
	if union {
		fmt.Fprintf(&b, "%sunion\n%s{\n", inner, inner)
		inner += "\t"
	}

	for _, v := range concrete {
		if union {
			fmt.Fprintf(&b, "%sstruct\n%s{\n", inner, inner)
			renderFields(&b, v, r.Size(), inner+"\t")
			fmt.Fprintf(&b, "%s};\n", inner)
		} else {
			renderFields(&b, v, r.Size(), inner)
		}
	}
	if r.HasTemplate() {
		fmt.Fprintf(&b, "%stmpl::%s_t;\n", inner, r.NodeName())
	}

	if union {
		inner = indent + "\t"
		fmt.Fprintf(&b, "%s};\n", inner)
	}

	fmt.Fprintf(&b, "%s};\n", indent)
	out := b.String()
	if r.NeedsGuard() {
		out = fmt.Sprintf("%s#ifdef %s\n%s%s#endif\n", indent, r.Alias(), out, indent)
	}
	return out
}

// renderFields writes a variant's bit-fields in bit order, padding gaps with
// anonymous members.
func renderFields(b *strings.Builder, v *model.Variant, size uint, indent string) {
	fields := append([]*model.Field(nil), v.Fields()...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Offset() < fields[j].Offset() })

	cursor := uint(0)
	for _, f := range fields {
		if f.Offset() > cursor {
			fmt.Fprintf(b, "%suint%d_t : %d;\n", indent, size, f.Offset()-cursor)
		}
		line := fmt.Sprintf("%suint%d_t %s : %d;", indent, size, f.NodeName(), f.Width())
		if f.Brief() != "" {
			line += " /// " + f.Brief()
		}
		if f.NeedsGuard() {
			fmt.Fprintf(b, "#ifdef %s\n%s\n#endif\n", f.Alias(), line)
		} else {
			b.WriteString(line + "\n")
		}
		if end := f.MSB() + 1; end > cursor {
			cursor = end
		}
	}
	if cursor < size {
		fmt.Fprintf(b, "%suint%d_t : %d;\n", indent, size, size-cursor)
	}
}

// renderInstance emits the accessor macro mapping an instance name to a
// typed reference at its base address. The guard alias doubles as the
// address macro for guarded instances.
func renderInstance(p *model.Peripheral, inst *model.Instance) string {
	if inst.NeedsGuard() {
		return fmt.Sprintf("#ifdef %s\n#define %s (*reinterpret_cast<%s*>(%s))\n#endif\n",
			inst.Alias(), inst.NodeName(), p.NodeName(), inst.Alias())
	}
	return fmt.Sprintf("#define %s (*reinterpret_cast<%s*>(%sU))\n",
		inst.NodeName(), p.NodeName(), inst.DefinedValue())
}

// RenderGuardHeader renders the guard table: one conditional block per
// scope group, defining the group's aliases inside the scope and undefining
// or negating them outside it.
func RenderGuardHeader(t *model.GuardTable) string {
	var b strings.Builder
	b.WriteString("#ifndef SOOL_CHIP_SETUP_H\n#define SOOL_CHIP_SETUP_H\n")

	for _, group := range t.Groups() {
		fmt.Fprintf(&b, "\n#if %s\n", group.Scope.Defines())
		for _, g := range group.Guards {
			if g.Value != "" {
				fmt.Fprintf(&b, "\t#define %s %s\n", g.Alias, g.Value)
			} else {
				fmt.Fprintf(&b, "\t#define %s\n", g.Alias)
			}
		}
		var elseLines []string
		for _, g := range group.Guards {
			if g.Undefine {
				elseLines = append(elseLines, fmt.Sprintf("\t#undef %s\n", g.Alias))
			}
			if g.DefineNot {
				elseLines = append(elseLines, fmt.Sprintf("\t#define %s_NOT\n", g.Alias))
			}
		}
		if len(elseLines) > 0 {
			b.WriteString("#else\n")
			for _, line := range elseLines {
				b.WriteString(line)
			}
		}
		b.WriteString("#endif\n")
	}

	b.WriteString("\n#endif // SOOL_CHIP_SETUP_H\n")
	return b.String()
}
