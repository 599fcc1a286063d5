package model

import (
	"sort"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
)

// Mapping is one concrete memory layout of a peripheral: byte offsets to
// registers, valid for the chips in its scope. A peripheral carries more
// than one mapping only when chip variants genuinely disagree on layout.
type Mapping struct {
	Base
	layout map[uint]*Register
}

// NewMapping builds an empty layout scoped to the given chips.
func NewMapping(scope *chip.Set) *Mapping {
	return &Mapping{
		Base:   newBase(scope, "", ""),
		layout: make(map[uint]*Register),
	}
}

func (m *Mapping) Kind() Kind { return KindMapping }

// Put places a register at a byte offset, replacing any previous entry.
func (m *Mapping) Put(offset uint, r *Register) {
	m.layout[offset] = r
	m.markDirty()
}

// At returns the register at a byte offset, or nil.
func (m *Mapping) At(offset uint) *Register { return m.layout[offset] }

// Len returns the number of occupied offsets.
func (m *Mapping) Len() int { return len(m.layout) }

// Offsets returns the occupied byte offsets in ascending order.
func (m *Mapping) Offsets() []uint {
	out := make([]uint, 0, len(m.layout))
	for off := range m.layout {
		out = append(out, off)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports layout equality: the same offsets holding content-equal
// registers.
func (m *Mapping) Equal(o *Mapping) bool {
	if len(m.layout) != len(o.layout) {
		return false
	}
	for off, reg := range m.layout {
		other, ok := o.layout[off]
		if !ok || !reg.Equal(other) {
			return false
		}
	}
	return true
}

// EquivalentTo reports whether both layouts describe the same hardware:
// every offset present in either holds an equivalent register in the other,
// template-deferred variants ignored.
func (m *Mapping) EquivalentTo(o *Mapping) bool {
	if len(m.layout) != len(o.layout) {
		return false
	}
	for off, reg := range m.layout {
		other, ok := o.layout[off]
		if !ok || !reg.EquivalentTo(other) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every offset of m exists in o with content-equal
// registers.
func (m *Mapping) SubsetOf(o *Mapping) bool {
	for off, reg := range m.layout {
		other, ok := o.layout[off]
		if !ok || !reg.Equal(other) {
			return false
		}
	}
	return true
}

// SupersetOf reports whether every offset of o exists in m with
// content-equal registers.
func (m *Mapping) SupersetOf(o *Mapping) bool { return o.SubsetOf(m) }

// CompatibleWith is the cheap pre-check for a merge attempt: every offset
// present in both layouts holds register content that could legally share
// it. Offsets unique to one side never block compatibility.
func (m *Mapping) CompatibleWith(o *Mapping) bool {
	for off, reg := range o.layout {
		if local, ok := m.layout[off]; ok {
			if !local.CompatibleWith(reg) {
				return false
			}
		}
	}
	return true
}

// MergeMapping folds other into m when every offset present in both holds
// the same register name or equivalent content. Equivalent registers under
// different names are renamed on both sides to the shorter name (length
// ties break lexicographically) with a warning recorded. Offsets present on
// one side only fill holes. On any incompatible shared offset the merge
// reports false and neither mapping has been modified: all checks run
// before the first mutation commits.
func (m *Mapping) MergeMapping(other *Mapping, sink *diag.Sink) bool {
	type rename struct {
		local, incoming *Register
		name            string
	}
	var renames []rename
	for _, off := range other.Offsets() {
		incoming := other.layout[off]
		local, ok := m.layout[off]
		if !ok || incoming.NodeName() == local.NodeName() {
			continue
		}
		if !incoming.EquivalentTo(local) {
			return false
		}
		renames = append(renames, rename{
			local:    local,
			incoming: incoming,
			name:     shorterName(local.NodeName(), incoming.NodeName()),
		})
	}

	periph := ""
	if m.parent != nil {
		periph = m.parent.NodeName()
	}
	for _, rn := range renames {
		sink.Warnf(diag.KindRename, "", periph,
			"fixing register name: same layout for different names, local %s, other %s, keeping %s",
			rn.local.NodeName(), rn.incoming.NodeName(), rn.name)
		rn.local.SetName(rn.name)
		rn.incoming.SetName(rn.name)
	}
	for off, incoming := range other.layout {
		if local, ok := m.layout[off]; ok {
			local.InterMerge(incoming)
		} else {
			m.layout[off] = incoming
		}
	}
	m.scope.Add(other.scope)
	m.markDirty()
	return true
}

// Finalize canonicalizes the mapping's scope. The registers it references
// are owned and finalized by the peripheral.
func (m *Mapping) Finalize() {
	m.scope.UpdateFamilies()
}

// Edited reports whether the mapping itself changed since the last
// ValidateEdit.
func (m *Mapping) Edited() bool { return m.dirty }

// ValidateEdit clears the dirty flag.
func (m *Mapping) ValidateEdit() { m.clearDirty() }
