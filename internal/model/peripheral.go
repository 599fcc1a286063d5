package model

import (
	"sort"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
)

// Peripheral is one logical peripheral shared across chips: a pool of
// register declarations unique by name, the physical placements of the
// peripheral, and one or more memory mappings laying the registers out.
type Peripheral struct {
	Base
	group     string
	registers []*Register
	instances []*Instance
	mappings  []*Mapping
}

// NewPeripheral builds an empty peripheral. group is the vendor-assigned
// group label the classification rules key on; the logical name is usually
// assigned later by classification.
func NewPeripheral(scope *chip.Set, name, brief, group string) *Peripheral {
	return &Peripheral{
		Base:  newBase(scope, name, brief),
		group: group,
	}
}

func (p *Peripheral) Kind() Kind { return KindPeripheral }

// Group returns the vendor-assigned group label.
func (p *Peripheral) Group() string { return p.group }

// SetGroup assigns the vendor group label.
func (p *Peripheral) SetGroup(group string) { p.group = group }

// Registers returns the declaration pool in insertion order. Entries are
// unique by name.
func (p *Peripheral) Registers() []*Register { return p.registers }

// Instances returns the physical placements.
func (p *Peripheral) Instances() []*Instance { return p.instances }

// Mappings returns the memory layouts. More than one signals genuine
// hardware variance between chip subsets.
func (p *Peripheral) Mappings() []*Mapping { return p.mappings }

// RegisterNamed returns the register declared under name, or nil.
func (p *Peripheral) RegisterNamed(name string) *Register {
	for _, r := range p.registers {
		if r.NodeName() == name {
			return r
		}
	}
	return nil
}

// registerEqualTo returns the first register content-equal to r, or nil.
func (p *Peripheral) registerEqualTo(r *Register) *Register {
	for _, local := range p.registers {
		if local.Equal(r) {
			return local
		}
	}
	return nil
}

// AddRegister appends a declaration and takes ownership of it.
func (p *Peripheral) AddRegister(r *Register) {
	r.setParent(p)
	p.registers = append(p.registers, r)
	p.markDirty()
}

// AddMapping appends a layout and takes ownership of it.
func (p *Peripheral) AddMapping(m *Mapping) {
	m.setParent(p)
	p.mappings = append(p.mappings, m)
	p.markDirty()
}

// AddInstance records a placement. A placement matching an existing one by
// (name, address) only extends that instance's scope; anything else is
// appended. The peripheral's own scope grows either way.
func (p *Peripheral) AddInstance(inst *Instance) {
	p.scope.Add(inst.Scope())
	for _, existing := range p.instances {
		if existing.SameAs(inst) {
			existing.Scope().Add(inst.Scope())
			return
		}
	}
	inst.setParent(p)
	p.instances = append(p.instances, inst)
	p.markDirty()
}

// MappingEquivalentTo reports whether both peripherals describe the same
// hardware: every register reachable through either exists with equal
// content in the other, template-deferred variants ignored.
func (p *Peripheral) MappingEquivalentTo(o *Peripheral) bool {
	for _, r := range p.registers {
		if o.registerEqualTo(r) == nil {
			return false
		}
	}
	for _, r := range o.registers {
		if p.registerEqualTo(r) == nil {
			return false
		}
	}
	return true
}

// CompatibleWith is the cheap pre-check for whether a full merge attempt is
// worthwhile: true when equivalent, else true when the first mappings hold
// no conflicting shared offsets. Offsets unique to one side never block
// compatibility.
func (p *Peripheral) CompatibleWith(o *Peripheral) bool {
	if p.MappingEquivalentTo(o) {
		return true
	}
	if len(p.mappings) == 0 || len(o.mappings) == 0 {
		return true
	}
	return p.mappings[0].CompatibleWith(o.mappings[0])
}

// MergePeripheral folds an incoming, just-ingested chip's peripheral into
// this accumulator. Scopes union; same-named registers merge content and
// new ones join the pool; each incoming mapping merges into the first
// existing mapping that accepts it, or is kept as a separate alternative;
// instances reconcile by (name, address). The incoming peripheral is
// consumed: its nodes now belong to the accumulator.
func (p *Peripheral) MergePeripheral(other *Peripheral, sink *diag.Sink) {
	p.scope.Add(other.scope)
	if p.brief == "" && other.brief != "" {
		p.brief = other.brief
	}

	for _, reg := range other.registers {
		if local := p.RegisterNamed(reg.NodeName()); local != nil {
			local.InterMerge(reg)
		} else {
			p.AddRegister(reg)
		}
	}

	if len(other.mappings) != 1 {
		sink.Errorf(diag.KindMultiMapping, "", p.NodeName(),
			"multiple mappings on incoming peripheral (%d)", len(other.mappings))
	}
	for _, om := range other.mappings {
		merged := false
		for _, m := range p.mappings {
			if !m.CompatibleWith(om) {
				continue
			}
			if m.MergeMapping(om, sink) {
				merged = true
				break
			}
		}
		if !merged {
			p.AddMapping(om)
		}
		p.scope.Add(om.Scope())
	}

	for _, oi := range other.instances {
		p.AddInstance(oi)
	}

	p.repairRegisters()
}

// repairRegisters restores the unique-by-name invariant of the declaration
// pool after mapping merges renamed registers: later duplicates fold into
// the first occurrence and mapping layouts re-point at the survivor.
func (p *Peripheral) repairRegisters() {
	seen := make(map[string]*Register, len(p.registers))
	replaced := make(map[*Register]*Register)
	kept := p.registers[:0]
	for _, r := range p.registers {
		if first, ok := seen[r.NodeName()]; ok {
			first.InterMerge(r)
			replaced[r] = first
			p.markDirty()
		} else {
			seen[r.NodeName()] = r
			kept = append(kept, r)
		}
	}
	p.registers = kept
	if len(replaced) == 0 {
		return
	}
	for _, m := range p.mappings {
		for off, r := range m.layout {
			if first, ok := replaced[r]; ok {
				m.layout[off] = first
			}
		}
	}
}

// Compile runs the intra-document merge: each register folds its duplicate
// variants.
func (p *Peripheral) Compile() {
	for _, r := range p.registers {
		r.Compile()
	}
}

// Finalize attaches parent back-references, finalizes children depth-first,
// recomputes the peripheral's scope bottom-up, canonicalizes every scope,
// and orders instances by (name, scope size, address). Call exactly once,
// after the last merge.
func (p *Peripheral) Finalize() {
	sort.SliceStable(p.instances, func(i, j int) bool {
		a, b := p.instances[i], p.instances[j]
		if a.NodeName() != b.NodeName() {
			return a.NodeName() < b.NodeName()
		}
		if a.Scope().Len() != b.Scope().Len() {
			return a.Scope().Len() < b.Scope().Len()
		}
		return a.Address() < b.Address()
	})
	for _, r := range p.registers {
		r.setParent(p)
		r.Finalize()
		p.scope.Add(r.Scope())
	}
	for _, inst := range p.instances {
		inst.setParent(p)
		inst.Finalize()
		p.scope.Add(inst.Scope())
	}
	for _, m := range p.mappings {
		m.setParent(p)
		m.Finalize()
		p.scope.Add(m.Scope())
	}
	p.scope.UpdateFamilies()
}

// Edited reports whether the peripheral or anything below it changed since
// the last ValidateEdit.
func (p *Peripheral) Edited() bool {
	if p.dirty {
		return true
	}
	for _, r := range p.registers {
		if r.Edited() {
			return true
		}
	}
	for _, inst := range p.instances {
		if inst.Edited() {
			return true
		}
	}
	for _, m := range p.mappings {
		if m.Edited() {
			return true
		}
	}
	return false
}

// ValidateEdit clears dirty flags recursively.
func (p *Peripheral) ValidateEdit() {
	p.clearDirty()
	for _, r := range p.registers {
		r.ValidateEdit()
	}
	for _, inst := range p.instances {
		inst.ValidateEdit()
	}
	for _, m := range p.mappings {
		m.ValidateEdit()
	}
}
