package model

import "github.com/SooL/sool-builder/internal/chip"

// Guard is one conditional-compilation entry: the alias token to define
// while its scope is active, an optional value, and what happens when code
// leaves the scope. Undefine asks for an explicit "#undef ALIAS"; DefineNot
// asks for the "#define ALIAS_NOT" companion instead.
type Guard struct {
	Alias     string
	Value     string
	Undefine  bool
	DefineNot bool
}

// GuardGroup collects every guard sharing one chip scope, so the emitter can
// wrap them all in a single conditional block. Scope is the node's own scope
// set, shared, not copied; the table is built after Finalize so the sets no
// longer change.
type GuardGroup struct {
	Scope  *chip.Set
	Guards []Guard
}

// GuardTable groups guards by scope, in first-registration order. The same
// alias is never recorded twice for one scope.
type GuardTable struct {
	order  []string
	groups map[string]*GuardGroup
	seen   map[string]map[string]bool
}

// NewGuardTable returns an empty table.
func NewGuardTable() *GuardTable {
	return &GuardTable{
		groups: make(map[string]*GuardGroup),
		seen:   make(map[string]map[string]bool),
	}
}

// Record registers a guard under the given scope. A duplicate alias for the
// same scope is dropped.
func (t *GuardTable) Record(scope *chip.Set, g Guard) {
	key := scope.Key()
	group, ok := t.groups[key]
	if !ok {
		group = &GuardGroup{Scope: scope}
		t.groups[key] = group
		t.seen[key] = make(map[string]bool)
		t.order = append(t.order, key)
	}
	if t.seen[key][g.Alias] {
		return
	}
	t.seen[key][g.Alias] = true
	group.Guards = append(group.Guards, g)
}

// Groups returns the guard groups in first-registration order.
func (t *GuardTable) Groups() []*GuardGroup {
	out := make([]*GuardGroup, len(t.order))
	for i, key := range t.order {
		out[i] = t.groups[key]
	}
	return out
}

// Len returns the total number of guards across all groups.
func (t *GuardTable) Len() int {
	n := 0
	for _, g := range t.groups {
		n += len(g.Guards)
	}
	return n
}

// InferGuards walks the finalized peripheral forest and records a guard for
// every node that needs one. Registers keep their define on scope exit
// (their struct declaration is already conditional); peripherals and fields
// ask for an explicit undef; instances carry their base address as the
// define value and emit the _NOT companion when out of scope.
func InferGuards(periphs []*Peripheral) *GuardTable {
	t := NewGuardTable()
	for _, p := range periphs {
		inferPeripheral(t, p)
	}
	return t
}

func inferPeripheral(t *GuardTable, p *Peripheral) {
	if p.NeedsGuard() {
		t.Record(p.Scope(), Guard{Alias: p.Alias(), Undefine: true})
	}
	for _, inst := range p.instances {
		if inst.NeedsGuard() {
			t.Record(inst.Scope(), Guard{
				Alias:     inst.Alias(),
				Value:     inst.DefinedValue(),
				DefineNot: true,
			})
		}
	}
	for _, r := range p.registers {
		if r.NeedsGuard() {
			t.Record(r.Scope(), Guard{Alias: r.Alias()})
		}
		for _, v := range r.variants {
			for _, f := range v.fields {
				if f.NeedsGuard() {
					t.Record(f.Scope(), Guard{Alias: f.Alias(), Undefine: true})
				}
			}
		}
	}
}
