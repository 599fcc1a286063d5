package model

import (
	"fmt"

	"github.com/SooL/sool-builder/internal/chip"
)

// Instance is one physical placement of a peripheral: a name and a base
// address, valid for the chips in its scope.
type Instance struct {
	Base
	address uint64
}

// NewInstance builds a placement.
func NewInstance(scope *chip.Set, name string, address uint64) *Instance {
	return &Instance{
		Base:    newBase(scope, name, ""),
		address: address,
	}
}

func (i *Instance) Kind() Kind { return KindInstance }

// Address returns the base address.
func (i *Instance) Address() uint64 { return i.address }

// SameAs reports placement identity: same name at the same address.
func (i *Instance) SameAs(o *Instance) bool {
	return i.name == o.name && i.address == o.address
}

// DefinedValue returns the value this instance's guard define carries: the
// base address as a hex literal.
func (i *Instance) DefinedValue() string {
	return fmt.Sprintf("0x%08X", i.address)
}

// Finalize canonicalizes the instance's scope.
func (i *Instance) Finalize() {
	i.scope.UpdateFamilies()
}

// Edited reports whether the instance changed since the last ValidateEdit.
func (i *Instance) Edited() bool { return i.dirty }

// ValidateEdit clears the dirty flag.
func (i *Instance) ValidateEdit() { i.clearDirty() }
