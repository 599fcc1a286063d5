package model

import "github.com/SooL/sool-builder/internal/chip"

// Field is one bit-field inside a register variant.
type Field struct {
	Base
	offset uint
	width  uint
}

// NewField builds a field covering width bits starting at bit offset.
func NewField(scope *chip.Set, name, brief string, offset, width uint) *Field {
	return &Field{
		Base:   newBase(scope, name, brief),
		offset: offset,
		width:  width,
	}
}

func (f *Field) Kind() Kind { return KindField }

// Offset returns the first bit the field occupies.
func (f *Field) Offset() uint { return f.offset }

// Width returns the field's size in bits.
func (f *Field) Width() uint { return f.width }

// MSB returns the last bit the field occupies.
func (f *Field) MSB() uint { return f.offset + f.width - 1 }

// Equal reports field identity: same name at the same bit position and
// width. Scope and description do not participate.
func (f *Field) Equal(o *Field) bool {
	return f.name == o.name && f.offset == o.offset && f.width == o.width
}

// Overlaps reports whether the two bit ranges intersect.
func (f *Field) Overlaps(o *Field) bool {
	return f.offset < o.offset+o.width && o.offset < f.offset+f.width
}

// InterMerge absorbs the same field seen on another chip.
func (f *Field) InterMerge(o *Field) { f.interMerge(&o.Base) }

// IntraMerge folds a duplicate of this field from the same document.
func (f *Field) IntraMerge(o *Field) { f.intraMerge(&o.Base) }

// Finalize canonicalizes the field's scope. Fields have no children.
func (f *Field) Finalize() {
	f.scope.UpdateFamilies()
}

// Edited reports whether the field changed since the last ValidateEdit.
func (f *Field) Edited() bool { return f.dirty }

// ValidateEdit clears the dirty flag.
func (f *Field) ValidateEdit() { f.clearDirty() }
