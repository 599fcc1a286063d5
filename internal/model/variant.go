package model

import "github.com/SooL/sool-builder/internal/chip"

// Variant is one alternate bit layout of a register. A register holding
// more than one variant renders as a union. A template-deferred variant has
// its fields supplied by an external parameterized definition; it is skipped
// by content equality and carried verbatim through merges.
type Variant struct {
	Base
	fields      []*Field
	ForTemplate bool
}

// NewVariant builds an empty, unnamed variant. Its scope grows as fields
// arrive and is recomputed at finalize.
func NewVariant(scope *chip.Set) *Variant {
	return &Variant{Base: newBase(scope, "", "")}
}

func (v *Variant) Kind() Kind { return KindVariant }

// Fields returns the variant's fields in insertion order.
func (v *Variant) Fields() []*Field { return v.fields }

// AddField appends a field and takes ownership of it.
func (v *Variant) AddField(f *Field) {
	f.setParent(v)
	v.fields = append(v.fields, f)
	v.markDirty()
}

// find returns the stored field equal to f, or nil.
func (v *Variant) find(f *Field) *Field {
	for _, existing := range v.fields {
		if existing.Equal(f) {
			return existing
		}
	}
	return nil
}

// Contains reports whether the variant holds a field equal to f.
func (v *Variant) Contains(f *Field) bool { return v.find(f) != nil }

// FieldNamed returns the first field with the given name, or nil.
func (v *Variant) FieldNamed(name string) *Field {
	for _, f := range v.fields {
		if f.NodeName() == name {
			return f
		}
	}
	return nil
}

// HasRoomFor reports whether f's bit range is free in this variant.
func (v *Variant) HasRoomFor(f *Field) bool {
	for _, existing := range v.fields {
		if existing.Overlaps(f) {
			return false
		}
	}
	return true
}

// Equal reports content equality: the two variants hold the same field set.
func (v *Variant) Equal(o *Variant) bool {
	for _, f := range v.fields {
		if !o.Contains(f) {
			return false
		}
	}
	for _, f := range o.fields {
		if !v.Contains(f) {
			return false
		}
	}
	return true
}

// InterMerge absorbs an equal variant seen on another chip, merging
// field-by-field. Call only when Equal(o) holds.
func (v *Variant) InterMerge(o *Variant) {
	v.interMerge(&o.Base)
	for _, of := range o.fields {
		if local := v.find(of); local != nil {
			local.InterMerge(of)
		}
	}
}

// IntraMerge folds an equal duplicate variant from the same document,
// combining field descriptions. Call only when Equal(o) holds.
func (v *Variant) IntraMerge(o *Variant) {
	v.intraMerge(&o.Base)
	for _, of := range o.fields {
		if local := v.find(of); local != nil {
			local.IntraMerge(of)
		}
	}
}

// Finalize attaches parents, finalizes fields, and recomputes the variant's
// scope as the union of its fields'.
func (v *Variant) Finalize() {
	for _, f := range v.fields {
		f.setParent(v)
		f.Finalize()
		v.scope.Add(f.Scope())
	}
	v.scope.UpdateFamilies()
}

// Edited reports whether the variant or any field changed since the last
// ValidateEdit.
func (v *Variant) Edited() bool {
	if v.dirty {
		return true
	}
	for _, f := range v.fields {
		if f.Edited() {
			return true
		}
	}
	return false
}

// ValidateEdit clears dirty flags recursively.
func (v *Variant) ValidateEdit() {
	v.clearDirty()
	for _, f := range v.fields {
		f.ValidateEdit()
	}
}
