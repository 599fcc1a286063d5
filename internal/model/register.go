package model

import "github.com/SooL/sool-builder/internal/chip"

// DefaultRegisterSize is the register bit width assumed when the input
// document omits one.
const DefaultRegisterSize uint = 32

// Register is one named hardware register. Alternate bit layouts live in
// separate variants; a register with more than one variant renders as a
// union.
type Register struct {
	Base
	size     uint
	access   string
	variants []*Variant
}

// NewRegister builds a register. A zero size falls back to
// DefaultRegisterSize.
func NewRegister(scope *chip.Set, name, brief string, size uint, access string) *Register {
	if size == 0 {
		size = DefaultRegisterSize
	}
	return &Register{
		Base:   newBase(scope, name, brief),
		size:   size,
		access: access,
	}
}

func (r *Register) Kind() Kind { return KindRegister }

// Size returns the register's bit width.
func (r *Register) Size() uint { return r.size }

// ByteSize returns the register's width in bytes.
func (r *Register) ByteSize() uint { return r.size / 8 }

// Access returns the register's access mode string as ingested
// ("read-write", "read-only", ...). Empty when unspecified.
func (r *Register) Access() string { return r.access }

// Variants returns the register's layouts in insertion order.
func (r *Register) Variants() []*Variant { return r.variants }

// HasTemplate reports whether any variant is template-deferred.
func (r *Register) HasTemplate() bool {
	for _, v := range r.variants {
		if v.ForTemplate {
			return true
		}
	}
	return false
}

// ContainsField reports whether any variant holds a field equal to f.
func (r *Register) ContainsField(f *Field) bool {
	for _, v := range r.variants {
		if v.Contains(f) {
			return true
		}
	}
	return false
}

// FieldNamed returns the first field with the given name across all
// variants, or nil.
func (r *Register) FieldNamed(name string) *Field {
	for _, v := range r.variants {
		if f := v.FieldNamed(name); f != nil {
			return f
		}
	}
	return nil
}

// AddVariant appends a layout and takes ownership of it.
func (r *Register) AddVariant(v *Variant) {
	v.setParent(r)
	r.variants = append(r.variants, v)
	r.markDirty()
}

// AddField places a field into the register: an equal field anywhere merges
// in place, otherwise the first variant with room takes it, otherwise a new
// variant opens. fromSource marks fields coming straight from the input
// document; only those may land in a template-deferred variant.
func (r *Register) AddField(f *Field, fromSource bool) {
	r.scope.Add(f.Scope())

	var target *Variant
	for _, v := range r.variants {
		if !fromSource && v.ForTemplate {
			continue
		}
		if existing := v.find(f); existing != nil {
			existing.InterMerge(f)
			return
		}
		if v.HasRoomFor(f) {
			target = v
			break
		}
	}
	if target == nil {
		target = NewVariant(chip.NewSet())
		r.AddVariant(target)
	}
	target.AddField(f)
}

// Equal reports content equality: the registers hold the same flattened
// field set, ignoring template-deferred variants. Names, sizes, scopes and
// descriptions do not participate.
func (r *Register) Equal(o *Register) bool {
	for _, v := range r.variants {
		if v.ForTemplate {
			continue
		}
		for _, f := range v.fields {
			if !o.ContainsField(f) {
				return false
			}
		}
	}
	for _, v := range o.variants {
		if v.ForTemplate {
			continue
		}
		for _, f := range v.fields {
			if !r.ContainsField(f) {
				return false
			}
		}
	}
	return true
}

// EquivalentTo reports whether two registers describe the same hardware:
// identical bit width and the same field content. Used to detect the same
// register published under different names.
func (r *Register) EquivalentTo(o *Register) bool {
	return r.size == o.size && r.Equal(o)
}

// CompatibleWith is the cheap pre-check for sharing a mapping offset: the
// widths must agree, and the registers must either carry the same name
// (field differences then fold into union variants) or be equivalent
// (candidates for the automatic rename).
func (r *Register) CompatibleWith(o *Register) bool {
	if r.size != o.size {
		return false
	}
	return r.name == o.name || r.EquivalentTo(o)
}

// IntraMerge absorbs a duplicate register entry from the same document by
// appending its variants; Compile folds equal ones afterwards.
func (r *Register) IntraMerge(o *Register) {
	r.intraMerge(&o.Base)
	for _, v := range o.variants {
		r.AddVariant(v)
	}
}

// InterMerge absorbs another chip's rendition of the same register: scopes
// union, the width grows to the larger one, equal variants merge
// field-by-field, template variants carry over verbatim, and any other
// unmatched variant re-adds its fields one by one.
func (r *Register) InterMerge(o *Register) {
	r.interMerge(&o.Base)
	if o.size > r.size {
		r.size = o.size
		r.markDirty()
	}
	for _, ov := range o.variants {
		placed := false
		for _, sv := range r.variants {
			if sv.Equal(ov) {
				sv.InterMerge(ov)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if ov.ForTemplate {
			r.AddVariant(ov)
		} else {
			for _, f := range ov.fields {
				r.AddField(f, false)
			}
		}
	}
}

// Compile collapses equal variants discovered inside one document,
// combining field descriptions.
func (r *Register) Compile() {
	i := 0
	for i < len(r.variants) {
		j := i + 1
		for j < len(r.variants) {
			if r.variants[i].Equal(r.variants[j]) {
				r.variants[i].IntraMerge(r.variants[j])
				r.variants = append(r.variants[:j], r.variants[j+1:]...)
				r.markDirty()
			} else {
				j++
			}
		}
		i++
	}
}

// Finalize attaches parents, finalizes variants, and recomputes the
// register's scope as the union of its variants'.
func (r *Register) Finalize() {
	for _, v := range r.variants {
		v.setParent(r)
		v.Finalize()
		r.scope.Add(v.Scope())
	}
	r.scope.UpdateFamilies()
}

// Edited reports whether the register or anything below it changed since
// the last ValidateEdit.
func (r *Register) Edited() bool {
	if r.dirty {
		return true
	}
	for _, v := range r.variants {
		if v.Edited() {
			return true
		}
	}
	return false
}

// ValidateEdit clears dirty flags recursively.
func (r *Register) ValidateEdit() {
	r.clearDirty()
	for _, v := range r.variants {
		v.ValidateEdit()
	}
}
