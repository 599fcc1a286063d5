// Package model holds the scoped register tree and the merge engine that
// folds per-chip trees into one cross-chip accumulator.
//
// The tree is a strict ownership hierarchy: Peripheral → Mapping → Register
// → Variant → Field, plus Instance placements hanging off the peripheral.
// Every node carries a chip scope recording which chips the node exists on.
// Merging grows scopes by union; Finalize recomputes them bottom-up and
// canonicalizes; guard inference then derives the preprocessor conditionals
// each scope difference requires.
package model

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/SooL/sool-builder/internal/chip"
)

// Kind enumerates the closed set of node kinds.
type Kind int

const (
	KindPeripheral Kind = iota
	KindMapping
	KindRegister
	KindVariant
	KindField
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindPeripheral:
		return "peripheral"
	case KindMapping:
		return "mapping"
	case KindRegister:
		return "register"
	case KindVariant:
		return "variant"
	case KindField:
		return "field"
	case KindInstance:
		return "instance"
	}
	return "unknown"
}

// Node is the capability every tree node shares: optional name and
// description, a chip scope, and a non-owning parent back-reference. The
// unexported setter keeps the implementation set closed to this package.
type Node interface {
	NodeName() string
	SetName(string)
	Brief() string
	SetBrief(string)
	Scope() *chip.Set
	Parent() Node
	Alias() string
	NeedsGuard() bool
	Kind() Kind

	setParent(Node)
}

// Base carries the state shared by every node kind. Concrete types embed it.
type Base struct {
	name   string
	brief  string
	scope  *chip.Set
	parent Node
	dirty  bool
}

func newBase(scope *chip.Set, name, brief string) Base {
	b := Base{scope: chip.NewSet(), dirty: true}
	b.scope.Add(scope)
	b.SetName(name)
	b.SetBrief(brief)
	return b
}

// NodeName returns the node's name; empty means unnamed.
func (b *Base) NodeName() string { return b.name }

// SetName assigns a name, sanitizing bracket characters ("[" becomes "_",
// "]" is removed). A result that still fails identifier validation is kept
// with an error logged; output stays best-effort.
func (b *Base) SetName(name string) {
	if name == b.name {
		return
	}
	if name != "" {
		name = strings.ReplaceAll(name, "[", "_")
		name = strings.ReplaceAll(name, "]", "")
		if !validIdentifier(name) {
			log.Error("setting non-identifier node name", "name", name)
		}
	}
	b.name = name
	b.dirty = true
}

// Brief returns the node's description; empty means none.
func (b *Base) Brief() string { return b.brief }

// SetBrief assigns a description, collapsing runs of whitespace. A
// description equal to the node's name carries no information and is
// cleared.
func (b *Base) SetBrief(brief string) {
	brief = strings.Join(strings.Fields(brief), " ")
	if brief == b.name {
		brief = ""
	}
	b.brief = brief
}

// Scope returns the node's chip scope. Callers mutate it through the set's
// own methods.
func (b *Base) Scope() *chip.Set { return b.scope }

// Parent returns the owning node, nil at the root.
func (b *Base) Parent() Node { return b.parent }

func (b *Base) setParent(p Node) { b.parent = p }

// Alias returns the path from the nearest named ancestor down to this node,
// joined by "_". It is the preprocessor token guarding the node.
func (b *Base) Alias() string {
	if b.parent == nil {
		return b.name
	}
	parentAlias := b.parent.Alias()
	switch {
	case parentAlias == "":
		return b.name
	case b.name == "":
		return parentAlias
	default:
		return parentAlias + "_" + b.name
	}
}

// NeedsGuard reports whether the node must be wrapped in a conditional: it
// is named, owned, and not present on every chip its parent is present on.
func (b *Base) NeedsGuard() bool {
	return b.name != "" && b.parent != nil && !b.scope.Equal(b.parent.Scope())
}

// Dirty reports whether this node itself changed since the last
// ValidateEdit.
func (b *Base) Dirty() bool { return b.dirty }

func (b *Base) markDirty()  { b.dirty = true }
func (b *Base) clearDirty() { b.dirty = false }

// interMerge absorbs another chip's rendition of the same node: scopes
// union, a missing description is adopted.
func (b *Base) interMerge(o *Base) {
	b.scope.Add(o.scope)
	if b.brief == "" && o.brief != "" {
		b.brief = o.brief
	}
}

// intraMerge folds a duplicate found inside one chip's own document: only a
// missing description is adopted, scopes are already identical.
func (b *Base) intraMerge(o *Base) {
	if b.brief == "" && o.brief != "" {
		b.brief = o.brief
	}
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// shorterName picks the surviving name when two equivalent registers
// disagree: fewer characters wins, byte order breaks length ties. The rule
// is fixed so merge results do not depend on ingestion order.
func shorterName(a, b string) string {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return a
		}
		return b
	}
	if a <= b {
		return a
	}
	return b
}
