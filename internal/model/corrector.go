package model

import (
	"path"
	"sort"
)

// Hook mutates a node in place. Hooks carry no return value; they repair or
// reshape the node they are given.
type Hook func(Node)

// Corrector maps node path patterns to ordered hooks. A node's path is its
// named ancestry joined by "/" (unnamed nodes, like most variants, add no
// segment): a field CEN in register CR1 of peripheral TIM1 has path
// "TIM1/CR1/CEN". Patterns use glob syntax per path segment, so "TIM*/CR1"
// matches CR1 in every TIM peripheral. Matching patterns apply in
// lexicographic order; within a pattern, hooks apply in registration order.
type Corrector map[string][]Hook

func (c Corrector) hooksFor(nodePath string) []Hook {
	if len(c) == 0 {
		return nil
	}
	patterns := make([]string, 0, len(c))
	for pat := range c {
		patterns = append(patterns, pat)
	}
	sort.Strings(patterns)
	var out []Hook
	for _, pat := range patterns {
		if ok, err := path.Match(pat, nodePath); err == nil && ok {
			out = append(out, c[pat]...)
		}
	}
	return out
}

func childPath(parentPath string, n Node) string {
	name := n.NodeName()
	switch {
	case name == "":
		return parentPath
	case parentPath == "":
		return name
	default:
		return parentPath + "/" + name
	}
}

// ApplyBefore runs matching hooks depth-first pre-order across the
// peripheral tree: a node's hooks run before its children are visited, so
// a hook can pre-split or pre-rename a node before structural comparison.
// The walk visits each node exactly once, so each registered hook runs at
// most once per node per pass.
func (p *Peripheral) ApplyBefore(c Corrector) {
	if len(c) == 0 {
		return
	}
	applyPre(c, "", p)
}

// ApplyAfter runs matching hooks depth-first post-order: children first,
// then the node itself, so a hook can validate or repair merged results.
func (p *Peripheral) ApplyAfter(c Corrector) {
	if len(c) == 0 {
		return
	}
	applyPost(c, "", p)
}

func applyPre(c Corrector, parentPath string, n Node) {
	for _, h := range c.hooksFor(childPath(parentPath, n)) {
		h(n)
	}
	// Children resolve against the current name in case a hook renamed us.
	own := childPath(parentPath, n)
	for _, child := range childrenOf(n) {
		applyPre(c, own, child)
	}
}

func applyPost(c Corrector, parentPath string, n Node) {
	own := childPath(parentPath, n)
	for _, child := range childrenOf(n) {
		applyPost(c, own, child)
	}
	for _, h := range c.hooksFor(own) {
		h(n)
	}
}

// childrenOf resolves the container capability over the closed kind set.
// Correction passes descend the declaration hierarchy only: peripheral to
// registers to variants to fields.
func childrenOf(n Node) []Node {
	switch v := n.(type) {
	case *Peripheral:
		out := make([]Node, len(v.registers))
		for i, r := range v.registers {
			out[i] = r
		}
		return out
	case *Register:
		out := make([]Node, len(v.variants))
		for i, vr := range v.variants {
			out[i] = vr
		}
		return out
	case *Variant:
		out := make([]Node, len(v.fields))
		for i, f := range v.fields {
			out[i] = f
		}
		return out
	case *Mapping, *Field, *Instance:
		return nil
	}
	return nil
}
