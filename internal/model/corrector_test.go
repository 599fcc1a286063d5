package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/chip"
)

func TestCorrector_PatternMatching(t *testing.T) {
	p := buildPeripheral(t, "X", "TIM1", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
		4: buildRegister(t, "X", "SR", 32, [3]any{"UIF", 0, 1}),
	})

	var visited []string
	c := Corrector{
		"TIM*/CR1":   {func(n Node) { visited = append(visited, "reg:"+n.NodeName()) }},
		"TIM*/*/CEN": {func(n Node) { visited = append(visited, "field:"+n.NodeName()) }},
	}
	p.ApplyBefore(c)

	// Variants are unnamed and add no path segment, so the field path is
	// TIM1/CR1/CEN and the register wildcard matches it.
	assert.Contains(t, visited, "reg:CR1")
	assert.Contains(t, visited, "field:CEN")
	assert.NotContains(t, visited, "reg:SR")
}

func TestCorrector_FieldPath(t *testing.T) {
	p := buildPeripheral(t, "X", "TIM1", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	var got []string
	c := Corrector{
		"TIM*/CR1/CEN": {func(n Node) { got = append(got, n.NodeName()) }},
	}
	p.ApplyBefore(c)
	assert.Equal(t, []string{"CEN"}, got)
}

func TestCorrector_RunsAtMostOncePerNode(t *testing.T) {
	p := buildPeripheral(t, "X", "TIM1", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	count := 0
	c := Corrector{
		"TIM1/CR1": {func(n Node) { count++ }},
	}
	p.ApplyBefore(c)
	assert.Equal(t, 1, count)

	// A second pass is a separate invocation; within one pass each hook
	// fires once per node.
	p.ApplyAfter(c)
	assert.Equal(t, 2, count)
}

func TestCorrector_PreOrderSeesRenames(t *testing.T) {
	p := buildPeripheral(t, "X", "TIM1", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	var fieldSeen bool
	c := Corrector{
		"TIM1/CR1":       {func(n Node) { n.SetName("CTRL1") }},
		"TIM1/CTRL1/CEN": {func(n Node) { fieldSeen = true }},
	}
	p.ApplyBefore(c)

	// Pre-order: the register hook renamed CR1 before its children were
	// pathed, so the field resolves under the new name.
	assert.Equal(t, "CTRL1", p.Registers()[0].NodeName())
	assert.True(t, fieldSeen)
}

func TestCorrector_PostOrderChildrenFirst(t *testing.T) {
	p := buildPeripheral(t, "X", "TIM1", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	var order []string
	c := Corrector{
		"TIM1":         {func(n Node) { order = append(order, "peripheral") }},
		"TIM1/CR1":     {func(n Node) { order = append(order, "register") }},
		"TIM1/CR1/CEN": {func(n Node) { order = append(order, "field") }},
	}
	p.ApplyAfter(c)
	require.Equal(t, []string{"field", "register", "peripheral"}, order)

	order = nil
	p.ApplyBefore(c)
	require.Equal(t, []string{"peripheral", "register", "field"}, order)
}

func TestCorrector_OrderedHooks(t *testing.T) {
	p := NewPeripheral(chip.NewSet("X"), "ADC", "", "ADC")

	var order []int
	c := Corrector{
		"ADC": {
			func(n Node) { order = append(order, 1) },
			func(n Node) { order = append(order, 2) },
			func(n Node) { order = append(order, 3) },
		},
	}
	p.ApplyBefore(c)
	assert.Equal(t, []int{1, 2, 3}, order)
}
