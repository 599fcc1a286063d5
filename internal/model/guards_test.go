package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/chip"
)

func guardFixture(t *testing.T) *Peripheral {
	t.Helper()
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
		4: buildRegister(t, "X", "FOO", 32, [3]any{"BAR", 0, 8}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc.AddInstance(NewInstance(chip.NewSet("Y"), "TIM8", 0x40010000))
	acc.MergePeripheral(inc, sink(t))
	acc.Finalize()
	return acc
}

func TestInferGuards(t *testing.T) {
	p := guardFixture(t)
	table := InferGuards([]*Peripheral{p})

	// FOO (X only) and TIM8 (Y only) need guards; CR1 and TIM1 do not.
	byAlias := map[string]Guard{}
	for _, group := range table.Groups() {
		for _, g := range group.Guards {
			byAlias[g.Alias] = g
		}
	}
	require.Len(t, byAlias, 2)

	foo, ok := byAlias["TIM_FOO"]
	require.True(t, ok)
	assert.Equal(t, "", foo.Value)
	assert.False(t, foo.Undefine)
	assert.False(t, foo.DefineNot)

	tim8, ok := byAlias["TIM_TIM8"]
	require.True(t, ok)
	assert.Equal(t, "0x40010000", tim8.Value)
	assert.True(t, tim8.DefineNot)
}

func TestInferGuards_GroupsByScope(t *testing.T) {
	// Two X-only registers in different peripherals share one scope group.
	a := buildPeripheral(t, "X", "TIMA", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
		4: buildRegister(t, "X", "EXT", 32, [3]any{"E", 0, 1}),
	})
	ainc := buildPeripheral(t, "Y", "TIMA", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	a.MergePeripheral(ainc, sink(t))
	a.Finalize()

	b := buildPeripheral(t, "X", "TIMB", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
		8: buildRegister(t, "X", "OPT", 32, [3]any{"O", 0, 1}),
	})
	binc := buildPeripheral(t, "Y", "TIMB", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	b.MergePeripheral(binc, sink(t))
	b.Finalize()

	table := InferGuards([]*Peripheral{a, b})

	require.Len(t, table.Groups(), 1)
	group := table.Groups()[0]
	assert.Equal(t, chip.NewSet("X").Key(), group.Scope.Key())
	aliases := make([]string, len(group.Guards))
	for i, g := range group.Guards {
		aliases[i] = g.Alias
	}
	assert.Equal(t, []string{"TIMA_EXT", "TIMB_OPT"}, aliases)
}

func TestGuardTable_NoDuplicateAliasPerScope(t *testing.T) {
	table := NewGuardTable()
	scope := chip.NewSet("X")
	table.Record(scope, Guard{Alias: "TIM_FOO"})
	table.Record(scope, Guard{Alias: "TIM_FOO"})
	table.Record(scope, Guard{Alias: "TIM_BAR"})

	require.Len(t, table.Groups(), 1)
	assert.Equal(t, 2, table.Len())
}
