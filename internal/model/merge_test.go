package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
)

// buildRegister assembles a register with one variant holding the given
// (name, offset, width) fields, all scoped to chipName.
func buildRegister(t *testing.T, chipName, name string, size uint, fields ...[3]any) *Register {
	t.Helper()
	r := NewRegister(chip.NewSet(chipName), name, "", size, "read-write")
	for _, f := range fields {
		r.AddField(NewField(chip.NewSet(chipName),
			f[0].(string), "", uint(f[1].(int)), uint(f[2].(int))), true)
	}
	return r
}

// buildPeripheral assembles a single-chip peripheral the way ingest does:
// one mapping, the registers placed at the given offsets, one instance.
func buildPeripheral(t *testing.T, chipName, name string, layout map[uint]*Register) *Peripheral {
	t.Helper()
	p := NewPeripheral(chip.NewSet(chipName), name, "", name)
	m := NewMapping(chip.NewSet(chipName))
	for off, r := range layout {
		p.AddRegister(r)
		m.Put(off, r)
	}
	p.AddMapping(m)
	p.AddInstance(NewInstance(chip.NewSet(chipName), name+"1", 0x40000000))
	return p
}

func sink(t *testing.T) *diag.Sink {
	t.Helper()
	return diag.NewSink(nil)
}

func TestMerge_IdenticalRegisters(t *testing.T) {
	// Scenario: chips X and Y both define CR1 at offset 0 with identical
	// fields. One mapping, one register, scope {X, Y}.
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	acc.MergePeripheral(inc, sink(t))
	acc.Finalize()

	require.Len(t, acc.Mappings(), 1)
	require.Len(t, acc.Registers(), 1)
	assert.Equal(t, "CR1", acc.Registers()[0].NodeName())
	assert.True(t, acc.Scope().Equal(chip.NewSet("X", "Y")))
	assert.True(t, acc.Registers()[0].Scope().Equal(chip.NewSet("X", "Y")))
}

func TestMerge_RenamesEquivalentRegisters(t *testing.T) {
	// Scenario: X names a register SR1, Y calls the identical layout
	// STATUS. The shorter name wins and the rename is logged.
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "SR1", 32, [3]any{"UIF", 0, 1}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "STATUS", 32, [3]any{"UIF", 0, 1}),
	})

	s := sink(t)
	acc.MergePeripheral(inc, s)
	acc.Finalize()

	require.Len(t, acc.Mappings(), 1)
	require.Len(t, acc.Registers(), 1)
	assert.Equal(t, "SR1", acc.Registers()[0].NodeName())
	assert.True(t, acc.Registers()[0].Scope().Equal(chip.NewSet("X", "Y")))

	renames := 0
	for _, e := range s.Entries() {
		if e.Kind == diag.KindRename {
			renames++
		}
	}
	assert.Equal(t, 1, renames)
}

func TestMerge_HoleFilling(t *testing.T) {
	// Scenario: X has FOO at offset 4, Y's otherwise-identical mapping
	// lacks it. The merge succeeds and FOO stays scoped to X only.
	foo := buildRegister(t, "X", "FOO", 32, [3]any{"BAR", 0, 8})
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
		4: foo,
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})

	acc.MergePeripheral(inc, sink(t))
	acc.Finalize()

	require.Len(t, acc.Mappings(), 1)
	assert.Same(t, foo, acc.Mappings()[0].At(4))
	assert.True(t, foo.Scope().Equal(chip.NewSet("X")))
	assert.True(t, acc.Scope().Equal(chip.NewSet("X", "Y")))
	assert.True(t, foo.NeedsGuard())
}

func TestMerge_IncompatibleSizesKeepBothMappings(t *testing.T) {
	// Scenario: X and Y define different-sized registers at offset 8.
	// Genuine hardware variance: the peripheral keeps two mappings.
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		8: buildRegister(t, "X", "CNT", 32, [3]any{"CNT", 0, 32}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		8: buildRegister(t, "Y", "CNT", 16, [3]any{"CNT", 0, 16}),
	})

	assert.False(t, acc.CompatibleWith(inc))
	acc.MergePeripheral(inc, sink(t))
	acc.Finalize()

	require.Len(t, acc.Mappings(), 2)
	assert.True(t, acc.Mappings()[0].Scope().Equal(chip.NewSet("X")))
	assert.True(t, acc.Mappings()[1].Scope().Equal(chip.NewSet("Y")))
	// The peripheral itself still covers both chips.
	assert.True(t, acc.Scope().Equal(chip.NewSet("X", "Y")))
}

func TestMerge_ConflictingContentFailsWithoutMutation(t *testing.T) {
	// Same name, same size, different fields at a shared offset merge into
	// union variants; different names with different content must not.
	local := buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1})
	acc := NewMapping(chip.NewSet("X"))
	acc.Put(0, local)

	other := NewMapping(chip.NewSet("Y"))
	other.Put(0, buildRegister(t, "Y", "MODER", 32, [3]any{"MODE0", 0, 2}))

	ok := acc.MergeMapping(other, sink(t))

	assert.False(t, ok)
	// Nothing committed: names and scope untouched.
	assert.Equal(t, "CR1", local.NodeName())
	assert.True(t, acc.Scope().Equal(chip.NewSet("X")))
	assert.Equal(t, 1, acc.Len())
}

func TestMerge_Idempotence(t *testing.T) {
	build := func(chipName string) *Peripheral {
		return buildPeripheral(t, chipName, "TIM", map[uint]*Register{
			0: buildRegister(t, chipName, "CR1", 32, [3]any{"CEN", 0, 1}),
			4: buildRegister(t, chipName, "SR", 32, [3]any{"UIF", 0, 1}),
		})
	}
	acc := build("X")
	acc.MergePeripheral(build("Y"), sink(t))

	// Re-adding a chip already merged changes nothing.
	acc.MergePeripheral(build("Y"), sink(t))
	acc.Finalize()

	require.Len(t, acc.Mappings(), 1)
	require.Len(t, acc.Registers(), 2)
	require.Len(t, acc.Instances(), 1)
	assert.True(t, acc.Scope().Equal(chip.NewSet("X", "Y")))
}

func TestMerge_SelfMergeRoundTrip(t *testing.T) {
	build := func() *Mapping {
		m := NewMapping(chip.NewSet("X"))
		m.Put(0, buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}))
		m.Put(4, buildRegister(t, "X", "SR", 32, [3]any{"UIF", 0, 1}))
		return m
	}
	m := build()
	require.True(t, m.MergeMapping(build(), sink(t)))

	want := build()
	assert.True(t, m.Equal(want))
	assert.True(t, m.Scope().Equal(chip.NewSet("X")))
}

func TestMerge_SubsetSuperset(t *testing.T) {
	small := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	big := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
		4: buildRegister(t, "Y", "SR", 32, [3]any{"UIF", 0, 1}),
	})
	require.True(t, small.Mappings()[0].SubsetOf(big.Mappings()[0]))

	small.MergePeripheral(big, sink(t))
	small.Finalize()

	require.Len(t, small.Mappings(), 1)
	m := small.Mappings()[0]
	assert.Equal(t, []uint{0, 4}, m.Offsets())
	assert.True(t, m.Scope().Equal(chip.NewSet("X", "Y")))
	assert.True(t, m.At(0).Scope().Equal(chip.NewSet("X", "Y")))
	assert.True(t, m.At(4).Scope().Equal(chip.NewSet("Y")))
}

func TestMerge_OrderIndependence(t *testing.T) {
	build := func(chipName string, withFoo bool) *Peripheral {
		layout := map[uint]*Register{
			0: buildRegister(t, chipName, "CR1", 32, [3]any{"CEN", 0, 1}),
		}
		if withFoo {
			layout[4] = buildRegister(t, chipName, "FOO", 32, [3]any{"BAR", 0, 8})
		}
		return buildPeripheral(t, chipName, "TIM", layout)
	}

	merge := func(order []string) *Peripheral {
		var acc *Peripheral
		for _, c := range order {
			p := build(c, c != "Y")
			if acc == nil {
				acc = p
				continue
			}
			acc.MergePeripheral(p, sink(t))
		}
		acc.Finalize()
		return acc
	}

	orders := [][]string{
		{"X", "Y", "Z"},
		{"Z", "Y", "X"},
		{"Y", "X", "Z"},
	}
	var results []*Peripheral
	for _, order := range orders {
		results = append(results, merge(order))
	}

	base := results[0]
	for _, got := range results[1:] {
		require.Len(t, got.Mappings(), len(base.Mappings()))
		assert.True(t, got.Scope().Equal(base.Scope()))
		require.Len(t, got.Registers(), len(base.Registers()))
		for _, r := range base.Registers() {
			other := got.RegisterNamed(r.NodeName())
			require.NotNil(t, other, "register %s missing", r.NodeName())
			assert.True(t, r.Equal(other))
			assert.True(t, r.Scope().Equal(other.Scope()))
		}
		require.Len(t, got.Instances(), len(base.Instances()))
	}
}

func TestMerge_InstanceReconciliation(t *testing.T) {
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	// A second placement at a different address on Y.
	inc.AddInstance(NewInstance(chip.NewSet("Y"), "TIM8", 0x40010000))

	acc.MergePeripheral(inc, sink(t))
	acc.Finalize()

	require.Len(t, acc.Instances(), 2)
	// The shared placement covers both chips; the Y-only one stays scoped.
	byName := map[string]*Instance{}
	for _, inst := range acc.Instances() {
		byName[inst.NodeName()] = inst
	}
	assert.True(t, byName["TIM1"].Scope().Equal(chip.NewSet("X", "Y")))
	assert.True(t, byName["TIM8"].Scope().Equal(chip.NewSet("Y")))
	assert.True(t, byName["TIM8"].NeedsGuard())
}

func TestMerge_MultiMappingIncomingLogsError(t *testing.T) {
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	extra := NewMapping(chip.NewSet("Y"))
	sr := buildRegister(t, "Y", "SR", 32, [3]any{"UIF", 0, 1})
	inc.AddRegister(sr)
	extra.Put(0, sr)
	inc.AddMapping(extra)

	s := sink(t)
	acc.MergePeripheral(inc, s)

	assert.Equal(t, 1, s.Count(diag.LevelError))
}

func TestMerge_AdoptsMissingBrief(t *testing.T) {
	acc := buildPeripheral(t, "X", "TIM", map[uint]*Register{
		0: buildRegister(t, "X", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc := buildPeripheral(t, "Y", "TIM", map[uint]*Register{
		0: buildRegister(t, "Y", "CR1", 32, [3]any{"CEN", 0, 1}),
	})
	inc.SetBrief("general purpose timers")
	inc.Registers()[0].SetBrief("control register")

	acc.MergePeripheral(inc, sink(t))

	assert.Equal(t, "general purpose timers", acc.Brief())
	assert.Equal(t, "control register", acc.Registers()[0].Brief())
}
