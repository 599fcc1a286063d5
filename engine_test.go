package sool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
	"github.com/SooL/sool-builder/internal/store"
)

func peripheralNamed(t *testing.T, res *Result, name string) *model.Peripheral {
	t.Helper()
	for _, p := range res.Peripherals {
		if p.NodeName() == name {
			return p
		}
	}
	t.Fatalf("no peripheral named %s in result", name)
	return nil
}

// writeBadChip drops an SVD document with no device name into a temp dir.
func writeBadChip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "BROKEN.svd")
	require.NoError(t, os.WriteFile(path, []byte("<device></device>"), 0o644))
	return path
}

func TestEngine_OrderIndependent(t *testing.T) {
	forward, err := New(WithJobs(1)).Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	paths := testChipPaths()
	reversed := []string{paths[2], paths[1], paths[0]}
	backward, err := New(WithJobs(1)).Run(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, snapshotResult(forward), snapshotResult(backward))
}

func TestEngine_ExcludesMalformedChip(t *testing.T) {
	bad := writeBadChip(t)
	paths := append([]string{bad}, testChipPaths()...)

	res, err := New(WithJobs(1)).Run(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, []string{"STM32TEST1", "STM32TEST2", "STM32TEST3"}, res.Chips)
	assert.Equal(t, []string{bad}, res.Failed)

	ingestErrors := 0
	for _, d := range res.Diagnostics {
		if d.Kind == diag.KindIngest {
			ingestErrors++
			assert.Equal(t, diag.LevelError, d.Level)
		}
	}
	assert.Equal(t, 1, ingestErrors)
}

func TestEngine_FailFast(t *testing.T) {
	bad := writeBadChip(t)
	paths := append([]string{bad}, testChipPaths()...)

	_, err := New(WithJobs(1), WithFailFast(true)).Run(context.Background(), paths)
	require.Error(t, err)

	_, err = New(WithJobs(4), WithFailFast(true)).Run(context.Background(), paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROKEN.svd")
}

func TestEngine_FinalizeTwice(t *testing.T) {
	e := New(WithJobs(1))
	_, err := e.Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	_, err = e.Finalize()
	require.Error(t, err)
}

func TestEngine_DiagnosticsBeforeFinalize(t *testing.T) {
	e := New(WithJobs(1))
	require.NoError(t, e.Ingest(context.Background(), testChipPaths()[:2]))

	// The STS/SR rename fires during the second chip's merge.
	entries := e.Diagnostics()
	require.Len(t, entries, 1)
	assert.Equal(t, diag.KindRename, entries[0].Kind)
}

func TestEngine_CorrectorBefore(t *testing.T) {
	// Renaming STS ahead of the merge removes the automatic rename.
	before := model.Corrector{
		"STS": {func(n model.Node) { n.SetName("SR") }},
	}
	res, err := New(WithJobs(1), WithCorrectors(before, nil)).
		Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	tim := peripheralNamed(t, res, "TIM_GENERAL_4")
	assert.NotNil(t, tim.RegisterNamed("SR"))
	assert.Nil(t, tim.RegisterNamed("STS"))
	assert.Empty(t, res.Diagnostics)
}

func TestEngine_CorrectorAfter(t *testing.T) {
	after := model.Corrector{
		"*/FOO": {func(n model.Node) { n.SetBrief("chip specific option bits") }},
	}
	res, err := New(WithJobs(1), WithCorrectors(nil, after)).
		Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	tim := peripheralNamed(t, res, "TIM_GENERAL_4")
	foo := tim.RegisterNamed("FOO")
	require.NotNil(t, foo)
	assert.Equal(t, "chip specific option bits", foo.Brief())
}

func TestEngine_FamilyCollapse(t *testing.T) {
	defer chip.ClearFamilies()

	res, err := New(
		WithJobs(1),
		WithFamilies(map[string][]string{
			"STM32TEST": {"STM32TEST1", "STM32TEST2", "STM32TEST3"},
		}),
	).Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	gpio := peripheralNamed(t, res, "GPIO")
	assert.Equal(t, "defined(STM32TEST)", gpio.Scope().Defines())

	// A partial family stays concrete.
	tim := peripheralNamed(t, res, "TIM_GENERAL_4")
	assert.Equal(t, "defined(STM32TEST1) || defined(STM32TEST2)", tim.Scope().Defines())
}

func TestEngine_CatalogSnapshot(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	_, err = New(WithJobs(1), WithCatalog(s)).Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	chips, err := s.Chips()
	require.NoError(t, err)
	assert.Equal(t, []string{"STM32TEST1", "STM32TEST2", "STM32TEST3"}, chips)

	periphs, err := s.Peripherals("")
	require.NoError(t, err)
	require.Len(t, periphs, 2)

	guards, err := s.Guards()
	require.NoError(t, err)
	assert.Len(t, guards, 3)
}
