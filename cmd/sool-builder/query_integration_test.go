package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateFixture builds the binary and runs generate over the chip
// fixtures with a catalog, returning the binary path and the fixture dir.
// The catalog lands at sool.db in the fixture dir, the query default.
func generateFixture(t *testing.T) (bin, fixtureDir string) {
	t.Helper()
	bin = buildBinary(t)
	fixtureDir, paths := createChipFixtures(t)

	args := append([]string{
		"generate",
		"--out", filepath.Join(fixtureDir, "headers"),
		"--catalog", filepath.Join(fixtureDir, "sool.db"),
		"--jobs", "1",
	}, paths...)
	cmd := exec.Command(bin, args...)
	cmd.Dir = fixtureDir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generate failed: %s", string(out))

	return bin, fixtureDir
}

// runQuery executes a query command and returns the parsed CLIResult.
func runQuery(t *testing.T, bin, fixtureDir string, args ...string) map[string]any {
	t.Helper()
	fullArgs := append([]string{"query"}, args...)
	cmd := exec.Command(bin, fullArgs...)
	cmd.Dir = fixtureDir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdout, err := cmd.Output()
	// Allow non-zero exit for error cases, but we always expect JSON on stdout.
	if err != nil && len(stdout) == 0 {
		t.Fatalf("query command failed with no output: %v", err)
	}

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

func TestQuery_Chips(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixtureDir := generateFixture(t)

	result := runQuery(t, bin, fixtureDir, "chips")

	assert.Equal(t, "chips", result["command"])
	assert.Empty(t, result["error"])
	assert.Equal(t, []any{"CHIPA", "CHIPB"}, result["results"])
}

func TestQuery_Peripherals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixtureDir := generateFixture(t)

	result := runQuery(t, bin, fixtureDir, "peripherals")

	assert.Equal(t, "peripherals", result["command"])
	results, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.Len(t, results, 1)

	wwdg, ok := results[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "WWDG", wwdg["name"])
	assert.Equal(t, "CHIPA|CHIPB", wwdg["chips"])
	assert.Equal(t, float64(1), wwdg["registers"])
	assert.Equal(t, float64(2), wwdg["instances"])

	// Group filter with no match.
	result = runQuery(t, bin, fixtureDir, "peripherals", "TIM")
	results, ok = result["results"].([]any)
	if ok {
		assert.Empty(t, results)
	} else {
		assert.Nil(t, result["results"])
	}
}

func TestQuery_Guards(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixtureDir := generateFixture(t)

	result := runQuery(t, bin, fixtureDir, "guards")

	results, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.Len(t, results, 1)

	guard, ok := results[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "WWDG_WWDG2", guard["alias"])
	assert.Equal(t, "0x40003000", guard["value"])
	assert.Equal(t, "CHIPB", guard["scope"])
	assert.Equal(t, true, guard["define_not"])

	// Pattern filtering.
	result = runQuery(t, bin, fixtureDir, "guards", "CHIPA")
	if filtered, ok := result["results"].([]any); ok {
		assert.Empty(t, filtered)
	} else {
		assert.Nil(t, result["results"])
	}
}

func TestQuery_Diags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixtureDir := generateFixture(t)

	// WWDG has no classification rule, so each run records fallbacks.
	result := runQuery(t, bin, fixtureDir, "diags", "--level", "warn")

	results, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.NotEmpty(t, results)

	finding, ok := results[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "classification-fallback", finding["kind"])
}

func TestQuery_MissingCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	emptyDir := t.TempDir()

	cmd := exec.Command(bin, "query", "chips")
	cmd.Dir = emptyDir
	stdout, err := cmd.Output()
	require.Error(t, err, "query should fail without a catalog")

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result))
	assert.Contains(t, result["error"], "catalog not found")
}
