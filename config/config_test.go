package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultHasNoShufflingAndTenPercentSplits(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Dataset.Shuffle.Enable)
	assert.Equal(t, 0.1, cfg.Dataset.TestFraction)
	assert.Equal(t, 0.1, cfg.Dataset.ComparisonFraction)
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{
		"dataset": {"shuffle": {"enable": true, "seed": 7}, "test_fraction": 0.2, "comparison_fraction": 0.15},
		"train": {"comparison_metric": "rmse", "grid": [{"kind": "linear"}]}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Dataset.Shuffle.Enable)
	assert.Equal(t, uint64(7), cfg.Dataset.Shuffle.Seed)
	assert.Equal(t, 0.2, cfg.Dataset.TestFraction)
	assert.Equal(t, 0.15, cfg.Dataset.ComparisonFraction)
	assert.Equal(t, "rmse", cfg.Train.ComparisonMetric)
	require.Len(t, cfg.Train.Grid, 1)
	assert.Equal(t, "linear", cfg.Train.Grid[0].Kind)
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "cfg.yaml", "dataset:\n  test_fraction: 0.3\n  column_types:\n    zip: enum\ntrain:\n  comparison_metric: auc\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Dataset.TestFraction)
	assert.Equal(t, "enum", cfg.Dataset.ColumnTypes["zip"])
	assert.Equal(t, "auc", cfg.Train.ComparisonMetric)
}

func TestLoadUnrecognizedExtensionIsConfigError(t *testing.T) {
	path := writeTemp(t, "cfg.toml", "test_fraction = 0.2\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSONIsConfigError(t *testing.T) {
	path := writeTemp(t, "cfg.json", "{not valid json")
	_, err := Load(path)
	require.Error(t, err)
}
