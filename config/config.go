// Package config loads the train-subcommand's config file (JSON or YAML,
// selected by extension) and exposes it as a Config struct. CLI flags take
// precedence over config-file values; the caller is responsible for
// overlaying them after Load returns.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wlattner/gbt/tangerr"
)

// Shuffle controls row shuffling before the train/comparison/test split.
type Shuffle struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Seed   uint64 `json:"seed" yaml:"seed"`
}

// Dataset holds the dataset-shaping section of the config file.
type Dataset struct {
	Shuffle            Shuffle           `json:"shuffle" yaml:"shuffle"`
	TestFraction       float64           `json:"test_fraction" yaml:"test_fraction"`
	ComparisonFraction float64           `json:"comparison_fraction" yaml:"comparison_fraction"`
	ColumnTypes        map[string]string `json:"column_types,omitempty" yaml:"column_types,omitempty"`
}

// GridItem describes one hyperparameter-grid entry as authored in config.
// Hyperparameters not set here fall back to the defaults in package grid,
// which are the same for every task.
type GridItem struct {
	Kind           string             `json:"kind" yaml:"kind"` // "linear" | "tree"
	Hyperparameters map[string]float64 `json:"hyperparameters,omitempty" yaml:"hyperparameters,omitempty"`
}

// Train holds the train-subcommand section of the config file.
type Train struct {
	ComparisonMetric string     `json:"comparison_metric,omitempty" yaml:"comparison_metric,omitempty"`
	Grid             []GridItem `json:"grid,omitempty" yaml:"grid,omitempty"`
}

// Config is the top-level config file shape.
type Config struct {
	Dataset Dataset `json:"dataset" yaml:"dataset"`
	Train   Train   `json:"train" yaml:"train"`
}

// Default returns a Config with the dataset defaults the grid orchestrator
// assumes when no config file is given: no shuffling, a 0.1 test fraction
// and a 0.1 comparison fraction, both taken as fractions of all rows.
func Default() Config {
	return Config{
		Dataset: Dataset{
			TestFraction:       0.1,
			ComparisonFraction: 0.1,
		},
	}
}

// Load reads path and parses it as JSON or YAML based on its extension.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, &tangerr.ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		dec := json.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, &tangerr.ConfigError{Path: path, Err: errors.Wrap(err, "parsing json")}
		}
	case ".yml", ".yaml":
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, &tangerr.ConfigError{Path: path, Err: errors.Wrap(err, "parsing yaml")}
		}
	default:
		return cfg, &tangerr.ConfigError{Path: path, Err: errors.Errorf("unrecognized config extension %q, want .json, .yml, or .yaml", ext)}
	}

	return cfg, nil
}
