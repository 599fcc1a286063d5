// Package config loads the generation settings: the chip family registry,
// rule overrides, ingest parallelism and output targets. Files are YAML,
// loaded through Viper and validated against an embedded CUE schema before
// anything reads them.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var configSchema string

// Config is the full generation configuration. The zero value is valid; a
// missing config file means defaults.
type Config struct {
	// Families maps a family name to the chip identifiers it spans. Family
	// names are case-significant; they end up in preprocessor guards.
	Families map[string][]string `mapstructure:"families"`

	// RulesDir overrides the embedded classification rules with scripts
	// from a directory.
	RulesDir string `mapstructure:"rules_dir"`

	// Jobs is the parallel ingest width. 0 means one worker per CPU.
	Jobs int `mapstructure:"jobs"`

	Output OutputConfig `mapstructure:"output"`
}

// OutputConfig selects where results land.
type OutputConfig struct {
	HeaderDir string `mapstructure:"header_dir"`
	Catalog   string `mapstructure:"catalog"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output: OutputConfig{HeaderDir: "out"},
	}
}

// Load reads and validates the YAML config at path. An empty path yields
// the defaults. Schema violations (unknown keys, type mismatches) fail with
// an error naming the offending path.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	configMap, err := validate(path, data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("rules_dir", defaults.RulesDir)
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("output.header_dir", defaults.Output.HeaderDir)
	v.SetDefault("output.catalog", defaults.Output.Catalog)
	// Viper lowercases map keys, and MergeConfigMap rewrites the keys of
	// the map it is handed in place. Family names are case-significant, so
	// they come straight from the validated document before the merge.
	families := familiesFrom(configMap)

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("config: merge %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.Families = families
	return &cfg, nil
}

// validate parses the YAML document with CUE, unifies it against the closed
// #Config definition and decodes the result to a plain map.
func validate(path string, data []byte) (map[string]any, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("compile schema: %w", schemaValue.Err())
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return nil, err
	}
	userValue := ctx.BuildFile(file)
	if userValue.Err() != nil {
		return nil, userValue.Err()
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, err
	}
	return configMap, nil
}

func familiesFrom(configMap map[string]any) map[string][]string {
	raw, ok := configMap["families"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	families := make(map[string][]string, len(raw))
	for name, chips := range raw {
		list, ok := chips.([]any)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(list))
		for _, c := range list {
			if s, ok := c.(string); ok {
				ids = append(ids, s)
			}
		}
		families[name] = ids
	}
	return families
}
