package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors the subset of Config a .plagscan.toml file can set;
// kept separate from Config so TOML field-name casing doesn't leak into the
// programmatic API.
type tomlConfig struct {
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Weights struct {
		AST                 float64 `toml:"ast"`
		CFG                 float64 `toml:"cfg"`
		DFG                 float64 `toml:"dataflow"`
		PlagiarismThreshold float64 `toml:"plagiarism_threshold"`
	} `toml:"weights"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML loads .plagscan.toml from projectRoot as a fallback when no KDL
// config is present.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, ".plagscan.toml")
	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var parsed tomlConfig
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	cfg := defaultConfig(projectRoot)
	if parsed.Project.Root != "" {
		cfg.Project.Root = parsed.Project.Root
	}
	if parsed.Project.Name != "" {
		cfg.Project.Name = parsed.Project.Name
	}
	if parsed.Weights.AST != 0 {
		cfg.Weights.AST = parsed.Weights.AST
	}
	if parsed.Weights.CFG != 0 {
		cfg.Weights.CFG = parsed.Weights.CFG
	}
	if parsed.Weights.DFG != 0 {
		cfg.Weights.DFG = parsed.Weights.DFG
	}
	if parsed.Weights.PlagiarismThreshold != 0 {
		cfg.Weights.PlagiarismThresh = parsed.Weights.PlagiarismThreshold
	}
	if len(parsed.Include) > 0 {
		cfg.Include = parsed.Include
	}
	if len(parsed.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, parsed.Exclude...)
	}
	return cfg, nil
}
