package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides applies the documented environment-variable overrides
// on top of whatever KDL/TOML/defaults produced cfg: AST_WEIGHT, CFG_WEIGHT,
// DATAFLOW_WEIGHT, LLM_THRESHOLD. Malformed values
// are ignored, leaving the prior setting in place.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envFloat("AST_WEIGHT"); ok {
		cfg.Weights.AST = v
	}
	if v, ok := envFloat("CFG_WEIGHT"); ok {
		cfg.Weights.CFG = v
	}
	if v, ok := envFloat("DATAFLOW_WEIGHT"); ok {
		cfg.Weights.DFG = v
	}
	if v, ok := envFloat("LLM_THRESHOLD"); ok {
		cfg.Judge.Threshold = v
	}
}

func envFloat(name string) (float64, bool) {
	raw, set := os.LookupEnv(name)
	if !set {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
