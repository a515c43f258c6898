package config

import (
	"fmt"
	"runtime"

	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
)

// Validator validates configuration and fills in smart defaults.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateAndSetDefaults validates cfg and applies smart defaults.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return plagerrors.NewConfigError("project", "", err)
	}
	if err := v.validateWeights(&cfg.Weights); err != nil {
		return plagerrors.NewConfigError("weights", "", err)
	}
	if err := v.validateIngest(&cfg.Ingest); err != nil {
		return plagerrors.NewConfigError("ingest", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return fmt.Errorf("project root cannot be empty")
	}
	return nil
}

// validateWeights rejects negative weights outright; a zero sum is left to
// the comparator (it degrades to a zero score rather than dividing by zero,
// see compare.Pair).
func (v *Validator) validateWeights(w *Weights) error {
	for name, val := range map[string]float64{"ast": w.AST, "cfg": w.CFG, "dataflow": w.DFG} {
		if val < 0 {
			return fmt.Errorf("%s weight cannot be negative, got %v", name, val)
		}
	}
	for name, val := range map[string]float64{
		"plagiarism_threshold": w.PlagiarismThresh,
		"graph_threshold":      w.GraphThresh,
		"cluster_threshold":    w.ClusterThresh,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, val)
		}
	}
	return nil
}

func (v *Validator) validateIngest(i *Ingest) error {
	if i.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", i.MaxFileSize)
	}
	if i.MaxFileCount <= 0 {
		return fmt.Errorf("MaxFileCount must be positive, got %d", i.MaxFileCount)
	}
	if i.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", i.MaxFileSize)
	}
	return nil
}

// setSmartDefaults fills in CPU-derived defaults left unconfigured.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Server.ParallelWorkers == 0 {
		cfg.Server.ParallelWorkers = max(1, runtime.NumCPU()-1)
	}
}

// ValidateConfig is a convenience wrapper around Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
