package config

import (
	"os"

	"github.com/standardbeagle/plagscan/internal/types"
)

// Config is plagscan's full runtime configuration: structural-layer
// weights, scoring thresholds, ingest limits, and the include/exclude glob
// lists used while walking an uploaded archive or repository checkout.
type Config struct {
	Version  int
	Project  Project
	Weights  Weights
	Judge    Judge
	Ingest   Ingest
	Server   Server
	Include  []string
	Exclude  []string
}

type Project struct {
	Root string
	Name string
}

// Weights holds the structural layer weights and scoring thresholds; the
// three layer weights are overridable via the AST_WEIGHT/CFG_WEIGHT/
// DATAFLOW_WEIGHT environment variables (LLM_THRESHOLD sets
// Judge.Threshold instead).
type Weights struct {
	AST              float64
	CFG              float64
	DFG              float64
	PlagiarismThresh float64
	GraphThresh      float64
	ClusterThresh    float64
}

// Judge configures the optional external semantic-judge call.
type Judge struct {
	Enabled   bool
	Threshold float64
	Endpoint  string
}

// Ingest bounds what a single analysis request may contain.
type Ingest struct {
	MaxFileSize      int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool
	WatchDebounceMs  int
}

// Server configures the HTTP surface.
type Server struct {
	Addr              string
	MetricsEnabled    bool
	ParallelWorkers   int
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads a global base config from ~/.plagscan.kdl (if present),
// a project config from rootDir/.plagscan.kdl, merges them (project
// overrides base, base exclusions are preserved), reads
// rootDir/.plagscan.toml as the project config when the project KDL file
// is absent, and falls back to defaults when no config file is found. The
// path argument is not read.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	var projectConfig *Config
	if kdlCfg, err := LoadKDL(searchDir); err == nil && kdlCfg != nil {
		projectConfig = kdlCfg
	} else if tomlCfg, err := LoadTOML(searchDir); err == nil && tomlCfg != nil {
		projectConfig = tomlCfg
	}

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		cfg = baseConfig
	default:
		cfg = defaultConfig(searchDir)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig(root string) *Config {
	cwd := root
	if cwd == "" || cwd == "." {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	cfg := &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Weights: Weights{
			AST:              types.DefaultASTWeight,
			CFG:              types.DefaultCFGWeight,
			DFG:              types.DefaultDFGWeight,
			PlagiarismThresh: types.DefaultPlagiarismThreshold,
			GraphThresh:      types.DefaultGraphThreshold,
			ClusterThresh:    types.DefaultClusterThreshold,
		},
		Judge: Judge{
			Enabled:   false,
			Threshold: types.DefaultLLMThreshold,
		},
		Ingest: Ingest{
			MaxFileSize:      types.DefaultMaxFileSize,
			MaxFileCount:     types.DefaultMaxFileCount,
			FollowSymlinks:   false,
			RespectGitignore: true,
			WatchMode:        false,
			WatchDebounceMs:  300,
		},
		Server: Server{
			Addr:            ":8080",
			MetricsEnabled:  true,
			ParallelWorkers: 0,
		},
		Include: []string{},
		Exclude: defaultExcludePatterns(),
	}
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg
}

// EnrichExclusionsWithBuildArtifacts detects language-specific build output
// directories under the project root (package.json, tsconfig.json,
// Cargo.toml, ...) and folds their output directories into Exclude.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	detected := NewBuildArtifactDetector(c.Project.Root).DetectOutputDirectories()
	if len(detected) == 0 {
		return
	}
	c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
}

// defaultExcludePatterns skips the directories a source upload should never
// be fingerprinted from: VCS metadata, dependency trees, build output.
func defaultExcludePatterns() []string {
	return []string{
		"**/.git/**",
		"**/.*/**",
		"**/node_modules/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/__pycache__/**",
		"**/*.pyc",
		"**/*.min.js",
	}
}

// mergeConfigs merges a base config with a project config: project settings
// win, but base exclusions are always preserved alongside project ones.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		excludeSet := make(map[string]bool)
		for _, p := range base.Exclude {
			excludeSet[p] = true
		}
		for _, p := range project.Exclude {
			excludeSet[p] = true
		}
		merged.Exclude = make([]string, 0, len(excludeSet))
		for p := range excludeSet {
			merged.Exclude = append(merged.Exclude, p)
		}
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}
