package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads configuration from .plagscan.kdl in projectRoot, if present.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".plagscan.kdl")
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .plagscan.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	} else if cfg.Project.Root == "" {
		if abs, err := filepath.Abs(projectRoot); err == nil {
			cfg.Project.Root = abs
		} else {
			cfg.Project.Root = projectRoot
		}
	}
	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := defaultConfig("")

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .plagscan.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "weights":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "ast":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.AST = f
					}
				case "cfg":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.CFG = f
					}
				case "dataflow":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.DFG = f
					}
				case "plagiarism_threshold":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.PlagiarismThresh = f
					}
				case "graph_threshold":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.GraphThresh = f
					}
				case "cluster_threshold":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Weights.ClusterThresh = f
					}
				}
			}
		case "judge":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Judge.Enabled = b
					}
				case "threshold":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Judge.Threshold = f
					}
				case "endpoint":
					if s, ok := firstStringArg(cn); ok {
						cfg.Judge.Endpoint = s
					}
				}
			}
		case "ingest":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if sz, ok := firstIntArg(cn); ok {
						cfg.Ingest.MaxFileSize = int64(sz)
					}
				case "max_file_count":
					if c, ok := firstIntArg(cn); ok {
						cfg.Ingest.MaxFileCount = c
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Ingest.FollowSymlinks = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Ingest.RespectGitignore = b
					}
				case "watch":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Ingest.WatchMode = b
					}
				}
			}
		case "server":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "addr":
					if s, ok := firstStringArg(cn); ok {
						cfg.Server.Addr = s
					}
				case "metrics":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Server.MetricsEnabled = b
					}
				case "workers":
					if w, ok := firstIntArg(cn); ok {
						cfg.Server.ParallelWorkers = w
					}
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// collectStringArgs reads a node's string list either from inline arguments
// (`exclude "a" "b"`) or from block-form children (`exclude { "a"; "b" }`).
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
