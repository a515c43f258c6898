package fingerprint

import (
	"github.com/standardbeagle/plagscan/internal/normalizer"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// FileFingerprint bundles the three structural layers computed for one
// parsed-and-normalised file, plus the normalised tree itself so the raw-AST
// read endpoint can serve it back without reparsing.
type FileFingerprint struct {
	Path string
	Root *uir.Node
	AST  *ASTFingerprint
	CFG  *CFGFingerprint
	DFG  *DFGFingerprint
}

// Build normalises root in place and computes all three fingerprint layers
// in one pass.
func Build(path string, root *uir.Node) *FileFingerprint {
	normalizer.New().Normalise(root)
	return &FileFingerprint{
		Path: path,
		Root: root,
		AST:  BuildAST(root),
		CFG:  BuildCFG(root),
		DFG:  BuildDFG(root),
	}
}
