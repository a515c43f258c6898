// Package parser adapts source text in either recognised language family
// into a uir.Node tree. Dispatch is purely by filename
// extension; each adapter holds one tree-sitter grammar and creates a fresh
// parser for every Parse call.
package parser

import (
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
	"github.com/standardbeagle/plagscan/internal/types"
	"github.com/standardbeagle/plagscan/internal/uir"
)

// ParseFailure reports a fatal parse error for a file.
type ParseFailure struct {
	FilePath string
	Line     int
	Column   int
	Message  string
}

func (f *ParseFailure) Error() string {
	return f.Message
}

// Adapter produces a UIR tree from source bytes.
type Adapter interface {
	Parse(source []byte, filename string) (*uir.Node, *ParseFailure)
	Family() types.LanguageFamily
}

// Registry dispatches by file extension to the appropriate adapter. A
// single Registry is safe for concurrent use across the bounded worker pool
// that fingerprints files in parallel; its mutex serialises Parse calls.
type Registry struct {
	mu       sync.Mutex
	python   *pythonAdapter
	js       *curlyAdapter
	ts       *curlyAdapter
	tsx      *curlyAdapter
}

// NewRegistry builds a Registry with all supported languages initialised.
func NewRegistry() *Registry {
	r := &Registry{}
	r.python = newPythonAdapter(tree_sitter_python.Language())
	r.js = newCurlyAdapter(tree_sitter_javascript.Language(), types.FamilyCurlyBrace)
	r.ts = newCurlyAdapter(tree_sitter_typescript.LanguageTypescript(), types.FamilyCurlyBrace)
	r.tsx = newCurlyAdapter(tree_sitter_typescript.LanguageTSX(), types.FamilyCurlyBrace)
	return r
}

// recognisedExtensions is the fixed set of extensions dispatched to an
// adapter; anything else is UnsupportedFile.
var recognisedExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
}

// FamilyForExtension classifies a filename's language family, or
// types.FamilyUnknown if the extension is not recognised.
func FamilyForExtension(filename string) types.LanguageFamily {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".py":
		return types.FamilyScripting
	case ".js", ".jsx", ".ts", ".tsx":
		return types.FamilyCurlyBrace
	default:
		return types.FamilyUnknown
	}
}

// Parse dispatches source to the adapter matching filename's extension.
// It returns (nil, err) for UnsupportedFile/DecodeError/fatal ParseError
// conditions: scripting-family syntax errors are
// fatal, curly-brace errors are tolerable and yield a partial tree.
func (r *Registry) Parse(source []byte, filename string) (*uir.Node, error) {
	if !utf8.Valid(source) {
		return nil, plagerrors.NewDecodeError(filename, errNotUTF8)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !recognisedExtensions[ext] {
		return nil, plagerrors.NewUnsupportedFileError(filename)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		root *uir.Node
		fail *ParseFailure
	)
	switch ext {
	case ".py":
		root, fail = r.python.Parse(source, filename)
	case ".js", ".jsx":
		root, fail = r.js.Parse(source, filename)
	case ".ts":
		root, fail = r.ts.Parse(source, filename)
	case ".tsx":
		root, fail = r.tsx.Parse(source, filename)
	}
	if fail != nil {
		return nil, plagerrors.NewParseError(fail.FilePath, fail.Line, fail.Column, fail)
	}
	return root, nil
}

var errNotUTF8 = &utf8Error{}

type utf8Error struct{}

func (*utf8Error) Error() string { return "source is not valid UTF-8" }
