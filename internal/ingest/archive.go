// Package ingest turns an uploaded archive, a local directory, a pair of
// remote repository URLs, or a tabular-sheet roster into the flat list of
// orchestrate.SourceFile the engine compares. These are collaborators at the
// system boundary: failures here are ExternalFailure/InputError, never a
// core-analysis failure.
package ingest

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/plagscan/internal/config"
	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
	"github.com/standardbeagle/plagscan/internal/parser"
)

// Matcher decides whether a path (relative to the archive/directory root)
// should be read at all, independent of the per-family extension check the
// parser registry does later.
type Matcher struct {
	include []string
	exclude []string
}

// NewMatcher builds a Matcher from a config's include/exclude glob lists.
// An empty include list matches everything not explicitly excluded.
func NewMatcher(cfg *config.Config) *Matcher {
	return &Matcher{include: cfg.Include, exclude: cfg.Exclude}
}

func (m *Matcher) Allows(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, pattern := range m.include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// Result bundles the files an ingest source produced along with any
// per-file errors recorded rather than surfaced (entries the matcher rejects
// are simply omitted; oversized files, read failures and decode failures
// are recorded for the caller to fold into the analysis response).
type Result struct {
	Files  []orchestrate.SourceFile
	Errors []string
}

// FromZip walks a zip archive's central directory, keeping every entry the
// matcher allows and the parser registry recognises by extension, up to
// cfg.Ingest.MaxFileSize/MaxFileCount.
func FromZip(data []byte, cfg *config.Config) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, plagerrors.NewExternalFailure("zip", err)
	}

	matcher := NewMatcher(cfg)
	result := &Result{}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if len(result.Files) >= cfg.Ingest.MaxFileCount {
			break
		}
		if !matcher.Allows(entry.Name) {
			continue
		}
		if parser.FamilyForExtension(entry.Name) == "" {
			continue
		}
		if int64(entry.UncompressedSize64) > cfg.Ingest.MaxFileSize {
			result.Errors = append(result.Errors, entry.Name+": exceeds max file size")
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			result.Errors = append(result.Errors, entry.Name+": "+err.Error())
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			result.Errors = append(result.Errors, entry.Name+": "+err.Error())
			continue
		}
		if !utf8.Valid(data) {
			result.Errors = append(result.Errors, plagerrors.NewDecodeError(entry.Name, nil).Error())
			continue
		}

		result.Files = append(result.Files, orchestrate.SourceFile{Path: entry.Name, Data: data})
	}
	return result, nil
}

// FromDirectory walks a local checkout (a cloned repo, an unpacked
// archive's temp dir) the same way FromZip walks a zip's central directory,
// recording file paths relative to root.
func FromDirectory(root string, cfg *config.Config) (*Result, error) {
	var gi *config.GitignoreParser
	if cfg.Ingest.RespectGitignore {
		gi = config.NewGitignoreParser()
		_ = gi.LoadGitignore(root)
	}

	matcher := NewMatcher(cfg)
	result := &Result{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if len(result.Files) >= cfg.Ingest.MaxFileCount {
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.ShouldIgnore(rel, false) {
			return nil
		}
		if !matcher.Allows(rel) {
			return nil
		}
		if parser.FamilyForExtension(rel) == "" {
			return nil
		}
		if info.Size() > cfg.Ingest.MaxFileSize {
			result.Errors = append(result.Errors, rel+": exceeds max file size")
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			result.Errors = append(result.Errors, rel+": "+readErr.Error())
			return nil
		}
		if !utf8.Valid(data) {
			result.Errors = append(result.Errors, plagerrors.NewDecodeError(rel, nil).Error())
			return nil
		}

		result.Files = append(result.Files, orchestrate.SourceFile{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, plagerrors.NewExternalFailure("directory-walk", err)
	}
	return result, nil
}
