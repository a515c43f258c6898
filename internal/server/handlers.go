package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/standardbeagle/plagscan/internal/compare"
	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
	"github.com/standardbeagle/plagscan/internal/ingest"
	"github.com/standardbeagle/plagscan/internal/metrics"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
)

// remoteAnalyzeRequest is the JSON body for POST /v1/analyze/remote: a
// roster of at least two public GitHub repository URLs to fetch and
// compare.
type remoteAnalyzeRequest struct {
	RepoURLs []string `json:"repo_urls"`
}

// sheetAnalyzeRequest is the JSON body for POST /v1/analyze/sheet.
type sheetAnalyzeRequest struct {
	SheetURL string `json:"sheet_url"`
}

// compareRequest selects the two already-analysed files an advanced
// breakdown is computed for.
type compareRequest struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

var (
	remoteRequestSchema  = mustResolvedSchema[remoteAnalyzeRequest]()
	sheetRequestSchema   = mustResolvedSchema[sheetAnalyzeRequest]()
	compareRequestSchema = mustResolvedSchema[compareRequest]()
)

// mustResolvedSchema builds and resolves the JSON Schema for T once at
// package init, so every request reuses the same compiled validator instead
// of re-deriving it per call.
func mustResolvedSchema[T any]() *jsonschema.Resolved {
	schema, err := jsonschema.For[T]()
	if err != nil {
		panic(err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

func (s *Server) runAndCache(c *gin.Context, source string, files []orchestrate.SourceFile) {
	if len(files) < 2 {
		writeError(c, plagerrors.NewInputError(
			fmt.Sprintf("at least two processable files are required, got %d", len(files))))
		return
	}

	opts := orchestrate.DefaultOptions()
	opts.Weights = compare.Weights{
		AST:       s.cfg.Weights.AST,
		CFG:       s.cfg.Weights.CFG,
		DFG:       s.cfg.Weights.DFG,
		Threshold: s.cfg.Weights.PlagiarismThresh,
	}
	opts.GraphThreshold = s.cfg.Weights.GraphThresh
	opts.ClusterThreshold = s.cfg.Weights.ClusterThresh
	opts.Concurrency = s.cfg.Server.ParallelWorkers
	opts.AnalysisType = source
	if s.cfg.Judge.Enabled {
		opts.JudgeClient = s.judge
		opts.JudgeThreshold = s.cfg.Judge.Threshold
	}

	start := time.Now()
	resp, fingerprints, err := orchestrate.Run(c.Request.Context(), s.registry, files, opts)
	if err != nil {
		metrics.RecordAnalysis(source, "error", time.Since(start).Seconds(), 0)
		writeError(c, err)
		return
	}
	metrics.RecordAnalysis(source, "ok", time.Since(start).Seconds(), resp.Summary.TotalFiles)
	metrics.RecordFlaggedPairs(source, resp.Summary.SuspiciousPairsCount)

	if err := s.store.Insert(resp, fingerprints); err != nil {
		writeError(c, err)
		return
	}
	metrics.SetCacheSize(s.store.Len())

	c.JSON(http.StatusOK, resp)
}

// handleAnalyzeUpload accepts a multipart form with one or more "files"
// parts, each a single source file.
func (s *Server) handleAnalyzeUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, plagerrors.NewInputError("expected a multipart form with a \"files\" field"))
		return
	}
	headers := form.File["files"]
	if len(headers) < 2 {
		writeError(c, plagerrors.NewInputError(
			fmt.Sprintf("at least two files are required, got %d", len(headers))))
		return
	}

	var files []orchestrate.SourceFile
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(c, plagerrors.NewExternalFailure("upload", err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(c, plagerrors.NewExternalFailure("upload", err))
			return
		}
		files = append(files, orchestrate.SourceFile{Path: fh.Filename, Data: data})
	}
	s.runAndCache(c, "upload", files)
}

// handleAnalyzeArchive accepts a multipart form with a single "archive"
// field holding a zip upload.
func (s *Server) handleAnalyzeArchive(c *gin.Context) {
	fh, err := c.FormFile("archive")
	if err != nil {
		writeError(c, plagerrors.NewInputError("expected a multipart form with an \"archive\" field"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, plagerrors.NewExternalFailure("upload", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, plagerrors.NewExternalFailure("upload", err))
		return
	}

	result, err := ingest.FromZip(data, s.cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	s.runAndCache(c, "archive", result.Files)
}

// handleAnalyzeRemote accepts a JSON body naming the GitHub repositories to
// fetch and compare directly, skipping the upload step entirely.
func (s *Server) handleAnalyzeRemote(c *gin.Context) {
	var req remoteAnalyzeRequest
	if err := bindAndValidate(c, remoteRequestSchema, &req); err != nil {
		writeError(c, err)
		return
	}
	if len(req.RepoURLs) < 2 {
		writeError(c, plagerrors.NewInputError("repo_urls must contain at least two repository URLs"))
		return
	}

	fetcher := ingest.NewRepoFetcher()
	var files []orchestrate.SourceFile
	for _, url := range req.RepoURLs {
		result, err := fetcher.FetchRepo(c.Request.Context(), url)
		if err != nil {
			writeError(c, err)
			return
		}
		files = append(files, result.Files...)
	}
	s.runAndCache(c, "remote", files)
}

// handleAnalyzeSheet accepts a published Google Sheet URL, downloads its
// CSV export, and fetches each row's GitHub repository before comparing.
func (s *Server) handleAnalyzeSheet(c *gin.Context) {
	var req sheetAnalyzeRequest
	if err := bindAndValidate(c, sheetRequestSchema, &req); err != nil {
		writeError(c, err)
		return
	}

	csvText, err := ingest.DownloadSheetCSV(c.Request.Context(), req.SheetURL)
	if err != nil {
		writeError(c, err)
		return
	}
	repos, _, err := ingest.ParseRosterCSV(csvText)
	if err != nil {
		writeError(c, err)
		return
	}

	fetcher := ingest.NewRepoFetcher()
	var files []orchestrate.SourceFile
	for _, repo := range repos {
		result, err := fetcher.FetchRepo(c.Request.Context(), repo.SourceURL)
		if err != nil {
			continue
		}
		for _, f := range result.Files {
			f.Path = repo.URN + "/" + f.Path
			files = append(files, f)
		}
	}
	s.runAndCache(c, "sheet", files)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetGraph(c *gin.Context) {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, resp.Similarity.Graph)
}

func (s *Server) handleGetMatrix(c *gin.Context) {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, resp.Similarity.Matrix)
}

func (s *Server) handleGetClusters(c *gin.Context) {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, resp.Similarity.Clusters)
}

// handleGetAST serves the normalised AST for one file in a past analysis;
// the path wildcard preserves slashes in nested file paths.
func (s *Server) handleGetAST(c *gin.Context) {
	id := c.Param("id")
	path := strings.TrimPrefix(c.Param("path"), "/")
	fp, ok := s.store.GetFingerprint(id, path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found in analysis " + id})
		return
	}
	c.JSON(http.StatusOK, fp.Root)
}

// handleAdvancedCompare recomputes the full per-layer breakdown for one
// pair from a past analysis, including the semantic-judge verdict that
// analysis attached to the pair, if any — this is the richer sibling of the
// summary pair entries already in the cached response.
func (s *Server) handleAdvancedCompare(c *gin.Context) {
	id := c.Param("id")
	var req compareRequest
	if err := bindAndValidate(c, compareRequestSchema, &req); err != nil {
		writeError(c, err)
		return
	}

	leftFP, ok := s.store.GetFingerprint(id, req.Left)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "left file not found in analysis " + id})
		return
	}
	rightFP, ok := s.store.GetFingerprint(id, req.Right)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "right file not found in analysis " + id})
		return
	}

	weights := compare.Weights{
		AST:       s.cfg.Weights.AST,
		CFG:       s.cfg.Weights.CFG,
		DFG:       s.cfg.Weights.DFG,
		Threshold: s.cfg.Weights.PlagiarismThresh,
	}
	result := compare.Pair(leftFP, rightFP, weights)
	report := orchestrate.PairReport{PairResult: result}
	if resp, ok := s.store.Get(id); ok {
		for _, p := range resp.Similarity.Pairs {
			if (p.LeftPath == req.Left && p.RightPath == req.Right) ||
				(p.LeftPath == req.Right && p.RightPath == req.Left) {
				report.Verdict = p.Verdict
				break
			}
		}
	}
	c.JSON(http.StatusOK, report)
}

func bindAndValidate(c *gin.Context, schema *jsonschema.Resolved, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return plagerrors.NewInputError("malformed request body: " + err.Error())
	}
	if err := schema.Validate(dest); err != nil {
		return plagerrors.NewInputError("request failed validation: " + err.Error())
	}
	return nil
}
