package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/cache"
	"github.com/standardbeagle/plagscan/internal/config"
	"github.com/standardbeagle/plagscan/internal/parser"
	"github.com/standardbeagle/plagscan/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer() *Server {
	cfg := &config.Config{
		Weights: config.Weights{
			AST: types.DefaultASTWeight, CFG: types.DefaultCFGWeight, DFG: types.DefaultDFGWeight,
			PlagiarismThresh: types.DefaultPlagiarismThreshold,
			GraphThresh:      types.DefaultGraphThreshold,
			ClusterThresh:    types.DefaultClusterThreshold,
		},
		Server: config.Server{MetricsEnabled: true, ParallelWorkers: 4},
	}
	return New(cfg, parser.NewRegistry(), cache.New(), nil)
}

func multipartUpload(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHandleHealth_ReportsCacheSize(t *testing.T) {
	s := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["cached_analyses"])
}

func TestHandleAnalyzeUpload_ScoresAndCaches(t *testing.T) {
	s := testServer()
	router := s.Router()

	body, contentType := multipartUpload(t, "files", map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def f(x):\n    return x + 1\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	analysisID, ok := resp["analysis_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, analysisID)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+analysisID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestHandleAnalyzeUpload_RejectsFewerThanTwoFiles(t *testing.T) {
	s := testServer()
	router := s.Router()

	body, contentType := multipartUpload(t, "files", map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandleGetAnalysis_UnknownIDIsNotFound(t *testing.T) {
	s := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAnalyzeRemote_RejectsMalformedBody(t *testing.T) {
	s := testServer()
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze/remote", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandleAdvancedCompare_UnknownFileIsNotFound(t *testing.T) {
	s := testServer()
	router := s.Router()

	body, contentType := multipartUpload(t, "files", map[string]string{
		"a.py": "def f(x):\n    return x + 1\n",
		"b.py": "def f(x):\n    return x + 1\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	analysisID := resp["analysis_id"].(string)

	compareBody, _ := json.Marshal(map[string]string{"left": "missing.py", "right": "also-missing.py"})
	cmpReq := httptest.NewRequest(http.MethodPost, "/v1/analyses/"+analysisID+"/compare", bytes.NewReader(compareBody))
	cmpReq.Header.Set("Content-Type", "application/json")
	cmpRec := httptest.NewRecorder()
	router.ServeHTTP(cmpRec, cmpReq)

	assert.Equal(t, http.StatusNotFound, cmpRec.Code)
}
