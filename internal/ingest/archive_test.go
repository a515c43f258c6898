package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Ingest: config.Ingest{
			MaxFileSize:  1 << 20,
			MaxFileCount: 100,
		},
	}
}

func TestMatcher_Allows(t *testing.T) {
	cfg := testConfig()
	cfg.Include = []string{"**/*.py"}
	cfg.Exclude = []string{"**/venv/**"}
	m := NewMatcher(cfg)

	assert.True(t, m.Allows("submissions/alice/main.py"))
	assert.False(t, m.Allows("submissions/alice/venv/lib/thing.py"))
	assert.False(t, m.Allows("submissions/alice/README.md"))
}

func TestMatcher_EmptyIncludeMatchesEverythingNotExcluded(t *testing.T) {
	cfg := testConfig()
	cfg.Exclude = []string{"**/node_modules/**"}
	m := NewMatcher(cfg)

	assert.True(t, m.Allows("src/main.js"))
	assert.False(t, m.Allows("node_modules/pkg/index.js"))
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromZip_KeepsRecognisedFilesOnly(t *testing.T) {
	data := buildZip(t, map[string]string{
		"solution.py": "def f(x):\n    return x + 1\n",
		"notes.txt":   "not code",
	})

	result, err := FromZip(data, testConfig())
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "solution.py", result.Files[0].Path)
}

func TestFromZip_RejectsOversizedEntries(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 100)
	data := buildZip(t, map[string]string{"big.py": string(big)})

	cfg := testConfig()
	cfg.Ingest.MaxFileSize = 10
	result, err := FromZip(data, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "exceeds max file size")
}

func TestFromZip_RejectsNonUTF8(t *testing.T) {
	data := buildZip(t, map[string]string{"bad.py": string([]byte{0xff, 0xfe, 0x00})})

	result, err := FromZip(data, testConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	require.Len(t, result.Errors, 1)
}

func TestFromDirectory_WalksRecursively(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alice"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "main.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("readme"), 0o644))

	result, err := FromDirectory(root, testConfig())
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "alice/main.py", result.Files[0].Path)
}

func TestFromDirectory_StopsAtMaxFileCount(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(root, string(rune('a'+i))+".py")
		require.NoError(t, os.WriteFile(name, []byte("x = 1\n"), 0o644))
	}

	cfg := testConfig()
	cfg.Ingest.MaxFileCount = 2
	result, err := FromDirectory(root, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Files), 2)
}
