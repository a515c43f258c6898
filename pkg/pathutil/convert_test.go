package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "simple relative path",
			absPath:  "/home/user/project/src/main.py",
			rootDir:  "/home/user/project",
			expected: "src/main.py",
		},
		{
			name:     "nested relative path",
			absPath:  "/home/user/project/submissions/alice/solve.py",
			rootDir:  "/home/user/project",
			expected: "submissions/alice/solve.py",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/project/README.md",
			rootDir:  "/home/user/project",
			expected: "README.md",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/project",
			rootDir:  "/home/user/project",
			expected: ".",
		},
		{
			name:     "already relative path",
			absPath:  "src/main.py",
			rootDir:  "/home/user/project",
			expected: "src/main.py",
		},
		{
			name:     "path outside root falls back to absolute",
			absPath:  "/other/location/file.py",
			rootDir:  "/home/user/project",
			expected: "/other/location/file.py",
		},
		{
			name:     "empty root directory",
			absPath:  "/home/user/project/file.py",
			rootDir:  "",
			expected: "/home/user/project/file.py",
		},
		{
			name:     "empty absolute path",
			absPath:  "",
			rootDir:  "/home/user/project",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)
			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected := filepath.ToSlash(tt.expected)
				if result != expected {
					t.Errorf("ToRelative() = %v, want %v", result, expected)
				}
				return
			}
			if result != tt.expected {
				t.Errorf("ToRelative() = %v, want %v", result, tt.expected)
			}
		})
	}
}
