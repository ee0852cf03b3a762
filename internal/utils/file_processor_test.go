package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedHeader = "// Code generated by svcplan. DO NOT EDIT."

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestFileProcessor_WalkFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.go":                     "package main\n",
		"main_test.go":                "package main\n",
		"README.md":                   "# shop\n",
		"services/services_gen.go":    generatedHeader + "\n\npackage services\n",
		"services/handwritten.go":     "package services\n",
		"services/crlf_gen.go":        generatedHeader + "\r\n\r\npackage services\r\n",
		"vendor/dep/dep_gen.go":       generatedHeader + "\n",
		"testdata/fixture_gen.go":     generatedHeader + "\n",
		".cache/hidden_gen.go":        generatedHeader + "\n",
		"other/mentions_header.go":    "package other\n\n" + generatedHeader + "\n",
		"other/generated_test_gen.go": generatedHeader + "\n",
	})
	fp := NewFileProcessor()

	tests := []struct {
		name     string
		options  FileWalkOptions
		expected []string
	}{
		{
			name:     "go files",
			options:  FileWalkOptions{FileFilter: GoFileFilter(), DirectoryFilter: DefaultDirectoryFilter()},
			expected: []string{"main.go", "other/generated_test_gen.go", "other/mentions_header.go", "services/crlf_gen.go", "services/handwritten.go", "services/services_gen.go"},
		},
		{
			name:     "generated files",
			options:  FileWalkOptions{FileFilter: fp.GeneratedFileFilter(generatedHeader), DirectoryFilter: DefaultDirectoryFilter()},
			expected: []string{"other/generated_test_gen.go", "services/crlf_gen.go", "services/services_gen.go"},
		},
		{
			name:     "no directory filter",
			options:  FileWalkOptions{FileFilter: fp.GeneratedFileFilter(generatedHeader)},
			expected: []string{".cache/hidden_gen.go", "other/generated_test_gen.go", "services/crlf_gen.go", "services/services_gen.go", "testdata/fixture_gen.go", "vendor/dep/dep_gen.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := fp.WalkFiles(dir, tt.options)
			require.NoError(t, err)

			var rel []string
			for _, f := range files {
				r, err := filepath.Rel(dir, f)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.expected, rel)
		})
	}
}

func TestFileProcessor_WalkMissingRoot(t *testing.T) {
	fp := NewFileProcessor()
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := fp.WalkFiles(missing, FileWalkOptions{})
	assert.Error(t, err)

	files, err := fp.WalkFiles(missing, FileWalkOptions{SkipErrors: true})
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileProcessor_RemoveFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{"a_gen.go": generatedHeader + "\n"})
	fp := NewFileProcessor()
	path := filepath.Join(dir, "a_gen.go")

	removed, err := fp.RemoveFiles([]string{path, filepath.Join(dir, "gone.go")})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, removed)
	assert.NoFileExists(t, path)
}
