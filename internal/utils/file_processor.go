package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/toyz/svcplan/internal/errors"
)

// FileProcessor walks source trees
type FileProcessor struct {
	fileReader *FileReader
}

// NewFileProcessor creates a new file processor
func NewFileProcessor() *FileProcessor {
	return NewFileProcessorWithReader(NewFileReader())
}

// NewFileProcessorWithReader creates a file processor with an existing FileReader
func NewFileProcessorWithReader(reader *FileReader) *FileProcessor {
	return &FileProcessor{fileReader: reader}
}

// FileFilter defines a function that determines whether a file should be processed
type FileFilter func(path string, info os.DirEntry) bool

// DirectoryFilter defines a function that determines whether a directory should be processed
type DirectoryFilter func(path string, info os.DirEntry) bool

// FileWalkOptions configures file walking behavior
type FileWalkOptions struct {
	FileFilter      FileFilter
	DirectoryFilter DirectoryFilter
	SkipErrors      bool
}

// GoFileFilter matches non-test .go files
func GoFileFilter() FileFilter {
	return func(path string, info os.DirEntry) bool {
		name := info.Name()
		return !info.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}
}

// GeneratedFileFilter matches .go files whose first line is header
func (fp *FileProcessor) GeneratedFileFilter(header string) FileFilter {
	goFiles := GoFileFilter()
	return func(path string, info os.DirEntry) bool {
		if !goFiles(path, info) {
			return false
		}
		content, err := fp.fileReader.ReadFile(path)
		if err != nil {
			return false
		}
		line, _, _ := bytes.Cut(content, []byte("\n"))
		return string(bytes.TrimRight(line, "\r")) == header
	}
}

// DefaultDirectoryFilter skips common directories that shouldn't contain source code
func DefaultDirectoryFilter() DirectoryFilter {
	skipDirs := map[string]bool{
		"vendor":       true,
		"node_modules": true,
		"testdata":     true,
	}

	return func(path string, info os.DirEntry) bool {
		name := info.Name()
		if strings.HasPrefix(name, ".") && name != "." && name != ".." {
			return false
		}
		return !skipDirs[name]
	}
}

// WalkFiles returns the files under rootDir accepted by options, in lexical order
func (fp *FileProcessor) WalkFiles(rootDir string, options FileWalkOptions) ([]string, error) {
	var matched []string

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if options.SkipErrors {
				return nil
			}
			return errors.WrapFileSystemError("walk", path, err)
		}
		if d.IsDir() {
			if path != rootDir && options.DirectoryFilter != nil && !options.DirectoryFilter(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if options.FileFilter == nil || options.FileFilter(path, d) {
			matched = append(matched, path)
		}
		return nil
	})
	return matched, err
}

// RemoveFiles deletes paths and returns the ones removed
func (fp *FileProcessor) RemoveFiles(paths []string) ([]string, error) {
	var removed []string
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, errors.WrapFileSystemError("remove", path, err)
		}
		fp.fileReader.InvalidateFile(path)
		removed = append(removed, path)
	}
	return removed, nil
}
