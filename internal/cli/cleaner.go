package cli

import (
	"os"
	"strings"

	"github.com/toyz/svcplan/internal/emit"
	"github.com/toyz/svcplan/internal/utils"
)

// Cleaner removes files written by emit
type Cleaner struct {
	files *utils.FileProcessor
}

// NewCleaner creates a new cleaner
func NewCleaner() *Cleaner {
	return &Cleaner{files: utils.NewFileProcessor()}
}

// Find returns the generated files in directories. A directory ending in
// /... is searched recursively; vendor, testdata and hidden directories are
// skipped.
func (c *Cleaner) Find(directories []string) ([]string, error) {
	generated := c.files.GeneratedFileFilter(emit.GeneratedHeader)
	var found []string
	for _, dir := range directories {
		opts := utils.FileWalkOptions{FileFilter: generated, DirectoryFilter: utils.DefaultDirectoryFilter()}
		if base, ok := strings.CutSuffix(dir, "/..."); ok {
			dir = base
			if dir == "" {
				dir = "."
			}
		} else {
			opts.DirectoryFilter = func(string, os.DirEntry) bool { return false }
		}
		files, err := c.files.WalkFiles(dir, opts)
		if err != nil {
			return nil, err
		}
		found = append(found, files...)
	}
	return found, nil
}

// CleanGeneratedFiles removes the generated files in directories and
// returns their paths
func (c *Cleaner) CleanGeneratedFiles(directories []string) ([]string, error) {
	files, err := c.Find(directories)
	if err != nil {
		return nil, err
	}
	return c.files.RemoveFiles(files)
}
