package utils

import (
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/toyz/svcplan/internal/errors"
)

// GoModule describes the module a directory belongs to
type GoModule struct {
	Path      string // module path from the module directive
	Dir       string // directory holding go.mod
	GoVersion string // go directive, empty when absent
}

// GoModParser provides utilities for parsing go.mod files
type GoModParser struct {
	fileReader *FileReader
}

// NewGoModParser creates a new go.mod parser with caching
func NewGoModParser(fileReader *FileReader) *GoModParser {
	return &GoModParser{
		fileReader: fileReader,
	}
}

// Parse reads the go.mod file at goModPath
func (p *GoModParser) Parse(goModPath string) (*GoModule, error) {
	cleanPath := filepath.Clean(goModPath)
	if filepath.Base(cleanPath) != "go.mod" {
		return nil, errors.NewValidationError("goModPath", "a go.mod file", goModPath)
	}

	content, err := p.fileReader.ReadFile(cleanPath)
	if err != nil {
		return nil, err
	}

	modFile, err := modfile.Parse(cleanPath, content, nil)
	if err != nil {
		return nil, errors.WrapParseError(cleanPath, err)
	}
	if modFile.Module == nil {
		return nil, errors.NewSyntaxError("no module declaration found in go.mod").
			WithLocation(errors.SourceLocation{File: cleanPath})
	}

	mod := &GoModule{
		Path: modFile.Module.Mod.Path,
		Dir:  filepath.Dir(cleanPath),
	}
	if modFile.Go != nil {
		mod.GoVersion = modFile.Go.Version
	}
	return mod, nil
}

// ParseModuleName extracts the module name from a go.mod file
func (p *GoModParser) ParseModuleName(goModPath string) (string, error) {
	mod, err := p.Parse(goModPath)
	if err != nil {
		return "", err
	}
	return mod.Path, nil
}

// FindGoModFile searches for go.mod file starting from the given directory and walking up
func (p *GoModParser) FindGoModFile(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", startDir, err)
	}
	currentDir := abs

	for {
		goModPath := filepath.Join(currentDir, "go.mod")
		if p.fileReader.Exists(goModPath) {
			return goModPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", errors.New(errors.FileSystemErrorCode, "go.mod file not found").
		WithContext("start", abs).
		WithSuggestion("run inside a Go module or pass --dir")
}

// FindModule locates and parses the module enclosing startDir
func (p *GoModParser) FindModule(startDir string) (*GoModule, error) {
	path, err := p.FindGoModFile(startDir)
	if err != nil {
		return nil, err
	}
	return p.Parse(path)
}

// ImportPath returns the import path of the package in dir, which must be
// an absolute directory inside the module
func (m *GoModule) ImportPath(dir string) (string, bool) {
	rel, err := filepath.Rel(m.Dir, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return m.Path, true
	}
	return m.Path + "/" + filepath.ToSlash(rel), true
}
