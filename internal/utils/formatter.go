package utils

import (
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/toyz/svcplan/internal/errors"
)

// FormatGoCode formats Go source code using the same logic as gofmt.
// Unparseable source is reported with the parser's position.
func FormatGoCode(source []byte) ([]byte, error) {
	formatted, err := format.Source(source)
	if err == nil {
		return formatted, nil
	}
	if parseErr := ValidateGoCode(source); parseErr != nil {
		return nil, errors.WrapParseError("generated Go source", parseErr)
	}
	return nil, errors.WrapParseError("generated Go source", err)
}

// ValidateGoCode checks if the provided code is valid Go syntax
func ValidateGoCode(source []byte) error {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "", source, parser.ParseComments)
	return err
}

// WriteGoFile writes generated source to path, creating its directory
func WriteGoFile(path string, source []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapFileSystemError("create directory for", path, err)
		}
	}
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return errors.WrapFileSystemError("write", path, err)
	}
	return nil
}
