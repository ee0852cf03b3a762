package utils

import (
	"os"
	"path/filepath"

	"github.com/toyz/svcplan/internal/errors"
)

// FileReader reads files, caching their contents until they change on disk
type FileReader struct {
	contentCache *Cache[string, []byte]
}

// NewFileReader creates a new FileReader instance with caching
func NewFileReader() *FileReader {
	return &FileReader{
		contentCache: NewCache[string, []byte](),
	}
}

// ReadFile returns the contents of filePath, from cache when the file is unchanged
func (fr *FileReader) ReadFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, errors.NewValidationError("filePath", "a file path", "empty string")
	}
	cleanPath := filepath.Clean(filePath)

	if cached, exists := fr.contentCache.GetWithFileValidation(cleanPath, cleanPath); exists {
		return cached, nil
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.WrapFileSystemError("read", cleanPath, err)
	}

	// A file removed between read and stat is simply not cached
	_ = fr.contentCache.SetWithFileInfo(cleanPath, content, cleanPath)
	return content, nil
}

// Exists reports whether filePath names a regular file
func (fr *FileReader) Exists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && info.Mode().IsRegular()
}

// InvalidateFile removes a specific file from the cache
func (fr *FileReader) InvalidateFile(filePath string) {
	fr.contentCache.Delete(filepath.Clean(filePath))
}

// ClearCache clears all cached files
func (fr *FileReader) ClearCache() {
	fr.contentCache.Clear()
}

// GetCacheStats returns statistics about the content cache
func (fr *FileReader) GetCacheStats() CacheStats {
	return fr.contentCache.GetStats()
}
