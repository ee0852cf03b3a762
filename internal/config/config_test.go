package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/resolver"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{SearchDirs: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, resolver.DefaultOptions(), cfg.ResolverOptions())
}

func TestLoadFromSearchDir(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "svcplan.yaml", "conventions: false\nparallelism: 2\noutput:\n  format: JSON\n")

	cfg, err := Load(context.Background(), LoadOptions{SearchDirs: []string{dir}})
	require.NoError(t, err)

	assert.False(t, cfg.Conventions)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadExplicitTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.toml", "design_time_build = true\n\n[output]\nformat = \"toml\"\n")

	cfg, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	require.NoError(t, err)

	assert.True(t, cfg.DesignTimeBuild)
	assert.Equal(t, FormatTOML, cfg.Output.Format)
	assert.True(t, cfg.ResolverOptions().DesignTimeBuild)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "svcplan.yaml", "parallelism: 2\noutput:\n  format: yaml\n")
	t.Setenv("SVCPLAN_PARALLELISM", "3")
	t.Setenv("SVCPLAN_OUTPUT_VERBOSE", "true")

	cfg, err := Load(context.Background(), LoadOptions{
		SearchDirs: []string{dir},
		Overrides:  map[string]any{"output.format": "text"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Parallelism)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, FormatText, cfg.Output.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		path     string
		wantCode errors.ErrorCode
	}{
		{
			name:     "unknown format",
			content:  "output:\n  format: xml\n",
			wantCode: errors.ValidationErrorCode,
		},
		{
			name:     "negative parallelism",
			content:  "parallelism: -1\n",
			wantCode: errors.ValidationErrorCode,
		},
		{
			name:     "verbose and quiet",
			content:  "output:\n  verbose: true\n  quiet: true\n",
			wantCode: errors.ValidationErrorCode,
		},
		{
			name:     "malformed file",
			content:  "output: [\n",
			wantCode: errors.ConfigurationErrorCode,
		},
		{
			name:     "missing explicit file",
			path:     "missing.yaml",
			wantCode: errors.FileSystemErrorCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "svcplan.yaml")
			if tt.path != "" {
				path = filepath.Join(dir, tt.path)
			} else {
				writeFile(t, dir, "svcplan.yaml", tt.content)
			}

			_, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err), err.Error())
		})
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
