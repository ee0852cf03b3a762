package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/config"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/report"
	"github.com/toyz/svcplan/internal/utils"
)

var repositorySnapshot = filepath.Join("..", "loader", "testdata", "repository.yaml")

func implementations(doc *report.Document, lifetime string, keyed bool) []string {
	var names []string
	for _, b := range doc.Buckets {
		if b.Lifetime != lifetime || b.Keyed != keyed {
			continue
		}
		for _, s := range b.Services {
			names = append(names, s.Implementation)
		}
	}
	return names
}

func quietDiagnostics(out *bytes.Buffer) *utils.DiagnosticSystem {
	return utils.NewDiagnosticSystem(utils.DiagnosticInfo).WithWriters(out, out)
}

func TestRunner_Snapshot(t *testing.T) {
	var progress bytes.Buffer
	runner := NewRunner(config.DefaultConfig(), quietDiagnostics(&progress))

	out, err := runner.Run(context.Background(), Request{Snapshot: repositorySnapshot})
	require.NoError(t, err)

	assert.Equal(t, repositorySnapshot, out.Source)
	require.Len(t, out.Rules, 1)
	require.Len(t, out.Document.Buckets, 6)
	assert.Contains(t, implementations(out.Document, "Scoped", false), "Acme.Data.MyRepository")
	assert.Contains(t, implementations(out.Document, "Singleton", false), "Acme.Data.Cache")
	assert.Contains(t, implementations(out.Document, "Transient", true), "Acme.Data.Cache")
	assert.Equal(t, 1, out.Result.Stats.Conventions)

	assert.Contains(t, progress.String(), "Loading snapshot:")
	assert.Contains(t, progress.String(), "Resolving:")
	assert.Contains(t, progress.String(), "Registrations:")
}

func TestRunner_ExtraRules(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("rules:\n  - pattern: 'Widget$'\n    lifetime: Transient\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Rules = rulesPath
	out, err := NewRunner(cfg, nil).Run(context.Background(), Request{Snapshot: repositorySnapshot})
	require.NoError(t, err)

	require.Len(t, out.Rules, 2)
	assert.Equal(t, rulesPath, out.Rules[1].Location.File)
	assert.Contains(t, implementations(out.Document, "Transient", false), "legacy::Lib.Widget")
	assert.Equal(t, 2, out.Result.Stats.Conventions)
}

func TestRunner_ConventionsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Conventions = false

	out, err := NewRunner(cfg, nil).Run(context.Background(), Request{Snapshot: repositorySnapshot})
	require.NoError(t, err)

	assert.Empty(t, implementations(out.Document, "Scoped", false))
	assert.Equal(t, 0, out.Result.Stats.Conventions)
	assert.Contains(t, implementations(out.Document, "Singleton", false), "Acme.Data.Cache")
}

func TestRunner_DesignTimeBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DesignTimeBuild = true

	out, err := NewRunner(cfg, nil).Run(context.Background(), Request{Snapshot: repositorySnapshot})
	require.NoError(t, err)
	for _, b := range out.Document.Buckets {
		assert.Empty(t, b.Services, b.Lifetime)
	}
	assert.Empty(t, out.Document.Diagnostics)
}

func TestRunner_Scan(t *testing.T) {
	if testing.Short() {
		t.Skip("scanning loads packages with the go command")
	}
	out, err := NewRunner(config.DefaultConfig(), nil).Run(context.Background(), Request{
		Dir: filepath.Join("..", "goscan", "testdata", "shop"),
	})
	require.NoError(t, err)

	assert.Contains(t, implementations(out.Document, "Scoped", false), "store.SQLRepository")
	assert.Contains(t, implementations(out.Document, "Singleton", true), "web.Cache")
}

func TestRunner_Errors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		req  Request
		code errors.ErrorCode
	}{
		{
			name: "missing snapshot",
			ctx:  context.Background(),
			req:  Request{Snapshot: filepath.Join("testdata", "missing.yaml")},
			code: errors.FileSystemErrorCode,
		},
		{
			name: "missing rules file",
			ctx:  context.Background(),
			req:  Request{Snapshot: repositorySnapshot, Rules: filepath.Join("testdata", "missing-rules.yaml")},
			code: errors.FileSystemErrorCode,
		},
		{
			name: "cancelled",
			ctx:  cancelled,
			req:  Request{Snapshot: repositorySnapshot},
			code: errors.CancelledErrorCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRunner(nil, nil).Run(tt.ctx, tt.req)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}
