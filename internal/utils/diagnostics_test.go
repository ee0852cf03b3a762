package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosticSystemLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    DiagnosticLevel
		wantOut  []string
		wantErr  []string
		notInOut []string
	}{
		{
			name:     "quiet shows only errors",
			level:    DiagnosticError,
			wantErr:  []string{"[ERROR] broken"},
			notInOut: []string{"[WARN]", "[INFO]", "summary"},
		},
		{
			name:     "info hides verbose",
			level:    DiagnosticInfo,
			wantOut:  []string{"[WARN] careful", "[INFO] hello", "stage:", "✓ indexed 3", "   types: 3"},
			wantErr:  []string{"[ERROR] broken"},
			notInOut: []string{"[VERBOSE]", "[DEBUG]"},
		},
		{
			name:    "debug shows everything",
			level:   DiagnosticDebug,
			wantOut: []string{"[VERBOSE] detail", "[DEBUG] trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			d := NewDiagnosticSystem(tt.level).WithWriters(&out, &errOut)

			d.Error("broken")
			d.Warn("careful")
			d.Info("hello")
			d.Verbose("detail")
			d.Debug("trace")
			d.PhaseHeader("stage")
			d.PhaseItem("indexed %d", 3)
			d.Summary("summary", map[string]interface{}{"types": 3})

			for _, w := range tt.wantOut {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.wantErr {
				assert.Contains(t, errOut.String(), w)
			}
			for _, w := range tt.notInOut {
				assert.NotContains(t, out.String(), w)
			}
		})
	}
}

func TestDiagnosticSystemIndentAndSortedSummary(t *testing.T) {
	var out bytes.Buffer
	d := NewDiagnosticSystem(DiagnosticInfo).WithWriters(&out, &out)

	d.Indent()
	d.List("nested")
	d.Unindent()
	d.Unindent()
	d.List("top")
	d.Summary("Done", map[string]interface{}{"zeta": 1, "alpha": 2})

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "  - nested", lines[0])
	assert.Equal(t, "- top", lines[1])
	assert.Less(t, strings.Index(out.String(), "alpha"), strings.Index(out.String(), "zeta"))
}
