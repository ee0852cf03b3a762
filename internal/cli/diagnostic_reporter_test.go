package cli

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
)

func TestDiagnosticReporter_ReportWarning(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(&buf, false)

	reporter.ReportWarning("This is a test warning")
	reporter.ReportWarning("This is another warning")

	output := buf.String()
	if !strings.Contains(output, "! This is a test warning\n") {
		t.Errorf("Expected warning message not found in output: %q", output)
	}
	if !strings.Contains(output, "! This is another warning\n") {
		t.Errorf("Expected second warning message not found in output: %q", output)
	}
}

func TestDiagnosticReporter_ReportDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(&buf, true)

	loc := errors.SourceLocation{File: "Repo.cs", Line: 3}
	ds := diagnostic.Diagnostics{
		diagnostic.AmbiguousLifetime.New(loc, "Acme.Repo", "Scoped, Singleton").
			WithSubject("Acme.Repo").
			WithSecondary(errors.SourceLocation{File: "rules.yaml", Line: 2}),
		diagnostic.ServiceTypeNotKeyType.New(errors.SourceLocation{}),
	}
	reporter.ReportDiagnostics(ds)

	output := buf.String()
	expected := []string{
		"! Repo.cs:3: DDI004 More than one registration matches Acme.Repo with lifetimes Scoped, Singleton.\n",
		"    also at rules.yaml:2\n",
		"    subject: Acme.Repo\n",
		"x DDI005 Generic parameter must not be",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestDiagnosticReporter_ReportPlanError(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(&buf, false)

	err := errors.NewModelError("Acme.Repo", "Acme.Missing", "unknown type").
		WithLocation(errors.SourceLocation{File: "snapshot.yaml", Line: 12}).
		WithSuggestion("declare Acme.Missing in the snapshot")
	reporter.ReportError(err)

	output := buf.String()
	expected := []string{
		"ERROR: Resolution Failed",
		"Type: Program Model Error",
		"Location: snapshot.yaml:12",
		"Suggestions:",
		"1. declare Acme.Missing in the snapshot",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestDiagnosticReporter_ReportMultipleErrors(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(&buf, false)

	multi := errors.NewMultipleErrors()
	multi.Add(errors.NewSyntaxError("bad annotation"))
	multi.Add(errors.NewValidationError("lifetime", "Scoped, Singleton or Transient", "nothing"))
	reporter.ReportError(multi)

	output := buf.String()
	for _, want := range []string{"1 of 2", "Type: Syntax Error", "2 of 2", "Type: Validation Error"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestDiagnosticReporter_VerboseErrorChain(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(&buf, true)

	cause := stderrors.New("permission denied")
	reporter.ReportError(errors.WrapFileSystemError("read", "snapshot.yaml", cause))

	output := buf.String()
	for _, want := range []string{"Type: File System Error", "Context:", "   Operation: read", "Error Chain:", "1. permission denied"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestDiagnosticReporter_BasicError(t *testing.T) {
	var buf bytes.Buffer
	NewDiagnosticReporter(&buf, false).ReportError(stderrors.New("plain failure"))

	if !strings.Contains(buf.String(), "Message: plain failure") {
		t.Errorf("Expected basic error message, got:\n%s", buf.String())
	}
}

func TestFormatContextKey(t *testing.T) {
	tests := map[string]string{
		"config_type": "Config Type",
		"path":        "Path",
		"":            "",
	}
	for in, want := range tests {
		if got := formatContextKey(in); got != want {
			t.Errorf("formatContextKey(%q) = %q, want %q", in, got, want)
		}
	}
}
