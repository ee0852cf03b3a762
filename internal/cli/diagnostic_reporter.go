package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
)

// DiagnosticReporter provides user-friendly error and diagnostic reporting
type DiagnosticReporter struct {
	out     io.Writer
	verbose bool
	colors  bool
}

// NewDiagnosticReporter creates a new diagnostic reporter writing to out
func NewDiagnosticReporter(out io.Writer, verbose bool) *DiagnosticReporter {
	return &DiagnosticReporter{out: out, verbose: verbose}
}

// WithColors enables colored markers
func (r *DiagnosticReporter) WithColors(enabled bool) *DiagnosticReporter {
	r.colors = enabled
	return r
}

func (r *DiagnosticReporter) marker(attrs []color.Attribute, text string) string {
	c := color.New(attrs...)
	if !r.colors {
		c.DisableColor()
	}
	return c.Sprint(text)
}

// ReportWarning prints a single warning line
func (r *DiagnosticReporter) ReportWarning(message string) {
	fmt.Fprintf(r.out, "%s%s\n", r.marker([]color.Attribute{color.FgYellow, color.Bold}, "! "), message)
}

// ReportDiagnostics prints resolver diagnostics in order, one per line
func (r *DiagnosticReporter) ReportDiagnostics(ds diagnostic.Diagnostics) {
	for _, d := range ds {
		mark := r.marker([]color.Attribute{color.FgYellow, color.Bold}, "! ")
		if d.Severity == diagnostic.SeverityError {
			mark = r.marker([]color.Attribute{color.FgRed, color.Bold}, "x ")
		}
		line := fmt.Sprintf("%s %s", d.Code, d.Message)
		if !d.Location.IsEmpty() {
			line = d.Location.String() + ": " + line
		}
		fmt.Fprintf(r.out, "%s%s\n", mark, line)
		for _, loc := range d.Secondary {
			fmt.Fprintf(r.out, "    also at %s\n", loc)
		}
		if r.verbose && d.Subject != "" {
			fmt.Fprintf(r.out, "    subject: %s\n", d.Subject)
		}
	}
}

// ReportError provides comprehensive error reporting with user-friendly output
func (r *DiagnosticReporter) ReportError(err error) {
	fmt.Fprintf(r.out, "\nERROR: Resolution Failed\n")
	fmt.Fprintf(r.out, "========================\n\n")

	var multi *errors.MultipleErrors
	if errors.As(err, &multi) && multi.Count() > 1 {
		for i, e := range multi.Errors {
			fmt.Fprintf(r.out, "%d of %d\n", i+1, multi.Count())
			r.reportPlanError(e)
		}
		return
	}

	var pe errors.PlanError
	if errors.As(err, &pe) {
		r.reportPlanError(pe)
		return
	}
	fmt.Fprintf(r.out, "Message: %s\n\n", err.Error())
}

func (r *DiagnosticReporter) reportPlanError(pe errors.PlanError) {
	r.printErrorHeader(pe.ErrorCode())
	fmt.Fprintf(r.out, "Message: %s\n\n", pe.Error())

	if loc := pe.Location(); !loc.IsEmpty() {
		fmt.Fprintf(r.out, "Location: %s\n\n", loc)
	}
	if ctx := pe.Context(); len(ctx) > 0 {
		r.printContext(ctx)
	}
	if s := pe.Suggestions(); len(s) > 0 {
		r.printSuggestions(s)
	}
	if r.verbose {
		r.printErrorChain(pe)
	}
}

// printErrorHeader prints a formatted error header based on error code
func (r *DiagnosticReporter) printErrorHeader(code errors.ErrorCode) {
	var errorTypeStr string

	switch code {
	case errors.SyntaxErrorCode:
		errorTypeStr = "Syntax Error"
	case errors.ValidationErrorCode:
		errorTypeStr = "Validation Error"
	case errors.ModelErrorCode:
		errorTypeStr = "Program Model Error"
	case errors.FileSystemErrorCode:
		errorTypeStr = "File System Error"
	case errors.ConfigurationErrorCode:
		errorTypeStr = "Configuration Error"
	case errors.CancelledErrorCode:
		errorTypeStr = "Cancelled"
	default:
		errorTypeStr = "Unknown Error"
	}

	fmt.Fprintf(r.out, "Type: %s\n", errorTypeStr)
	fmt.Fprintf(r.out, "%s\n\n", strings.Repeat("-", len(errorTypeStr)+6))
}

// printContext prints context information, keys sorted
func (r *DiagnosticReporter) printContext(context map[string]interface{}) {
	fmt.Fprintf(r.out, "Context:\n")

	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(r.out, "   %s: %v\n", formatContextKey(key), context[key])
	}

	fmt.Fprintf(r.out, "\n")
}

// formatContextKey converts snake_case keys to Title Case
func formatContextKey(key string) string {
	parts := strings.Split(key, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}

// printSuggestions prints actionable suggestions
func (r *DiagnosticReporter) printSuggestions(suggestions []string) {
	fmt.Fprintf(r.out, "Suggestions:\n")

	for i, suggestion := range suggestions {
		lines := strings.Split(suggestion, "\n")
		fmt.Fprintf(r.out, "   %d. %s\n", i+1, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(r.out, "      %s\n", line)
			}
		}
	}

	fmt.Fprintf(r.out, "\n")
}

// printErrorChain prints the wrapped causes in verbose mode
func (r *DiagnosticReporter) printErrorChain(err error) {
	cause := errors.Unwrap(err)
	if cause == nil {
		return
	}
	fmt.Fprintf(r.out, "Error Chain:\n")
	for level := 1; cause != nil; level++ {
		fmt.Fprintf(r.out, "    %d. %s\n", level, cause.Error())
		cause = errors.Unwrap(cause)
	}
	fmt.Fprintf(r.out, "\n")
}
