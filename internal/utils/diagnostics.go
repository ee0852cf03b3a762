package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// DiagnosticLevel represents the level of diagnostic output
type DiagnosticLevel int

const (
	DiagnosticSilent DiagnosticLevel = iota
	DiagnosticError
	DiagnosticWarn
	DiagnosticInfo
	DiagnosticVerbose
	DiagnosticDebug
)

// DiagnosticSystem provides levelled console output for the command line
type DiagnosticSystem struct {
	level     DiagnosticLevel
	useColors bool
	showTime  bool
	output    io.Writer
	errorOut  io.Writer
	indent    int
}

// NewDiagnosticSystem creates a new diagnostic system writing to stdout and stderr
func NewDiagnosticSystem(level DiagnosticLevel) *DiagnosticSystem {
	return &DiagnosticSystem{
		level:     level,
		useColors: shouldUseColors(),
		showTime:  level >= DiagnosticVerbose,
		output:    os.Stdout,
		errorOut:  os.Stderr,
	}
}

// NewQuietDiagnostics creates a diagnostic system that only shows errors
func NewQuietDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticError)
}

// NewVerboseDiagnostics creates a diagnostic system with full output
func NewVerboseDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticVerbose)
}

// WithWriters redirects output, disabling colors and timestamps
func (d *DiagnosticSystem) WithWriters(out, errOut io.Writer) *DiagnosticSystem {
	d.output = out
	d.errorOut = errOut
	d.useColors = false
	d.showTime = false
	return d
}

// Level returns the configured level
func (d *DiagnosticSystem) Level() DiagnosticLevel {
	return d.level
}

// UseColors reports whether output is colored
func (d *DiagnosticSystem) UseColors() bool {
	return d.useColors
}

// Output returns the writer for regular output
func (d *DiagnosticSystem) Output() io.Writer {
	return d.output
}

// Color constants for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorGray    = "\033[90m"
)

// Error outputs error messages (always shown unless silent)
func (d *DiagnosticSystem) Error(format string, args ...interface{}) {
	if d.level >= DiagnosticError {
		d.writeMessage(d.errorOut, "ERROR", ColorRed, format, args...)
	}
}

// Warn outputs warning messages
func (d *DiagnosticSystem) Warn(format string, args ...interface{}) {
	if d.level >= DiagnosticWarn {
		d.writeMessage(d.output, "WARN", ColorYellow, format, args...)
	}
}

// Info outputs informational messages
func (d *DiagnosticSystem) Info(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "INFO", ColorBlue, format, args...)
	}
}

// Success outputs success messages with emphasis
func (d *DiagnosticSystem) Success(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "SUCCESS", ColorGreen, format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *DiagnosticSystem) Verbose(format string, args ...interface{}) {
	if d.level >= DiagnosticVerbose {
		d.writeMessage(d.output, "VERBOSE", ColorGray, format, args...)
	}
}

// Debug outputs debug messages (highest verbosity)
func (d *DiagnosticSystem) Debug(format string, args ...interface{}) {
	if d.level >= DiagnosticDebug {
		d.writeMessage(d.output, "DEBUG", ColorMagenta, format, args...)
	}
}

// Section creates a prominent section header
func (d *DiagnosticSystem) Section(title string) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "%s\n", title)
	}
}

// List outputs a bulleted list item
func (d *DiagnosticSystem) List(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "%s- %s\n", d.getIndent(), fmt.Sprintf(format, args...))
	}
}

// Indent increases the indentation level
func (d *DiagnosticSystem) Indent() {
	d.indent++
}

// Unindent decreases the indentation level
func (d *DiagnosticSystem) Unindent() {
	if d.indent > 0 {
		d.indent--
	}
}

// Summary outputs a final summary with statistics, keys sorted
func (d *DiagnosticSystem) Summary(title string, stats map[string]interface{}) {
	if d.level < DiagnosticInfo {
		return
	}
	fmt.Fprintf(d.output, "\n%s\n", title)
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", key, stats[key])
	}
	fmt.Fprintln(d.output)
}

// Header outputs the tool header
func (d *DiagnosticSystem) Header(message string) {
	if d.level >= DiagnosticInfo {
		d.colored(color.FgCyan, "svcplan: %s\n", message)
	}
}

// PhaseHeader outputs a pipeline stage header
func (d *DiagnosticSystem) PhaseHeader(phase string) {
	if d.level >= DiagnosticInfo {
		d.colored(color.FgBlue, "%s:\n", phase)
	}
}

// PhaseItem outputs a completed stage item with a checkmark
func (d *DiagnosticSystem) PhaseItem(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.colored(color.FgGreen, "✓ ")
		fmt.Fprintf(d.output, "%s\n", fmt.Sprintf(format, args...))
	}
}

func (d *DiagnosticSystem) colored(attr color.Attribute, format string, args ...interface{}) {
	if !d.useColors {
		fmt.Fprintf(d.output, format, args...)
		return
	}
	color.New(attr).Fprintf(d.output, format, args...)
}

// writeMessage is the internal message writing function
func (d *DiagnosticSystem) writeMessage(writer io.Writer, level, color, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	var output strings.Builder
	output.WriteString(d.getIndent())

	if d.showTime {
		output.WriteString(time.Now().Format("15:04:05 "))
	}

	if d.useColors {
		output.WriteString(fmt.Sprintf("%s[%s]%s ", color, level, ColorReset))
	} else {
		output.WriteString(fmt.Sprintf("[%s] ", level))
	}

	output.WriteString(message)
	output.WriteString("\n")

	fmt.Fprint(writer, output.String())
}

func (d *DiagnosticSystem) getIndent() string {
	return strings.Repeat("  ", d.indent)
}

// shouldUseColors determines if colors should be used
func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
