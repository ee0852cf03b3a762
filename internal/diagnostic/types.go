// Package diagnostic defines the advisory findings a resolution pass reports
// alongside its plan. Diagnostics never stop plan production.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/toyz/svcplan/internal/errors"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor describes a kind of diagnostic
type Descriptor struct {
	Code     string
	Title    string
	Format   string // message format, filled with fmt.Sprintf
	Severity Severity
}

// Known diagnostics
var (
	InvalidNamePattern = Descriptor{
		Code:     "DDI002",
		Title:    "Invalid convention name pattern.",
		Format:   "Convention name pattern %q is not a valid regular expression: %s",
		Severity: SeverityWarning,
	}

	OpenGenericConstraint = Descriptor{
		Code:     "DDI003",
		Title:    "Open generic assignability constraint.",
		Format:   "Convention constraint %s is an open generic type definition; no candidate can be assignable to it.",
		Severity: SeverityWarning,
	}

	AmbiguousLifetime = Descriptor{
		Code:     "DDI004",
		Title:    "Ambiguous lifetime registration.",
		Format:   "More than one registration matches %s with lifetimes %s.",
		Severity: SeverityWarning,
	}

	ServiceTypeNotKeyType = Descriptor{
		Code:     "DDI005",
		Title:    "Generic parameter for Service must be the service type to register, not the service key type.",
		Format:   "Generic parameter must not be the type of service key in use but rather the service type to register, if any.",
		Severity: SeverityError,
	}
)

// New creates a diagnostic of this kind
func (d Descriptor) New(loc errors.SourceLocation, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: d.Severity,
		Code:     d.Code,
		Message:  fmt.Sprintf(d.Format, args...),
		Location: loc,
	}
}

// Diagnostic represents a single diagnostic message
type Diagnostic struct {
	Severity  Severity                `json:"severity" yaml:"severity"`
	Code      string                  `json:"code" yaml:"code"`
	Message   string                  `json:"message" yaml:"message"`
	Subject   string                  `json:"subject,omitempty" yaml:"subject,omitempty"` // full name of the type concerned
	Location  errors.SourceLocation   `json:"location" yaml:"location"`
	Secondary []errors.SourceLocation `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// WithSubject sets the type the diagnostic is about
func (d Diagnostic) WithSubject(subject string) Diagnostic {
	d.Subject = subject
	return d
}

// WithSecondary attaches additional locations
func (d Diagnostic) WithSecondary(locs ...errors.SourceLocation) Diagnostic {
	d.Secondary = append(append([]errors.SourceLocation(nil), d.Secondary...), locs...)
	return d
}

// String returns a formatted diagnostic string
func (d Diagnostic) String() string {
	msg := fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	if !d.Location.IsEmpty() {
		msg = d.Location.String() + ": " + msg
	}
	return msg
}

// Diagnostics is an ordered collection of diagnostics
type Diagnostics []Diagnostic

// HasErrors returns true if any diagnostic has error severity
func (ds Diagnostics) HasErrors() bool {
	return ds.Count(SeverityError) > 0
}

// Count returns how many diagnostics have the given severity
func (ds Diagnostics) Count(sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// WithCode returns the diagnostics carrying the given code, in order
func (ds Diagnostics) WithCode(code string) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// String joins all diagnostics, one per line
func (ds Diagnostics) String() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
