package models

import (
	"strconv"
	"strings"

	"github.com/toyz/svcplan/internal/errors"
)

// Lifetime controls the instance-sharing scope of a registered service.
// The numeric values are part of the external contract and must not change.
type Lifetime int

const (
	Scoped    Lifetime = 0
	Singleton Lifetime = 1
	Transient Lifetime = 2
)

// Lifetimes lists every lifetime in display order
var Lifetimes = []Lifetime{Scoped, Singleton, Transient}

// String returns the display name of the lifetime
func (l Lifetime) String() string {
	switch l {
	case Scoped:
		return "Scoped"
	case Singleton:
		return "Singleton"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is one of the three defined lifetimes
func (l Lifetime) Valid() bool {
	return l >= Scoped && l <= Transient
}

// ParseLifetime accepts a lifetime name (case-insensitive, optionally
// qualified as ServiceLifetime.X) or its ordinal
func ParseLifetime(s string) (Lifetime, error) {
	name := strings.TrimSpace(s)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if n, err := strconv.Atoi(name); err == nil {
		l := Lifetime(n)
		if l.Valid() {
			return l, nil
		}
	}
	for _, l := range Lifetimes {
		if strings.EqualFold(l.String(), name) {
			return l, nil
		}
	}
	return Singleton, errors.NewValidationError("lifetime", "Scoped, Singleton or Transient", s)
}

// MarshalText implements encoding.TextMarshaler
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Lifetime) UnmarshalText(text []byte) error {
	parsed, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
