package models

import "github.com/toyz/svcplan/internal/errors"

// Origin records which stage produced a registration entry
type Origin int

const (
	OriginAnnotation Origin = iota
	OriginConvention
)

// String returns the string representation of the origin
func (o Origin) String() string {
	if o == OriginConvention {
		return "convention"
	}
	return "annotation"
}

// ConventionRule registers every candidate that satisfies its constraints.
// AssignableTo == NoType and Pattern == "" means the rule has no constraint at all.
type ConventionRule struct {
	AssignableTo TypeID   // candidate must be, derive from or implement this type
	Pattern      string   // regular expression over the candidate's full name
	Lifetime     Lifetime // lifetime of every produced entry
	Location     errors.SourceLocation
}

// IsEmpty reports whether the rule carries neither constraint
func (r ConventionRule) IsEmpty() bool {
	return !r.AssignableTo.Valid() && r.Pattern == ""
}

// Entry is a single registration decision
type Entry struct {
	Implementation TypeID
	Lifetime       Lifetime
	Key            Value // NoValue for unkeyed entries
	Location       errors.SourceLocation
	Origin         Origin
}

// EntryKey is the identity under which entries deduplicate
type EntryKey struct {
	Implementation TypeID
	Lifetime       Lifetime
	Key            Value
}

// Keyed reports whether the entry carries a registration key
func (e Entry) Keyed() bool {
	return !e.Key.IsZero()
}

// Identity returns the deduplication key of the entry
func (e Entry) Identity() EntryKey {
	return EntryKey{Implementation: e.Implementation, Lifetime: e.Lifetime, Key: e.Key}
}
