// Package conflict merges registration entries from every source and
// reports implementations registered under more than one lifetime.
package conflict

import (
	"strings"

	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

// Group is the set of entries of one implementation that share a key
type Group struct {
	Implementation models.TypeID
	Key            models.Value
	Entries        []models.Entry
}

// Lifetimes returns the distinct lifetimes of the group in display order
func (g Group) Lifetimes() []models.Lifetime {
	var present [3]bool
	for _, e := range g.Entries {
		if e.Lifetime.Valid() {
			present[e.Lifetime] = true
		}
	}
	var out []models.Lifetime
	for _, l := range models.Lifetimes {
		if present[l] {
			out = append(out, l)
		}
	}
	return out
}

// Ambiguous reports whether the group registers more than one lifetime
func (g Group) Ambiguous() bool {
	return len(g.Lifetimes()) > 1
}

// Dedupe drops repeated entries, keeping the first occurrence and its location
func Dedupe(entries []models.Entry) []models.Entry {
	seen := make(map[models.EntryKey]bool, len(entries))
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		id := e.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, e)
	}
	return out
}

// Groups partitions entries by implementation, then by key. Groups are
// ordered by first appearance of the implementation, then of the key.
func Groups(entries []models.Entry) []Group {
	type groupKey struct {
		impl models.TypeID
		key  models.Value
	}
	var impls []models.TypeID
	byImpl := make(map[models.TypeID][]groupKey)
	index := make(map[groupKey]*Group)

	for _, e := range entries {
		k := groupKey{impl: e.Implementation, key: e.Key}
		g, ok := index[k]
		if !ok {
			if _, known := byImpl[e.Implementation]; !known {
				impls = append(impls, e.Implementation)
			}
			byImpl[e.Implementation] = append(byImpl[e.Implementation], k)
			g = &Group{Implementation: e.Implementation, Key: e.Key}
			index[k] = g
		}
		g.Entries = append(g.Entries, e)
	}

	var out []Group
	for _, impl := range impls {
		for _, k := range byImpl[impl] {
			out = append(out, *index[k])
		}
	}
	return out
}

// Resolve deduplicates entries and reports one ambiguity warning per
// implementation and key that carries conflicting lifetimes. Every merged
// entry is kept; ambiguity never removes registrations.
func Resolve(program models.Program, entries []models.Entry) ([]models.Entry, diagnostic.Diagnostics) {
	merged := Dedupe(entries)
	var diags diagnostic.Diagnostics
	for _, g := range Groups(merged) {
		if !g.Ambiguous() {
			continue
		}
		diags = append(diags, ambiguity(program, g))
	}
	return merged, diags
}

func ambiguity(program models.Program, g Group) diagnostic.Diagnostic {
	lifetimes := g.Lifetimes()
	lnames := make([]string, len(lifetimes))
	for i, l := range lifetimes {
		lnames[i] = l.String()
	}
	name := program.FullName(g.Implementation)

	var locs []errors.SourceLocation
	for _, e := range g.Entries {
		if !e.Location.IsEmpty() {
			locs = append(locs, e.Location)
		}
	}
	var primary errors.SourceLocation
	if len(locs) > 0 {
		primary, locs = locs[0], locs[1:]
	}
	d := diagnostic.AmbiguousLifetime.New(primary, name, strings.Join(lnames, ", ")).WithSubject(name)
	if len(locs) > 0 {
		d = d.WithSecondary(locs...)
	}
	return d
}
