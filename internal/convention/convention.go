// Package convention evaluates convention rules against candidate types.
//
// A rule constrains candidates by assignability, by a regular expression over
// the fully qualified name, or both. Patterns use .NET regular expression
// syntax and match anywhere in the name, as Regex.IsMatch does.
package convention

import (
	"context"

	"github.com/dlclark/regexp2"

	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

// Result holds the entries and diagnostics of a matching pass
type Result struct {
	Entries     []models.Entry
	Diagnostics diagnostic.Diagnostics
}

type compiledRule struct {
	rule    models.ConventionRule
	pattern *regexp2.Regexp // nil matches every name
}

// Matcher is a compiled, immutable rule set safe for concurrent use
type Matcher struct {
	rules []compiledRule
}

// Compile validates rules against program. Rules with neither constraint are
// dropped silently, rules whose pattern does not compile are dropped with a
// warning, and open generic assignability constraints are reported once.
func Compile(program models.Program, rules []models.ConventionRule) (*Matcher, diagnostic.Diagnostics) {
	m := &Matcher{}
	var diags diagnostic.Diagnostics
	for _, r := range rules {
		if r.IsEmpty() {
			continue
		}
		cr := compiledRule{rule: r}
		if r.Pattern != "" {
			re, err := regexp2.Compile(r.Pattern, regexp2.None)
			if err != nil {
				diags = append(diags, diagnostic.InvalidNamePattern.New(r.Location, r.Pattern, err.Error()))
				continue
			}
			cr.pattern = re
		}
		if r.AssignableTo.Valid() {
			if rec := program.Type(r.AssignableTo); rec != nil && rec.IsGenericDefinition() {
				diags = append(diags, diagnostic.OpenGenericConstraint.New(r.Location, program.FullName(r.AssignableTo)).
					WithSubject(program.FullName(r.AssignableTo)))
			}
		}
		m.rules = append(m.rules, cr)
	}
	return m, diags
}

// Len returns the number of effective rules
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Type returns one unkeyed entry per rule that id satisfies, in rule order
func (m *Matcher) Type(ctx context.Context, program models.Program, id models.TypeID) ([]models.Entry, error) {
	var entries []models.Entry
	var name string
	for _, cr := range m.rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelledError("convention matching", err)
		}
		if cr.rule.AssignableTo.Valid() && !Assignable(program, id, cr.rule.AssignableTo) {
			continue
		}
		if cr.pattern != nil {
			if name == "" {
				name = program.FullName(id)
			}
			ok, err := cr.pattern.MatchString(name)
			if err != nil || !ok {
				continue
			}
		}
		entries = append(entries, models.Entry{
			Implementation: id,
			Lifetime:       cr.rule.Lifetime,
			Location:       cr.rule.Location,
			Origin:         models.OriginConvention,
		})
	}
	return entries, nil
}

// Match compiles rules and evaluates them against every candidate
func Match(ctx context.Context, program models.Program, candidates []models.TypeID, rules []models.ConventionRule) (Result, error) {
	m, diags := Compile(program, rules)
	res := Result{Diagnostics: diags}
	if m.Len() == 0 {
		return res, nil
	}
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.NewCancelledError("convention matching", err)
		}
		entries, err := m.Type(ctx, program, id)
		if err != nil {
			return Result{}, err
		}
		res.Entries = append(res.Entries, entries...)
	}
	return res, nil
}

// Assignable reports whether candidate is target, derives from it or implements it.
// Types are compared by identity; no variance is applied.
func Assignable(program models.Program, candidate, target models.TypeID) bool {
	if candidate == target || target == program.Object() {
		return true
	}
	for _, b := range program.BaseTypes(candidate) {
		if b == target {
			return true
		}
	}
	for _, i := range program.AllInterfaces(candidate) {
		if i == target {
			return true
		}
	}
	return false
}
