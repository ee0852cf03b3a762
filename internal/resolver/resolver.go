// Package resolver runs the full registration pipeline over a program:
// index, classify and match, merge, expand and partition.
package resolver

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toyz/svcplan/internal/classify"
	"github.com/toyz/svcplan/internal/conflict"
	"github.com/toyz/svcplan/internal/convention"
	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/index"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/plan"
	"github.com/toyz/svcplan/internal/utils"
)

// Options controls a resolution pass
type Options struct {
	// ConventionsEnabled evaluates convention rules; annotations are always honored
	ConventionsEnabled bool
	// DesignTimeBuild skips resolution entirely and yields an empty plan
	DesignTimeBuild bool
	// Parallelism bounds concurrent candidate classification; <= 0 means GOMAXPROCS
	Parallelism int
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{ConventionsEnabled: true}
}

// Stats counts what a pass processed
type Stats struct {
	Types       int `json:"types" yaml:"types" toml:"types"`
	Candidates  int `json:"candidates" yaml:"candidates" toml:"candidates"`
	Annotated   int `json:"annotated" yaml:"annotated" toml:"annotated"`
	Conventions int `json:"conventions" yaml:"conventions" toml:"conventions"`
	Entries     int `json:"entries" yaml:"entries" toml:"entries"`
}

// Result is the outcome of one pass
type Result struct {
	Plan        *plan.Plan
	Diagnostics diagnostic.Diagnostics
	Stats       Stats
}

// Clone returns a copy of the result that shares no slices with r
func (r *Result) Clone() *Result {
	return &Result{
		Plan:        r.Plan.Clone(),
		Diagnostics: slices.Clone(r.Diagnostics),
		Stats:       r.Stats,
	}
}

type cacheKey struct {
	snapshot uuid.UUID
	rules    uuid.UUID
	options  Options
}

// Resolver resolves programs into plans. It is safe for concurrent use.
type Resolver struct {
	options Options
	cache   *utils.Cache[cacheKey, *Result]
}

// New creates a resolver with the given options
func New(options Options) *Resolver {
	return &Resolver{options: options}
}

// WithCache memoizes results per snapshot identity, rule set and options.
// Every call returns its own copy of the memoized result.
func (r *Resolver) WithCache() *Resolver {
	r.cache = utils.NewCache[cacheKey, *Result]()
	return r
}

// Options returns the resolver's options
func (r *Resolver) Options() Options {
	return r.options
}

// CacheStats reports memo statistics; zero when caching is off
func (r *Resolver) CacheStats() utils.CacheStats {
	if r.cache == nil {
		return utils.CacheStats{}
	}
	return r.cache.GetStats()
}

// Resolve computes the registration plan of program under rules.
// A cancelled pass returns a CancelledError and no result.
func (r *Resolver) Resolve(ctx context.Context, program models.Program, rules []models.ConventionRule) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("resolution", err)
	}
	if r.cache == nil {
		return r.resolve(ctx, program, rules)
	}
	key := cacheKey{snapshot: program.Identity(), rules: RulesIdentity(rules), options: r.options}
	res, err := r.cache.GetOrCompute(key, func() (*Result, error) {
		return r.resolve(ctx, program, rules)
	})
	if err != nil {
		return nil, err
	}
	return res.Clone(), nil
}

// Resolve runs a single uncached pass with the given options
func Resolve(ctx context.Context, program models.Program, rules []models.ConventionRule, options Options) (*Result, error) {
	return New(options).Resolve(ctx, program, rules)
}

type slot struct {
	annotated   []models.Entry
	conventions []models.Entry
	diags       diagnostic.Diagnostics
}

func (r *Resolver) resolve(ctx context.Context, program models.Program, rules []models.ConventionRule) (*Result, error) {
	if r.options.DesignTimeBuild {
		return &Result{Plan: plan.New()}, nil
	}

	idx, err := index.Build(ctx, program)
	if err != nil {
		return nil, err
	}
	candidates := idx.Candidates()

	var (
		matcher *convention.Matcher
		diags   diagnostic.Diagnostics
	)
	if r.options.ConventionsEnabled {
		var cdiags diagnostic.Diagnostics
		matcher, cdiags = convention.Compile(program, rules)
		diags = append(diags, cdiags...)
	}

	slots := make([]slot, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism())
	for i, id := range candidates {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.NewCancelledError("annotation classification", err)
			}
			s := &slots[i]
			s.annotated, s.diags = classify.Type(program, id)
			if matcher != nil && matcher.Len() > 0 {
				entries, err := matcher.Type(gctx, program, id)
				if err != nil {
					return err
				}
				s.conventions = entries
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := Stats{Types: idx.Len(), Candidates: len(candidates)}
	var entries []models.Entry
	for _, s := range slots {
		entries = append(entries, s.annotated...)
		stats.Annotated += len(s.annotated)
	}
	for _, s := range slots {
		entries = append(entries, s.conventions...)
		stats.Conventions += len(s.conventions)
	}
	var classified diagnostic.Diagnostics
	for _, s := range slots {
		classified = append(classified, s.diags...)
	}
	diags = append(classified, diags...)

	merged, conflicts := conflict.Resolve(program, entries)
	diags = append(diags, conflicts...)
	stats.Entries = len(merged)

	p, err := plan.Build(ctx, program, merged)
	if err != nil {
		return nil, err
	}
	return &Result{
		Plan:        p,
		Diagnostics: diags,
		Stats:       stats,
	}, nil
}

func (r *Resolver) parallelism() int {
	if r.options.Parallelism > 0 {
		return r.options.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// RulesIdentity fingerprints a rule set, order included
func RulesIdentity(rules []models.ConventionRule) uuid.UUID {
	var buf bytes.Buffer
	for _, r := range rules {
		fmt.Fprintf(&buf, "%d\x00%q\x00%d\x00%s\n", r.AssignableTo, r.Pattern, r.Lifetime, r.Location)
	}
	return models.IdentityOf(buf.Bytes())
}
