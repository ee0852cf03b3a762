package resolver

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/plan"
)

type repoProgram struct {
	snap        *models.Snapshot
	repository  models.TypeID
	iRepository models.TypeID
	rules       []models.ConventionRule
}

func buildRepoProgram(t *testing.T) repoProgram {
	t.Helper()
	b := models.NewBuilder()
	ns := b.Global().Namespace("Acme")
	iRepo := ns.Interface("IRepository").ID()
	repo := ns.Class("MyRepository").Implements(iRepo).ID()
	ns.Class("Unrelated")
	return repoProgram{
		snap:        b.MustBuild(),
		repository:  repo,
		iRepository: iRepo,
		rules:       []models.ConventionRule{{AssignableTo: iRepo, Lifetime: models.Scoped}},
	}
}

func TestResolveRepositoryByConvention(t *testing.T) {
	p := buildRepoProgram(t)

	res, err := Resolve(context.Background(), p.snap, p.rules, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	require.Equal(t, 1, res.Plan.Len())

	scoped := res.Plan.Bucket(models.Scoped, false)
	require.Len(t, scoped, 1)
	svc := scoped[0]
	assert.Equal(t, p.repository, svc.Implementation)
	assert.Equal(t, models.OriginConvention, svc.Origin)
	assert.False(t, svc.Keyed())
	require.Len(t, svc.Aliases, 2)
	assert.Equal(t, "Acme.MyRepository", svc.Aliases[0].FullName)
	assert.Equal(t, "Acme.IRepository", svc.Aliases[1].FullName)

	assert.Equal(t, Stats{Types: 3, Candidates: 2, Conventions: 1, Entries: 1}, res.Stats)
}

func TestResolveConventionsDisabled(t *testing.T) {
	p := buildRepoProgram(t)

	res, err := Resolve(context.Background(), p.snap, p.rules, Options{ConventionsEnabled: false})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Plan.Len())
}

func TestResolveDesignTimeBuildSkips(t *testing.T) {
	p := buildRepoProgram(t)

	res, err := Resolve(context.Background(), p.snap, p.rules, Options{ConventionsEnabled: true, DesignTimeBuild: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Plan.Len())
	assert.Len(t, res.Plan.Buckets(), 6)
	assert.Empty(t, res.Diagnostics)
}

func TestResolveIsIdempotent(t *testing.T) {
	p := buildRepoProgram(t)
	opts := Options{ConventionsEnabled: true, Parallelism: 4}

	first, err := Resolve(context.Background(), p.snap, p.rules, opts)
	require.NoError(t, err)
	second, err := Resolve(context.Background(), p.snap, p.rules, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveAmbiguityAcrossSources(t *testing.T) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("Acme")
	iRepo := ns.Interface("IRepository").ID()
	loc := errors.SourceLocation{File: "MyRepository.cs", Line: 3, Column: 2}
	repo := ns.Class("MyRepository").Implements(iRepo).Annotate(models.Annotation{
		Dialect:  models.DialectNative,
		Args:     []models.Value{models.LifetimeValue(models.Singleton)},
		Location: loc,
	}).ID()
	snap := b.MustBuild()
	ruleLoc := errors.SourceLocation{File: "conventions.yaml", Line: 2}
	rules := []models.ConventionRule{{AssignableTo: iRepo, Lifetime: models.Scoped, Location: ruleLoc}}

	res, err := Resolve(context.Background(), snap, rules, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, "DDI004", d.Code)
	assert.Equal(t, "More than one registration matches Acme.MyRepository with lifetimes Scoped, Singleton.", d.Message)
	assert.Equal(t, loc, d.Location)
	assert.Equal(t, []errors.SourceLocation{ruleLoc}, d.Secondary)

	assert.Len(t, res.Plan.Bucket(models.Singleton, false), 1)
	assert.Len(t, res.Plan.Bucket(models.Scoped, false), 1)
	assert.Equal(t, repo, res.Plan.Bucket(models.Scoped, false)[0].Implementation)
}

type planRow struct {
	name     string
	lifetime models.Lifetime
	key      string
}

func rows(p *plan.Plan) []planRow {
	var out []planRow
	for _, s := range p.Services() {
		out = append(out, planRow{name: s.FullName, lifetime: s.Lifetime, key: s.Key.String()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		if out[i].lifetime != out[j].lifetime {
			return out[i].lifetime < out[j].lifetime
		}
		return out[i].key < out[j].key
	})
	return out
}

func TestResolveDeterministicUnderReordering(t *testing.T) {
	build := func(order []string, reverseRules bool) (*models.Snapshot, []models.ConventionRule) {
		b := models.NewBuilder()
		ns := b.Global().Namespace("App")
		iHandler := ns.Interface("IHandler").ID()
		for _, name := range order {
			tb := ns.Class(name).Implements(iHandler)
			if name == "Keyed" {
				tb.Annotate(models.Annotation{
					Dialect: models.DialectNativeKeyed,
					Args:    []models.Value{models.StringValue("k"), models.LifetimeValue(models.Transient)},
				})
			}
		}
		rules := []models.ConventionRule{
			{AssignableTo: iHandler, Lifetime: models.Scoped},
			{Pattern: `^App\.(Alpha|Gamma)$`, Lifetime: models.Singleton},
		}
		if reverseRules {
			rules[0], rules[1] = rules[1], rules[0]
		}
		return b.MustBuild(), rules
	}

	snapA, rulesA := build([]string{"Alpha", "Beta", "Gamma", "Keyed"}, false)
	snapB, rulesB := build([]string{"Keyed", "Gamma", "Beta", "Alpha"}, true)

	resA, err := Resolve(context.Background(), snapA, rulesA, DefaultOptions())
	require.NoError(t, err)
	resB, err := Resolve(context.Background(), snapB, rulesB, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, rows(resA.Plan), rows(resB.Plan))
	assert.Len(t, resA.Diagnostics, 2, "Alpha and Gamma are both scoped and singleton")
	assert.Len(t, resB.Diagnostics, 2)
}

func TestResolverCache(t *testing.T) {
	p := buildRepoProgram(t)
	r := New(DefaultOptions()).WithCache()

	first, err := r.Resolve(context.Background(), p.snap, p.rules)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), p.snap, p.rules)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)

	second.Plan.Add(plan.Service{Implementation: p.iRepository, Lifetime: models.Transient})
	again, err := r.Resolve(context.Background(), p.snap, p.rules)
	require.NoError(t, err)
	assert.Equal(t, first.Plan.Len(), again.Plan.Len())
	assert.Equal(t, first, again)

	other := []models.ConventionRule{{AssignableTo: p.iRepository, Lifetime: models.Transient}}
	third, err := r.Resolve(context.Background(), p.snap, other)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	stats := r.CacheStats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Hits)
}

func TestRulesIdentity(t *testing.T) {
	a := []models.ConventionRule{{Pattern: "a", Lifetime: models.Scoped}}
	b := []models.ConventionRule{{Pattern: "a", Lifetime: models.Singleton}}
	assert.Equal(t, RulesIdentity(a), RulesIdentity(a))
	assert.NotEqual(t, RulesIdentity(a), RulesIdentity(b))
}

func TestResolveCancelled(t *testing.T) {
	p := buildRepoProgram(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(DefaultOptions()).WithCache().Resolve(ctx, p.snap, p.rules)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
}
