package convention

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

type fixture struct {
	snap        *models.Snapshot
	repository  models.TypeID
	iRepository models.TypeID
	base        models.TypeID
	cache       models.TypeID
	handler     models.TypeID
	iHandler    models.TypeID
	candidates  []models.TypeID
}

func buildFixture(t *testing.T) fixture {
	t.Helper()
	b := models.NewBuilder()
	data := b.Global().Namespace("Acme.Data")
	web := b.Global().Namespace("Acme.Web")

	f := fixture{}
	f.iRepository = data.Interface("IRepository").ID()
	f.base = data.Class("RepositoryBase").Abstract().Implements(f.iRepository).ID()
	f.repository = data.Class("MyRepository").Extends(f.base).ID()
	f.cache = data.Class("Cache").ID()
	handler := web.Interface("IHandler").Generic(models.ParamSpec{Name: "T", Variance: models.Contravariant})
	f.iHandler = handler.ID()
	f.handler = web.Class("OrderHandler").Implements(b.Construct(f.iHandler, f.cache)).ID()
	f.snap = b.MustBuild()
	f.candidates = []models.TypeID{f.repository, f.cache, f.handler}
	return f
}

func implementations(entries []models.Entry) []models.TypeID {
	var out []models.TypeID
	for _, e := range entries {
		out = append(out, e.Implementation)
	}
	return out
}

func TestMatchRules(t *testing.T) {
	f := buildFixture(t)

	tests := []struct {
		name string
		rule models.ConventionRule
		want []models.TypeID
	}{
		{
			name: "assignable to interface through base",
			rule: models.ConventionRule{AssignableTo: f.iRepository, Lifetime: models.Scoped},
			want: []models.TypeID{f.repository},
		},
		{
			name: "assignable to base class",
			rule: models.ConventionRule{AssignableTo: f.base, Lifetime: models.Scoped},
			want: []models.TypeID{f.repository},
		},
		{
			name: "assignable to itself",
			rule: models.ConventionRule{AssignableTo: f.cache, Lifetime: models.Singleton},
			want: []models.TypeID{f.cache},
		},
		{
			name: "pattern over full name",
			rule: models.ConventionRule{Pattern: `^Acme\.Data\.`, Lifetime: models.Transient},
			want: []models.TypeID{f.repository, f.cache},
		},
		{
			name: "pattern is unanchored",
			rule: models.ConventionRule{Pattern: `Handler`, Lifetime: models.Transient},
			want: []models.TypeID{f.handler},
		},
		{
			name: "dotnet lookbehind syntax",
			rule: models.ConventionRule{Pattern: `(?<=Data\.)My\w+$`, Lifetime: models.Transient},
			want: []models.TypeID{f.repository},
		},
		{
			name: "both constraints must hold",
			rule: models.ConventionRule{AssignableTo: f.iRepository, Pattern: `Cache`, Lifetime: models.Scoped},
		},
		{
			name: "rule without constraints yields nothing",
			rule: models.ConventionRule{Lifetime: models.Scoped},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Match(context.Background(), f.snap, f.candidates, []models.ConventionRule{tt.rule})
			require.NoError(t, err)
			assert.Empty(t, res.Diagnostics)
			assert.Equal(t, tt.want, implementations(res.Entries))
			for _, e := range res.Entries {
				assert.Equal(t, tt.rule.Lifetime, e.Lifetime)
				assert.False(t, e.Keyed())
				assert.Equal(t, models.OriginConvention, e.Origin)
			}
		})
	}
}

func TestMatchSameSimpleNameInOtherNamespace(t *testing.T) {
	b := models.NewBuilder()
	a := b.Global().Namespace("A")
	other := b.Global().Namespace("Other")
	iRepo := a.Interface("IRepository").ID()
	otherRepo := other.Interface("IRepository").ID()
	good := a.Class("Good").Implements(iRepo).ID()
	bad := other.Class("Bad").Implements(otherRepo).ID()
	snap := b.MustBuild()
	candidates := []models.TypeID{good, bad}

	tests := []struct {
		name string
		rule models.ConventionRule
		want []models.TypeID
	}{
		{
			name: "assignable by identity",
			rule: models.ConventionRule{AssignableTo: iRepo, Lifetime: models.Scoped},
			want: []models.TypeID{good},
		},
		{
			name: "pattern anchored on namespace",
			rule: models.ConventionRule{Pattern: `^A\.`, Lifetime: models.Scoped},
			want: []models.TypeID{good},
		},
		{
			name: "both constraints",
			rule: models.ConventionRule{AssignableTo: otherRepo, Pattern: `^Other\.Bad$`, Lifetime: models.Scoped},
			want: []models.TypeID{bad},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Match(context.Background(), snap, candidates, []models.ConventionRule{tt.rule})
			require.NoError(t, err)
			assert.Empty(t, res.Diagnostics)
			assert.Equal(t, tt.want, implementations(res.Entries))
		})
	}
}

func TestMatchUsesIdentityNotVariance(t *testing.T) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("N")
	animal := ns.Class("Animal").ID()
	cat := ns.Class("Cat").Extends(animal).ID()
	producer := ns.Interface("IProducer").Generic(models.ParamSpec{Name: "T", Variance: models.Covariant}).ID()
	catProducer := b.Construct(producer, cat)
	animalProducer := b.Construct(producer, animal)
	impl := ns.Class("CatShelter").Implements(catProducer).ID()
	snap := b.MustBuild()

	require.True(t, snap.Convertible(impl, animalProducer))
	assert.False(t, Assignable(snap, impl, animalProducer))
	assert.True(t, Assignable(snap, impl, catProducer))
}

func TestMatchEntriesCarryRuleLocation(t *testing.T) {
	f := buildFixture(t)
	loc := errors.SourceLocation{File: "conventions.yaml", Line: 4, Column: 3}
	rules := []models.ConventionRule{
		{AssignableTo: f.iRepository, Lifetime: models.Scoped, Location: loc},
		{Pattern: "Repository", Lifetime: models.Singleton},
	}

	res, err := Match(context.Background(), f.snap, f.candidates, rules)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, loc, res.Entries[0].Location)
	assert.Equal(t, models.Scoped, res.Entries[0].Lifetime)
	assert.Equal(t, models.Singleton, res.Entries[1].Lifetime)
}

func TestInvalidPatternIsSkipped(t *testing.T) {
	f := buildFixture(t)
	loc := errors.SourceLocation{File: "conventions.yaml", Line: 9}
	rules := []models.ConventionRule{
		{Pattern: `(unclosed`, Lifetime: models.Scoped, Location: loc},
		{Pattern: `Cache$`, Lifetime: models.Singleton},
	}

	res, err := Match(context.Background(), f.snap, f.candidates, rules)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "DDI002", res.Diagnostics[0].Code)
	assert.Equal(t, loc, res.Diagnostics[0].Location)
	assert.Contains(t, res.Diagnostics[0].Message, "(unclosed")
	assert.Equal(t, []models.TypeID{f.cache}, implementations(res.Entries))
}

func TestOpenGenericConstraintReportedOnce(t *testing.T) {
	f := buildFixture(t)
	rules := []models.ConventionRule{{AssignableTo: f.iHandler, Lifetime: models.Transient}}

	res, err := Match(context.Background(), f.snap, f.candidates, rules)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "DDI003", res.Diagnostics[0].Code)
	assert.Equal(t, "Acme.Web.IHandler<T>", res.Diagnostics[0].Subject)
	assert.Empty(t, res.Entries)
}

func TestMatchCancelled(t *testing.T) {
	f := buildFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Match(ctx, f.snap, f.candidates, []models.ConventionRule{{Pattern: ".", Lifetime: models.Scoped}})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
}
