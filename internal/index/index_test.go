package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

func TestBuildRetainsAccessibleTypes(t *testing.T) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("Acme")
	iface := ns.Interface("IRepo").ID()
	repo := ns.Class("Repo").Implements(iface).ID()
	abstract := ns.Class("RepoBase").Abstract().ID()
	hidden := ns.Class("Hidden").Inaccessible()
	visibleNested := hidden.Nested("Visible", models.KindClass).ID()
	generic := ns.Class("Box").Generic(models.ParamSpec{Name: "T"}).ID()
	value := ns.Struct("Point").ID()
	snap := b.MustBuild()

	idx, err := Build(context.Background(), snap)
	require.NoError(t, err)

	assert.True(t, idx.Contains(repo))
	assert.True(t, idx.Contains(iface))
	assert.True(t, idx.Contains(abstract))
	assert.False(t, idx.Contains(hidden.ID()), "inaccessible types are not retained")
	assert.True(t, idx.Contains(visibleNested), "nested types of an inaccessible type are still visited")
	assert.False(t, idx.Contains(snap.Object()), "builtins are not namespace members")

	assert.Equal(t, []models.TypeID{repo, visibleNested}, idx.Candidates())
	assert.NotContains(t, idx.Candidates(), generic)
	assert.NotContains(t, idx.Candidates(), value)
}

func TestBuildVisitsSharedNamespacesOnce(t *testing.T) {
	b := models.NewBuilder()
	shared := b.Global().Namespace("Shared")
	svc := shared.Class("Svc").ID()
	b.Root("ext").Link(shared)
	b.Global().Namespace("Other").Link(shared)
	snap := b.MustBuild()

	idx, err := Build(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []models.TypeID{svc}, idx.Types())
	assert.Equal(t, 1, idx.Len())
}

func TestBuildIncludesAliasedRoots(t *testing.T) {
	b := models.NewBuilder()
	local := b.Global().Namespace("App").Class("Local").ID()
	external := b.Root("legacy").Namespace("Lib").Class("Remote").ID()
	snap := b.MustBuild()

	idx, err := Build(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []models.TypeID{local, external}, idx.Candidates())
	assert.Equal(t, "legacy::Lib.Remote", snap.FullName(external))
}

func TestBuildIsStableAcrossRuns(t *testing.T) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("A.B")
	for _, name := range []string{"One", "Two", "Three"} {
		c := ns.Class(name)
		c.Nested("Inner", models.KindClass)
	}
	snap := b.MustBuild()

	first, err := Build(context.Background(), snap)
	require.NoError(t, err)
	second, err := Build(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, first.Types(), second.Types())
	assert.Equal(t, 6, first.Len())
}

func TestBuildHonorsCancellation(t *testing.T) {
	b := models.NewBuilder()
	b.Global().Namespace("N").Class("C")
	snap := b.MustBuild()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx, err := Build(ctx, snap)
	assert.Nil(t, idx)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
}
