package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

func service(args ...models.Value) models.Annotation {
	return models.Annotation{Dialect: models.DialectNative, Name: "Service", Args: args}
}

func at(line int) errors.SourceLocation {
	return errors.SourceLocation{File: "Services.cs", Line: line, Column: 2}
}

func TestTypeNativeForms(t *testing.T) {
	tests := []struct {
		name       string
		annotation models.Annotation
		wantEntry  bool
		wantLife   models.Lifetime
		wantKey    models.Value
	}{
		{
			name:       "zero arguments default to singleton",
			annotation: service(),
			wantEntry:  true,
			wantLife:   models.Singleton,
		},
		{
			name:       "lifetime argument",
			annotation: service(models.LifetimeValue(models.Scoped)),
			wantEntry:  true,
			wantLife:   models.Scoped,
		},
		{
			name:       "key and lifetime",
			annotation: service(models.StringValue("primary"), models.LifetimeValue(models.Transient)),
			wantEntry:  true,
			wantLife:   models.Transient,
			wantKey:    models.StringValue("primary"),
		},
		{
			name: "keyed dialect with enum key",
			annotation: models.Annotation{
				Dialect: models.DialectNativeKeyed,
				Args:    []models.Value{models.EnumValue("Keys", "Blue", 1), models.LifetimeValue(models.Singleton)},
			},
			wantEntry: true,
			wantLife:  models.Singleton,
			wantKey:   models.EnumValue("Keys", "Blue", 1),
		},
		{
			name:       "non lifetime argument is malformed",
			annotation: service(models.StringValue("Scoped")),
		},
		{
			name:       "unknown lifetime member is malformed",
			annotation: service(models.EnumValue(models.LifetimeEnum, "Pooled", -1)),
		},
		{
			name:       "too many arguments",
			annotation: service(models.IntValue(1), models.LifetimeValue(models.Scoped), models.BoolValue(true)),
		},
		{
			name:       "keyed dialect without arguments",
			annotation: models.Annotation{Dialect: models.DialectNativeKeyed},
		},
		{
			name:       "null key is unkeyed",
			annotation: service(models.Value{Kind: models.ValueNull}, models.LifetimeValue(models.Scoped)),
			wantEntry:  true,
			wantLife:   models.Scoped,
			wantKey:    models.NoValue,
		},
		{
			name:       "key without lifetime is malformed",
			annotation: service(models.StringValue("primary")),
		},
		{
			name: "keyed dialect with key only is malformed",
			annotation: models.Annotation{
				Dialect: models.DialectNativeKeyed,
				Args:    []models.Value{models.StringValue("primary")},
			},
		},
		{
			name:       "lifetime in key position only",
			annotation: service(models.LifetimeValue(models.Scoped), models.StringValue("x")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := models.NewBuilder()
			id := b.Global().Namespace("App").Class("Svc").Annotate(tt.annotation).ID()
			snap := b.MustBuild()

			entries, diags := Type(snap, id)
			assert.Empty(t, diags)
			if !tt.wantEntry {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, id, entries[0].Implementation)
			assert.Equal(t, tt.wantLife, entries[0].Lifetime)
			assert.Equal(t, tt.wantKey, entries[0].Key)
			assert.Equal(t, models.OriginAnnotation, entries[0].Origin)
		})
	}
}

func TestTypeExportDialect(t *testing.T) {
	export := models.Annotation{Dialect: models.DialectExport, Name: "Export"}
	keyedExport := models.Annotation{Dialect: models.DialectExport, Args: []models.Value{models.StringValue("contract")}}
	typedExport := models.Annotation{Dialect: models.DialectExport, Args: []models.Value{models.TypeValue(1, "object")}}
	shared := models.Annotation{Dialect: models.DialectShared}
	policy := func(member string, ordinal int) models.Annotation {
		return models.Annotation{
			Dialect: models.DialectPartCreation,
			Args:    []models.Value{models.EnumValue(models.CreationPolicyEnum, member, ordinal)},
		}
	}

	tests := []struct {
		name        string
		annotations []models.Annotation
		wantLife    models.Lifetime
		wantKey     models.Value
	}{
		{"plain export is transient", []models.Annotation{export}, models.Transient, models.NoValue},
		{"shared export is singleton", []models.Annotation{export, shared}, models.Singleton, models.NoValue},
		{"shared before export", []models.Annotation{shared, export}, models.Singleton, models.NoValue},
		{"part creation shared", []models.Annotation{policy("Shared", 1), export}, models.Singleton, models.NoValue},
		{"part creation non shared", []models.Annotation{policy("NonShared", 2), export}, models.Transient, models.NoValue},
		{"part creation any", []models.Annotation{policy("Any", 0), export}, models.Transient, models.NoValue},
		{"primitive contract becomes key", []models.Annotation{keyedExport}, models.Transient, models.StringValue("contract")},
		{"type contract is not a key", []models.Annotation{typedExport}, models.Transient, models.NoValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := models.NewBuilder()
			id := b.Global().Class("Part").Annotate(tt.annotations...).ID()
			snap := b.MustBuild()

			entries, _ := Type(snap, id)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLife, entries[0].Lifetime)
			assert.Equal(t, tt.wantKey, entries[0].Key)
		})
	}
}

func TestTypeYieldsOneEntryPerAnnotation(t *testing.T) {
	b := models.NewBuilder()
	a1 := service(models.LifetimeValue(models.Scoped))
	a1.Location = at(3)
	a2 := service(models.StringValue("k"), models.LifetimeValue(models.Singleton))
	a2.Location = at(4)
	id := b.Global().Class("Multi").Annotate(a1, a2).ID()
	snap := b.MustBuild()

	entries, _ := Type(snap, id)
	require.Len(t, entries, 2)
	assert.Equal(t, at(3), entries[0].Location)
	assert.False(t, entries[0].Keyed())
	assert.Equal(t, at(4), entries[1].Location)
	assert.True(t, entries[1].Keyed())
}

func TestServiceTypeNotKeyType(t *testing.T) {
	b := models.NewBuilder()
	str := b.Builtin("string")
	iface := b.Global().Interface("IFoo").ID()

	bad := service(models.StringValue("key"), models.LifetimeValue(models.Scoped))
	bad.ServiceType = str
	bad.Location = at(7)
	good := service(models.StringValue("key"), models.LifetimeValue(models.Scoped))
	good.ServiceType = iface
	obj := service(models.StringValue("key"), models.LifetimeValue(models.Scoped))
	obj.ServiceType = b.Object()

	badID := b.Global().Class("Bad").Annotate(bad).ID()
	goodID := b.Global().Class("Good").Annotate(good).ID()
	objID := b.Global().Class("Obj").Annotate(obj).ID()
	snap := b.MustBuild()

	entries, diags := Type(snap, badID)
	require.Len(t, diags, 1)
	assert.Equal(t, "DDI005", diags[0].Code)
	assert.Equal(t, at(7), diags[0].Location)
	assert.Equal(t, "Bad", diags[0].Subject)
	assert.True(t, diags.HasErrors())
	assert.Len(t, entries, 1, "classification still proceeds")

	_, diags = Type(snap, goodID)
	assert.Empty(t, diags)
	_, diags = Type(snap, objID)
	assert.Empty(t, diags)
}

func TestClassifyCollectsInCandidateOrder(t *testing.T) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("App")
	first := ns.Class("First").Annotate(service(models.LifetimeValue(models.Transient))).ID()
	plain := ns.Class("Plain").ID()
	second := ns.Class("Second").Annotate(service()).ID()
	snap := b.MustBuild()

	res, err := Classify(context.Background(), snap, []models.TypeID{second, plain, first})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, second, res.Entries[0].Implementation)
	assert.Equal(t, first, res.Entries[1].Implementation)
}

func TestClassifyCancelled(t *testing.T) {
	snap := models.NewBuilder().MustBuild()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Classify(ctx, snap, []models.TypeID{snap.Object()})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
}
