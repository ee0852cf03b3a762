package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

func rulesProgram() (*models.Snapshot, models.TypeID, models.TypeID) {
	b := models.NewBuilder()
	ns := b.Global().Namespace("store")
	repo := ns.Interface("Repository").ID()
	handler := ns.Interface("Handler").Generic(models.ParamSpec{Name: "T"}).ID()
	ns.Class("SQLRepository").Implements(repo)
	return b.MustBuild(), repo, handler
}

func TestParseRules(t *testing.T) {
	snap, repo, handler := rulesProgram()
	doc := "rules:\n" +
		"  - assignable_to: store.Repository\n" +
		"    lifetime: Scoped\n" +
		"  - pattern: 'Cache$'\n" +
		"    lifetime: ServiceLifetime.Singleton\n" +
		"  - assignable_to: store.Handler<T>\n" +
		"    lifetime: transient\n"

	rules, err := ParseRules(context.Background(), []byte(doc), "rules.yaml", snap)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, repo, rules[0].AssignableTo)
	assert.Equal(t, models.Scoped, rules[0].Lifetime)
	assert.Equal(t, errors.SourceLocation{File: "rules.yaml", Line: 2, Column: 5}, rules[0].Location)

	assert.Equal(t, models.NoType, rules[1].AssignableTo)
	assert.Equal(t, "Cache$", rules[1].Pattern)
	assert.Equal(t, models.Singleton, rules[1].Lifetime)

	assert.Equal(t, handler, rules[2].AssignableTo)
	assert.Equal(t, models.Transient, rules[2].Lifetime)
}

func TestParseRulesErrors(t *testing.T) {
	snap, _, _ := rulesProgram()
	tests := []struct {
		name     string
		doc      string
		wantCode errors.ErrorCode
	}{
		{"unknown type", "rules:\n  - assignable_to: store.Missing\n    lifetime: Scoped\n", errors.ModelErrorCode},
		{"missing lifetime", "rules:\n  - pattern: x\n", errors.ValidationErrorCode},
		{"bad lifetime", "rules:\n  - pattern: x\n    lifetime: Forever\n", errors.ValidationErrorCode},
		{"unknown field", "rulez: []\n", errors.SyntaxErrorCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules(context.Background(), []byte(tt.doc), "rules.yaml", snap)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err), err.Error())
		})
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	snap, _, _ := rulesProgram()
	_, err := LoadRules(context.Background(), filepath.Join(t.TempDir(), "rules.yaml"), snap)
	require.Error(t, err)
	assert.Equal(t, errors.FileSystemErrorCode, errors.CodeOf(err))
}
