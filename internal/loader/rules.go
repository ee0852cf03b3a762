package loader

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/index"
	"github.com/toyz/svcplan/internal/models"
)

// RulesDocument is a standalone rules file
type RulesDocument struct {
	Rules []ruleSpec `yaml:"rules"`
}

// LoadRules reads a rules file whose assignable_to entries name types of
// program by full name, e.g. store.Repository or Acme.IHandler<T>
func LoadRules(ctx context.Context, path string, program models.Program) ([]models.ConventionRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFileSystemError("read", path, err)
	}
	return ParseRules(ctx, data, path, program)
}

// ParseRules links a rules document against program
func ParseRules(ctx context.Context, data []byte, source string, program models.Program) ([]models.ConventionRule, error) {
	var doc RulesDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.WrapParseError(source, err).WithLocation(errors.SourceLocation{File: source})
	}

	idx, err := index.Build(ctx, program)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.TypeID, idx.Len())
	for _, id := range idx.Types() {
		byName[program.FullName(id)] = id
	}

	errs := errors.NewMultipleErrors()
	var out []models.ConventionRule
	for _, r := range doc.Rules {
		loc := errors.SourceLocation{File: source, Line: r.pos.line, Column: r.pos.column}
		if strings.TrimSpace(r.Lifetime) == "" {
			errs.Add(errors.NewValidationError("lifetime", "Scoped, Singleton or Transient", "nothing").WithLocation(loc))
			continue
		}
		lifetime, err := models.ParseLifetime(r.Lifetime)
		if err != nil {
			errs.Add(errors.NewValidationError("lifetime", "Scoped, Singleton or Transient", r.Lifetime).WithLocation(loc))
			continue
		}
		rule := models.ConventionRule{Pattern: r.Pattern, Lifetime: lifetime, Location: loc}
		if name := strings.TrimSpace(r.AssignableTo); name != "" {
			id, ok := byName[name]
			if !ok {
				errs.Add(errors.NewModelError("rule", name, "unknown type").WithLocation(loc))
				continue
			}
			rule.AssignableTo = id
		}
		out = append(out, rule)
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
