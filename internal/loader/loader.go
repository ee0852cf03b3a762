// Package loader reads program snapshots and convention rules from YAML.
//
// A snapshot file lists assemblies (each optionally behind an extern alias)
// with their namespaces and types. Type references use source syntax such as
// Acme.IProducer<Acme.Item> or legacy::Lib.Widget, and annotations are written
// as expressions like Service(ServiceLifetime.Scoped).
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toyz/svcplan/internal/annotations"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/utils"
)

// Result is a loaded snapshot together with its rules
type Result struct {
	Program *models.Snapshot
	Rules   []models.ConventionRule
	Source  string
}

// Loader loads snapshot files, caching them until the file changes
type Loader struct {
	parser *annotations.Parser
	cache  *utils.Cache[string, *Result]
}

// New creates a loader using the default annotation dialects
func New() *Loader {
	return NewWithParser(annotations.DefaultParser())
}

// NewWithParser creates a loader with a custom annotation parser
func NewWithParser(parser *annotations.Parser) *Loader {
	return &Loader{
		parser: parser,
		cache:  utils.NewCache[string, *Result](),
	}
}

// Load reads and links the snapshot at path
func (l *Loader) Load(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("snapshot loading", err)
	}
	if res, ok := l.cache.GetWithFileValidation(path, path); ok {
		return res, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFileSystemError("read", path, err)
	}
	res, err := l.Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := l.cache.SetWithFileInfo(path, res, path); err != nil {
		return nil, errors.WrapFileSystemError("stat", path, err)
	}
	return res, nil
}

// Parse links a snapshot document. source names the document in locations.
// The snapshot identity is derived from the document bytes.
func (l *Loader) Parse(data []byte, source string) (*Result, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.WrapParseError(source, err).WithLocation(errors.SourceLocation{File: source})
	}

	lk := &linker{
		source:  source,
		parser:  l.parser,
		builder: models.NewBuilder().WithIdentity(models.IdentityOf(data)),
		names:   make(map[refKey]models.TypeID),
		errs:    errors.NewMultipleErrors(),
	}
	lk.declare(doc.Assemblies)
	for _, d := range lk.decls {
		lk.link(d)
	}
	rules := lk.rules(doc.Rules)
	if err := lk.errs.ErrOrNil(); err != nil {
		return nil, err
	}

	snap, err := lk.builder.Build()
	if err != nil {
		return nil, errors.WrapModelError(source, err)
	}
	return &Result{Program: snap, Rules: rules, Source: source}, nil
}

// Load reads a snapshot file with a fresh loader
func Load(ctx context.Context, path string) (*Result, error) {
	return New().Load(ctx, path)
}

// Parse links a snapshot document with the default parser
func Parse(data []byte, source string) (*Result, error) {
	return New().Parse(data, source)
}

type refKey struct {
	alias string
	name  string
	arity int
}

type decl struct {
	spec  *typeSpec
	tb    *models.TypeBuilder
	name  string
	scope map[string]models.TypeID // type parameters in scope, own and containing
}

type linker struct {
	source  string
	parser  *annotations.Parser
	builder *models.Builder
	names   map[refKey]models.TypeID
	decls   []*decl
	errs    *errors.MultipleErrors
}

func (lk *linker) at(p position) errors.SourceLocation {
	return errors.SourceLocation{File: lk.source, Line: p.line, Column: p.column}
}

func (lk *linker) fail(err error, loc errors.SourceLocation) {
	switch e := err.(type) {
	case *errors.ModelError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		lk.errs.Add(e)
	case *errors.ValidationError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		lk.errs.Add(e)
	case *errors.SyntaxError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		lk.errs.Add(e)
	default:
		var pe errors.PlanError
		if errors.As(err, &pe) {
			lk.errs.Add(pe)
			return
		}
		lk.errs.Add(errors.Wrap(errors.ModelErrorCode, "invalid snapshot", err).WithLocation(loc))
	}
}

func (lk *linker) declare(assemblies []assemblySpec) {
	for _, asm := range assemblies {
		root := lk.builder.Root(asm.Alias)
		for _, ns := range asm.Namespaces {
			nb := root.Namespace(ns.Name)
			for _, t := range ns.Types {
				kind, err := models.ParseTypeKind(t.Kind)
				if err != nil {
					lk.fail(err, lk.at(t.pos))
					continue
				}
				lk.declareType(asm.Alias, ns.Name, nb.Type(t.Name, kind), t, nil)
			}
		}
	}
}

func (lk *linker) declareType(alias, prefix string, tb *models.TypeBuilder, t *typeSpec, outer map[string]models.TypeID) {
	name := t.Name
	if prefix != "" {
		name = prefix + "." + t.Name
	}
	if t.Abstract {
		tb.Abstract()
	}
	if !accessible(t.Accessible) {
		tb.Inaccessible()
	}
	tb.At(lk.at(t.pos))

	scope := make(map[string]models.TypeID, len(outer)+len(t.Generic))
	for k, v := range outer {
		scope[k] = v
	}
	for _, p := range t.Generic {
		variance, err := models.ParseVariance(p.Variance)
		if err != nil {
			lk.fail(err, lk.at(t.pos))
		}
		tb.Generic(models.ParamSpec{
			Name:          p.Name,
			Variance:      variance,
			ReferenceType: p.Class,
			ValueType:     p.Struct,
			Constructor:   p.New,
		})
	}
	for i, p := range t.Generic {
		scope[p.Name] = tb.Param(i)
	}

	key := refKey{alias: alias, name: name, arity: len(t.Generic)}
	if _, dup := lk.names[key]; dup {
		lk.fail(errors.NewModelError(name, name, "type is declared more than once"), lk.at(t.pos))
	}
	lk.names[key] = tb.ID()
	lk.decls = append(lk.decls, &decl{spec: t, tb: tb, name: name, scope: scope})

	for _, n := range t.Nested {
		kind, err := models.ParseTypeKind(n.Kind)
		if err != nil {
			lk.fail(err, lk.at(n.pos))
			continue
		}
		lk.declareType(alias, name, tb.Nested(n.Name, kind), n, scope)
	}
}

func (lk *linker) link(d *decl) {
	t := d.spec
	loc := lk.at(t.pos)
	if t.Base != "" {
		if id, ok := lk.reference(d, t.Base, loc); ok {
			d.tb.Extends(id)
		}
	}
	for _, i := range t.Interfaces {
		if id, ok := lk.reference(d, i, loc); ok {
			d.tb.Implements(id)
		}
	}
	for i, p := range t.Generic {
		for _, c := range p.Constraints {
			if id, ok := lk.reference(d, c, loc); ok {
				d.tb.Constrain(i, id)
			}
		}
	}
	d.tb.Annotate(lk.annotations(d, t.Annotations)...)

	for _, c := range t.Constructors {
		ctor := models.Constructor{
			Accessible:  accessible(c.Accessible),
			Annotations: lk.annotations(d, c.Annotations),
			Location:    lk.at(c.pos),
		}
		for _, p := range c.Parameters {
			id, ok := lk.reference(d, p.Type, lk.at(c.pos))
			if !ok {
				continue
			}
			ctor.Parameters = append(ctor.Parameters, models.Parameter{
				Name:        p.Name,
				Type:        id,
				Annotations: lk.annotations(d, p.Annotations),
			})
		}
		d.tb.Constructor(ctor)
	}
}

func (lk *linker) annotations(d *decl, specs []annotationSpec) []models.Annotation {
	var out []models.Annotation
	for _, a := range specs {
		loc := lk.at(a.pos)
		ann, _, err := lk.parser.Annotation(a.Text, loc, lk.resolver(d))
		if err != nil {
			lk.fail(err, loc)
			continue
		}
		out = append(out, ann)
	}
	return out
}

func (lk *linker) resolver(d *decl) annotations.TypeResolver {
	return annotations.TypeResolverFunc(func(ref *annotations.TypeRef) (models.TypeID, error) {
		return lk.resolve(d, ref)
	})
}

func (lk *linker) reference(d *decl, text string, loc errors.SourceLocation) (models.TypeID, bool) {
	ref, err := lk.parser.ParseTypeRef(text)
	if err != nil {
		lk.fail(err, loc)
		return models.NoType, false
	}
	id, err := lk.resolve(d, ref)
	if err != nil {
		lk.fail(err, loc)
		return models.NoType, false
	}
	return id, true
}

// resolve binds a type reference: type parameters in scope first, then
// builtin keywords, then declared types by alias, dotted name and arity
func (lk *linker) resolve(d *decl, ref *annotations.TypeRef) (models.TypeID, error) {
	owner := ""
	var scope map[string]models.TypeID
	if d != nil {
		owner, scope = d.name, d.scope
	}
	if ref.Alias == "" && len(ref.Args) == 0 {
		if id, ok := scope[ref.Name]; ok {
			return id, nil
		}
		if id := lk.builder.Builtin(ref.Name); id.Valid() {
			return id, nil
		}
	}

	def, ok := lk.names[refKey{alias: ref.Alias, name: ref.Name, arity: len(ref.Args)}]
	if !ok {
		return models.NoType, errors.NewModelError(owner, ref.String(), "unknown type").
			WithSuggestion(fmt.Sprintf("declare %s in the snapshot or check its generic arity", ref.Name))
	}
	if len(ref.Args) == 0 {
		return def, nil
	}
	args := make([]models.TypeID, len(ref.Args))
	for i, a := range ref.Args {
		id, err := lk.resolve(d, a)
		if err != nil {
			return models.NoType, err
		}
		args[i] = id
	}
	id, err := lk.builder.Program().Construct(def, args...)
	if err != nil {
		return models.NoType, errors.NewModelError(owner, ref.String(), err.Error())
	}
	return id, nil
}

func (lk *linker) rules(specs []ruleSpec) []models.ConventionRule {
	var out []models.ConventionRule
	for _, r := range specs {
		loc := lk.at(r.pos)
		if strings.TrimSpace(r.Lifetime) == "" {
			lk.fail(errors.NewValidationError("lifetime", "Scoped, Singleton or Transient", "nothing"), loc)
			continue
		}
		lifetime, err := models.ParseLifetime(r.Lifetime)
		if err != nil {
			lk.fail(err, loc)
			continue
		}
		rule := models.ConventionRule{Pattern: r.Pattern, Lifetime: lifetime, Location: loc}
		if r.AssignableTo != "" {
			id, ok := lk.reference(nil, r.AssignableTo, loc)
			if !ok {
				continue
			}
			rule.AssignableTo = id
		}
		out = append(out, rule)
	}
	return out
}
