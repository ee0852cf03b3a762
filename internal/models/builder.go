package models

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/toyz/svcplan/internal/errors"
)

// snapshotSpace is the UUID namespace for content-derived snapshot identities
var snapshotSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/toyz/svcplan/snapshot"))

// IdentityOf derives a snapshot identity from arbitrary content bytes
func IdentityOf(content []byte) uuid.UUID {
	return uuid.NewSHA1(snapshotSpace, content)
}

// Builder provides a fluent interface for building program snapshots
type Builder struct {
	snap     *Snapshot
	roots    map[string]*NamespaceBuilder
	errs     *errors.MultipleErrors
	identity uuid.UUID
	built    bool
}

// NewBuilder creates a builder whose snapshot already holds the builtin types
// and an empty global namespace
func NewBuilder() *Builder {
	b := &Builder{
		snap:  newSnapshot(),
		roots: make(map[string]*NamespaceBuilder),
		errs:  errors.NewMultipleErrors(),
	}
	b.Root("")
	return b
}

// Global returns the global namespace
func (b *Builder) Global() *NamespaceBuilder {
	return b.Root("")
}

// Root returns the root namespace for an extern alias, creating it on first
// use. The empty alias is the global namespace.
func (b *Builder) Root(alias string) *NamespaceBuilder {
	if nb, ok := b.roots[alias]; ok {
		return nb
	}
	id := b.snap.addNamespace(&Namespace{})
	b.snap.roots = append(b.snap.roots, Root{Alias: alias, Namespace: id})
	nb := &NamespaceBuilder{b: b, id: id, alias: alias}
	b.roots[alias] = nb
	return nb
}

// Builtin returns a builtin type by keyword
func (b *Builder) Builtin(keyword string) TypeID {
	return b.snap.Builtin(keyword)
}

// Object returns the universal root type
func (b *Builder) Object() TypeID {
	return b.snap.Object()
}

// Construct constructs a generic definition; failures are reported by Build
func (b *Builder) Construct(definition TypeID, args ...TypeID) TypeID {
	id, err := b.snap.Construct(definition, args...)
	if err != nil {
		b.fail(err)
		return NoType
	}
	return id
}

// Program exposes the snapshot under construction, for callers that need
// names or relations while still adding types
func (b *Builder) Program() Program {
	return b.snap
}

// WithIdentity overrides the content-derived identity
func (b *Builder) WithIdentity(id uuid.UUID) *Builder {
	b.identity = id
	return b
}

// Fail records an error that Build will report
func (b *Builder) Fail(err error) {
	b.fail(err)
}

func (b *Builder) fail(err error) {
	var pe errors.PlanError
	if errors.As(err, &pe) {
		b.errs.Add(pe)
		return
	}
	b.errs.Add(errors.Wrap(errors.ModelErrorCode, "invalid snapshot", err))
}

// Build validates the graph and returns the finished snapshot
func (b *Builder) Build() (*Snapshot, error) {
	if b.built {
		return nil, errors.New(errors.ModelErrorCode, "builder already used")
	}
	b.built = true
	b.validate()
	if err := b.errs.ErrOrNil(); err != nil {
		return nil, err
	}
	if b.identity == uuid.Nil {
		h := sha256.New()
		b.fingerprint(h)
		b.identity = IdentityOf(h.Sum(nil))
	}
	b.snap.id = b.identity
	return b.snap, nil
}

// MustBuild is Build for fixtures; it panics on an invalid graph
func (b *Builder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Builder) validate() {
	s := b.snap
	for _, rec := range s.types[1:] {
		name := s.FullName(rec.ID)
		if rec.Base.Valid() {
			base := s.Type(rec.Base)
			switch {
			case base == nil:
				b.errs.Add(errors.NewModelError(name, fmt.Sprintf("#%d", rec.Base), "base type does not exist"))
			case base.Kind != KindClass || rec.Kind != KindClass:
				b.errs.Add(errors.NewModelError(name, s.FullName(rec.Base), "only classes can derive from classes"))
			}
		}
		for _, i := range rec.Interfaces {
			iface := s.Type(i)
			switch {
			case iface == nil:
				b.errs.Add(errors.NewModelError(name, fmt.Sprintf("#%d", i), "interface does not exist"))
			case iface.Kind != KindInterface:
				b.errs.Add(errors.NewModelError(name, s.FullName(i), "implemented type is not an interface"))
			}
		}
		for _, c := range rec.Constructors {
			for _, p := range c.Parameters {
				if s.Type(p.Type) == nil {
					b.errs.Add(errors.NewModelError(name, p.Name, "constructor parameter type does not exist"))
				}
			}
		}
	}
}

// fingerprint writes a canonical description of the declared graph
func (b *Builder) fingerprint(w io.Writer) {
	s := b.snap
	for _, r := range s.roots {
		fmt.Fprintf(w, "root %q %d\n", r.Alias, r.Namespace)
	}
	for _, ns := range s.namespaces[1:] {
		fmt.Fprintf(w, "ns %d %q %d %v %v\n", ns.ID, ns.Name, ns.Parent, ns.Children, ns.Types)
	}
	for _, rec := range s.types[1:] {
		fmt.Fprintf(w, "type %d %s %s a=%t acc=%t base=%d ifaces=%v params=%v args=%v def=%d nested=%v\n",
			rec.ID, s.FullName(rec.ID), rec.Kind, rec.Abstract, rec.Accessible, rec.Base,
			rec.Interfaces, rec.TypeParams, rec.TypeArgs, rec.Definition, rec.Nested)
		if p := rec.Parameter; p != nil {
			fmt.Fprintf(w, "  param %d %s %t %t %t %v\n", p.Ordinal, p.Variance, p.ReferenceType, p.ValueType, p.Constructor, p.Constraints)
		}
		for _, a := range rec.Annotations {
			fmt.Fprintf(w, "  ann %s %v %d %s\n", a.Dialect, a.Args, a.ServiceType, a.Location)
		}
		for _, c := range rec.Constructors {
			fmt.Fprintf(w, "  ctor %t %s\n", c.Accessible, c.Location)
			for _, a := range c.Annotations {
				fmt.Fprintf(w, "    ann %s %v\n", a.Dialect, a.Args)
			}
			for _, p := range c.Parameters {
				fmt.Fprintf(w, "    param %s %d\n", p.Name, p.Type)
				for _, a := range p.Annotations {
					fmt.Fprintf(w, "      ann %s %v\n", a.Dialect, a.Args)
				}
			}
		}
		if !rec.Location.IsEmpty() {
			fmt.Fprintf(w, "  at %s\n", rec.Location)
		}
	}
}

// NamespaceBuilder adds child namespaces and types to a namespace
type NamespaceBuilder struct {
	b     *Builder
	id    NamespaceID
	alias string
}

// ID returns the namespace handle
func (n *NamespaceBuilder) ID() NamespaceID {
	return n.id
}

// Namespace returns the (dotted) child namespace, creating missing segments
func (n *NamespaceBuilder) Namespace(dotted string) *NamespaceBuilder {
	cur := n
	for _, seg := range strings.Split(dotted, ".") {
		if seg == "" {
			continue
		}
		cur = cur.child(seg)
	}
	return cur
}

func (n *NamespaceBuilder) child(name string) *NamespaceBuilder {
	s := n.b.snap
	parent := s.namespace(n.id)
	for _, c := range parent.Children {
		if ns := s.namespace(c); ns.Name == name && ns.Parent == n.id {
			return &NamespaceBuilder{b: n.b, id: c, alias: n.alias}
		}
	}
	id := s.addNamespace(&Namespace{Name: name, Parent: n.id})
	parent.Children = append(parent.Children, id)
	return &NamespaceBuilder{b: n.b, id: id, alias: n.alias}
}

// Link makes an existing namespace reachable a second time through n,
// the way a namespace can be reached through more than one reference path
func (n *NamespaceBuilder) Link(other *NamespaceBuilder) *NamespaceBuilder {
	parent := n.b.snap.namespace(n.id)
	parent.Children = append(parent.Children, other.id)
	return n
}

// Class declares a class in the namespace
func (n *NamespaceBuilder) Class(name string) *TypeBuilder {
	return n.Type(name, KindClass)
}

// Interface declares an interface in the namespace
func (n *NamespaceBuilder) Interface(name string) *TypeBuilder {
	return n.Type(name, KindInterface)
}

// Struct declares a struct in the namespace
func (n *NamespaceBuilder) Struct(name string) *TypeBuilder {
	return n.Type(name, KindStruct)
}

// Type declares a type of the given kind in the namespace
func (n *NamespaceBuilder) Type(name string, kind TypeKind) *TypeBuilder {
	s := n.b.snap
	rec := &TypeRecord{Name: name, Alias: n.alias, Namespace: n.id, Kind: kind, Accessible: true}
	id := s.addType(rec)
	ns := s.namespace(n.id)
	ns.Types = append(ns.Types, id)
	return &TypeBuilder{b: n.b, rec: rec}
}

// ParamSpec declares a generic type parameter
type ParamSpec struct {
	Name          string
	Variance      Variance
	ReferenceType bool
	ValueType     bool
	Constructor   bool
	Constraints   []TypeID
}

// TypeBuilder configures a single type record
type TypeBuilder struct {
	b   *Builder
	rec *TypeRecord
}

// ID returns the type handle
func (t *TypeBuilder) ID() TypeID {
	return t.rec.ID
}

// Abstract marks the type abstract
func (t *TypeBuilder) Abstract() *TypeBuilder {
	t.rec.Abstract = true
	return t
}

// Inaccessible hides the type from generated code
func (t *TypeBuilder) Inaccessible() *TypeBuilder {
	t.rec.Accessible = false
	return t
}

// Extends sets the direct base class
func (t *TypeBuilder) Extends(base TypeID) *TypeBuilder {
	t.rec.Base = base
	return t
}

// Implements appends declared interfaces
func (t *TypeBuilder) Implements(ifaces ...TypeID) *TypeBuilder {
	t.rec.Interfaces = append(t.rec.Interfaces, ifaces...)
	return t
}

// Generic declares the type's parameters, making it a generic definition
func (t *TypeBuilder) Generic(params ...ParamSpec) *TypeBuilder {
	for _, p := range params {
		param := &TypeRecord{
			Name:       p.Name,
			Alias:      t.rec.Alias,
			Containing: t.rec.ID,
			Kind:       KindTypeParameter,
			Accessible: true,
			Parameter: &TypeParameter{
				Owner:         t.rec.ID,
				Ordinal:       len(t.rec.TypeParams),
				Variance:      p.Variance,
				ReferenceType: p.ReferenceType,
				ValueType:     p.ValueType,
				Constructor:   p.Constructor,
				Constraints:   append([]TypeID(nil), p.Constraints...),
			},
		}
		t.rec.TypeParams = append(t.rec.TypeParams, t.b.snap.addType(param))
	}
	return t
}

// Param returns the i-th type parameter of a generic definition
func (t *TypeBuilder) Param(i int) TypeID {
	if i < 0 || i >= len(t.rec.TypeParams) {
		return NoType
	}
	return t.rec.TypeParams[i]
}

// Constrain adds constraint types to the i-th type parameter
func (t *TypeBuilder) Constrain(i int, constraints ...TypeID) *TypeBuilder {
	p := t.b.snap.Type(t.Param(i))
	if p == nil {
		t.b.fail(errors.NewModelError(t.rec.Name, fmt.Sprintf("type parameter %d", i), "no such type parameter"))
		return t
	}
	p.Parameter.Constraints = append(p.Parameter.Constraints, constraints...)
	return t
}

// Annotate attaches annotations to the type
func (t *TypeBuilder) Annotate(annotations ...Annotation) *TypeBuilder {
	t.rec.Annotations = append(t.rec.Annotations, annotations...)
	return t
}

// Constructor declares an instance constructor
func (t *TypeBuilder) Constructor(c Constructor) *TypeBuilder {
	t.rec.Constructors = append(t.rec.Constructors, c)
	return t
}

// At sets the declaration location
func (t *TypeBuilder) At(loc errors.SourceLocation) *TypeBuilder {
	t.rec.Location = loc
	return t
}

// Nested declares a type nested inside this one
func (t *TypeBuilder) Nested(name string, kind TypeKind) *TypeBuilder {
	rec := &TypeRecord{Name: name, Alias: t.rec.Alias, Containing: t.rec.ID, Kind: kind, Accessible: true}
	id := t.b.snap.addType(rec)
	t.rec.Nested = append(t.rec.Nested, id)
	return &TypeBuilder{b: t.b, rec: rec}
}
