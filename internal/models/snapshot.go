package models

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/toyz/svcplan/internal/errors"
)

// builtinSpecs lists the language builtins every snapshot carries
var builtinSpecs = []struct {
	keyword string
	kind    TypeKind
}{
	{"object", KindClass},
	{"string", KindClass},
	{"int", KindStruct},
	{"long", KindStruct},
	{"double", KindStruct},
	{"bool", KindStruct},
	{"char", KindStruct},
}

// Snapshot is the in-memory arena implementation of Program.
// Records are immutable after Build; the only mutable state is the
// intern table for constructed generic types.
type Snapshot struct {
	id uuid.UUID

	mu         sync.RWMutex
	types      []*TypeRecord // slot 0 is NoType
	namespaces []*Namespace  // slot 0 is NoNamespace
	roots      []Root
	builtins   map[string]TypeID
	interned   map[string]TypeID
}

func newSnapshot() *Snapshot {
	s := &Snapshot{
		types:      []*TypeRecord{nil},
		namespaces: []*Namespace{nil},
		builtins:   make(map[string]TypeID),
		interned:   make(map[string]TypeID),
	}
	for _, b := range builtinSpecs {
		id := s.addType(&TypeRecord{Name: b.keyword, Keyword: b.keyword, Kind: b.kind, Accessible: true})
		s.builtins[b.keyword] = id
	}
	return s
}

func (s *Snapshot) addType(rec *TypeRecord) TypeID {
	rec.ID = TypeID(len(s.types))
	s.types = append(s.types, rec)
	return rec.ID
}

func (s *Snapshot) addNamespace(ns *Namespace) NamespaceID {
	ns.ID = NamespaceID(len(s.namespaces))
	s.namespaces = append(s.namespaces, ns)
	return ns.ID
}

// Identity returns the snapshot's content identity
func (s *Snapshot) Identity() uuid.UUID {
	return s.id
}

// Roots returns the traversal roots, global first
func (s *Snapshot) Roots() []Root {
	return s.roots
}

// NamespaceMembers returns the child namespaces and top-level types of ns
func (s *Snapshot) NamespaceMembers(ns NamespaceID) ([]NamespaceID, []TypeID) {
	n := s.namespace(ns)
	if n == nil {
		return nil, nil
	}
	return n.Children, n.Types
}

func (s *Snapshot) namespace(id NamespaceID) *Namespace {
	if !id.Valid() || int(id) >= len(s.namespaces) {
		return nil
	}
	return s.namespaces[id]
}

// NestedTypes returns the types declared inside id
func (s *Snapshot) NestedTypes(id TypeID) []TypeID {
	if rec := s.Type(id); rec != nil {
		return rec.Nested
	}
	return nil
}

// Type returns the record for id, or nil
func (s *Snapshot) Type(id TypeID) *TypeRecord {
	if !id.Valid() {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.types) {
		return nil
	}
	return s.types[id]
}

// Len returns the number of records in the arena, constructed types included
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.types) - 1
}

// IsAccessible reports the record's own accessibility flag
func (s *Snapshot) IsAccessible(id TypeID) bool {
	rec := s.Type(id)
	return rec != nil && rec.Accessible
}

// Object returns the universal root type
func (s *Snapshot) Object() TypeID {
	return s.builtins["object"]
}

// Builtin returns a builtin type by keyword
func (s *Snapshot) Builtin(keyword string) TypeID {
	return s.builtins[keyword]
}

// Construct returns the interned construction of definition over args.
// Equal arguments always yield the same TypeID.
func (s *Snapshot) Construct(definition TypeID, args ...TypeID) (TypeID, error) {
	def := s.Type(definition)
	if def == nil {
		return NoType, errors.NewModelError("<unknown>", strconv.Itoa(int(definition)), "generic definition does not exist")
	}
	if !def.IsGenericDefinition() {
		return NoType, errors.NewModelError(s.FullName(definition), "construction", "type is not a generic definition")
	}
	if len(args) != len(def.TypeParams) {
		return NoType, errors.NewModelError(s.FullName(definition), "construction",
			"expected "+strconv.Itoa(len(def.TypeParams))+" type arguments, got "+strconv.Itoa(len(args)))
	}

	accessible := def.Accessible
	for _, a := range args {
		rec := s.Type(a)
		if rec == nil {
			return NoType, errors.NewModelError(s.FullName(definition), strconv.Itoa(int(a)), "type argument does not exist")
		}
		accessible = accessible && rec.Accessible
	}

	key := internKey(definition, args)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.interned[key]; ok {
		return id, nil
	}
	rec := &TypeRecord{
		Name:       def.Name,
		Alias:      def.Alias,
		Namespace:  def.Namespace,
		Containing: def.Containing,
		Kind:       def.Kind,
		Abstract:   def.Abstract,
		Accessible: accessible,
		TypeParams: def.TypeParams,
		TypeArgs:   append([]TypeID(nil), args...),
		Definition: definition,
		Location:   def.Location,
	}
	id := s.addType(rec)
	s.interned[key] = id
	return id, nil
}

func internKey(definition TypeID, args []TypeID) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(definition)))
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(a)))
	}
	sb.WriteByte('>')
	return sb.String()
}

// FullName renders the fully qualified display name of id
func (s *Snapshot) FullName(id TypeID) string {
	rec := s.Type(id)
	if rec == nil {
		return ""
	}
	if rec.Keyword != "" {
		return rec.Keyword
	}
	if rec.Kind == KindTypeParameter {
		return rec.Name
	}
	name := s.qualifiedName(rec)
	if rec.Alias != "" {
		return rec.Alias + "::" + name
	}
	return name
}

func (s *Snapshot) qualifiedName(rec *TypeRecord) string {
	var sb strings.Builder
	if rec.Containing.Valid() {
		if outer := s.Type(rec.Containing); outer != nil {
			sb.WriteString(s.qualifiedName(outer))
			sb.WriteByte('.')
		}
	} else if path := s.namespacePath(rec.Namespace); path != "" {
		sb.WriteString(path)
		sb.WriteByte('.')
	}
	sb.WriteString(rec.Name)

	var generic []TypeID
	switch {
	case rec.IsConstructed():
		generic = rec.TypeArgs
	case rec.IsGenericDefinition():
		generic = rec.TypeParams
	}
	if len(generic) > 0 {
		sb.WriteByte('<')
		for i, g := range generic {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.FullName(g))
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

func (s *Snapshot) namespacePath(id NamespaceID) string {
	var parts []string
	for n := s.namespace(id); n != nil && n.Name != ""; n = s.namespace(n.Parent) {
		parts = append(parts, n.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

var _ Program = (*Snapshot)(nil)
