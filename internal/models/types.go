package models

import (
	"fmt"
	"strings"

	"github.com/toyz/svcplan/internal/errors"
)

// TypeID is a value-comparable handle into a Snapshot's type arena.
// The zero value is NoType.
type TypeID int32

// NoType is the TypeID that refers to nothing
const NoType TypeID = 0

// Valid reports whether the id refers to an arena slot
func (id TypeID) Valid() bool {
	return id > 0
}

// NamespaceID is a handle into a Snapshot's namespace arena
type NamespaceID int32

// NoNamespace is the NamespaceID that refers to nothing
const NoNamespace NamespaceID = 0

// Valid reports whether the id refers to an arena slot
func (id NamespaceID) Valid() bool {
	return id > 0
}

// TypeKind represents the kind of a declared type
type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindStruct
	KindEnum
	KindTypeParameter
)

// String returns the string representation of the kind
func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTypeParameter:
		return "typeparam"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

// ParseTypeKind converts a kind name back to a TypeKind
func ParseTypeKind(s string) (TypeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	case "struct":
		return KindStruct, nil
	case "enum":
		return KindEnum, nil
	default:
		return KindClass, errors.NewValidationError("kind", "class, interface, struct or enum", s)
	}
}

// Variance is the declared variance of a generic type parameter
type Variance int

const (
	Invariant     Variance = iota
	Covariant              // out
	Contravariant          // in
)

// String returns the keyword form of the variance
func (v Variance) String() string {
	switch v {
	case Covariant:
		return "out"
	case Contravariant:
		return "in"
	default:
		return "none"
	}
}

// ParseVariance converts "out", "in" or "none" to a Variance
func ParseVariance(s string) (Variance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return Invariant, nil
	case "out":
		return Covariant, nil
	case "in":
		return Contravariant, nil
	default:
		return Invariant, errors.NewValidationError("variance", "out, in or none", s)
	}
}

// TypeParameter describes a generic parameter and its constraints
type TypeParameter struct {
	Owner         TypeID   // generic definition declaring the parameter
	Ordinal       int      // position in the owner's parameter list
	Variance      Variance // declared variance
	ReferenceType bool     // class constraint
	ValueType     bool     // struct constraint
	Constructor   bool     // new() constraint
	Constraints   []TypeID // base class and interface constraints
}

// Parameter is a constructor parameter
type Parameter struct {
	Name        string
	Type        TypeID
	Annotations []Annotation
}

// Constructor is an instance constructor of a type
type Constructor struct {
	Accessible  bool
	Parameters  []Parameter
	Annotations []Annotation
	Location    errors.SourceLocation
}

// HasAnnotation reports whether the constructor carries an annotation of the given dialect
func (c Constructor) HasAnnotation(d Dialect) bool {
	for _, a := range c.Annotations {
		if a.Dialect == d {
			return true
		}
	}
	return false
}

// TypeRecord is the arena record for a named type, a constructed generic
// type or a type parameter. Records are read-only once a Snapshot is built.
type TypeRecord struct {
	ID         TypeID
	Name       string      // simple name without generic arity
	Alias      string      // extern alias of the declaring assembly, "" for global
	Keyword    string      // language keyword for builtin types (object, string, ...)
	Namespace  NamespaceID // declaring namespace, NoNamespace for nested and builtin types
	Containing TypeID      // containing type for nested types
	Kind       TypeKind
	Abstract   bool
	Accessible bool

	Base       TypeID   // direct base class, NoType means the universal root
	Interfaces []TypeID // declared interfaces, possibly constructed generics

	TypeParams []TypeID // type parameter records of a generic definition
	TypeArgs   []TypeID // type arguments of a constructed type
	Definition TypeID   // generic definition of a constructed type

	Parameter *TypeParameter // set for KindTypeParameter records

	Constructors []Constructor
	Annotations  []Annotation
	Nested       []TypeID
	Location     errors.SourceLocation
}

// IsGenericDefinition reports whether the record declares type parameters
// and is not itself a construction
func (r *TypeRecord) IsGenericDefinition() bool {
	return len(r.TypeParams) > 0 && !r.Definition.Valid()
}

// IsConstructed reports whether the record is a constructed generic type
func (r *TypeRecord) IsConstructed() bool {
	return r.Definition.Valid()
}

// IsBuiltin reports whether the record is a language builtin
func (r *TypeRecord) IsBuiltin() bool {
	return r.Keyword != ""
}

// Annotated returns the annotations of the given dialect, in declaration order
func (r *TypeRecord) Annotated(d Dialect) []Annotation {
	var out []Annotation
	for _, a := range r.Annotations {
		if a.Dialect == d {
			out = append(out, a)
		}
	}
	return out
}

// Namespace is a node of the namespace tree
type Namespace struct {
	ID       NamespaceID
	Name     string // simple name, "" for a root
	Parent   NamespaceID
	Children []NamespaceID
	Types    []TypeID
}

// Root is a traversal entry point: the global namespace or the namespace
// tree of an aliased reference
type Root struct {
	Alias     string
	Namespace NamespaceID
}
