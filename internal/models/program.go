package models

import "github.com/google/uuid"

// Program is the read-only view of a declaration graph that the resolver consumes
type Program interface {
	// Identity is stable for identical content and differs otherwise
	Identity() uuid.UUID

	// Roots returns the global namespace followed by every aliased reference root
	Roots() []Root

	// NamespaceMembers returns the child namespaces and the top-level types of ns
	NamespaceMembers(ns NamespaceID) ([]NamespaceID, []TypeID)

	// NestedTypes returns the types declared inside id
	NestedTypes(id TypeID) []TypeID

	// Type returns the record for id, or nil
	Type(id TypeID) *TypeRecord

	// IsAccessible reports whether generated code may reference id
	IsAccessible(id TypeID) bool

	// FullName renders the fully qualified name, e.g. alias::Ns.IProducer<Ns.Item>
	FullName(id TypeID) string

	// Convertible reports whether an implicit reference conversion exists from one type to another
	Convertible(from, to TypeID) bool

	// Construct returns the interned construction of a generic definition
	Construct(definition TypeID, args ...TypeID) (TypeID, error)

	// AllInterfaces returns direct and inherited interfaces in depth-first declaration order
	AllInterfaces(id TypeID) []TypeID

	// BaseTypes returns the base class chain, nearest first, excluding the universal root
	BaseTypes(id TypeID) []TypeID

	// Object returns the universal root type
	Object() TypeID

	// Builtin returns a builtin type by keyword (object, string, int, ...), or NoType
	Builtin(keyword string) TypeID
}
