package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toyz/svcplan/internal/errors"
)

// Dialect identifies which registration vocabulary an annotation belongs to.
// Program-model collaborators resolve the dialect before the resolver sees it.
type Dialect int

const (
	DialectUnknown                 Dialect = iota
	DialectNative                          // Service(lifetime), Service(key, lifetime)
	DialectNativeKeyed                     // KeyedService(key, lifetime)
	DialectExport                          // Export, Export(contract)
	DialectShared                          // Shared
	DialectPartCreation                    // PartCreationPolicy(CreationPolicy.X)
	DialectImport                          // Import(contract) on a constructor parameter
	DialectImportingConstructor            // ImportingConstructor on a constructor
	DialectFromKeyed                       // FromKeyedServices(key) on a constructor parameter
)

var dialectNames = map[Dialect]string{
	DialectUnknown:              "Unknown",
	DialectNative:               "Native",
	DialectNativeKeyed:          "NativeKeyed",
	DialectExport:               "CompositionExport",
	DialectShared:               "CompositionShared",
	DialectPartCreation:         "CompositionPartCreation",
	DialectImport:               "CompositionImport",
	DialectImportingConstructor: "CompositionImportingConstructor",
	DialectFromKeyed:            "NativeFromKeyed",
}

// String returns the string representation of the dialect
func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// ValueKind is the kind of an annotation argument
type ValueKind int

const (
	ValueNone ValueKind = iota // absent; as a registration key it means "no key"
	ValueNull
	ValueString
	ValueInt
	ValueFloat
	ValueBool
	ValueChar
	ValueEnum
	ValueType
)

// String returns the string representation of the value kind
func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueBool:
		return "bool"
	case ValueChar:
		return "char"
	case ValueEnum:
		return "enum"
	case ValueType:
		return "type"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// IsPrimitive reports whether values of this kind are primitive constants
func (k ValueKind) IsPrimitive() bool {
	switch k {
	case ValueString, ValueInt, ValueFloat, ValueBool, ValueChar:
		return true
	}
	return false
}

// Value is a typed, comparable annotation argument. Two values are the same
// registration key iff they compare equal with ==.
type Value struct {
	Kind    ValueKind
	Text    string // literal text: string contents, digits, true/false, the char, enum member or type name
	Enum    string // enum type name as written, for ValueEnum
	Ordinal int    // enum ordinal, -1 when the member is not known
	Type    TypeID // referenced type, for ValueType
}

// NoValue is the absent value
var NoValue = Value{}

// IsZero reports whether the value is absent
func (v Value) IsZero() bool {
	return v.Kind == ValueNone
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Kind: ValueString, Text: s}
}

// IntValue creates an integer value
func IntValue(n int64) Value {
	return Value{Kind: ValueInt, Text: strconv.FormatInt(n, 10)}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Text: strconv.FormatBool(b)}
}

// EnumValue creates an enum member value
func EnumValue(enum, member string, ordinal int) Value {
	return Value{Kind: ValueEnum, Enum: enum, Text: member, Ordinal: ordinal}
}

// LifetimeValue creates a ServiceLifetime enum value
func LifetimeValue(l Lifetime) Value {
	return EnumValue(LifetimeEnum, l.String(), int(l))
}

// TypeValue creates a typeof(...) value
func TypeValue(id TypeID, name string) Value {
	return Value{Kind: ValueType, Type: id, Text: name}
}

// Well-known enum type names
const (
	LifetimeEnum       = "ServiceLifetime"
	CreationPolicyEnum = "CreationPolicy"
)

// IsEnumOf reports whether the value is a member of the named enum.
// The enum may be written qualified; only its last segment is compared.
func (v Value) IsEnumOf(enum string) bool {
	if v.Kind != ValueEnum {
		return false
	}
	name := v.Enum
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name == enum
}

// Lifetime returns the lifetime carried by a ServiceLifetime value
func (v Value) Lifetime() (Lifetime, bool) {
	if !v.IsEnumOf(LifetimeEnum) {
		return Singleton, false
	}
	l := Lifetime(v.Ordinal)
	return l, l.Valid()
}

// String renders the value in source form
func (v Value) String() string {
	switch v.Kind {
	case ValueNone:
		return ""
	case ValueNull:
		return "null"
	case ValueString:
		return strconv.Quote(v.Text)
	case ValueChar:
		return "'" + v.Text + "'"
	case ValueEnum:
		return v.Enum + "." + v.Text
	case ValueType:
		return "typeof(" + v.Text + ")"
	default:
		return v.Text
	}
}

// Annotation is a dialect-tagged attribute attached to a type, constructor or parameter
type Annotation struct {
	Dialect     Dialect
	Name        string  // name as written
	Args        []Value // positional arguments in order
	ServiceType TypeID  // generic service-type argument, e.g. Service<IFoo>
	Location    errors.SourceLocation
}

// Arity returns the number of positional arguments
func (a Annotation) Arity() int {
	return len(a.Args)
}

// Arg returns the i-th argument or NoValue
func (a Annotation) Arg(i int) Value {
	if i < 0 || i >= len(a.Args) {
		return NoValue
	}
	return a.Args[i]
}
