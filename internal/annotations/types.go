package annotations

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Expression is the root of an annotation, e.g.
//
//	[KeyedService<Acme.IFoo>("primary", ServiceLifetime.Scoped)]
//	Import("contract") on repo
type Expression struct {
	Pos lexer.Position

	Open    bool       `parser:"@'['?"`
	Name    string     `parser:"@Ident ( @'.' @Ident )*"`
	Generic *TypeRef   `parser:"( '<' @@ '>' )?"`
	Call    *CallExpr  `parser:"@@?"`
	Close   bool       `parser:"@']'?"`
	Target  string     `parser:"( 'on' @Ident )?"`
}

// CallExpr is the parenthesized argument list of an annotation
type CallExpr struct {
	Open bool       `parser:"@'('"`
	Args []*ArgExpr `parser:"( @@ ( ',' @@ )* )? ')'"`
}

// Args returns the positional arguments, nil for the bare form
func (e *Expression) Args() []*ArgExpr {
	if e.Call == nil {
		return nil
	}
	return e.Call.Args
}

// SimpleName returns the last segment of the name without an Attribute suffix
func (e *Expression) SimpleName() string {
	return simpleName(e.Name)
}

// String renders the expression in canonical form
func (e *Expression) String() string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	if e.Generic != nil {
		sb.WriteByte('<')
		sb.WriteString(e.Generic.String())
		sb.WriteByte('>')
	}
	if e.Call != nil {
		sb.WriteByte('(')
		for i, a := range e.Call.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte(')')
	}
	if e.Target != "" {
		sb.WriteString(" on ")
		sb.WriteString(e.Target)
	}
	return sb.String()
}

// TypeRef is a possibly aliased, possibly generic type reference,
// e.g. ext::Acme.IProducer<Acme.Item>
type TypeRef struct {
	Pos lexer.Position

	Alias string     `parser:"( @Ident '::' )?"`
	Name  string     `parser:"@Ident ( @'.' @Ident )*"`
	Args  []*TypeRef `parser:"( '<' @@ ( ',' @@ )* '>' )?"`
}

// String renders the reference in canonical form
func (t *TypeRef) String() string {
	var sb strings.Builder
	if t.Alias != "" {
		sb.WriteString(t.Alias)
		sb.WriteString("::")
	}
	sb.WriteString(t.Name)
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

// ArgExpr is a single positional annotation argument
type ArgExpr struct {
	Pos lexer.Position

	TypeOf *TypeRef `parser:"  'typeof' '(' @@ ')'"`
	Str    *string  `parser:"| @String"`
	Char   *string  `parser:"| @Char"`
	Number *string  `parser:"| @Number"`
	Bool   *string  `parser:"| @( 'true' | 'false' )"`
	Null   bool     `parser:"| @'null'"`
	Member *string  `parser:"| @Ident ( @'.' @Ident )*"`
}

// String renders the argument in canonical form
func (a *ArgExpr) String() string {
	switch {
	case a.TypeOf != nil:
		return "typeof(" + a.TypeOf.String() + ")"
	case a.Str != nil:
		return strconv.Quote(*a.Str)
	case a.Char != nil:
		return "'" + *a.Char + "'"
	case a.Number != nil:
		return *a.Number
	case a.Bool != nil:
		return *a.Bool
	case a.Null:
		return "null"
	case a.Member != nil:
		return *a.Member
	default:
		return ""
	}
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func simpleName(name string) string {
	name = lastSegment(name)
	if trimmed := strings.TrimSuffix(name, "Attribute"); trimmed != "" {
		name = trimmed
	}
	return name
}
