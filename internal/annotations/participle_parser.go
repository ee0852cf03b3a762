package annotations

import (
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

// annotationLexer tokenizes annotation expressions and type references
var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Char", Pattern: `'(\\.|[^'\\])'`},
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Scope", Pattern: `::`},
	{Name: "Punct", Pattern: `[.,()<>\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// TypeResolver maps a parsed type reference to a program type
type TypeResolver interface {
	ResolveType(ref *TypeRef) (models.TypeID, error)
}

// TypeResolverFunc adapts a function to TypeResolver
type TypeResolverFunc func(ref *TypeRef) (models.TypeID, error)

// ResolveType calls f
func (f TypeResolverFunc) ResolveType(ref *TypeRef) (models.TypeID, error) {
	return f(ref)
}

// Parser parses annotation expressions with alecthomas/participle and
// resolves them into dialect-tagged models.Annotation values
type Parser struct {
	expr     *participle.Parser[Expression]
	typeRef  *participle.Parser[TypeRef]
	registry DialectRegistry
}

// NewParser creates a parser backed by the given registry
func NewParser(registry DialectRegistry) *Parser {
	if registry == nil {
		registry = DefaultRegistry()
	}
	options := []participle.Option{
		participle.Lexer(annotationLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String", "Char"),
		participle.UseLookahead(2),
	}
	return &Parser{
		expr:     participle.MustBuild[Expression](options...),
		typeRef:  participle.MustBuild[TypeRef](options...),
		registry: registry,
	}
}

var (
	defaultParser     *Parser
	defaultParserOnce sync.Once
)

// DefaultParser returns a shared parser over DefaultRegistry
func DefaultParser() *Parser {
	defaultParserOnce.Do(func() {
		defaultParser = NewParser(DefaultRegistry())
	})
	return defaultParser
}

// Registry returns the parser's dialect registry
func (p *Parser) Registry() DialectRegistry {
	return p.registry
}

// Parse parses an annotation expression. loc is where the text starts and
// is used to anchor syntax errors.
func (p *Parser) Parse(text string, loc errors.SourceLocation) (*Expression, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewSyntaxError("empty annotation").WithLocation(loc)
	}
	expr, err := p.expr.ParseString(loc.File, text)
	if err != nil {
		return nil, syntaxError("annotation", text, loc, err)
	}
	if expr.Open != expr.Close {
		return nil, errors.NewSyntaxErrorWithInput("unbalanced brackets", text, 0).WithLocation(loc)
	}
	return expr, nil
}

// ParseTypeRef parses a type reference such as ext::Acme.IProducer<Acme.Item>
func (p *Parser) ParseTypeRef(text string) (*TypeRef, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewSyntaxError("empty type reference")
	}
	ref, err := p.typeRef.ParseString("", text)
	if err != nil {
		return nil, syntaxError("type reference", text, errors.SourceLocation{}, err)
	}
	return ref, nil
}

// Annotation parses text and resolves it in one step, returning the
// annotation and its parameter target ("" when none was written)
func (p *Parser) Annotation(text string, loc errors.SourceLocation, types TypeResolver) (models.Annotation, string, error) {
	expr, err := p.Parse(text, loc)
	if err != nil {
		return models.Annotation{}, "", err
	}
	a, err := p.Resolve(expr, loc, types)
	if err != nil {
		return models.Annotation{}, "", err
	}
	return a, expr.Target, nil
}

// Resolve converts a parsed expression into a models.Annotation.
// Unknown names resolve to DialectUnknown rather than failing; type
// references that cannot be resolved are errors.
func (p *Parser) Resolve(expr *Expression, loc errors.SourceLocation, types TypeResolver) (models.Annotation, error) {
	a := models.Annotation{
		Dialect:  p.registry.Lookup(expr.Name),
		Name:     expr.Name,
		Location: loc,
	}

	if expr.Generic != nil {
		id, err := resolveType(types, expr.Generic)
		if err != nil {
			return models.Annotation{}, err
		}
		a.ServiceType = id
	}

	for _, arg := range expr.Args() {
		v, err := p.value(arg, types)
		if err != nil {
			return models.Annotation{}, err
		}
		a.Args = append(a.Args, v)
	}
	return a, nil
}

func (p *Parser) value(arg *ArgExpr, types TypeResolver) (models.Value, error) {
	switch {
	case arg.TypeOf != nil:
		id, err := resolveType(types, arg.TypeOf)
		if err != nil {
			return models.NoValue, err
		}
		return models.TypeValue(id, arg.TypeOf.String()), nil
	case arg.Str != nil:
		return models.StringValue(*arg.Str), nil
	case arg.Char != nil:
		return models.Value{Kind: models.ValueChar, Text: *arg.Char}, nil
	case arg.Number != nil:
		return numberValue(*arg.Number), nil
	case arg.Bool != nil:
		return models.BoolValue(*arg.Bool == "true"), nil
	case arg.Null:
		return models.Value{Kind: models.ValueNull, Text: "null"}, nil
	case arg.Member != nil:
		enum, member := "", *arg.Member
		if i := strings.LastIndex(member, "."); i >= 0 {
			enum, member = member[:i], member[i+1:]
		}
		ordinal, ok := p.registry.EnumOrdinal(enum, member)
		if !ok {
			ordinal = -1
		}
		return models.EnumValue(enum, member, ordinal), nil
	default:
		return models.NoValue, errors.NewSyntaxError("empty argument")
	}
}

func numberValue(text string) models.Value {
	if strings.Contains(text, ".") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return models.Value{Kind: models.ValueFloat, Text: strconv.FormatFloat(f, 'g', -1, 64)}
		}
		return models.Value{Kind: models.ValueFloat, Text: text}
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return models.IntValue(n)
	}
	return models.Value{Kind: models.ValueInt, Text: text}
}

func resolveType(types TypeResolver, ref *TypeRef) (models.TypeID, error) {
	if types == nil {
		return models.NoType, nil
	}
	id, err := types.ResolveType(ref)
	if err != nil {
		return models.NoType, err
	}
	return id, nil
}

func syntaxError(what, text string, loc errors.SourceLocation, err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return errors.WrapParseError(what, err)
	}
	pos := perr.Position()
	at := loc
	if !at.IsEmpty() {
		if at.Column > 0 {
			at.Column += pos.Column - 1
		}
	}
	return errors.NewSyntaxErrorWithInput("invalid "+what+": "+perr.Message(), text, pos.Offset).
		WithLocation(at).
		WithCause(err)
}

// Parse parses text with the default parser
func Parse(text string, loc errors.SourceLocation) (*Expression, error) {
	return DefaultParser().Parse(text, loc)
}

// ParseTypeRef parses a type reference with the default parser
func ParseTypeRef(text string) (*TypeRef, error) {
	return DefaultParser().ParseTypeRef(text)
}
