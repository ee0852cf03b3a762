// Package emit renders a registration plan of a scanned Go program as an
// fx module.
//
// Singletons are provided by their constructors. Scoped and transient
// services have no fx equivalent and are provided as factories, funcs that
// construct a new value on every call. Keyed services and keyed constructor
// parameters become fx name tags. Every alias the implementation is
// assignable to is provided by forwarding the implementation's own
// registration.
package emit

import (
	"fmt"
	"go/types"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/toyz/svcplan/internal/classify"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/goscan"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/plan"
	"github.com/toyz/svcplan/internal/utils"
)

// FxImportPath is the import path of the container the generated code targets
const FxImportPath = "go.uber.org/fx"

// GeneratedHeader is the first line of every generated file
const GeneratedHeader = "// Code generated by svcplan. DO NOT EDIT."

// DefaultPackage is the package clause used when none is given
const DefaultPackage = "services"

// SymbolTable maps type records to Go declarations
type SymbolTable interface {
	Lookup(id models.TypeID) (goscan.Symbol, bool)
}

// Options controls generated source
type Options struct {
	// Package is the package clause of the generated file
	Package string
	// ImportPath is the import path of the generated package; declarations
	// in it are referenced unqualified. Empty when the file lives elsewhere.
	ImportPath string
	// Module names the fx.Module; defaults to Package
	Module string
}

type groupData struct {
	Name      string
	Lifetime  string
	Factories bool
	Provides  []provideData
}

type provideData struct {
	Comment string
	Expr    string
}

type fileData struct {
	Header  string
	Package string
	Module  string
	Imports string
	Groups  []groupData
}

// Generator renders plans into Go source
type Generator struct {
	symbols  SymbolTable
	options  Options
	registry *TemplateRegistry
	imports  *ImportManager
}

// NewGenerator creates a generator resolving declarations through symbols
func NewGenerator(symbols SymbolTable, options Options) *Generator {
	if options.Package == "" {
		options.Package = DefaultPackage
	}
	if options.Module == "" {
		options.Module = options.Package
	}
	return &Generator{
		symbols:  symbols,
		options:  options,
		registry: NewTemplateRegistry(),
	}
}

// Generate renders p as a formatted Go file
func Generate(p *plan.Plan, symbols SymbolTable, options Options) ([]byte, error) {
	return NewGenerator(symbols, options).Generate(p)
}

// Generate renders p as a formatted Go file
func (g *Generator) Generate(p *plan.Plan) ([]byte, error) {
	if !identifier(g.options.Package) {
		return nil, errors.NewValidationError("package", "a Go identifier", strconv.Quote(g.options.Package))
	}
	g.imports = NewImportManager(g.options.ImportPath)
	g.imports.AddImport(FxImportPath)

	var groups []groupData
	for _, l := range []models.Lifetime{models.Singleton, models.Scoped, models.Transient} {
		group := groupData{
			Name:      l.String() + "Services",
			Lifetime:  strings.ToLower(l.String()),
			Factories: l != models.Singleton,
		}
		for _, keyed := range []bool{false, true} {
			for _, s := range p.Bucket(l, keyed) {
				provides, err := g.service(s, group.Factories)
				if err != nil {
					return nil, err
				}
				group.Provides = append(group.Provides, provides...)
			}
		}
		groups = append(groups, group)
	}

	src, err := executeTemplate("file", g.registry.MustGet("file"), fileData{
		Header:  GeneratedHeader,
		Package: g.options.Package,
		Module:  g.options.Module,
		Imports: g.imports.GenerateImports(),
		Groups:  groups,
	})
	if err != nil {
		return nil, err
	}
	formatted, err := utils.FormatGoCode([]byte(src))
	if err != nil {
		return nil, errors.Wrap(errors.SyntaxErrorCode, "generated registration code does not parse", err).
			WithContext("package", g.options.Package)
	}
	return formatted, nil
}

// constructor is the Go side of a constructor selection
type constructor struct {
	fn      string // function expression
	call    string // call expression, arguments included
	params  []string
	result  types.Type
	hasErr  bool
	binding []classify.Binding
}

func (g *Generator) constructor(s plan.Service, sym goscan.Symbol) constructor {
	sel := s.Constructor
	if sel.Constructor < 0 || sel.Constructor >= len(sym.Constructors) {
		ptr := types.NewPointer(sym.Type)
		elem := g.imports.TypeString(sym.Type)
		return constructor{
			fn:     fmt.Sprintf("func() %s { return new(%s) }", g.imports.TypeString(ptr), elem),
			call:   fmt.Sprintf("new(%s)", elem),
			result: ptr,
		}
	}

	f := sym.Constructors[sel.Constructor]
	sig := f.Type().(*types.Signature)
	fn := f.Name()
	if q := g.imports.Name(f.Pkg()); q != "" {
		fn = q + "." + fn
	}

	c := constructor{
		fn:      fn,
		result:  sig.Results().At(0).Type(),
		hasErr:  sig.Results().Len() == 2,
		binding: sel.Parameters,
	}
	args := make([]string, sig.Params().Len())
	for i := range args {
		args[i] = "p" + strconv.Itoa(i)
		c.params = append(c.params, g.imports.TypeString(sig.Params().At(i).Type()))
	}
	if sig.Variadic() && len(args) > 0 {
		args[len(args)-1] += "..."
	}
	c.call = fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
	return c
}

func (c constructor) results(t string) string {
	if c.hasErr {
		return "(" + t + ", error)"
	}
	return t
}

func (g *Generator) service(s plan.Service, factories bool) ([]provideData, error) {
	sym, ok := g.symbols.Lookup(s.Implementation)
	if !ok {
		return nil, errors.NewModelError(s.FullName, "Go declaration", "the type was not scanned from Go sources").
			WithLocation(s.Location)
	}
	c := g.constructor(s, sym)

	var keyTag string
	if s.Keyed() {
		keyTag = nameTag(s.Key)
	}
	label := s.FullName
	if s.Keyed() {
		label += " [" + s.Key.String() + "]"
	}

	var annotations []string
	if tags, ok := paramTags(c.binding); ok {
		annotations = append(annotations, "fx.ParamTags("+strings.Join(tags, ", ")+")")
	}
	if keyTag != "" {
		annotations = append(annotations, "fx.ResultTags("+tagLiteral(keyTag)+")")
	}

	self := g.imports.TypeString(c.result)
	fn := c.fn
	if factories {
		self = "func() " + c.results(self)
		params := make([]map[string]string, len(c.params))
		for i, t := range c.params {
			params[i] = map[string]string{"Name": "p" + strconv.Itoa(i), "Type": t}
		}
		var err error
		fn, err = executeTemplate("factory", g.registry.MustGet("factory"), map[string]any{
			"Params":  params,
			"Factory": self,
			"Results": c.results(g.imports.TypeString(c.result)),
			"Call":    c.call,
		})
		if err != nil {
			return nil, err
		}
	}

	expr, err := executeTemplate("provider", g.registry.MustGet("provider"), map[string]any{
		"Func":        fn,
		"Annotations": annotations,
	})
	if err != nil {
		return nil, err
	}
	out := []provideData{{Comment: label, Expr: expr}}

	for _, a := range s.Aliases {
		if a.Self {
			continue
		}
		asym, ok := g.symbols.Lookup(a.Type)
		if !ok || !types.AssignableTo(c.result, asym.Type) {
			continue
		}
		provide, err := g.forward(c, self, asym.Type, keyTag, factories)
		if err != nil {
			return nil, err
		}
		provide.Comment = label + " as " + a.FullName
		out = append(out, provide)
	}
	return out, nil
}

// forward provides the registration of type from as alias
func (g *Generator) forward(c constructor, from string, alias types.Type, keyTag string, factories bool) (provideData, error) {
	to := g.imports.TypeString(alias)
	value := "v"
	if factories {
		to = "func() " + c.results(to)
		value = to + " {\n\t\treturn v()\n\t}"
	}
	fn, err := executeTemplate("forward", g.registry.MustGet("forward"), map[string]string{
		"From":  from,
		"To":    to,
		"Value": value,
	})
	if err != nil {
		return provideData{}, err
	}

	var annotations []string
	if keyTag != "" {
		annotations = append(annotations,
			"fx.ParamTags("+tagLiteral(keyTag)+")",
			"fx.ResultTags("+tagLiteral(keyTag)+")")
	}
	expr, err := executeTemplate("provider", g.registry.MustGet("provider"), map[string]any{
		"Func":        fn,
		"Annotations": annotations,
	})
	return provideData{Expr: expr}, err
}

// paramTags returns one tag per parameter when any parameter is keyed
func paramTags(bindings []classify.Binding) ([]string, bool) {
	keyed := false
	tags := make([]string, len(bindings))
	for i, b := range bindings {
		tags[i] = `""`
		if b.Keyed {
			tags[i] = tagLiteral(nameTag(b.Key))
			keyed = true
		}
	}
	return tags, keyed
}

// nameTag returns the fx name tag of a registration key
func nameTag(key models.Value) string {
	text := key.Text
	if key.Kind != models.ValueString {
		text = key.String()
	}
	return "name:" + strconv.Quote(text)
}

// tagLiteral quotes a tag as a Go string literal, raw when possible
func tagLiteral(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// PackageName returns the package clause for a file written to dir
func PackageName(dir string) string {
	if name := filepath.Base(dir); identifier(name) {
		return name
	}
	return DefaultPackage
}

func identifier(name string) bool {
	if name == "" || name == "_" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
