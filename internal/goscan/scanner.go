// Package goscan builds a program snapshot from Go packages.
//
// Every named type declared in the loaded packages becomes a type record:
// struct types are classes, interface types are interfaces and all other
// named types are value types. A package's namespace is its directory
// relative to the module root, dotted. Registration annotations are written
// as comment lines on the declaration:
//
//	// SQLRepository stores orders.
//	//
//	//di:Service(ServiceLifetime.Scoped)
//	type SQLRepository struct{ store.RepositoryBase }
//
// Functions named New<Type> returning the type (or a pointer to it, with an
// optional error) are its constructors. Annotations on a constructor that end
// in "on <name>" apply to that parameter.
package goscan

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/toyz/svcplan/internal/annotations"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/utils"
)

// AnnotationPrefix starts a registration annotation comment
const AnnotationPrefix = "//di:"

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo

// Options selects the packages to scan
type Options struct {
	// Dir is the directory patterns are resolved in; "" means the working directory
	Dir string
	// Patterns are go list package patterns; empty means ./...
	Patterns []string
}

// Result is a scanned program
type Result struct {
	Program  *models.Snapshot
	Module   *utils.GoModule
	Packages []string // import paths in namespace order
	Symbols  Symbols
}

// Symbol is the Go declaration behind a type record
type Symbol struct {
	Type types.Type // the named type or its instantiation
	// Constructors are the New<Type> functions in constructor index order
	Constructors []*types.Func
}

// Symbols maps type records back to Go declarations
type Symbols map[models.TypeID]Symbol

// Lookup returns the symbol of id
func (s Symbols) Lookup(id models.TypeID) (Symbol, bool) {
	sym, ok := s[id]
	return sym, ok
}

// Scanner loads Go packages into program snapshots
type Scanner struct {
	parser *annotations.Parser
	gomod  *utils.GoModParser
}

// New creates a scanner using the default annotation dialects
func New() *Scanner {
	return NewWithParser(annotations.DefaultParser())
}

// NewWithParser creates a scanner with a custom annotation parser
func NewWithParser(parser *annotations.Parser) *Scanner {
	return &Scanner{
		parser: parser,
		gomod:  utils.NewGoModParser(utils.NewFileReader()),
	}
}

// Scan loads the packages selected by opts and links them into a snapshot
func Scan(ctx context.Context, opts Options) (*Result, error) {
	return New().Scan(ctx, opts)
}

// Scan loads the packages selected by opts and links them into a snapshot
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("package scan", err)
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	mod, err := s.gomod.FindModule(dir)
	if err != nil {
		return nil, err
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	cfg := &packages.Config{Context: ctx, Dir: dir, Mode: loadMode}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.NewCancelledError("package scan", cerr)
		}
		return nil, errors.Wrap(errors.ModelErrorCode, "failed to load Go packages", err).
			WithContext("patterns", patterns)
	}

	errs := errors.NewMultipleErrors()
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs.Add(packageError(mod, e))
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	l := &linker{
		mod:     mod,
		parser:  s.parser,
		builder: models.NewBuilder(),
		names:   make(map[refKey]models.TypeID),
		objects: make(map[*types.TypeName]*decl),
		symbols: make(Symbols),
		errs:    errs,
	}
	res := &Result{Module: mod, Symbols: l.symbols}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelledError("package scan", err)
		}
		l.declare(pkg)
		res.Packages = append(res.Packages, pkg.PkgPath)
	}
	for _, d := range l.decls {
		l.link(d)
	}
	if err := l.errs.ErrOrNil(); err != nil {
		return nil, err
	}

	snap, err := l.builder.Build()
	if err != nil {
		return nil, errors.WrapModelError(mod.Path, err)
	}
	res.Program = snap
	return res, nil
}

// Namespace returns the dotted namespace of a package import path
func Namespace(mod *utils.GoModule, pkgPath, pkgName string) string {
	rel := strings.TrimPrefix(pkgPath, mod.Path)
	switch {
	case pkgPath == mod.Path:
		return pkgName
	case rel != pkgPath && strings.HasPrefix(rel, "/"):
		return strings.ReplaceAll(strings.TrimPrefix(rel, "/"), "/", ".")
	default:
		return strings.ReplaceAll(pkgPath, "/", ".")
	}
}

func packageError(mod *utils.GoModule, e packages.Error) errors.PlanError {
	loc := parsePosition(mod, e.Pos)
	if e.Kind == packages.ParseError {
		return errors.NewSyntaxError(e.Msg).WithLocation(loc)
	}
	return errors.New(errors.ModelErrorCode, e.Msg).WithLocation(loc)
}

// parsePosition reads go list positions of the form file:line:col
func parsePosition(mod *utils.GoModule, pos string) errors.SourceLocation {
	if pos == "" || pos == "-" {
		return errors.SourceLocation{}
	}
	parts := strings.Split(pos, ":")
	var nums []int
	for len(parts) > 1 && len(nums) < 2 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	loc := errors.SourceLocation{File: relative(mod, strings.Join(parts, ":"))}
	if len(nums) > 0 {
		loc.Line = nums[0]
	}
	if len(nums) > 1 {
		loc.Column = nums[1]
	}
	return loc
}

func relative(mod *utils.GoModule, file string) string {
	if rel, err := filepath.Rel(mod.Dir, file); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return file
}

type refKey struct {
	name  string
	arity int
}

type decl struct {
	pkg      *packages.Package
	ns       string
	obj      *types.TypeName
	named    *types.Named
	tb       *models.TypeBuilder
	kind     models.TypeKind
	doc      *ast.CommentGroup
	ctors    []*ast.FuncDecl
	exported bool
}

func (d *decl) generic() bool {
	return d.named.TypeParams().Len() > 0
}

type linker struct {
	mod        *utils.GoModule
	parser     *annotations.Parser
	builder    *models.Builder
	names      map[refKey]models.TypeID
	objects    map[*types.TypeName]*decl
	decls      []*decl
	interfaces []*decl
	symbols    Symbols
	errs       *errors.MultipleErrors
}

func (l *linker) at(pkg *packages.Package, p token.Pos) errors.SourceLocation {
	pos := pkg.Fset.Position(p)
	return errors.SourceLocation{File: relative(l.mod, pos.Filename), Line: pos.Line, Column: pos.Column}
}

func (l *linker) fail(err error, loc errors.SourceLocation) {
	switch e := err.(type) {
	case *errors.ValidationError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		l.errs.Add(e)
	case *errors.SyntaxError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		l.errs.Add(e)
	case *errors.ModelError:
		if e.Location().IsEmpty() {
			e.WithLocation(loc)
		}
		l.errs.Add(e)
	default:
		l.errs.Add(errors.Wrap(errors.ModelErrorCode, "invalid declaration", err).WithLocation(loc))
	}
}

// sortedFiles returns the package syntax ordered by file name
func sortedFiles(pkg *packages.Package) []*ast.File {
	files := append([]*ast.File(nil), pkg.Syntax...)
	sort.Slice(files, func(i, j int) bool {
		return pkg.Fset.Position(files[i].Package).Filename < pkg.Fset.Position(files[j].Package).Filename
	})
	return files
}

func (l *linker) declare(pkg *packages.Package) {
	ns := Namespace(l.mod, pkg.PkgPath, pkg.Name)
	nb := l.builder.Global().Namespace(ns)
	files := sortedFiles(pkg)

	local := make(map[string]*decl)
	for _, f := range files {
		for _, gd := range f.Decls {
			g, ok := gd.(*ast.GenDecl)
			if !ok || g.Tok != token.TYPE {
				continue
			}
			for _, spec := range g.Specs {
				ts := spec.(*ast.TypeSpec)
				obj, _ := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
				if obj == nil || obj.IsAlias() {
					continue
				}
				named, ok := obj.Type().(*types.Named)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(g.Specs) == 1 {
					doc = g.Doc
				}
				d := l.declareType(pkg, nb, ns, obj, named, doc)
				local[obj.Name()] = d
			}
		}
	}

	for _, f := range files {
		for _, fd := range f.Decls {
			fn, ok := fd.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "New") {
				continue
			}
			d := local[strings.TrimPrefix(fn.Name.Name, "New")]
			if d == nil || d.generic() || !constructs(pkg, fn, d.obj) {
				continue
			}
			d.ctors = append(d.ctors, fn)
		}
	}
}

func (l *linker) declareType(pkg *packages.Package, nb *models.NamespaceBuilder, ns string, obj *types.TypeName, named *types.Named, doc *ast.CommentGroup) *decl {
	kind := kindOf(named.Underlying())
	tb := nb.Type(obj.Name(), kind).At(l.at(pkg, obj.Pos()))
	if !obj.Exported() {
		tb.Inaccessible()
	}
	tparams := named.TypeParams()
	for i := 0; i < tparams.Len(); i++ {
		tb.Generic(models.ParamSpec{Name: tparams.At(i).Obj().Name()})
	}

	d := &decl{
		pkg:      pkg,
		ns:       ns,
		obj:      obj,
		named:    named,
		tb:       tb,
		kind:     kind,
		doc:      doc,
		exported: obj.Exported(),
	}
	l.names[refKey{name: ns + "." + obj.Name(), arity: tparams.Len()}] = tb.ID()
	l.objects[obj] = d
	l.symbols[tb.ID()] = Symbol{Type: named}
	l.decls = append(l.decls, d)

	if kind == models.KindInterface && d.exported && !d.generic() {
		if iface := named.Underlying().(*types.Interface); iface.NumMethods() > 0 {
			l.interfaces = append(l.interfaces, d)
		}
	}
	return d
}

func kindOf(t types.Type) models.TypeKind {
	switch t.(type) {
	case *types.Interface:
		return models.KindInterface
	case *types.Struct:
		return models.KindClass
	default:
		return models.KindStruct
	}
}

var errorType = types.Universe.Lookup("error").Type()

// constructs reports whether fn returns obj's type or a pointer to it,
// optionally followed by an error
func constructs(pkg *packages.Package, fn *ast.FuncDecl, obj *types.TypeName) bool {
	f, _ := pkg.TypesInfo.Defs[fn.Name].(*types.Func)
	if f == nil {
		return false
	}
	sig := f.Type().(*types.Signature)
	if sig.TypeParams().Len() > 0 {
		return false
	}
	res := sig.Results()
	if res.Len() == 0 || res.Len() > 2 {
		return false
	}
	if res.Len() == 2 && !types.Identical(res.At(1).Type(), errorType) {
		return false
	}
	t := res.At(0).Type()
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	return ok && named.Obj() == obj
}

func (l *linker) link(d *decl) {
	for _, c := range directives(d.doc) {
		ann, target, err := l.parser.Annotation(c.text, l.at(d.pkg, c.pos), l.resolver(d))
		if err != nil {
			l.fail(err, l.at(d.pkg, c.pos))
			continue
		}
		if target != "" {
			l.fail(errors.NewValidationError("target", "a constructor annotation", "annotation on type "+d.obj.Name()), l.at(d.pkg, c.pos))
			continue
		}
		d.tb.Annotate(ann)
	}

	if d.generic() {
		return
	}
	if base := l.base(d); base != nil {
		d.tb.Extends(base.tb.ID())
	}
	for _, iface := range l.interfaces {
		if iface == d {
			continue
		}
		if implements(d, iface) {
			d.tb.Implements(iface.tb.ID())
		}
	}
	for _, fn := range d.ctors {
		l.constructor(d, fn)
	}
}

// base returns the first embedded struct declared in the scanned packages
func (l *linker) base(d *decl) *decl {
	if d.kind != models.KindClass {
		return nil
	}
	st := d.named.Underlying().(*types.Struct)
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		t := f.Type()
		if p, ok := t.(*types.Pointer); ok {
			t = p.Elem()
		}
		named, ok := t.(*types.Named)
		if !ok || named.TypeArgs().Len() > 0 {
			continue
		}
		if bd := l.objects[named.Obj()]; bd != nil && bd.kind == models.KindClass && !bd.generic() {
			return bd
		}
	}
	return nil
}

func implements(d, iface *decl) bool {
	it := iface.named.Underlying().(*types.Interface)
	if d.kind == models.KindInterface {
		return types.Implements(d.named, it)
	}
	return types.Implements(d.named, it) || types.Implements(types.NewPointer(d.named), it)
}

func (l *linker) constructor(d *decl, fn *ast.FuncDecl) {
	f := d.pkg.TypesInfo.Defs[fn.Name].(*types.Func)
	sig := f.Type().(*types.Signature)
	ctor := models.Constructor{
		Accessible: f.Exported(),
		Location:   l.at(d.pkg, fn.Pos()),
	}
	params := sig.Params()
	index := make(map[string]int, params.Len())
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		index[p.Name()] = i
		ctor.Parameters = append(ctor.Parameters, models.Parameter{Name: p.Name(), Type: l.typeOf(p.Type())})
	}

	for _, c := range directives(fn.Doc) {
		cloc := l.at(d.pkg, c.pos)
		ann, target, err := l.parser.Annotation(c.text, cloc, l.resolver(d))
		if err != nil {
			l.fail(err, cloc)
			continue
		}
		if target == "" {
			ctor.Annotations = append(ctor.Annotations, ann)
			continue
		}
		i, ok := index[target]
		if !ok || target == "_" {
			l.fail(errors.NewValidationError("target", "a parameter of "+fn.Name.Name, target), cloc)
			continue
		}
		ctor.Parameters[i].Annotations = append(ctor.Parameters[i].Annotations, ann)
	}
	d.tb.Constructor(ctor)

	sym := l.symbols[d.tb.ID()]
	sym.Constructors = append(sym.Constructors, f)
	l.symbols[d.tb.ID()] = sym
}

// typeOf maps a Go type to a record: scanned named types by identity,
// basic types to builtins and everything else to object
func (l *linker) typeOf(t types.Type) models.TypeID {
	switch t := unalias(t).(type) {
	case *types.Pointer:
		return l.typeOf(t.Elem())
	case *types.Named:
		d := l.objects[t.Origin().Obj()]
		if d == nil {
			return l.builder.Object()
		}
		args := t.TypeArgs()
		if args.Len() == 0 {
			return d.tb.ID()
		}
		ids := make([]models.TypeID, args.Len())
		for i := range ids {
			ids[i] = l.typeOf(args.At(i))
		}
		id, err := l.builder.Program().Construct(d.tb.ID(), ids...)
		if err != nil {
			return l.builder.Object()
		}
		if _, ok := l.symbols[id]; !ok {
			l.symbols[id] = Symbol{Type: t}
		}
		return id
	case *types.Basic:
		if kw := builtinOf(t); kw != "" {
			return l.builder.Builtin(kw)
		}
	}
	return l.builder.Object()
}

func builtinOf(b *types.Basic) string {
	if b.Name() == "rune" {
		return "char"
	}
	switch b.Kind() {
	case types.String:
		return "string"
	case types.Bool:
		return "bool"
	case types.Int64, types.Uint64:
		return "long"
	case types.Float32, types.Float64:
		return "double"
	}
	if b.Info()&types.IsInteger != 0 {
		return "int"
	}
	return ""
}

func (l *linker) resolver(d *decl) annotations.TypeResolver {
	return annotations.TypeResolverFunc(func(ref *annotations.TypeRef) (models.TypeID, error) {
		return l.resolve(d, ref)
	})
}

// resolve binds an annotation type reference: builtins, then names in the
// declaring package, then fully dotted names
func (l *linker) resolve(d *decl, ref *annotations.TypeRef) (models.TypeID, error) {
	if ref.Alias != "" {
		return models.NoType, errors.NewModelError(d.obj.Name(), ref.String(), "extern aliases are not supported in Go sources")
	}
	if len(ref.Args) == 0 {
		if id := l.builder.Builtin(ref.Name); id.Valid() {
			return id, nil
		}
	}
	key := refKey{name: d.ns + "." + ref.Name, arity: len(ref.Args)}
	id, ok := l.names[key]
	if !ok {
		key.name = ref.Name
		if id, ok = l.names[key]; !ok {
			return models.NoType, errors.NewModelError(d.obj.Name(), ref.String(), "unknown type").
				WithSuggestion("qualify the type with its package namespace, e.g. store.Repository")
		}
	}
	if len(ref.Args) == 0 {
		return id, nil
	}
	args := make([]models.TypeID, len(ref.Args))
	for i, a := range ref.Args {
		arg, err := l.resolve(d, a)
		if err != nil {
			return models.NoType, err
		}
		args[i] = arg
	}
	cid, err := l.builder.Program().Construct(id, args...)
	if err != nil {
		return models.NoType, errors.NewModelError(d.obj.Name(), ref.String(), err.Error())
	}
	return cid, nil
}

type directive struct {
	text string
	pos  token.Pos
}

// directives returns the annotation comment lines of a doc comment
func directives(doc *ast.CommentGroup) []directive {
	if doc == nil {
		return nil
	}
	var out []directive
	for _, c := range doc.List {
		if text, ok := strings.CutPrefix(c.Text, AnnotationPrefix); ok {
			out = append(out, directive{text: text, pos: c.Slash})
		}
	}
	return out
}
