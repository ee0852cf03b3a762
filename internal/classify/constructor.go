package classify

import "github.com/toyz/svcplan/internal/models"

// Binding describes how a factory resolves one constructor argument
type Binding struct {
	Name  string
	Type  models.TypeID
	Keyed bool         // resolve by key instead of by type
	Key   models.Value // the key, when Keyed
}

// Selection is the constructor an emitted factory calls
type Selection struct {
	Constructor int  // index into TypeRecord.Constructors, -1 for the parameterless form
	Implicit    bool // the type declares no constructors at all
	Parameters  []Binding
}

// Parameterless reports whether the factory takes no arguments
func (s Selection) Parameterless() bool {
	return len(s.Parameters) == 0
}

// SelectConstructor picks the constructor for id. It depends only on the
// type, so every entry of the same implementation shares one choice.
//
// The first constructor marked ImportingConstructor wins; otherwise the
// accessible constructor with the most parameters, first declared on ties.
func SelectConstructor(program models.Program, id models.TypeID) Selection {
	rec := program.Type(id)
	if rec == nil {
		return Selection{Constructor: -1}
	}
	ctors := rec.Constructors
	if rec.IsConstructed() {
		if def := program.Type(rec.Definition); def != nil {
			ctors = def.Constructors
		}
	}
	if len(ctors) == 0 {
		return Selection{Constructor: -1, Implicit: true}
	}

	chosen := -1
	for i, c := range ctors {
		if c.HasAnnotation(models.DialectImportingConstructor) {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		for i, c := range ctors {
			if !c.Accessible {
				continue
			}
			if chosen < 0 || len(c.Parameters) > len(ctors[chosen].Parameters) {
				chosen = i
			}
		}
	}
	if chosen < 0 {
		return Selection{Constructor: -1}
	}

	sel := Selection{Constructor: chosen}
	for _, p := range ctors[chosen].Parameters {
		sel.Parameters = append(sel.Parameters, bind(p))
	}
	return sel
}

func bind(p models.Parameter) Binding {
	b := Binding{Name: p.Name, Type: p.Type}
	for _, a := range p.Annotations {
		if key, ok := fromKeyed(a); ok {
			b.Keyed = true
			b.Key = key
			break
		}
	}
	return b
}

// fromKeyed recognizes FromKeyedServices(key) and Import(primitiveKey)
func fromKeyed(a models.Annotation) (models.Value, bool) {
	switch a.Dialect {
	case models.DialectFromKeyed:
		if a.Arity() >= 1 {
			return a.Arg(0), true
		}
	case models.DialectImport:
		if a.Arity() >= 1 && a.Arg(0).Kind.IsPrimitive() {
			return a.Arg(0), true
		}
	}
	return models.NoValue, false
}
