// Package expansion computes the service types an implementation is
// registered under.
package expansion

import "github.com/toyz/svcplan/internal/models"

// Alias is one service type an implementation is exposed as. Every alias is
// also resolvable through a deferred factory and a lazy wrapper.
type Alias struct {
	Type      models.TypeID `json:"-" yaml:"-"`
	FullName  string        `json:"name" yaml:"name"`
	Self      bool          `json:"self,omitempty" yaml:"self,omitempty"`           // the implementation itself
	Covariant bool          `json:"covariant,omitempty" yaml:"covariant,omitempty"` // added through an out type parameter
	Factory   bool          `json:"factory" yaml:"factory"`
	Lazy      bool          `json:"lazy" yaml:"lazy"`
}

type aliasSet struct {
	program models.Program
	seen    map[string]bool
	out     []Alias
}

func (s *aliasSet) add(id models.TypeID, self, covariant bool) {
	name := s.program.FullName(id)
	if s.seen[name] {
		return
	}
	s.seen[name] = true
	s.out = append(s.out, Alias{
		Type:      id,
		FullName:  name,
		Self:      self,
		Covariant: covariant,
		Factory:   true,
		Lazy:      true,
	})
}

// Expand returns the aliases of impl: impl itself, then every interface it
// converts to in depth-first declaration order, each followed by the covariant
// constructions it admits. Aliases are unique by full name.
func Expand(program models.Program, impl models.TypeID) []Alias {
	set := &aliasSet{program: program, seen: make(map[string]bool)}
	set.add(impl, true, false)

	for _, iface := range program.AllInterfaces(impl) {
		if !program.Convertible(impl, iface) {
			continue
		}
		set.add(iface, false, false)
		for _, c := range covariant(program, impl, iface) {
			set.add(c, false, true)
		}
	}
	return set.out
}

// covariant returns the constructions of iface's definition over the
// interfaces and base classes of its single out type argument that impl
// also converts to
func covariant(program models.Program, impl, iface models.TypeID) []models.TypeID {
	rec := program.Type(iface)
	if rec == nil || !rec.IsConstructed() || len(rec.TypeArgs) != 1 {
		return nil
	}
	def := program.Type(rec.Definition)
	if def == nil || len(def.TypeParams) != 1 {
		return nil
	}
	param := def.TypeParams[0]
	if p := program.Type(param); p == nil || p.Parameter == nil || p.Parameter.Variance != models.Covariant {
		return nil
	}

	arg := rec.TypeArgs[0]
	candidates := append(append([]models.TypeID(nil), program.AllInterfaces(arg)...), program.BaseTypes(arg)...)

	var out []models.TypeID
	seen := make(map[models.TypeID]bool)
	for _, c := range candidates {
		if !SatisfiesConstraints(program, c, param) {
			continue
		}
		constructed, err := program.Construct(rec.Definition, c)
		if err != nil || seen[constructed] || !program.Convertible(impl, constructed) {
			continue
		}
		seen[constructed] = true
		out = append(out, constructed)
	}
	return out
}

// SatisfiesConstraints reports whether candidate may be substituted for the
// type parameter param: reference and value constraints, the parameterless
// constructor constraint, and every constraint type by identity or derivation.
func SatisfiesConstraints(program models.Program, candidate, param models.TypeID) bool {
	prec := program.Type(param)
	if prec == nil || prec.Parameter == nil {
		return false
	}
	c := program.Type(candidate)
	if c == nil {
		return false
	}
	p := prec.Parameter
	if p.ReferenceType && !isReference(c) {
		return false
	}
	if p.ValueType && !isValue(c) {
		return false
	}
	if p.Constructor && !hasParameterlessConstructor(c) {
		return false
	}
	for _, constraint := range p.Constraints {
		if program.Type(constraint) == nil {
			continue
		}
		if !derives(program, candidate, constraint) {
			return false
		}
	}
	return true
}

func derives(program models.Program, candidate, target models.TypeID) bool {
	if candidate == target || target == program.Object() {
		return true
	}
	for _, b := range program.BaseTypes(candidate) {
		if b == target {
			return true
		}
	}
	for _, i := range program.AllInterfaces(candidate) {
		if i == target {
			return true
		}
	}
	return false
}

func isReference(rec *models.TypeRecord) bool {
	switch rec.Kind {
	case models.KindClass, models.KindInterface:
		return true
	case models.KindTypeParameter:
		return rec.Parameter != nil && rec.Parameter.ReferenceType
	}
	return false
}

func isValue(rec *models.TypeRecord) bool {
	switch rec.Kind {
	case models.KindStruct, models.KindEnum:
		return true
	case models.KindTypeParameter:
		return rec.Parameter != nil && rec.Parameter.ValueType
	}
	return false
}

func hasParameterlessConstructor(rec *models.TypeRecord) bool {
	switch rec.Kind {
	case models.KindStruct, models.KindEnum:
		return true
	case models.KindTypeParameter:
		return rec.Parameter != nil && (rec.Parameter.Constructor || rec.Parameter.ValueType)
	case models.KindClass:
		if rec.Abstract {
			return false
		}
		if len(rec.Constructors) == 0 {
			return true
		}
		for _, c := range rec.Constructors {
			if c.Accessible && len(c.Parameters) == 0 {
				return true
			}
		}
	}
	return false
}
