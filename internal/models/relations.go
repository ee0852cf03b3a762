package models

// directInterfaces returns the declared interfaces of id, substituted
// through the type arguments when id is a constructed type
func (s *Snapshot) directInterfaces(id TypeID) []TypeID {
	rec := s.Type(id)
	if rec == nil {
		return nil
	}
	if rec.Kind == KindTypeParameter && rec.Parameter != nil {
		var out []TypeID
		for _, c := range rec.Parameter.Constraints {
			if cr := s.Type(c); cr != nil && cr.Kind == KindInterface {
				out = append(out, c)
			}
		}
		return out
	}
	if !rec.IsConstructed() {
		return rec.Interfaces
	}
	def := s.Type(rec.Definition)
	if def == nil {
		return nil
	}
	subst := s.substitution(def, rec.TypeArgs)
	out := make([]TypeID, 0, len(def.Interfaces))
	for _, i := range def.Interfaces {
		out = append(out, s.substitute(i, subst))
	}
	return out
}

// baseOf returns the direct base class of id, NoType at the root
func (s *Snapshot) baseOf(id TypeID) TypeID {
	rec := s.Type(id)
	if rec == nil {
		return NoType
	}
	if rec.Kind == KindTypeParameter && rec.Parameter != nil {
		for _, c := range rec.Parameter.Constraints {
			if cr := s.Type(c); cr != nil && cr.Kind == KindClass {
				return c
			}
		}
		return NoType
	}
	if !rec.IsConstructed() {
		return rec.Base
	}
	def := s.Type(rec.Definition)
	if def == nil || !def.Base.Valid() {
		return NoType
	}
	return s.substitute(def.Base, s.substitution(def, rec.TypeArgs))
}

func (s *Snapshot) substitution(def *TypeRecord, args []TypeID) map[TypeID]TypeID {
	m := make(map[TypeID]TypeID, len(def.TypeParams))
	for i, p := range def.TypeParams {
		if i < len(args) {
			m[p] = args[i]
		}
	}
	return m
}

// substitute replaces type parameters in id according to m
func (s *Snapshot) substitute(id TypeID, m map[TypeID]TypeID) TypeID {
	if t, ok := m[id]; ok {
		return t
	}
	rec := s.Type(id)
	if rec == nil || !rec.IsConstructed() {
		return id
	}
	changed := false
	args := make([]TypeID, len(rec.TypeArgs))
	for i, a := range rec.TypeArgs {
		args[i] = s.substitute(a, m)
		changed = changed || args[i] != a
	}
	if !changed {
		return id
	}
	out, err := s.Construct(rec.Definition, args...)
	if err != nil {
		return id
	}
	return out
}

// AllInterfaces returns the direct and inherited interfaces of id in
// depth-first declaration order, each listed once. For an interface the
// result excludes the interface itself.
func (s *Snapshot) AllInterfaces(id TypeID) []TypeID {
	seen := make(map[TypeID]bool)
	var out []TypeID

	var visit func(TypeID)
	visit = func(i TypeID) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, j := range s.directInterfaces(i) {
			visit(j)
		}
	}

	seen[id] = true
	walked := map[TypeID]bool{}
	for cur := id; cur.Valid() && !walked[cur]; cur = s.baseOf(cur) {
		walked[cur] = true
		for _, i := range s.directInterfaces(cur) {
			visit(i)
		}
	}
	return out
}

// BaseTypes returns the base class chain of id, nearest first,
// stopping before the universal root
func (s *Snapshot) BaseTypes(id TypeID) []TypeID {
	var out []TypeID
	seen := map[TypeID]bool{id: true}
	for cur := s.baseOf(id); cur.Valid() && cur != s.Object() && !seen[cur]; cur = s.baseOf(cur) {
		seen[cur] = true
		out = append(out, cur)
	}
	return out
}

// IsReferenceType reports whether values of id are references
func (s *Snapshot) IsReferenceType(id TypeID) bool {
	rec := s.Type(id)
	if rec == nil {
		return false
	}
	switch rec.Kind {
	case KindClass, KindInterface:
		return true
	case KindTypeParameter:
		if rec.Parameter == nil {
			return false
		}
		if rec.Parameter.ReferenceType {
			return true
		}
		for _, c := range rec.Parameter.Constraints {
			if cr := s.Type(c); cr != nil && cr.Kind == KindClass {
				return true
			}
		}
	}
	return false
}

// IsValueType reports whether id is a struct or enum
func (s *Snapshot) IsValueType(id TypeID) bool {
	rec := s.Type(id)
	if rec == nil {
		return false
	}
	switch rec.Kind {
	case KindStruct, KindEnum:
		return true
	case KindTypeParameter:
		return rec.Parameter != nil && rec.Parameter.ValueType
	}
	return false
}

// Convertible reports whether an implicit identity or reference conversion
// exists from one type to another, honoring declared variance on generic interfaces
func (s *Snapshot) Convertible(from, to TypeID) bool {
	return s.convertible(from, to, 0)
}

const maxConversionDepth = 32

func (s *Snapshot) convertible(from, to TypeID, depth int) bool {
	if from == to {
		return from.Valid()
	}
	if !from.Valid() || !to.Valid() || depth > maxConversionDepth {
		return false
	}
	if to == s.Object() {
		return s.Type(from) != nil
	}
	if s.varianceConvertible(from, to, depth) {
		return true
	}
	for _, b := range s.BaseTypes(from) {
		if b == to {
			return true
		}
	}
	for _, i := range s.AllInterfaces(from) {
		if s.varianceConvertible(i, to, depth) {
			return true
		}
	}
	return false
}

// varianceConvertible checks identity or a variant conversion between two
// constructions of the same generic definition
func (s *Snapshot) varianceConvertible(a, b TypeID, depth int) bool {
	if a == b {
		return true
	}
	ra, rb := s.Type(a), s.Type(b)
	if ra == nil || rb == nil || !ra.IsConstructed() || ra.Definition != rb.Definition {
		return false
	}
	if len(ra.TypeArgs) != len(rb.TypeArgs) {
		return false
	}
	for i := range ra.TypeArgs {
		x, y := ra.TypeArgs[i], rb.TypeArgs[i]
		if x == y {
			continue
		}
		switch s.varianceOf(ra, i) {
		case Covariant:
			if !s.IsReferenceType(x) || !s.convertible(x, y, depth+1) {
				return false
			}
		case Contravariant:
			if !s.IsReferenceType(y) || !s.convertible(y, x, depth+1) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (s *Snapshot) varianceOf(rec *TypeRecord, i int) Variance {
	if rec.Kind != KindInterface || i >= len(rec.TypeParams) {
		return Invariant
	}
	p := s.Type(rec.TypeParams[i])
	if p == nil || p.Parameter == nil {
		return Invariant
	}
	return p.Parameter.Variance
}
