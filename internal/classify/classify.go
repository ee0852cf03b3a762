// Package classify extracts registration intent from the annotations a type
// carries, across the native and composition dialects.
package classify

import (
	"context"

	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

// shared creation policy ordinal of CreationPolicy
const creationPolicyShared = 1

// Result holds what classification produced for a set of candidates
type Result struct {
	Entries     []models.Entry
	Diagnostics diagnostic.Diagnostics
}

// Classify classifies every candidate in order
func Classify(ctx context.Context, program models.Program, candidates []models.TypeID) (Result, error) {
	var res Result
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.NewCancelledError("annotation classification", err)
		}
		entries, diags := Type(program, id)
		res.Entries = append(res.Entries, entries...)
		res.Diagnostics = append(res.Diagnostics, diags...)
	}
	return res, nil
}

// Type classifies a single type. Every qualifying annotation yields its own
// entry, located at the annotation; malformed annotations yield nothing.
func Type(program models.Program, id models.TypeID) ([]models.Entry, diagnostic.Diagnostics) {
	rec := program.Type(id)
	if rec == nil {
		return nil, nil
	}

	var entries []models.Entry
	var diags diagnostic.Diagnostics
	shared := isShared(rec)

	for _, a := range rec.Annotations {
		var (
			entry models.Entry
			ok    bool
		)
		switch a.Dialect {
		case models.DialectNative, models.DialectNativeKeyed:
			entry, ok = native(a)
			if d, bad := serviceTypeIsKeyType(program, rec, a); bad {
				diags = append(diags, d)
			}
		case models.DialectExport:
			entry, ok = export(a, shared)
		}
		if !ok {
			continue
		}
		entry.Implementation = id
		entry.Location = a.Location
		entry.Origin = models.OriginAnnotation
		entries = append(entries, entry)
	}
	return entries, diags
}

// native handles Service(), Service(lifetime) and Service/KeyedService(key, lifetime).
// A single argument must be a lifetime; Service(key) and KeyedService(key)
// have no default lifetime and produce nothing.
func native(a models.Annotation) (models.Entry, bool) {
	switch a.Arity() {
	case 0:
		if a.Dialect != models.DialectNative {
			return models.Entry{}, false
		}
		return models.Entry{Lifetime: models.Singleton}, true
	case 1:
		if a.Dialect != models.DialectNative {
			return models.Entry{}, false
		}
		lifetime, ok := a.Arg(0).Lifetime()
		if !ok {
			return models.Entry{}, false
		}
		return models.Entry{Lifetime: lifetime}, true
	case 2:
		lifetime, ok := a.Arg(1).Lifetime()
		if !ok {
			return models.Entry{}, false
		}
		key := a.Arg(0)
		if key.Kind == models.ValueNull {
			// a null key registers in the unkeyed partition
			key = models.NoValue
		}
		return models.Entry{Lifetime: lifetime, Key: key}, true
	default:
		return models.Entry{}, false
	}
}

// export handles Export and Export(contract). Exports are transient unless
// the part is shared; a primitive contract becomes the registration key.
func export(a models.Annotation, shared bool) (models.Entry, bool) {
	entry := models.Entry{Lifetime: models.Transient}
	if shared {
		entry.Lifetime = models.Singleton
	}
	if a.Arity() > 0 && a.Arg(0).Kind.IsPrimitive() {
		entry.Key = a.Arg(0)
	}
	return entry, true
}

// isShared reports whether a composition part is marked for shared creation
func isShared(rec *models.TypeRecord) bool {
	for _, a := range rec.Annotations {
		switch a.Dialect {
		case models.DialectShared:
			return true
		case models.DialectPartCreation:
			if a.Arity() == 1 && a.Arg(0).IsEnumOf(models.CreationPolicyEnum) && a.Arg(0).Ordinal == creationPolicyShared {
				return true
			}
		}
	}
	return false
}

// serviceTypeIsKeyType flags Service<T>(key, ...) where T is the type of the key
// itself, a legacy usage that registers the wrong service type
func serviceTypeIsKeyType(program models.Program, rec *models.TypeRecord, a models.Annotation) (diagnostic.Diagnostic, bool) {
	if a.Dialect != models.DialectNative || !a.ServiceType.Valid() || a.ServiceType == program.Object() || a.Arity() == 0 {
		return diagnostic.Diagnostic{}, false
	}
	keyType := ValueType(program, a.Arg(0))
	if !keyType.Valid() || keyType != a.ServiceType {
		return diagnostic.Diagnostic{}, false
	}
	loc := a.Location
	if loc.IsEmpty() {
		loc = rec.Location
	}
	return diagnostic.ServiceTypeNotKeyType.New(loc).WithSubject(program.FullName(rec.ID)), true
}

// ValueType returns the program type of a constant value, NoType when it has none
func ValueType(program models.Program, v models.Value) models.TypeID {
	switch v.Kind {
	case models.ValueString:
		return program.Builtin("string")
	case models.ValueInt:
		return program.Builtin("int")
	case models.ValueFloat:
		return program.Builtin("double")
	case models.ValueBool:
		return program.Builtin("bool")
	case models.ValueChar:
		return program.Builtin("char")
	default:
		return models.NoType
	}
}
