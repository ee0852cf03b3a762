package annotations

import (
	"fmt"
	"sort"
	"sync"

	"github.com/toyz/svcplan/internal/models"
)

// DialectRegistry maps annotation names to dialects and knows the members
// of the enums that annotation arguments may reference
type DialectRegistry interface {
	// Register maps an annotation name to a dialect
	Register(name string, dialect models.Dialect) error

	// Lookup resolves a written annotation name to its dialect
	Lookup(name string) models.Dialect

	// RegisterEnum declares an enum whose members are numbered in order
	RegisterEnum(enum string, members ...string) error

	// EnumOrdinal returns the ordinal of enum.member
	EnumOrdinal(enum, member string) (int, bool)

	// Names returns all registered annotation names, sorted
	Names() []string
}

// registry is the concrete implementation of DialectRegistry
type registry struct {
	mu       sync.RWMutex              // Protects concurrent access
	dialects map[string]models.Dialect // annotation name -> dialect
	enums    map[string]map[string]int // enum name -> member -> ordinal
}

// NewRegistry creates an empty dialect registry
func NewRegistry() DialectRegistry {
	return &registry{
		dialects: make(map[string]models.Dialect),
		enums:    make(map[string]map[string]int),
	}
}

// defaultRegistry is the global registry instance
var (
	defaultRegistry     DialectRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the global registry with the builtin vocabulary
func DefaultRegistry() DialectRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		if err := RegisterBuiltinDialects(defaultRegistry); err != nil {
			panic(err)
		}
	})
	return defaultRegistry
}

// RegisterBuiltinDialects registers the native and composition vocabularies
func RegisterBuiltinDialects(r DialectRegistry) error {
	builtins := []struct {
		name    string
		dialect models.Dialect
	}{
		{"Service", models.DialectNative},
		{"KeyedService", models.DialectNativeKeyed},
		{"FromKeyedServices", models.DialectFromKeyed},
		{"Export", models.DialectExport},
		{"Shared", models.DialectShared},
		{"PartCreationPolicy", models.DialectPartCreation},
		{"Import", models.DialectImport},
		{"ImportingConstructor", models.DialectImportingConstructor},
	}
	for _, b := range builtins {
		if err := r.Register(b.name, b.dialect); err != nil {
			return err
		}
	}
	if err := r.RegisterEnum(models.LifetimeEnum, "Scoped", "Singleton", "Transient"); err != nil {
		return err
	}
	return r.RegisterEnum(models.CreationPolicyEnum, "Any", "Shared", "NonShared")
}

// Register adds an annotation name to the registry
func (r *registry) Register(name string, dialect models.Dialect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("annotation name cannot be empty")
	}
	if dialect == models.DialectUnknown {
		return fmt.Errorf("annotation %s cannot be registered as %s", name, dialect)
	}
	if existing, exists := r.dialects[name]; exists && existing != dialect {
		return fmt.Errorf("annotation %s is already registered as %s", name, existing)
	}

	r.dialects[name] = dialect
	return nil
}

// Lookup resolves a name exactly first, then by its simple name
func (r *registry) Lookup(name string) models.Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.dialects[name]; ok {
		return d
	}
	if d, ok := r.dialects[simpleName(name)]; ok {
		return d
	}
	return models.DialectUnknown
}

// RegisterEnum declares an enum and its ordered members
func (r *registry) RegisterEnum(enum string, members ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enum == "" {
		return fmt.Errorf("enum name cannot be empty")
	}
	if _, exists := r.enums[enum]; exists {
		return fmt.Errorf("enum %s is already registered", enum)
	}

	ordinals := make(map[string]int, len(members))
	for i, m := range members {
		ordinals[m] = i
	}
	r.enums[enum] = ordinals
	return nil
}

// EnumOrdinal looks up an enum member; the enum may be written qualified
func (r *registry) EnumOrdinal(enum, member string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.enums[enum]
	if !ok {
		members, ok = r.enums[lastSegment(enum)]
	}
	if !ok {
		return -1, false
	}
	ordinal, ok := members[member]
	if !ok {
		return -1, false
	}
	return ordinal, true
}

// Names returns all registered annotation names, sorted
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
