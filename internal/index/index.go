// Package index enumerates the named types a program exposes through its
// namespace roots and nested type declarations.
package index

import (
	"context"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
)

// Index is the deduplicated set of accessible types of one program snapshot.
// Types keeps first-visit order so downstream stages are deterministic.
type Index struct {
	types      []models.TypeID
	members    map[models.TypeID]struct{}
	candidates []models.TypeID
}

// Build traverses every root of program. Each namespace and each type is
// visited at most once even when it is reachable through several roots.
func Build(ctx context.Context, program models.Program) (*Index, error) {
	w := &walker{
		ctx:       ctx,
		program:   program,
		visited:   make(map[models.TypeID]bool),
		visitedNS: make(map[models.NamespaceID]bool),
		idx:       &Index{members: make(map[models.TypeID]struct{})},
	}
	for _, root := range program.Roots() {
		if err := w.namespace(root.Namespace); err != nil {
			return nil, err
		}
	}
	return w.idx, nil
}

type walker struct {
	ctx       context.Context
	program   models.Program
	visited   map[models.TypeID]bool
	visitedNS map[models.NamespaceID]bool
	idx       *Index
}

func (w *walker) cancelled() error {
	if err := w.ctx.Err(); err != nil {
		return errors.NewCancelledError("declaration index", err)
	}
	return nil
}

func (w *walker) namespace(ns models.NamespaceID) error {
	if w.visitedNS[ns] {
		return nil
	}
	w.visitedNS[ns] = true

	children, types := w.program.NamespaceMembers(ns)
	for _, t := range types {
		if err := w.cancelled(); err != nil {
			return err
		}
		if err := w.typ(t); err != nil {
			return err
		}
	}
	for _, child := range children {
		if err := w.cancelled(); err != nil {
			return err
		}
		if err := w.namespace(child); err != nil {
			return err
		}
	}
	return nil
}

// typ records t when accessible and always descends into its nested types
func (w *walker) typ(t models.TypeID) error {
	if w.visited[t] {
		return nil
	}
	w.visited[t] = true

	if w.program.IsAccessible(t) {
		w.idx.add(w.program, t)
	}

	for _, nested := range w.program.NestedTypes(t) {
		if err := w.cancelled(); err != nil {
			return err
		}
		if err := w.typ(nested); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) add(program models.Program, t models.TypeID) {
	idx.types = append(idx.types, t)
	idx.members[t] = struct{}{}

	rec := program.Type(t)
	if rec != nil && rec.Kind == models.KindClass && !rec.Abstract && !rec.IsGenericDefinition() {
		idx.candidates = append(idx.candidates, t)
	}
}

// Types returns every retained type in canonical first-visit order
func (idx *Index) Types() []models.TypeID {
	return idx.types
}

// Contains reports whether t was retained
func (idx *Index) Contains(t models.TypeID) bool {
	_, ok := idx.members[t]
	return ok
}

// Len returns the number of retained types
func (idx *Index) Len() int {
	return len(idx.types)
}

// Candidates returns the retained concrete, non-generic classes: the types
// that classification and convention matching consider
func (idx *Index) Candidates() []models.TypeID {
	return idx.candidates
}
