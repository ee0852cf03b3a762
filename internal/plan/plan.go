// Package plan partitions resolved registrations into the buckets an
// emitter renders, one per lifetime and keyed-ness.
package plan

import (
	"context"
	"slices"

	"github.com/toyz/svcplan/internal/classify"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/expansion"
	"github.com/toyz/svcplan/internal/models"
)

// Service is one registration statement group: an implementation, how to
// construct it, and every service type it is exposed as
type Service struct {
	Implementation models.TypeID
	FullName       string
	Lifetime       models.Lifetime
	Key            models.Value
	Constructor    classify.Selection
	Aliases        []expansion.Alias
	Location       errors.SourceLocation
	Origin         models.Origin
}

// Keyed reports whether the service is registered under a key
func (s Service) Keyed() bool {
	return !s.Key.IsZero()
}

// Bucket is an ordered list of services sharing lifetime and keyed-ness
type Bucket struct {
	Lifetime models.Lifetime
	Keyed    bool
	Services []Service
}

// Plan is the six-bucket registration plan
type Plan struct {
	buckets [6]Bucket
}

// emission order: lifetimes Singleton, Scoped, Transient, each unkeyed before keyed
var order = []models.Lifetime{models.Singleton, models.Scoped, models.Transient}

func slot(l models.Lifetime, keyed bool) int {
	i := 0
	for j, o := range order {
		if o == l {
			i = j
		}
	}
	if keyed {
		return i*2 + 1
	}
	return i * 2
}

// New returns an empty plan
func New() *Plan {
	p := &Plan{}
	for _, l := range order {
		for _, keyed := range []bool{false, true} {
			p.buckets[slot(l, keyed)] = Bucket{Lifetime: l, Keyed: keyed}
		}
	}
	return p
}

// Build creates a plan from merged entries, preserving their order within
// each bucket. Constructor selection and aliases are computed once per
// implementation and shared by all of its entries. Cancellation is checked
// before each entry.
func Build(ctx context.Context, program models.Program, entries []models.Entry) (*Plan, error) {
	p := New()
	ctors := make(map[models.TypeID]classify.Selection)
	aliases := make(map[models.TypeID][]expansion.Alias)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelledError("plan construction", err)
		}
		sel, ok := ctors[e.Implementation]
		if !ok {
			sel = classify.SelectConstructor(program, e.Implementation)
			ctors[e.Implementation] = sel
		}
		as, ok := aliases[e.Implementation]
		if !ok {
			as = expansion.Expand(program, e.Implementation)
			aliases[e.Implementation] = as
		}
		p.Add(Service{
			Implementation: e.Implementation,
			FullName:       program.FullName(e.Implementation),
			Lifetime:       e.Lifetime,
			Key:            e.Key,
			Constructor:    sel,
			Aliases:        as,
			Location:       e.Location,
			Origin:         e.Origin,
		})
	}
	return p, nil
}

// Clone returns a copy of the plan that shares no slices with p
func (p *Plan) Clone() *Plan {
	c := &Plan{}
	for i, b := range p.buckets {
		c.buckets[i] = Bucket{Lifetime: b.Lifetime, Keyed: b.Keyed}
		if b.Services == nil {
			continue
		}
		c.buckets[i].Services = make([]Service, len(b.Services))
		for j, s := range b.Services {
			s.Aliases = slices.Clone(s.Aliases)
			s.Constructor.Parameters = slices.Clone(s.Constructor.Parameters)
			c.buckets[i].Services[j] = s
		}
	}
	return c
}

// Add appends a service to its bucket
func (p *Plan) Add(s Service) {
	if !s.Lifetime.Valid() {
		return
	}
	b := &p.buckets[slot(s.Lifetime, s.Keyed())]
	b.Services = append(b.Services, s)
}

// Bucket returns the services registered with the given lifetime and keyed-ness
func (p *Plan) Bucket(l models.Lifetime, keyed bool) []Service {
	if !l.Valid() {
		return nil
	}
	return p.buckets[slot(l, keyed)].Services
}

// Buckets returns all six buckets in emission order
func (p *Plan) Buckets() []Bucket {
	out := make([]Bucket, len(p.buckets))
	copy(out, p.buckets[:])
	return out
}

// Len returns the total number of services
func (p *Plan) Len() int {
	n := 0
	for _, b := range p.buckets {
		n += len(b.Services)
	}
	return n
}

// Services returns every service in emission order
func (p *Plan) Services() []Service {
	var out []Service
	for _, b := range p.buckets {
		out = append(out, b.Services...)
	}
	return out
}
