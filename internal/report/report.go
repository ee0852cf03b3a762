// Package report renders resolution results for humans and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/toyz/svcplan/internal/classify"
	"github.com/toyz/svcplan/internal/config"
	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/plan"
	"github.com/toyz/svcplan/internal/resolver"
)

// Document is the serializable view of a resolution result
type Document struct {
	Buckets     []Bucket       `json:"buckets" yaml:"buckets" toml:"buckets"`
	Diagnostics []Diagnostic   `json:"diagnostics" yaml:"diagnostics" toml:"diagnostics"`
	Stats       resolver.Stats `json:"stats" yaml:"stats" toml:"stats"`
}

// Bucket lists the services of one lifetime and keyed-ness
type Bucket struct {
	Lifetime string    `json:"lifetime" yaml:"lifetime" toml:"lifetime"`
	Keyed    bool      `json:"keyed" yaml:"keyed" toml:"keyed"`
	Services []Service `json:"services" yaml:"services" toml:"services"`
}

// Service is one registration
type Service struct {
	Implementation string      `json:"implementation" yaml:"implementation" toml:"implementation"`
	Key            string      `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Origin         string      `json:"origin" yaml:"origin" toml:"origin"`
	Location       string      `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
	Constructor    Constructor `json:"constructor" yaml:"constructor" toml:"constructor"`
	Aliases        []Alias     `json:"aliases" yaml:"aliases" toml:"aliases"`
}

// Constructor describes how a service is built
type Constructor struct {
	Index      int         `json:"index" yaml:"index" toml:"index"` // -1 for the parameterless form
	Implicit   bool        `json:"implicit,omitempty" yaml:"implicit,omitempty" toml:"implicit,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" toml:"parameters,omitempty"`
}

// Parameter is a resolved constructor parameter
type Parameter struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Type string `json:"type" yaml:"type" toml:"type"`
	Key  string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
}

// Alias is a service type the implementation is exposed as
type Alias struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	Self      bool   `json:"self,omitempty" yaml:"self,omitempty" toml:"self,omitempty"`
	Covariant bool   `json:"covariant,omitempty" yaml:"covariant,omitempty" toml:"covariant,omitempty"`
	Factory   bool   `json:"factory" yaml:"factory" toml:"factory"`
	Lazy      bool   `json:"lazy" yaml:"lazy" toml:"lazy"`
}

// Diagnostic is a rendered diagnostic
type Diagnostic struct {
	Severity  string   `json:"severity" yaml:"severity" toml:"severity"`
	Code      string   `json:"code" yaml:"code" toml:"code"`
	Message   string   `json:"message" yaml:"message" toml:"message"`
	Subject   string   `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject,omitempty"`
	Location  string   `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
	Secondary []string `json:"secondary,omitempty" yaml:"secondary,omitempty" toml:"secondary,omitempty"`
}

// New builds the document for res. program names constructor parameter types.
func New(program models.Program, res *resolver.Result) *Document {
	doc := &Document{
		Buckets:     []Bucket{},
		Diagnostics: []Diagnostic{},
		Stats:       res.Stats,
	}
	for _, b := range res.Plan.Buckets() {
		out := Bucket{Lifetime: b.Lifetime.String(), Keyed: b.Keyed, Services: []Service{}}
		for _, s := range b.Services {
			out.Services = append(out.Services, service(program, s))
		}
		doc.Buckets = append(doc.Buckets, out)
	}
	for _, d := range res.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, renderDiagnostic(d))
	}
	return doc
}

func service(program models.Program, s plan.Service) Service {
	out := Service{
		Implementation: s.FullName,
		Key:            s.Key.String(),
		Origin:         s.Origin.String(),
		Location:       location(s.Location),
		Constructor:    constructor(program, s.Constructor),
		Aliases:        make([]Alias, 0, len(s.Aliases)),
	}
	for _, a := range s.Aliases {
		out.Aliases = append(out.Aliases, Alias{
			Name:      a.FullName,
			Self:      a.Self,
			Covariant: a.Covariant,
			Factory:   a.Factory,
			Lazy:      a.Lazy,
		})
	}
	return out
}

func constructor(program models.Program, sel classify.Selection) Constructor {
	out := Constructor{Index: sel.Constructor, Implicit: sel.Implicit}
	for _, p := range sel.Parameters {
		param := Parameter{Name: p.Name, Type: program.FullName(p.Type)}
		if p.Keyed {
			param.Key = p.Key.String()
		}
		out.Parameters = append(out.Parameters, param)
	}
	return out
}

func renderDiagnostic(d diagnostic.Diagnostic) Diagnostic {
	out := Diagnostic{
		Severity: d.Severity.String(),
		Code:     d.Code,
		Message:  d.Message,
		Subject:  d.Subject,
		Location: location(d.Location),
	}
	for _, loc := range d.Secondary {
		out.Secondary = append(out.Secondary, loc.String())
	}
	return out
}

func location(loc errors.SourceLocation) string {
	if loc.IsEmpty() {
		return ""
	}
	return loc.String()
}

// Render writes doc in the requested format
func Render(w io.Writer, format config.Format, doc *Document, colors bool) error {
	switch format {
	case config.FormatJSON:
		return JSON(w, doc)
	case config.FormatYAML:
		return YAML(w, doc)
	case config.FormatTOML:
		return TOML(w, doc)
	case config.FormatText, "":
		return Text(w, doc, colors)
	default:
		return errors.NewValidationError("output.format", "text, json, yaml or toml", string(format))
	}
}

// JSON writes doc as indented JSON
func JSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// YAML writes doc as YAML
func YAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

// TOML writes doc as TOML
func TOML(w io.Writer, doc *Document) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode toml report: %w", err)
	}
	return nil
}
