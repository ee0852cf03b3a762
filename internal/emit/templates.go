package emit

import (
	"bytes"
	"strconv"
	"text/template"

	"github.com/toyz/svcplan/internal/errors"
)

// FileTemplate renders a complete registration file
const FileTemplate = `{{.Header}}

package {{.Package}}

{{.Imports}}
// Module provides every planned service registration.
var Module = fx.Module({{quote .Module}},{{range .Groups}}
	{{.Name}},{{end}}
)
{{range .Groups}}
// {{.Name}} registers the {{.Lifetime}} services.{{if .Factories}}
// Each one is provided as a factory returning a new instance per call.{{end}}
var {{.Name}} = fx.Options({{range .Provides}}
	// {{.Comment}}
	fx.Provide({{.Expr}}),{{end}}
)
{{end}}`

// ProviderTemplate renders a constructor wrapped with fx annotations
const ProviderTemplate = `{{if .Annotations}}fx.Annotate(
	{{.Func}},{{range .Annotations}}
	{{.}},{{end}}
){{else}}{{.Func}}{{end}}`

// FactoryTemplate renders a provider returning a func that constructs a new value per call
const FactoryTemplate = `func({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}} {{$p.Type}}{{end}}) {{.Factory}} {
	return func() {{.Results}} {
		return {{.Call}}
	}
}`

// ForwardTemplate renders a provider exposing a registration as another service type
const ForwardTemplate = `func(v {{.From}}) {{.To}} {
	return {{.Value}}
}`

// TemplateRegistry provides the templates emission uses, by name
type TemplateRegistry struct {
	templates map[string]string
}

// NewTemplateRegistry creates a registry with all templates
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: map[string]string{
		"file":     FileTemplate,
		"provider": ProviderTemplate,
		"factory":  FactoryTemplate,
		"forward":  ForwardTemplate,
	}}
}

// Get retrieves a template by name
func (tr *TemplateRegistry) Get(name string) (string, bool) {
	t, ok := tr.templates[name]
	return t, ok
}

// MustGet retrieves a template by name, panics if not found
func (tr *TemplateRegistry) MustGet(name string) string {
	t, ok := tr.templates[name]
	if !ok {
		panic("template not found: " + name)
	}
	return t
}

var funcMap = template.FuncMap{
	"quote": strconv.Quote,
}

// executeTemplate executes a Go template with the given data
func executeTemplate(name, templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(funcMap).Parse(templateStr)
	if err != nil {
		return "", errors.WrapParseError("template "+name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.WrapWithOperation("execute template", name, err)
	}
	return buf.String(), nil
}
