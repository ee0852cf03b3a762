package loader

import "gopkg.in/yaml.v3"

// position is the YAML node position of a spec element
type position struct {
	line   int
	column int
}

// Document is the on-disk snapshot format
type Document struct {
	Assemblies []assemblySpec `yaml:"assemblies"`
	Rules      []ruleSpec     `yaml:"rules"`
}

type assemblySpec struct {
	Name       string          `yaml:"name"`
	Alias      string          `yaml:"alias"` // extern alias, empty for the global root
	Namespaces []namespaceSpec `yaml:"namespaces"`
}

type namespaceSpec struct {
	Name  string      `yaml:"name"`
	Types []*typeSpec `yaml:"types"`
}

type typeSpec struct {
	Name         string           `yaml:"name"`
	Kind         string           `yaml:"kind"`
	Abstract     bool             `yaml:"abstract"`
	Accessible   *bool            `yaml:"accessible"`
	Base         string           `yaml:"base"`
	Interfaces   []string         `yaml:"interfaces"`
	Generic      []paramSpec      `yaml:"generic"`
	Annotations  []annotationSpec `yaml:"annotations"`
	Constructors []ctorSpec       `yaml:"constructors"`
	Nested       []*typeSpec      `yaml:"nested"`
	pos          position
}

func (t *typeSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain typeSpec
	if err := n.Decode((*plain)(t)); err != nil {
		return err
	}
	t.pos = position{n.Line, n.Column}
	return nil
}

type paramSpec struct {
	Name        string   `yaml:"name"`
	Variance    string   `yaml:"variance"` // in, out or empty
	Class       bool     `yaml:"class"`
	Struct      bool     `yaml:"struct"`
	New         bool     `yaml:"new"`
	Constraints []string `yaml:"constraints"`
}

type ctorSpec struct {
	Accessible  *bool            `yaml:"accessible"`
	Annotations []annotationSpec `yaml:"annotations"`
	Parameters  []parameterSpec  `yaml:"parameters"`
	pos         position
}

func (c *ctorSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain ctorSpec
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	c.pos = position{n.Line, n.Column}
	return nil
}

type parameterSpec struct {
	Name        string           `yaml:"name"`
	Type        string           `yaml:"type"`
	Annotations []annotationSpec `yaml:"annotations"`
}

// annotationSpec is an annotation expression written as a YAML scalar
type annotationSpec struct {
	Text string
	pos  position
}

func (a *annotationSpec) UnmarshalYAML(n *yaml.Node) error {
	if err := n.Decode(&a.Text); err != nil {
		return err
	}
	a.pos = position{n.Line, n.Column}
	return nil
}

type ruleSpec struct {
	AssignableTo string `yaml:"assignable_to"`
	Pattern      string `yaml:"pattern"`
	Lifetime     string `yaml:"lifetime"`
	pos          position
}

func (r *ruleSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain ruleSpec
	if err := n.Decode((*plain)(r)); err != nil {
		return err
	}
	r.pos = position{n.Line, n.Column}
	return nil
}

func accessible(b *bool) bool {
	return b == nil || *b
}
