package emit

import (
	"fmt"
	"go/types"
	"sort"
	"strconv"
	"strings"
)

// ImportManager assigns package names to import paths and renders the
// import block of a generated file
type ImportManager struct {
	self     string            // import path of the generated package
	names    map[string]string // path -> name used in the file
	taken    map[string]string // name -> path
	standard map[string]bool
}

// NewImportManager creates an import manager for a file in package self.
// self may be empty when the file is not part of a known package.
func NewImportManager(self string) *ImportManager {
	return &ImportManager{
		self:     self,
		names:    make(map[string]string),
		taken:    make(map[string]string),
		standard: make(map[string]bool),
	}
}

// AddImport adds an import that is referenced by its own package name
func (im *ImportManager) AddImport(path string) {
	if path == "" {
		return
	}
	im.standard[path] = true
	name := path[strings.LastIndex(path, "/")+1:]
	im.taken[name] = path
	im.names[path] = name
}

// Name returns the name pkg is referenced by, importing it on first use.
// Packages whose name is taken by another path get a numbered alias.
func (im *ImportManager) Name(pkg *types.Package) string {
	if pkg == nil || pkg.Path() == im.self {
		return ""
	}
	if name, ok := im.names[pkg.Path()]; ok {
		return name
	}
	name := pkg.Name()
	for i := 2; im.taken[name] != ""; i++ {
		name = pkg.Name() + strconv.Itoa(i)
	}
	im.names[pkg.Path()] = name
	im.taken[name] = pkg.Path()
	return name
}

// Qualifier returns a types.Qualifier that imports packages as it names them
func (im *ImportManager) Qualifier() types.Qualifier {
	return im.Name
}

// TypeString renders t as it is written in the generated file
func (im *ImportManager) TypeString(t types.Type) string {
	return types.TypeString(t, im.Qualifier())
}

// Paths returns the imported paths, sorted
func (im *ImportManager) Paths() []string {
	paths := make([]string, 0, len(im.names))
	for path := range im.names {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GenerateImports generates the import section, standard imports first
func (im *ImportManager) GenerateImports() string {
	if len(im.names) == 0 {
		return ""
	}

	var std, pkgs []string
	for _, path := range im.Paths() {
		name := im.names[path]
		switch {
		case im.standard[path]:
			std = append(std, strconv.Quote(path))
		case name != path[strings.LastIndex(path, "/")+1:]:
			pkgs = append(pkgs, fmt.Sprintf("%s %s", name, strconv.Quote(path)))
		default:
			pkgs = append(pkgs, strconv.Quote(path))
		}
	}

	var result strings.Builder
	result.WriteString("import (\n")
	for _, imp := range std {
		fmt.Fprintf(&result, "\t%s\n", imp)
	}
	if len(std) > 0 && len(pkgs) > 0 {
		result.WriteString("\n")
	}
	for _, imp := range pkgs {
		fmt.Fprintf(&result, "\t%s\n", imp)
	}
	result.WriteString(")\n")
	return result.String()
}
