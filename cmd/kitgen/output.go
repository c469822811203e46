package main

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/a-peyrard/kitdi/set"
	"github.com/a-peyrard/kitdi/slices"
)

var registryTemplate = template.Must(template.New("registry").Parse(`// Code generated by kitgen. DO NOT EDIT.

package {{ .PackageName }}

import (
{{- if .Registrations }}
	"errors"
{{ end }}
	"github.com/a-peyrard/kitdi"
{{- range .Imports }}
	{{ .Alias }} "{{ .Path }}"
{{- end }}
)

// Register registers the services annotated with @service in the module.
func (r *{{ .StructName }}) Register(c *kitdi.Collection) error {
{{- if .Registrations }}
	return errors.Join(
{{- range .Registrations }}
		{{ . }},
{{- end }}
	)
{{- else }}
	return nil
{{- end }}
}
`))

type (
	importSpec struct {
		Alias string
		Path  string
	}

	templateData struct {
		PackageName   string
		StructName    string
		Imports       []importSpec
		Registrations []string
	}

	// importer assigns a unique alias to every package referenced by the generated code.
	importer struct {
		self            string
		aliases         set.Set[string]
		importWithAlias map[string]string
		imports         []importSpec
	}
)

func newImporter(self string) *importer {
	return &importer{
		self:            self,
		aliases:         set.NewFromSlice([]string{"errors", "kitdi", "c", "r"}),
		importWithAlias: make(map[string]string),
	}
}

func (i *importer) qualify(importPath string, typeName string) (string, error) {
	if importPath == "" || importPath == i.self {
		return generateFQN("", typeName, i.importWithAlias), nil
	}
	if !token.IsExported(strings.TrimPrefix(typeName, "*")) {
		return "", fmt.Errorf("%s.%s is not exported", importPath, typeName)
	}
	if _, found := i.importWithAlias[importPath]; !found {
		alias := findSuitableAlias(importPath, i.aliases)
		i.aliases.Add(alias)
		i.importWithAlias[importPath] = alias
		i.imports = append(i.imports, importSpec{Alias: alias, Path: importPath})
	}
	return generateFQN(importPath, typeName, i.importWithAlias), nil
}

func (i *importer) qualifyType(ref TypeRef) (string, error) {
	name := ref.Name
	if ref.Pointer {
		name = "*" + name
	}
	return i.qualify(ref.ImportPath, name)
}

// render generates the source of the Register method of the registry. The registrations are
// sorted, so the output only changes when the services change.
func render(registry *RegistryDefinition, services []ServiceDefinition) ([]byte, error) {
	sorted := make([]ServiceDefinition, len(services))
	copy(sorted, services)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].ImportPath != sorted[b].ImportPath {
			return sorted[a].ImportPath < sorted[b].ImportPath
		}
		return sorted[a].FnName < sorted[b].FnName
	})

	imp := newImporter(registry.ImportPath)
	registrations, err := slices.TryMap(sorted, imp.registration)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = registryTemplate.Execute(&buf, templateData{
		PackageName:   registry.PackageName,
		StructName:    registry.StructName,
		Imports:       imp.imports,
		Registrations: registrations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render the registry:\n\t%w", err)
	}

	code, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format the generated code:\n\t%w\n%s", err, buf.String())
	}
	return code, nil
}

func (i *importer) registration(service ServiceDefinition) (string, error) {
	constructor, err := i.qualify(service.ImportPath, service.FnName)
	if err != nil {
		return "", fmt.Errorf("cannot register %s:\n\t%w", service, err)
	}
	implementation, err := i.qualifyType(service.Implementation)
	if err != nil {
		return "", fmt.Errorf("cannot register %s:\n\t%w", service, err)
	}

	if service.Contract == nil {
		return fmt.Sprintf("kitdi.AddSelf[%s](c, kitdi.Constructor(%s))", implementation, constructor), nil
	}
	contract, err := i.qualifyType(*service.Contract)
	if err != nil {
		return "", fmt.Errorf("cannot register %s:\n\t%w", service, err)
	}
	return fmt.Sprintf("kitdi.Add[%s, %s](c, kitdi.Constructor(%s))", contract, implementation, constructor), nil
}

// findSuitableAlias derives an alias from the last element of the import path, prepending the
// initials of the previous elements, then a counter, until it does not collide.
func findSuitableAlias(pkg string, aliases set.Set[string]) string {
	tokens := strings.Split(pkg, "/")
	last := len(tokens) - 1
	if last > 0 && isMajorVersion(tokens[last]) {
		last--
	}

	alias := sanitizeAlias(tokens[last])
	for i := last - 1; i >= 0 && aliases.Contains(alias); i-- {
		alias = initial(tokens[i]) + alias
	}
	if !aliases.Contains(alias) {
		return alias
	}

	for n := 0; ; n++ {
		candidate := alias + strconv.Itoa(n)
		if !aliases.Contains(candidate) {
			return candidate
		}
	}
}

func sanitizeAlias(elem string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(elem) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	alias := b.String()
	if alias == "" || unicode.IsDigit(rune(alias[0])) || alias == "main" || token.IsKeyword(alias) {
		alias = "pkg" + alias
	}
	return alias
}

func initial(elem string) string {
	for _, r := range strings.ToLower(elem) {
		if unicode.IsLetter(r) {
			return string(r)
		}
	}
	return "x"
}

// generateFQN qualifies the type name with the alias of its package, keeping the pointer first.
func generateFQN(importPath, typeName string, importWithAlias map[string]string) string {
	alias, found := importWithAlias[importPath]
	if importPath == "" || !found {
		return typeName
	}
	if strings.HasPrefix(typeName, "*") {
		return "*" + alias + "." + strings.TrimPrefix(typeName, "*")
	}
	return alias + "." + typeName
}
