package main

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/packages"
)

const kitdiImportPath = "github.com/a-peyrard/kitdi"

type (
	// TypeRef is a named type, possibly behind a pointer. ImportPath is empty for predeclared types.
	TypeRef struct {
		ImportPath string
		Name       string
		Pointer    bool
	}

	ServiceDefinition struct {
		FnName      string
		ImportPath  string
		Description string

		Implementation TypeRef
		// Contract is nil when the service is registered as itself.
		Contract *TypeRef
	}

	RegistryDefinition struct {
		PackageName string
		ImportPath  string
		StructName  string
	}

	scanResult struct {
		services   []ServiceDefinition
		registries []RegistryDefinition
		problems   []error
	}
)

func (t TypeRef) String() string {
	name := t.Name
	if t.ImportPath != "" {
		name = t.ImportPath + "." + name
	}
	if t.Pointer {
		return "*" + name
	}
	return name
}

func (s ServiceDefinition) String() string {
	contract := "itself"
	if s.Contract != nil {
		contract = s.Contract.String()
	}
	return fmt.Sprintf("%s.%s, builds %s as %s", s.ImportPath, s.FnName, s.Implementation, contract)
}

func (r *scanResult) merge(other scanResult) {
	r.services = append(r.services, other.services...)
	r.registries = append(r.registries, other.registries...)
	r.problems = append(r.problems, other.problems...)
}

// scanModule parses every package under dir, looking for the @service constructors of the whole
// module, and for the registry struct in the file running the generation.
func scanModule(logger zerolog.Logger, dir string, targetFilePath string) (*RegistryDefinition, []ServiceDefinition, error) {
	startScan := time.Now()

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packages of %s:\n\t%w", dir, err)
	}

	var result scanResult
	for _, pkg := range pkgs {
		logger.Debug().Str("package", pkg.PkgPath).Msg("scanning package")
		for _, file := range pkg.Syntax {
			filePath := pkg.Fset.Position(file.Pos()).Filename
			isTarget := filepath.Clean(filePath) == filepath.Clean(targetFilePath)
			result.merge(scanFile(file, pkg.PkgPath, isTarget))
		}
	}

	for _, problem := range result.problems {
		logger.Warn().Err(problem).Msg("skipping service")
	}
	for _, service := range result.services {
		logger.Debug().Stringer("service", service).Msg("found service")
	}
	logger.Info().
		Int("services", len(result.services)).
		Dur("took", time.Since(startScan)).
		Msg("scan completed")

	switch len(result.registries) {
	case 0:
		return nil, nil, fmt.Errorf(
			"no registry struct found in %s, declare one like:\n\ttype Registry struct {\n\t\tkitdi.EmptyRegistry\n\t}",
			targetFilePath,
		)
	case 1:
		return &result.registries[0], result.services, nil
	default:
		return nil, nil, fmt.Errorf("%d registry structs found in %s, only one is allowed", len(result.registries), targetFilePath)
	}
}

func scanFile(file *ast.File, importPath string, lookForRegistry bool) scanResult {
	var result scanResult
	imports := fileImports(file)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if lookForRegistry && d.Tok == token.TYPE {
				result.registries = append(result.registries, findRegistries(d, file.Name.Name, importPath, imports)...)
			}
		case *ast.FuncDecl:
			if d.Recv != nil || d.Doc == nil || !hasServiceAnnotation(d.Doc.Text()) {
				continue
			}
			service, err := parseService(d, importPath, imports)
			if err != nil {
				result.problems = append(result.problems, fmt.Errorf("%s.%s: %w", importPath, d.Name.Name, err))
				continue
			}
			result.services = append(result.services, service)
		}
	}

	return result
}

func findRegistries(decl *ast.GenDecl, packageName, importPath string, imports map[string]string) []RegistryDefinition {
	var registries []RegistryDefinition
	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		structType, ok := typeSpec.Type.(*ast.StructType)
		if !ok {
			continue
		}
		for _, field := range structType.Fields.List {
			if len(field.Names) == 0 && isEmptyRegistry(field.Type, imports) {
				registries = append(registries, RegistryDefinition{
					PackageName: packageName,
					ImportPath:  importPath,
					StructName:  typeSpec.Name.Name,
				})
			}
		}
	}
	return registries
}

func isEmptyRegistry(expr ast.Expr, imports map[string]string) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && sel.Sel.Name == "EmptyRegistry" && imports[ident.Name] == kitdiImportPath
}

func parseService(fn *ast.FuncDecl, importPath string, imports map[string]string) (ServiceDefinition, error) {
	if fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0 {
		return ServiceDefinition{}, errors.New("generic functions cannot be used as constructors")
	}
	results := fn.Type.Results
	if results == nil || results.NumFields() == 0 || results.NumFields() > 2 {
		return ServiceDefinition{}, errors.New("a constructor must return the service, optionally followed by an error")
	}
	if results.NumFields() == 2 {
		if ident, ok := results.List[len(results.List)-1].Type.(*ast.Ident); !ok || ident.Name != "error" {
			return ServiceDefinition{}, errors.New("the second result of a constructor must be an error")
		}
	}

	implementation, err := typeRefOf(results.List[0].Type, importPath, imports)
	if err != nil {
		return ServiceDefinition{}, err
	}

	annotation := parseServiceAnnotation(fn.Doc.Text())
	if unknown := annotation.UnknownProperties(); len(unknown) > 0 {
		return ServiceDefinition{}, fmt.Errorf("unknown properties %v in %s annotation", unknown, serviceAnnotationTag)
	}

	service := ServiceDefinition{
		FnName:         fn.Name.Name,
		ImportPath:     importPath,
		Description:    annotation.description,
		Implementation: implementation,
	}
	if as, found := annotation.As(); found {
		contract, err := parseTypeName(as, importPath, imports)
		if err != nil {
			return ServiceDefinition{}, err
		}
		service.Contract = &contract
	}
	return service, nil
}

func typeRefOf(expr ast.Expr, importPath string, imports map[string]string) (TypeRef, error) {
	switch t := expr.(type) {
	case *ast.StarExpr:
		ref, err := typeRefOf(t.X, importPath, imports)
		if err != nil {
			return TypeRef{}, err
		}
		if ref.Pointer {
			return TypeRef{}, errors.New("pointers to pointers are not supported")
		}
		ref.Pointer = true
		return ref, nil

	case *ast.Ident:
		if types.Universe.Lookup(t.Name) != nil {
			return TypeRef{Name: t.Name}, nil
		}
		return TypeRef{ImportPath: importPath, Name: t.Name}, nil

	case *ast.SelectorExpr:
		ident, ok := t.X.(*ast.Ident)
		if !ok {
			return TypeRef{}, fmt.Errorf("unsupported type %T", t.X)
		}
		path, found := imports[ident.Name]
		if !found {
			return TypeRef{}, fmt.Errorf("no import found for %s", ident.Name)
		}
		return TypeRef{ImportPath: path, Name: t.Sel.Name}, nil

	default:
		return TypeRef{}, fmt.Errorf("unsupported type %T, only named types and pointers to named types are supported", expr)
	}
}

// parseTypeName parses a type written in an annotation, like Compiler, *Compiler or build.Compiler.
func parseTypeName(raw string, importPath string, imports map[string]string) (TypeRef, error) {
	pointer := strings.HasPrefix(raw, "*")
	parts := strings.Split(strings.TrimPrefix(raw, "*"), ".")
	if len(parts) > 2 {
		return TypeRef{}, fmt.Errorf("invalid type %q", raw)
	}
	for _, part := range parts {
		if !token.IsIdentifier(part) {
			return TypeRef{}, fmt.Errorf("invalid type %q", raw)
		}
	}

	var expr ast.Expr = ast.NewIdent(parts[0])
	if len(parts) == 2 {
		expr = &ast.SelectorExpr{X: ast.NewIdent(parts[0]), Sel: ast.NewIdent(parts[1])}
	}
	if pointer {
		expr = &ast.StarExpr{X: expr}
	}
	return typeRefOf(expr, importPath, imports)
}

func fileImports(file *ast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		var alias string
		if imp.Name != nil {
			alias = imp.Name.Name
		} else {
			alias = defaultPackageName(path)
		}
		if alias == "_" || alias == "." {
			continue
		}
		imports[alias] = path
	}
	return imports
}

// defaultPackageName guesses the name of a package from its import path, the way goimports does:
// major version suffixes and go- prefixes are skipped, and the name stops at the first character
// not allowed in an identifier.
func defaultPackageName(importPath string) string {
	tokens := strings.Split(importPath, "/")
	last := tokens[len(tokens)-1]
	if len(tokens) > 1 && isMajorVersion(last) {
		last = tokens[len(tokens)-2]
	}
	last = strings.TrimPrefix(last, "go-")
	if i := strings.IndexFunc(last, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}); i >= 0 {
		last = last[:i]
	}
	return last
}

func isMajorVersion(elem string) bool {
	if len(elem) < 2 || elem[0] != 'v' {
		return false
	}
	for _, r := range elem[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
