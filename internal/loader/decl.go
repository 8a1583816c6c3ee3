package loader

import (
	"go/ast"
	"go/types"
	"path"
	"strconv"

	"golang.org/x/tools/go/packages"

	"martianoff/visitorgen/internal/hierarchy"
)

// pkgDecls turns the type declarations of one package into hierarchy types.
// Type information is used when present; the packages being generated for
// usually fail to type-check until their visitor file exists, so everything
// also works from syntax alone.
type pkgDecls struct {
	pkg   *packages.Package
	scope hierarchy.Scope
	// asserted maps a type name to the interfaces "var _ I = T{}" style
	// declarations say it implements, in source order.
	asserted map[string][]hierarchy.TypeRef
}

func newPkgDecls(pkg *packages.Package, scope hierarchy.Scope) *pkgDecls {
	d := &pkgDecls{pkg: pkg, scope: scope, asserted: make(map[string][]hierarchy.TypeRef)}
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gd.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok || vs.Type == nil || len(vs.Names) != 1 || vs.Names[0].Name != "_" || len(vs.Values) != 1 {
					continue
				}
				name, ok := assertedType(vs.Values[0])
				if !ok {
					continue
				}
				if ref, ok := d.ref(vs.Type); ok {
					d.asserted[name] = append(d.asserted[name], ref)
				}
			}
		}
	}
	return d
}

// assertedType returns the type named by T{}, &T{}, or (*T)(nil).
func assertedType(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.CompositeLit:
		return baseName(e.Type)
	case *ast.UnaryExpr:
		if lit, ok := e.X.(*ast.CompositeLit); ok {
			return baseName(lit.Type)
		}
	case *ast.CallExpr:
		paren, ok := e.Fun.(*ast.ParenExpr)
		if !ok || len(e.Args) != 1 {
			return "", false
		}
		if star, ok := paren.X.(*ast.StarExpr); ok {
			return baseName(star.X)
		}
	}
	return "", false
}

func baseName(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.IndexExpr:
		return baseName(e.X)
	case *ast.IndexListExpr:
		return baseName(e.X)
	}
	return "", false
}

// declaredType builds the hierarchy type of spec, declared in file.
func (d *pkgDecls) declaredType(file *ast.File, spec *ast.TypeSpec) *hierarchy.Type {
	t := &hierarchy.Type{
		Name: spec.Name.Name,
		Pkg:  d.scope,
		Pos:  d.pkg.Fset.Position(spec.Name.Pos()),
	}

	if spec.TypeParams != nil {
		imports := fileImports(d.pkg, file)
		for _, f := range spec.TypeParams.List {
			constraint := types.ExprString(f.Type)
			used := constraintImports(f.Type, imports)
			for _, n := range f.Names {
				t.Params = append(t.Params, hierarchy.TypeParam{Name: n.Name, Constraint: constraint, Imports: used})
			}
		}
	}

	switch typ := spec.Type.(type) {
	case *ast.InterfaceType:
		t.Interface = true
		for _, m := range typ.Methods.List {
			if len(m.Names) > 0 {
				continue
			}
			if ref, ok := d.ref(m.Type); ok {
				t.Capabilities = append(t.Capabilities, ref)
			}
		}
	case *ast.StructType:
		for _, f := range typ.Fields.List {
			if len(f.Names) > 0 {
				continue
			}
			if ref, ok := d.ref(f.Type); ok {
				t.Super = &ref
			}
			break
		}
	}
	if !t.Interface {
		t.Capabilities = d.asserted[t.Name]
	}
	return t
}

// ref names the type expr refers to. Type arguments are dropped.
func (d *pkgDecls) ref(expr ast.Expr) (hierarchy.TypeRef, bool) {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return d.ref(e.X)
	case *ast.IndexExpr:
		return d.ref(e.X)
	case *ast.IndexListExpr:
		return d.ref(e.X)
	case *ast.Ident:
		return hierarchy.TypeRef{Name: e.Name, Qualified: d.qualified(e)}, true
	case *ast.SelectorExpr:
		if x, ok := e.X.(*ast.Ident); ok {
			return hierarchy.TypeRef{Name: x.Name + "." + e.Sel.Name, Qualified: d.qualified(e.Sel)}, true
		}
	}
	return hierarchy.TypeRef{}, false
}

// qualified resolves id through the type checker, if it got that far.
func (d *pkgDecls) qualified(id *ast.Ident) string {
	if d.pkg.TypesInfo == nil {
		return ""
	}
	tn, ok := d.pkg.TypesInfo.Uses[id].(*types.TypeName)
	if !ok || tn.Pkg() == nil {
		return ""
	}
	return tn.Pkg().Path() + "." + tn.Name()
}

// fileImports maps the local name of every import of file to the import.
func fileImports(pkg *packages.Package, file *ast.File) map[string]hierarchy.Import {
	out := make(map[string]hierarchy.Import)
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imp := hierarchy.Import{Path: p}
		local := path.Base(p)
		if spec.Name != nil {
			imp.Name = spec.Name.Name
			local = spec.Name.Name
		} else if pkg.TypesInfo != nil {
			if pn := pkg.TypesInfo.PkgNameOf(spec); pn != nil {
				local = pn.Name()
			}
		}
		out[local] = imp
	}
	return out
}

// constraintImports lists the imports a constraint expression refers to.
func constraintImports(expr ast.Expr, imports map[string]hierarchy.Import) []hierarchy.Import {
	var out []hierarchy.Import
	seen := make(map[string]bool)
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		x, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if imp, ok := imports[x.Name]; ok && !seen[imp.Path] {
			seen[imp.Path] = true
			out = append(out, imp)
		}
		return true
	})
	return out
}
