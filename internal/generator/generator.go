// Package generator prints synthesized declarations as a gofmt-formatted Go
// source file.
package generator

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"strconv"
	"strings"
)

// CodeGenerator turns a synthesized file into Go source.
type CodeGenerator interface {
	Generate(file *File) ([]byte, error)
}

// Import is one import of a generated file.
type Import struct {
	Name string // explicit package name, empty for the default
	Path string
}

// Decl is a top-level declaration with its doc comment lines.
type Decl struct {
	Doc  []string
	Node ast.Decl
}

// File is everything needed to print one generated compilation unit.
type File struct {
	Header  Header
	Package string
	Imports []Import
	Decls   []Decl
}

type goCodeGenerator struct {
}

// NewGoCodeGenerator creates a new instance of CodeGenerator that generates Go code.
func NewGoCodeGenerator() CodeGenerator {
	return &goCodeGenerator{}
}

// Generate implements the CodeGenerator interface.
func (g *goCodeGenerator) Generate(file *File) ([]byte, error) {
	var buf bytes.Buffer
	file.Header.write(&buf)
	fmt.Fprintf(&buf, "package %s\n\n", file.Package)

	if len(file.Imports) > 0 {
		buf.WriteString("import (\n")
		for _, imp := range file.Imports {
			if imp.Name != "" {
				buf.WriteString(imp.Name + " ")
			}
			buf.WriteString(strconv.Quote(imp.Path) + "\n")
		}
		buf.WriteString(")\n\n")
	}

	fset := token.NewFileSet()
	for _, d := range file.Decls {
		for _, line := range d.Doc {
			buf.WriteString(strings.TrimRight("// "+line, " ") + "\n")
		}
		if err := format.Node(&buf, fset, d.Node); err != nil {
			return nil, fmt.Errorf("failed to print %s: %w", DeclName(d.Node), err)
		}
		buf.WriteString("\n\n")
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated file: %w", err)
	}
	return out, nil
}

// DeclName returns the name declared by d, for messages.
func DeclName(d ast.Decl) string {
	switch d := d.(type) {
	case *ast.FuncDecl:
		if d.Recv != nil && len(d.Recv.List) > 0 {
			return receiverTypeName(d.Recv.List[0].Type) + "." + d.Name.Name
		}
		return d.Name.Name
	case *ast.GenDecl:
		if len(d.Specs) > 0 {
			if ts, ok := d.Specs[0].(*ast.TypeSpec); ok {
				return ts.Name.Name
			}
		}
		return d.Tok.String()
	}
	return "declaration"
}

func receiverTypeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(e.X)
	case *ast.IndexExpr:
		return receiverTypeName(e.X)
	case *ast.IndexListExpr:
		return receiverTypeName(e.X)
	case *ast.Ident:
		return e.Name
	}
	return "?"
}

var _ CodeGenerator = (*goCodeGenerator)(nil)
