package generator

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloDecl() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name: ast.NewIdent("Hello"),
		Type: &ast.FuncType{
			Params:  &ast.FieldList{},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("string")}}},
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{
			&ast.ReturnStmt{Results: []ast.Expr{&ast.BasicLit{Kind: token.STRING, Value: `"hi"`}}},
		}},
	}
}

func pointDecl() *ast.GenDecl {
	return &ast.GenDecl{
		Tok: token.TYPE,
		Specs: []ast.Spec{&ast.TypeSpec{
			Name: ast.NewIdent("Point"),
			Type: &ast.StructType{Fields: &ast.FieldList{List: []*ast.Field{
				{Names: []*ast.Ident{ast.NewIdent("X"), ast.NewIdent("Y")}, Type: ast.NewIdent("int")},
			}}},
		}},
	}
}

func TestGoCodeGenerator_Generate(t *testing.T) {
	g := NewGoCodeGenerator()

	tests := []struct {
		name     string
		file     *File
		contains []string
	}{
		{
			name: "Header and package",
			file: &File{Package: "shapes"},
			contains: []string{
				"// Code generated by visitorgen. DO NOT EDIT.\n\n//go:build !visitorgen\n\npackage shapes\n",
			},
		},
		{
			name: "Sources and fingerprint",
			file: &File{
				Header:  Header{Fingerprint: "h1:abc=", Sources: []string{"a.go", "b.go"}},
				Package: "shapes",
			},
			contains: []string{
				"// source: a.go, b.go\n",
				"// visitorgen:fingerprint h1:abc=\n\npackage shapes",
			},
		},
		{
			name: "Imports",
			file: &File{
				Package: "shapes",
				Imports: []Import{{Path: "fmt"}, {Name: "c", Path: "golang.org/x/exp/constraints"}},
			},
			contains: []string{"import (\n\t\"fmt\"\n\tc \"golang.org/x/exp/constraints\"\n)"},
		},
		{
			name: "Declarations with docs",
			file: &File{
				Package: "shapes",
				Decls: []Decl{
					{Doc: []string{"Point is a point."}, Node: pointDecl()},
					{Doc: []string{"Hello greets.", ""}, Node: helloDecl()},
				},
			},
			contains: []string{
				"// Point is a point.\ntype Point struct {\n\tX, Y int\n}",
				"// Hello greets.\n//\nfunc Hello() string",
				"return \"hi\"",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := g.Generate(tt.file)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(out), want)
			}

			f, err := parser.ParseFile(token.NewFileSet(), "gen.go", out, parser.ParseComments)
			require.NoError(t, err)
			assert.Equal(t, tt.file.Package, f.Name.Name)
			assert.Len(t, f.Decls, len(tt.file.Decls)+boolToInt(len(tt.file.Imports) > 0))
		})
	}
}

func TestGoCodeGenerator_InvalidDecl(t *testing.T) {
	bad := &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{&ast.TypeSpec{
		Name: ast.NewIdent("1broken"),
		Type: ast.NewIdent("int"),
	}}}
	_, err := NewGoCodeGenerator().Generate(&File{Package: "p", Decls: []Decl{{Node: bad}}})
	assert.Error(t, err)
}

func TestDeclName(t *testing.T) {
	method := helloDecl()
	method.Recv = &ast.FieldList{List: []*ast.Field{{
		Type: &ast.StarExpr{X: &ast.IndexExpr{X: ast.NewIdent("Box"), Index: ast.NewIdent("T")}},
	}}}

	assert.Equal(t, "Hello", DeclName(helloDecl()))
	assert.Equal(t, "Box.Hello", DeclName(method))
	assert.Equal(t, "Point", DeclName(pointDecl()))
	assert.Equal(t, "import", DeclName(&ast.GenDecl{Tok: token.IMPORT}))
}

func TestIsGenerated(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"marker first", "// Code generated by visitorgen. DO NOT EDIT.\n\npackage p\n", true},
		{"marker after other comments", "// Copyright\n\n// Code generated by visitorgen. DO NOT EDIT.\npackage p\n", true},
		{"other generator", "// Code generated by stringer. DO NOT EDIT.\npackage p\n", false},
		{"marker after package", "package p\n\n// Code generated by visitorgen. DO NOT EDIT.\n", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGenerated([]byte(tt.src)))
		})
	}
}

func TestReadFingerprint(t *testing.T) {
	out, err := NewGoCodeGenerator().Generate(&File{
		Header:  Header{Fingerprint: "h1:xyz="},
		Package: "p",
	})
	require.NoError(t, err)

	fp, ok := ReadFingerprint(out)
	assert.True(t, ok)
	assert.Equal(t, "h1:xyz=", fp)

	_, ok = ReadFingerprint([]byte("package p\n\n// visitorgen:fingerprint h1:late=\n"))
	assert.False(t, ok)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package p\n\ntype A struct{}\n")
	b := writeFile(t, dir, "b.go", "package p\n\ntype B struct{}\n")

	first, err := Fingerprint([]string{a, b})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "h1:"))

	t.Run("Order independent", func(t *testing.T) {
		second, err := Fingerprint([]string{b, a, b})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Line endings ignored", func(t *testing.T) {
		other := t.TempDir()
		crlfA := writeFile(t, other, "a.go", "package p\r\n\r\ntype A struct{}\r\n")
		crlfB := writeFile(t, other, "b.go", "package p\r\rtype B struct{}\r")
		second, err := Fingerprint([]string{crlfA, crlfB})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Content changes", func(t *testing.T) {
		other := t.TempDir()
		changed := writeFile(t, other, "a.go", "package p\n\ntype A struct{ X int }\n")
		second, err := Fingerprint([]string{changed, b})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Fingerprint([]string{filepath.Join(dir, "missing.go")})
		assert.Error(t, err)
	})
}

func TestNormalizeLineEndings(t *testing.T) {
	assert.Equal(t, []byte("a\nb\nc\n"), normalizeLineEndings([]byte("a\r\nb\rc\n")))
	assert.Equal(t, []byte{}, normalizeLineEndings(nil))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
