// Package hierarchy collects visitable roots and their leaves for one
// synthesis round and produces ordered snapshots of every hierarchy.
package hierarchy

import (
	"go/token"
	"strings"
)

// Scope is the package a declared type lives in.
type Scope struct {
	Path      string // import path
	Name      string // package name
	Dir       string // directory holding the package sources
	GoVersion string // go directive of the enclosing module, e.g. "go1.22"; empty if unknown
}

// TypeParam is one declared type parameter.
type TypeParam struct {
	Name       string
	Constraint string   // constraint as written in source
	Imports    []Import // imports the constraint refers to
}

// Import is a package import a declaration depends on.
type Import struct {
	Name string // name used in source when it differs from the path's last element
	Path string
}

// TypeRef names another declared type.
type TypeRef struct {
	Name      string // name as written, possibly package-qualified ("shapes.Shape")
	Qualified string // <pkgpath>.<Name> when the reference was resolved, otherwise empty
}

// DeclaredType is a named type supplied by the host. It is read-only.
type DeclaredType interface {
	QualifiedName() string
	SimpleName() string
	Scope() Scope
	TypeParams() []TypeParam
	// SuperType is the first embedded field of a struct type.
	SuperType() (TypeRef, bool)
	// SuperCapabilities are the embedded interfaces of an interface type, or the
	// interfaces a concrete type is asserted to implement, in declaration order.
	SuperCapabilities() []TypeRef
	IsInterface() bool
	Position() token.Position
}

// Type is the value implementation of DeclaredType.
type Type struct {
	Name         string
	Pkg          Scope
	Params       []TypeParam
	Super        *TypeRef
	Capabilities []TypeRef
	Interface    bool
	Pos          token.Position
}

func (t *Type) QualifiedName() string {
	if t.Pkg.Path == "" {
		return t.Name
	}
	return t.Pkg.Path + "." + t.Name
}

func (t *Type) SimpleName() string      { return t.Name }
func (t *Type) Scope() Scope            { return t.Pkg }
func (t *Type) TypeParams() []TypeParam { return t.Params }
func (t *Type) IsInterface() bool       { return t.Interface }
func (t *Type) Position() token.Position {
	return t.Pos
}

func (t *Type) SuperType() (TypeRef, bool) {
	if t.Super == nil {
		return TypeRef{}, false
	}
	return *t.Super, true
}

func (t *Type) SuperCapabilities() []TypeRef {
	return t.Capabilities
}

func (t *Type) String() string {
	return t.QualifiedName()
}

var _ DeclaredType = (*Type)(nil)

// TypeParamNames returns the names of t's type parameters.
func TypeParamNames(t DeclaredType) []string {
	params := t.TypeParams()
	if len(params) == 0 {
		return nil
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// qualify resolves name relative to scope. Names containing a dot are
// returned unchanged.
func qualify(name string, scope Scope) string {
	if strings.Contains(name, ".") || scope.Path == "" {
		return name
	}
	return scope.Path + "." + name
}

// simpleName strips any package qualification from name.
func simpleName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
