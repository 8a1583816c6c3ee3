package hierarchy

import (
	"fmt"
	"strings"

	"martianoff/visitorgen/visitorerr"
)

// RootPolicy picks the root of a leaf that names none.
type RootPolicy interface {
	InferRoot(leaf DeclaredType) (TypeRef, error)
}

// RootPolicyFunc adapts a function to RootPolicy.
type RootPolicyFunc func(leaf DeclaredType) (TypeRef, error)

func (f RootPolicyFunc) InferRoot(leaf DeclaredType) (TypeRef, error) {
	return f(leaf)
}

// FirstDeclared uses the leaf's super-type if it has one, otherwise its first
// super-capability. Further candidates are ignored.
var FirstDeclared RootPolicy = RootPolicyFunc(func(leaf DeclaredType) (TypeRef, error) {
	if super, ok := leaf.SuperType(); ok {
		return super, nil
	}
	if caps := leaf.SuperCapabilities(); len(caps) > 0 {
		return caps[0], nil
	}
	return TypeRef{}, visitorerr.NewNoRootFoundError(leaf, "it has no super-type and implements no asserted interface")
})

// Strict infers a root only when exactly one candidate exists.
var Strict RootPolicy = RootPolicyFunc(func(leaf DeclaredType) (TypeRef, error) {
	var candidates []TypeRef
	if super, ok := leaf.SuperType(); ok {
		candidates = append(candidates, super)
	}
	candidates = append(candidates, leaf.SuperCapabilities()...)

	switch len(candidates) {
	case 0:
		return TypeRef{}, visitorerr.NewNoRootFoundError(leaf, "it has no super-type and implements no asserted interface")
	case 1:
		return candidates[0], nil
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return TypeRef{}, visitorerr.NewNoRootFoundError(leaf,
		fmt.Sprintf("ambiguous among %s; name the root explicitly", strings.Join(names, ", ")))
})

// refName returns the name a registry lookup should use for ref.
func refName(ref TypeRef) string {
	if ref.Qualified != "" {
		return ref.Qualified
	}
	return ref.Name
}
