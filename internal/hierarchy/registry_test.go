package hierarchy

import (
	"errors"
	"sync"
	"testing"

	"martianoff/visitorgen/internal/naming"
	"martianoff/visitorgen/visitorerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shapesScope = Scope{Path: "example.com/shapes", Name: "shapes", Dir: "/src/shapes", GoVersion: "go1.22"}

func iface(name string) *Type {
	return &Type{Name: name, Pkg: shapesScope, Interface: true}
}

func concrete(name string, caps ...string) *Type {
	t := &Type{Name: name, Pkg: shapesScope}
	for _, c := range caps {
		t.Capabilities = append(t.Capabilities, TypeRef{Name: c, Qualified: shapesScope.Path + "." + c})
	}
	return t
}

func TestRegisterRoot(t *testing.T) {
	r := NewRegistry(naming.NewPolicy(naming.MapSource{naming.KeyCasePrefix: "visit"}, nil))

	rec, err := r.RegisterRoot(iface("Shape"), []string{"Circle"})
	require.NoError(t, err)
	assert.Equal(t, "example.com/shapes.Shape", rec.QualifiedName())
	assert.Equal(t, []string{"Circle"}, rec.OrderHint)
	assert.Equal(t, "visit", rec.Config.CaseMethodPrefix)

	got, ok := r.Root("example.com/shapes.Shape")
	require.True(t, ok)
	assert.Same(t, rec, got)
	assert.Equal(t, []string{"example.com/shapes.Shape"}, r.Roots())
}

func TestRegisterRootDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	first, err := r.RegisterRoot(iface("Shape"), []string{"Circle"})
	require.NoError(t, err)

	second, err := r.RegisterRoot(iface("Shape"), nil)
	var dup *visitorerr.DuplicateRootError
	require.True(t, errors.As(err, &dup))
	assert.Same(t, first, second)
	assert.Equal(t, []string{"Circle"}, second.OrderHint)
}

func TestRegisterRootMustBeInterface(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(concrete("Shape"), nil)
	var marker *visitorerr.InvalidMarkerError
	require.True(t, errors.As(err, &marker))
	assert.Empty(t, r.Roots())
}

func TestRegisterLeafDerivesNames(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)

	require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape"}, 0))
	require.NoError(t, r.RegisterLeaf(concrete("Type"), []string{"example.com/shapes.Shape"}, 3, WithReceiver(ValueReceiver)))

	snaps := r.Snapshot()
	require.Len(t, snaps, 1)
	leaves := snaps[0].Leaves
	require.Len(t, leaves, 2)

	assert.Equal(t, "caseCircle", leaves[0].CaseMethod)
	assert.Equal(t, "circle", leaves[0].Binding)
	assert.Equal(t, PointerReceiver, leaves[0].Receiver)

	assert.Equal(t, "caseType", leaves[1].CaseMethod)
	assert.Equal(t, "type_", leaves[1].Binding)
	assert.Equal(t, 3, leaves[1].Weight)
	assert.Equal(t, ValueReceiver, leaves[1].Receiver)
}

func TestShapeScenario(t *testing.T) {
	build := func(hint []string) []string {
		r := NewRegistry(nil)
		_, err := r.RegisterRoot(iface("Shape"), hint)
		require.NoError(t, err)
		require.NoError(t, r.RegisterLeaf(concrete("Triangle"), []string{"Shape"}, 1))
		require.NoError(t, r.RegisterLeaf(concrete("Square"), []string{"Shape"}, 0))
		require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape"}, 0))
		snaps := r.Snapshot()
		require.Len(t, snaps, 1)
		var methods []string
		for _, l := range snaps[0].Leaves {
			methods = append(methods, l.CaseMethod)
		}
		return methods
	}

	assert.Equal(t, []string{"caseCircle", "caseSquare", "caseTriangle"}, build(nil))
	assert.Equal(t, []string{"caseTriangle", "caseCircle", "caseSquare"}, build([]string{"Triangle", "Circle"}))
	assert.Equal(t, build(nil), build(nil))
}

func TestRegisterLeafUnresolved(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	_, err = r.RegisterRoot(iface("Expr"), nil)
	require.NoError(t, err)

	err = r.RegisterLeaf(concrete("Circle"), []string{"Shape", "Unknown"}, 0)
	var unresolved *visitorerr.UnresolvedRootError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []string{"Unknown"}, unresolved.Candidates)
	assert.Equal(t, []string{"example.com/shapes.Expr", "example.com/shapes.Shape"}, unresolved.Known)

	// the leaf joins no hierarchy, the others are unaffected
	require.NoError(t, r.RegisterLeaf(concrete("Square"), []string{"Shape"}, 0))
	for _, snap := range r.Snapshot() {
		for _, l := range snap.Leaves {
			assert.NotEqual(t, "Circle", l.SimpleName())
		}
	}
}

func TestRegisterLeafMultipleRoots(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	_, err = r.RegisterRoot(iface("Drawable"), nil)
	require.NoError(t, err)

	require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape", "Drawable", "Shape"}, 0))
	snaps := r.Snapshot()
	require.Len(t, snaps, 2)
	assert.Equal(t, "example.com/shapes.Drawable", snaps[0].Root.QualifiedName())
	for _, snap := range snaps {
		assert.Equal(t, []string{"Circle"}, names(snap.Leaves))
	}
}

func TestRegisterLeafIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape"}, 0))
	require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape"}, 5))

	snaps := r.Snapshot()
	require.Len(t, snaps[0].Leaves, 1)
	assert.Equal(t, 0, snaps[0].Leaves[0].Weight)
}

func TestRegisterLeafInference(t *testing.T) {
	t.Run("first capability", func(t *testing.T) {
		r := NewRegistry(nil)
		_, err := r.RegisterRoot(iface("Shape"), nil)
		require.NoError(t, err)
		require.NoError(t, r.RegisterLeaf(concrete("Circle", "Shape", "fmt.Stringer"), nil, 0))
		assert.Len(t, r.Snapshot()[0].Leaves, 1)
	})

	t.Run("super-type wins", func(t *testing.T) {
		r := NewRegistry(nil)
		_, err := r.RegisterRoot(iface("Shape"), nil)
		require.NoError(t, err)
		c := concrete("Circle", "Other")
		c.Super = &TypeRef{Name: "Shape"}
		require.NoError(t, r.RegisterLeaf(c, nil, 0))
	})

	t.Run("nothing to infer", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.RegisterLeaf(concrete("Circle"), nil, 0)
		var noRoot *visitorerr.NoRootFoundError
		require.True(t, errors.As(err, &noRoot))
	})

	t.Run("strict refuses ambiguity", func(t *testing.T) {
		r := NewRegistry(nil, WithRootPolicy(Strict))
		_, err := r.RegisterRoot(iface("Shape"), nil)
		require.NoError(t, err)

		err = r.RegisterLeaf(concrete("Circle", "Shape", "Drawable"), nil, 0)
		var noRoot *visitorerr.NoRootFoundError
		require.True(t, errors.As(err, &noRoot))
		assert.Contains(t, err.Error(), "ambiguous among Shape, Drawable")

		require.NoError(t, r.RegisterLeaf(concrete("Square", "Shape"), nil, 0))
	})
}

func TestRegisterLeafScopeAndTypeParams(t *testing.T) {
	r := NewRegistry(nil)
	root := iface("Expr")
	root.Params = []TypeParam{{Name: "T", Constraint: "any"}}
	_, err := r.RegisterRoot(root, nil)
	require.NoError(t, err)

	other := concrete("Lit")
	other.Pkg = Scope{Path: "example.com/other", Name: "other"}
	other.Params = []TypeParam{{Name: "T", Constraint: "any"}}
	err = r.RegisterLeaf(other, []string{"example.com/shapes.Expr"}, 0)
	var scope *visitorerr.ScopeMismatchError
	require.True(t, errors.As(err, &scope))
	assert.Equal(t, "example.com/other", scope.LeafScope)

	plain := concrete("Add")
	err = r.RegisterLeaf(plain, []string{"Expr"}, 0)
	var params *visitorerr.TypeParameterMismatchError
	require.True(t, errors.As(err, &params))
	assert.Equal(t, []string{"T"}, params.Want)
	assert.Empty(t, params.Got)

	generic := concrete("Mul")
	generic.Params = []TypeParam{{Name: "T", Constraint: "any"}}
	require.NoError(t, r.RegisterLeaf(generic, []string{"Expr"}, 0))
}

func TestRegisterLeafRejectsInterfaces(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	err = r.RegisterLeaf(iface("Polygon"), []string{"Shape"}, 0)
	var marker *visitorerr.InvalidMarkerError
	require.True(t, errors.As(err, &marker))
}

func TestPackageQualifiedRootName(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	require.NoError(t, r.RegisterLeaf(concrete("Circle"), []string{"shapes.Shape"}, 0))
}

func TestSnapshotSeals(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)
	r.Snapshot()

	assert.ErrorIs(t, r.RegisterLeaf(concrete("Circle"), []string{"Shape"}, 0), ErrSealed)
	_, err = r.RegisterRoot(iface("Expr"), nil)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.RegisterRoot(iface("Shape"), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Root("example.com/shapes.Shape")
			assert.True(t, ok)
			assert.Len(t, r.Roots(), 1)
		}()
	}
	wg.Wait()
}
