package visitorerr_test

import (
	"errors"
	"go/token"
	"strings"
	"testing"

	"martianoff/visitorgen/visitorerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subject struct {
	name string
	pos  token.Position
}

func (s subject) QualifiedName() string    { return s.name }
func (s subject) Position() token.Position { return s.pos }

type bareSubject string

func (s bareSubject) QualifiedName() string { return string(s) }

func TestDuplicateRootError(t *testing.T) {
	err := visitorerr.NewDuplicateRootError(bareSubject("example.com/shapes.Shape"))
	assert.Equal(t, visitorerr.TypeDuplicateRoot, err.Type())
	assert.Equal(t, visitorerr.SeverityError, err.Severity())
	assert.Equal(t, "[DuplicateRootError] example.com/shapes.Shape is already a visitable root", err.Error())
}

func TestErrorWithPosition(t *testing.T) {
	s := subject{
		name: "example.com/shapes.Circle",
		pos:  token.Position{Filename: "shapes.go", Line: 12, Column: 6},
	}
	err := visitorerr.NewNoRootFoundError(s, "")
	assert.Equal(t, "[NoRootFoundError] shapes.go:12:6 cannot find a visitable root for example.com/shapes.Circle", err.Error())
}

func TestUnresolvedRootError(t *testing.T) {
	err := visitorerr.NewUnresolvedRootError(bareSubject("p.Circle"), []string{"p.Unknown"}, []string{"p.Shape", "p.Expr"})
	assert.Equal(t, visitorerr.TypeUnresolvedRoot, err.Type())
	assert.Equal(t, []string{"p.Unknown"}, err.Candidates)
	assert.Equal(t, []string{"p.Expr", "p.Shape"}, err.Known)
	assert.Contains(t, err.Error(), "cannot find p.Unknown among [p.Expr, p.Shape]")
}

func TestWarnings(t *testing.T) {
	host := visitorerr.NewUnsupportedHostVersionError(bareSubject("p.Shape"), "lambda implementation", "go1.17")
	assert.Equal(t, visitorerr.SeverityWarning, host.Severity())
	assert.Equal(t, "warning", host.Severity().String())
	assert.Contains(t, host.Error(), "go1.17")

	cfg := visitorerr.NewInvalidConfigCombinationWarning(bareSubject("p.Shape"), "lambda builder", "lambda implementation is disabled")
	assert.Equal(t, visitorerr.SeverityWarning, cfg.Severity())
	assert.Equal(t, "lambda builder", cfg.Artifact)
}

func TestHasErrors(t *testing.T) {
	warn := visitorerr.NewInvalidMarkerWarning(bareSubject("p.Shape"), "unknown key")
	fail := visitorerr.NewInvalidMarkerError(bareSubject("p.Shape"), "not an interface")

	assert.False(t, visitorerr.HasErrors(nil))
	assert.False(t, visitorerr.HasErrors([]error{warn}))
	assert.True(t, visitorerr.HasErrors([]error{warn, fail}))
	assert.True(t, visitorerr.HasErrors([]error{errors.New("io failure")}))
}

func TestMultiError(t *testing.T) {
	e1 := visitorerr.NewDuplicateRootError(bareSubject("p.A"))
	e2 := visitorerr.NewNoRootFoundError(bareSubject("p.B"), "no super-type")
	multi := &visitorerr.MultiError{Errors: []error{e1, e2}}

	assert.Equal(t, visitorerr.TypeDuplicateRoot, multi.Type())
	msg := multi.Error()
	assert.Contains(t, msg, "2 error(s) occurred:")
	assert.Contains(t, msg, "- [NoRootFoundError] cannot find a visitable root for p.B: no super-type")

	var dup *visitorerr.DuplicateRootError
	require.True(t, errors.As(multi, &dup))
	assert.Same(t, e1, dup)
}

func TestMultiErrorEmpty(t *testing.T) {
	multi := &visitorerr.MultiError{}
	assert.Equal(t, visitorerr.ErrorType("MultiError"), multi.Type())
	assert.True(t, strings.HasPrefix(multi.Error(), "0 error(s) occurred:"))
}
