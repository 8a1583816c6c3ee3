package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/visitorgen/internal/naming"
)

func TestParse(t *testing.T) {
	content := `# visitor settings
visitor.casePrefix = on
argument = true   # short form
clear visitor.lambdaImpl

config.stopBubbling = true
visitor.casePrefix = handle
`
	f, err := Parse("visitor.config", content)
	require.NoError(t, err)

	assert.True(t, f.StopBubbling)
	assert.Equal(t, []Entry{
		{Key: naming.KeyCasePrefix, Value: "on", Line: 2},
		{Key: naming.KeyArgument, Value: "true", Line: 3},
		{Key: naming.KeyLambdaImpl, Clear: true, Line: 4},
		{Key: naming.KeyCasePrefix, Value: "handle", Line: 7},
	}, f.Entries)

	v, found, cleared := f.Lookup(naming.KeyCasePrefix)
	assert.Equal(t, "handle", v)
	assert.True(t, found)
	assert.False(t, cleared)

	_, found, cleared = f.Lookup(naming.KeyLambdaImpl)
	assert.True(t, found)
	assert.True(t, cleared)

	_, found, _ = f.Lookup(naming.KeyReturn)
	assert.False(t, found)
}

func TestParseEmptyValue(t *testing.T) {
	f, err := Parse("visitor.config", "casePrefix =\n")
	require.NoError(t, err)
	v, found, _ := f.Lookup(naming.KeyCasePrefix)
	assert.True(t, found)
	assert.Equal(t, "", v)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		msg     string
	}{
		{"unknown key", "visitor.colour = red\n", 1, "unknown key: visitor.colour"},
		{"missing equals", "\nvisitor.return true\n", 2, "expected key = value"},
		{"clear without key", "clear \n", 1, "missing key"},
		{"bad stop bubbling", "config.stopBubbling = maybe\n", 1, "must be true or false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("visitor.config", tt.content)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Message, tt.msg)
			assert.Contains(t, err.Error(), "visitor.config:")
		})
	}
}

func TestParseYAML(t *testing.T) {
	content := `
visitor.casePrefix: handle
argument: true
lambdaImpl: ~
config.stopBubbling: true
`
	f, err := ParseYAML("visitor.yaml", []byte(content))
	require.NoError(t, err)

	assert.True(t, f.StopBubbling)
	assert.Equal(t, []Entry{
		{Key: naming.KeyCasePrefix, Value: "handle", Line: 2},
		{Key: naming.KeyArgument, Value: "true", Line: 3},
		{Key: naming.KeyLambdaImpl, Clear: true, Line: 4},
	}, f.Entries)
}

func TestParseYAMLEmpty(t *testing.T) {
	for _, content := range []string{"", "# nothing here\n"} {
		f, err := ParseYAML("visitor.yaml", []byte(content))
		require.NoError(t, err)
		assert.Empty(t, f.Entries)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"not a mapping", "- a\n- b\n", "expected a mapping"},
		{"nested value", "casePrefix:\n  a: b\n", "must be a scalar"},
		{"unknown key", "colour: red\n", "unknown key: colour"},
		{"bad stop bubbling", "config.stopBubbling: sometimes\n", "must be true or false"},
		{"syntax", "casePrefix: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML("visitor.yaml", []byte(tt.content))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Contains(t, pe.Message, tt.msg)
		})
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func lookup(s *FileSource, key naming.Key, dir string) (string, bool) {
	return s.Lookup(key, naming.Location{Type: "example.com/p.Shape", Dir: dir})
}

func TestFileSourceBubbling(t *testing.T) {
	top := t.TempDir()
	pkg := filepath.Join(top, "a", "b")
	require.NoError(t, os.MkdirAll(pkg, 0755))

	write(t, filepath.Join(top, ConfigFileName), `
visitor.casePrefix = on
visitor.lambdaImpl = true
visitor.argument = true
visitor.acceptName = dispatch
`)
	write(t, filepath.Join(top, "a", YAMLFileName), `
casePrefix: handle
argument: ~
acceptName: visit
`)
	write(t, filepath.Join(top, "a", ConfigFileName), "acceptName = route\n")

	s := NewFileSource(WithBound(top))

	t.Run("Nearer directory wins", func(t *testing.T) {
		v, ok := lookup(s, naming.KeyCasePrefix, pkg)
		assert.True(t, ok)
		assert.Equal(t, "handle", v)
	})

	t.Run("Inherited from above", func(t *testing.T) {
		v, ok := lookup(s, naming.KeyLambdaImpl, pkg)
		assert.True(t, ok)
		assert.Equal(t, "true", v)
	})

	t.Run("Cleared key hides parents", func(t *testing.T) {
		_, ok := lookup(s, naming.KeyArgument, pkg)
		assert.False(t, ok)
	})

	t.Run("Config file wins over yaml", func(t *testing.T) {
		v, ok := lookup(s, naming.KeyAcceptName, pkg)
		assert.True(t, ok)
		assert.Equal(t, "route", v)
	})

	t.Run("Absent everywhere", func(t *testing.T) {
		_, ok := lookup(s, naming.KeyBuilderStyle, pkg)
		assert.False(t, ok)
	})

	t.Run("No directory", func(t *testing.T) {
		_, ok := lookup(s, naming.KeyCasePrefix, "")
		assert.False(t, ok)
	})

	t.Run("Chain order", func(t *testing.T) {
		chain, err := s.Chain(context.Background(), pkg)
		require.NoError(t, err)
		var paths []string
		for _, f := range chain {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{
			filepath.Join(top, "a", ConfigFileName),
			filepath.Join(top, "a", YAMLFileName),
			filepath.Join(top, ConfigFileName),
		}, paths)
	})
}

func TestFileSourceStopBubbling(t *testing.T) {
	top := t.TempDir()
	pkg := filepath.Join(top, "pkg")
	write(t, filepath.Join(top, ConfigFileName), "casePrefix = on\nlambdaImpl = true\n")
	write(t, filepath.Join(pkg, YAMLFileName), "config.stopBubbling: true\nargument: true\n")

	s := NewFileSource(WithBound(top))
	_, ok := lookup(s, naming.KeyCasePrefix, pkg)
	assert.False(t, ok)
	v, ok := lookup(s, naming.KeyArgument, pkg)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok = lookup(s, naming.KeyCasePrefix, top)
	assert.True(t, ok)
	assert.Equal(t, "on", v)
}

func TestFileSourceRepositoryRoot(t *testing.T) {
	top := t.TempDir()
	repo := filepath.Join(top, "repo")
	pkg := filepath.Join(repo, "internal", "shapes")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	_, err := git.PlainInit(repo, false)
	require.NoError(t, err)

	write(t, filepath.Join(top, ConfigFileName), "casePrefix = outside\n")
	write(t, filepath.Join(repo, ConfigFileName), "acceptName = inside\n")

	root := RepositoryRoot(pkg)
	assert.Equal(t, filepath.Base(repo), filepath.Base(root))

	s := NewFileSource()
	_, ok := lookup(s, naming.KeyCasePrefix, pkg)
	assert.False(t, ok, "configuration above the repository root must be ignored")
	v, ok := lookup(s, naming.KeyAcceptName, pkg)
	assert.True(t, ok)
	assert.Equal(t, "inside", v)
}

func TestFileSourceOutsideRepository(t *testing.T) {
	top := t.TempDir()
	if RepositoryRoot(top) != "" {
		t.Skip("temporary directory is inside a git repository")
	}
	pkg := filepath.Join(top, "x", "y")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	write(t, filepath.Join(top, ConfigFileName), "casePrefix = far\n")

	v, ok := lookup(NewFileSource(), naming.KeyCasePrefix, pkg)
	assert.True(t, ok)
	assert.Equal(t, "far", v)
}

func TestFileSourceErrors(t *testing.T) {
	top := t.TempDir()
	write(t, filepath.Join(top, ConfigFileName), "visitor.colour = red\n")

	s := NewFileSource(WithBound(top))
	_, err := s.Chain(context.Background(), top)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)

	_, ok := lookup(s, naming.KeyCasePrefix, top)
	assert.False(t, ok)
}

func TestFileSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(WithBound(t.TempDir())).Chain(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSourceCachesPerDirectory(t *testing.T) {
	top := t.TempDir()
	path := filepath.Join(top, ConfigFileName)
	write(t, path, "casePrefix = first\n")

	s := NewFileSource(WithBound(top))
	v, _ := lookup(s, naming.KeyCasePrefix, top)
	assert.Equal(t, "first", v)

	write(t, path, "casePrefix = second\n")
	v, _ = lookup(s, naming.KeyCasePrefix, top)
	assert.Equal(t, "first", v)

	v, _ = lookup(NewFileSource(WithBound(top)), naming.KeyCasePrefix, top)
	assert.Equal(t, "second", v)
}

func TestFileSourceWithPolicy(t *testing.T) {
	top := t.TempDir()
	write(t, filepath.Join(top, YAMLFileName), "casePrefix: on\nbuilderStyle: mutable\nreturn: false\n")

	policy := naming.NewPolicy(naming.Sources{
		naming.DirectiveSource{"example.com/p.Shape": {naming.KeyCasePrefix: "handle"}},
		NewFileSource(WithBound(top)),
	}, nil)
	cfg := policy.Resolve(naming.Location{Type: "example.com/p.Shape", Dir: top})

	assert.Equal(t, "handle", cfg.CaseMethodPrefix)
	assert.Equal(t, naming.BuilderMutable, cfg.BuilderStyle)
	assert.False(t, cfg.HasReturn)
}
