package naming

import (
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Defaults used when a key is absent.
const (
	DefaultCasePrefix      = "case"
	DefaultVisitorArgName  = "visitor"
	DefaultArgumentName    = "arg"
	DefaultReturnTypeVar   = "R"
	DefaultArgumentTypeVar = "A"
	DefaultAcceptName      = "accept"
	DefaultReturn          = true
	DefaultArgument        = false
)

// BuilderStyle selects the encoding of typestate builders.
type BuilderStyle string

const (
	// BuilderImmutable emits one value type per builder stage.
	BuilderImmutable BuilderStyle = "immutable"
	// BuilderMutable emits one single-method interface per stage, implemented
	// by one pointer builder.
	BuilderMutable BuilderStyle = "mutable"
)

// DispatchConfig is the resolved, hierarchy-scoped configuration. It is
// resolved once when the root is registered and never changes afterwards.
type DispatchConfig struct {
	HasReturn   bool
	HasArgument bool

	CaseMethodPrefix    string
	VisitorArgName      string
	ArgumentName        string
	ReturnTypeVarName   string
	ArgumentTypeVarName string
	AcceptMethodName    string

	ConstantImplEnabled   bool
	LambdaImplEnabled     bool
	LambdaBuilderEnabled  bool
	DefaultImplEnabled    bool
	DefaultBuilderEnabled bool

	BuilderStyle BuilderStyle
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() DispatchConfig {
	return DispatchConfig{
		HasReturn:           DefaultReturn,
		HasArgument:         DefaultArgument,
		CaseMethodPrefix:    DefaultCasePrefix,
		VisitorArgName:      DefaultVisitorArgName,
		ArgumentName:        DefaultArgumentName,
		ReturnTypeVarName:   DefaultReturnTypeVar,
		ArgumentTypeVarName: DefaultArgumentTypeVar,
		AcceptMethodName:    DefaultAcceptName,
		BuilderStyle:        BuilderImmutable,
	}
}

// CaseMethodName returns the case method for a leaf with the given simple name.
func (c DispatchConfig) CaseMethodName(simpleName string) string {
	return c.CaseMethodPrefix + UpperFirst(simpleName)
}

// DefaultMethodName returns the fallback method of the Default implementation.
func (c DispatchConfig) DefaultMethodName() string {
	return c.CaseMethodPrefix + "Default"
}

// ExportedCases reports whether case methods are visible outside the package.
func (c DispatchConfig) ExportedCases() bool {
	return token.IsExported(c.CaseMethodName("X"))
}

func (c DispatchConfig) String() string {
	return fmt.Sprintf("DispatchConfig{return=%t argument=%t prefix=%q accept=%q constant=%t lambda=%t lambdaBuilder=%t default=%t defaultBuilder=%t builder=%s}",
		c.HasReturn, c.HasArgument, c.CaseMethodPrefix, c.AcceptMethodName,
		c.ConstantImplEnabled, c.LambdaImplEnabled, c.LambdaBuilderEnabled,
		c.DefaultImplEnabled, c.DefaultBuilderEnabled, c.BuilderStyle)
}

// Policy resolves configuration keys against a Source.
type Policy struct {
	source Source
	logger *slog.Logger
}

// NewPolicy creates a Policy over src. A nil logger discards output.
func NewPolicy(src Source, logger *slog.Logger) *Policy {
	if src == nil {
		src = Empty
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Policy{source: src, logger: logger}
}

// Resolve reads every key for scope and returns the resulting configuration.
func (p *Policy) Resolve(scope Location) DispatchConfig {
	def := DefaultConfig()
	return DispatchConfig{
		HasReturn:             p.Bool(KeyReturn, scope, def.HasReturn),
		HasArgument:           p.Bool(KeyArgument, scope, def.HasArgument),
		CaseMethodPrefix:      p.prefix(scope),
		VisitorArgName:        p.Ident(KeyVisitorArgName, scope, def.VisitorArgName),
		ArgumentName:          p.Ident(KeyArgumentName, scope, def.ArgumentName),
		ReturnTypeVarName:     p.Ident(KeyReturnTypeVar, scope, def.ReturnTypeVarName),
		ArgumentTypeVarName:   p.Ident(KeyArgumentTypeVar, scope, def.ArgumentTypeVarName),
		AcceptMethodName:      p.Ident(KeyAcceptName, scope, def.AcceptMethodName),
		ConstantImplEnabled:   p.Bool(KeyConstantImpl, scope, false),
		LambdaImplEnabled:     p.Bool(KeyLambdaImpl, scope, false),
		LambdaBuilderEnabled:  p.Bool(KeyLambdaBuilder, scope, false),
		DefaultImplEnabled:    p.Bool(KeyDefaultImpl, scope, false),
		DefaultBuilderEnabled: p.Bool(KeyDefaultBuilder, scope, false),
		BuilderStyle:          p.builderStyle(scope),
	}
}

// String returns the raw value for key, or def when absent.
func (p *Policy) String(key Key, scope Location, def string) string {
	v, ok := p.source.Lookup(key, scope)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

// Bool returns the boolean value for key. Absent or unparsable values yield def.
func (p *Policy) Bool(key Key, scope Location, def bool) bool {
	v, ok := p.source.Lookup(key, scope)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.logger.Debug("ignoring non-boolean setting",
			slog.String("key", string(key)), slog.String("value", v), slog.String("scope", scope.Type))
		return def
	}
	return b
}

// Ident returns the value for key if it is a usable Go identifier, else def.
func (p *Policy) Ident(key Key, scope Location, def string) string {
	v := p.String(key, scope, def)
	if !token.IsIdentifier(v) || v == "_" {
		p.logger.Debug("ignoring invalid identifier setting",
			slog.String("key", string(key)), slog.String("value", v), slog.String("scope", scope.Type))
		return def
	}
	return v
}

// prefix allows the empty prefix, which yields case methods named after the
// leaves themselves.
func (p *Policy) prefix(scope Location) string {
	v := p.String(KeyCasePrefix, scope, DefaultCasePrefix)
	if v != "" && !token.IsIdentifier(v+"X") {
		p.logger.Debug("ignoring invalid case prefix",
			slog.String("value", v), slog.String("scope", scope.Type))
		return DefaultCasePrefix
	}
	return v
}

func (p *Policy) builderStyle(scope Location) BuilderStyle {
	v := p.String(KeyBuilderStyle, scope, string(BuilderImmutable))
	switch BuilderStyle(strings.ToLower(v)) {
	case BuilderImmutable:
		return BuilderImmutable
	case BuilderMutable:
		return BuilderMutable
	}
	p.logger.Debug("ignoring unknown builder style",
		slog.String("value", v), slog.String("scope", scope.Type))
	return BuilderImmutable
}

// UpperFirst upper-cases the first letter of s.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// LowerFirst lower-cases the first letter of s.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Binding returns the parameter name used for a value of the named type:
// the lower-first name, with a trailing underscore if that is a keyword.
func Binding(simpleName string) string {
	name := LowerFirst(simpleName)
	if token.IsKeyword(name) || isPredeclared(name) {
		return name + "_"
	}
	return name
}

func isPredeclared(name string) bool {
	switch name {
	case "any", "bool", "byte", "comparable", "complex64", "complex128", "error",
		"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune",
		"string", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"true", "false", "iota", "nil", "append", "cap", "clear", "close",
		"complex", "copy", "delete", "imag", "len", "make", "max", "min",
		"new", "panic", "print", "println", "real", "recover":
		return true
	}
	return false
}
