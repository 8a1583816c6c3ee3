// Package naming resolves the identifiers and feature toggles used when
// synthesizing a visitor, falling back to fixed defaults when a key is not
// configured.
package naming

import "strings"

// Key identifies one configurable setting.
type Key string

const (
	KeyReturn          Key = "visitor.return"
	KeyArgument        Key = "visitor.argument"
	KeyCasePrefix      Key = "visitor.casePrefix"
	KeyVisitorArgName  Key = "visitor.visitorArgName"
	KeyArgumentName    Key = "visitor.argumentName"
	KeyReturnTypeVar   Key = "visitor.returnTypeVar"
	KeyArgumentTypeVar Key = "visitor.argumentTypeVar"
	KeyAcceptName      Key = "visitor.acceptName"
	KeyConstantImpl    Key = "visitor.constantImpl"
	KeyLambdaImpl      Key = "visitor.lambdaImpl"
	KeyLambdaBuilder   Key = "visitor.lambdaBuilder"
	KeyDefaultImpl     Key = "visitor.defaultImpl"
	KeyDefaultBuilder  Key = "visitor.defaultBuilder"
	KeyBuilderStyle    Key = "visitor.builderStyle"
)

const keyNamespace = "visitor."

var allKeys = []Key{
	KeyReturn,
	KeyArgument,
	KeyCasePrefix,
	KeyVisitorArgName,
	KeyArgumentName,
	KeyReturnTypeVar,
	KeyArgumentTypeVar,
	KeyAcceptName,
	KeyConstantImpl,
	KeyLambdaImpl,
	KeyLambdaBuilder,
	KeyDefaultImpl,
	KeyDefaultBuilder,
	KeyBuilderStyle,
}

// Keys returns every known key.
func Keys() []Key {
	return append([]Key(nil), allKeys...)
}

// Short returns the key without its namespace, as written in directives.
func (k Key) Short() string {
	return strings.TrimPrefix(string(k), keyNamespace)
}

// IsBool reports whether the key holds a boolean toggle.
func (k Key) IsBool() bool {
	switch k {
	case KeyReturn, KeyArgument, KeyConstantImpl, KeyLambdaImpl,
		KeyLambdaBuilder, KeyDefaultImpl, KeyDefaultBuilder:
		return true
	}
	return false
}

// ParseKey maps a configuration or directive spelling to a Key. Both the
// namespaced form ("visitor.casePrefix") and the short form ("casePrefix") are
// accepted, case-insensitively.
func ParseKey(s string) (Key, bool) {
	s = strings.TrimSpace(s)
	for _, k := range allKeys {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Short()) {
			return k, true
		}
	}
	return "", false
}
