package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses visitor.yaml content: a flat mapping from keys to scalar
// values. A null value clears the key.
func ParseYAML(name string, content []byte) (*File, error) {
	f := &File{Path: name}

	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, &ParseError{File: name, Message: err.Error()}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return f, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{File: name, Line: root.Line, Message: "expected a mapping of keys to values"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, &ParseError{File: name, Line: v.Line, Message: fmt.Sprintf("value of %s must be a scalar", k.Value)}
		}

		if k.Value == StopBubblingKey {
			var stop bool
			if err := v.Decode(&stop); err != nil {
				return nil, &ParseError{File: name, Line: v.Line, Message: fmt.Sprintf("%s must be true or false", StopBubblingKey)}
			}
			f.StopBubbling = stop
			continue
		}

		key, err := parseKey(k.Value)
		if err != nil {
			return nil, &ParseError{File: name, Line: k.Line, Message: err.Error()}
		}
		if v.Tag == "!!null" {
			f.Entries = append(f.Entries, Entry{Key: key, Clear: true, Line: k.Line})
			continue
		}
		f.Entries = append(f.Entries, Entry{Key: key, Value: v.Value, Line: k.Line})
	}
	return f, nil
}

// ParseYAMLFile parses a visitor.yaml file from a filesystem path.
func ParseYAMLFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseYAML(path, content)
}
