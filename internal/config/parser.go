// Package config reads visitor configuration files and answers naming
// lookups for a package directory by walking up to the repository root.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"martianoff/visitorgen/internal/naming"
)

// File names looked up in every directory.
const (
	ConfigFileName = "visitor.config"
	YAMLFileName   = "visitor.yaml"
)

// StopBubblingKey ends the upward search at the directory that sets it.
const StopBubblingKey = "config.stopBubbling"

// ParseError represents an error during configuration parsing.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Entry is one setting of a configuration file.
type Entry struct {
	Key   naming.Key
	Value string
	// Clear resets the key to its default and hides settings further up.
	Clear bool
	Line  int
}

// File is one parsed configuration file.
type File struct {
	Path         string
	Entries      []Entry
	StopBubbling bool
}

// Lookup returns the last entry for key. A cleared key reports found with
// cleared set.
func (f *File) Lookup(key naming.Key) (value string, found, cleared bool) {
	for i := len(f.Entries) - 1; i >= 0; i-- {
		e := f.Entries[i]
		if e.Key != key {
			continue
		}
		return e.Value, true, e.Clear
	}
	return "", false, false
}

// Parse parses visitor.config content. name is used in error messages.
//
// Each line is "key = value", "clear key", or a "#" comment.
func Parse(name, content string) (*File, error) {
	f := &File{Path: name}
	sc := bufio.NewScanner(strings.NewReader(content))
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if fields := strings.Fields(line); fields[0] == "clear" && !strings.Contains(line, "=") {
			key, err := parseKey(strings.TrimSpace(strings.TrimPrefix(line, "clear")))
			if err != nil {
				return nil, &ParseError{File: name, Line: lineNum, Message: err.Error()}
			}
			f.Entries = append(f.Entries, Entry{Key: key, Clear: true, Line: lineNum})
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ParseError{File: name, Line: lineNum, Message: fmt.Sprintf("expected key = value, got %q", line)}
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)

		if strings.EqualFold(k, StopBubblingKey) {
			stop, err := parseBool(v)
			if err != nil {
				return nil, &ParseError{File: name, Line: lineNum, Message: err.Error()}
			}
			f.StopBubbling = stop
			continue
		}

		key, err := parseKey(k)
		if err != nil {
			return nil, &ParseError{File: name, Line: lineNum, Message: err.Error()}
		}
		f.Entries = append(f.Entries, Entry{Key: key, Value: v, Line: lineNum})
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{File: name, Message: err.Error()}
	}
	return f, nil
}

// ParseFile parses a visitor.config file from a filesystem path.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(path, string(content))
}

func parseKey(s string) (naming.Key, error) {
	if s == "" {
		return "", fmt.Errorf("missing key")
	}
	key, ok := naming.ParseKey(s)
	if !ok {
		return "", fmt.Errorf("unknown key: %s", s)
	}
	return key, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%s must be true or false, got %q", StopBubblingKey, s)
}
