package generator

import (
	"bufio"
	"bytes"
	"strings"
)

// Marker lines written at the top of every generated file.
const (
	GeneratedBy      = "visitorgen"
	BuildTag         = "visitorgen"
	fingerprintLabel = "visitorgen:fingerprint "
)

// Header is the comment block preceding the package clause.
type Header struct {
	// Fingerprint identifies the sources the file was generated from.
	Fingerprint string
	// Sources lists the file names the declarations came from.
	Sources []string
}

func (h Header) write(buf *bytes.Buffer) {
	buf.WriteString("// Code generated by " + GeneratedBy + ". DO NOT EDIT.\n")
	if len(h.Sources) > 0 {
		buf.WriteString("// source: " + strings.Join(h.Sources, ", ") + "\n")
	}
	buf.WriteString("\n//go:build !" + BuildTag + "\n\n")
	if h.Fingerprint != "" {
		buf.WriteString("// " + fingerprintLabel + h.Fingerprint + "\n\n")
	}
}

// IsGenerated reports whether src carries the generated-code marker within
// its leading comments.
func IsGenerated(src []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") {
			return false
		}
		if line == "// Code generated by "+GeneratedBy+". DO NOT EDIT." {
			return true
		}
	}
	return false
}

// ReadFingerprint extracts the fingerprint recorded in a generated file.
func ReadFingerprint(src []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "package ") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "// "+fingerprintLabel); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
