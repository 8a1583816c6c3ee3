package generator

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Fingerprint computes a hash over the named source files. The hash is
// deterministic regardless of argument order and line-ending style, and
// only the base name of each file takes part in it.
func Fingerprint(files []string) (string, error) {
	files = slices.Clone(files)
	slices.Sort(files)
	files = slices.Compact(files)

	h := sha256.New()
	for _, path := range files {
		h.Write([]byte(filepath.Base(path)))
		h.Write([]byte{0}) // null separator

		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", path, err)
		}
		h.Write(normalizeLineEndings(content))
		h.Write([]byte{0})
	}

	return "h1:" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// normalizeLineEndings converts all line endings to LF for consistent hashing.
func normalizeLineEndings(data []byte) []byte {
	result := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' {
			if i+1 < len(data) && data[i+1] == '\n' {
				// Skip CR in CRLF
				continue
			}
			// Standalone CR becomes LF
			result = append(result, '\n')
		} else {
			result = append(result, data[i])
		}
	}
	return result
}
