// Package emit holds the host side of a round: sinks that put generated
// files on disk and reporters that show diagnostics to the user.
package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"martianoff/visitorgen/internal/engine"
	"martianoff/visitorgen/internal/generator"
	"martianoff/visitorgen/visitorerr"
)

// Mode selects what a FileSink does with a unit.
type Mode int

const (
	// ModeWrite writes changed files.
	ModeWrite Mode = iota
	// ModeCheck reports files that are missing or out of date.
	ModeCheck
	// ModeStdout prints every unit instead of writing it.
	ModeStdout
)

func (m Mode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeStdout:
		return "stdout"
	default:
		return "write"
	}
}

// Stats counts what a FileSink did.
type Stats struct {
	Written   int
	Unchanged int
	Stale     int
	Printed   int
}

// FileSink implements engine.Sink on the local filesystem.
type FileSink struct {
	mode   Mode
	out    io.Writer
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// SinkOption configures a FileSink.
type SinkOption func(*FileSink)

// WithOutput sets where ModeStdout prints. Defaults to os.Stdout.
func WithOutput(w io.Writer) SinkOption {
	return func(s *FileSink) { s.out = w }
}

func WithSinkLogger(logger *slog.Logger) SinkOption {
	return func(s *FileSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSink creates a FileSink in the given mode.
func NewFileSink(mode Mode, opts ...SinkOption) *FileSink {
	s := &FileSink{
		mode:   mode,
		out:    os.Stdout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters accumulated so far.
func (s *FileSink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Emit implements engine.Sink.
func (s *FileSink) Emit(ctx context.Context, u engine.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeStdout:
		return s.print(u)
	case ModeCheck:
		return s.check(u)
	default:
		return s.write(u)
	}
}

func (s *FileSink) print(u engine.Unit) error {
	if _, err := fmt.Fprintf(s.out, "// %s\n", u.Path); err != nil {
		return fmt.Errorf("failed to print %s: %w", u.Path, err)
	}
	if _, err := s.out.Write(u.Source); err != nil {
		return fmt.Errorf("failed to print %s: %w", u.Path, err)
	}
	s.stats.Printed++
	return nil
}

func (s *FileSink) check(u engine.Unit) error {
	current, err := os.ReadFile(u.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.stats.Stale++
		return visitorerr.NewStaleOutputError(u.Root, u.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", u.Path, err)
	}
	if bytes.Equal(current, u.Source) {
		s.stats.Unchanged++
		return nil
	}
	if fp, ok := generator.ReadFingerprint(current); ok && fp == u.Fingerprint {
		// same inputs, different output: edited by hand or by another version
		s.logger.Warn("generated file modified", "path", u.Path)
	}
	s.stats.Stale++
	return visitorerr.NewStaleOutputError(u.Root, u.Path)
}

func (s *FileSink) write(u engine.Unit) error {
	current, err := os.ReadFile(u.Path)
	switch {
	case err == nil:
		if bytes.Equal(current, u.Source) {
			s.stats.Unchanged++
			s.logger.Debug("unchanged", "path", u.Path)
			return nil
		}
		if !generator.IsGenerated(current) {
			return visitorerr.NewInvalidMarkerError(u.Root,
				fmt.Sprintf("refusing to overwrite %s: it is not a generated file", u.Path))
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read %s: %w", u.Path, err)
	}

	if err := writeFile(u.Path, u.Source); err != nil {
		return err
	}
	s.stats.Written++
	s.logger.Info("wrote", "path", u.Path)
	return nil
}

// writeFile replaces path through a temporary file in the same directory so
// readers never see a partial file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

var _ engine.Sink = (*FileSink)(nil)
