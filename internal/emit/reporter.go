package emit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"martianoff/visitorgen/internal/engine"
	"martianoff/visitorgen/visitorerr"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
)

// ConsoleReporter prints diagnostics the way compilers do:
//
//	file:line:col: severity: message
type ConsoleReporter struct {
	w       io.Writer
	color   bool
	baseDir string

	mu       sync.Mutex
	errors   int
	warnings int
}

// ConsoleOption configures a ConsoleReporter.
type ConsoleOption func(*ConsoleReporter)

// WithColor forces colour on or off.
func WithColor(on bool) ConsoleOption {
	return func(r *ConsoleReporter) { r.color = on }
}

// WithBaseDir prints file names relative to dir when possible.
func WithBaseDir(dir string) ConsoleOption {
	return func(r *ConsoleReporter) { r.baseDir = dir }
}

// NewConsoleReporter creates a ConsoleReporter writing to w. Colour is on
// when w is a terminal and NO_COLOR is not set.
func NewConsoleReporter(w io.Writer, opts ...ConsoleOption) *ConsoleReporter {
	r := &ConsoleReporter{w: w, color: colorable(w)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// colorable follows https://no-color.org/ and only colours terminals.
func colorable(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// Report implements engine.Reporter.
func (r *ConsoleReporter) Report(diag error) {
	sev, msg := visitorerr.SeverityError, diag.Error()
	var loc string
	var ve visitorerr.VisitorError
	if errors.As(diag, &ve) {
		sev = ve.Severity()
		if m, ok := ve.(interface{ Message() string }); ok {
			msg = m.Message()
		}
		if pos, ok := visitorerr.PositionOf(ve.Subject()); ok {
			pos.Filename = r.rel(pos.Filename)
			loc = pos.String()
		}
	}
	if loc == "" {
		loc = "visitorgen"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	label := sev.String()
	if sev == visitorerr.SeverityWarning {
		r.warnings++
		label = r.paint(ansiYellow, label)
	} else {
		r.errors++
		label = r.paint(ansiRed, label)
	}
	fmt.Fprintf(r.w, "%s: %s: %s\n", r.paint(ansiBold, loc), label, msg)
}

// Counts returns how many errors and warnings were reported.
func (r *ConsoleReporter) Counts() (errs, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors, r.warnings
}

func (r *ConsoleReporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + ansiReset
}

func (r *ConsoleReporter) rel(name string) string {
	if r.baseDir == "" || name == "" {
		return name
	}
	rel, err := filepath.Rel(r.baseDir, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return name
	}
	return rel
}

// LogReporter writes diagnostics to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report implements engine.Reporter.
func (r *LogReporter) Report(diag error) {
	level := slog.LevelError
	attrs := []slog.Attr{slog.String("error", diag.Error())}
	var ve visitorerr.VisitorError
	if errors.As(diag, &ve) {
		if ve.Severity() == visitorerr.SeverityWarning {
			level = slog.LevelWarn
		}
		attrs = append(attrs, slog.String("type", string(ve.Type())))
		if ve.Subject() != nil {
			attrs = append(attrs, slog.String("subject", ve.Subject().QualifiedName()))
		}
		if pos, ok := visitorerr.PositionOf(ve.Subject()); ok {
			attrs = append(attrs, slog.String("pos", pos.String()))
		}
	}
	r.logger.LogAttrs(context.Background(), level, "diagnostic", attrs...)
}

// Tee fans every diagnostic out to reporters, skipping nil ones.
func Tee(reporters ...engine.Reporter) engine.Reporter {
	return engine.ReporterFunc(func(diag error) {
		for _, r := range reporters {
			if r != nil {
				r.Report(diag)
			}
		}
	})
}

var (
	_ engine.Reporter = (*ConsoleReporter)(nil)
	_ engine.Reporter = (*LogReporter)(nil)
)
