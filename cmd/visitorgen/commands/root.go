// Package commands provides the CLI commands for the visitorgen tool.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

// ErrDiagnostics is returned when a round reported error-severity
// diagnostics. They have already been printed.
var ErrDiagnostics = errors.New("visitor generation failed")

// Env holds the settings read from the environment. Flags override them.
type Env struct {
	LogLevel    string `env:"VISITORGEN_LOG_LEVEL,default=warn"`
	LogFormat   string `env:"VISITORGEN_LOG_FORMAT,default=text"`
	Tags        string `env:"VISITORGEN_TAGS"`
	StrictRoots bool   `env:"VISITORGEN_STRICT_ROOTS"`
	NoColor     string `env:"NO_COLOR"`
}

// LoadEnv decodes Env from the process environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return env, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// TagList splits the comma separated VISITORGEN_TAGS.
func (e Env) TagList() []string {
	var out []string
	for _, t := range strings.Split(e.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type globalOptions struct {
	env       Env
	logLevel  string
	logFormat string
}

func (o *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	return newLogger(w, o.logLevel, o.logFormat)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, want text or json", format)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(env Env) *cobra.Command {
	global := &globalOptions{env: env}
	gen := newGenerateOptions(global)

	rootCmd := &cobra.Command{
		Use:   "visitorgen [packages...]",
		Short: "Generate visitor interfaces for marked Go type hierarchies",
		Long: `visitorgen reads //visitor:root and //visitor:leaf markers from Go packages
and writes a <root>_visitor.go file next to every marked root interface.

Usage:
  visitorgen [packages...]             Generate (shorthand)
  visitorgen generate --check ./...    Fail if generated files are out of date
  visitorgen watch ./...               Regenerate on change
  visitorgen version                   Print version

Environment:
  VISITORGEN_LOG_LEVEL, VISITORGEN_LOG_FORMAT, VISITORGEN_TAGS,
  VISITORGEN_STRICT_ROOTS, NO_COLOR`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          gen.run,
	}

	rootCmd.PersistentFlags().StringVar(&global.logLevel, "log-level", env.LogLevel, "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&global.logFormat, "log-format", env.LogFormat, "Log format: text or json")
	gen.bind(rootCmd)

	rootCmd.AddCommand(newGenerateCmd(global))
	rootCmd.AddCommand(newWatchCmd(global))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	env, err := LoadEnv()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
