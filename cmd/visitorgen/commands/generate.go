package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"martianoff/visitorgen/internal/config"
	"martianoff/visitorgen/internal/emit"
	"martianoff/visitorgen/internal/engine"
	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/loader"
)

type generateOptions struct {
	global      *globalOptions
	check       bool
	stdout      bool
	dir         string
	tags        []string
	strictRoots bool
}

func newGenerateOptions(global *globalOptions) *generateOptions {
	return &generateOptions{global: global}
}

func newGenerateCmd(global *globalOptions) *cobra.Command {
	o := newGenerateOptions(global)
	cmd := &cobra.Command{
		Use:   "generate [packages...]",
		Short: "Generate visitor files for the given packages",
		Long: `Generate a <root>_visitor.go file for every //visitor:root in the given
packages (default ./...). Unchanged files are not rewritten.

Examples:
  visitorgen generate ./...
  visitorgen generate --check ./...     # CI: fail if files are stale
  visitorgen generate --stdout ./ast    # print instead of writing`,
		Args: cobra.ArbitraryArgs,
		RunE: o.run,
	}
	o.bind(cmd)
	return cmd
}

func (o *generateOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&o.check, "check", false, "Report stale or missing files instead of writing them")
	flags.BoolVar(&o.stdout, "stdout", false, "Print generated files instead of writing them")
	flags.StringVarP(&o.dir, "dir", "C", "", "Directory to resolve package patterns in")
	flags.StringSliceVar(&o.tags, "tags", o.global.env.TagList(), "Extra build tags used while loading packages")
	flags.BoolVar(&o.strictRoots, "strict-roots", o.global.env.StrictRoots, "Require leaves to name their roots when more than one is possible")
	cmd.MarkFlagsMutuallyExclusive("check", "stdout")
}

func (o *generateOptions) mode() emit.Mode {
	switch {
	case o.check:
		return emit.ModeCheck
	case o.stdout:
		return emit.ModeStdout
	default:
		return emit.ModeWrite
	}
}

func (o *generateOptions) newLoader(patterns []string, logger *slog.Logger) *loader.Loader {
	return loader.New(patterns,
		loader.WithDir(o.dir),
		loader.WithTags(o.tags...),
		loader.WithLogger(logger))
}

// newEngine wires one round. The config source is created per call so a
// watch iteration sees edited config files.
func (o *generateOptions) newEngine(markers engine.MarkerSource, sink engine.Sink, reporter engine.Reporter, logger *slog.Logger) *engine.Engine {
	opts := []engine.Option{
		engine.WithConfig(config.NewFileSource(config.WithLogger(logger))),
		engine.WithReporter(reporter),
		engine.WithLogger(logger),
	}
	if o.strictRoots {
		opts = append(opts, engine.WithRootPolicy(hierarchy.Strict))
	}
	return engine.New(markers, sink, opts...)
}

func (o *generateOptions) console(w io.Writer) *emit.ConsoleReporter {
	var opts []emit.ConsoleOption
	if o.global.env.NoColor != "" {
		opts = append(opts, emit.WithColor(false))
	}
	base := o.dir
	if base == "" {
		base, _ = os.Getwd()
	}
	if base != "" {
		opts = append(opts, emit.WithBaseDir(base))
	}
	return emit.NewConsoleReporter(w, opts...)
}

func (o *generateOptions) run(cmd *cobra.Command, patterns []string) error {
	logger, err := o.global.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sink := emit.NewFileSink(o.mode(), emit.WithOutput(cmd.OutOrStdout()), emit.WithSinkLogger(logger))
	console := o.console(cmd.ErrOrStderr())
	eng := o.newEngine(o.newLoader(patterns, logger), sink, console, logger)

	res, err := eng.Round(cmd.Context())
	if err != nil {
		return err
	}

	stats := sink.Stats()
	logger.Info("generate finished",
		"mode", o.mode().String(),
		"written", stats.Written,
		"unchanged", stats.Unchanged,
		"stale", stats.Stale)
	if res.HasErrors() {
		errs, warnings := console.Counts()
		return fmt.Errorf("%w: %d error(s), %d warning(s)", ErrDiagnostics, errs, warnings)
	}
	return nil
}
