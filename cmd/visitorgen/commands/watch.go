package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"martianoff/visitorgen/internal/config"
	"martianoff/visitorgen/internal/emit"
	"martianoff/visitorgen/internal/engine"
)

type watchOptions struct {
	*generateOptions
	debounce time.Duration
}

func newWatchCmd(global *globalOptions) *cobra.Command {
	o := &watchOptions{generateOptions: newGenerateOptions(global)}
	cmd := &cobra.Command{
		Use:   "watch [packages...]",
		Short: "Regenerate visitor files whenever sources change",
		Long: `Run a generate round, then watch the package directories and run another
round after every burst of changes to .go files or visitor config files.
Stop with Ctrl-C.`,
		Args: cobra.ArbitraryArgs,
		RunE: o.run,
	}
	flags := cmd.Flags()
	flags.StringVarP(&o.dir, "dir", "C", "", "Directory to resolve package patterns in")
	flags.StringSliceVar(&o.tags, "tags", global.env.TagList(), "Extra build tags used while loading packages")
	flags.BoolVar(&o.strictRoots, "strict-roots", global.env.StrictRoots, "Require leaves to name their roots when more than one is possible")
	flags.DurationVar(&o.debounce, "debounce", 200*time.Millisecond, "Quiet period before regenerating")
	return cmd
}

func (o *watchOptions) run(cmd *cobra.Command, patterns []string) error {
	logger, err := o.global.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sink := emit.NewFileSink(emit.ModeWrite, emit.WithSinkLogger(logger))
	console := o.console(cmd.ErrOrStderr())
	l := o.newLoader(patterns, logger)

	loop := &watchLoop{
		dirs: l.Dirs,
		round: func(ctx context.Context) error {
			res, err := o.newEngine(l, sink, console, logger).Round(ctx)
			if err != nil {
				return err
			}
			if res.HasErrors() {
				logger.Warn("round reported errors", "diagnostics", len(res.Diagnostics))
			}
			return nil
		},
		debounce: o.debounce,
		logger:   logger,
	}
	return loop.run(cmd.Context())
}

// watchLoop runs round once, then again after every quiet period following
// a relevant change in one of the watched directories.
type watchLoop struct {
	dirs     func(ctx context.Context) ([]string, error)
	round    func(ctx context.Context) error
	debounce time.Duration
	logger   *slog.Logger

	watched map[string]bool
}

func (w *watchLoop) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = fsw.Close()
	}()
	w.watched = make(map[string]bool)

	w.iterate(ctx, fsw)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("change", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.iterate(ctx, fsw)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// iterate runs one round and then follows packages that appeared or
// disappeared.
func (w *watchLoop) iterate(ctx context.Context, fsw *fsnotify.Watcher) {
	if err := w.round(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("round failed", "error", err)
	}
	dirs, err := w.dirs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to list package directories", "error", err)
		}
		return
	}

	current := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		current[d] = true
		if w.watched[d] {
			continue
		}
		if err := fsw.Add(d); err != nil {
			w.logger.Warn("cannot watch directory", "dir", d, "error", err)
			continue
		}
		w.watched[d] = true
		w.logger.Debug("watching", "dir", d)
	}
	for d := range w.watched {
		if !current[d] {
			_ = fsw.Remove(d)
			delete(w.watched, d)
		}
	}
}

// relevant reports whether ev can change the outcome of a round.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	// dotfiles are sink temporaries; generated files are our own output
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, engine.OutputSuffix) {
		return false
	}
	return strings.HasSuffix(base, ".go") || base == config.ConfigFileName || base == config.YAMLFileName
}
