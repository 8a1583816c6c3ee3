package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"

	"martianoff/visitorgen/internal/naming"
)

// FileSource answers naming lookups from the configuration files between a
// package directory and the repository root. Nearer directories win, and
// visitor.config wins over visitor.yaml in the same directory.
//
// Parsed files are cached per directory for the life of the source.
// Thread-safe.
type FileSource struct {
	logger *slog.Logger
	bound  string

	mu    sync.Mutex
	dirs  map[string][]*File // parsed files per directory, config before yaml
	roots map[string]string  // start directory to its bound
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithLogger sets the logger for files read and skipped.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBound stops every search at dir instead of the repository root.
func WithBound(dir string) Option {
	return func(s *FileSource) {
		s.bound = filepath.Clean(dir)
	}
}

// NewFileSource creates a FileSource.
func NewFileSource(opts ...Option) *FileSource {
	s := &FileSource{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dirs:   make(map[string][]*File),
		roots:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup implements naming.Source. Unreadable configuration is logged and
// treated as absent; call Chain first to surface it as an error.
func (s *FileSource) Lookup(key naming.Key, scope naming.Location) (string, bool) {
	if scope.Dir == "" {
		return "", false
	}
	files, err := s.Chain(context.Background(), scope.Dir)
	if err != nil {
		s.logger.Warn("ignoring configuration", "dir", scope.Dir, "error", err)
		return "", false
	}
	for _, f := range files {
		value, found, cleared := f.Lookup(key)
		if !found {
			continue
		}
		if cleared {
			return "", false
		}
		return value, true
	}
	return "", false
}

// Chain returns the configuration files that apply to dir, nearest first.
// The search stops at the bound, the repository root, or a file setting
// config.stopBubbling.
func (s *FileSource) Chain(ctx context.Context, dir string) ([]*File, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	bound := s.boundFor(dir)

	var chain []*File
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.dirFiles(dir)
		if err != nil {
			return nil, err
		}
		chain = append(chain, files...)

		stop := false
		for _, f := range files {
			stop = stop || f.StopBubbling
		}
		if stop || dir == bound {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return chain, nil
}

func (s *FileSource) dirFiles(dir string) ([]*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if files, ok := s.dirs[dir]; ok {
		return files, nil
	}

	var files []*File
	for _, candidate := range []struct {
		name  string
		parse func(string) (*File, error)
	}{
		{ConfigFileName, ParseFile},
		{YAMLFileName, ParseYAMLFile},
	} {
		path := filepath.Join(dir, candidate.name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		f, err := candidate.parse(path)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("read configuration", "path", path, "entries", len(f.Entries))
		files = append(files, f)
	}
	s.dirs[dir] = files
	return files, nil
}

// boundFor returns the directory the search from dir ends at.
func (s *FileSource) boundFor(dir string) string {
	if s.bound != "" {
		return s.bound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if root, ok := s.roots[dir]; ok {
		return root
	}
	root := RepositoryRoot(dir)
	s.roots[dir] = root
	return root
}

// RepositoryRoot returns the worktree root of the git repository containing
// dir, or the empty string if dir is not inside one.
func RepositoryRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return ""
	}
	return root
}

var _ naming.Source = (*FileSource)(nil)
