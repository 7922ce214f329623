package snippet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Gasburger/BrainBox/pkg/event"
)

// loadConcurrency bounds how many snippet files are decoded in parallel.
const loadConcurrency = 8

// Store reads snippet corpora from one or more directories. Snippets are
// plain files; the store adds bulk loading, label filtering, and stable
// ordering on top.
type Store struct {
	dirs []string
}

// NewStore returns a store over the given snippet directories. Later
// directories extend the corpus (the reference layout keeps noise snippets
// in a Noise/ subdirectory next to the event snippets).
func NewStore(dirs ...string) *Store {
	return &Store{dirs: dirs}
}

// Load reads every snippet in the store's directories, filtered to the given
// labels; an empty filter loads everything. Files are decoded in parallel
// but the result is sorted by ID, so corpus order — and every train/test
// split seeded from it — is deterministic.
//
// A missing directory is an error: a typo'd corpus path must not silently
// train an empty model. Files whose names do not encode a label are skipped
// with a warning rather than failing the bulk load.
func (s *Store) Load(ctx context.Context, labels ...event.Label) ([]Snippet, error) {
	want := map[event.Label]bool{}
	for _, l := range labels {
		want[l] = true
	}

	var paths []string
	for _, dir := range s.dirs {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("snippet: corpus directory: %w", err)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
		if err != nil {
			return nil, fmt.Errorf("snippet: glob %q: %w", dir, err)
		}
		paths = append(paths, matches...)
	}

	var (
		mu       sync.Mutex
		snippets []Snippet
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			label, err := EventFromFilename(path)
			if err != nil {
				slog.Warn("skipping snippet with unparseable name", "path", path, "err", err)
				return nil
			}
			if len(want) > 0 && !want[label] {
				return nil
			}
			sn, err := Read(path)
			if err != nil {
				return err
			}
			mu.Lock()
			snippets = append(snippets, sn)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(snippets, func(i, j int) bool { return snippets[i].ID < snippets[j].ID })
	slog.Debug("snippet corpus loaded", "count", len(snippets), "dirs", s.dirs)
	return snippets, nil
}
