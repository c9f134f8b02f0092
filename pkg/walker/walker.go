package walker

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"sanitier/pkg/exclude"
)

// Visitor is called once for every non-directory entry found by a walk.
type Visitor func(path string, entry fs.DirEntry)

// Stats counts what a walk saw.
type Stats struct {
	Dirs         uint64
	Files        uint64
	ExcludedDirs uint64
	Unreadable   uint64
}

// Walker performs a top-down recursive walk that honours an exclusion filter
// at every level below the root. Files of a directory are visited before its
// subdirectories are entered.
type Walker struct {
	filter *exclude.Filter
	logger zerolog.Logger
	skip   map[string]struct{}
}

// New creates a Walker. Paths listed in skip are never entered.
func New(filter *exclude.Filter, logger zerolog.Logger, skip ...string) *Walker {
	w := &Walker{
		filter: filter,
		logger: logger,
		skip:   make(map[string]struct{}, len(skip)),
	}
	for _, p := range skip {
		if p != "" {
			w.skip[filepath.Clean(p)] = struct{}{}
		}
	}
	return w
}

// Walk visits every file under root. Unreadable directories are logged and
// their subtree skipped; the walk itself never fails.
func (w *Walker) Walk(root string, visit Visitor) Stats {
	var stats Stats
	w.walkDir(filepath.Clean(root), visit, &stats)
	return stats
}

func (w *Walker) walkDir(dir string, visit Visitor, stats *Stats) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		stats.Unreadable++
		w.logger.Error().Err(err).Str("dir", dir).Msg("Unable to read directory, skipping subtree")
		return
	}
	stats.Dirs++

	w.logger.Info().Str("dir", dir).Msg("Scanning directory")

	var subDirs []fs.DirEntry
	files := 0
	for _, entry := range entries {
		if entry.IsDir() {
			subDirs = append(subDirs, entry)
			continue
		}
		files++
		stats.Files++
		visit(filepath.Join(dir, entry.Name()), entry)
	}
	if files == 0 {
		w.logger.Info().Str("dir", dir).Msg("No candidate file was found")
	}

	for _, entry := range subDirs {
		path := filepath.Join(dir, entry.Name())
		if !w.filter.ShouldDescend(entry.Name()) {
			stats.ExcludedDirs++
			w.logger.Debug().Str("dir", path).Msg("Skipping excluded directory")
			continue
		}
		if _, ok := w.skip[path]; ok {
			stats.ExcludedDirs++
			w.logger.Debug().Str("dir", path).Msg("Skipping directory outside walk scope")
			continue
		}
		w.walkDir(path, visit, stats)
	}
}
