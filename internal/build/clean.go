package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// clean removes every file under the output directory that matches a
// positive pattern and no negated one, then prunes emptied directories.
func clean(ctx context.Context, st *state, p *pipeline.Clean) error {
	if _, err := os.Stat(st.outDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var dirs []string
	removed := 0
	err := filepath.WalkDir(st.outDir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if file == st.outDir {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, file)
			return nil
		}
		rel, err := filepath.Rel(st.outDir, file)
		if err != nil {
			return err
		}
		if !shouldClean(p.Patterns, filepath.ToSlash(rel)) {
			return nil
		}
		if err := os.Remove(file); err != nil {
			return err
		}
		removed++
		if p.Verbose {
			st.logger.Info(ctx, "Removed", "file", filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return lerrors.NewIOError("CLEAN_FAILED", st.outDir, err)
	}

	// deepest first
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}

	st.logger.Debug(ctx, "Output cleaned", "removed", removed)
	return nil
}

func shouldClean(patterns []string, rel string) bool {
	matched := false
	for _, pattern := range patterns {
		if keep, ok := strings.CutPrefix(pattern, "!"); ok {
			if m, _ := doublestar.Match(keep, rel); m {
				return false
			}
			continue
		}
		if m, _ := doublestar.Match(pattern, rel); m {
			matched = true
		}
	}
	return matched
}
