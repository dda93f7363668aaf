package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// copyStatic emits directory trees that bypass the bundler.
func copyStatic(ctx context.Context, st *state, p *pipeline.Copy) error {
	for _, pattern := range p.Patterns {
		if err := copyPattern(ctx, st, pattern); err != nil {
			return err
		}
	}
	return nil
}

func copyPattern(ctx context.Context, st *state, pattern pipeline.CopyPattern) error {
	info, err := os.Stat(pattern.From)
	if errors.Is(err, fs.ErrNotExist) {
		if pattern.NoErrorOnMissing {
			return nil
		}
		return lerrors.NewIOError("COPY_SOURCE_MISSING", pattern.From, err)
	}
	if err != nil {
		return lerrors.NewIOError("COPY_FAILED", pattern.From, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(pattern.From)
		if err != nil {
			return lerrors.NewIOError("COPY_FAILED", pattern.From, err)
		}
		st.assets.Emit(&Asset{Name: pattern.To, Data: data, Kind: kindOf(pattern.To), Source: pattern.From})
		return nil
	}

	copied := 0
	err = filepath.WalkDir(pattern.From, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(pattern.From, file)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ignored(pattern.Ignore, rel) {
			return nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		name := path.Join(pattern.To, rel)
		kind := kindOf(name)
		if kind == KindOther {
			kind = KindStatic
		}
		st.assets.Emit(&Asset{Name: name, Data: data, Kind: kind, Source: file})
		copied++
		return nil
	})
	if err != nil {
		return lerrors.NewIOError("COPY_FAILED", pattern.From, err)
	}
	st.logger.Debug(ctx, "Static files copied", "from", pattern.From, "to", pattern.To, "files", copied)
	return nil
}

// ignored matches patterns against the relative path and the base name.
func ignored(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		if m, _ := doublestar.Match(pattern, rel); m {
			return true
		}
		if m, _ := doublestar.Match(pattern, base); m {
			return true
		}
	}
	return false
}
