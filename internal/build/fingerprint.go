package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// fingerprint renames every script bundle after the output filename
// template. Digests are taken from the final bytes, so they change exactly
// when the shipped file changes.
func (r *Runner) fingerprint(ctx context.Context, st *state) error {
	names := make([]string, 0, len(st.scripts))
	for name := range st.scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		current := st.scripts[name]
		a, ok := st.assets.Get(current)
		if !ok {
			continue
		}
		digest := r.hashes.ContentHash(current, a.Data)
		final := ExpandFilename(st.cfg.Output.Filename, name, ".js", digest)
		if final != current {
			st.assets.Rename(current, final)
			st.scripts[name] = final
		}
		st.logger.Debug(ctx, "Fingerprinted bundle", "entry", name, "file", final)
	}
	return nil
}

// buildHash digests the names of all script and style outputs. It changes
// whenever any fingerprinted file does.
func buildHash(st *state) string {
	var names []string
	for _, n := range st.scripts {
		names = append(names, n)
	}
	for _, n := range st.styles {
		names = append(names, n)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
		if a, ok := st.assets.Get(n); ok {
			h.Write(a.Data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:DefaultHashLength]
}
