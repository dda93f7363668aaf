package build

import (
	"bytes"
	"context"

	"github.com/klauspost/compress/gzip"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// compress writes a .gz sibling next to every matching asset.
func compress(ctx context.Context, st *state, p *pipeline.Compression) error {
	written := 0
	for _, a := range st.assets.All() {
		if p.Test == nil || !p.Test.MatchString(a.Name) || a.Size() < p.MinSize {
			continue
		}
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return lerrors.NewBundleError("GZIP_FAILED", err.Error())
		}
		if _, err := zw.Write(a.Data); err != nil {
			return lerrors.NewBundleError("GZIP_FAILED", err.Error()).WithLocation(a.Name, 0)
		}
		if err := zw.Close(); err != nil {
			return lerrors.NewBundleError("GZIP_FAILED", err.Error()).WithLocation(a.Name, 0)
		}
		st.assets.Emit(&Asset{Name: a.Name + ".gz", Data: buf.Bytes(), Kind: KindOther, Entry: a.Entry, Source: a.Name})
		written++
	}
	st.logger.Debug(ctx, "Compressed assets", "files", written)
	return nil
}
