package build

import (
	"bytes"
	"context"
	"image/gif"
	"image/png"
	"path"
	"strings"

	"github.com/conneroisu/landing/internal/pipeline"
)

// optimizeImages recompresses emitted images without loss and keeps a
// result only when it is smaller than the original. Options no encoder can
// honour are reported once per build.
func optimizeImages(ctx context.Context, st *state, p *pipeline.ImageMinimizer) error {
	m := newMinifier()
	saved := int64(0)
	var jpegs, interlaced []string

	for _, a := range st.assets.All() {
		if p.Test == nil || !p.Test.MatchString(a.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var out []byte
		var err error
		switch strings.ToLower(path.Ext(a.Name)) {
		case ".png":
			if !p.PNG.Enabled || p.PNG.OptimizationLevel < 1 {
				continue
			}
			out, err = recompressPNG(a.Data, pngCompression(p.PNG.OptimizationLevel))
		case ".gif":
			if !p.GIF.Enabled {
				continue
			}
			if p.GIF.Interlaced {
				interlaced = append(interlaced, a.Name)
			}
			out, err = recompressGIF(a.Data)
		case ".svg":
			if !p.SVG.Enabled {
				continue
			}
			if p.SVG.RemoveViewBox {
				st.logger.Debug(ctx, "viewBox removal is not supported, keeping it", "file", a.Name)
			}
			out, err = m.Bytes("image/svg+xml", a.Data)
		case ".jpg", ".jpeg":
			if p.JPEG.Enabled {
				jpegs = append(jpegs, a.Name)
			}
			continue
		default:
			continue
		}
		if err != nil {
			st.logger.Warn(ctx, err, "Image recompression failed, keeping original", "file", a.Name)
			continue
		}
		if len(out) < len(a.Data) {
			saved += int64(len(a.Data) - len(out))
			st.assets.Replace(a.Name, out)
		}
	}

	if len(jpegs) > 0 {
		st.logger.Warn(ctx, nil, "JPEG recompression is enabled but no lossless JPEG encoder is available, shipping files as is",
			"files", jpegs, "progressive", p.JPEG.Progressive)
	}
	if len(interlaced) > 0 {
		st.logger.Warn(ctx, nil, "GIF interlacing is not supported, files are re-encoded without it",
			"files", interlaced)
	}
	st.logger.Debug(ctx, "Images optimized", "saved_bytes", saved)
	return nil
}

// pngCompression maps an optimization level to a zlib effort: level 1 uses
// the default effort, higher levels the best.
func pngCompression(level int) png.CompressionLevel {
	if level <= 1 {
		return png.DefaultCompression
	}
	return png.BestCompression
}

func recompressPNG(data []byte, level png.CompressionLevel) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func recompressGIF(data []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
