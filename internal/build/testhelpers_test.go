package build

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/landing/internal/config"
	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/pipeline"
	"github.com/conneroisu/landing/internal/scanner"
)

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, data, 0644))
}

// pngBytes encodes a w×h image. Noise makes the file incompressible, so
// its size grows with the pixel count.
func pngBytes(t *testing.T, w, h int, noise bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(7))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 200, G: 30, B: 30, A: 255}
			if noise {
				c = color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body><include src="header.html"></include><main>%s</main></body>
</html>
`

// site lays out a two page source tree under root and returns a matching
// configuration.
func site(t *testing.T, root string) *config.Config {
	t.Helper()
	src := filepath.Join(root, "src")

	writeFile(t, src, "html/header.html", []byte("<header>Landing</header>"))
	writeFile(t, src, "images/favicon.ico", []byte("ICO"))
	writeFile(t, src, "images/icon.png", pngBytes(t, 1, 1, false))
	writeFile(t, src, "images/logo.png", pngBytes(t, 48, 48, true))
	writeFile(t, src, "images/content/photo.txt", []byte("hello"))
	writeFile(t, src, "images/content/.DS_Store", []byte("junk"))
	writeFile(t, src, "images/content/Thumbs.db", []byte("junk"))

	writeFile(t, src, "pages/home/index.js", []byte(
		"import './style.css';\nimport logo from '../../images/logo.png';\nconst greet = (who) => `hello ${who}`;\nconsole.log(greet('home'), logo);\n"))
	writeFile(t, src, "pages/home/style.css", []byte(
		".hero { display: flex; background: url(../../images/icon.png); }\n.logo { background: url(../../images/logo.png); }\n"))
	writeFile(t, src, "pages/home/index.html", []byte(fmt.Sprintf(pageTemplate, "Home", "home")))

	writeFile(t, src, "pages/about/index.js", []byte("console.log('about');\n"))
	writeFile(t, src, "pages/about/index.html", []byte(fmt.Sprintf(pageTemplate, "About", "about")))

	cfg := config.Default()
	cfg.Paths.Source = src
	cfg.Paths.Output = filepath.Join(root, "dist")
	cfg.Limits.Images = 1024
	return cfg
}

func compose(t *testing.T, cfg *config.Config, production bool) *pipeline.Configuration {
	t.Helper()
	pages, err := scanner.NewPageScanner(cfg.Paths.Source, scanner.Options{PagesDir: cfg.Site.PagesDir}).
		Resolve(context.Background())
	require.NoError(t, err)

	c := pipeline.ComposePages(cfg, pages)
	if production {
		c, err = pipeline.Production(c, pipeline.ProductionOptionsFrom(cfg))
		require.NoError(t, err)
	}
	return c
}

func newTestRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := NewRunner(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func readOutput(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Paths.Output, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// testState builds a bare stage state over outDir.
func testState(outDir string, cfg *pipeline.Configuration) *state {
	if cfg == nil {
		cfg = &pipeline.Configuration{}
	}
	return &state{
		cfg:     cfg,
		outDir:  outDir,
		assets:  NewAssetSet(),
		diags:   lerrors.NewErrorCollector(),
		scripts: make(map[string]string),
		styles:  make(map[string]string),
		logger:  logging.Nop(),
	}
}
