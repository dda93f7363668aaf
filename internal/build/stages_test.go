package build

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/pipeline"
)

func TestShouldClean(t *testing.T) {
	patterns := []string{"**/*", "!stats.json"}
	assert.True(t, shouldClean(patterns, "index.html"))
	assert.True(t, shouldClean(patterns, "js/deep/home.js"))
	assert.False(t, shouldClean(patterns, "stats.json"))
	assert.True(t, shouldClean(patterns, "nested/stats.json"))
	assert.False(t, shouldClean(nil, "index.html"))
}

func TestClean(t *testing.T) {
	out := t.TempDir()
	writeFile(t, out, "home.html", []byte("x"))
	writeFile(t, out, "js/a/b.js", []byte("x"))
	writeFile(t, out, "stats.json", []byte("{}"))

	st := testState(out, nil)
	require.NoError(t, clean(context.Background(), st, &pipeline.Clean{Patterns: []string{"**/*", "!stats.json"}}))

	assert.NoFileExists(t, filepath.Join(out, "home.html"))
	assert.NoDirExists(t, filepath.Join(out, "js"))
	assert.FileExists(t, filepath.Join(out, "stats.json"))
}

func TestCleanMissingOutput(t *testing.T) {
	st := testState(filepath.Join(t.TempDir(), "absent"), nil)
	assert.NoError(t, clean(context.Background(), st, &pipeline.Clean{Patterns: []string{"**/*"}}))
}

func TestCopyStatic(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", []byte("a"))
	writeFile(t, src, "nested/b.png", []byte("b"))
	writeFile(t, src, "nested/.DS_Store", []byte("junk"))
	writeFile(t, src, "Thumbs.db", []byte("junk"))

	st := testState(t.TempDir(), nil)
	err := copyStatic(context.Background(), st, &pipeline.Copy{Patterns: []pipeline.CopyPattern{{
		From:   src,
		To:     "images/content",
		Ignore: []string{"*.DS_Store", "Thumbs.db"},
	}}})
	require.NoError(t, err)

	var names []string
	for _, a := range st.assets.All() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"images/content/a.txt", "images/content/nested/b.png"}, names)

	b, ok := st.assets.Get("images/content/nested/b.png")
	require.True(t, ok)
	assert.Equal(t, KindImage, b.Kind)
	a, _ := st.assets.Get("images/content/a.txt")
	assert.Equal(t, KindStatic, a.Kind)
}

func TestCopyMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	st := testState(t.TempDir(), nil)
	err := copyStatic(context.Background(), st, &pipeline.Copy{Patterns: []pipeline.CopyPattern{{From: missing, To: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY_SOURCE_MISSING")

	err = copyStatic(context.Background(), st, &pipeline.Copy{Patterns: []pipeline.CopyPattern{{From: missing, To: "x", NoErrorOnMissing: true}}})
	assert.NoError(t, err)
}

func TestCompress(t *testing.T) {
	big := bytes.Repeat([]byte("body { color: red; }\n"), 200)
	st := testState(t.TempDir(), nil)
	st.assets.Emit(&Asset{Name: "css/home.css", Data: big, Kind: KindStyle})
	st.assets.Emit(&Asset{Name: "css/tiny.css", Data: []byte("a{}"), Kind: KindStyle})
	st.assets.Emit(&Asset{Name: "images/a.png", Data: big, Kind: KindImage})

	err := compress(context.Background(), st, &pipeline.Compression{
		Test:    regexp.MustCompile(`\.(js|css|html|svg)$`),
		MinSize: pipeline.CompressionMinSize,
	})
	require.NoError(t, err)

	gz, ok := st.assets.Get("css/home.css.gz")
	require.True(t, ok)
	assert.Less(t, gz.Size(), int64(len(big)))

	zr, err := gzip.NewReader(bytes.NewReader(gz.Data))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, big, plain)

	_, ok = st.assets.Get("css/tiny.css.gz")
	assert.False(t, ok)
	_, ok = st.assets.Get("images/a.png.gz")
	assert.False(t, ok)
}

func TestOptimizeImages(t *testing.T) {
	svg := []byte(`<?xml version="1.0"?>
<!-- comment -->
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
    <rect x="0" y="0" width="10" height="10" fill="#ff0000"/>
</svg>
`)
	solid := pngBytes(t, 64, 64, false)

	st := testState(t.TempDir(), nil)
	st.assets.Emit(&Asset{Name: "images/design/a.svg", Data: svg, Kind: KindImage})
	st.assets.Emit(&Asset{Name: "images/design/b.png", Data: solid, Kind: KindImage})
	st.assets.Emit(&Asset{Name: "images/design/c.jpg", Data: []byte("jpeg"), Kind: KindImage})

	p := &pipeline.ImageMinimizer{
		Test: regexp.MustCompile(`(?i)\.(gif|jpe?g|png|svg)$`),
		PNG:  pipeline.OptipngOptions{Enabled: true, OptimizationLevel: 5},
		SVG:  pipeline.SvgoOptions{Enabled: true},
		JPEG: pipeline.JpegtranOptions{Enabled: true},
	}
	require.NoError(t, optimizeImages(context.Background(), st, p))

	a, _ := st.assets.Get("images/design/a.svg")
	assert.Less(t, len(a.Data), len(svg))
	assert.Contains(t, string(a.Data), "viewBox")
	assert.NotContains(t, string(a.Data), "comment")

	b, _ := st.assets.Get("images/design/b.png")
	assert.LessOrEqual(t, len(b.Data), len(solid))

	c, _ := st.assets.Get("images/design/c.jpg")
	assert.Equal(t, "jpeg", string(c.Data))
}

func TestOptimizeImagesReportsUnsupportedOptions(t *testing.T) {
	var gifData bytes.Buffer
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&gifData, img, nil))

	run := func(p *pipeline.ImageMinimizer) string {
		var logs bytes.Buffer
		st := testState(t.TempDir(), nil)
		st.logger = logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Output: &logs})
		st.assets.Emit(&Asset{Name: "a.gif", Data: gifData.Bytes(), Kind: KindImage})
		st.assets.Emit(&Asset{Name: "b.jpg", Data: []byte("jpeg"), Kind: KindImage})
		require.NoError(t, optimizeImages(context.Background(), st, p))

		b, _ := st.assets.Get("b.jpg")
		assert.Equal(t, "jpeg", string(b.Data))
		return logs.String()
	}
	test := regexp.MustCompile(`\.(gif|jpg)$`)

	out := run(&pipeline.ImageMinimizer{
		Test: test,
		GIF:  pipeline.GifsicleOptions{Enabled: true, Interlaced: true},
		JPEG: pipeline.JpegtranOptions{Enabled: true, Progressive: true},
	})
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "JPEG recompression is enabled")
	assert.Contains(t, out, "b.jpg")
	assert.Contains(t, out, "GIF interlacing is not supported")

	out = run(&pipeline.ImageMinimizer{
		Test: test,
		GIF:  pipeline.GifsicleOptions{Enabled: true},
	})
	assert.Empty(t, out)
}

func TestPNGCompression(t *testing.T) {
	assert.Equal(t, png.DefaultCompression, pngCompression(1))
	assert.Equal(t, png.BestCompression, pngCompression(2))
	assert.Equal(t, png.BestCompression, pngCompression(7))
}

func TestOptimizeImagesDisabled(t *testing.T) {
	svg := []byte("<svg xmlns=\"http://www.w3.org/2000/svg\">  <!-- x -->  </svg>")
	st := testState(t.TempDir(), nil)
	st.assets.Emit(&Asset{Name: "a.svg", Data: svg, Kind: KindImage})

	require.NoError(t, optimizeImages(context.Background(), st, &pipeline.ImageMinimizer{
		Test: regexp.MustCompile(`\.svg$`),
	}))
	a, _ := st.assets.Get("a.svg")
	assert.Equal(t, svg, a.Data)
}

func TestAssetSet(t *testing.T) {
	s := NewAssetSet()
	s.Emit(&Asset{Name: "b/./x.js", Data: []byte("1")})
	assert.True(t, s.EmitOnce(&Asset{Name: "a.css"}))
	assert.False(t, s.EmitOnce(&Asset{Name: "a.css", Data: []byte("2")}))

	_, ok := s.Get("b/x.js")
	assert.True(t, ok)

	s.Rename("b/x.js", "js/x.123.js")
	a, ok := s.Get("js/x.123.js")
	require.True(t, ok)
	assert.Equal(t, "js/x.123.js", a.Name)

	s.Replace("js/x.123.js", []byte("22"))
	assert.Equal(t, int64(2), a.Size())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "a.css", s.All()[0].Name)
}

func TestWriteStats(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, WriteStats(out, &Report{Mode: pipeline.ModeProduction}))
	data, err := os.ReadFile(filepath.Join(out, pipeline.StatsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode": "production"`)
}

func TestBuildMetrics(t *testing.T) {
	m := NewBuildMetrics()
	assert.Zero(t, m.Snapshot().SuccessRate())

	m.RecordStage("bundle", 30*time.Millisecond)
	m.RecordBuild(100*time.Millisecond, nil)
	m.RecordBuild(300*time.Millisecond, errors.New("BUNDLE_FAILED"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.Equal(t, 200*time.Millisecond, snap.AverageDuration)
	assert.Equal(t, "BUNDLE_FAILED", snap.LastError)
	assert.Equal(t, 50.0, snap.SuccessRate())

	snap.Stages["bundle"] = 0
	assert.Equal(t, 30*time.Millisecond, m.Snapshot().Stages["bundle"])
}
