package renderer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	lerrors "github.com/conneroisu/landing/internal/errors"
)

func writePartial(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestExpandIncludes(t *testing.T) {
	root := t.TempDir()
	writePartial(t, root, "header.html", "<header>Top</header>")
	writePartial(t, root, "nav/menu.html", `<nav><include src="nav/item.html" /></nav>`)
	writePartial(t, root, "nav/item.html", "<a href=\"/\">Home</a>")

	r := NewPageRenderer(root, nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no includes is byte identical",
			input: "<!DOCTYPE html>\n<html><body class=x>  <p>Hi &amp; bye</p></body></html>",
			want:  "<!DOCTYPE html>\n<html><body class=x>  <p>Hi &amp; bye</p></body></html>",
		},
		{
			name:  "paired element",
			input: `<body><include src="header.html"></include><main></main></body>`,
			want:  `<body><header>Top</header><main></main></body>`,
		},
		{
			name:  "self closing element",
			input: `<body><include src="header.html"/></body>`,
			want:  `<body><header>Top</header></body>`,
		},
		{
			name:  "nested partials",
			input: `<body><include src="nav/menu.html"></include></body>`,
			want:  `<body><nav><a href="/">Home</a></nav></body>`,
		},
		{
			name:  "include inside script is left alone",
			input: `<script>var s = '<include src="header.html"></include>';</script>`,
			want:  `<script>var s = '<include src="header.html"></include>';</script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ExpandIncludes("page.html", []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExpandIncludesErrors(t *testing.T) {
	root := t.TempDir()
	writePartial(t, root, "loop-a.html", `<include src="loop-b.html"></include>`)
	writePartial(t, root, "loop-b.html", `<include src="loop-a.html"></include>`)

	r := NewPageRenderer(root, nil)

	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"missing partial", `<include src="missing.html"></include>`, "INCLUDE_NOT_FOUND"},
		{"missing src", `<include></include>`, "INCLUDE_MISSING_SRC"},
		{"unclosed", `<body><include src="header.html">`, "INCLUDE_UNCLOSED"},
		{"escapes root", `<include src="../secret.html"></include>`, "INCLUDE_OUTSIDE_ROOT"},
		{"absolute", `<include src="/etc/passwd"></include>`, "INCLUDE_OUTSIDE_ROOT"},
		{"cycle", `<include src="loop-a.html"></include>`, "INCLUDE_CYCLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ExpandIncludes("page.html", []byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.code)
			assert.True(t, lerrors.IsRecoverable(err))
			assert.Equal(t, lerrors.ErrorTypeInclude, lerrors.GetErrorType(err))
		})
	}
}

func TestPreprocessFallsBackToRawContent(t *testing.T) {
	r := NewPageRenderer(t.TempDir(), nil)
	raw := []byte(`<body><include src="gone.html"></include></body>`)

	out, err := r.Preprocess(context.Background(), "home", "home/index.html", raw)
	require.Error(t, err)
	assert.Equal(t, raw, out)

	var le *lerrors.LandingError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "home", le.Page)
}

func TestRender(t *testing.T) {
	root := t.TempDir()
	writePartial(t, root, "footer.html", "<footer>Bottom</footer>")
	r := NewPageRenderer(root, nil)

	out, err := r.Render(context.Background(), Page{
		Name:     "home",
		File:     "home/index.html",
		Template: []byte(`<html><head><title>Home</title></head><body><include src="footer.html"></include></body></html>`),
		Filename: "home.html",
		Injection: Injection{
			Favicon: "favicon.ico",
			Scripts: []string{"js/home.0123.js"},
			Styles:  []string{"css/home.css"},
		},
	})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<footer>Bottom</footer>")
	assert.Contains(t, s, `<link rel="icon" href="favicon.ico"/>`)
	assert.Contains(t, s, `<script defer="" src="js/home.0123.js"></script>`)
	assert.Contains(t, s, `<link href="css/home.css" rel="stylesheet"/>`)

	head := s[strings.Index(s, "<head>"):strings.Index(s, "</head>")]
	assert.Less(t, strings.Index(head, "favicon.ico"), strings.Index(head, "js/home"))
	assert.Less(t, strings.Index(head, "js/home"), strings.Index(head, "css/home"))
}

func TestRenderBrokenIncludeStillRenders(t *testing.T) {
	r := NewPageRenderer(t.TempDir(), nil)
	out, err := r.Render(context.Background(), Page{
		Name:      "about",
		Template:  []byte(`<html><head></head><body><p>About</p><include src="nope.html"></include></body></html>`),
		Injection: Injection{Scripts: []string{"js/about.js"}},
	})
	require.Error(t, err)
	assert.True(t, lerrors.IsRecoverable(err))
	assert.Contains(t, string(out), "<p>About</p>")
	assert.Contains(t, string(out), "js/about.js")
}

func TestInjectQuery(t *testing.T) {
	out, err := Rewrite([]byte("<html><head></head></html>"), func(doc *html.Node) {
		Inject(doc, Injection{Scripts: []string{"js/a.js"}, Query: "abc"})
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `src="js/a.js?abc"`)
}

func TestSetBaseHref(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no base", `<html><head><title>x</title></head><body></body></html>`},
		{"existing base", `<html><head><title>x</title><base href="/old/"></head><body></body></html>`},
		{"no head", `<p>fragment</p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rewrite([]byte(tt.input), func(doc *html.Node) { SetBaseHref(doc, "/landing/") })
			require.NoError(t, err)

			s := string(out)
			assert.Contains(t, s, `<head><base href="/landing/"/>`)
			assert.Equal(t, 1, strings.Count(s, "<base"))
			assert.NotContains(t, s, "/old/")
		})
	}
}

func TestInjectLiveReload(t *testing.T) {
	out, err := Rewrite([]byte(`<html><body><p>x</p></body></html>`), func(doc *html.Node) {
		InjectLiveReload(doc, "/__livereload")
	})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `"/__livereload"`)
	assert.Less(t, strings.Index(s, "<p>x</p>"), strings.Index(s, "<script>"))
}

func TestRelativeURL(t *testing.T) {
	assert.Equal(t, "js/home.js", RelativeURL("home.html", "js/home.js"))
	assert.Equal(t, "../js/blog/post.js", RelativeURL("blog/post.html", "js/blog/post.js"))
	assert.Equal(t, "../../favicon.ico", RelativeURL("a/b/c.html", "favicon.ico"))
}
