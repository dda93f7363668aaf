package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0644))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	out := t.TempDir()
	writeFile(t, out, "home.html", "<p>home</p>")
	writeFile(t, out, "about.html", "<p>about</p>")
	writeFile(t, out, "blog/post.html", "<p>post</p>")
	writeFile(t, out, "css/home.css", "body{}")

	s := New(Options{Host: "localhost", Port: 3000, OutputDir: out})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, out
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStaticFiles(t *testing.T) {
	_, ts, _ := newTestServer(t)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<p>home</p>"},
		{"/about", http.StatusOK, "<p>about</p>"},
		{"/about.html", http.StatusOK, "<p>about</p>"},
		{"/blog/post", http.StatusOK, "<p>post</p>"},
		{"/css/home.css", http.StatusOK, "body{}"},
		{"/missing.js", http.StatusNotFound, ""},
		{"/../../etc/passwd", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, body := get(t, ts.URL+tt.path)
			assert.Equal(t, tt.status, status)
			if tt.body != "" {
				assert.Equal(t, tt.body, body)
			}
		})
	}
}

func TestStaticHeaders(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/css/home.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestStaticRejectsWrites(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/home.html", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s, ts, _ := newTestServer(t)

	status, body := get(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, status)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])

	s.BuildFinished(errors.New("BUNDLE_FAILED"))
	_, body = get(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "BUNDLE_FAILED", health["build_error"])
}

func TestLiveReload(t *testing.T) {
	s, ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LiveReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.BuildFinished(nil)
	typ, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.Equal(t, ReloadMessage, string(msg))

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool { return s.Hub().Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveReloadRejectsForeignOrigin(t *testing.T) {
	_, ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LiveReloadPath
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
	})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}

func TestFailedBuildDoesNotReload(t *testing.T) {
	s, ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LiveReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.BuildFinished(errors.New("boom"))

	readCtx, readCancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer readCancel()
	_, _, err = conn.Read(readCtx)
	assert.Error(t, err)
}
