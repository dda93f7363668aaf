package renderer

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/html"

	lerrors "github.com/conneroisu/landing/internal/errors"
)

// MaxIncludeDepth bounds nested partial inclusion.
const MaxIncludeDepth = 32

const includeTag = "include"

// ExpandIncludes replaces every <include src="..."> element in content with
// the contents of the named partial, resolved against the include root.
// Partials are expanded recursively. Bytes outside include elements are
// copied through unchanged.
func (r *PageRenderer) ExpandIncludes(file string, content []byte) ([]byte, error) {
	return r.expand(file, content, nil)
}

func (r *PageRenderer) expand(file string, content []byte, stack []string) ([]byte, error) {
	if len(stack) > MaxIncludeDepth {
		return nil, includeError("INCLUDE_DEPTH", file, "includes nested too deeply").
			WithContext("depth", len(stack))
	}

	var out bytes.Buffer
	out.Grow(len(content))

	z := html.NewTokenizer(bytes.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, includeError("INCLUDE_PARSE", file, "failed to tokenize").WithCause(z.Err())
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != includeTag {
			out.Write(z.Raw())
			continue
		}

		src := ""
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) == "src" {
				src = string(val)
			}
		}
		if tt == html.StartTagToken {
			if err := skipToEnd(z); err != nil {
				return nil, includeError("INCLUDE_UNCLOSED", file, "include element is never closed").
					WithContext("src", src)
			}
		}
		if src == "" {
			return nil, includeError("INCLUDE_MISSING_SRC", file, "include element has no src attribute")
		}

		partial, err := r.resolve(src)
		if err != nil {
			return nil, err.WithLocation(file, 0)
		}
		if slices.Contains(stack, partial) {
			return nil, includeError("INCLUDE_CYCLE", file, "include cycle detected").
				WithContext("src", src)
		}

		data, readErr := os.ReadFile(partial)
		if readErr != nil {
			return nil, includeError("INCLUDE_NOT_FOUND", file, "cannot read partial "+src).
				WithCause(readErr)
		}
		expanded, expandErr := r.expand(partial, data, append(stack, partial))
		if expandErr != nil {
			return nil, expandErr
		}
		out.Write(expanded)
	}
}

// skipToEnd consumes tokens up to and including the matching </include>.
func skipToEnd(z *html.Tokenizer) error {
	depth := 1
	for {
		switch z.Next() {
		case html.ErrorToken:
			return z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == includeTag {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == includeTag {
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
	}
}

// resolve maps an include src onto a file under the include root.
func (r *PageRenderer) resolve(src string) (string, *lerrors.LandingError) {
	clean := filepath.Clean(filepath.FromSlash(src))
	if filepath.IsAbs(clean) || strings.HasPrefix(src, "/") {
		return "", lerrors.NewIncludeError("INCLUDE_OUTSIDE_ROOT", "absolute include path not allowed: "+src)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", lerrors.NewIncludeError("INCLUDE_OUTSIDE_ROOT", "include path escapes the include root: "+src)
	}
	return filepath.Join(r.includeRoot, clean), nil
}

func includeError(code, file, msg string) *lerrors.LandingError {
	return lerrors.NewIncludeError(code, msg).WithLocation(file, 0)
}
