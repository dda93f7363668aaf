// Package renderer turns page templates into emitted HTML.
//
// Rendering has two halves. ExpandIncludes is a byte-preserving
// preprocessor that splices partials from the include root into a template.
// The document helpers then parse the result and inject the favicon, script
// and style tags, the deployment <base href> and the live reload client.
package renderer

import (
	"context"
	"errors"
	"path"
	"strings"

	"golang.org/x/net/html"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
)

// PageRenderer renders page templates against one include root.
type PageRenderer struct {
	includeRoot string
	logger      logging.Logger
}

// NewPageRenderer creates a renderer resolving partials under includeRoot.
func NewPageRenderer(includeRoot string, logger logging.Logger) *PageRenderer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PageRenderer{
		includeRoot: includeRoot,
		logger:      logger.WithComponent("renderer"),
	}
}

// Preprocess expands the includes of one page template. A failure is
// contained to the page: the raw content is returned together with the
// recoverable error so the caller can record a diagnostic and carry on.
func (r *PageRenderer) Preprocess(ctx context.Context, page, file string, content []byte) ([]byte, error) {
	expanded, err := r.ExpandIncludes(file, content)
	if err == nil {
		return expanded, nil
	}

	var le *lerrors.LandingError
	if errors.As(err, &le) {
		err = le.WithPage(page)
	}
	r.logger.Warn(ctx, err, "Include preprocessing failed, using raw template", "page", page, "file", file)
	return content, err
}

// Page describes one page to render.
type Page struct {
	Name     string
	File     string
	Template []byte
	// Filename is the output path of the page relative to the output root.
	Filename  string
	Injection Injection
}

// Render preprocesses and decorates a page. The returned error, if any, is
// the recoverable include failure; the HTML is still usable.
func (r *PageRenderer) Render(ctx context.Context, p Page) ([]byte, error) {
	content, includeErr := r.Preprocess(ctx, p.Name, p.File, p.Template)

	doc, err := ParseDocument(content)
	if err != nil {
		return nil, err
	}
	Inject(doc, p.Injection)

	out, err := RenderDocument(doc)
	if err != nil {
		return nil, err
	}
	return out, includeErr
}

// Rewrite parses content, applies each edit in order and renders the result.
func Rewrite(content []byte, edits ...func(*html.Node)) ([]byte, error) {
	doc, err := ParseDocument(content)
	if err != nil {
		return nil, err
	}
	for _, edit := range edits {
		edit(doc)
	}
	return RenderDocument(doc)
}

// RelativeURL returns the URL of asset as referenced from the page emitted
// at pageFile. Both are slash-separated paths relative to the output root.
func RelativeURL(pageFile, asset string) string {
	depth := strings.Count(path.Clean(pageFile), "/")
	return strings.Repeat("../", depth) + asset
}
