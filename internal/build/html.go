package build

import (
	"context"
	"os"

	"golang.org/x/net/html"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
	"github.com/conneroisu/landing/internal/renderer"
)

// FaviconName is where the shared favicon is emitted.
const FaviconName = "favicon.ico"

// emitPage renders one HTML directive. An include failure is recorded as a
// diagnostic and the page is emitted from its raw template.
func (r *Runner) emitPage(ctx context.Context, st *state, p *pipeline.HTMLPage) error {
	tmpl, err := os.ReadFile(p.Template)
	if err != nil {
		return lerrors.NewIOError("TEMPLATE_READ", p.Template, err).WithPage(p.Page)
	}

	if p.Favicon != "" {
		if _, ok := st.assets.Get(FaviconName); !ok {
			data, err := os.ReadFile(p.Favicon)
			if err != nil {
				return lerrors.NewIOError("FAVICON_READ", p.Favicon, err).WithPage(p.Page)
			}
			st.assets.EmitOnce(&Asset{Name: FaviconName, Data: data, Kind: KindImage, Source: p.Favicon})
		}
	}

	inj := renderer.Injection{}
	if p.Inject {
		url := st.urlFor(p.Filename)
		if p.Favicon != "" {
			inj.Favicon = url(FaviconName)
		}
		for _, chunk := range p.Chunks {
			if js, ok := st.scripts[chunk]; ok {
				inj.Scripts = append(inj.Scripts, url(js))
			}
			if css, ok := st.styles[chunk]; ok {
				inj.Styles = append(inj.Styles, url(css))
			}
		}
		if p.Hash {
			inj.Query = buildHash(st)
		}
	}

	includeRoot := ""
	if rule, ok := st.cfg.RuleFor(pipeline.RuleHTML); ok {
		includeRoot = rule.IncludeRoot
	}
	pr := renderer.NewPageRenderer(includeRoot, st.logger)

	out, err := pr.Render(ctx, renderer.Page{
		Name:      p.Page,
		File:      p.Template,
		Template:  tmpl,
		Filename:  p.Filename,
		Injection: inj,
	})
	if out == nil {
		return err
	}
	if err != nil {
		st.diags.AddError(err, lerrors.SeverityWarning)
	}

	st.assets.Emit(&Asset{Name: p.Filename, Data: out, Kind: KindHTML, Entry: p.Page, Source: p.Template})
	return nil
}

// urlFor returns a function resolving output paths as referenced from the
// page at pageFile. With a <base href> every URL is relative to the base.
func (st *state) urlFor(pageFile string) func(string) string {
	if _, ok := pipeline.FindPlugin[*pipeline.BaseHref](st.cfg); ok {
		return func(asset string) string { return asset }
	}
	return func(asset string) string { return renderer.RelativeURL(pageFile, asset) }
}

func withBaseHref(href string) func(*html.Node) {
	return func(doc *html.Node) { renderer.SetBaseHref(doc, href) }
}

func withLiveReload(endpoint string) func(*html.Node) {
	return func(doc *html.Node) { renderer.InjectLiveReload(doc, endpoint) }
}

// rewritePages applies edit to every emitted page.
func rewritePages(st *state, edit func(*html.Node)) error {
	for _, a := range st.assets.OfKind(KindHTML) {
		out, err := renderer.Rewrite(a.Data, edit)
		if err != nil {
			return lerrors.NewBundleError("HTML_REWRITE", "failed to rewrite page").
				WithCause(err).
				WithLocation(a.Name, 0)
		}
		st.assets.Replace(a.Name, out)
	}
	return nil
}
