package build

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"golang.org/x/sync/errgroup"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// minimize runs the registered minimizers over the bundled scripts and
// style sheets. Script bundles are independent and are minified
// concurrently when the minimizer allows it.
func (r *Runner) minimize(ctx context.Context, st *state) error {
	if !st.cfg.Optimization.Minimize {
		return nil
	}
	target, engines := lowering(st.cfg)

	if m, ok := st.cfg.Minimizer(pipeline.CategoryScript); ok {
		limit := 1
		if sm, ok := m.(pipeline.ScriptMinimizer); ok && sm.Parallel {
			limit = r.parallelism
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, a := range st.assets.OfKind(KindScript) {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := transform(a, api.LoaderJS, target, engines)
				if err != nil {
					return err
				}
				st.assets.Replace(a.Name, out)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if _, ok := st.cfg.Minimizer(pipeline.CategoryStyle); ok {
		for _, a := range st.assets.OfKind(KindStyle) {
			out, err := transform(a, api.LoaderCSS, target, engines)
			if err != nil {
				return err
			}
			st.assets.Replace(a.Name, out)
		}
	}
	return nil
}

func transform(a *Asset, loader api.Loader, target api.Target, engines []api.Engine) ([]byte, error) {
	result := api.Transform(string(a.Data), api.TransformOptions{
		Loader:            loader,
		Target:            target,
		Engines:           engines,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return nil, lerrors.NewBundleError("MINIFY_FAILED",
			fmt.Sprintf("failed to minify: %s", strings.Join(msgs, "; "))).WithLocation(a.Name, 0)
	}
	return result.Code, nil
}

// newMinifier returns the tdewolff minifier used for pages and SVG images.
func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	return m
}

// minimizePages collapses whitespace and comments in emitted pages when
// minimization is on.
func (r *Runner) minimizePages(ctx context.Context, st *state) error {
	if !st.cfg.Optimization.Minimize {
		return nil
	}
	m := newMinifier()
	for _, a := range st.assets.OfKind(KindHTML) {
		out, err := m.Bytes("text/html", a.Data)
		if err != nil {
			st.diags.Add(lerrors.Diagnostic{
				File:     a.Name,
				Message:  "page left unminified: " + err.Error(),
				Severity: lerrors.SeverityWarning,
			})
			continue
		}
		st.assets.Replace(a.Name, out)
	}
	return nil
}
