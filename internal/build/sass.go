package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
	"github.com/conneroisu/landing/internal/pipeline"
)

const sassTimeout = 30 * time.Second

func startSass(binary string, logger logging.Logger) (*godartsass.Transpiler, error) {
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: binary,
		Timeout:                  sassTimeout,
		LogEventHandler: func(e godartsass.LogEvent) {
			logger.Debug(context.Background(), "Sass", "message", e.Message)
		},
	})
	if err != nil {
		return nil, lerrors.NewConfigError("SASS_START", "failed to start Dart Sass from "+binary, err)
	}
	return t, nil
}

// sassPlugin compiles .scss and .sass files to CSS before esbuild bundles
// them. Those files fail the build when no style rule handles them with a
// "sass" step or no compiler is configured.
func (r *Runner) sassPlugin(st *state) api.Plugin {
	return api.Plugin{
		Name: "landing-sass",
		Setup: func(b api.PluginBuild) {
			b.OnLoad(api.OnLoadOptions{Filter: `\.s[ac]ss$`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if rule, ok := st.cfg.MatchRule(args.Path); !ok || rule.Kind != pipeline.RuleStyle || !rule.Uses("sass") {
					return api.OnLoadResult{}, lerrors.NewBundleError("SASS_DISABLED",
						"no style rule compiles Sass").WithLocation(args.Path, 0)
				}
				if r.sass == nil {
					return api.OnLoadResult{}, lerrors.NewBundleError("SASS_UNAVAILABLE",
						"no Dart Sass binary configured (build.sass_binary)").WithLocation(args.Path, 0)
				}
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				syntax := godartsass.SourceSyntaxSCSS
				if strings.EqualFold(filepath.Ext(args.Path), ".sass") {
					syntax = godartsass.SourceSyntaxSASS
				}
				dir := filepath.Dir(args.Path)
				res, err := r.sass.Execute(godartsass.Args{
					Source:       string(src),
					URL:          "file://" + filepath.ToSlash(args.Path),
					SourceSyntax: syntax,
					OutputStyle:  godartsass.OutputStyleExpanded,
					IncludePaths: []string{dir},
				})
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return api.OnLoadResult{
					Contents:   &res.CSS,
					ResolveDir: dir,
					Loader:     api.LoaderCSS,
				}, nil
			})
		},
	}
}
