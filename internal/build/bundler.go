package build

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

const (
	nsInlineAsset = "landing-inline-asset"
	nsAssetURL    = "landing-asset-url"

	// assetMarker prefixes emitted asset URLs inside style sheets and
	// scripts until the final location of the file is known.
	assetMarker = "/__landing_asset__/"
)

// assetURLModule resolves an emitted asset against the URL of the script
// that imports it, so the reference holds for pages at any depth.
const assetURLModule = `var script = document.currentScript || [].slice.call(document.getElementsByTagName("script")).pop();
export default new URL(%s, script ? script.src : document.baseURI).href;
`

// browserEngines drive CSS prefixing and script syntax lowering.
var browserEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "58"},
	{Name: api.EngineEdge, Version: "16"},
	{Name: api.EngineFirefox, Version: "57"},
	{Name: api.EngineSafari, Version: "11"},
}

// bundle runs esbuild over every entry. Script bundles are emitted under
// their entry name, style sheets pulled in by an entry are extracted to the
// CSSExtract filename.
func (r *Runner) bundle(ctx context.Context, st *state) error {
	cfg := st.cfg
	if len(cfg.Entry) == 0 {
		st.logger.Info(ctx, "No script entries to bundle")
		return nil
	}

	workDir, err := filepath.Abs(cfg.Context)
	if err != nil {
		return lerrors.NewIOError("CONTEXT_PATH", cfg.Context, err)
	}

	entries := make([]api.EntryPoint, 0, len(cfg.Entry))
	for _, name := range cfg.EntryNames() {
		input, err := filepath.Abs(cfg.Entry[name])
		if err != nil {
			return lerrors.NewIOError("ENTRY_PATH", cfg.Entry[name], err)
		}
		entries = append(entries, api.EntryPoint{InputPath: input, OutputPath: name})
	}

	target, engines := lowering(cfg)
	sourcemap := api.SourceMapNone
	if cfg.Devtool == pipeline.DevtoolInline {
		sourcemap = api.SourceMapInline
	}

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       workDir,
		Outdir:              st.outDir,
		Bundle:              true,
		Write:               false,
		Format:              api.FormatIIFE,
		Platform:            api.PlatformBrowser,
		Target:              target,
		Engines:             engines,
		Sourcemap:           sourcemap,
		LogLevel:            api.LogLevelSilent,
		Plugins: []api.Plugin{
			r.assetPlugin(st),
			r.sassPlugin(st),
		},
	})

	for _, msg := range result.Warnings {
		st.diags.Add(lerrors.Diagnostic{
			File:     messageFile(msg),
			Message:  msg.Text,
			Severity: lerrors.SeverityWarning,
		})
	}
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			st.logger.Error(ctx, nil, "Bundle error", "file", messageFile(msg), "error", msg.Text)
		}
		first := result.Errors[0]
		return lerrors.NewBundleError("BUNDLE_FAILED",
			fmt.Sprintf("bundling failed with %d error(s): %s", len(result.Errors), first.Text)).
			WithLocation(messageFile(first), messageLine(first))
	}

	cssTemplate := pipeline.StyleFilename
	if extract, ok := pipeline.FindPlugin[*pipeline.CSSExtract](cfg); ok {
		cssTemplate = extract.Filename
	}

	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(st.outDir, f.Path)
		if err != nil {
			return lerrors.NewIOError("OUTPUT_PATH", f.Path, err)
		}
		rel = filepath.ToSlash(rel)
		ext := path.Ext(rel)
		name := strings.TrimSuffix(rel, ext)
		_, isEntry := cfg.Entry[name]

		switch {
		case ext == ".js" && isEntry:
			final := ExpandFilename(cfg.Output.Filename, name, ext, "")
			data := resolveAssetMarkers(final, f.Contents)
			st.assets.Emit(&Asset{Name: rel, Data: data, Kind: KindScript, Entry: name})
			st.scripts[name] = rel
		case ext == ".css" && isEntry:
			target := ExpandFilename(cssTemplate, name, ext, r.hashes.ContentHash(rel, f.Contents))
			data := resolveAssetMarkers(target, f.Contents)
			st.assets.Emit(&Asset{Name: target, Data: data, Kind: KindStyle, Entry: name})
			st.styles[name] = target
		default:
			st.assets.Emit(&Asset{Name: rel, Data: f.Contents, Kind: kindOf(rel)})
		}
	}
	return nil
}

// resolveAssetMarkers rewrites emitted asset URLs relative to file, the
// output path of the sheet or script holding them. Only the directory of
// file matters.
func resolveAssetMarkers(file string, data []byte) []byte {
	prefix := strings.Repeat("../", strings.Count(file, "/"))
	return []byte(strings.ReplaceAll(string(data), assetMarker, prefix))
}

// lowering returns the script target and browser engines of cfg. Engines
// lower scripts and prefix style sheets alike, so they apply when either
// the script chain downlevels or the style chain autoprefixes.
func lowering(cfg *pipeline.Configuration) (api.Target, []api.Engine) {
	target := api.ESNext
	var engines []api.Engine
	if rule, ok := cfg.RuleFor(pipeline.RuleScript); ok && rule.Uses("downlevel") {
		target = scriptTarget(rule.ScriptTarget)
		engines = browserEngines
	}
	if rule, ok := cfg.RuleFor(pipeline.RuleStyle); ok && rule.Uses("autoprefix") {
		engines = browserEngines
	}
	return target, engines
}

func scriptTarget(level string) api.Target {
	switch strings.ToLower(level) {
	case "es5":
		return api.ES5
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "esnext":
		return api.ESNext
	default:
		return api.ES2015
	}
}

// assetPlugin implements the size-conditional asset rules. Files below the
// rule's limit become data URIs; the rest are emitted under the rule's
// filename template and referenced by URL.
func (r *Runner) assetPlugin(st *state) api.Plugin {
	rules := st.cfg.AssetRules()
	return api.Plugin{
		Name: "landing-assets",
		Setup: func(b api.PluginBuild) {
			if len(rules) == 0 {
				return
			}
			b.OnResolve(api.OnResolveOptions{Filter: ruleFilter(rules)}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				p := stripQuery(args.Path)
				if isExternalURL(p) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}
				abs := p
				if !filepath.IsAbs(abs) {
					abs = filepath.Join(args.ResolveDir, filepath.FromSlash(p))
				}

				var rule pipeline.Rule
				matched := false
				for _, candidate := range rules {
					if candidate.Matches(abs) {
						rule, matched = candidate, true
						break
					}
				}
				if !matched {
					return api.OnResolveResult{}, nil
				}

				info, err := os.Stat(abs)
				if err != nil {
					return api.OnResolveResult{}, err
				}
				if rule.ShouldInline(info.Size()) {
					return api.OnResolveResult{Path: abs, Namespace: nsInlineAsset}, nil
				}

				name, err := r.emitAsset(st, rule, abs)
				if err != nil {
					return api.OnResolveResult{}, err
				}
				if args.Kind == api.ResolveCSSURLToken {
					return api.OnResolveResult{Path: assetMarker + name, External: true}, nil
				}
				return api.OnResolveResult{Path: name, Namespace: nsAssetURL}, nil
			})

			b.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: nsInlineAsset}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := string(data)
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderDataURL}, nil
			})

			b.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: nsAssetURL}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents := fmt.Sprintf(assetURLModule, strconv.Quote(assetMarker+args.Path))
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}

// emitAsset adds the file at abs to the output under rule's name template
// and returns the emitted name.
func (r *Runner) emitAsset(st *state, rule pipeline.Rule, abs string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	base, ext := splitName(abs)
	name := ExpandFilename(rule.Filename, base, ext, r.hashes.ContentHash(abs, data))
	st.assets.EmitOnce(&Asset{Name: name, Data: data, Kind: kindOf(name), Source: abs})
	return name, nil
}

func ruleFilter(rules []pipeline.Rule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, "(?:"+r.Test.String()+")")
	}
	// esbuild matches the filter against the import path, which may carry
	// a query or fragment.
	return "(?:" + strings.Join(parts, "|") + ")|[?#]"
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

func isExternalURL(p string) bool {
	return p == "" ||
		strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !fileExists(p) ||
		strings.HasPrefix(p, "//") ||
		strings.Contains(p, "://") ||
		strings.HasPrefix(p, "data:")
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func messageFile(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return msg.Location.File
}

func messageLine(msg api.Message) int {
	if msg.Location == nil {
		return 0
	}
	return msg.Location.Line
}
