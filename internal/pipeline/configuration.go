// Package pipeline composes the declarative build configuration of a landing
// site: the entry map, output naming, per-extension transformation rules,
// the ordered plugin list and the optimization and performance settings.
//
// A Configuration is data. It is assembled once by Compose, optionally
// layered with a profile (Production, Development) through a structural
// merge, checked by Validate and handed to the build runner. Nothing in this
// package touches the output tree.
package pipeline

import (
	"maps"
	"slices"
)

// Mode is the build mode tag.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Devtool selects source map generation.
type Devtool string

const (
	DevtoolInline Devtool = "inline-source-map"
	DevtoolNone   Devtool = "none"
)

// Target is the runtime environment the bundles are built for.
type Target string

const TargetWeb Target = "web"

// Hints is the policy applied when a size budget is exceeded.
type Hints string

const (
	HintsWarning Hints = "warning"
	HintsError   Hints = "error"
	HintsOff     Hints = "false"
)

// Configuration is the complete, declarative description of one build.
type Configuration struct {
	Mode    Mode
	Target  Target
	Devtool Devtool
	// Context is the source root every relative path was resolved against.
	Context string
	// Entry maps page names to script entry paths.
	Entry        map[string]string
	Output       Output
	Module       Module
	Plugins      []Plugin
	Optimization Optimization
	Performance  Performance
}

// Output describes where and how script bundles are written.
type Output struct {
	Path string
	// Filename is the bundle name template, e.g. "js/[name].[contenthash].js".
	Filename string
}

// Module holds the ordered transformation rules.
type Module struct {
	Rules []Rule
}

// Optimization controls the minimization stage.
type Optimization struct {
	Minimize   bool
	Minimizers []Minimizer
}

// Performance holds the size budgets. A zero budget disables its check.
type Performance struct {
	MaxEntrypointSize int64
	MaxAssetSize      int64
	Hints             Hints
}

// Clone returns a copy whose maps and slices can be changed without
// affecting c. Rule and plugin descriptors are shared; they are treated as
// immutable once composed.
func (c *Configuration) Clone() *Configuration {
	out := *c
	out.Entry = maps.Clone(c.Entry)
	out.Module.Rules = slices.Clone(c.Module.Rules)
	out.Plugins = slices.Clone(c.Plugins)
	out.Optimization.Minimizers = slices.Clone(c.Optimization.Minimizers)
	return &out
}

// RuleFor returns the first rule of the given kind.
func (c *Configuration) RuleFor(kind RuleKind) (Rule, bool) {
	for _, r := range c.Module.Rules {
		if r.Kind == kind {
			return r, true
		}
	}
	return Rule{}, false
}

// MatchRule returns the first rule whose test matches path.
func (c *Configuration) MatchRule(path string) (Rule, bool) {
	for _, r := range c.Module.Rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}

// AssetRules returns the size-conditional asset rules in order.
func (c *Configuration) AssetRules() []Rule {
	var out []Rule
	for _, r := range c.Module.Rules {
		if r.Kind == RuleAsset {
			out = append(out, r)
		}
	}
	return out
}

// HTMLPages returns every HTML emission directive in plugin order.
func (c *Configuration) HTMLPages() []*HTMLPage {
	var out []*HTMLPage
	for _, p := range c.Plugins {
		if page, ok := p.(*HTMLPage); ok {
			out = append(out, page)
		}
	}
	return out
}

// Minimizer returns the minimizer registered for category, if any.
func (c *Configuration) Minimizer(category AssetCategory) (Minimizer, bool) {
	if !c.Optimization.Minimize {
		return nil, false
	}
	for _, m := range c.Optimization.Minimizers {
		if m.Category() == category {
			return m, true
		}
	}
	return nil, false
}

// PluginsByStage returns the plugins stably ordered by execution stage.
// List order is kept within a stage.
func (c *Configuration) PluginsByStage() []Plugin {
	out := slices.Clone(c.Plugins)
	slices.SortStableFunc(out, func(a, b Plugin) int {
		return int(a.Stage()) - int(b.Stage())
	})
	return out
}

// FindPlugin returns the first plugin of type T.
func FindPlugin[T Plugin](c *Configuration) (T, bool) {
	for _, p := range c.Plugins {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
