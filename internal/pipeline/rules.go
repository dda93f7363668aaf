package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// RuleKind identifies how files matched by a rule are transformed.
type RuleKind int

const (
	// RuleHTML preprocesses page templates (partial inclusion).
	RuleHTML RuleKind = iota
	// RuleStyle compiles style sheets and hands them to the extraction plugin.
	RuleStyle
	// RuleScript downlevels scripts to the configured language target.
	RuleScript
	// RuleAsset inlines small files as data URIs and emits the rest.
	RuleAsset
)

func (k RuleKind) String() string {
	switch k {
	case RuleHTML:
		return "html"
	case RuleStyle:
		return "style"
	case RuleScript:
		return "script"
	case RuleAsset:
		return "asset"
	default:
		return fmt.Sprintf("RuleKind(%d)", int(k))
	}
}

// Rule is one per-extension transformation.
type Rule struct {
	Kind RuleKind
	Test *regexp.Regexp
	// Exclude removes paths from Matches. Script lowering applies to a
	// whole bundle at one target, so dependencies under an excluded path
	// are still lowered along with the code that imports them.
	Exclude *regexp.Regexp
	// Use names the transformation chain, first applied last. The bundler
	// honours "downlevel" on script rules and "autoprefix" and "sass" on
	// style rules.
	Use []string

	// IncludeRoot is the partial root of an HTML rule.
	IncludeRoot string

	// ScriptTarget is the language level of a script rule, e.g. "es2015".
	ScriptTarget string

	// InlineLimit is the byte threshold of an asset rule: smaller files are
	// inlined, files at or above it are emitted under Filename.
	InlineLimit int64
	// Filename is the asset name template, e.g. "images/design/[name].[hash:6][ext]".
	Filename string
}

// Matches reports whether path is handled by r.
func (r Rule) Matches(path string) bool {
	if r.Test == nil {
		return false
	}
	slashed := filepath.ToSlash(path)
	if r.Exclude != nil && r.Exclude.MatchString(slashed) {
		return false
	}
	return r.Test.MatchString(slashed)
}

// Uses reports whether step is part of r's transformation chain.
func (r Rule) Uses(step string) bool {
	for _, u := range r.Use {
		if u == step {
			return true
		}
	}
	return false
}

// ShouldInline reports whether an asset of size bytes is inlined by r.
func (r Rule) ShouldInline(size int64) bool {
	return r.Kind == RuleAsset && size < r.InlineLimit
}

var (
	htmlTest   = regexp.MustCompile(`\.html$`)
	styleTest  = regexp.MustCompile(`(?i)\.((c|sa|sc)ss)$`)
	scriptTest = regexp.MustCompile(`\.js$`)
	imageTest  = regexp.MustCompile(`(?i)\.(png|gif|jpe?g|svg)$`)
	fontTest   = regexp.MustCompile(`\.(eot|ttf|woff|woff2)$`)

	dependencyZone = regexp.MustCompile(`node_modules`)
)

// AssetFilename is the name template of emitted design assets.
const AssetFilename = "images/design/[name].[hash:6][ext]"

func htmlRule(includeRoot string) Rule {
	return Rule{
		Kind:        RuleHTML,
		Test:        htmlTest,
		Use:         []string{"html"},
		IncludeRoot: includeRoot,
	}
}

func styleRule() Rule {
	return Rule{
		Kind: RuleStyle,
		Test: styleTest,
		Use:  []string{"extract", "css", "autoprefix", "sass"},
	}
}

func scriptRule() Rule {
	return Rule{
		Kind:         RuleScript,
		Test:         scriptTest,
		Exclude:      dependencyZone,
		Use:          []string{"downlevel"},
		ScriptTarget: "es2015",
	}
}

func assetRule(test *regexp.Regexp, limit int64) Rule {
	return Rule{
		Kind:        RuleAsset,
		Test:        test,
		InlineLimit: limit,
		Filename:    AssetFilename,
	}
}
