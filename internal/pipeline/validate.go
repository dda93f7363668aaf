package pipeline

import (
	"fmt"
	"strings"

	lerrors "github.com/conneroisu/landing/internal/errors"
)

// Validate checks the structural invariants a runner relies on.
func Validate(c *Configuration) error {
	if c.Output.Path == "" {
		return invalid("OUTPUT_PATH", "output path is required")
	}
	if !strings.Contains(c.Output.Filename, "[name]") {
		return invalid("OUTPUT_FILENAME", "output filename must contain [name]").
			WithContext("filename", c.Output.Filename)
	}

	switch c.Performance.Hints {
	case HintsWarning, HintsError, HintsOff:
	default:
		return invalid("HINTS", fmt.Sprintf("unknown performance hints %q", c.Performance.Hints))
	}

	seen := make(map[AssetCategory]string)
	for _, m := range c.Optimization.Minimizers {
		if prev, ok := seen[m.Category()]; ok {
			return invalid("DUPLICATE_MINIMIZER",
				fmt.Sprintf("%s and %s both minimize %s assets", prev, m.Name(), m.Category()))
		}
		seen[m.Category()] = m.Name()
	}

	_, hasStyle := c.RuleFor(RuleStyle)
	extractors := 0
	filenames := make(map[string]string)
	lastPage, firstRewrite := -1, -1
	for i, p := range c.Plugins {
		switch p := p.(type) {
		case *CSSExtract:
			extractors++
		case *HTMLPage:
			if prev, ok := filenames[p.Filename]; ok {
				return invalid("DUPLICATE_PAGE",
					fmt.Sprintf("pages %q and %q both emit %s", prev, p.Page, p.Filename))
			}
			filenames[p.Filename] = p.Page
			lastPage = i
		}
		if p.Stage() == StageHTMLRewrite && firstRewrite < 0 {
			firstRewrite = i
		}
	}
	if hasStyle && extractors != 1 {
		return invalid("STYLE_EXTRACT", fmt.Sprintf("style rule needs exactly one extraction plugin, found %d", extractors))
	}
	if firstRewrite >= 0 && firstRewrite < lastPage {
		return invalid("PLUGIN_ORDER", "HTML rewrite plugins must follow every HTML page")
	}
	return nil
}

func invalid(code, msg string) *lerrors.LandingError {
	return lerrors.NewValidationError(code, msg)
}
