package build

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// checkBudgets compares asset and entrypoint sizes with the performance
// budgets. Under the "error" policy an overrun fails the build; under
// "warning" it is reported as a diagnostic.
func (r *Runner) checkBudgets(ctx context.Context, st *state) error {
	perf := st.cfg.Performance
	if perf.Hints == pipeline.HintsOff || perf.Hints == "" {
		return nil
	}

	var violations []*lerrors.LandingError
	if perf.MaxAssetSize > 0 {
		for _, a := range st.assets.All() {
			if strings.HasSuffix(a.Name, ".map") || a.Name == pipeline.StatsFile {
				continue
			}
			if a.Size() > perf.MaxAssetSize {
				violations = append(violations, lerrors.NewBudgetError("ASSET_SIZE_LIMIT",
					fmt.Sprintf("asset size %s exceeds the recommended limit %s", kib(a.Size()), kib(perf.MaxAssetSize))).
					WithLocation(a.Name, 0))
			}
		}
	}

	if perf.MaxEntrypointSize > 0 {
		for _, ep := range entrypoints(st) {
			if ep.Size > perf.MaxEntrypointSize {
				violations = append(violations, lerrors.NewBudgetError("ENTRYPOINT_SIZE_LIMIT",
					fmt.Sprintf("entrypoint size %s exceeds the recommended limit %s", kib(ep.Size), kib(perf.MaxEntrypointSize))).
					WithPage(ep.Name))
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	severity := lerrors.SeverityWarning
	if perf.Hints == pipeline.HintsError {
		severity = lerrors.SeverityError
	}
	for _, v := range violations {
		st.diags.AddError(v, severity)
		st.logger.Warn(ctx, v, "Performance budget exceeded")
	}
	if perf.Hints == pipeline.HintsError {
		first := violations[0]
		first.Recoverable = false
		return first
	}
	return nil
}

// Entrypoint lists the files a page loads.
type Entrypoint struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
	Size  int64    `json:"size"`
}

func entrypoints(st *state) []Entrypoint {
	names := make([]string, 0, len(st.cfg.Entry))
	for name := range st.cfg.Entry {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Entrypoint, 0, len(names))
	for _, name := range names {
		ep := Entrypoint{Name: name}
		for _, file := range []string{st.scripts[name], st.styles[name]} {
			if file == "" {
				continue
			}
			if a, ok := st.assets.Get(file); ok {
				ep.Files = append(ep.Files, file)
				ep.Size += a.Size()
			}
		}
		out = append(out, ep)
	}
	return out
}

func kib(n int64) string {
	return fmt.Sprintf("%.3g KiB", float64(n)/1024)
}
