package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/pipeline"
)

// AssetInfo describes one written file.
type AssetInfo struct {
	Name  string    `json:"name"`
	Size  int64     `json:"size"`
	Kind  AssetKind `json:"kind"`
	Entry string    `json:"entry,omitempty"`
}

// Report summarizes a finished build.
type Report struct {
	Mode        pipeline.Mode        `json:"mode"`
	Hash        string               `json:"hash"`
	OutputPath  string               `json:"output_path"`
	Assets      []AssetInfo          `json:"assets"`
	Entrypoints []Entrypoint         `json:"entrypoints"`
	Diagnostics []lerrors.Diagnostic `json:"diagnostics"`
	Duration    time.Duration        `json:"duration"`
	BuiltAt     time.Time            `json:"built_at"`
}

// Warnings returns the warning diagnostics.
func (r *Report) Warnings() []lerrors.Diagnostic {
	var out []lerrors.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == lerrors.SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Asset returns the info of the asset called name.
func (r *Report) Asset(name string) (AssetInfo, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return AssetInfo{}, false
}

// Script returns the bundle file of entry.
func (r *Report) Script(entry string) (string, bool) {
	for _, a := range r.Assets {
		if a.Entry == entry && a.Kind == KindScript {
			return a.Name, true
		}
	}
	return "", false
}

func newReport(st *state) *Report {
	all := st.assets.All()
	assets := make([]AssetInfo, 0, len(all))
	for _, a := range all {
		assets = append(assets, AssetInfo{Name: a.Name, Size: a.Size(), Kind: a.Kind, Entry: a.Entry})
	}
	return &Report{
		Mode:        st.cfg.Mode,
		Hash:        buildHash(st),
		OutputPath:  st.outDir,
		Assets:      assets,
		Entrypoints: entrypoints(st),
		Diagnostics: st.diags.Diagnostics(),
		BuiltAt:     time.Now(),
	}
}

// WriteStats writes report as stats.json into outDir.
func WriteStats(outDir string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return lerrors.NewBundleError("STATS_ENCODE", "failed to encode stats").WithCause(err)
	}
	file := filepath.Join(outDir, pipeline.StatsFile)
	if err := os.WriteFile(file, data, 0644); err != nil {
		return lerrors.NewIOError("STATS_WRITE", file, err)
	}
	return nil
}
