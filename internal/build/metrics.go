package build

import (
	"sync"
	"time"
)

// BuildMetrics accumulates build outcomes across rebuilds of one Runner.
type BuildMetrics struct {
	mutex sync.RWMutex

	builds    int64
	failures  int64
	total     time.Duration
	last      time.Duration
	lastError string

	stages map[string]time.Duration
	assets int
	bytes  int64
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	LastDuration     time.Duration
	AverageDuration  time.Duration
	LastError        string
	// Stages holds the duration of each stage in the last build.
	Stages        map[string]time.Duration
	AssetsWritten int
	BytesWritten  int64
}

func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{stages: make(map[string]time.Duration)}
}

// RecordBuild records the outcome of one Run.
func (bm *BuildMetrics) RecordBuild(duration time.Duration, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.builds++
	bm.total += duration
	bm.last = duration
	bm.lastError = ""
	if err != nil {
		bm.failures++
		bm.lastError = err.Error()
	}
}

// RecordStage records how long a stage of the current build took.
func (bm *BuildMetrics) RecordStage(name string, duration time.Duration) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.stages[name] = duration
}

// RecordOutput records the size of the tree written by the last build.
func (bm *BuildMetrics) RecordOutput(assets int, bytes int64) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.assets = assets
	bm.bytes = bytes
}

func (bm *BuildMetrics) Snapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	snap := MetricsSnapshot{
		TotalBuilds:      bm.builds,
		SuccessfulBuilds: bm.builds - bm.failures,
		FailedBuilds:     bm.failures,
		LastDuration:     bm.last,
		LastError:        bm.lastError,
		Stages:           make(map[string]time.Duration, len(bm.stages)),
		AssetsWritten:    bm.assets,
		BytesWritten:     bm.bytes,
	}
	if bm.builds > 0 {
		snap.AverageDuration = bm.total / time.Duration(bm.builds)
	}
	for name, d := range bm.stages {
		snap.Stages[name] = d
	}
	return snap
}

// SuccessRate returns the share of successful builds as a percentage.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0
	}
	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100
}
