// Package errors provides the structured error types used across the build
// and a collector for per-file diagnostics that do not abort a build.
package errors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Severity represents the severity of a diagnostic
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets diagnostics serialize with readable severities.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic is a problem reported during a build that did not stop it.
type Diagnostic struct {
	Page      string    `json:"page,omitempty"`
	File      string    `json:"file,omitempty"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// String formats the diagnostic the way it is printed to the operator.
func (d Diagnostic) String() string {
	loc := d.File
	if loc == "" {
		loc = d.Page
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Severity, d.Message)
}

// ErrorCollector collects diagnostics from concurrent build stages.
type ErrorCollector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add records a diagnostic.
func (ec *ErrorCollector) Add(d Diagnostic) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	ec.diagnostics = append(ec.diagnostics, d)
}

// AddError records err as a diagnostic at the given severity. Page and file are
// taken from err when it is a LandingError.
func (ec *ErrorCollector) AddError(err error, severity Severity) {
	if err == nil {
		return
	}
	d := Diagnostic{Message: err.Error(), Severity: severity}
	if le, ok := asLandingError(err); ok {
		d.Page = le.Page
		d.File = le.FilePath
	}
	ec.Add(d)
}

// Diagnostics returns a copy of everything collected, ordered by page then file.
func (ec *ErrorCollector) Diagnostics() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Page != result[j].Page {
			return result[i].Page < result[j].Page
		}
		return result[i].File < result[j].File
	})
	return result
}

// Count returns the number of diagnostics at the given severity.
func (ec *ErrorCollector) Count(severity Severity) int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	n := 0
	for _, d := range ec.diagnostics {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// HasErrors returns true if any error-severity diagnostic was recorded
func (ec *ErrorCollector) HasErrors() bool {
	return ec.Count(SeverityError) > 0
}

// ForPage returns diagnostics for a specific page
func (ec *ErrorCollector) ForPage(page string) []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var out []Diagnostic
	for _, d := range ec.diagnostics {
		if d.Page == page {
			out = append(out, d)
		}
	}
	return out
}

// Clear clears all diagnostics
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = ec.diagnostics[:0]
}
