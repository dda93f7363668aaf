package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.severity.String())
		})
	}
}

func TestLandingErrorFormatting(t *testing.T) {
	err := NewIncludeError("INCLUDE_NOT_FOUND", "partial not found").
		WithPage("home").
		WithLocation("src/pages/home/index.html", 12).
		WithCause(errors.New("open header.html: no such file"))

	assert.Equal(t,
		"[INCLUDE_NOT_FOUND] page:home src/pages/home/index.html:12 partial not found: open header.html: no such file",
		err.Error())
	assert.True(t, err.Recoverable)
}

func TestLandingErrorIs(t *testing.T) {
	sentinel := NewDiscoveryError("ANCHOR_NOT_FOUND", "anchor segment missing")
	wrapped := fmt.Errorf("resolving entries: %w",
		NewDiscoveryError("ANCHOR_NOT_FOUND", "anchor segment missing").WithLocation("pages/index.js", 0))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewDiscoveryError("OTHER", "other"))
	assert.NotErrorIs(t, wrapped, NewConfigError("ANCHOR_NOT_FOUND", "same code, other type", nil))
}

func TestLandingErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewIOError("WRITE_FAILED", "dist/index.html", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeIO, GetErrorType(fmt.Errorf("ctx: %w", err)))
	assert.Equal(t, ErrorTypeInternal, GetErrorType(cause))
	assert.False(t, IsRecoverable(err))
}

func TestWithContext(t *testing.T) {
	err := NewBudgetError("ASSET_TOO_LARGE", "asset exceeds budget").
		WithContext("size", 600000).
		WithContext("limit", 512000)

	assert.Equal(t, 600000, err.Context["size"])
	assert.Equal(t, 512000, err.Context["limit"])
	assert.True(t, IsRecoverable(err))
}

func TestErrorCollector(t *testing.T) {
	t.Run("empty collector", func(t *testing.T) {
		ec := NewErrorCollector()
		assert.False(t, ec.HasErrors())
		assert.Empty(t, ec.Diagnostics())
	})

	t.Run("add and order", func(t *testing.T) {
		ec := NewErrorCollector()
		ec.Add(Diagnostic{Page: "pricing", Message: "b", Severity: SeverityWarning})
		ec.Add(Diagnostic{Page: "about", Message: "a", Severity: SeverityError})
		ec.AddError(nil, SeverityError)

		diags := ec.Diagnostics()
		require.Len(t, diags, 2)
		assert.Equal(t, "about", diags[0].Page)
		assert.Equal(t, "pricing", diags[1].Page)
		assert.False(t, diags[0].Timestamp.IsZero())
		assert.True(t, ec.HasErrors())
		assert.Equal(t, 1, ec.Count(SeverityWarning))
	})

	t.Run("add error copies location", func(t *testing.T) {
		ec := NewErrorCollector()
		err := NewIncludeError("INCLUDE_NOT_FOUND", "missing").
			WithPage("home").
			WithLocation("src/pages/home/index.html", 0)
		ec.AddError(fmt.Errorf("wrapped: %w", err), SeverityWarning)

		diags := ec.ForPage("home")
		require.Len(t, diags, 1)
		assert.Equal(t, "src/pages/home/index.html", diags[0].File)
		assert.Equal(t, SeverityWarning, diags[0].Severity)
		assert.Contains(t, diags[0].String(), "warning")
	})

	t.Run("clear", func(t *testing.T) {
		ec := NewErrorCollector()
		ec.Add(Diagnostic{Message: "x", Severity: SeverityError})
		ec.Clear()
		assert.False(t, ec.HasErrors())
	})
}
