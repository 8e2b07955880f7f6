package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashdesk/internal/core/apperror"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"empty", "  ", time.Time{}},
		{"plain date", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"utc timestamp", "2024-03-01T10:15:00Z", time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)},
		{"offset crossing new year", "2024-12-31T23:30:00-05:00", time.Date(2025, 1, 1, 4, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("date", tt.value)

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			if !got.IsZero() {
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("dateFrom", "01/03/2024")

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "dateFrom", appErr.Details["field"])
}
