package postgres

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_Decide(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(nil, time.Hour)
	s.now = func() time.Time { return now }

	existing := func(status IdempotencyStatus, age time.Duration) acquireRow {
		return acquireRow{IdempotencyRecord: IdempotencyRecord{
			UserID: "u-1", Operation: "POST /receipts", RequestHash: "h1",
			Status: status, UpdatedAt: now.Add(-age),
		}}
	}

	tests := []struct {
		name string
		row  acquireRow
		hash string
		want acquireOutcome
	}{
		{"fresh insert", acquireRow{Inserted: true}, "h1", outcomeAcquired},
		{"completed", existing(IdempotencyStatusSuccess, time.Hour), "h1", outcomeReplay},
		{"failed is replayed too", existing(IdempotencyStatusFailed, 0), "h1", outcomeReplay},
		{"pending in flight", existing(IdempotencyStatusPending, time.Second), "h1", outcomeInFlight},
		{"pending abandoned", existing(IdempotencyStatusPending, 2*time.Minute), "h1", outcomeStale},
		{"different body", existing(IdempotencyStatusSuccess, 0), "h2", outcomeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.decide(tt.row, "u-1", "POST /receipts", tt.hash))
		})
	}
}

func TestIdempotencyStore_DecideOtherUser(t *testing.T) {
	s := NewIdempotencyStore(nil, time.Hour)
	row := acquireRow{IdempotencyRecord: IdempotencyRecord{UserID: "u-1", Operation: "op", RequestHash: "h"}}
	assert.Equal(t, outcomeMismatch, s.decide(row, "u-2", "op", "h"))
}

func TestReplayOf_Defaults(t *testing.T) {
	r := replayOf(IdempotencyRecord{Response: []byte(`{}`)})
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)

	r = replayOf(IdempotencyRecord{StatusCode: http.StatusCreated, ContentType: "application/problem+json"})
	assert.Equal(t, http.StatusCreated, r.StatusCode)
	assert.Equal(t, "application/problem+json", r.ContentType)
}

func TestEncodeResponse(t *testing.T) {
	b, err := encodeResponse(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = encodeResponse(json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, string(b))

	b, err = encodeResponse(map[string]string{"number": "PV-2024-000003"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":"PV-2024-000003"}`, string(b))

	_, err = encodeResponse(make(chan int))
	assert.Error(t, err)
}
