package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	healthy = pingFunc(func(context.Context) error { return nil })
	down    = pingFunc(func(context.Context) error { return errors.New("refused") })
)

func ready(h *HealthHandler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ready", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	return w
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		storage  Pinger
		database Pinger
		code     int
		status   string
	}{
		{"all healthy", healthy, healthy, http.StatusOK, `"status":"ok"`},
		{"storage down", down, healthy, http.StatusOK, `"status":"degraded"`},
		{"database down", healthy, down, http.StatusServiceUnavailable, `"status":"error"`},
		{"no storage configured", nil, healthy, http.StatusOK, `"status":"ok"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("v1",
				HealthCheck{Name: "database", Pinger: tt.database, Critical: true},
				HealthCheck{Name: "storage", Pinger: tt.storage},
			)
			w := ready(h)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.status)
		})
	}
}

func TestReady_ChecksShareDeadline(t *testing.T) {
	var hasDeadline bool
	h := NewHealthHandler("v1", HealthCheck{Name: "database", Critical: true, Pinger: pingFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})})

	w := ready(h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hasDeadline)
}
