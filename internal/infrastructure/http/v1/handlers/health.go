// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck is one dependency probed by /health/ready. A failing
// non-critical check reports "degraded" without taking the instance out of
// rotation.
type HealthCheck struct {
	Name     string
	Pinger   Pinger
	Critical bool
}

const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  []HealthCheck
}

// NewHealthHandler creates a health handler. Checks with a nil Pinger are skipped.
func NewHealthHandler(version string, checks ...HealthCheck) *HealthHandler {
	h := &HealthHandler{version: version}
	for _, c := range checks {
		if c.Pinger != nil {
			h.checks = append(h.checks, c)
		}
	}
	return h
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /health/ready. Checks run in parallel under one deadline.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	errs := make([]error, len(h.checks))
	var wg sync.WaitGroup
	for i, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = check.Pinger.Ping(ctx)
		}()
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for i, check := range h.checks {
		if errs[i] == nil {
			results[check.Name] = "healthy"
			continue
		}
		results[check.Name] = "unhealthy: " + errs[i].Error()
		if check.Critical {
			status, code = "error", http.StatusServiceUnavailable
		} else if status == "ok" {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}
