// Package health provides health check functionality for API components.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs health checks for the service.
type Checker struct {
	pinger    Pinger
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewChecker creates a new health checker.
func NewChecker(pinger Pinger, version string) *Checker {
	return &Checker{
		pinger:    pinger,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	components := map[string]ComponentStatus{
		"database": c.checkDatabase(checkCtx),
	}

	overall := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
	}

	return &Response{
		Status:     overall,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies database connectivity.
func (c *Checker) checkDatabase(ctx context.Context) ComponentStatus {
	if c.pinger == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "database connection not configured",
		}
	}

	if err := c.pinger.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "database ping failed: " + err.Error(),
		}
	}

	return ComponentStatus{Status: StatusHealthy}
}

// Handler returns an http.HandlerFunc serving the health check.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Check(r.Context())

		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
