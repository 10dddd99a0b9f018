package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/database"
)

// GraphChecker verifies connectivity to the graph projection store
type GraphChecker interface {
	VerifyConnectivity(ctx context.Context) error
}

// ConsumerChecker reports whether the Kafka consumer loop is running
type ConsumerChecker interface {
	Health() bool
}

// HealthHandler handles health and readiness endpoints
type HealthHandler struct {
	db        database.DB
	graph     GraphChecker
	consumer  ConsumerChecker
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewHealthHandler creates a new health handler. graph and consumer may be
// nil when those subsystems are disabled.
func NewHealthHandler(db database.DB, graph GraphChecker, consumer ConsumerChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		graph:     graph,
		consumer:  consumer,
		version:   version,
		startTime: time.Now(),
	}
}

// SetReady sets the readiness state
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Register registers health endpoints
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health returns the overall health status
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	status := &HealthStatus{
		Status:     "healthy",
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	if h.db != nil {
		start := time.Now()
		err := h.db.PingContext(ctx)
		latency := time.Since(start)

		if err != nil {
			status.Status = "unhealthy"
			status.Checks["database"] = &CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks["database"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	} else {
		status.Status = "unhealthy"
		status.Checks["database"] = &CheckResult{
			Status:  "unhealthy",
			Message: "database not configured",
		}
	}

	if h.graph != nil {
		start := time.Now()
		err := h.graph.VerifyConnectivity(ctx)
		latency := time.Since(start)

		if err != nil {
			status.Status = "unhealthy"
			status.Checks["graph"] = &CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks["graph"] = &CheckResult{
				Status:  "healthy",
				Latency: latency.String(),
			}
		}
	}

	if h.consumer != nil {
		if h.consumer.Health() {
			status.Checks["consumer"] = &CheckResult{Status: "healthy"}
		} else {
			status.Status = "unhealthy"
			status.Checks["consumer"] = &CheckResult{
				Status:  "unhealthy",
				Message: "consumer loop is not running",
			}
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, status)
}

// Ready returns whether the service has finished starting up
func (h *HealthHandler) Ready(c echo.Context) error {
	if !h.ready.Load() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
