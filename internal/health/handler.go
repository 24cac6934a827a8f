// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency pairs a checker with the name it reports under.
type Dependency struct {
	Name    string
	Checker Checker
}

type Handler struct {
	deps     []Dependency
	version  string
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(version string, deps ...Dependency) *Handler {
	h := &Handler{
		deps:    deps,
		version: version,
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	}

	h.writeStatus(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: h.version,
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	}

	if !h.ready.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "not_ready",
			Version: h.version,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runChecks(ctx)

	status := "ok"
	statusCode := http.StatusOK
	for _, check := range checks {
		if !check.Healthy {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	h.writeStatus(w, statusCode, ReadinessResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}

func (h *Handler) runChecks(ctx context.Context) []DependencyCheck {
	var wg sync.WaitGroup
	checks := make([]DependencyCheck, len(h.deps))

	for i, dep := range h.deps {
		wg.Add(1)
		go func(i int, dep Dependency) {
			defer wg.Done()
			checks[i] = runCheck(ctx, dep)
		}(i, dep)
	}

	wg.Wait()
	return checks
}

func runCheck(ctx context.Context, dep Dependency) DependencyCheck {
	check := DependencyCheck{
		Name:    dep.Name,
		Healthy: true,
	}

	if dep.Checker == nil {
		check.Healthy = false
		check.Message = "checker not configured"
		return check
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}

	return check
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReadinessResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  []DependencyCheck `json:"checks"`
}

type DependencyCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
