// Package healthz provides and API enabling the support of service health
// checks. This is typically used when running in Kubernetes environment to
// manage and signal health status.
package healthz

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe checks a single dependency of the service.
type Probe func(context.Context) error

// Option configures an HTTP instance.
type Option func(*HTTP)

// WithProbe adds a named Probe that must succeed for the HTTP instance to
// report healthy.
func WithProbe(name string, probe Probe) Option {
	return func(h *HTTP) {
		h.probes[name] = probe
	}
}

// WithTimeout bounds the time every probe may take.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// NewHTTP creates an HTTP instance.
func NewHTTP(options ...Option) *HTTP {
	h := &HTTP{
		mutex:   new(sync.RWMutex),
		healthy: false,
		probes:  make(map[string]Probe),
		timeout: 2 * time.Second,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// HTTP provides an HTTP handler to correctly handle HTTP-based health checks.
type HTTP struct {
	mutex *sync.RWMutex
	// healthy indicates if the HTTP health check should report healthy to
	// clients.
	healthy bool

	probes  map[string]Probe
	timeout time.Duration
}

// Report is the body written by ServeHTTP.
type Report struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}

// Check runs every probe concurrently and reports the results. The report is
// unhealthy if the HTTP instance is sick or any probe fails.
func (h *HTTP) Check(ctx context.Context) Report {
	report := Report{Healthy: h.IsHealthy()}
	if len(h.probes) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = probe(ctx)
		}(i, h.probes[name])
	}
	wg.Wait()

	report.Checks = make(map[string]string, len(names))
	for i, name := range names {
		if results[i] != nil {
			report.Healthy = false
			report.Checks[name] = results[i].Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}

// IsHealthy indicates if the HTTP instance is indicating it is healthy during
// health checks. See Healthy() and Sick() to mutate the health of the HTTP
// instance.
func (h *HTTP) IsHealthy() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.healthy
}

// Healthy mutates the HTTP instance to communicate a status of "healthy" during
// health checks.
func (h *HTTP) Healthy() {
	h.mutex.Lock()
	h.healthy = true
	h.mutex.Unlock()
}

// Sick mutates the HTTP instance to communicate a status of "sick" during
// health checks.
func (h *HTTP) Sick() {
	h.mutex.Lock()
	h.healthy = false
	h.mutex.Unlock()
}
