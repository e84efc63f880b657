package hub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gophpeek/mlxhub/internal/config"
)

// HealthProber polls a managed model's /health endpoint until it is ready,
// the process dies, or the deadline expires (spec §4.C).
type HealthProber struct {
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
}

// NewHealthProber builds a prober with the daemon-wide interval/timeout
// tunables (spec §6.4 DEFAULT_SIDECAR_HEALTH_INTERVAL/_TIMEOUT).
func NewHealthProber(interval, timeout time.Duration) *HealthProber {
	return &HealthProber{
		client:   &http.Client{Timeout: 2 * time.Second},
		interval: interval,
		timeout:  timeout,
	}
}

// probeHost resolves spec.Host to a dialable address: loopback replaces
// any wildcard bind address, since the prober runs on the same host.
func probeHost(host string) string {
	switch host {
	case "0.0.0.0", "::":
		return "127.0.0.1"
	default:
		return host
	}
}

// aliveFunc reports whether the launched child is still running. It is
// a best-effort liveness check used only for the deadline-expiry fallback.
type aliveFunc func() bool

// WaitReady polls GET http://H:P/health until a 200 response (true), the
// process exits (false, via isAlive returning false), or the deadline
// passes (returns isAlive(), i.e. "probably slow; accept" per spec §4.C).
func (p *HealthProber) WaitReady(ctx context.Context, spec *config.ModelSpec, isAlive aliveFunc) bool {
	url := fmt.Sprintf("http://%s:%d/health", probeHost(spec.Host), spec.Port)
	deadline := time.Now().Add(p.timeout)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.probeOnce(ctx, url) {
			return true
		}
		if !isAlive() {
			return false
		}
		if time.Now().After(deadline) {
			return isAlive()
		}

		select {
		case <-ctx.Done():
			return isAlive()
		case <-ticker.C:
		}
	}
}

func (p *HealthProber) probeOnce(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		// Connection errors are expected while the child is still booting.
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
