package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gophpeek/mlxhub/internal/acl"
	"github.com/gophpeek/mlxhub/internal/audit"
	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/gophpeek/mlxhub/internal/hub"
	tlsmgr "github.com/gophpeek/mlxhub/internal/tls"
)

// maxRequestBodySize limits request body to prevent memory exhaustion attacks.
const maxRequestBodySize = 8 * 1024 * 1024 // 8MB

// rateLimiter implements a token bucket rate limiter per client IP.
type rateLimiter struct {
	visitors        map[string]*visitor
	mu              sync.RWMutex
	rate            int
	burst           int
	cleanupInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

type visitor struct {
	limiter  *tokenBucket
	lastSeen time.Time
}

type tokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(rate, burst int) *rateLimiter {
	rl := &rateLimiter{
		visitors:        make(map[string]*visitor),
		rate:            rate,
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
	}
	rl.wg.Add(1)
	go rl.cleanupVisitors()
	return rl
}

func (rl *rateLimiter) stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.RLock()
	v, exists := rl.visitors[ip]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		v, exists = rl.visitors[ip]
		if !exists {
			v = &visitor{limiter: newTokenBucket(float64(rl.rate), rl.burst), lastSeen: time.Now()}
			rl.visitors[ip] = v
		}
		rl.mu.Unlock()
	}

	v.lastSeen = time.Now()
	return v.limiter.allow()
}

func (rl *rateLimiter) cleanupVisitors() {
	defer rl.wg.Done()
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 10*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func newTokenBucket(refillRate float64, capacity int) *tokenBucket {
	return &tokenBucket{tokens: float64(capacity), capacity: float64(capacity), refillRate: refillRate, lastRefill: time.Now()}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Server is the Hub's HTTP control plane: a thin adapter translating
// requests into hub.Runtime method calls and RuntimeErrors into HTTP 400
// responses (spec §6.1, §7).
type Server struct {
	port    int
	auth    string
	runtime *hub.Runtime
	started time.Time

	server      *http.Server
	logger      *slog.Logger
	rateLimiter *rateLimiter
	aclChecker  *acl.Checker
	tlsConfig   *config.TLSConfig
	tlsManager  *tlsmgr.Manager
	auditLogger *audit.Logger

	statusPage bool
}

// NewServer builds the control-plane server over an assembled hub.Runtime.
func NewServer(port int, auth string, aclCfg *config.ACLConfig, tlsCfg *config.TLSConfig, auditEnabled bool, statusPage bool, runtime *hub.Runtime, log *slog.Logger) *Server {
	var aclChecker *acl.Checker
	if aclCfg != nil && aclCfg.Enabled {
		checker, err := acl.NewChecker(aclCfg)
		if err != nil {
			log.Error("failed to create ACL checker", "error", err)
		} else {
			aclChecker = checker
		}
	}

	return &Server{
		port:        port,
		auth:        auth,
		runtime:     runtime,
		started:     time.Now(),
		tlsConfig:   tlsCfg,
		aclChecker:  aclChecker,
		logger:      log,
		rateLimiter: newRateLimiter(100, 200),
		auditLogger: audit.NewLogger(log, auditEnabled),
		statusPage:  statusPage,
	}
}

// Start begins serving the control plane in the background.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/hub/status", s.wrapHandler(s.handleStatus, true))
	mux.HandleFunc("/hub/reload", s.wrapHandler(s.handleReload, true))
	mux.HandleFunc("/hub/shutdown", s.wrapHandler(s.handleShutdown, true))
	mux.HandleFunc("/hub/models/stop-all", s.wrapHandler(s.handleStopAll, true))
	mux.HandleFunc("/hub/models/", s.wrapHandler(s.handleModelAction, true))
	if s.statusPage {
		mux.HandleFunc("/hub/", s.wrapHandler(s.handleStatusPage, false))
	}

	var handler http.Handler = mux
	if s.aclChecker != nil {
		handler = s.aclMiddleware(mux)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.runtime.Shutdown.Attach(s.server)

	scheme := "http"
	if s.tlsConfig != nil && s.tlsConfig.Enabled {
		tlsMgr, err := tlsmgr.NewManager(s.tlsConfig, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create TLS manager: %w", err)
		}
		tlsConf, err := tlsMgr.GetTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to get TLS config: %w", err)
		}
		s.server.TLSConfig = tlsConf
		s.tlsManager = tlsMgr
		scheme = "https"
	}

	s.logger.Info("starting control plane", "scheme", scheme, "port", s.port)

	go func() {
		var err error
		if s.tlsConfig != nil && s.tlsConfig.Enabled {
			err = s.server.ListenAndServeTLS("", "")
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("control plane server failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the control plane.
func (s *Server) Stop(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}
	if s.tlsManager != nil {
		s.tlsManager.Stop()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) aclMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := s.aclChecker.ExtractIP(r)
		if err != nil {
			s.auditLogger.LogACLDeny(r.RemoteAddr, r.URL.Path, "invalid IP format")
			http.Error(w, "unable to determine client IP", http.StatusBadRequest)
			return
		}
		if !s.aclChecker.IsAllowed(ip) {
			s.auditLogger.LogACLDeny(ip.String(), r.URL.Path, "IP not in allow list")
			http.Error(w, "access denied", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip = r.Header.Get("X-Real-IP")
		}
		if ip == "" {
			ip = r.RemoteAddr
		}
		if !s.rateLimiter.allow(ip) {
			s.auditLogger.LogRateLimit(ip, r.URL.Path)
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == "" {
			next(w, r)
			return
		}
		expected := "Bearer " + s.auth
		if r.Header.Get("Authorization") != expected {
			s.auditLogger.LogAuthFailure(r.RemoteAddr, r.URL.Path, "invalid or missing bearer token")
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) panicRecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered in control plane handler", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))
				s.respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next(w, r)
	}
}

func (s *Server) bodyLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next(w, r)
	}
}

// wrapHandler applies the full middleware stack: panicRecovery -> bodyLimit
// -> rateLimit -> [auth] -> handler.
func (s *Server) wrapHandler(handler http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	h := handler
	if requireAuth {
		h = s.authMiddleware(h)
	}
	h = s.rateLimitMiddleware(h)
	h = s.bodyLimitMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}

// handleStatus serves GET /hub/status (spec §6.3).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.runtime.Projector.Snapshot()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"host":                status.Host,
		"port":                status.Port,
		"model_starting_port": status.ModelStartingPort,
		"enable_status_page":  status.EnableStatusPage,
		"log_level":           status.LogLevel,
		"models":              status.Models,
		"groups":              status.Groups,
		"started_at":          s.started.Format(time.RFC3339),
	})
}

// handleReload serves POST /hub/reload.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.runtime.Reload(r.Context()); err != nil {
		s.respondRuntimeError(w, err)
		return
	}
	s.auditLogger.LogConfigReloaded("")
	status := s.runtime.Projector.Snapshot()
	s.respondJSON(w, http.StatusOK, status)
}

// handleShutdown serves POST /hub/shutdown.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.runtime.Shutdown.RequestShutdown()
	s.auditLogger.LogSystemShutdown("api request", true)
	s.respondJSON(w, http.StatusOK, map[string]string{"detail": "shutdown requested"})
}

// handleStopAll serves POST /hub/models/stop-all.
func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.runtime.Coordinator.StopAllModels()
	s.respondJSON(w, http.StatusOK, map[string]string{"detail": "all models stopped"})
}

// handleModelAction serves POST /hub/models/{name}/{start|stop|load|unload}
// and the supplemented GET /hub/models/{name}/logs route.
func (s *Server) handleModelAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/hub/models/")
	idx := strings.IndexByte(rest, '/')
	if idx <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	name := rest[:idx]
	action := rest[idx+1:]

	if action == "logs" {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleModelLogs(w, r, name)
		return
	}

	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var err error
	switch action {
	case "start":
		err = s.runtime.Coordinator.StartModel(r.Context(), name)
	case "stop":
		err = s.runtime.Coordinator.StopModel(name)
	case "load":
		err = s.runtime.Coordinator.LoadModel(r.Context(), name)
	case "unload":
		err = s.runtime.Coordinator.UnloadModel(name)
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %s (valid: start|stop|load|unload|logs)", action))
		return
	}

	if err != nil {
		s.respondRuntimeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"detail": fmt.Sprintf("%s: %s", action, name)})
}

// handleModelLogs serves GET /hub/models/{name}/logs?n=100 (supplemented
// feature: tails the model's in-memory log ring buffer).
func (s *Server) handleModelLogs(w http.ResponseWriter, r *http.Request, name string) {
	s.runtime.Table.Lock()
	state := s.runtime.Table.Get(name)
	s.runtime.Table.Unlock()
	if state == nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown model %q", name))
		return
	}

	n := 200
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := state.LogBuffer().GetRecent(n)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"model": name, "entries": entries})
}

var statusPageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><head><title>mlxhub</title></head>
<body>
<h1>mlxhub status</h1>
<table border="1" cellpadding="4">
<tr><th>Name</th><th>Status</th><th>PID</th><th>Group</th><th>Uptime (s)</th><th>Last Error</th></tr>
{{range .Models}}
<tr><td>{{.Name}}</td><td>{{.Status}}</td><td>{{.PID}}</td><td>{{.Group}}</td><td>{{printf "%.0f" .UptimeSeconds}}</td><td>{{.LastError}}</td></tr>
{{end}}
</table>
</body></html>`))

// handleStatusPage serves GET /hub/ (only when enable_status_page is set).
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.runtime.Projector.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPageTemplate.Execute(w, status); err != nil {
		s.logger.Error("failed to render status page", "error", err)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}

// respondRuntimeError maps every Hub Runtime error to HTTP 400 with
// {"detail": "<message>"} (spec §7: every error kind is a 400).
func (s *Server) respondRuntimeError(w http.ResponseWriter, err error) {
	var rerr *hub.RuntimeError
	if errors.As(err, &rerr) {
		s.logger.Warn("runtime error", "kind", rerr.Kind, "model", rerr.Model, "error", rerr.Message)
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

// Port returns the port the server is listening on.
func (s *Server) Port() int { return s.port }
