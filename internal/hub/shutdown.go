package hub

import (
	"log/slog"
	"net/http"
	"sync"
)

// ShutdownController implements the Shutdown Controller (spec §4.H):
// request_shutdown() sets an exit flag, signals the monitor's stop event,
// and (if an HTTP server is attached) disables its keep-alives. Final
// child cleanup is the daemon entry's responsibility via StopAllModels,
// called after the HTTP server returns.
type ShutdownController struct {
	log     *slog.Logger
	monitor *Monitor

	mu      sync.Mutex
	exiting bool
	server  *http.Server
	doneCh  chan struct{}
}

// NewShutdownController builds a controller over monitor. Attach is called
// later once the HTTP server exists (it is constructed after the runtime).
func NewShutdownController(log *slog.Logger, monitor *Monitor) *ShutdownController {
	return &ShutdownController{log: log, monitor: monitor, doneCh: make(chan struct{})}
}

// Done returns a channel that is closed the first time RequestShutdown
// runs, so the daemon's main loop can treat an operator-issued shutdown
// (POST /hub/shutdown) the same way it treats an OS signal.
func (c *ShutdownController) Done() <-chan struct{} {
	return c.doneCh
}

// Attach records the HTTP server so RequestShutdown can ask it to drain.
func (c *ShutdownController) Attach(server *http.Server) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.server = server
}

// IsExiting reports whether shutdown has been requested.
func (c *ShutdownController) IsExiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exiting
}

// RequestShutdown sets the exit flag, stops the monitor loop, disables
// keep-alives on the attached HTTP server (which also closes its idle
// connections) and closes the Done channel. It does not stop the server
// itself. Absence of an attached server is not an error.
func (c *ShutdownController) RequestShutdown() {
	c.mu.Lock()
	alreadyExiting := c.exiting
	c.exiting = true
	server := c.server
	c.mu.Unlock()

	if alreadyExiting {
		return
	}

	c.log.Info("shutdown requested")

	if c.monitor != nil {
		c.monitor.Stop()
	}

	if server != nil {
		server.SetKeepAlivesEnabled(false)
	}

	close(c.doneCh)
}
