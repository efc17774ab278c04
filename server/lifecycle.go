package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/capgen/errors"
)

// ServerState is the lifecycle phase of the server
type ServerState int32

const (
	ServerStateRunning ServerState = iota
	ServerStateDraining
	ServerStateStopped
)

func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

func (s *Server) setState(state ServerState) {
	s.state.Store(int32(state))
	s.logger.Debugw("Server state changed", "new_state", state.String())
}

// Start listens on port and serves until ctx is cancelled, then drains.
// If port is taken the next free port in a small range is used.
func (s *Server) Start(ctx context.Context, port int) error {
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", actualPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: a generation legitimately runs for minutes
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Server ready", "url", fmt.Sprintf("http://localhost:%d", actualPort), "port", actualPort)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop refuses new generations, waits for in-flight ones up to ctx's
// deadline and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infow("Initiating server shutdown", "active_runs", s.active.Load())
	s.setState(ServerStateDraining)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warnw("HTTP shutdown incomplete", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("All generations finished")
	case <-ctx.Done():
		s.logger.Warnw("Shutdown timed out with generations in flight", "active_runs", s.active.Load())
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return nil
}

func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, the real bind follows
	return true
}

// findAvailablePort tries port and then the next ten ports
func findAvailablePort(port int) (int, error) {
	for i := 0; i <= 10; i++ {
		if isPortAvailable(port + i) {
			return port + i, nil
		}
	}
	return 0, errors.Newf("no available ports found (tried %d-%d)", port, port+10)
}
