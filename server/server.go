// Package server exposes capability generation over HTTP and WebSocket.
package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/pipeline"
)

const (
	// ShutdownTimeout bounds how long Stop waits for in-flight runs
	ShutdownTimeout = 30 * time.Second

	// DefaultRequestTimeout applies when the config leaves it unset
	DefaultRequestTimeout = 30 * time.Minute
)

// Server serves generation requests. Every request builds its own pipeline
// driver around the shared client, so concurrent requests share no run state.
type Server struct {
	client   llm.Client
	runCfg   pipeline.Config
	cfg      am.ServerConfig
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	httpServer *http.Server
	state      atomic.Int32
	active     atomic.Int32 // generations in flight
	wg         sync.WaitGroup
}

// New creates a server. log may be nil.
func New(client llm.Client, runCfg pipeline.Config, cfg am.ServerConfig, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		client: client,
		runCfg: runCfg,
		cfg:    cfg,
		logger: log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	s.setState(ServerStateRunning)
	return s
}

// Handler returns the routed handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupHTTPRoutes(mux)
	return mux
}

func (s *Server) requestTimeout() time.Duration {
	if d := s.cfg.RequestTimeout(); d > 0 {
		return d
	}
	return DefaultRequestTimeout
}

func (s *Server) newDriver(log *zap.SugaredLogger) *pipeline.Driver {
	return pipeline.New(s.client, s.runCfg, log.Named("pipeline"))
}

// track counts an in-flight generation until the returned func is called.
func (s *Server) track() func() {
	s.wg.Add(1)
	s.active.Add(1)
	return func() {
		s.active.Add(-1)
		s.wg.Done()
	}
}
