package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
	"github.com/teranos/capgen/pulse"
	"github.com/teranos/capgen/server/wslogs"
	"github.com/teranos/capgen/taxonomy"
)

// WebSocket timeouts, following the gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Clients only send small control messages
	maxMessageSize = 4096

	sendBuffer = 64
)

// Frame types sent on /ws/generate
const (
	FrameProgress = "progress"
	FrameLogs     = "logs"
	FrameComplete = "complete"
	FrameError    = "error"
)

type progressFrame struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id"`
	Stage       string `json:"stage"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	RemainingMS int64  `json:"remaining_ms"`
}

type logsFrame struct {
	Type string        `json:"type"`
	Logs *wslogs.Batch `json:"logs"`
}

type completeFrame struct {
	Type       string                `json:"type"`
	RunID      string                `json:"run_id"`
	CSV        string                `json:"csv"`
	Warnings   []taxonomy.Warning    `json:"warnings"`
	Counts     taxonomy.CountSummary `json:"counts"`
	DurationMS int64                 `json:"duration_ms"`
}

type errorFrame struct {
	Type    string      `json:"type"`
	RunID   string      `json:"run_id"`
	Error   errors.Kind `json:"error"`
	Message string      `json:"message"`
	Hints   []string    `json:"hints,omitempty"`
}

// clientMessage is what a client may send after connecting
type clientMessage struct {
	Type string `json:"type"` // "cancel"
}

// session is one WebSocket generation. writePump is the only writer on conn.
type session struct {
	conn   *websocket.Conn
	runID  string
	send   chan interface{}
	done   chan struct{} // closed when writePump exits
	logger *zap.SugaredLogger
}

// HandleGenerateWS runs a generation and reports progress, the run's log
// entries and the final CSV (or error) as JSON frames.
func (s *Server) HandleGenerateWS(w http.ResponseWriter, r *http.Request) {
	ctx, industry, release, ok := s.begin(w, r)
	if !ok {
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		s.logger.Warnw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &session{
		conn:   conn,
		runID:  runID,
		send:   make(chan interface{}, sendBuffer),
		done:   make(chan struct{}),
		logger: s.logger.With("run_id", runID),
	}
	go sess.writePump()
	go sess.readPump(cancel)

	batcher := wslogs.NewBatcher(runID, func(b *wslogs.Batch) {
		sess.enqueue(logsFrame{Type: FrameLogs, Logs: b})
	})
	runLog := zap.New(zapcore.NewTee(
		s.logger.Desugar().Core(),
		wslogs.NewWebSocketCore(zapcore.InfoLevel, batcher),
	)).Sugar()

	observer := pulse.ObserverFunc(func(p pulse.Progress) {
		batcher.Flush()
		sess.enqueue(progressFrame{
			Type:        FrameProgress,
			RunID:       runID,
			Stage:       p.Stage,
			Current:     p.Current,
			Total:       p.Total,
			ElapsedMS:   p.Elapsed.Milliseconds(),
			RemainingMS: p.Remaining.Milliseconds(),
		})
	})

	result, err := s.newDriver(runLog).Run(ctx, industry, observer)
	batcher.Flush()

	if err != nil {
		ue := errors.ToUserError(err)
		sess.enqueue(errorFrame{
			Type:    FrameError,
			RunID:   runID,
			Error:   ue.Kind,
			Message: ue.Message,
			Hints:   ue.Hints,
		})
	} else {
		sess.enqueue(newCompleteFrame(result))
	}

	close(sess.send)
	<-sess.done
}

func newCompleteFrame(result *pipeline.Result) interface{} {
	data, err := result.CSV()
	if err != nil {
		ue := errors.ToUserError(err)
		return errorFrame{Type: FrameError, RunID: result.RunID, Error: ue.Kind, Message: ue.Message}
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []taxonomy.Warning{}
	}
	return completeFrame{
		Type:       FrameComplete,
		RunID:      result.RunID,
		CSV:        string(data),
		Warnings:   warnings,
		Counts:     result.Counts,
		DurationMS: result.Duration.Milliseconds(),
	}
}

// enqueue hands msg to the writer. It returns false once the writer is gone.
func (c *session) enqueue(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debugw("WebSocket write failed", logger.FieldError, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump watches the client side. A disconnect or a cancel message stops the run.
func (c *session) readPump(cancel context.CancelFunc) {
	defer cancel()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.logger.Warnw("WebSocket read error", logger.FieldError, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debugw("Ignoring unparseable client message", logger.FieldError, err)
			continue
		}
		if msg.Type == "cancel" {
			c.logger.Infow("Client cancelled generation")
			return
		}
	}
}
