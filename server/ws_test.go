package server

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/errors"
)

// readFrames reads JSON frames until the server closes the connection.
func readFrames(t *testing.T, conn *websocket.Conn) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	for {
		var frame map[string]interface{}
		if err := conn.ReadJSON(&frame); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return frames
		}
		frames = append(frames, frame)
	}
}

func dialGenerate(t *testing.T, s *Server, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/generate" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func framesOfType(frames []map[string]interface{}, typ string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, f := range frames {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func TestHandleGenerateWS_Complete(t *testing.T) {
	s := newTestServer(fakeModel(healthcareBatch, 3))
	frames := readFrames(t, dialGenerate(t, s, "?industry=Healthcare"))
	require.NotEmpty(t, frames)

	progress := framesOfType(frames, FrameProgress)
	require.Len(t, progress, 2, "one frame per L1")
	assert.EqualValues(t, 1, progress[0]["current"])
	assert.EqualValues(t, 2, progress[1]["current"])
	assert.EqualValues(t, 2, progress[1]["total"])
	assert.Equal(t, "l2_attach", progress[0]["stage"])

	assert.NotEmpty(t, framesOfType(frames, FrameLogs))

	last := frames[len(frames)-1]
	require.Equal(t, FrameComplete, last["type"])
	assert.Equal(t, progress[0]["run_id"], last["run_id"])
	assert.Empty(t, last["warnings"])

	records, err := csv.NewReader(strings.NewReader(last["csv"].(string))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1+2*3)
}

func TestHandleGenerateWS_ErrorFrame(t *testing.T) {
	s := newTestServer(llm.Text("not json at all"))
	frames := readFrames(t, dialGenerate(t, s, "?industry=Retail"))
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, FrameError, last["type"])
	assert.Equal(t, string(errors.KindMalformedResponse), last["error"])
	assert.NotContains(t, last["message"], "not json at all")
	assert.Empty(t, framesOfType(frames, FrameComplete))
}

func TestHandleGenerateWS_ClientCancel(t *testing.T) {
	started := make(chan struct{})
	client := llm.Func(func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := newTestServer(client)
	conn := dialGenerate(t, s, "?industry=Retail")

	<-started
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "cancel"}))

	frames := readFrames(t, conn)
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, FrameError, last["type"])
	assert.Equal(t, string(errors.KindCancelled), last["error"])
}

func TestHandleGenerateWS_InvalidIndustryBeforeUpgrade(t *testing.T) {
	s := newTestServer(fakeModel(healthcareBatch, 3))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/generate", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.KindInvalidRequest, decodeError(t, rec).Kind)
}
