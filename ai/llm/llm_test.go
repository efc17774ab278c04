package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc(t *testing.T) {
	var got ChatRequest
	client := Func(func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		got = req
		return &ChatResponse{Content: "ok"}, nil
	})

	resp, err := client.Chat(context.Background(), ChatRequest{UserPrompt: "hello", JSONOutput: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "hello", got.UserPrompt)
	assert.True(t, got.JSONOutput)
}

func TestText(t *testing.T) {
	resp, err := Text("[]").Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)
}

func TestCallInfo(t *testing.T) {
	assert.Equal(t, CallInfo{}, CallInfoFromContext(context.Background()))

	ctx := WithCallInfo(context.Background(), CallInfo{
		Operation:  OperationL2Batch,
		EntityType: "l1_capability",
		EntityID:   "Billing",
		RunID:      "run-1",
	})

	info := CallInfoFromContext(ctx)
	assert.Equal(t, OperationL2Batch, info.Operation)
	assert.Equal(t, "Billing", info.EntityID)
	assert.Equal(t, "run-1", info.RunID)
}
