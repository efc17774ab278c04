package llm

import "context"

// Operation types recorded with every model call.
const (
	OperationL0Batch = "l0_batch"
	OperationL2Batch = "l2_batch"
)

// CallInfo describes why a model call is made. Providers read it from the
// context to label usage records.
type CallInfo struct {
	Operation  string // l0_batch, l2_batch
	EntityType string // industry, l1_capability
	EntityID   string // industry name or L1 capability name
	RunID      string
}

type callInfoKey struct{}

// WithCallInfo attaches info to ctx.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext returns the CallInfo stored by WithCallInfo, or the zero value.
func CallInfoFromContext(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	return info
}
