// Package wslogs forwards the log entries of one generation run to the
// WebSocket client that started it.
package wslogs

import (
	"go.uber.org/zap/zapcore"
)

// WebSocketCore is a zap core that appends entries to a Batcher.
// Tee it with the process core so a run logs to both:
//
//	log := zap.New(zapcore.NewTee(base.Core(), wslogs.NewWebSocketCore(zapcore.InfoLevel, batcher)))
type WebSocketCore struct {
	zapcore.LevelEnabler
	batcher *Batcher
	fields  []zapcore.Field
}

// NewWebSocketCore creates a core that sends entries at or above level to batcher
func NewWebSocketCore(level zapcore.LevelEnabler, batcher *Batcher) *WebSocketCore {
	return &WebSocketCore{
		LevelEnabler: level,
		batcher:      batcher,
	}
}

// With returns a core that adds fields to every entry
func (c *WebSocketCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &WebSocketCore{
		LevelEnabler: c.LevelEnabler,
		batcher:      c.batcher,
		fields:       merged,
	}
}

// Check adds this core to checked when the level is enabled
func (c *WebSocketCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write appends the entry to the current batch
func (c *WebSocketCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if !c.Enabled(entry.Level) || c.batcher == nil {
		return nil
	}
	all := fields
	if len(c.fields) > 0 {
		all = make([]zapcore.Field, 0, len(c.fields)+len(fields))
		all = append(all, c.fields...)
		all = append(all, fields...)
	}
	c.batcher.Append(FromZapEntry(entry, all))
	return nil
}

// Sync is a no-op; batches are flushed explicitly
func (c *WebSocketCore) Sync() error {
	return nil
}
