package wslogs

import (
	"math"
	"time"

	"go.uber.org/zap/zapcore"
)

// Message is one log entry as sent to a WebSocket client
type Message struct {
	Level     string                 `json:"level"`
	Timestamp time.Time              `json:"timestamp"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Batch is the set of log entries collected between two flushes of one run
type Batch struct {
	Messages  []Message `json:"messages"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FromZapEntry converts a zap entry and its fields into a Message
func FromZapEntry(entry zapcore.Entry, fields []zapcore.Field) Message {
	fieldsMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			fieldsMap[f.Key] = f.String
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
			zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
			fieldsMap[f.Key] = f.Integer
		case zapcore.Float64Type:
			fieldsMap[f.Key] = math.Float64frombits(uint64(f.Integer))
		case zapcore.Float32Type:
			fieldsMap[f.Key] = float64(math.Float32frombits(uint32(f.Integer)))
		case zapcore.BoolType:
			fieldsMap[f.Key] = f.Integer == 1
		case zapcore.DurationType:
			fieldsMap[f.Key] = time.Duration(f.Integer).String()
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				fieldsMap[f.Key] = err.Error()
			}
		case zapcore.SkipType:
		default:
			fieldsMap[f.Key] = f.Interface
		}
	}

	return Message{
		Level:     entry.Level.CapitalString(),
		Timestamp: entry.Time,
		Logger:    entry.LoggerName,
		Message:   entry.Message,
		Fields:    fieldsMap,
	}
}
