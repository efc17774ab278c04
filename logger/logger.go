// Package logger owns the process-wide zap logger used by the CLI and the
// server. Library packages take a *zap.SugaredLogger explicitly and fall back
// to a nop logger; only cmd/ reads the global.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is a nop logger until Initialize runs.
	Logger = zap.NewNop().Sugar()
	// JSONOutput is set by --json; commands also use it to pick machine-readable output.
	JSONOutput bool
)

// Initialize sets up the global logger.
//
// All log output goes to stderr so CSV written to stdout by
// `capgen generate -o -` stays clean. verbosity follows VerbosityToLevel.
func Initialize(jsonOutput bool, verbosity int) error {
	JSONOutput = jsonOutput
	level := VerbosityToLevel(verbosity)

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		config.Sampling = nil
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	Logger = zap.New(consoleCore(level)).Sugar()
	return nil
}

func consoleCore(level zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.CallerKey = ""
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	_ = Logger.Sync()
}
