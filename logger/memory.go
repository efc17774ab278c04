package logger

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// RSSBytes returns the resident set size of the current process.
func RSSBytes() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

// LogMemory reports process memory at debug level after a pipeline stage.
// Failures to read memory stats are logged and otherwise ignored.
func LogMemory(log *zap.SugaredLogger, stage string) {
	if log == nil {
		log = Logger
	}
	if !log.Desugar().Core().Enabled(zap.DebugLevel) {
		return
	}
	rss, err := RSSBytes()
	if err != nil {
		log.Debugw("Memory stats unavailable", FieldStage, stage, FieldError, err)
		return
	}
	log.Debugw("Memory usage", FieldStage, stage, FieldRSSMB, float64(rss)/1024/1024)
}
