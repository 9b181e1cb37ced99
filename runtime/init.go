package runtime

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// GCConfig tunes the garbage collector backing managed mode.
type GCConfig struct {
	// Percent is passed to debug.SetGCPercent. 0 keeps the Go default,
	// a negative value disables collection.
	Percent int
	// MemoryLimit is passed to debug.SetMemoryLimit when positive.
	MemoryLimit int64
}

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Init performs the one-time, process-wide collector setup for managed mode.
// Only the first call has any effect; it reports whether this call did the work.
func Init(cfg GCConfig) bool {
	ran := false
	initOnce.Do(func() {
		if cfg.Percent != 0 {
			debug.SetGCPercent(cfg.Percent)
		}
		if cfg.MemoryLimit > 0 {
			debug.SetMemoryLimit(cfg.MemoryLimit)
		}
		initialized.Store(true)
		ran = true
		Logger().Debug("collector initialized",
			zap.Int("gc_percent", cfg.Percent),
			zap.Int64("memory_limit", cfg.MemoryLimit))
	})
	return ran
}

// Initialized reports whether Init has run.
func Initialized() bool {
	return initialized.Load()
}
