package telemetry

import "sync"

const defaultDir = ".agent"

var (
	mu      sync.RWMutex
	enabled bool
	dir     = defaultDir
)

// Configure switches JSONL emission on or off and sets the output directory.
// An empty dir keeps ".agent".
func Configure(on bool, outDir string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if outDir == "" {
		outDir = defaultDir
	}
	dir = outDir
}

// Enabled reports whether Emit writes events.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func target() (bool, string) {
	mu.RLock()
	defer mu.RUnlock()
	return enabled, dir
}
