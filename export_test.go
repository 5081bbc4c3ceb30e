package focuslog

import "log/slog"

// ResetForTest uninstalls the pipeline and restores the default level.
func ResetForTest() {
	mu.Lock()
	current = nil
	mu.Unlock()
	programLevel.Set(LevelInfo)
}

// ResolvedChainForTest returns the handler chain l has cached, or nil.
func ResolvedChainForTest(l *slog.Logger) any {
	return l.Handler().(*lazyHandler).cached.Load()
}
