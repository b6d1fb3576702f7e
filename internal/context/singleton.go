package context

import "sync"

// globalContext holds the singleton instance of the global context
var globalContext *WidgetContext

// globalContextMu protects access to the global context instance
var globalContextMu sync.RWMutex

// GetGlobalContext returns the global context singleton in a thread-safe
// manner, creating it on first use.
func GetGlobalContext() *WidgetContext {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	if globalContext == nil {
		globalContext = New()
	}
	return globalContext
}

// SetGlobalContext replaces the global context instance. Used by widget
// construction and by tests that need a clean slate.
func SetGlobalContext(ctx *WidgetContext) {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = ctx
}

// ResetGlobalContext resets the global context singleton to nil. This is
// primarily for testing purposes to ensure clean state between tests.
func ResetGlobalContext() {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = nil
}
