package errors

import (
	"sync"
	"sync/atomic"
)

// ReportingHook receives enhanced errors for out-of-band reporting
// (telemetry, crash aggregation). Hooks must not block.
type ReportingHook func(ee *EnhancedError)

var (
	hasActiveReporting atomic.Bool
	hookMutex          sync.RWMutex
	reportingHooks     []ReportingHook
)

// AddReportingHook registers a hook invoked for every error built while
// reporting is active. Registering any hook enables the full build path
// (component/category auto-detection).
func AddReportingHook(hook ReportingHook) {
	if hook == nil {
		return
	}
	hookMutex.Lock()
	reportingHooks = append(reportingHooks, hook)
	hookMutex.Unlock()
	hasActiveReporting.Store(true)
}

// ClearReportingHooks removes all registered hooks, restoring the fast
// build path. Intended for tests.
func ClearReportingHooks() {
	hookMutex.Lock()
	reportingHooks = nil
	hookMutex.Unlock()
	hasActiveReporting.Store(false)
}

func report(ee *EnhancedError) {
	hookMutex.RLock()
	hooks := reportingHooks
	hookMutex.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
	if len(hooks) > 0 {
		ee.MarkReported()
	}
}
