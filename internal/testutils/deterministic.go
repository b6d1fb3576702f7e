// Package testutils provides deterministic generators for the widget core.
// These utilities keep test output stable while preserving production format
// compatibility.
package testutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context is the minimal context surface the generators need.
type Context interface {
	IsTestMode() bool
}

var (
	// Thread-safe counter for deterministic ID generation
	idCounter uint64
	idMutex   sync.Mutex

	// Thread-safe counter for deterministic timestamp generation
	timeCounter int64
	timeMutex   sync.Mutex
)

// GenerateUUID generates a UUID that is deterministic in test mode but
// random in production.
func GenerateUUID(ctx Context) string {
	if ctx.IsTestMode() {
		return getDeterministicUUID()
	}
	return uuid.New().String()
}

// GetCurrentTime returns the current time, deterministic and strictly
// incrementing in test mode, real in production.
func GetCurrentTime(ctx Context) time.Time {
	if ctx.IsTestMode() {
		return getDeterministicTime()
	}
	return time.Now()
}

// GenerateSessionToken synthesizes a fake backend session token for test
// mode, mirroring the "test-session-<id>" shape the backend never issues.
func GenerateSessionToken(ctx Context) string {
	return "test-session-" + GenerateUUID(ctx)
}

// Reset clears the deterministic counters. Tests call this to make
// generated IDs and timestamps independent of execution order.
func Reset() {
	idMutex.Lock()
	idCounter = 0
	idMutex.Unlock()

	timeMutex.Lock()
	timeCounter = 0
	timeMutex.Unlock()
}

// getDeterministicUUID generates a deterministic UUID maintaining UUID v4
// format: 00000001-0000-4000-8000-000000000001, 00000002-..., etc.
func getDeterministicUUID() string {
	idMutex.Lock()
	defer idMutex.Unlock()

	idCounter++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", idCounter, idCounter)
}

// getDeterministicTime generates incrementing timestamps for test mode.
// Each call returns a time one second later than the previous call,
// starting from 2025-01-01T00:00:00Z.
func getDeterministicTime() time.Time {
	timeMutex.Lock()
	defer timeMutex.Unlock()

	timeCounter++
	baseTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return baseTime.Add(time.Duration(timeCounter) * time.Second)
}
