package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/internal/testutils"
	"chatwidget/pkg/widgettypes"
)

// CacheService persists session continuity data as a single JSON entry per
// (tenant, apiKey) pair, with TTL-based invalidation. Write failures are
// swallowed and logged; a read distinguishes three independent miss
// conditions: missing entry, malformed JSON and expired TTL. An in-memory
// read-through layer avoids re-reading the file within one process.
type CacheService struct {
	initialized bool
	dir         string
	memory      *gocache.Cache
}

// NewCacheService creates a new CacheService instance.
func NewCacheService() *CacheService {
	return &CacheService{
		initialized: false,
		memory:      gocache.New(widgettypes.DefaultCacheExpiration, 10*time.Minute),
	}
}

// Name returns the service name "cache" for registration.
func (c *CacheService) Name() string {
	return "cache"
}

// Initialize resolves the storage directory and enforces the disabled-cache
// invariant: with caching off, any pre-existing entry is deleted eagerly so
// stale state from a previous configuration cannot leak in.
func (c *CacheService) Initialize() error {
	ctx := widgetcontext.GetGlobalContext()
	cfg := ctx.Config()

	dir := cfg.CacheDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		dir = filepath.Join(base, "chatwidget", "cache")
	}
	c.dir = dir
	c.initialized = true

	if !ctx.CacheEnabled() {
		c.deleteEntry()
		logger.Debug("Cache disabled, pre-existing entry removed", "dir", c.dir)
		return nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		// Persistence errors never propagate; the widget runs cache-less.
		logger.Warn("Failed to create cache directory", "dir", c.dir, "error", err)
	}
	return nil
}

// Key returns the deterministic storage key for the configured tenant and
// API key pair.
func (c *CacheService) Key() string {
	cfg := widgetcontext.GetGlobalContext().Config()
	return fmt.Sprintf("chatbot_%s_%s", cfg.Tenant, cfg.APIKey)
}

func (c *CacheService) filePath() string {
	return filepath.Join(c.dir, c.Key()+".json")
}

// Save serializes the entry under the deterministic key. Storage failures
// are logged and swallowed.
func (c *CacheService) Save(entry widgettypes.CacheEntry) {
	ctx := widgetcontext.GetGlobalContext()
	if !c.initialized || !ctx.CacheEnabled() {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = testutils.GetCurrentTime(ctx)
	}
	if entry.Expiration == 0 {
		entry.Expiration = ctx.Config().CacheExpiration
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		logger.Warn("Failed to serialize cache entry", "error", err)
		return
	}
	if err := os.WriteFile(c.filePath(), data, 0600); err != nil {
		logger.Warn("Failed to write cache entry", "path", c.filePath(), "error", err)
		return
	}
	c.memory.Set(c.Key(), &entry, entry.Expiration)
	logger.Debug("Cache entry saved", "key", c.Key(), "messages", len(entry.Messages))
}

// Load reads the cached entry. It returns (nil, false) on any of the three
// miss conditions; stale or corrupt entries are proactively deleted.
func (c *CacheService) Load() (*widgettypes.CacheEntry, bool) {
	ctx := widgetcontext.GetGlobalContext()
	if !c.initialized || !ctx.CacheEnabled() {
		return nil, false
	}

	now := testutils.GetCurrentTime(ctx)

	if cached, found := c.memory.Get(c.Key()); found {
		entry := cached.(*widgettypes.CacheEntry)
		if entry.Expired(now) {
			c.deleteEntry()
			return nil, false
		}
		return entry, true
	}

	data, err := os.ReadFile(c.filePath())
	if err != nil {
		// Missing key: the first miss condition, nothing to clean up.
		return nil, false
	}

	var entry widgettypes.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warn("Corrupt cache entry, discarding", "key", c.Key(), "error", err)
		c.deleteEntry()
		return nil, false
	}

	if entry.Expired(now) {
		logger.Debug("Cache entry expired, discarding",
			"key", c.Key(),
			"age", now.Sub(entry.Timestamp).String(),
			"ttl", entry.Expiration.String())
		c.deleteEntry()
		return nil, false
	}

	c.memory.Set(c.Key(), &entry, entry.Expiration-now.Sub(entry.Timestamp))
	return &entry, true
}

// Clear unconditionally deletes the entry, both for user-initiated history
// clearing and for corrupt-state recovery.
func (c *CacheService) Clear() {
	if !c.initialized {
		return
	}
	c.deleteEntry()
	logger.Debug("Cache entry cleared", "key", c.Key())
}

// Status returns a plain snapshot of the persisted entry for the public
// GetCacheStatus operation.
func (c *CacheService) Status() widgettypes.CacheStatus {
	ctx := widgetcontext.GetGlobalContext()
	status := widgettypes.CacheStatus{Enabled: ctx.CacheEnabled()}
	if !c.initialized || !status.Enabled {
		return status
	}

	data, err := os.ReadFile(c.filePath())
	if err != nil {
		return status
	}
	var entry widgettypes.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return status
	}

	now := testutils.GetCurrentTime(ctx)
	age := now.Sub(entry.Timestamp)
	status.Exists = true
	status.Expired = entry.Expired(now)
	status.AgeMinutes = int(age.Minutes())
	status.Messages = len(entry.Messages)
	status.Registered = entry.Registered
	return status
}

func (c *CacheService) deleteEntry() {
	c.memory.Delete(c.Key())
	if err := os.Remove(c.filePath()); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove cache entry", "path", c.filePath(), "error", err)
	}
}
