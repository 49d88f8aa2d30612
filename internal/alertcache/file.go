package alertcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"PriceActionBot/internal/model"
)

// FileCache keeps alert keys in memory and persists them as JSON.
// An empty path keeps the cache in memory only.
type FileCache struct {
	mu       sync.Mutex
	path     string
	cooldown time.Duration
	entries  map[string]time.Time

	now func() time.Time
}

// NewFileCache loads the cache file if it exists and drops stale entries.
func NewFileCache(path string, cooldown time.Duration) (*FileCache, error) {
	c := &FileCache{
		path:     path,
		cooldown: cooldown,
		entries:  make(map[string]time.Time),
		now:      time.Now,
	}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read alert cache: %w", err)
	}
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &c.entries); err != nil {
			return nil, fmt.Errorf("decode alert cache %s: %w", path, err)
		}
	}
	c.prune()
	return c, nil
}

func (c *FileCache) Seen(_ context.Context, m model.Match) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.entries[Key(m)]
	return ok && c.now().Sub(at) < c.cooldown, nil
}

func (c *FileCache) Mark(_ context.Context, m model.Match) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(m)] = c.now()
	c.prune()
	return c.save()
}

// Len returns the number of remembered keys.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *FileCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

// prune drops entries older than twice the cooldown. Caller holds mu.
func (c *FileCache) prune() {
	cutoff := c.now().Add(-2 * c.cooldown)
	for k, at := range c.entries {
		if at.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

func (c *FileCache) save() error {
	if c.path == "" {
		return nil
	}
	data, err := sonic.ConfigStd.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alert cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write alert cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}
