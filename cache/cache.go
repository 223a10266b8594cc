package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/menugrab/models"
)

const (
	sweepInterval = 5 * time.Minute
	maxLifetime   = time.Hour
)

type entry struct {
	response  *models.ExtractResponse
	createdAt time.Time
}

// Cache keeps completed extractions in memory so a repeated request for the
// same catalog can be answered without driving a browser again.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries responses. A background
// sweep drops entries older than an hour until Close is called.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Key identifies an extraction by everything that changes its output: the
// start URL, the detail response match and the description format.
func Key(url, responseMatch, descriptionFormat string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(responseMatch))
	h.Write([]byte("|"))
	h.Write([]byte(descriptionFormat))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the response stored under key if it is younger than maxAgeMs.
// maxAgeMs <= 0 disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ExtractResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.response, true
}

// Set stores resp. Only fully completed runs are worth replaying, so
// aborted responses are ignored. At capacity the oldest entry is evicted.
func (c *Cache) Set(key string, resp *models.ExtractResponse) {
	if resp == nil || resp.State != models.StateDone {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.store[key] = &entry{response: resp, createdAt: c.now()}
}

// Len returns the number of stored responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.store {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	delete(c.store, oldestKey)
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-maxLifetime)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}
