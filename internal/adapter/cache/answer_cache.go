package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"healthsense/internal/domain"
)

// AnswerCache memoizes full pipeline answers keyed by question and language.
// Entries expire after a TTL and the whole cache is invalidated when the
// index is rebuilt.
type AnswerCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
}

type cacheEntry struct {
	answer    domain.Answer
	timestamp time.Time
	indexGen  uint64
}

func NewAnswerCache(maxSize int, ttl time.Duration) *AnswerCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnswerCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(q domain.Query) string {
	hash := sha256.Sum256([]byte(q.Language + "\x00" + q.Text))
	return hex.EncodeToString(hash[:16])
}

func (c *AnswerCache) Get(q domain.Query) (domain.Answer, bool) {
	c.mu.RLock()
	key := cacheKey(q)
	entry, exists := c.entries[key]
	currentGen := c.indexGen
	c.mu.RUnlock()

	if !exists {
		return domain.Answer{}, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return domain.Answer{}, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return entry.answer, true
}

func (c *AnswerCache) Put(q domain.Query, answer domain.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(q)

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{
			answer:    answer,
			timestamp: time.Now(),
			indexGen:  c.indexGen,
		}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		answer:    answer,
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
	c.order = append(c.order, key)
}

// SyncGeneration aligns the cache with the index generation persisted by
// ingest runs. Entries written under an older generation fail the check in
// Get and are dropped there.
func (c *AnswerCache) SyncGeneration(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexGen = gen
}

// Invalidate drops all entries. Call after reindexing.
func (c *AnswerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *AnswerCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AnswerCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *AnswerCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *AnswerCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
