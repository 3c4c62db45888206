package reconciler

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// replayCache remembers bulk-sync results by idempotency key so a retried
// request is answered without touching the database
type replayCache struct {
	lru *expirable.LRU[string, *BulkResult]
}

func newReplayCache(size int, ttl time.Duration) *replayCache {
	return &replayCache{
		lru: expirable.NewLRU[string, *BulkResult](size, nil, ttl),
	}
}

func replayKey(subject, table, key string) string {
	return subject + "\x00" + table + "\x00" + key
}

// Get returns a copy of the cached result marked as replayed
func (c *replayCache) Get(subject, table, key string) (*BulkResult, bool) {
	res, ok := c.lru.Get(replayKey(subject, table, key))
	if !ok {
		return nil, false
	}
	out := *res
	out.Replayed = true
	return &out, true
}

func (c *replayCache) Add(subject, table, key string, res *BulkResult) {
	c.lru.Add(replayKey(subject, table, key), res)
}

func (c *replayCache) Len() int {
	return c.lru.Len()
}
