package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	dom "github.com/gwa2100/dndnotus/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyListPrefix = "note:list:"

// NoteCache caches per-user note lists in Redis.
type NoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewNoteCache returns a new NoteCache.
func NewNoteCache(rdb *redis.Client, ttl time.Duration) *NoteCache {
	return &NoteCache{rdb: rdb, ttl: ttl}
}

// GetUserNotes returns the cached list for userID or nil if miss.
func (c *NoteCache) GetUserNotes(ctx context.Context, userID int64) ([]dom.Note, error) {
	b, err := c.rdb.Get(ctx, listKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []dom.Note
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetUserNotes stores the list for userID in cache. A nil list is stored as
// an empty one; "null" would read back as a miss and the empty result would
// never cache.
func (c *NoteCache) SetUserNotes(ctx context.Context, userID int64, list []dom.Note) error {
	if list == nil {
		list = []dom.Note{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(userID), b, c.ttl).Err()
}

// InvalidateUser removes the cached list for userID (invalidation on write).
func (c *NoteCache) InvalidateUser(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, listKey(userID)).Err()
}

// InvalidateAll removes every user's cached list. Used after a DM broadcast,
// which touches every user at once.
func (c *NoteCache) InvalidateAll(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyListPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func listKey(userID int64) string {
	return keyListPrefix + strconv.FormatInt(userID, 10)
}
