package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL response cache in front of the aggregator. It is a
// performance optimization only: every path treats cache trouble as a miss.
// Keys include the caller identity because cached bodies embed per-caller
// membership flags.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func (c *Cache) Get(ctx context.Context, userID, query string) (*Response, bool) {
	val, err := c.Client.Get(ctx, cacheKey(userID, query)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[search] cache get failed: %v", err)
		}
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		log.Printf("[search] cache decode failed: %v", err)
		return nil, false
	}
	return &resp, true
}

func (c *Cache) Set(ctx context.Context, userID, query string, resp *Response) {
	val, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[search] cache encode failed: %v", err)
		return
	}
	if err := c.Client.Set(ctx, cacheKey(userID, query), val, c.TTL).Err(); err != nil {
		log.Printf("[search] cache set failed: %v", err)
	}
}

func cacheKey(userID, query string) string {
	return fmt.Sprintf("search:%s:%s", userID, query)
}
