package utils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Cached response namespaces. A write to one entity kind drops every cached
// GET in its namespace; rosters live under events.
const (
	CacheEvents = "events"
	CachePeople = "people"
)

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func CachePattern(namespace string) string { return "cache:" + namespace + ":*" }

// Purge deletes the cached responses of each namespace and reports how many
// keys went away. A Redis failure stops the scan; stale entries then expire
// with their TTL.
func (ci *CacheInvalidator) Purge(ctx context.Context, namespaces ...string) (int, error) {
	if ci == nil || ci.rdb == nil {
		return 0, nil
	}
	n := 0
	for _, ns := range namespaces {
		iter := ci.rdb.Scan(ctx, 0, CachePattern(ns), 100).Iterator()
		for iter.Next(ctx) {
			if err := ci.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return n, err
			}
			n++
		}
		if err := iter.Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
