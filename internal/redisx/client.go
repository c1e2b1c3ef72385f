package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// New builds the shared Redis client. Short timeouts: every cache call
// is best-effort and a slow cache must not hold up the store path.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
