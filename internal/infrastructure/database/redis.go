package database

import "github.com/redis/go-redis/v9"

// NewRedis builds a Redis client. Connectivity is not verified here; the
// queue health monitor owns the probe so startup never blocks on the broker.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
