package skipcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a skip-cache backend on github.com/redis/go-redis/v9 — named,
// not grounded, per DESIGN.md's ledger rules: no example repo in the
// retrieval pack vendors a Redis client, but spec.md §5 names Redis
// explicitly as a supported skip-cache backend, and go-redis is the de
// facto standard client for it.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Redis{client: client}, nil
}

func (r *Redis) Has(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := r.client.Exists(ctx, skipKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Put(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Set(ctx, skipKeyPrefix+key, "1", 0).Err()
}

const skipKeyPrefix = "cigen:skipcache:"
