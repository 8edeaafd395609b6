package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Adapter stores keys as plain redis strings with no expiry.
type Adapter struct {
	client redis.Cmdable
}

func New(client redis.Cmdable) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Save(ctx context.Context, key, value string) error {
	return a.client.Set(ctx, key, value, 0).Err()
}

func (a *Adapter) Load(ctx context.Context, key string) (string, bool, error) {
	v, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}
