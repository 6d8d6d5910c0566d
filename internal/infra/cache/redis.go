package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

// Redis shares the listing between replicas. Errors degrade to cache misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisWithClient(client, ttl, logger), nil
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger.Named("cache")}
}

// generation counter, bumped on every Invalidate; never expires
const generationKey = resultsKey + ":gen"

var errStaleGeneration = errors.New("results generation moved on")

func (r *Redis) Get(ctx context.Context) (*domain.Results, uint64, bool) {
	vals, err := r.client.MGet(ctx, resultsKey, generationKey).Result()
	if err != nil {
		r.logger.Warn("redis get failed", zap.Error(err))
		return nil, 0, false
	}
	var gen uint64
	if s, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseUint(s, 10, 64); err != nil {
			r.logger.Warn("unreadable results generation", zap.String("value", s))
			return nil, 0, false
		}
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var res domain.Results
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		r.logger.Warn("discarding unreadable cached results", zap.Error(err))
		return nil, gen, false
	}
	return &res, gen, true
}

// Set writes res under WATCH so an Invalidate from any replica after gen was read wins.
func (r *Redis) Set(ctx context.Context, gen uint64, res *domain.Results) {
	data, err := json.Marshal(res)
	if err != nil {
		r.logger.Warn("encode results for cache", zap.Error(err))
		return
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, resultsKey, data, r.ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("skip caching stale results", zap.Uint64("gen", gen))
	default:
		r.logger.Warn("redis set failed", zap.Error(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey)
		p.Del(ctx, resultsKey)
		return nil
	})
	if err != nil {
		r.logger.Warn("redis invalidate failed", zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.client.Close() }
