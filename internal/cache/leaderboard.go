package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questtracker/internal/model"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "questtracker:leaderboard"

type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	LeaderboardTTL time.Duration `yaml:"leaderboardTTL"`
}

type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLeaderboardCache(cfg Config) (*LeaderboardCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.LeaderboardTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderboardCache{rdb: rdb, ttl: ttl}, nil
}

func (c *LeaderboardCache) Get(ctx context.Context) ([]*model.LeaderboardEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entries []*model.LeaderboardEntry
	if err = json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []*model.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, leaderboardKey, raw, c.ttl).Err()
}

func (c *LeaderboardCache) Close() error {
	return c.rdb.Close()
}
