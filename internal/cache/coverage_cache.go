package cache

import (
	"context"
	"encoding/json"
	"time"

	"snapintake/internal/model"

	"github.com/redis/go-redis/v9"
)

// CoverageCache holds the latest oracle coverage per session so status reads
// don't have to wait on a fresh evaluation.
type CoverageCache interface {
	Set(ctx context.Context, sessionID string, coverage *model.SectionCoverage) error
	Get(ctx context.Context, sessionID string) (*model.SectionCoverage, error)
	Delete(ctx context.Context, sessionID string) error
}

type coverageCache struct {
	client *redis.Client
}

func NewCoverageCache(client *redis.Client) CoverageCache {
	return &coverageCache{
		client: client,
	}
}

func (c *coverageCache) Set(ctx context.Context, sessionID string, coverage *model.SectionCoverage) error {
	data, err := json.Marshal(coverage)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "coverage:"+sessionID, data, 30*time.Minute).Err()
}

func (c *coverageCache) Get(ctx context.Context, sessionID string) (*model.SectionCoverage, error) {
	data, err := c.client.Get(ctx, "coverage:"+sessionID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var coverage model.SectionCoverage
	err = json.Unmarshal([]byte(data), &coverage)
	return &coverage, err
}

func (c *coverageCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "coverage:"+sessionID).Err()
}
