package cache

import (
	"context"
	"encoding/json"
	"time"

	"snapintake/internal/model"

	"github.com/redis/go-redis/v9"
)

// ResumeCache keeps the most recent checkpoint per session so a returning
// applicant can resume without a store round trip. The checkpoint log in
// MongoDB remains the source of truth on a miss.
type ResumeCache interface {
	Set(ctx context.Context, sessionID string, checkpoint *model.Checkpoint) error
	Get(ctx context.Context, sessionID string) (*model.Checkpoint, error)
	Delete(ctx context.Context, sessionID string) error
}

type resumeCache struct {
	client *redis.Client
}

func NewResumeCache(client *redis.Client) ResumeCache {
	return &resumeCache{
		client: client,
	}
}

func (c *resumeCache) Set(ctx context.Context, sessionID string, checkpoint *model.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "resume:"+sessionID, data, 24*time.Hour).Err()
}

func (c *resumeCache) Get(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	data, err := c.client.Get(ctx, "resume:"+sessionID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var checkpoint model.Checkpoint
	err = json.Unmarshal([]byte(data), &checkpoint)
	return &checkpoint, err
}

func (c *resumeCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "resume:"+sessionID).Err()
}
