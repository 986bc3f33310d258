package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubjectCache stores family member -> patient links in redis.
// Links never change once written; entries expire after ttl.
type SubjectCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubjectCache creates a new subject cache
func NewSubjectCache(client *redis.Client, ttl time.Duration) *SubjectCache {
	return &SubjectCache{client: client, ttl: ttl}
}

func subjectKey(identityID string) string {
	return fmt.Sprintf("subject:%s", identityID)
}

// GetSubject returns the cached subject for identityID
func (c *SubjectCache) GetSubject(ctx context.Context, identityID string) (string, bool, error) {
	subjectID, err := c.client.Get(ctx, subjectKey(identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read subject: %w", err)
	}
	return subjectID, true, nil
}

// SetSubject caches the subject for identityID
func (c *SubjectCache) SetSubject(ctx context.Context, identityID, subjectID string) error {
	if err := c.client.Set(ctx, subjectKey(identityID), subjectID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write subject: %w", err)
	}
	return nil
}
