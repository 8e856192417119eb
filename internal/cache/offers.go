// Package cache provides a Redis-backed cache for generated offer content,
// keyed by the generation parameters so identical requests within the TTL
// reuse the same copy instead of paying for another completion.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/offer"
)

// ErrMiss is returned when no cached content exists for the key.
var ErrMiss = errors.New("cache: miss")

// OfferCache stores finalized offer content with a fixed TTL.
type OfferCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*OfferCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return &OfferCache{client: client, ttl: ttl, logger: logger}, nil
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *OfferCache {
	return &OfferCache{client: client, ttl: ttl, logger: logger}
}

// Key derives a stable cache key from the generation parameters.
func Key(req offer.Request, format offer.OutputFormat) string {
	payload, _ := json.Marshal(struct {
		Cuisine     string                   `json:"cuisine"`
		Tone        string                   `json:"tone"`
		Channel     offer.Channel            `json:"channel"`
		Goal        string                   `json:"goal"`
		Constraints string                   `json:"constraints"`
		Restaurant  *offer.RestaurantDetails `json:"restaurant,omitempty"`
		Format      offer.OutputFormat       `json:"format"`
	}{req.Cuisine, req.Tone, req.Channel, req.Goal, req.Constraints, req.Restaurant, format})
	sum := sha256.Sum256(payload)
	return "offer:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached content for the key, or ErrMiss.
func (c *OfferCache) Get(ctx context.Context, key string) (*offer.Content, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get: %w", err)
	}
	var content offer.Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("cache: decode: %w", err)
	}
	return &content, nil
}

// Set stores the content under the key. Failures are logged, not returned;
// caching is best-effort and never blocks a response.
func (c *OfferCache) Set(ctx context.Context, key string, content *offer.Content) {
	raw, err := json.Marshal(content)
	if err != nil {
		c.logger.Error("offer cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("offer cache write failed", zap.Error(err))
	}
}

// Ping checks the Redis connection.
func (c *OfferCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *OfferCache) Close() error {
	return c.client.Close()
}
