package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/offer"
)

func newTestCache(t *testing.T) (*OfferCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, 5*time.Minute, zap.NewNop()), mr
}

func sampleRequest() offer.Request {
	return offer.Request{
		Cuisine: "Thai",
		Tone:    "warm",
		Channel: offer.ChannelSMS,
		Goal:    "fill weekday seats",
	}
}

func TestKeyStability(t *testing.T) {
	req := sampleRequest()
	assert.Equal(t, Key(req, offer.FormatText), Key(req, offer.FormatText))
	assert.NotEqual(t, Key(req, offer.FormatText), Key(req, offer.FormatJSON))

	other := req
	other.Cuisine = "Italian"
	assert.NotEqual(t, Key(req, offer.FormatText), Key(other, offer.FormatText))
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Get(context.Background(), "offer:absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	content := &offer.Content{
		Subject: "Special Thai Offer",
		Body:    "Hi {FirstName}! Try our Thai today!",
		Channel: offer.ChannelSMS,
		Metadata: offer.Metadata{
			Tier:      offer.TierPrimary,
			Processed: true,
		},
	}
	key := Key(sampleRequest(), offer.FormatText)

	c.Set(ctx, key, content)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content.Body, got.Body)
	assert.Equal(t, offer.TierPrimary, got.Metadata.Tier)
}

func TestEntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key(sampleRequest(), offer.FormatText)

	c.Set(ctx, key, &offer.Content{Body: "short lived"})
	mr.FastForward(6 * time.Minute)

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}
