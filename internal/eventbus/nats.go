// Package eventbus publishes domain events over NATS so downstream consumers
// (analytics, delivery workers) can react without coupling to the API.
package eventbus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects emitted by the API. Consumers subscribe with wildcards, e.g.
// "campaigns.>".
const (
	SubjectOfferGenerated   = "offers.generated"
	SubjectCampaignCreated  = "campaigns.created"
	SubjectCampaignSent     = "campaigns.sent"
	SubjectCampaignFailed   = "campaigns.failed"
	SubjectDeliveryRecorded = "deliveries.recorded"
)

// Bus is a thin publisher over a NATS connection. A nil Bus is safe to use;
// every publish becomes a no-op, which keeps the API functional when the
// broker is down or not configured.
type Bus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Connect dials NATS and opens a JetStream context for the event store.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return &Bus{nc: nc, js: js, logger: logger}, nil
}

// Publish marshals the payload and fires it at the subject. Failures are
// logged, not returned; events are advisory and must never fail a request.
func (b *Bus) Publish(subject string, payload interface{}) {
	if b == nil || b.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("event marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		b.logger.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Subscribe registers a handler for a subject. Used by the delivery worker
// and by tests.
func (b *Bus) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if b == nil || b.nc == nil {
		return nil, nats.ErrConnectionClosed
	}
	return b.nc.Subscribe(subject, handler)
}

// Close drains the connection. Safe on a nil Bus.
func (b *Bus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	b.nc.Close()
}
