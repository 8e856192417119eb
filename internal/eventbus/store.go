package eventbus

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// campaign event stream name in JetStream
const StreamCampaigns = "CAMPAIGNS"

// Event wraps a stored payload with metadata. Data is the JSON the producer
// appended, so it renders inline in API responses.
type Event struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// EnsureStream creates the campaign stream if it does not exist. AddStream
// errors when the stream already exists with a different config, so the
// existence check comes first.
func (b *Bus) EnsureStream() error {
	if b == nil || b.js == nil {
		return errors.New("eventbus: no JetStream context")
	}
	if _, err := b.js.StreamInfo(StreamCampaigns); err == nil {
		return nil
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     StreamCampaigns,
		Subjects: []string{"campaigns.>", "offers.>", "deliveries.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// Append persists an event in the campaign stream.
func (b *Bus) Append(subject string, payload interface{}) error {
	if b == nil || b.js == nil {
		return errors.New("eventbus: no JetStream context")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = b.js.Publish(subject, data)
	return err
}

// History fetches the events currently available on a subject. Intended for
// admin inspection, not high-volume replay.
func (b *Bus) History(subject string) ([]Event, error) {
	if b == nil || b.js == nil {
		return nil, errors.New("eventbus: no JetStream context")
	}
	sub, err := b.js.SubscribeSync(subject, nats.BindStream(StreamCampaigns), nats.DeliverAll())
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	var events []Event
	for {
		msg, err := sub.NextMsg(100 * time.Millisecond)
		if errors.Is(err, nats.ErrTimeout) {
			break
		}
		if err != nil {
			return events, err
		}
		ev := Event{
			ID:        msg.Header.Get("Nats-Msg-Id"),
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		}
		if meta, err := msg.Metadata(); err == nil {
			ev.Timestamp = meta.Timestamp
		}
		events = append(events, ev)
	}
	return events, nil
}
