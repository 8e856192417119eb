package eventbus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The API must keep working when the broker is down, so every Bus method has
// to be safe on a nil receiver.
func TestNilBusIsSafe(t *testing.T) {
	var b *Bus

	assert.NotPanics(t, func() { b.Publish(SubjectCampaignCreated, map[string]string{"id": "x"}) })
	assert.NotPanics(t, func() { b.Close() })

	assert.Error(t, b.EnsureStream())
	assert.Error(t, b.Append(SubjectCampaignSent, map[string]int{"sent": 3}))

	_, err := b.History("campaigns.>")
	assert.Error(t, err)

	_, err = b.Subscribe(SubjectOfferGenerated, nil)
	assert.Error(t, err)
}

func TestEventRendersPayloadInline(t *testing.T) {
	ev := Event{
		ID:        "msg-1",
		Subject:   SubjectCampaignSent,
		Data:      json.RawMessage(`{"campaign_id":"abc","counts":{"simulated_sent":3}}`),
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	out, err := json.Marshal(ev)
	require.NoError(t, err)

	// Raw JSON payload, not a base64 blob.
	assert.Contains(t, string(out), `"data":{"campaign_id":"abc"`)
	assert.Contains(t, string(out), `"subject":"campaigns.sent"`)
}

func TestSubjectsMatchStreamBinding(t *testing.T) {
	// Every emitted subject must land in a stream-bound prefix or Append
	// will fail at runtime.
	prefixes := []string{"campaigns.", "offers.", "deliveries."}
	for _, subject := range []string{
		SubjectOfferGenerated,
		SubjectCampaignCreated,
		SubjectCampaignSent,
		SubjectCampaignFailed,
		SubjectDeliveryRecorded,
	} {
		matched := false
		for _, p := range prefixes {
			if len(subject) > len(p) && subject[:len(p)] == p {
				matched = true
				break
			}
		}
		assert.True(t, matched, "subject %q outside stream subjects", subject)
	}
}
