package offer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type generatorFunc func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)

func (f generatorFunc) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, systemPrompt, userPrompt, maxTokens, temperature)
}

func fixedGenerator(out string) Generator {
	return generatorFunc(func(context.Context, string, string, int, float64) (string, error) {
		return out, nil
	})
}

func failingGenerator() Generator {
	return generatorFunc(func(context.Context, string, string, int, float64) (string, error) {
		return "", errors.New("upstream unavailable")
	})
}

func testRequest(channel Channel) Request {
	return Request{
		Cuisine: "Italian",
		Tone:    "friendly",
		Channel: channel,
		Goal:    "drive reservations",
	}
}

func TestGenerateOfferValidation(t *testing.T) {
	w := NewWriter(nil, zap.NewNop())

	cases := []Request{
		{},
		{Cuisine: "Italian", Tone: "friendly", Channel: "fax", Goal: "x"},
		{Tone: "friendly", Channel: ChannelEmail, Goal: "x"},
		{Cuisine: "Italian", Channel: ChannelEmail, Goal: "x"},
		{Cuisine: "Italian", Tone: "friendly", Channel: ChannelEmail},
	}
	for _, req := range cases {
		_, err := w.GenerateOffer(context.Background(), req, FormatText)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestGenerateOfferMarkerFormat(t *testing.T) {
	raw := "SUBJECT: Big Sale!!!\nBODY: HELLO there, come TODAY for amazing deals!!!"
	w := NewWriter(fixedGenerator(raw), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatText)

	require.NoError(t, err)
	assert.Equal(t, "Big Sale!!!", content.Subject)
	assert.Contains(t, content.Body, "Hello there")
	assert.Contains(t, content.Body, "TODAY")
	assert.NotContains(t, content.Body, "!!")
	assert.Equal(t, TierPrimary, content.Metadata.Tier)
	assert.True(t, content.Metadata.AIGenerated)
}

func TestGenerateOfferJSONFormat(t *testing.T) {
	raw := `{"subject":"Hi","paragraphs":["Hello {FirstName}, welcome back","Great food awaits you","Best regards, Team"]}`
	w := NewWriter(fixedGenerator(raw), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatJSON)

	require.NoError(t, err)
	assert.Equal(t, "Hi", content.Subject)
	assert.Contains(t, content.Body, "Hello {FirstName}, welcome back\n\nGreat food awaits you")
	assert.True(t, strings.Contains(content.Body, "Best regards, Team"))
	assert.True(t, content.Metadata.JSONStructured)
	assert.Equal(t, 1, strings.Count(content.Body, FirstNameToken))
}

func TestGenerateOfferFallbackTier(t *testing.T) {
	calls := 0
	gen := generatorFunc(func(context.Context, string, string, int, float64) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("boom")
		}
		return "Hi {FirstName}! Fresh pasta tonight, reserve now.", nil
	})
	w := NewWriter(gen, zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelSMS), FormatText)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, TierFallback, content.Metadata.Tier)
	assert.Contains(t, content.Body, "Fresh pasta tonight")
}

func TestGenerateOfferTierExhaustion(t *testing.T) {
	w := NewWriter(failingGenerator(), zap.NewNop())
	req := testRequest(ChannelSMS)
	req.Cuisine = "Thai"

	content, err := w.GenerateOffer(context.Background(), req, FormatText)

	require.NoError(t, err)
	assert.Equal(t, "Hi {FirstName}! Try our Thai today!", content.Body)
	assert.LessOrEqual(t, runeLen(content.Body), SMSLimit)
	assert.Equal(t, TierEmergency, content.Metadata.Tier)
	assert.False(t, content.Metadata.AIGenerated)
}

func TestGenerateOfferEmergencyEmail(t *testing.T) {
	req := testRequest(ChannelEmail)
	req.Restaurant = &RestaurantDetails{Name: "Luigi's", WebsiteURL: "https://luigis.example"}
	w := NewWriter(nil, zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), req, FormatText)

	require.NoError(t, err)
	assert.Equal(t, "Special Italian Offer", content.Subject)
	assert.Contains(t, content.Body, FirstNameToken)
	assert.Contains(t, content.Body, "https://luigis.example")
	assert.Equal(t, TierEmergency, content.Metadata.Tier)
}

func TestGenerateOfferLengthInvariant(t *testing.T) {
	longEmail := "SUBJECT: A deliberately very long subject line that runs far past the sixty character cap\nBODY: " +
		strings.Repeat("Our chef has prepared something remarkable for you this season. ", 20) +
		"Reserve your table today!"
	w := NewWriter(fixedGenerator(longEmail), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatText)
	require.NoError(t, err)
	assert.LessOrEqual(t, runeLen(content.Subject), EmailSubjectLimit)
	assert.LessOrEqual(t, runeLen(content.Body), EmailBodyLimit)

	longSMS := strings.Repeat("taste the difference with us. ", 20)
	w = NewWriter(fixedGenerator(longSMS), zap.NewNop())

	content, err = w.GenerateOffer(context.Background(), testRequest(ChannelSMS), FormatText)
	require.NoError(t, err)
	assert.LessOrEqual(t, runeLen(content.Body), SMSLimit)
	assert.NotContains(t, content.Body, "\n")
}

func TestGenerateOfferRawJSONRecheck(t *testing.T) {
	// Generator ignores the text format and answers with JSON anyway; the
	// body must not leak raw JSON structure.
	raw := `{"paragraphs": ["Hello {FirstName}", "Dinner specials all week"], "subject": "Hey"}`
	w := NewWriter(fixedGenerator(raw), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelSMS), FormatText)

	require.NoError(t, err)
	assert.False(t, content.Metadata.JSONStructured)
}

func TestGenerateOfferTokenEnforced(t *testing.T) {
	raw := "SUBJECT: Hey\nBODY: Hello {FirstName}, welcome back {FirstName}. See you soon {FirstName}!"
	w := NewWriter(fixedGenerator(raw), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatText)

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(content.Body, FirstNameToken))
}

func TestGenerateOfferMetadataStamped(t *testing.T) {
	w := NewWriter(fixedGenerator("Hi {FirstName}! Pad thai night, come by soon."), zap.NewNop())

	content, err := w.GenerateOffer(context.Background(), testRequest(ChannelSMS), FormatText)

	require.NoError(t, err)
	md := content.Metadata
	assert.True(t, md.Processed)
	assert.Equal(t, runeLen(content.Body), md.BodyLength)
	assert.True(t, md.HasFirstNameToken)

	m := md.ToMap()
	assert.Equal(t, true, m["processed"])
	assert.Equal(t, string(TierPrimary), m["tier"])
}

type stubRenderer struct {
	out string
	err error
}

func (s stubRenderer) Render(context.Context, *Content) (string, error) { return s.out, s.err }

func TestGenerateOfferHTMLCompanion(t *testing.T) {
	raw := "SUBJECT: Hey\nBODY: Hello {FirstName}, our tasting menu is back this weekend."

	t.Run("html attached on success", func(t *testing.T) {
		w := NewWriter(fixedGenerator(raw), zap.NewNop(), WithHTMLRenderer(stubRenderer{out: "<p>hi</p>"}))
		content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatText)
		require.NoError(t, err)
		assert.Equal(t, "<p>hi</p>", content.HTML)
		assert.True(t, content.Metadata.HasHTML)
	})

	t.Run("render failure never blocks the body", func(t *testing.T) {
		w := NewWriter(fixedGenerator(raw), zap.NewNop(), WithHTMLRenderer(stubRenderer{err: errors.New("render boom")}))
		content, err := w.GenerateOffer(context.Background(), testRequest(ChannelEmail), FormatText)
		require.NoError(t, err)
		assert.Empty(t, content.HTML)
		assert.NotEmpty(t, content.Body)
	})
}

func TestGenerateOfferCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := generatorFunc(func(ctx context.Context, _, _ string, _ int, _ float64) (string, error) {
		return "", ctx.Err()
	})
	w := NewWriter(gen, zap.NewNop())

	content, err := w.GenerateOffer(ctx, testRequest(ChannelSMS), FormatText)

	require.NoError(t, err)
	assert.Equal(t, TierEmergency, content.Metadata.Tier)
}
