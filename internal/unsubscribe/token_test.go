package unsubscribe

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/api/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	service := NewTokenService("test-secret-key-123")
	dinerID := uuid.New()

	token := service.Generate(dinerID, models.ChannelEmail)
	require.NotEmpty(t, token)

	gotID, gotChannel, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, dinerID, gotID)
	assert.Equal(t, models.ChannelEmail, gotChannel)
}

func TestTokenRejectsTampering(t *testing.T) {
	service := NewTokenService("secret")
	token := service.Generate(uuid.New(), models.ChannelSMS)

	encoded, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)

	// Flip a character in the signature.
	flipped := "0"
	if sig[0] == '0' {
		flipped = "1"
	}
	_, _, err := service.Verify(encoded + "." + flipped + sig[1:])
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	token := NewTokenService("key-a").Generate(uuid.New(), models.ChannelEmail)

	_, _, err := NewTokenService("key-b").Verify(token)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenRejectsGarbage(t *testing.T) {
	service := NewTokenService("secret")

	for _, token := range []string{"", "no-dot", "bad.sig", "!!!.deadbeef"} {
		_, _, err := service.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
