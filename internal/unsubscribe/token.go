// Package unsubscribe issues and validates the signed opt-out tokens embedded
// in campaign emails.
package unsubscribe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/api/internal/models"
)

// TokenTTL bounds how long an unsubscribe link stays valid.
const TokenTTL = 30 * 24 * time.Hour

var (
	ErrMalformedToken = errors.New("malformed unsubscribe token")
	ErrBadSignature   = errors.New("unsubscribe token signature mismatch")
	ErrExpiredToken   = errors.New("unsubscribe token expired")
)

// TokenService signs diner opt-out tokens with HMAC-SHA256
type TokenService struct {
	signingKey []byte
}

// NewTokenService creates a new token service
func NewTokenService(signingKey string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
	}
}

// Generate creates a URL-safe token identifying the diner and channel
func (s *TokenService) Generate(dinerID uuid.UUID, channel models.Channel) string {
	payload := fmt.Sprintf("%s:%s:%d", dinerID, channel, time.Now().Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(payload)
}

// Verify checks the signature and age, returning the diner and channel the
// token was issued for.
func (s *TokenService) Verify(token string) (uuid.UUID, models.Channel, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return uuid.Nil, "", ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}
	payload := string(raw)

	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return uuid.Nil, "", ErrBadSignature
	}

	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return uuid.Nil, "", ErrMalformedToken
	}

	dinerID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}

	channel := models.Channel(parts[1])
	if !channel.Valid() {
		return uuid.Nil, "", ErrMalformedToken
	}

	issued, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}
	if time.Since(time.Unix(issued, 0)) > TokenTTL {
		return uuid.Nil, "", ErrExpiredToken
	}

	return dinerID, channel, nil
}

// sign creates an HMAC-SHA256 signature
func (s *TokenService) sign(data string) string {
	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
