// Package delivery sends campaign messages to diners. The production sender
// uses SES for email and SNS for SMS; the simulated sender records outcomes
// without touching any provider and is the default outside production.
package delivery

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/plateful/api/internal/models"
)

// Result is the per-recipient outcome of a send attempt.
type Result struct {
	Status    string `json:"status"`
	Simulated bool   `json:"simulated"`
	Error     string `json:"error,omitempty"`
}

const (
	StatusSimulatedSent = "simulated_sent"
	StatusSent          = "sent"
	StatusFailed        = "failed"
	StatusSkipped       = "skipped"
)

var ErrNoContact = errors.New("delivery: recipient has no contact for channel")

// Sender delivers one rendered message to one diner.
type Sender interface {
	Send(ctx context.Context, diner models.Diner, channel models.Channel, subject, body string) Result
}

// SimulatedSender logs what would have been sent. Consent is still enforced
// so simulated runs report realistic skip counts.
type SimulatedSender struct {
	logger *zap.Logger
}

func NewSimulatedSender(logger *zap.Logger) *SimulatedSender {
	return &SimulatedSender{logger: logger}
}

func (s *SimulatedSender) Send(_ context.Context, diner models.Diner, channel models.Channel, subject, body string) Result {
	if skip, reason := consentSkip(diner, channel); skip {
		return Result{Status: StatusSkipped, Simulated: true, Error: reason}
	}
	s.logger.Debug("simulated delivery",
		zap.String("diner_id", diner.ID.String()),
		zap.String("channel", string(channel)),
		zap.Int("subject_len", len(subject)),
		zap.Int("body_len", len(body)),
	)
	return Result{Status: StatusSimulatedSent, Simulated: true}
}

func consentSkip(diner models.Diner, channel models.Channel) (bool, string) {
	switch channel {
	case models.ChannelEmail:
		if !diner.ConsentEmail {
			return true, "no email consent"
		}
		if diner.Email == "" {
			return true, ErrNoContact.Error()
		}
	case models.ChannelSMS:
		if !diner.ConsentSMS {
			return true, "no sms consent"
		}
		if diner.Phone == "" {
			return true, ErrNoContact.Error()
		}
	}
	return false, ""
}
