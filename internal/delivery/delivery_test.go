package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/models"
)

type mockSES struct {
	sendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.sendEmailFunc(ctx, params, optFns...)
}

type mockSNS struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.publishFunc(ctx, params, optFns...)
}

func testDiner() models.Diner {
	return models.Diner{
		ID:           uuid.New(),
		FirstName:    "Maria",
		Email:        "maria@example.com",
		Phone:        "+15550001111",
		ConsentEmail: true,
		ConsentSMS:   true,
	}
}

func TestSimulatedSenderRecordsWithoutProvider(t *testing.T) {
	s := NewSimulatedSender(zap.NewNop())

	res := s.Send(context.Background(), testDiner(), models.ChannelEmail, "Hello", "Body")

	assert.Equal(t, StatusSimulatedSent, res.Status)
	assert.True(t, res.Simulated)
}

func TestSimulatedSenderHonorsConsent(t *testing.T) {
	s := NewSimulatedSender(zap.NewNop())

	d := testDiner()
	d.ConsentSMS = false
	res := s.Send(context.Background(), d, models.ChannelSMS, "", "Text offer")

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Contains(t, res.Error, "consent")
}

func TestAWSSenderEmail(t *testing.T) {
	var captured *ses.SendEmailInput
	sesMock := &mockSES{
		sendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{}, nil
		},
	}
	s := NewAWSSenderWithClients(sesMock, nil, "offers@plateful.app", zap.NewNop())

	res := s.Send(context.Background(), testDiner(), models.ChannelEmail, "Taco Night", "Come by!")

	assert.Equal(t, StatusSent, res.Status)
	require.NotNil(t, captured)
	assert.Equal(t, "offers@plateful.app", *captured.Source)
	assert.Equal(t, []string{"maria@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Taco Night", *captured.Message.Subject.Data)
}

func TestAWSSenderSMSFailure(t *testing.T) {
	snsMock := &mockSNS{
		publishFunc: func(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	s := NewAWSSenderWithClients(nil, snsMock, "offers@plateful.app", zap.NewNop())

	res := s.Send(context.Background(), testDiner(), models.ChannelSMS, "", "Text offer")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "throttled")
}

func TestAWSSenderSkipsMissingContact(t *testing.T) {
	s := NewAWSSenderWithClients(nil, nil, "offers@plateful.app", zap.NewNop())

	d := testDiner()
	d.Email = ""
	res := s.Send(context.Background(), d, models.ChannelEmail, "Hi", "Body")

	assert.Equal(t, StatusSkipped, res.Status)
}
