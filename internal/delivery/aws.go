package delivery

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/models"
)

// SESService and SNSService mirror the SDK methods we call, for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSSender delivers email through SES and SMS through SNS.
type AWSSender struct {
	ses    SESService
	sns    SNSService
	from   string
	logger *zap.Logger
}

func NewAWSSender(ctx context.Context, region, fromAddress string, logger *zap.Logger) (*AWSSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &AWSSender{
		ses:    ses.NewFromConfig(cfg),
		sns:    sns.NewFromConfig(cfg),
		from:   fromAddress,
		logger: logger,
	}, nil
}

// NewAWSSenderWithClients wires explicit clients. Used by tests.
func NewAWSSenderWithClients(sesClient SESService, snsClient SNSService, fromAddress string, logger *zap.Logger) *AWSSender {
	return &AWSSender{ses: sesClient, sns: snsClient, from: fromAddress, logger: logger}
}

func (s *AWSSender) Send(ctx context.Context, diner models.Diner, channel models.Channel, subject, body string) Result {
	if skip, reason := consentSkip(diner, channel); skip {
		return Result{Status: StatusSkipped, Error: reason}
	}

	var err error
	switch channel {
	case models.ChannelEmail:
		err = s.sendEmail(ctx, diner.Email, subject, body)
	case models.ChannelSMS:
		err = s.sendSMS(ctx, diner.Phone, body)
	}
	if err != nil {
		s.logger.Error("delivery failed",
			zap.String("diner_id", diner.ID.String()),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return Result{Status: StatusFailed, Error: err.Error()}
	}
	return Result{Status: StatusSent}
}

func (s *AWSSender) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.from),
	})
	return err
}

func (s *AWSSender) sendSMS(ctx context.Context, to, message string) error {
	_, err := s.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}
