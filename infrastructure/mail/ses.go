// Package mail sends notification email through SES.
package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appErrors "velostream-backend/pkg/errors"
)

const charset = "UTF-8"

// sesAPI is the slice of the SES client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Sender implements ports.MailSink over SES. Sender address, recipient and
// the optional CC list are fixed at construction from configuration.
type Sender struct {
	client    sesAPI
	sender    string
	recipient string
	cc        []string
	logger    *zap.Logger
}

func NewSender(client *ses.Client, sender, recipient string, cc []string, logger *zap.Logger) *Sender {
	return &Sender{client: client, sender: sender, recipient: recipient, cc: cc, logger: logger}
}

// Send sends one plain-text message.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	dest := &types.Destination{ToAddresses: []string{s.recipient}}
	if len(s.cc) > 0 {
		dest.CcAddresses = s.cc
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.sender),
		Destination: dest,
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String(charset), Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Charset: aws.String(charset), Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return appErrors.NewExternalError("ses", err)
	}

	s.logger.Info("notification email sent",
		zap.String("subject", subject),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
