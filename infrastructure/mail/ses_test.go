package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSender_Send(t *testing.T) {
	// Arrange
	fake := &fakeSES{}
	sender := &Sender{
		client:    fake,
		sender:    "pipeline@example.com",
		recipient: "coach@example.com",
		cc:        []string{"analyst@example.com"},
		logger:    zap.NewNop(),
	}

	// Act
	err := sender.Send(context.Background(), "subject", "body text")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, fake.input)
	assert.Equal(t, "pipeline@example.com", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"coach@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, []string{"analyst@example.com"}, fake.input.Destination.CcAddresses)
	assert.Equal(t, "subject", aws.ToString(fake.input.Message.Subject.Data))
	assert.Equal(t, "body text", aws.ToString(fake.input.Message.Body.Text.Data))
	assert.Equal(t, "UTF-8", aws.ToString(fake.input.Message.Body.Text.Charset))
}

func TestSender_Send_NoCC(t *testing.T) {
	// Arrange
	fake := &fakeSES{}
	sender := &Sender{client: fake, sender: "a@example.com", recipient: "b@example.com", logger: zap.NewNop()}

	// Act
	err := sender.Send(context.Background(), "subject", "body")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, fake.input.Destination.CcAddresses)
}

func TestSender_Send_Error(t *testing.T) {
	fake := &fakeSES{err: errors.New("ses rejected the message")}
	sender := &Sender{client: fake, sender: "a@example.com", recipient: "b@example.com", logger: zap.NewNop()}

	err := sender.Send(context.Background(), "subject", "body")

	assert.Error(t, err)
}

func TestLogSender_NeverFails(t *testing.T) {
	sender := NewLogSender(zap.NewNop())

	assert.NoError(t, sender.Send(context.Background(), "subject", "body"))
}
