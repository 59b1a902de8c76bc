package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidflow/internal/common/logger"
	"bidflow/internal/events"
)

type mockEmail struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (m *mockEmail) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSMS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSMS) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

func testEnvelope() events.Envelope {
	return events.NewEnvelope(events.TopicProjectCreated, "dialogue-engine", "", map[string]interface{}{
		"project_id":  "proj-1",
		"user_id":     "homeowner@example.com",
		"description": "roof repair in Austin, TX",
		"status":      "final",
	})
}

func TestHandleSendsBothChannels(t *testing.T) {
	email := &mockEmail{}
	sms := &mockSMS{}
	sub := New(Config{
		EmailEnabled: true,
		FromEmail:    "noreply@bidflow.dev",
		SMSEnabled:   true,
		TopicARN:     "arn:aws:sns:us-east-1:123:projects",
	}, email, sms, logger.NewTestLogger(t))

	require.NoError(t, sub.Handle(context.Background(), testEnvelope()))

	require.Len(t, email.inputs, 1)
	assert.Equal(t, "noreply@bidflow.dev", *email.inputs[0].Source)
	assert.Equal(t, []string{"homeowner@example.com"}, email.inputs[0].Destination.ToAddresses)
	assert.Contains(t, *email.inputs[0].Message.Body.Text.Data, "roof repair in Austin, TX")

	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:projects", *sms.inputs[0].TopicArn)
	assert.Contains(t, *sms.inputs[0].Message, "proj-1")
}

func TestHandleDisabledChannels(t *testing.T) {
	email := &mockEmail{}
	sms := &mockSMS{}
	sub := New(Config{}, email, sms, logger.NewTestLogger(t))

	require.NoError(t, sub.Handle(context.Background(), testEnvelope()))
	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}

func TestHandleEmailFailureStillSendsSMS(t *testing.T) {
	email := &mockEmail{err: errors.New("ses throttled")}
	sms := &mockSMS{}
	sub := New(Config{
		EmailEnabled: true,
		FromEmail:    "noreply@bidflow.dev",
		SMSEnabled:   true,
		TopicARN:     "arn:topic",
	}, email, sms, logger.NewNoOpLogger())

	err := sub.Handle(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.Len(t, sms.inputs, 1, "sms must still go out when email fails")
}
