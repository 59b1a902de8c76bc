// Package notify fans project.created events out to homeowner-facing
// channels: a confirmation email via SES and an SMS topic via SNS.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"bidflow/internal/common/logger"
	"bidflow/internal/events"
)

// EmailSender is the slice of the SES API the subscriber needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSPublisher is the slice of the SNS API the subscriber needs.
type SMSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	TopicARN     string
}

type Subscriber struct {
	config Config
	email  EmailSender
	sms    SMSPublisher
	log    logger.Logger
}

func New(config Config, email EmailSender, sms SMSPublisher, log logger.Logger) *Subscriber {
	return &Subscriber{
		config: config,
		email:  email,
		sms:    sms,
		log: log.WithFields(map[string]interface{}{
			"subscriber": "notify",
		}),
	}
}

// Handle sends the enabled notifications for one project.created event.
// Channel failures are independent; the first error is reported after
// both channels ran.
func (s *Subscriber) Handle(ctx context.Context, env events.Envelope) error {
	projectID, _ := env.Payload["project_id"].(string)
	userID, _ := env.Payload["user_id"].(string)
	description, _ := env.Payload["description"].(string)
	status, _ := env.Payload["status"].(string)

	var firstErr error

	if s.config.EmailEnabled && s.email != nil {
		if err := s.sendEmail(ctx, userID, projectID, description, status); err != nil {
			s.log.WithError(err).Error("confirmation email failed", map[string]interface{}{
				"project_id": projectID,
			})
			firstErr = err
		}
	}

	if s.config.SMSEnabled && s.sms != nil {
		if err := s.sendSMS(ctx, projectID, description); err != nil {
			s.log.WithError(err).Error("sms notification failed", map[string]interface{}{
				"project_id": projectID,
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *Subscriber) sendEmail(ctx context.Context, userID, projectID, description, status string) error {
	subject := "Your project request is in"
	body := fmt.Sprintf(
		"We received your request for %s.\nProject ID: %s\nStatus: %s\n\nContractors will be in touch soon.",
		description, projectID, status,
	)

	_, err := s.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.config.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{userID},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (s *Subscriber) sendSMS(ctx context.Context, projectID, description string) error {
	_, err := s.sms.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.config.TopicARN),
		Message:  aws.String(fmt.Sprintf("New project %s: %s", projectID, description)),
	})
	return err
}
