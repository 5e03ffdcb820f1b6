// Package mailer sends order-confirmation email via AWS SES.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"

	"funnel-orders/internal/common/aws"
)

// Mailer sends the post-checkout confirmation email. Like analytics, it is
// best-effort: the order path fires it without awaiting delivery.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg ConfirmationMessage) error
}

type ConfirmationMessage struct {
	To         string
	FirstName  string
	OrderID    string
	PlanName   string
	TotalPrice float64
}

// Noop discards every message. Used when email is disabled.
type Noop struct{}

func (Noop) SendOrderConfirmation(ctx context.Context, msg ConfirmationMessage) error {
	return nil
}

type SESMailer struct {
	client    *aws.SESClient
	fromEmail string
}

func NewSESMailer(client *aws.SESClient, fromEmail string) *SESMailer {
	return &SESMailer{client: client, fromEmail: fromEmail}
}

func (m *SESMailer) SendOrderConfirmation(ctx context.Context, msg ConfirmationMessage) error {
	subject := fmt.Sprintf("Order %s confirmed", msg.OrderID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour order %s is confirmed.\nPlan: %s\nTotal: $%.2f\n\nThank you!\n",
		msg.FirstName, msg.OrderID, msg.PlanName, msg.TotalPrice,
	)

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: &m.fromEmail,
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: &subject},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: &body},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}
