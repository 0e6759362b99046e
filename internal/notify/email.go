package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
)

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender delivers notifications through SendGrid.
type EmailSender struct {
	client    mailClient
	fromEmail string
	fromName  string
}

func NewEmailSender(apiKey, fromEmail, fromName string) *EmailSender {
	return &EmailSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *EmailSender) Channel() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, to *domain.User, n domain.Notification) error {
	if to.Email == "" {
		return nil
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to.Nickname, to.Email)
	subject := fmt.Sprintf("%s (rental #%d)", n.Title, n.RentalID)
	htmlContent := fmt.Sprintf("<p>%s</p>", html.EscapeString(n.Text))
	message := mail.NewSingleEmail(from, subject, recipient, n.Text, htmlContent)

	logger.ExternalServiceCall("sendgrid", "send", "rentalID", n.RentalID, "userID", to.ID)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "send", nil, "status", response.StatusCode)
	return nil
}
