package notify

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSender delivers notifications through Firebase Cloud Messaging. Devices
// subscribe to their user's topic, so no device tokens are stored here.
type PushSender struct {
	client messagingClient
}

func NewPushSender(ctx context.Context, projectID, credentialsFile string) (*PushSender, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &PushSender{client: client}, nil
}

// UserTopic is the FCM topic a user's devices subscribe to.
func UserTopic(userID string) string {
	return "user-" + userID
}

func (s *PushSender) Channel() string { return "push" }

func (s *PushSender) Send(ctx context.Context, to *domain.User, n domain.Notification) error {
	msg := &messaging.Message{
		Topic: UserTopic(to.ID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Text,
		},
		Data: map[string]string{
			"type":      "RENTAL_UPDATE",
			"rental_id": strconv.FormatInt(n.RentalID, 10),
		},
	}
	logger.ExternalServiceCall("fcm", "send", "rentalID", n.RentalID, "userID", to.ID)
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("failed to send push notification: %w", err)
	}
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	return err
}
