package notify

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
)

type mockMailClient struct {
	mock.Mock
}

func (m *mockMailClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	args := m.Called(ctx, email)
	resp, _ := args.Get(0).(*rest.Response)
	return resp, args.Error(1)
}

type mockMessagingClient struct {
	mock.Mock
}

func (m *mockMessagingClient) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

var testUser = &domain.User{ID: "u1", Email: "u1@example.com", Nickname: "Kim"}

func TestEmailSender_Send(t *testing.T) {
	ctx := context.Background()
	n := domain.Notification{Title: "Rental update", Text: "Rental started", RentalID: 3}

	t.Run("Success", func(t *testing.T) {
		client := new(mockMailClient)
		client.On("SendWithContext", ctx, mock.MatchedBy(func(m *mail.SGMailV3) bool {
			return m.Subject == "Rental update (rental #3)" && m.From.Address == "noreply@example.com"
		})).Return(&rest.Response{StatusCode: 202}, nil)

		s := &EmailSender{client: client, fromEmail: "noreply@example.com", fromName: "Neighbor Storage"}
		require.NoError(t, s.Send(ctx, testUser, n))
		client.AssertExpectations(t)
	})

	t.Run("Error status", func(t *testing.T) {
		client := new(mockMailClient)
		client.On("SendWithContext", ctx, mock.Anything).Return(&rest.Response{StatusCode: 401, Body: "unauthorized"}, nil)

		s := &EmailSender{client: client}
		err := s.Send(ctx, testUser, n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("No address", func(t *testing.T) {
		client := new(mockMailClient)
		s := &EmailSender{client: client}
		require.NoError(t, s.Send(ctx, &domain.User{ID: "u2"}, n))
		client.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	})
}

func TestPushSender_Send(t *testing.T) {
	ctx := context.Background()
	n := domain.Notification{Title: "Rental update", Text: "Item returned", RentalID: 9}

	client := new(mockMessagingClient)
	client.On("Send", ctx, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Topic == "user-u1" && m.Notification.Body == "Item returned" && m.Data["rental_id"] == "9"
	})).Return("msg-1", nil).Once()
	client.On("Send", ctx, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	s := &PushSender{client: client}
	require.NoError(t, s.Send(ctx, testUser, n))
	assert.Error(t, s.Send(ctx, testUser, n))
	client.AssertExpectations(t)
}
