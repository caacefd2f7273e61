package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-service/sender"
	"marketplace-service/services"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendTemplate(ctx context.Context, to sender.Recipient, templateID int64, params map[string]interface{}) (sender.SendResult, error) {
	args := m.Called(ctx, to, templateID, params)
	return args.Get(0).(sender.SendResult), args.Error(1)
}

var testTemplates = map[string]int64{
	services.TemplateOrderConfirmation: 11,
	services.TemplateLoyaltyCoupon:     0,
}

func TestDeliver_RetriesUntilSuccess(t *testing.T) {
	s := new(mockSender)
	to := sender.Recipient{Email: "ada@example.com", Name: "Ada"}
	s.On("SendTemplate", mock.Anything, to, int64(11), mock.Anything).
		Return(sender.SendResult{}, errors.New("503")).Twice()
	s.On("SendTemplate", mock.Anything, to, int64(11), mock.Anything).
		Return(sender.SendResult{MessageID: "m-1"}, nil).Once()

	svc := services.WithRetryDelay(services.NewNotificationService(s, testTemplates, testLogger), time.Millisecond)
	err := svc.Deliver(context.Background(), services.Notification{
		Template: services.TemplateOrderConfirmation, To: "ada@example.com", Name: "Ada",
	})
	require.NoError(t, err)
	s.AssertNumberOfCalls(t, "SendTemplate", 3)
}

func TestDeliver_GivesUpAfterThreeAttempts(t *testing.T) {
	s := new(mockSender)
	s.On("SendTemplate", mock.Anything, mock.Anything, int64(11), mock.Anything).
		Return(sender.SendResult{}, errors.New("503"))

	svc := services.WithRetryDelay(services.NewNotificationService(s, testTemplates, testLogger), time.Millisecond)
	err := svc.Deliver(context.Background(), services.Notification{Template: services.TemplateOrderConfirmation, To: "ada@example.com"})
	require.Error(t, err)
	s.AssertNumberOfCalls(t, "SendTemplate", 3)
}

func TestDeliver_UnconfiguredTemplateOrRecipient(t *testing.T) {
	s := new(mockSender)
	svc := services.NewNotificationService(s, testTemplates, testLogger)

	assert.Error(t, svc.Deliver(context.Background(), services.Notification{Template: services.TemplateLoyaltyCoupon, To: "a@example.com"}))
	assert.Error(t, svc.Deliver(context.Background(), services.Notification{Template: "unknown", To: "a@example.com"}))
	assert.Error(t, svc.Deliver(context.Background(), services.Notification{Template: services.TemplateOrderConfirmation}))
	s.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type stubQueue struct {
	bodies []string
	err    error
}

func (q *stubQueue) SendMessage(_ context.Context, body string) error {
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}

func TestQueuedNotifier_Enqueues(t *testing.T) {
	queue := &stubQueue{}
	s := new(mockSender)
	notifier := services.NewQueuedNotifier(queue, services.NewNotificationService(s, testTemplates, testLogger), testLogger)

	n := services.Notification{Template: services.TemplateOrderConfirmation, To: "ada@example.com", Params: map[string]interface{}{"total": "20.00"}}
	require.NoError(t, notifier.Notify(context.Background(), n))
	require.Len(t, queue.bodies, 1)

	var decoded services.Notification
	require.NoError(t, json.Unmarshal([]byte(queue.bodies[0]), &decoded))
	assert.Equal(t, n, decoded)
	s.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQueuedNotifier_FallsBackToDirectDelivery(t *testing.T) {
	queue := &stubQueue{err: errors.New("sqs unavailable")}
	s := new(mockSender)
	s.On("SendTemplate", mock.Anything, mock.Anything, int64(11), mock.Anything).
		Return(sender.SendResult{MessageID: "m-1"}, nil).Once()
	notifier := services.NewQueuedNotifier(queue, services.NewNotificationService(s, testTemplates, testLogger), testLogger)

	require.NoError(t, notifier.Notify(context.Background(), services.Notification{Template: services.TemplateOrderConfirmation, To: "ada@example.com"}))
	s.AssertExpectations(t)
}
