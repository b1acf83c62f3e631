package worker

import (
	"context"
	"encoding/json"

	"github.com/doarbem/doar-api/internal/email"
	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	"github.com/doarbem/doar-api/pkg/logger"
	"github.com/doarbem/doar-api/pkg/messaging"
	"github.com/doarbem/doar-api/pkg/metrics"
)

// NotificationMailer consumes workflow events from the delivery channel and
// e-mails the affected user. Delivery is best effort: a failed send is
// logged and counted, never retried against the channel.
type NotificationMailer struct {
	broker  messaging.Broker
	users   repository.UserRepository
	sender  email.Sender
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotificationMailer(
	broker messaging.Broker,
	users repository.UserRepository,
	sender email.Sender,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *NotificationMailer {
	return &NotificationMailer{
		broker:  broker,
		users:   users,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m *NotificationMailer) Start(ctx context.Context) error {
	messages, err := m.broker.Subscribe(ctx, messaging.EventsChannel)
	if err != nil {
		return err
	}

	m.logger.Info("notification mailer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			m.handle(ctx, raw)
		}
	}
}

func (m *NotificationMailer) handle(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.logger.Error(err, "failed to decode delivery message")
		return
	}

	if env.Type != model.EventTypeNotificationCreated {
		return
	}

	var notice model.Notification
	if err := json.Unmarshal(env.Payload, &notice); err != nil {
		m.logger.Error(err, "failed to decode notification payload")
		return
	}

	user, err := m.users.Get(ctx, notice.UserID)
	if err != nil {
		m.logger.WithFields(map[string]interface{}{
			"usuario_id": notice.UserID,
		}).Error(err, "failed to resolve notification recipient")
		return
	}

	if err := m.sender.Send(user.Email, notice.Title, notice.Description); err != nil {
		m.metrics.EmailsSent.WithLabelValues("error").Inc()
		m.logger.Error(err, "failed to send notification email")
		return
	}
	m.metrics.EmailsSent.WithLabelValues("sent").Inc()
}
