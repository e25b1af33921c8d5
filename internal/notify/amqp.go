package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tontin/internal/logger"
	"tontin/internal/money"
)

const (
	routingKeyBudgetAlert = "notifications.budget_alert"
	routingKeyReminderDue = "notifications.reminder_due"

	publishTimeout = 5 * time.Second
)

// AMQPPublisher publishes notification payloads to a durable direct
// exchange. One queue per routing key; the delivery worker consumes them.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewAMQPPublisher connects to the broker and declares the exchange and
// the notification queues.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, key := range []string{routingKeyBudgetAlert, routingKeyReminderDue} {
		if _, err := p.channel.QueueDeclare(key, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", key, err)
		}
		if err := p.channel.QueueBind(key, key, p.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", key, err)
		}
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// PublishBudgetAlert publishes a budget alert payload.
func (p *AMQPPublisher) PublishBudgetAlert(ctx context.Context, alert BudgetAlert) error {
	if err := p.publish(ctx, routingKeyBudgetAlert, alert); err != nil {
		return err
	}
	logger.Get().Infow("published budget alert",
		"user_id", alert.UserID,
		"category_id", alert.CategoryID,
		"percentage", alert.Percentage,
	)
	return nil
}

// PublishReminderDue publishes a due-reminder payload.
func (p *AMQPPublisher) PublishReminderDue(ctx context.Context, due ReminderDue) error {
	if err := p.publish(ctx, routingKeyReminderDue, due); err != nil {
		return err
	}
	logger.Get().Infow("published reminder notification",
		"user_id", due.UserID,
		"reminder_id", due.ReminderID,
		"urgent", due.Urgent,
	)
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher writes payloads to the application log instead of a broker.
// Used in development and tests when no AMQP URL is configured.
type LogPublisher struct{}

// PublishBudgetAlert logs the alert payload.
func (LogPublisher) PublishBudgetAlert(_ context.Context, alert BudgetAlert) error {
	logger.Get().Infow("budget alert (log only)",
		"user_id", alert.UserID,
		"category", alert.CategoryName,
		"spent", money.Format(alert.Spent),
		"budget", money.Format(alert.Budget),
		"percentage", alert.Percentage,
		"over_budget", alert.OverBudget,
	)
	return nil
}

// PublishReminderDue logs the due-reminder payload.
func (LogPublisher) PublishReminderDue(_ context.Context, due ReminderDue) error {
	logger.Get().Infow("reminder due (log only)",
		"user_id", due.UserID,
		"reminder_id", due.ReminderID,
		"title", due.Title,
		"due_at", due.DueAt,
		"urgent", due.Urgent,
	)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
