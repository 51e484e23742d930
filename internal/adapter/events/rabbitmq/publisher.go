package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Exchange is the topic exchange ledger events are published to. The event
// name doubles as the routing key (e.g. wallet.balance_credited).
const Exchange = "ledger.events"

// Publisher implements ports.EventPublisher over RabbitMQ. Publishing is
// best-effort: the ledger has already committed when events go out.
type Publisher struct {
	channel *amqp.Channel
	log     zerolog.Logger
}

// NewPublisher declares the topic exchange and returns a Publisher.
func NewPublisher(ch *amqp.Channel, log zerolog.Logger) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{channel: ch, log: log}, nil
}

// Publish sends one committed ledger event to the bus.
func (p *Publisher) Publish(ctx context.Context, event *domain.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		Exchange,
		string(event.Name), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish ledger event: %w", err)
	}

	p.log.Debug().
		Str("event", string(event.Name)).
		Str("entry_id", event.EntryID).
		Msg("ledger event published")
	return nil
}
