package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits domain events to RabbitMQ. It is constructed once with
// the broker URL and injected where events are raised. Publishing is
// best effort: errors are logged and returned so the caller can ignore
// them without interrupting the request flow. Each publish dials a short
// lived connection; event volume is one or two messages per booking.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// ReservationCreated publishes to the reservation.created queue.
func (p *Publisher) ReservationCreated(ctx context.Context, ev ReservationCreatedEvent) error {
	return p.publish(ctx, ReservationCreatedQueue, ev)
}

// PaymentReceived publishes to the payment.received queue.
func (p *Publisher) PaymentReceived(ctx context.Context, ev PaymentReceivedEvent) error {
	return p.publish(ctx, PaymentReceivedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("queue: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("queue: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts; declare is idempotent.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("queue: declare %s failed: %v", queueName, err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("queue: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("queue: publish %s failed: %v", queueName, err)
		return err
	}
	return nil
}
