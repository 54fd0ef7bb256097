package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chaudhuree/home-repair/internal/mail"
)

// StartNotificationConsumer connects to RabbitMQ and consumes both event
// queues, turning each message into a notification email. It runs a
// reconnect loop with exponential backoff and never returns under normal
// operation; processing errors are logged and the offending message is
// rejected without requeue so the consumer cannot spin on a poison
// message. Intended to run as a background goroutine from main.
func StartNotificationConsumer(url string, sender mail.Sender) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notify-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, sender mail.Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{ReservationCreatedQueue, PaymentReceivedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	created, err := ch.Consume(ReservationCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReservationCreatedQueue, err)
	}
	payments, err := ch.Consume(PaymentReceivedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PaymentReceivedQueue, err)
	}

	for {
		select {
		case d, ok := <-created:
			if !ok {
				return errors.New("reservation.created deliveries closed")
			}
			ackOrReject(d, handleReservationCreated(sender, d.Body))
		case d, ok := <-payments:
			if !ok {
				return errors.New("payment.received deliveries closed")
			}
			ackOrReject(d, handlePaymentReceived(sender, d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("notify-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func handleReservationCreated(sender mail.Sender, body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	msg := mail.Message{
		To:      ev.UserEmail,
		Subject: "Reservation received",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour reservation %s for %s on %s has been received.\nTotal amount: %.2f, payable in two equal installments.\n",
			ev.UserName, ev.ReservationID, ev.ServiceName, ev.ScheduledDate, ev.Amount),
	}
	if err := sender.Send(msg); err != nil {
		return fmt.Errorf("send reservation mail: %w", err)
	}
	return nil
}

func handlePaymentReceived(sender mail.Sender, body []byte) error {
	var ev PaymentReceivedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	msg := mail.Message{
		To:      ev.UserEmail,
		Subject: "Payment received",
		Body: fmt.Sprintf(
			"We received your %s payment of %.2f for reservation %s.\nPayment status is now: %s.\n",
			ev.Installment, ev.Amount, ev.ReservationID, ev.PaymentStatus),
	}
	if err := sender.Send(msg); err != nil {
		return fmt.Errorf("send payment mail: %w", err)
	}
	return nil
}
