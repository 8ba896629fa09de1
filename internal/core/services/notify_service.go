package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const enrollmentQueueName = "enrollment.events"

// Enrollment event kinds
const (
	EventEnrollmentOpened = "enrollment_opened"
	EventEnrollmentClosed = "enrollment_closed"
)

// EnrollmentEvent is published when a device enters or leaves a facility.
// It carries enough for downstream consumers (security desk dashboards,
// audit pipelines) without querying the primary database.
type EnrollmentEvent struct {
	Event        string `json:"event"`
	EnrollmentID string `json:"enrollment_id"`
	DeviceID     string `json:"device_id"`
	Platform     string `json:"platform"`
	FacilityID   string `json:"facility_id"`
	FacilityName string `json:"facility_name"`
	OccurredAt   string `json:"occurred_at"`
}

// EventPublisher publishes enrollment events. Publishing is fire-and-forget
// from the engine's point of view: a broker outage must never fail a scan.
type EventPublisher interface {
	PublishEnrollmentEvent(ctx context.Context, event EnrollmentEvent)
}

// AMQPPublisher publishes enrollment events to a durable RabbitMQ queue.
// Each publish dials its own short-lived connection, which keeps the
// publisher stateless and safe to call from parallel request handlers.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher creates a publisher. An empty URL disables publishing.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishEnrollmentEvent sends the event to the enrollment.events queue.
// Errors are logged and swallowed.
func (p *AMQPPublisher) PublishEnrollmentEvent(ctx context.Context, event EnrollmentEvent) {
	if p == nil || p.url == "" {
		return
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("⚠️ rabbitmq: dial failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("⚠️ rabbitmq: channel open failed: %v", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts
	if _, err := ch.QueueDeclare(enrollmentQueueName, true, false, false, false, nil); err != nil {
		log.Printf("⚠️ rabbitmq: queue declare failed: %v", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ rabbitmq: marshal event failed: %v", err)
		return
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", enrollmentQueueName, false, false, pub); err != nil {
		log.Printf("⚠️ rabbitmq: publish failed: %v", err)
	}
}
