package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ra-resale/internal/models"
)

// Producer streams reconciliation outcomes for downstream consumers
// (dashboards, audit). The pipeline itself never depends on these
// events landing.
type Producer struct {
	availabilityWriter *kafka.Writer
	alertWriter        *kafka.Writer
}

type availabilityEvent struct {
	TicketID  string    `json:"ticket_id"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Available bool      `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}

type alertSentEvent struct {
	TrackerID string    `json:"tracker_id"`
	EventID   string    `json:"event_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProducer(brokers []string, availabilityTopic, alertTopic string) *Producer {
	return &Producer{
		availabilityWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   availabilityTopic,
		}),
		alertWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   alertTopic,
		}),
	}
}

// PublishAvailabilityChanged streams a ticket availability flip.
func (p *Producer) PublishAvailabilityChanged(ticket models.Ticket) error {
	payload, err := json.Marshal(availabilityEvent{
		TicketID:  ticket.ID,
		EventID:   ticket.EventID,
		Title:     ticket.Title,
		Price:     ticket.Price,
		Available: ticket.Available,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.availabilityWriter.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(ticket.EventID),
			Value: payload,
		},
	)
}

// PublishAlertSent streams a successful notification dispatch.
func (p *Producer) PublishAlertSent(tracker models.Tracker) error {
	payload, err := json.Marshal(alertSentEvent{
		TrackerID: tracker.ID,
		EventID:   tracker.EventID,
		Email:     tracker.Email,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.alertWriter.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(tracker.EventID),
			Value: payload,
		},
	)
}

func (p *Producer) Close() error {
	if err := p.availabilityWriter.Close(); err != nil {
		return err
	}
	return p.alertWriter.Close()
}
