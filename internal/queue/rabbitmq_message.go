package queue

import (
	"github.com/apocalipssi/docanalyzer/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps an activity entry with its RabbitMQ delivery information
type Message struct {
	Entry       *models.ActivityEntry
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack negatively acknowledges the message
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetEntry returns the carried activity entry
func (m *Message) GetEntry() *models.ActivityEntry {
	return m.Entry
}
