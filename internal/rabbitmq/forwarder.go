// Package rabbitmq пересылает принятые события оповещений в RabbitMQ
// для внешней обработки: архивация, интеграции, дашборды команды.
// Пересылка необязательна и никогда не мешает локальной доставке.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// Forwarder публикует события в настроенный exchange.
type Forwarder struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// NewForwarder открывает канал и объявляет exchange для пересылки.
func NewForwarder(conn *amqp.Connection, exchange, routingKey string) (*Forwarder, error) {
	const op = "rabbitmq.NewForwarder"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Forwarder{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish отправляет событие в exchange в формате JSON.
func (f *Forwarder) Publish(alert models.Alert) error {
	const op = "rabbitmq.Publish"

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = f.ch.Publish(
		f.exchange,
		f.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (f *Forwarder) Close() error {
	const op = "rabbitmq.Close"
	if err := f.ch.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := f.conn.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
