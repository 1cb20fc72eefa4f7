package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig связывает очередь с ключом маршрутизации обменника notifications.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди уведомлений ростера.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.absence", RoutingKey: "absence"},
		{QueueName: "notification.waitlist", RoutingKey: "waitlist_promoted"},
	}
}

// SetupNotificationTopology объявляет обменник notifications и привязывает
// к нему очереди уведомлений. Вызывается при старте сервиса.
func SetupNotificationTopology(ch *amqp.Channel) error {
	const op = "rabbitmq.SetupNotificationTopology"

	if err := ch.ExchangeDeclare("notifications", "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, q := range GetNotificationQueues() {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, "notifications", false, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
