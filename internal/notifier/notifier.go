// Package notifier публикует события ростера для внешнего сервиса
// уведомлений: неявка (письмо опекуну) и продвижение из листа ожидания.
// Доставка не гарантируется: сбой публикации логируется,
// но не откатывает доменную операцию.
package notifier

import (
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
)

const exchange = "notifications"

// AbsenceEvent — событие неявки участника на занятие.
type AbsenceEvent struct {
	MemberID  string    `json:"member_id"`
	SessionID int64     `json:"session_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// WaitlistPromotedEvent — событие продвижения участника из листа ожидания.
type WaitlistPromotedEvent struct {
	MemberID  string    `json:"member_id"`
	SessionID int64     `json:"session_id"`
	EntryID   int64     `json:"entry_id"`
	Promoted  time.Time `json:"promoted_at"`
}

// Notifier публикует события ростера в RabbitMQ.
type Notifier struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New объявляет топологию уведомлений и возвращает Notifier.
func New(ch *amqp.Channel, log *slog.Logger) (*Notifier, error) {
	if err := rabbitmq.SetupNotificationTopology(ch); err != nil {
		return nil, err
	}
	return &Notifier{ch: ch, log: log}, nil
}

// NotifyAbsence публикует событие неявки.
func (n *Notifier) NotifyAbsence(event AbsenceEvent) {
	if err := rabbitmq.PublishMessage(n.ch, exchange, "absence", event); err != nil {
		n.log.Error("failed to publish absence event", sl.Err(err),
			sl.Member(event.MemberID), sl.Session(event.SessionID))
	}
}

// NotifyWaitlistPromoted публикует событие продвижения из листа ожидания.
func (n *Notifier) NotifyWaitlistPromoted(event WaitlistPromotedEvent) {
	if err := rabbitmq.PublishMessage(n.ch, exchange, "waitlist_promoted", event); err != nil {
		n.log.Error("failed to publish waitlist promotion event", sl.Err(err),
			sl.Member(event.MemberID), sl.Session(event.SessionID))
	}
}
