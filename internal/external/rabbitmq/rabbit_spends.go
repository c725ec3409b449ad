package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	model "github.com/glkeru/loyalty/ledger/internal/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Msg   <-chan amqp.Delivery
	chout *amqp.Channel
}

const queue = "spends"
const queueout = "spend_confirms"

func NewRabbitConsumer(url string) (rabbit *RabbitConsumer, err error) {
	if url == "" {
		return nil, fmt.Errorf("env RABBIT_URL is not set")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	// канал для входящих
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// канал для исходящих
	chout, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	_, err = chout.QueueDeclare(
		queueout, // name
		true,     // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	msg, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitConsumer{conn, ch, msg, chout}, nil
}

func (r *RabbitConsumer) Close() {
	r.chout.Close()
	r.ch.Close()
	r.conn.Close()
}

// Запрос на списание
type SpendRequest struct {
	SpendId string `json:"spendId"`
	Points  int64  `json:"points"`
}

// Подтверждение списания
type SpendConfirm struct {
	SpendId     string              `json:"spendId"`
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	Attribution []model.PayerPoints `json:"attribution,omitempty"`
}

// Disposition says what a worker does with a delivery once the spend was attempted.
type Disposition int

const (
	// публикуем подтверждение (успех или отказ) и снимаем сообщение из очереди
	Confirm Disposition = iota
	// возвращаем в очередь после RetryDelay
	Retry
)

// Пауза перед возвратом сообщения, чтобы недоступное хранилище не крутило очередь вхолостую
const RetryDelay = 2 * time.Second

// Отказы леджера детерминированы: повтор того же запроса даст ту же ошибку.
// В очередь возвращаются только ошибки хранилища и транспорта
func Classify(err error) Disposition {
	switch {
	case err == nil,
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInsufficientPoints),
		errors.Is(err, model.ErrInternalConsistency):
		return Confirm
	}
	return Retry
}

// Без spendId запросу присваивается новый, чтобы подтверждение можно было сопоставить
func ParseSpend(body []byte) (SpendRequest, error) {
	spend := SpendRequest{}
	if err := json.Unmarshal(body, &spend); err != nil {
		return spend, fmt.Errorf("spend message: %v: %w", err, model.ErrInvalidInput)
	}
	if spend.SpendId == "" {
		spend.SpendId = uuid.NewString()
	}
	return spend, nil
}

func NewConfirm(spendId string, result model.SpendResult, err error) SpendConfirm {
	if err != nil {
		return SpendConfirm{SpendId: spendId, Success: false, Error: err.Error()}
	}
	return SpendConfirm{SpendId: spendId, Success: true, Attribution: result.Entries()}
}

func (r *RabbitConsumer) Processed(ctx context.Context, confirm SpendConfirm) error {
	msg, err := json.Marshal(confirm)
	if err != nil {
		return err
	}

	return r.chout.PublishWithContext(ctx,
		"",       // exchange
		queueout, // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         msg,
		})
}
