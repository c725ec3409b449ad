package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	model "github.com/glkeru/loyalty/ledger/internal/models"
	"github.com/segmentio/kafka-go"
)

// Начисление от партнера
type GrantMessage struct {
	Payer     string    `json:"payer"`
	Points    int64     `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

type KafkaGrants struct {
	reader *kafka.Reader
}

func GetNewReader(brokers string, topic string) (reader *KafkaGrants, err error) {
	if brokers == "" {
		return nil, fmt.Errorf("env KAFKA_URL is not set")
	}
	kafkaconfig := kafka.ReaderConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
		GroupID: "ledger_grants",
	}
	return &KafkaGrants{kafka.NewReader(kafkaconfig)}, nil
}

// Следующее сообщение; offset коммитится только после CommitMessage
func (k *KafkaGrants) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return k.reader.FetchMessage(ctx)
}

func (k *KafkaGrants) CommitMessage(ctx context.Context, msg kafka.Message) error {
	return k.reader.CommitMessages(ctx, msg)
}

func (k *KafkaGrants) CloseReader() {
	k.reader.Close()
}

func ParseGrant(data []byte) (grant GrantMessage, err error) {
	err = json.Unmarshal(data, &grant)
	if err != nil {
		return grant, fmt.Errorf("grant message: %v: %w", err, model.ErrInvalidInput)
	}
	if grant.Payer == "" {
		return grant, fmt.Errorf("grant message: payer field is required: %w", model.ErrInvalidInput)
	}
	if grant.Points == 0 {
		return grant, fmt.Errorf("grant message: points field is required: %w", model.ErrInvalidInput)
	}
	if grant.Timestamp.IsZero() {
		return grant, fmt.Errorf("grant message: timestamp field is required: %w", model.ErrInvalidInput)
	}
	return grant, nil
}
