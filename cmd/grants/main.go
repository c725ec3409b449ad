// Job - начисления и корректировки от партнеров из Kafka
// Сообщения обрабатываются по одному в порядке партиции: корректировка должна видеть
// все начисления, пришедшие до нее
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/glkeru/loyalty/ledger/internal/config"
	db "github.com/glkeru/loyalty/ledger/internal/db"
	kafka "github.com/glkeru/loyalty/ledger/internal/external/kafka"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	services "github.com/glkeru/loyalty/ledger/internal/services"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// kafka
	reader, err := kafka.GetNewReader(cfg.KafkaURL, cfg.GrantsTopic)
	if err != nil {
		panic(err)
	}
	defer reader.CloseReader()

	// database
	storage, err := db.OpenStorage(ctx, cfg, logger)
	if err != nil {
		panic(err)
	}
	defer storage.Close(context.Background())

	serv := services.NewLedgerService(logger, storage, db.OpenCache(cfg, logger))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error(err.Error())
			}
			return
		}

		grant, err := kafka.ParseGrant(msg.Value)
		if err == nil {
			err = serv.Add(ctx, grant.Payer, grant.Points, grant.Timestamp)
		}
		switch {
		case err == nil:
		case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInsufficientPoints):
			// запрос отклонен, повтор не поможет
			logger.Warn("grant rejected",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		case errors.Is(err, model.ErrInternalConsistency):
			// повторная доставка даст ту же ошибку, сообщение пропускается
			logger.Error("grant refused: ledger is inconsistent",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		default:
			// offset не коммитим, сообщение придет снова после перезапуска
			logger.Error("grant failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return
		}

		if err = reader.CommitMessage(ctx, msg); err != nil {
			logger.Error(err.Error())
			return
		}
	}
}
