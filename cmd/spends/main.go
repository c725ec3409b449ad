// Job - обработка списаний из RabbitMQ
// Результат списания (по плательщикам) публикуется в очередь подтверждений
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glkeru/loyalty/ledger/internal/config"
	db "github.com/glkeru/loyalty/ledger/internal/db"
	rabbit "github.com/glkeru/loyalty/ledger/internal/external/rabbitmq"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	services "github.com/glkeru/loyalty/ledger/internal/services"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

	// rabbitmq
	reader, err := rabbit.NewRabbitConsumer(cfg.RabbitURL)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer reader.Close()

	// database
	storage, err := db.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer storage.Close(context.Background())

	serv := services.NewLedgerService(logger, storage, db.OpenCache(cfg, logger))

	// workers: списания все равно идут по одному внутри сервиса,
	// параллельно только разбор сообщений и публикация подтверждений
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.SpendWorkers; i++ {
		g.Go(func() error {
			return worker(gctx, serv, logger, reader)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("workers stopped", zap.Error(err))
	}
}

// worker for rabbitmq messages
func worker(ctx context.Context, serv *services.LedgerService, logger *zap.Logger, reader *rabbit.RabbitConsumer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-reader.Msg:
			if !ok {
				return nil
			}
			if err := handle(ctx, serv, logger, reader, msg); err != nil {
				return err
			}
		}
	}
}

func handle(ctx context.Context, serv *services.LedgerService, logger *zap.Logger, reader *rabbit.RabbitConsumer, msg amqp.Delivery) error {
	spend, err := rabbit.ParseSpend(msg.Body)
	var result model.SpendResult
	if err == nil {
		result, err = serv.Spend(ctx, spend.Points)
	}

	if rabbit.Classify(err) == rabbit.Retry {
		// ошибка хранилища - вернуть сообщение в очередь после паузы
		logger.Error("spend failed", zap.String("spendId", spend.SpendId), zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(rabbit.RetryDelay):
		}
		return msg.Nack(false, true)
	}
	if errors.Is(err, model.ErrInternalConsistency) {
		logger.Error("spend refused: ledger is inconsistent", zap.String("spendId", spend.SpendId), zap.Error(err))
	}

	// результат уже зафиксирован: сообщение подтверждаем даже без публикации,
	// иначе повторная доставка спишет баллы второй раз
	if perr := reader.Processed(ctx, rabbit.NewConfirm(spend.SpendId, result, err)); perr != nil {
		logger.Error("confirm failed", zap.String("spendId", spend.SpendId), zap.Error(perr))
	}
	return msg.Ack(false)
}
