package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ledger")

// Точность меток времени, которую сохраняют все хранилища (MongoDB хранит миллисекунды)
const timestampPrecision = time.Millisecond

// LedgerService serializes every write against the lot store; reads share the lock
// so they never observe a write in progress.
type LedgerService struct {
	mu     sync.RWMutex
	db     interf.LotStorage
	cache  interf.BalanceCache
	logger *zap.Logger
}

func NewLedgerService(logger *zap.Logger, db interf.LotStorage, cache interf.BalanceCache) *LedgerService {
	return &LedgerService{db: db, cache: cache, logger: logger}
}

// Начисление или корректировка: знак points определяет операцию
func (s *LedgerService) Add(ctx context.Context, payer string, points int64, timestamp time.Time) error {
	payer = strings.TrimSpace(payer)
	switch {
	case payer == "":
		return fmt.Errorf("payer is required: %w", model.ErrInvalidInput)
	case points == 0:
		return fmt.Errorf("points must be non-zero: %w", model.ErrInvalidInput)
	case timestamp.IsZero():
		return fmt.Errorf("timestamp is required: %w", model.ErrInvalidInput)
	}
	timestamp = timestamp.Truncate(timestampPrecision)
	if points > 0 {
		return s.grant(ctx, payer, points, timestamp)
	}
	return s.adjust(ctx, payer, -points, timestamp)
}

func (s *LedgerService) grant(ctx context.Context, payer string, points int64, timestamp time.Time) (err error) {
	ctx, span := tracer.Start(ctx, "ledger.Grant", trace.WithAttributes(
		attribute.String("payer", payer),
		attribute.Int64("points", points),
	))
	defer func() { s.finish(span, "Grant", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Write(ctx, func(tx interf.LotTx) error {
		open, err := tx.Lots(ctx, model.LotFilter{Open: true})
		if err != nil {
			return err
		}
		if err := CheckCapacity(open, points); err != nil {
			return err
		}
		_, err = tx.Insert(ctx, model.Lot{Payer: payer, Points: points, Timestamp: timestamp})
		return err
	})
	if err != nil {
		return err
	}
	pointsGranted.WithLabelValues(payer).Add(float64(points))
	s.invalidate(ctx)
	return nil
}

// Корректировка списывает amount только с лотов плательщика не позже timestamp
func (s *LedgerService) adjust(ctx context.Context, payer string, amount int64, timestamp time.Time) (err error) {
	ctx, span := tracer.Start(ctx, "ledger.Adjust", trace.WithAttributes(
		attribute.String("payer", payer),
		attribute.Int64("amount", amount),
	))
	defer func() { s.finish(span, "Adjust", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Write(ctx, func(tx interf.LotTx) error {
		lots, err := tx.Lots(ctx, model.LotFilter{Payer: payer, Until: &timestamp, Open: true})
		if err != nil {
			return err
		}
		model.SortLots(lots)
		debits, err := Allocate(lots, amount)
		if err != nil {
			return err
		}
		for _, d := range debits {
			if err := tx.Consume(ctx, d.LotID, d.Amount); err != nil {
				return err
			}
		}
		_, err = tx.Insert(ctx, model.Lot{Payer: payer, Points: -amount, Timestamp: timestamp})
		return err
	})
	if err != nil {
		return err
	}
	pointsAdjusted.WithLabelValues(payer).Add(float64(amount))
	s.invalidate(ctx)
	return nil
}

// Списание по всем плательщикам, самые старые баллы первыми
func (s *LedgerService) Spend(ctx context.Context, amount int64) (result model.SpendResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.Spend", trace.WithAttributes(attribute.Int64("amount", amount)))
	defer func() { s.finish(span, "Spend", err) }()

	if amount <= 0 {
		return result, fmt.Errorf("spend amount %d: %w", amount, model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Write(ctx, func(tx interf.LotTx) error {
		lots, err := tx.Lots(ctx, model.LotFilter{Open: true})
		if err != nil {
			return err
		}
		model.SortLots(lots)
		debits, err := Allocate(lots, amount)
		if err != nil {
			return err
		}
		result = model.SpendResult{Attribution: make(model.Attribution)}
		for _, d := range debits {
			if err := tx.Consume(ctx, d.LotID, d.Amount); err != nil {
				return err
			}
			if _, ok := result.Attribution[d.Payer]; !ok {
				result.Order = append(result.Order, d.Payer)
			}
			result.Attribution[d.Payer] -= d.Amount
		}
		return nil
	})
	if err != nil {
		return model.SpendResult{}, err
	}
	for payer, points := range result.Attribution {
		pointsSpent.WithLabelValues(payer).Add(float64(-points))
	}
	s.invalidate(ctx)
	s.logger.Info("spend",
		zap.Int64("amount", amount),
		zap.Any("attribution", result.Attribution),
	)
	return result, nil
}

// Балансы по плательщикам. Кэш используется только если он посчитан на той же версии
// леджера, что видна в снимке хранилища
func (s *LedgerService) Balance(ctx context.Context) (balances model.Balances, err error) {
	ctx, span := tracer.Start(ctx, "ledger.Balance")
	defer func() { s.finish(span, "Balance", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		version int64
		cached  bool
	)
	err = s.db.Read(ctx, func(r interf.LotReader) error {
		v, err := r.Version(ctx)
		if err != nil {
			return err
		}
		version = v
		if s.cache != nil {
			if b, err := s.cache.GetBalances(ctx, version); err == nil {
				balances, cached = b, true
				return nil
			}
		}
		lots, err := r.Lots(ctx, model.LotFilter{})
		if err != nil {
			return err
		}
		balances, err = Balances(lots)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil && !cached {
		if err := s.cache.SetBalances(ctx, version, balances); err != nil {
			s.logger.Warn("cache set", zap.String("service", "Balance"), zap.Error(err))
		}
	}
	return balances, nil
}

func (s *LedgerService) PayerBalance(ctx context.Context, payer string) (int64, error) {
	balances, err := s.Balance(ctx)
	if err != nil {
		return 0, err
	}
	points, ok := balances[payer]
	if !ok {
		return 0, fmt.Errorf("payer %s %w", payer, model.ErrNotFound)
	}
	return points, nil
}

// Все лоты в порядке (timestamp, id)
func (s *LedgerService) View(ctx context.Context) (lots []model.Lot, err error) {
	ctx, span := tracer.Start(ctx, "ledger.View")
	defer func() { s.finish(span, "View", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.Read(ctx, func(r interf.LotReader) error {
		lots, err = r.Lots(ctx, model.LotFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	model.SortLots(lots)
	return lots, nil
}

// Сброс леджера, нумерация лотов начинается заново
func (s *LedgerService) Reset(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "ledger.Reset")
	defer func() { s.finish(span, "Reset", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Write(ctx, func(tx interf.LotTx) error {
		return tx.Reset(ctx)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("ledger reset")
	return nil
}

// Устаревшая запись в кэше и так не совпадет по версии, удаление только освобождает ключ
func (s *LedgerService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBalances(ctx); err != nil {
		s.logger.Warn("cache invalidate", zap.Error(err))
	}
}

func (s *LedgerService) finish(span trace.Span, service string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	switch {
	case errors.Is(err, model.ErrInsufficientPoints):
		allocationRejected.WithLabelValues(service).Inc()
	case errors.Is(err, model.ErrInternalConsistency):
		consistencyErrors.Inc()
		s.logger.Error("ledger invariant broken",
			zap.String("service", service),
			zap.Error(err),
		)
	}
}
