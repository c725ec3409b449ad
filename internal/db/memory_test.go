package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2020, 11, 2, 14, 0, 0, 0, time.UTC)

func seed(t *testing.T, m *MemoryStore, lots ...model.Lot) {
	t.Helper()
	err := m.Write(context.Background(), func(tx interf.LotTx) error {
		for _, lot := range lots {
			if _, err := tx.Insert(context.Background(), lot); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func readAll(t *testing.T, m *MemoryStore, filter model.LotFilter) []model.Lot {
	t.Helper()
	var lots []model.Lot
	err := m.Read(context.Background(), func(r interf.LotReader) (err error) {
		lots, err = r.Lots(context.Background(), filter)
		return err
	})
	require.NoError(t, err)
	return lots
}

func TestMemoryLots(t *testing.T) {
	m := NewMemoryStore()
	seed(t, m,
		model.Lot{Payer: "A", Points: 100, Timestamp: t0.Add(2 * time.Hour)},
		model.Lot{Payer: "B", Points: 50, Timestamp: t0},
		model.Lot{Payer: "A", Points: -20, Timestamp: t0.Add(3 * time.Hour)},
		model.Lot{Payer: "A", Points: 10, Timestamp: t0},
	)

	ids := func(lots []model.Lot) []int64 {
		res := []int64{}
		for _, lot := range lots {
			res = append(res, lot.ID)
		}
		return res
	}
	until := t0.Add(2 * time.Hour)

	tests := []struct {
		name     string
		filter   model.LotFilter
		expected []int64
	}{
		{"all", model.LotFilter{}, []int64{2, 4, 1, 3}},
		{"payer", model.LotFilter{Payer: "A"}, []int64{4, 1, 3}},
		{"until inclusive", model.LotFilter{Until: &until}, []int64{2, 4, 1}},
		{"open skips adjustments", model.LotFilter{Open: true}, []int64{2, 4, 1}},
		{"combined", model.LotFilter{Payer: "A", Until: &until, Open: true}, []int64{4, 1}},
	}

	for _, ts := range tests {
		t.Run(ts.name, func(t *testing.T) {
			require.Equal(t, ts.expected, ids(readAll(t, m, ts.filter)))
		})
	}
}

func TestMemoryInsertIgnoresIDAndUsed(t *testing.T) {
	m := NewMemoryStore()
	seed(t, m, model.Lot{ID: 42, Payer: "A", Points: 10, Used: 5, Timestamp: t0})

	lots := readAll(t, m, model.LotFilter{})
	require.Equal(t, []model.Lot{{ID: 1, Payer: "A", Points: 10, Timestamp: t0}}, lots)
}

func TestMemoryConsume(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m,
		model.Lot{Payer: "A", Points: 10, Timestamp: t0},
		model.Lot{Payer: "A", Points: -5, Timestamp: t0},
	)

	tests := []struct {
		name     string
		id       int64
		delta    int64
		expected error
	}{
		{"partial", 1, 4, nil},
		{"over points", 1, 7, model.ErrInternalConsistency},
		{"zero delta", 1, 0, model.ErrInternalConsistency},
		{"adjustment lot", 2, 1, model.ErrInternalConsistency},
		{"unknown lot", 9, 1, model.ErrNotFound},
	}

	for _, ts := range tests {
		t.Run(ts.name, func(t *testing.T) {
			err := m.Write(ctx, func(tx interf.LotTx) error {
				return tx.Consume(ctx, ts.id, ts.delta)
			})
			if ts.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ts.expected)
		})
	}

	lots := readAll(t, m, model.LotFilter{})
	require.Equal(t, int64(4), lots[0].Used)
	require.Equal(t, int64(0), lots[1].Used)
}

func TestMemoryWriteRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, model.Lot{Payer: "A", Points: 10, Timestamp: t0})

	failed := errors.New("abort")
	err := m.Write(ctx, func(tx interf.LotTx) error {
		if err := tx.Consume(ctx, 1, 10); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, model.Lot{Payer: "B", Points: 1, Timestamp: t0}); err != nil {
			return err
		}
		return failed
	})
	require.ErrorIs(t, err, failed)

	require.Equal(t, []model.Lot{{ID: 1, Payer: "A", Points: 10, Timestamp: t0}}, readAll(t, m, model.LotFilter{}))

	// номер не израсходован
	seed(t, m, model.Lot{Payer: "C", Points: 1, Timestamp: t0})
	require.Equal(t, int64(2), readAll(t, m, model.LotFilter{Payer: "C"})[0].ID)
}

func TestMemoryWriteCanceled(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := m.Write(ctx, func(tx interf.LotTx) error {
		_, err := tx.Insert(ctx, model.Lot{Payer: "A", Points: 10, Timestamp: t0})
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, readAll(t, m, model.LotFilter{}))
}

func TestMemoryReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m,
		model.Lot{Payer: "A", Points: 10, Timestamp: t0},
		model.Lot{Payer: "B", Points: 10, Timestamp: t0},
	)

	require.NoError(t, m.Write(ctx, func(tx interf.LotTx) error {
		return tx.Reset(ctx)
	}))
	require.Empty(t, readAll(t, m, model.LotFilter{}))

	seed(t, m, model.Lot{Payer: "C", Points: 1, Timestamp: t0})
	require.Equal(t, int64(1), readAll(t, m, model.LotFilter{})[0].ID)
}

func TestMemoryVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	version := func() (v int64) {
		require.NoError(t, m.Read(ctx, func(r interf.LotReader) (err error) {
			v, err = r.Version(ctx)
			return err
		}))
		return v
	}
	require.Equal(t, int64(0), version())

	seed(t, m, model.Lot{Payer: "A", Points: 10, Timestamp: t0})
	require.Equal(t, int64(1), version())

	// неудачная запись версию не меняет
	err := m.Write(ctx, func(tx interf.LotTx) error {
		return tx.Consume(ctx, 1, 11)
	})
	require.ErrorIs(t, err, model.ErrInternalConsistency)
	require.Equal(t, int64(1), version())

	// сброс не возвращает версию к нулю
	require.NoError(t, m.Write(ctx, func(tx interf.LotTx) error {
		return tx.Reset(ctx)
	}))
	require.Equal(t, int64(2), version())
}
