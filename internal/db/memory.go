package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	model "github.com/glkeru/loyalty/ledger/internal/models"
)

// MemoryStore keeps lots in process memory. Writes run on a copy that replaces the
// committed state only when the transaction succeeds.
type MemoryStore struct {
	mu     sync.RWMutex
	lots    []model.Lot // по возрастанию id
	nextID  int64
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) Read(ctx context.Context, fn func(r interf.LotReader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{lots: m.lots, nextID: m.nextID, version: m.version})
}

func (m *MemoryStore) Write(ctx context.Context, fn func(tx interf.LotTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{lots: slices.Clone(m.lots), nextID: m.nextID, version: m.version}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lots = tx.lots
	m.nextID = tx.nextID
	m.version++
	return nil
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

type memoryTx struct {
	lots    []model.Lot
	nextID  int64
	version int64
}

func (t *memoryTx) Version(ctx context.Context) (int64, error) {
	return t.version, nil
}

func (t *memoryTx) Lots(ctx context.Context, filter model.LotFilter) ([]model.Lot, error) {
	lots := make([]model.Lot, 0, len(t.lots))
	for _, lot := range t.lots {
		if filter.Payer != "" && lot.Payer != filter.Payer {
			continue
		}
		if filter.Until != nil && lot.Timestamp.After(*filter.Until) {
			continue
		}
		if filter.Open && lot.Used >= lot.Points {
			continue
		}
		lots = append(lots, lot)
	}
	model.SortLots(lots)
	return lots, nil
}

func (t *memoryTx) Insert(ctx context.Context, lot model.Lot) (model.Lot, error) {
	lot.ID = t.nextID
	lot.Used = 0
	t.nextID++
	t.lots = append(t.lots, lot)
	return lot, nil
}

func (t *memoryTx) Consume(ctx context.Context, id int64, delta int64) error {
	i, ok := slices.BinarySearchFunc(t.lots, id, func(lot model.Lot, id int64) int {
		switch {
		case lot.ID < id:
			return -1
		case lot.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return fmt.Errorf("lot %d %w", id, model.ErrNotFound)
	}
	lot := &t.lots[i]
	if delta <= 0 || lot.Used+delta > lot.Points {
		return fmt.Errorf("lot %d used %d of %d, delta %d: %w", id, lot.Used, lot.Points, delta, model.ErrInternalConsistency)
	}
	lot.Used += delta
	return nil
}

func (t *memoryTx) Reset(ctx context.Context) error {
	t.lots = nil
	t.nextID = 1
	return nil
}
