package ledger

import (
	"fmt"
	"math"

	model "github.com/glkeru/loyalty/ledger/internal/models"
)

// Allocate distributes amount over lots in the given order, oldest first.
// Feasibility is checked over the whole sequence before any debit is produced,
// so on error the caller has nothing to apply.
func Allocate(lots []model.Lot, amount int64) ([]model.Debit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("allocation amount %d: %w", amount, model.ErrInvalidInput)
	}

	// total не превышает amount, поэтому не переполняется
	var total int64
	for _, lot := range lots {
		if err := checkLot(lot); err != nil {
			return nil, err
		}
		total += min(lot.Available(), amount-total)
	}
	if total < amount {
		return nil, fmt.Errorf("requested %d, available %d: %w", amount, total, model.ErrInsufficientPoints)
	}

	debits := make([]model.Debit, 0, len(lots))
	remaining := amount
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		delta := min(remaining, lot.Available())
		if delta == 0 {
			continue
		}
		debits = append(debits, model.Debit{LotID: lot.ID, Payer: lot.Payer, Amount: delta})
		remaining -= delta
	}
	return debits, nil
}

// Balances sums unconsumed points per payer over grant lots.
func Balances(lots []model.Lot) (model.Balances, error) {
	balances := make(model.Balances)
	for _, lot := range lots {
		if err := checkLot(lot); err != nil {
			return nil, err
		}
		if lot.IsAdjustment() {
			continue
		}
		points, ok := addPoints(balances[lot.Payer], lot.Available())
		if !ok {
			return nil, fmt.Errorf("payer %s balance overflows: %w", lot.Payer, model.ErrInternalConsistency)
		}
		balances[lot.Payer] = points
	}
	for payer, points := range balances {
		if points < 0 {
			return nil, fmt.Errorf("payer %s balance %d: %w", payer, points, model.ErrInternalConsistency)
		}
	}
	return balances, nil
}

// CheckCapacity rejects a grant that would push the total of open points past MaxInt64.
// Every payer balance is bounded by that total, so balances stay representable too.
func CheckCapacity(lots []model.Lot, points int64) error {
	total := points
	for _, lot := range lots {
		if err := checkLot(lot); err != nil {
			return err
		}
		var ok bool
		if total, ok = addPoints(total, lot.Available()); !ok {
			return fmt.Errorf("grant of %d points overflows the ledger total: %w", points, model.ErrInvalidInput)
		}
	}
	return nil
}

// Сложение неотрицательных баллов с проверкой переполнения
func addPoints(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

// used всегда в пределах [0, points] для начислений, у корректировок used = 0
func checkLot(lot model.Lot) error {
	if lot.Used < 0 {
		return fmt.Errorf("lot %d used %d: %w", lot.ID, lot.Used, model.ErrInternalConsistency)
	}
	if lot.IsAdjustment() {
		if lot.Used != 0 {
			return fmt.Errorf("adjustment lot %d used %d: %w", lot.ID, lot.Used, model.ErrInternalConsistency)
		}
		return nil
	}
	if lot.Used > lot.Points {
		return fmt.Errorf("lot %d used %d of %d: %w", lot.ID, lot.Used, lot.Points, model.ErrInternalConsistency)
	}
	return nil
}
