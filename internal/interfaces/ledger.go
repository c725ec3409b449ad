package ledger

import (
	"context"

	model "github.com/glkeru/loyalty/ledger/internal/models"
)

//go:generate mockgen -destination=./../services/mock_ledger_test.go -package=ledger . LotStorage,BalanceCache

// LotStorage is the durable lot collection. Read runs fn against a consistent snapshot,
// Write runs fn in a single transaction that is committed only when fn returns nil.
// Every committed Write increments the ledger version.
type LotStorage interface {
	Read(ctx context.Context, fn func(r LotReader) error) error
	Write(ctx context.Context, fn func(tx LotTx) error) error
	Close(ctx context.Context) error
}

// Lots are returned ordered by (timestamp, id).
type LotReader interface {
	Lots(ctx context.Context, filter model.LotFilter) ([]model.Lot, error)
	// Версия леджера в том же снимке; не сбрасывается при Reset
	Version(ctx context.Context) (int64, error)
}

type LotTx interface {
	LotReader
	Insert(ctx context.Context, lot model.Lot) (model.Lot, error)
	Consume(ctx context.Context, id int64, delta int64) error
	Reset(ctx context.Context) error
}

// BalanceCache keeps balances computed at a ledger version. GetBalances returns
// model.ErrNotFound when nothing is cached for that exact version.
type BalanceCache interface {
	GetBalances(ctx context.Context, version int64) (model.Balances, error)
	SetBalances(ctx context.Context, version int64, balances model.Balances) error
	InvalidateBalances(ctx context.Context) error
}
