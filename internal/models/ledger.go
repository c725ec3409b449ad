package ledger

import (
	"errors"
	"slices"
	"sort"
	"time"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientPoints  = errors.New("not enough points")
	ErrInternalConsistency = errors.New("ledger consistency violated")
	ErrNotFound            = errors.New("not found")
)

// Лот - строка леджера: начисление или корректировка
type Lot struct {
	ID        int64     `bson:"id" json:"id"`
	Payer     string    `bson:"payer" json:"payer"`
	Points    int64     `bson:"points" json:"points"` // у корректировки отрицательное значение
	Used      int64     `bson:"used" json:"used"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// IsAdjustment reports whether the lot records a backdated debit rather than a grant.
// Adjustment lots never count towards balances and are never allocation candidates.
func (l Lot) IsAdjustment() bool {
	return l.Points < 0
}

// Available returns the points of a grant lot that are not consumed yet.
func (l Lot) Available() int64 {
	if l.IsAdjustment() {
		return 0
	}
	return l.Points - l.Used
}

// Before orders lots by timestamp, ties broken by id.
func (l Lot) Before(o Lot) bool {
	if !l.Timestamp.Equal(o.Timestamp) {
		return l.Timestamp.Before(o.Timestamp)
	}
	return l.ID < o.ID
}

// SortLots puts lots into allocation order: ascending timestamp, ties broken by id.
func SortLots(lots []Lot) {
	slices.SortStableFunc(lots, func(a, b Lot) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
}

// Выборка лотов
type LotFilter struct {
	Payer string     // пусто - все плательщики
	Until *time.Time // включительно
	Open  bool       // только лоты с used < points
}

// Списание с одного лота
type Debit struct {
	LotID  int64
	Payer  string
	Amount int64
}

// Attribution maps payer to the negative amount drawn from its lots.
type Attribution map[string]int64

type PayerPoints struct {
	Payer  string `json:"payer"`
	Points int64  `json:"points"`
}

// Результат списания
type SpendResult struct {
	Attribution Attribution
	Order       []string // плательщики в порядке первого списания
}

func (s SpendResult) Entries() []PayerPoints {
	entries := make([]PayerPoints, 0, len(s.Order))
	for _, payer := range s.Order {
		entries = append(entries, PayerPoints{payer, s.Attribution[payer]})
	}
	return entries
}

// Balances maps payer to unconsumed points.
type Balances map[string]int64

func (b Balances) Entries() []PayerPoints {
	entries := make([]PayerPoints, 0, len(b))
	for payer, points := range b {
		entries = append(entries, PayerPoints{payer, points})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Payer < entries[j].Payer })
	return entries
}
