package ledger

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS lots (
	id         BIGSERIAL PRIMARY KEY,
	payer      TEXT        NOT NULL,
	points     BIGINT      NOT NULL,
	used       BIGINT      NOT NULL DEFAULT 0 CHECK (used >= 0),
	granted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS lots_granted_at_id ON lots (granted_at, id);
CREATE TABLE IF NOT EXISTS ledger_version (
	id      INT    PRIMARY KEY,
	version BIGINT NOT NULL
);
INSERT INTO ledger_version (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

var lotColumns = []string{"id", "payer", "points", "used", "granted_at"}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("env LEDGER_DB_DSN is not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate lots: %w", err)
	}
	return &PostgresStore{pool, logger}, nil
}

// Чтение в снимке repeatable read
func (p *PostgresStore) Read(ctx context.Context, fn func(r interf.LotReader) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	return fn(&pgTx{tx, p.logger})
}

// Запись под блокировкой таблицы: писатели из разных процессов идут по очереди,
// читатели не блокируются
func (p *PostgresStore) Write(ctx context.Context, fn func(tx interf.LotTx) error) (err error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "LOCK TABLE lots IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return err
	}
	ptx := &pgTx{tx, p.logger}
	if err = fn(ptx); err != nil {
		return err
	}
	if err = ptx.bumpVersion(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresStore) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

type pgTx struct {
	tx     pgx.Tx
	logger *zap.Logger
}

func lotsQuery(filter model.LotFilter) sq.SelectBuilder {
	q := sq.Select(lotColumns...).From("lots")
	if filter.Payer != "" {
		q = q.Where(sq.Eq{"payer": filter.Payer})
	}
	if filter.Until != nil {
		q = q.Where(sq.LtOrEq{"granted_at": *filter.Until})
	}
	if filter.Open {
		q = q.Where("used < points")
	}
	return q.OrderBy("granted_at ASC", "id ASC").PlaceholderFormat(sq.Dollar)
}

func insertQuery(lot model.Lot) sq.InsertBuilder {
	return sq.Insert("lots").
		Columns("payer", "points", "used", "granted_at").
		Values(lot.Payer, lot.Points, 0, lot.Timestamp).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar)
}

func consumeQuery(id int64, delta int64) sq.UpdateBuilder {
	return sq.Update("lots").
		Set("used", sq.Expr("used + ?", delta)).
		Where(sq.Eq{"id": id}).
		Where("points >= 0").
		Where(sq.Expr("used + ? <= points", delta)).
		PlaceholderFormat(sq.Dollar)
}

func versionQuery() sq.SelectBuilder {
	return sq.Select("version").From("ledger_version").Where(sq.Eq{"id": 1}).PlaceholderFormat(sq.Dollar)
}

func bumpVersionQuery() sq.UpdateBuilder {
	return sq.Update("ledger_version").
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": 1}).
		PlaceholderFormat(sq.Dollar)
}

func (t *pgTx) Version(ctx context.Context) (version int64, err error) {
	sql, args, err := versionQuery().ToSql()
	if err != nil {
		t.sqlError(err, sql, args)
		return 0, err
	}
	if err = t.tx.QueryRow(ctx, sql, args...).Scan(&version); err != nil {
		t.sqlError(err, sql, args)
		return 0, err
	}
	return version, nil
}

func (t *pgTx) bumpVersion(ctx context.Context) error {
	sql, args, err := bumpVersionQuery().ToSql()
	if err != nil {
		t.sqlError(err, sql, args)
		return err
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		t.sqlError(err, sql, args)
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("ledger_version row is missing: %w", model.ErrInternalConsistency)
	}
	return nil
}

func (t *pgTx) Lots(ctx context.Context, filter model.LotFilter) ([]model.Lot, error) {
	q := lotsQuery(filter)
	if filter.Open {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		t.sqlError(err, sql, args)
		return nil, err
	}
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		t.sqlError(err, sql, args)
		return nil, err
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		var lot model.Lot
		var ts pgtype.Timestamptz
		if err = rows.Scan(&lot.ID, &lot.Payer, &lot.Points, &lot.Used, &ts); err != nil {
			return nil, err
		}
		if ts.Status != pgtype.Present {
			return nil, fmt.Errorf("lot %d has no timestamp: %w", lot.ID, model.ErrInternalConsistency)
		}
		lot.Timestamp = ts.Time
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (t *pgTx) Insert(ctx context.Context, lot model.Lot) (model.Lot, error) {
	sql, args, err := insertQuery(lot).ToSql()
	if err != nil {
		t.sqlError(err, sql, args)
		return lot, err
	}
	if err = t.tx.QueryRow(ctx, sql, args...).Scan(&lot.ID); err != nil {
		t.sqlError(err, sql, args)
		return lot, err
	}
	lot.Used = 0
	return lot, nil
}

func (t *pgTx) Consume(ctx context.Context, id int64, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("lot %d delta %d: %w", id, delta, model.ErrInternalConsistency)
	}
	sql, args, err := consumeQuery(id, delta).ToSql()
	if err != nil {
		t.sqlError(err, sql, args)
		return err
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		t.sqlError(err, sql, args)
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("lot %d cannot take delta %d: %w", id, delta, model.ErrInternalConsistency)
	}
	return nil
}

func (t *pgTx) Reset(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, "TRUNCATE lots RESTART IDENTITY")
	if err != nil {
		t.sqlError(err, "TRUNCATE lots RESTART IDENTITY", nil)
	}
	return err
}

func (t *pgTx) sqlError(err error, sql string, args []any) {
	t.logger.Error("SQL error",
		zap.Error(err),
		zap.String("query", sql),
		zap.Any("args", args),
	)
}
