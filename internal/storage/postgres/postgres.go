package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pricewatch/internal/config"
	"pricewatch/internal/models"
	"pricewatch/internal/storage"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

// querier lets the history helpers run either on the pool or inside a
// transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// Migrate creates the monitors and price_history tables if they are missing.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	const monitorsDDL = `
		CREATE TABLE IF NOT EXISTS monitors (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			url TEXT NOT NULL,
			store VARCHAR(50) NOT NULL,
			price NUMERIC(10,2),
			product_name VARCHAR(500),
			name VARCHAR(255),
			desired_price NUMERIC(10,2),
			notification_platform VARCHAR(50),
			is_below_desired_price BOOLEAN,
			last_mined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			next_mine_at TIMESTAMPTZ NOT NULL DEFAULT now() + interval '1 hour',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, url)
		)
	`

	const historyDDL = `
		CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			monitor_id BIGINT NOT NULL REFERENCES monitors(id),
			price NUMERIC(10,2) NOT NULL,
			store VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	for _, ddl := range []string{monitorsDDL, historyDDL} {
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// UpsertMonitor inserts a monitor for a new (user, url) pair or partially
// updates the existing one with the supplied fields. Mining timestamps are
// refreshed unconditionally. When the call carries a price, the matching
// history entry is written in the same transaction if the price changed.
func (r *PostgresRepo) UpsertMonitor(ctx context.Context, m models.MonitorUpdate) (int64, error) {
	const op = "storage.postgres.UpsertMonitor"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id int64

	err = tx.QueryRow(ctx,
		`SELECT id FROM monitors WHERE user_id = $1 AND url = $2`,
		m.UserID, m.URL,
	).Scan(&id)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id, err = insertOrRecover(ctx, tx, m)
		if err != nil {
			return 0, fmt.Errorf("%s: insert: %w", op, err)
		}

	case err != nil:
		return 0, fmt.Errorf("%s: lookup: %w", op, err)

	default:
		query, args := updateQuery(id, m)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("%s: update: %w", op, err)
		}
	}

	if m.Price.Valid {
		if err := recordPriceIfChanged(ctx, tx, id, m.Price.Decimal, m.Store); err != nil {
			return 0, fmt.Errorf("%s: history: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return id, nil
}

// insertOrRecover inserts the monitor inside a savepoint. A concurrent first
// scrape of the same (user, url) may insert the row between our lookup and
// insert; the unique violation is recovered by updating the winner's row.
func insertOrRecover(ctx context.Context, tx pgx.Tx, m models.MonitorUpdate) (int64, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return 0, err
	}

	id, err := insertMonitor(ctx, sp, m)
	if err == nil {
		return id, sp.Commit(ctx)
	}

	_ = sp.Rollback(ctx)

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != storage.UniqueViolation {
		return 0, err
	}

	if err := tx.QueryRow(ctx,
		`SELECT id FROM monitors WHERE user_id = $1 AND url = $2`,
		m.UserID, m.URL,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("relookup: %w", err)
	}

	query, args := updateQuery(id, m)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("update after conflict: %w", err)
	}

	return id, nil
}

func insertMonitor(ctx context.Context, q querier, m models.MonitorUpdate) (int64, error) {
	const query = `
		INSERT INTO monitors (
			user_id, url, store, price, name, desired_price,
			notification_platform, is_below_desired_price,
			last_mined_at, next_mine_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now() + interval '1 hour', now(), now())
		RETURNING id
	`

	var id int64

	err := q.QueryRow(ctx, query,
		m.UserID, m.URL, m.Store,
		m.Price, m.Name, m.DesiredPrice, m.NotificationPlatform,
		belowDesired(m),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// updateQuery builds the partial UPDATE for an existing monitor. Only the
// supplied fields are written; mining timestamps always refresh. The
// below-threshold flag is recomputed only when this call carries both a
// price and a desired price, and is never cleared otherwise.
func updateQuery(id int64, m models.MonitorUpdate) (string, []any) {
	set := []string{
		"last_mined_at = now()",
		"next_mine_at = now() + interval '1 hour'",
		"updated_at = now()",
	}

	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if m.Price.Valid {
		set = append(set, "price = "+arg(m.Price.Decimal))
	}
	if m.Name != nil {
		set = append(set, "name = "+arg(*m.Name))
	}
	if m.DesiredPrice.Valid {
		set = append(set, "desired_price = "+arg(m.DesiredPrice.Decimal))

		if below := belowDesired(m); below != nil {
			set = append(set, "is_below_desired_price = "+arg(*below))
		}
	}
	if m.NotificationPlatform != nil {
		set = append(set, "notification_platform = "+arg(*m.NotificationPlatform))
	}

	query := fmt.Sprintf(
		"UPDATE monitors SET %s WHERE id = %s",
		strings.Join(set, ", "), arg(id),
	)

	return query, args
}

// belowDesired is defined only when both prices are present.
func belowDesired(m models.MonitorUpdate) *bool {
	if !m.Price.Valid || !m.DesiredPrice.Valid {
		return nil
	}

	below := m.Price.Decimal.LessThan(m.DesiredPrice.Decimal)
	return &below
}

// DesiredPrice returns the stored threshold for a (user, url) pair, so a
// scrape without an explicit threshold preserves the previous one.
func (r *PostgresRepo) DesiredPrice(ctx context.Context, userID, url string) (decimal.NullDecimal, error) {
	const op = "storage.postgres.DesiredPrice"

	var desired decimal.NullDecimal

	err := r.pool.QueryRow(ctx,
		`SELECT desired_price FROM monitors WHERE user_id = $1 AND url = $2`,
		userID, url,
	).Scan(&desired)

	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", op, err)
	}

	return desired, nil
}

// recordPriceIfChanged appends a history entry when the price differs from
// the latest recorded one. Same price is a no-op.
func recordPriceIfChanged(ctx context.Context, q querier, monitorID int64, price decimal.Decimal, store string) error {
	var latest decimal.Decimal

	err := q.QueryRow(ctx,
		`SELECT price FROM price_history WHERE monitor_id = $1 ORDER BY created_at DESC LIMIT 1`,
		monitorID,
	).Scan(&latest)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first observation, always recorded

	case err != nil:
		return fmt.Errorf("latest entry: %w", err)

	default:
		if latest.Equal(price) {
			return nil
		}
	}

	_, err = q.Exec(ctx,
		`INSERT INTO price_history (monitor_id, price, store, created_at) VALUES ($1, $2, $3, now())`,
		monitorID, price, store,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	return nil
}

// MonitorByID returns a single monitor.
func (r *PostgresRepo) MonitorByID(ctx context.Context, monitorID int64) (models.Monitor, error) {
	const op = "storage.postgres.MonitorByID"

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, url, store, price, product_name, name, desired_price,
		        notification_platform, is_below_desired_price,
		        last_mined_at, next_mine_at, created_at, updated_at
		 FROM monitors WHERE id = $1`,
		monitorID,
	)
	if err != nil {
		return models.Monitor{}, fmt.Errorf("%s: query: %w", op, err)
	}

	monitor, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Monitor])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Monitor{}, storage.ErrMonitorNotFound
		}

		return models.Monitor{}, fmt.Errorf("%s: collect: %w", op, err)
	}

	return monitor, nil
}

// MonitorsByUser returns a page of the user's monitors plus the total count.
func (r *PostgresRepo) MonitorsByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Monitor, int64, error) {
	const op = "storage.postgres.MonitorsByUser"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx,
		`SELECT id, user_id, url, store, price, product_name, name, desired_price,
		        notification_platform, is_below_desired_price,
		        last_mined_at, next_mine_at, created_at, updated_at
		 FROM monitors
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: query: %w", op, err)
	}

	monitors, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Monitor])
	if err != nil {
		return nil, 0, fmt.Errorf("%s: collect: %w", op, err)
	}

	var total int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM monitors WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return monitors, total, nil
}

// HistoryByMonitor returns all price observations for a monitor, oldest first.
func (r *PostgresRepo) HistoryByMonitor(ctx context.Context, monitorID int64) ([]models.PriceHistoryEntry, error) {
	const op = "storage.postgres.HistoryByMonitor"

	rows, err := r.pool.Query(ctx,
		`SELECT id, monitor_id, price, store, created_at
		 FROM price_history
		 WHERE monitor_id = $1
		 ORDER BY created_at ASC`,
		monitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PriceHistoryEntry])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return entries, nil
}

// MonitorsDue returns mine tasks for every monitor whose next mining time has
// passed, most overdue first.
func (r *PostgresRepo) MonitorsDue(ctx context.Context) ([]models.MineTask, error) {
	const op = "storage.postgres.MonitorsDue"

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, url, store
		 FROM monitors
		 WHERE next_mine_at <= now()
		 ORDER BY next_mine_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var tasks []models.MineTask

	for rows.Next() {
		var t models.MineTask
		if err := rows.Scan(&t.MonitorID, &t.UserID, &t.URL, &t.Store); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return tasks, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
