package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ OrderStore = (*SQLiteStore)(nil)
var _ WalletStore = (*SQLiteStore)(nil)
var _ LedgerStore = (*SQLiteStore)(nil)
var _ MerchantStore = (*SQLiteStore)(nil)

// SQLiteStore implements OrderStore, WalletStore, LedgerStore, and
// MerchantStore backed by a SQLite database. Monetary values are stored as
// TEXT to keep decimal exactness.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS order_lines (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	member_id        TEXT NOT NULL,
	merchant_id      TEXT NOT NULL,
	basket_id        TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	shares           TEXT NOT NULL,
	points_allocated TEXT NOT NULL,
	cash_allocated   TEXT NOT NULL,
	order_type       TEXT NOT NULL,
	broker           TEXT NOT NULL,
	status           TEXT NOT NULL,
	sweep_day        TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_lines_basket ON order_lines(basket_id);
CREATE INDEX IF NOT EXISTS idx_order_lines_member ON order_lines(member_id);

CREATE TABLE IF NOT EXISTS wallets (
	member_id       TEXT PRIMARY KEY,
	points          TEXT NOT NULL,
	cash_balance    TEXT NOT NULL,
	portfolio_value TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	client_tx_id TEXT PRIMARY KEY,
	member_id    TEXT NOT NULL,
	merchant_id  TEXT NOT NULL,
	broker       TEXT NOT NULL,
	tx_type      TEXT NOT NULL,
	points       TEXT NOT NULL,
	note         TEXT NOT NULL,
	timestamp    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS merchants (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	broker            TEXT NOT NULL,
	sweep_day         TEXT NOT NULL DEFAULT '',
	fractional_points INTEGER NOT NULL DEFAULT 0
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// PlaceOrderLine inserts a new order line and returns its id.
func (s *SQLiteStore) PlaceOrderLine(ctx context.Context, line *domain.OrderLine) (int64, error) {
	now := time.Now().UTC()
	if line.CreatedAt.IsZero() {
		line.CreatedAt = now
	}
	line.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO order_lines
			(member_id, merchant_id, basket_id, symbol, shares, points_allocated,
			 cash_allocated, order_type, broker, status, sweep_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.MemberID, line.MerchantID, line.BasketID, line.Symbol,
		line.Shares.String(), line.PointsAllocated.String(), line.CashAllocated.String(),
		line.OrderType, line.Broker, string(line.Status), line.SweepDay,
		line.CreatedAt.Format(time.RFC3339Nano), line.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting order line for %s: %w", line.Symbol, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	line.ID = id
	return id, nil
}

// GetOrderLines returns all lines belonging to a basket, in insertion order.
func (s *SQLiteStore) GetOrderLines(ctx context.Context, basketID string) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, merchant_id, basket_id, symbol, shares,
		       points_allocated, cash_allocated, order_type, broker, status,
		       sweep_day, created_at, updated_at
		FROM order_lines WHERE basket_id = ? ORDER BY id`, basketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderLines(rows)
}

// ListOrderLinesByMember returns the member's most recent lines, up to limit.
func (s *SQLiteStore) ListOrderLinesByMember(ctx context.Context, memberID string, limit int) ([]domain.OrderLine, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, merchant_id, basket_id, symbol, shares,
		       points_allocated, cash_allocated, order_type, broker, status,
		       sweep_day, created_at, updated_at
		FROM order_lines WHERE member_id = ? ORDER BY id DESC LIMIT ?`, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderLines(rows)
}

// AdvanceBasketStatus moves every line of the basket in status from to
// status to. Backward or unknown transitions are rejected before touching
// the database.
func (s *SQLiteStore) AdvanceBasketStatus(ctx context.Context, basketID string, from, to domain.OrderStatus) (int64, error) {
	if !from.CanTransition(to) {
		return 0, fmt.Errorf("invalid status transition %s -> %s", from, to)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE order_lines SET status = ?, updated_at = ?
		WHERE basket_id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(time.RFC3339Nano), basketID, string(from))
	if err != nil {
		return 0, fmt.Errorf("advancing basket %s to %s: %w", basketID, to, err)
	}
	return res.RowsAffected()
}

func scanOrderLines(rows *sql.Rows) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line                         domain.OrderLine
			shares, points, cash, status string
			createdAt, updatedAt         string
		)
		if err := rows.Scan(&line.ID, &line.MemberID, &line.MerchantID, &line.BasketID,
			&line.Symbol, &shares, &points, &cash, &line.OrderType, &line.Broker,
			&status, &line.SweepDay, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		var err error
		if line.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("parsing shares %q: %w", shares, err)
		}
		if line.PointsAllocated, err = decimal.NewFromString(points); err != nil {
			return nil, fmt.Errorf("parsing points %q: %w", points, err)
		}
		if line.CashAllocated, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("parsing cash %q: %w", cash, err)
		}
		line.Status = domain.OrderStatus(status)
		line.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		line.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ---------------------------------------------------------------------------
// WalletStore implementation
// ---------------------------------------------------------------------------

// GetWallet returns the member's current balances.
func (s *SQLiteStore) GetWallet(ctx context.Context, memberID string) (*domain.WalletBalances, error) {
	var points, cash, portfolio string
	err := s.db.QueryRowContext(ctx, `
		SELECT points, cash_balance, portfolio_value FROM wallets WHERE member_id = ?`,
		memberID).Scan(&points, &cash, &portfolio)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wallet for member %s: %w", memberID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	w := &domain.WalletBalances{MemberID: memberID}
	if w.Points, err = decimal.NewFromString(points); err != nil {
		return nil, fmt.Errorf("parsing points %q: %w", points, err)
	}
	if w.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parsing cash balance %q: %w", cash, err)
	}
	if w.PortfolioValue, err = decimal.NewFromString(portfolio); err != nil {
		return nil, fmt.Errorf("parsing portfolio value %q: %w", portfolio, err)
	}
	return w, nil
}

// UpdateBalances overwrites the member's balances.
func (s *SQLiteStore) UpdateBalances(ctx context.Context, b *domain.WalletBalances) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (member_id, points, cash_balance, portfolio_value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET
			points = excluded.points,
			cash_balance = excluded.cash_balance,
			portfolio_value = excluded.portfolio_value,
			updated_at = excluded.updated_at`,
		b.MemberID, b.Points.String(), b.CashBalance.String(),
		b.PortfolioValue.String(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("updating wallet for %s: %w", b.MemberID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// LedgerStore implementation
// ---------------------------------------------------------------------------

// AppendEntry writes a ledger entry. A duplicate ClientTxID is ignored so
// retried submissions do not double-log.
func (s *SQLiteStore) AppendEntry(ctx context.Context, e *domain.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_entries
			(client_tx_id, member_id, merchant_id, broker, tx_type, points, note, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ClientTxID, e.MemberID, e.MerchantID, e.Broker, e.TxType,
		e.Points.String(), e.Note, e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("appending ledger entry %s: %w", e.ClientTxID, err)
	}
	return nil
}

// ListEntries returns entries with a timestamp at or after since, oldest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_tx_id, member_id, merchant_id, broker, tx_type, points, note, timestamp
		FROM ledger_entries WHERE timestamp >= ? ORDER BY timestamp`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var points, ts string
		if err := rows.Scan(&e.ClientTxID, &e.MemberID, &e.MerchantID, &e.Broker,
			&e.TxType, &points, &e.Note, &ts); err != nil {
			return nil, err
		}
		if e.Points, err = decimal.NewFromString(points); err != nil {
			return nil, fmt.Errorf("parsing ledger points %q: %w", points, err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ---------------------------------------------------------------------------
// MerchantStore implementation
// ---------------------------------------------------------------------------

// GetMerchant returns the merchant's settlement settings.
func (s *SQLiteStore) GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	m := &domain.Merchant{ID: merchantID}
	var fractional int
	err := s.db.QueryRowContext(ctx, `
		SELECT name, broker, sweep_day, fractional_points FROM merchants WHERE id = ?`,
		merchantID).Scan(&m.Name, &m.Broker, &m.SweepDay, &fractional)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("merchant %s: %w", merchantID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m.FractionalPoints = fractional != 0
	return m, nil
}

// SaveMerchant inserts or replaces a merchant record.
func (s *SQLiteStore) SaveMerchant(ctx context.Context, m *domain.Merchant) error {
	fractional := 0
	if m.FractionalPoints {
		fractional = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO merchants (id, name, broker, sweep_day, fractional_points)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Broker, m.SweepDay, fractional)
	if err != nil {
		return fmt.Errorf("saving merchant %s: %w", m.ID, err)
	}
	return nil
}
