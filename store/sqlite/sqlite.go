/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.Store and engine.TxStore using database/sql with SQLite.
  The same patterns apply to PostgreSQL - only minor dialect differences.

KEY TABLES:
  customers:      balances per customer (money + refined metals)
  transactions:   the aggregate, entries embedded as JSON, composite key
                  (local_id, device_id)
  stock_lots:     FIFO impure-metal lot pool
  ledger_entries: append-only money/metal movement projections
  day_balances:   opening inventory snapshot per business date
  base_inventory: singleton chain starting point

DECIMALS:
  Money and weights are stored as TEXT in decimal string form; SQLite REAL
  would reintroduce exactly the floating drift the engine exists to avoid.

ATOMIC UNITS:
  WithTx wraps fn in BEGIN/COMMIT; the inner Store view routes every read
  and write through the open *sql.Tx so fn observes its own writes. The
  mutex serializes writers, matching the engine's single-writer model.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/bulliondesk.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := engine.NewLedger(store, deviceID)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/ledger.go: Higher-level ledger using TxStore
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: the engine is single-writer, and :memory: databases
	// exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		money_balance TEXT NOT NULL DEFAULT '0',
		gold999_balance TEXT NOT NULL DEFAULT '0',
		gold995_balance TEXT NOT NULL DEFAULT '0',
		silver_balance TEXT NOT NULL DEFAULT '0',
		last_activity_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		local_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		entries_json TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		amount_settled TEXT NOT NULL,
		note TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		deleted_on TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (local_id, device_id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer_date
		ON transactions(customer_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_deleted
		ON transactions(deleted);

	CREATE TABLE IF NOT EXISTS stock_lots (
		id TEXT PRIMARY KEY,
		item TEXT NOT NULL,
		weight TEXT NOT NULL,
		touch TEXT NOT NULL,
		sold INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- FIFO hot path: oldest unsold lot per item type
	CREATE INDEX IF NOT EXISTS idx_lots_item_sold_created
		ON stock_lots(item, sold, created_at);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		tx_local_id TEXT NOT NULL,
		tx_device_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		direction TEXT NOT NULL,
		item TEXT,
		weight TEXT,
		amount TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		deleted_on TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_tx
		ON ledger_entries(tx_local_id, tx_device_id);
	-- inventory recompute hot path
	CREATE INDEX IF NOT EXISTS idx_ledger_date
		ON ledger_entries(date);
	CREATE INDEX IF NOT EXISTS idx_ledger_customer_date
		ON ledger_entries(customer_id, date);

	CREATE TABLE IF NOT EXISTS day_balances (
		date TEXT PRIMARY KEY,
		gold999 TEXT NOT NULL DEFAULT '0',
		gold995 TEXT NOT NULL DEFAULT '0',
		rani TEXT NOT NULL DEFAULT '0',
		silver TEXT NOT NULL DEFAULT '0',
		rupu TEXT NOT NULL DEFAULT '0',
		money TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS base_inventory (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		gold999 TEXT NOT NULL DEFAULT '0',
		gold995 TEXT NOT NULL DEFAULT '0',
		rani TEXT NOT NULL DEFAULT '0',
		silver TEXT NOT NULL DEFAULT '0',
		rupu TEXT NOT NULL DEFAULT '0',
		money TEXT NOT NULL DEFAULT '0',
		set_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the common query surface of *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session implements engine.Store over either the root connection or an
// open transaction.
type session struct {
	q dbtx
}

// =============================================================================
// ENGINE.STORE (root connection, mutex-guarded)
// =============================================================================

func (s *Store) GetCustomer(ctx context.Context, id engine.CustomerID) (engine.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.GetCustomer(ctx, id)
}

func (s *Store) PutCustomer(ctx context.Context, c engine.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutCustomer(ctx, c)
}

func (s *Store) ListCustomers(ctx context.Context) ([]engine.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.ListCustomers(ctx)
}

func (s *Store) GetTransaction(ctx context.Context, key engine.TxKey) (engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.GetTransaction(ctx, key)
}

func (s *Store) PutTransaction(ctx context.Context, t engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutTransaction(ctx, t)
}

func (s *Store) DeleteTransaction(ctx context.Context, key engine.TxKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.DeleteTransaction(ctx, key)
}

func (s *Store) ListTransactions(ctx context.Context, f engine.TxFilter) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.ListTransactions(ctx, f)
}

func (s *Store) GetLot(ctx context.Context, id engine.LotID) (engine.StockLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.GetLot(ctx, id)
}

func (s *Store) PutLot(ctx context.Context, lot engine.StockLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutLot(ctx, lot)
}

func (s *Store) DeleteLot(ctx context.Context, id engine.LotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.DeleteLot(ctx, id)
}

func (s *Store) ListLots(ctx context.Context, f engine.LotFilter) ([]engine.StockLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.ListLots(ctx, f)
}

func (s *Store) HasLedgerEntry(ctx context.Context, id engine.LedgerEntryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.HasLedgerEntry(ctx, id)
}

func (s *Store) PutLedgerEntry(ctx context.Context, le engine.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutLedgerEntry(ctx, le)
}

func (s *Store) DeleteLedgerEntries(ctx context.Context, tx engine.TxKey, kind engine.LedgerKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.DeleteLedgerEntries(ctx, tx, kind)
}

func (s *Store) ListLedgerEntries(ctx context.Context, f engine.LedgerFilter) ([]engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.ListLedgerEntries(ctx, f)
}

func (s *Store) EarliestActiveLedgerDate(ctx context.Context) (engine.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.EarliestActiveLedgerDate(ctx)
}

func (s *Store) GetDayBalance(ctx context.Context, d engine.Date) (engine.DayBalance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.GetDayBalance(ctx, d)
}

func (s *Store) PutDayBalance(ctx context.Context, b engine.DayBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutDayBalance(ctx, b)
}

func (s *Store) GetBaseInventory(ctx context.Context) (engine.BaseInventory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db}.GetBaseInventory(ctx)
}

func (s *Store) PutBaseInventory(ctx context.Context, b engine.BaseInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db}.PutBaseInventory(ctx, b)
}

// WithTx executes fn inside one database transaction. Any error from fn
// rolls the whole unit back.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(session{sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (se session) GetCustomer(ctx context.Context, id engine.CustomerID) (engine.Customer, error) {
	row := se.q.QueryRowContext(ctx, `
		SELECT id, name, money_balance, gold999_balance, gold995_balance, silver_balance, last_activity_at
		FROM customers WHERE id = ?`, id)

	var c engine.Customer
	var money, g999, g995, silver, lastActivity string
	if err := row.Scan(&c.ID, &c.Name, &money, &g999, &g995, &silver, &lastActivity); err != nil {
		if err == sql.ErrNoRows {
			return engine.Customer{}, &engine.NotFoundError{Kind: "customer", ID: string(id)}
		}
		return engine.Customer{}, fmt.Errorf("failed to scan customer: %w", err)
	}
	c.MoneyBalance = parseDec(money)
	c.MetalBalances = engine.MetalBalance{
		Gold999: parseDec(g999),
		Gold995: parseDec(g995),
		Silver:  parseDec(silver),
	}
	c.LastActivityAt = parseTime(lastActivity)
	return c, nil
}

func (se session) PutCustomer(ctx context.Context, c engine.Customer) error {
	_, err := se.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, money_balance, gold999_balance, gold995_balance, silver_balance, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			money_balance = excluded.money_balance,
			gold999_balance = excluded.gold999_balance,
			gold995_balance = excluded.gold995_balance,
			silver_balance = excluded.silver_balance,
			last_activity_at = excluded.last_activity_at`,
		c.ID, c.Name,
		c.MoneyBalance.String(),
		c.MetalBalances.Gold999.String(),
		c.MetalBalances.Gold995.String(),
		c.MetalBalances.Silver.String(),
		formatTime(c.LastActivityAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put customer: %w", err)
	}
	return nil
}

func (se session) ListCustomers(ctx context.Context) ([]engine.Customer, error) {
	rows, err := se.q.QueryContext(ctx, `
		SELECT id, name, money_balance, gold999_balance, gold995_balance, silver_balance, last_activity_at
		FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []engine.Customer
	for rows.Next() {
		var c engine.Customer
		var money, g999, g995, silver, lastActivity string
		if err := rows.Scan(&c.ID, &c.Name, &money, &g999, &g995, &silver, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.MoneyBalance = parseDec(money)
		c.MetalBalances = engine.MetalBalance{
			Gold999: parseDec(g999),
			Gold995: parseDec(g995),
			Silver:  parseDec(silver),
		}
		c.LastActivityAt = parseTime(lastActivity)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const txColumns = `local_id, device_id, customer_id, date, entries_json, net_amount,
	amount_settled, note, deleted, deleted_on, created_at, updated_at`

func (se session) GetTransaction(ctx context.Context, key engine.TxKey) (engine.Transaction, error) {
	rows, err := se.q.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE local_id = ? AND device_id = ?`,
		key.LocalID, key.DeviceID)
	if err != nil {
		return engine.Transaction{}, fmt.Errorf("failed to query transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return engine.Transaction{}, err
		}
		return engine.Transaction{}, &engine.NotFoundError{Kind: "transaction", ID: key.String()}
	}
	return scanTransaction(rows)
}

func (se session) PutTransaction(ctx context.Context, t engine.Transaction) error {
	entriesJSON, err := json.Marshal(t.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	deleted := 0
	deletedOn := sql.NullString{}
	if !t.Deletion.Active() {
		deleted = 1
		deletedOn = sql.NullString{String: t.Deletion.On.String(), Valid: true}
	}

	_, err = se.q.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id, device_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			date = excluded.date,
			entries_json = excluded.entries_json,
			net_amount = excluded.net_amount,
			amount_settled = excluded.amount_settled,
			note = excluded.note,
			deleted = excluded.deleted,
			deleted_on = excluded.deleted_on,
			updated_at = excluded.updated_at`,
		t.Key.LocalID, t.Key.DeviceID, t.CustomerID, t.Date.String(),
		string(entriesJSON), t.NetAmount.String(), t.AmountSettled.String(),
		nullString(t.Note), deleted, deletedOn,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put transaction: %w", err)
	}
	return nil
}

func (se session) DeleteTransaction(ctx context.Context, key engine.TxKey) error {
	_, err := se.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE local_id = ? AND device_id = ?`,
		key.LocalID, key.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (se session) ListTransactions(ctx context.Context, f engine.TxFilter) ([]engine.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if f.DeletedOnly {
		query += ` AND deleted = 1`
	} else if !f.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.String())
	}
	query += ` ORDER BY date ASC, created_at ASC`

	rows, err := se.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []engine.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(rows *sql.Rows) (engine.Transaction, error) {
	var (
		t           engine.Transaction
		date        string
		entriesJSON string
		netAmount   string
		settled     string
		note        sql.NullString
		deleted     int
		deletedOn   sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := rows.Scan(
		&t.Key.LocalID, &t.Key.DeviceID, &t.CustomerID, &date, &entriesJSON,
		&netAmount, &settled, &note, &deleted, &deletedOn, &createdAt, &updatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Date, _ = engine.ParseDate(date)
	if err := json.Unmarshal([]byte(entriesJSON), &t.Entries); err != nil {
		return t, fmt.Errorf("failed to decode entries: %w", err)
	}
	t.NetAmount = parseDec(netAmount)
	t.AmountSettled = parseDec(settled)
	t.Note = note.String
	if deleted == 1 {
		on, _ := engine.ParseDate(deletedOn.String)
		t.Deletion = engine.DeletedOn(on)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// =============================================================================
// STOCK LOTS
// =============================================================================

func (se session) GetLot(ctx context.Context, id engine.LotID) (engine.StockLot, error) {
	row := se.q.QueryRowContext(ctx, `
		SELECT id, item, weight, touch, sold, created_at FROM stock_lots WHERE id = ?`, id)

	var lot engine.StockLot
	var weight, touch, createdAt string
	var sold int
	if err := row.Scan(&lot.ID, &lot.Item, &weight, &touch, &sold, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return engine.StockLot{}, &engine.NotFoundError{Kind: "lot", ID: string(id)}
		}
		return engine.StockLot{}, fmt.Errorf("failed to scan lot: %w", err)
	}
	lot.Weight = parseDec(weight)
	lot.Touch = parseDec(touch)
	lot.Sold = sold == 1
	lot.CreatedAt = parseTime(createdAt)
	return lot, nil
}

func (se session) PutLot(ctx context.Context, lot engine.StockLot) error {
	sold := 0
	if lot.Sold {
		sold = 1
	}
	_, err := se.q.ExecContext(ctx, `
		INSERT INTO stock_lots (id, item, weight, touch, sold, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			item = excluded.item,
			weight = excluded.weight,
			touch = excluded.touch,
			sold = excluded.sold,
			created_at = excluded.created_at`,
		lot.ID, lot.Item, lot.Weight.String(), lot.Touch.String(), sold,
		formatTime(lot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put lot: %w", err)
	}
	return nil
}

func (se session) DeleteLot(ctx context.Context, id engine.LotID) error {
	_, err := se.q.ExecContext(ctx, `DELETE FROM stock_lots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	return nil
}

func (se session) ListLots(ctx context.Context, f engine.LotFilter) ([]engine.StockLot, error) {
	query := `SELECT id, item, weight, touch, sold, created_at FROM stock_lots WHERE 1=1`
	var args []any
	if f.Item != "" {
		query += ` AND item = ?`
		args = append(args, f.Item)
	}
	if f.UnsoldOnly {
		query += ` AND sold = 0`
	}
	// FIFO order
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := se.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var out []engine.StockLot
	for rows.Next() {
		var lot engine.StockLot
		var weight, touch, createdAt string
		var sold int
		if err := rows.Scan(&lot.ID, &lot.Item, &weight, &touch, &sold, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lot.Weight = parseDec(weight)
		lot.Touch = parseDec(touch)
		lot.Sold = sold == 1
		lot.CreatedAt = parseTime(createdAt)
		out = append(out, lot)
	}
	return out, rows.Err()
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

func (se session) HasLedgerEntry(ctx context.Context, id engine.LedgerEntryID) (bool, error) {
	var count int
	err := se.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count > 0, nil
}

func (se session) PutLedgerEntry(ctx context.Context, le engine.LedgerEntry) error {
	deleted := 0
	deletedOn := sql.NullString{}
	if !le.Deletion.Active() {
		deleted = 1
		deletedOn = sql.NullString{String: le.Deletion.On.String(), Valid: true}
	}
	_, err := se.q.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(id, kind, tx_local_id, tx_device_id, customer_id, date, direction, item, weight, amount, deleted, deleted_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			deleted = excluded.deleted,
			deleted_on = excluded.deleted_on`,
		le.ID, le.Kind, le.Tx.LocalID, le.Tx.DeviceID, le.CustomerID,
		le.Date.String(), le.Direction, nullString(string(le.Item)),
		le.Weight.String(), le.Amount.String(), deleted, deletedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to put ledger entry: %w", err)
	}
	return nil
}

func (se session) DeleteLedgerEntries(ctx context.Context, tx engine.TxKey, kind engine.LedgerKind) error {
	query := `DELETE FROM ledger_entries WHERE tx_local_id = ? AND tx_device_id = ?`
	args := []any{tx.LocalID, tx.DeviceID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	if _, err := se.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	return nil
}

func (se session) ListLedgerEntries(ctx context.Context, f engine.LedgerFilter) ([]engine.LedgerEntry, error) {
	query := `
		SELECT id, kind, tx_local_id, tx_device_id, customer_id, date, direction, item, weight, amount, deleted, deleted_on
		FROM ledger_entries WHERE 1=1`
	var args []any

	if !f.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	if f.Tx != nil {
		query += ` AND tx_local_id = ? AND tx_device_id = ?`
		args = append(args, f.Tx.LocalID, f.Tx.DeviceID)
	}
	if f.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.String())
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := se.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []engine.LedgerEntry
	for rows.Next() {
		var (
			le        engine.LedgerEntry
			date      string
			item      sql.NullString
			weight    string
			amount    string
			deleted   int
			deletedOn sql.NullString
		)
		if err := rows.Scan(&le.ID, &le.Kind, &le.Tx.LocalID, &le.Tx.DeviceID,
			&le.CustomerID, &date, &le.Direction, &item, &weight, &amount,
			&deleted, &deletedOn); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		le.Date, _ = engine.ParseDate(date)
		le.Item = engine.ItemType(item.String)
		le.Weight = parseDec(weight)
		le.Amount = parseDec(amount)
		if deleted == 1 {
			on, _ := engine.ParseDate(deletedOn.String)
			le.Deletion = engine.DeletedOn(on)
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

func (se session) EarliestActiveLedgerDate(ctx context.Context) (engine.Date, bool, error) {
	var date sql.NullString
	err := se.q.QueryRowContext(ctx,
		`SELECT MIN(date) FROM ledger_entries WHERE deleted = 0`).Scan(&date)
	if err != nil {
		return engine.Date{}, false, fmt.Errorf("failed to query earliest ledger date: %w", err)
	}
	if !date.Valid || date.String == "" {
		return engine.Date{}, false, nil
	}
	d, err := engine.ParseDate(date.String)
	if err != nil {
		return engine.Date{}, false, err
	}
	return d, true, nil
}

// =============================================================================
// DAY BALANCES / BASE INVENTORY
// =============================================================================

func (se session) GetDayBalance(ctx context.Context, d engine.Date) (engine.DayBalance, bool, error) {
	row := se.q.QueryRowContext(ctx, `
		SELECT date, gold999, gold995, rani, silver, rupu, money
		FROM day_balances WHERE date = ?`, d.String())

	var date, g999, g995, rani, silver, rupu, money string
	if err := row.Scan(&date, &g999, &g995, &rani, &silver, &rupu, &money); err != nil {
		if err == sql.ErrNoRows {
			return engine.DayBalance{}, false, nil
		}
		return engine.DayBalance{}, false, fmt.Errorf("failed to scan day balance: %w", err)
	}
	b := engine.DayBalance{InventoryVector: engine.InventoryVector{
		Gold999: parseDec(g999),
		Gold995: parseDec(g995),
		Rani:    parseDec(rani),
		Silver:  parseDec(silver),
		Rupu:    parseDec(rupu),
		Money:   parseDec(money),
	}}
	b.Date, _ = engine.ParseDate(date)
	return b, true, nil
}

func (se session) PutDayBalance(ctx context.Context, b engine.DayBalance) error {
	_, err := se.q.ExecContext(ctx, `
		INSERT INTO day_balances (date, gold999, gold995, rani, silver, rupu, money)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			gold999 = excluded.gold999,
			gold995 = excluded.gold995,
			rani = excluded.rani,
			silver = excluded.silver,
			rupu = excluded.rupu,
			money = excluded.money`,
		b.Date.String(), b.Gold999.String(), b.Gold995.String(), b.Rani.String(),
		b.Silver.String(), b.Rupu.String(), b.Money.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to put day balance: %w", err)
	}
	return nil
}

func (se session) GetBaseInventory(ctx context.Context) (engine.BaseInventory, bool, error) {
	row := se.q.QueryRowContext(ctx, `
		SELECT gold999, gold995, rani, silver, rupu, money, set_at
		FROM base_inventory WHERE id = 1`)

	var g999, g995, rani, silver, rupu, money, setAt string
	if err := row.Scan(&g999, &g995, &rani, &silver, &rupu, &money, &setAt); err != nil {
		if err == sql.ErrNoRows {
			return engine.BaseInventory{}, false, nil
		}
		return engine.BaseInventory{}, false, fmt.Errorf("failed to scan base inventory: %w", err)
	}
	return engine.BaseInventory{
		InventoryVector: engine.InventoryVector{
			Gold999: parseDec(g999),
			Gold995: parseDec(g995),
			Rani:    parseDec(rani),
			Silver:  parseDec(silver),
			Rupu:    parseDec(rupu),
			Money:   parseDec(money),
		},
		SetAt: parseTime(setAt),
	}, true, nil
}

func (se session) PutBaseInventory(ctx context.Context, b engine.BaseInventory) error {
	_, err := se.q.ExecContext(ctx, `
		INSERT INTO base_inventory (id, gold999, gold995, rani, silver, rupu, money, set_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			gold999 = excluded.gold999,
			gold995 = excluded.gold995,
			rani = excluded.rani,
			silver = excluded.silver,
			rupu = excluded.rupu,
			money = excluded.money,
			set_at = excluded.set_at`,
		b.Gold999.String(), b.Gold995.String(), b.Rani.String(),
		b.Silver.String(), b.Rupu.String(), b.Money.String(),
		formatTime(b.SetAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put base inventory: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// timeLayout is fixed-width: RFC3339Nano trims trailing fractional zeros, so
// its lexicographic order diverges from chronological order and would break
// the FIFO `ORDER BY created_at` on lots created within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
