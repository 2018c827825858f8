/*
store.go - Persistence interface for the engine

PURPOSE:
  Defines the interface between the domain logic and the database. Different
  implementations can use SQLite or in-memory storage; the engine only sees
  these interfaces and is handed a store explicitly, never an ambient global.

KEY INTERFACES:
  Store:   record persistence (customers, transactions, lots, ledger entries,
           day balances, base inventory)
  TxStore: Store plus WithTx, the single-writer atomic unit every mutation
           path runs inside

ATOMICITY:
  Every TransactionLedger save/delete/restore and every backup merge runs
  inside one WithTx call. If the function returns an error the whole unit is
  rolled back; partial balance, stock, or ledger mutations never persist.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - engine/store/memory.go: in-memory for tests/dev
*/
package engine

import "context"

// =============================================================================
// FILTERS
// =============================================================================

type TxFilter struct {
	CustomerID     CustomerID // empty = all customers
	From, To       Date       // zero = unbounded
	IncludeDeleted bool
	DeletedOnly    bool
}

type LotFilter struct {
	Item       ItemType // empty = all items
	UnsoldOnly bool
}

type LedgerFilter struct {
	Tx             *TxKey
	CustomerID     CustomerID
	Kind           LedgerKind // empty = both kinds
	From, To       Date
	IncludeDeleted bool
}

// =============================================================================
// STORE
// =============================================================================

// Store handles persistence of all engine records. Get methods return a
// NotFoundError when the record does not exist; Put methods upsert.
type Store interface {
	GetCustomer(ctx context.Context, id CustomerID) (Customer, error)
	PutCustomer(ctx context.Context, c Customer) error
	ListCustomers(ctx context.Context) ([]Customer, error)

	GetTransaction(ctx context.Context, key TxKey) (Transaction, error)
	PutTransaction(ctx context.Context, t Transaction) error
	// DeleteTransaction physically removes a transaction. Only the retention
	// sweep and merge bookkeeping call this; everything else soft-deletes.
	DeleteTransaction(ctx context.Context, key TxKey) error
	ListTransactions(ctx context.Context, f TxFilter) ([]Transaction, error)

	GetLot(ctx context.Context, id LotID) (StockLot, error)
	PutLot(ctx context.Context, lot StockLot) error
	DeleteLot(ctx context.Context, id LotID) error
	// ListLots returns lots ordered oldest first (CreatedAt, then id), the
	// order FIFO consumption depends on.
	ListLots(ctx context.Context, f LotFilter) ([]StockLot, error)

	HasLedgerEntry(ctx context.Context, id LedgerEntryID) (bool, error)
	PutLedgerEntry(ctx context.Context, le LedgerEntry) error
	// DeleteLedgerEntries physically removes a transaction's ledger rows of
	// the given kind (empty kind = both).
	DeleteLedgerEntries(ctx context.Context, tx TxKey, kind LedgerKind) error
	ListLedgerEntries(ctx context.Context, f LedgerFilter) ([]LedgerEntry, error)
	EarliestActiveLedgerDate(ctx context.Context) (Date, bool, error)

	GetDayBalance(ctx context.Context, d Date) (DayBalance, bool, error)
	PutDayBalance(ctx context.Context, b DayBalance) error

	GetBaseInventory(ctx context.Context) (BaseInventory, bool, error)
	PutBaseInventory(ctx context.Context, b BaseInventory) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with an atomic unit. If fn returns an error the unit is
// rolled back, otherwise committed. Reads inside fn observe the unit's own
// uncommitted writes.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
