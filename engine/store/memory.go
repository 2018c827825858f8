// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	customers    map[engine.CustomerID]engine.Customer
	transactions map[engine.TxKey]engine.Transaction
	lots         map[engine.LotID]engine.StockLot
	ledger       map[engine.LedgerEntryID]engine.LedgerEntry
	dayBalances  map[string]engine.DayBalance
	base         *engine.BaseInventory
}

func NewMemory() *Memory {
	return &Memory{
		customers:    make(map[engine.CustomerID]engine.Customer),
		transactions: make(map[engine.TxKey]engine.Transaction),
		lots:         make(map[engine.LotID]engine.StockLot),
		ledger:       make(map[engine.LedgerEntryID]engine.LedgerEntry),
		dayBalances:  make(map[string]engine.DayBalance),
	}
}

// ---------------------------------------------------------------------------
// Customers

func (m *Memory) GetCustomer(_ context.Context, id engine.CustomerID) (engine.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCustomerLocked(id)
}

func (m *Memory) getCustomerLocked(id engine.CustomerID) (engine.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return engine.Customer{}, &engine.NotFoundError{Kind: "customer", ID: string(id)}
	}
	return c, nil
}

func (m *Memory) PutCustomer(_ context.Context, c engine.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]engine.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCustomersLocked()
}

func (m *Memory) listCustomersLocked() ([]engine.Customer, error) {
	out := make([]engine.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// Transactions

func (m *Memory) GetTransaction(_ context.Context, key engine.TxKey) (engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransactionLocked(key)
}

func (m *Memory) getTransactionLocked(key engine.TxKey) (engine.Transaction, error) {
	t, ok := m.transactions[key]
	if !ok {
		return engine.Transaction{}, &engine.NotFoundError{Kind: "transaction", ID: key.String()}
	}
	return t, nil
}

func (m *Memory) PutTransaction(_ context.Context, t engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putTransactionLocked(t)
	return nil
}

func (m *Memory) putTransactionLocked(t engine.Transaction) {
	t.Entries = append([]engine.Entry(nil), t.Entries...)
	m.transactions[t.Key] = t
}

func (m *Memory) DeleteTransaction(_ context.Context, key engine.TxKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transactions, key)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, f engine.TxFilter) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransactionsLocked(f)
}

func (m *Memory) listTransactionsLocked(f engine.TxFilter) ([]engine.Transaction, error) {
	var out []engine.Transaction
	for _, t := range m.transactions {
		if matchTx(t, f) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchTx(t engine.Transaction, f engine.TxFilter) bool {
	if f.DeletedOnly && t.Deletion.Active() {
		return false
	}
	if !f.DeletedOnly && !f.IncludeDeleted && !t.Deletion.Active() {
		return false
	}
	if f.CustomerID != "" && t.CustomerID != f.CustomerID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Stock lots

func (m *Memory) GetLot(_ context.Context, id engine.LotID) (engine.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLotLocked(id)
}

func (m *Memory) getLotLocked(id engine.LotID) (engine.StockLot, error) {
	lot, ok := m.lots[id]
	if !ok {
		return engine.StockLot{}, &engine.NotFoundError{Kind: "lot", ID: string(id)}
	}
	return lot, nil
}

func (m *Memory) PutLot(_ context.Context, lot engine.StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[lot.ID] = lot
	return nil
}

func (m *Memory) DeleteLot(_ context.Context, id engine.LotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lots, id)
	return nil
}

func (m *Memory) ListLots(_ context.Context, f engine.LotFilter) ([]engine.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLotsLocked(f)
}

func (m *Memory) listLotsLocked(f engine.LotFilter) ([]engine.StockLot, error) {
	var out []engine.StockLot
	for _, lot := range m.lots {
		if f.Item != "" && lot.Item != f.Item {
			continue
		}
		if f.UnsoldOnly && lot.Sold {
			continue
		}
		out = append(out, lot)
	}
	// FIFO order: oldest first, id as tiebreak for stability.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Ledger entries

func (m *Memory) HasLedgerEntry(_ context.Context, id engine.LedgerEntryID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ledger[id]
	return ok, nil
}

func (m *Memory) PutLedgerEntry(_ context.Context, le engine.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[le.ID] = le
	return nil
}

func (m *Memory) DeleteLedgerEntries(_ context.Context, tx engine.TxKey, kind engine.LedgerKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLedgerEntriesLocked(tx, kind)
	return nil
}

func (m *Memory) deleteLedgerEntriesLocked(tx engine.TxKey, kind engine.LedgerKind) {
	for id, le := range m.ledger {
		if le.Tx == tx && (kind == "" || le.Kind == kind) {
			delete(m.ledger, id)
		}
	}
}

func (m *Memory) ListLedgerEntries(_ context.Context, f engine.LedgerFilter) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLedgerEntriesLocked(f)
}

func (m *Memory) listLedgerEntriesLocked(f engine.LedgerFilter) ([]engine.LedgerEntry, error) {
	var out []engine.LedgerEntry
	for _, le := range m.ledger {
		if matchLedger(le, f) {
			out = append(out, le)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchLedger(le engine.LedgerEntry, f engine.LedgerFilter) bool {
	if !f.IncludeDeleted && !le.Deletion.Active() {
		return false
	}
	if f.Tx != nil && le.Tx != *f.Tx {
		return false
	}
	if f.CustomerID != "" && le.CustomerID != f.CustomerID {
		return false
	}
	if f.Kind != "" && le.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && le.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && le.Date.After(f.To) {
		return false
	}
	return true
}

func (m *Memory) EarliestActiveLedgerDate(_ context.Context) (engine.Date, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.earliestActiveLedgerDateLocked()
}

func (m *Memory) earliestActiveLedgerDateLocked() (engine.Date, bool, error) {
	var earliest engine.Date
	found := false
	for _, le := range m.ledger {
		if !le.Deletion.Active() {
			continue
		}
		if !found || le.Date.Before(earliest) {
			earliest = le.Date
			found = true
		}
	}
	return earliest, found, nil
}

// ---------------------------------------------------------------------------
// Day balances and base inventory

func (m *Memory) GetDayBalance(_ context.Context, d engine.Date) (engine.DayBalance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.dayBalances[d.String()]
	return b, ok, nil
}

func (m *Memory) PutDayBalance(_ context.Context, b engine.DayBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dayBalances[b.Date.String()] = b
	return nil
}

func (m *Memory) GetBaseInventory(_ context.Context) (engine.BaseInventory, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.base == nil {
		return engine.BaseInventory{}, false, nil
	}
	return *m.base, true, nil
}

func (m *Memory) PutBaseInventory(_ context.Context, b engine.BaseInventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = &b
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(engine.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	customers    map[engine.CustomerID]engine.Customer
	transactions map[engine.TxKey]engine.Transaction
	lots         map[engine.LotID]engine.StockLot
	ledger       map[engine.LedgerEntryID]engine.LedgerEntry
	dayBalances  map[string]engine.DayBalance
	base         *engine.BaseInventory
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		customers:    make(map[engine.CustomerID]engine.Customer, len(tm.customers)),
		transactions: make(map[engine.TxKey]engine.Transaction, len(tm.transactions)),
		lots:         make(map[engine.LotID]engine.StockLot, len(tm.lots)),
		ledger:       make(map[engine.LedgerEntryID]engine.LedgerEntry, len(tm.ledger)),
		dayBalances:  make(map[string]engine.DayBalance, len(tm.dayBalances)),
	}
	for k, v := range tm.customers {
		s.customers[k] = v
	}
	for k, v := range tm.transactions {
		s.transactions[k] = v
	}
	for k, v := range tm.lots {
		s.lots[k] = v
	}
	for k, v := range tm.ledger {
		s.ledger[k] = v
	}
	for k, v := range tm.dayBalances {
		s.dayBalances[k] = v
	}
	if tm.base != nil {
		b := *tm.base
		s.base = &b
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.customers = s.customers
	tm.transactions = s.transactions
	tm.lots = s.lots
	tm.ledger = s.ledger
	tm.dayBalances = s.dayBalances
	tm.base = s.base
}

// txMemoryView runs against the parent's maps directly; the parent already
// holds the write lock for the duration of WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetCustomer(_ context.Context, id engine.CustomerID) (engine.Customer, error) {
	return tv.parent.getCustomerLocked(id)
}

func (tv *txMemoryView) PutCustomer(_ context.Context, c engine.Customer) error {
	tv.parent.customers[c.ID] = c
	return nil
}

func (tv *txMemoryView) ListCustomers(_ context.Context) ([]engine.Customer, error) {
	return tv.parent.listCustomersLocked()
}

func (tv *txMemoryView) GetTransaction(_ context.Context, key engine.TxKey) (engine.Transaction, error) {
	return tv.parent.getTransactionLocked(key)
}

func (tv *txMemoryView) PutTransaction(_ context.Context, t engine.Transaction) error {
	tv.parent.putTransactionLocked(t)
	return nil
}

func (tv *txMemoryView) DeleteTransaction(_ context.Context, key engine.TxKey) error {
	delete(tv.parent.transactions, key)
	return nil
}

func (tv *txMemoryView) ListTransactions(_ context.Context, f engine.TxFilter) ([]engine.Transaction, error) {
	return tv.parent.listTransactionsLocked(f)
}

func (tv *txMemoryView) GetLot(_ context.Context, id engine.LotID) (engine.StockLot, error) {
	return tv.parent.getLotLocked(id)
}

func (tv *txMemoryView) PutLot(_ context.Context, lot engine.StockLot) error {
	tv.parent.lots[lot.ID] = lot
	return nil
}

func (tv *txMemoryView) DeleteLot(_ context.Context, id engine.LotID) error {
	delete(tv.parent.lots, id)
	return nil
}

func (tv *txMemoryView) ListLots(_ context.Context, f engine.LotFilter) ([]engine.StockLot, error) {
	return tv.parent.listLotsLocked(f)
}

func (tv *txMemoryView) HasLedgerEntry(_ context.Context, id engine.LedgerEntryID) (bool, error) {
	_, ok := tv.parent.ledger[id]
	return ok, nil
}

func (tv *txMemoryView) PutLedgerEntry(_ context.Context, le engine.LedgerEntry) error {
	tv.parent.ledger[le.ID] = le
	return nil
}

func (tv *txMemoryView) DeleteLedgerEntries(_ context.Context, tx engine.TxKey, kind engine.LedgerKind) error {
	tv.parent.deleteLedgerEntriesLocked(tx, kind)
	return nil
}

func (tv *txMemoryView) ListLedgerEntries(_ context.Context, f engine.LedgerFilter) ([]engine.LedgerEntry, error) {
	return tv.parent.listLedgerEntriesLocked(f)
}

func (tv *txMemoryView) EarliestActiveLedgerDate(_ context.Context) (engine.Date, bool, error) {
	return tv.parent.earliestActiveLedgerDateLocked()
}

func (tv *txMemoryView) GetDayBalance(_ context.Context, d engine.Date) (engine.DayBalance, bool, error) {
	b, ok := tv.parent.dayBalances[d.String()]
	return b, ok, nil
}

func (tv *txMemoryView) PutDayBalance(_ context.Context, b engine.DayBalance) error {
	tv.parent.dayBalances[b.Date.String()] = b
	return nil
}

func (tv *txMemoryView) GetBaseInventory(_ context.Context) (engine.BaseInventory, bool, error) {
	if tv.parent.base == nil {
		return engine.BaseInventory{}, false, nil
	}
	return *tv.parent.base, true, nil
}

func (tv *txMemoryView) PutBaseInventory(_ context.Context, b engine.BaseInventory) error {
	tv.parent.base = &b
	return nil
}
