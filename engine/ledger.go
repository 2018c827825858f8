/*
ledger.go - TransactionLedger: the transaction state machine

PURPOSE:
  Creates, updates, soft-deletes, restores and hard-deletes transactions,
  applying their customer-balance effects as derivable, reversible values.

STATES:
  draft -> active -> soft-deleted -> active (restore) -> hard-deleted
  Hard deletion is terminal and only allowed after the retention window.

EFFECT DISCIPLINE:
  The balance effect of a transaction is computed by one pure function,
  computeBalanceEffect, and moved on and off a customer by the
  applyEffect/reverseEffect pair. An update is structurally
  reverse(old) + apply(new); delete and restore reuse the same pair, so the
  round-trip law (delete then restore leaves the balance unchanged) holds by
  construction.

ATOMICITY:
  Every mutation runs inside one TxStore.WithTx unit: entry valuation happens
  before it, and stock movement, projection sync, balance application and the
  inventory recompute all happen inside it. A failure anywhere rolls the
  whole save back.
*/
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetentionDays is the grace window between soft and hard deletion.
const RetentionDays = 15

// Ledger is the transaction service. It owns no state beyond its injected
// store handle and the local device id stamped onto new transactions.
type Ledger struct {
	store  TxStore
	device DeviceID
	now    func() time.Time
}

func NewLedger(store TxStore, device DeviceID) *Ledger {
	return &Ledger{store: store, device: device, now: time.Now}
}

// SaveInput is one save call: a new transaction when Key is nil, an edit of
// the referenced transaction otherwise.
type SaveInput struct {
	Key        *TxKey
	CustomerID CustomerID
	Date       Date // zero = today
	Entries    []Entry
	Payments   []Payment
	Note       string
}

// =============================================================================
// BALANCE EFFECT
// =============================================================================

// Effect is the signed contribution of one transaction to a customer's
// balances.
type Effect struct {
	Money decimal.Decimal
	Metal MetalBalance
}

// computeBalanceEffect derives the effect the same way for save, delete and
// restore. Money: settled minus net value (money-only transactions have zero
// net, so their effect is just the settled amount). Metal-only entries move
// the metal balance instead: the merchant receiving metal owes it back.
func computeBalanceEffect(t Transaction, c Customer) Effect {
	if isBookkeepingCustomer(c) {
		return Effect{Money: decimal.Zero}
	}

	eff := Effect{Money: t.AmountSettled.Sub(t.NetAmount)}
	for _, e := range t.Entries {
		if !e.MetalOnly {
			continue
		}
		w := e.PureWeight
		if e.Kind == KindSell {
			w = w.Neg()
		}
		switch metalBucket(e.Item) {
		case ItemGold999:
			eff.Metal.Gold999 = eff.Metal.Gold999.Add(w)
		case ItemGold995:
			eff.Metal.Gold995 = eff.Metal.Gold995.Add(w)
		case ItemSilver:
			eff.Metal.Silver = eff.Metal.Silver.Add(w)
		}
	}
	return eff
}

func applyEffect(c *Customer, eff Effect) {
	c.MoneyBalance = c.MoneyBalance.Add(eff.Money)
	c.MetalBalances = c.MetalBalances.Add(eff.Metal)
}

func reverseEffect(c *Customer, eff Effect) {
	c.MoneyBalance = c.MoneyBalance.Sub(eff.Money)
	c.MetalBalances = c.MetalBalances.Sub(eff.Metal)
}

// isBookkeepingCustomer matches the escape-hatch customers whose rows never
// move a balance.
func isBookkeepingCustomer(c Customer) bool {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	return name == "adjust" || name == "expense"
}

// metalBucket folds impure items onto the refined balance they settle in:
// rani is pure-gold equivalent, rupu pure-silver equivalent.
func metalBucket(item ItemType) ItemType {
	switch item {
	case ItemRani:
		return ItemGold999
	case ItemRupu:
		return ItemSilver
	default:
		return item
	}
}

// =============================================================================
// SAVE
// =============================================================================

// Save commits a transaction: valuates entries, runs stock movement,
// re-syncs ledger projections, applies the balance effect and recomputes the
// inventory chain from the earliest touched date.
func (l *Ledger) Save(ctx context.Context, in SaveInput) (TxKey, error) {
	entries := make([]Entry, len(in.Entries))
	for i, draft := range in.Entries {
		v, err := Valuate(draft)
		if err != nil {
			return TxKey{}, err
		}
		entries[i] = v
	}

	received := decimal.Zero
	for _, p := range in.Payments {
		if !p.Amount.IsPositive() {
			return TxKey{}, &ValidationError{Field: "payment.amount", Reason: "must be positive"}
		}
		if p.Direction == DirGive {
			received = received.Sub(p.Amount)
		} else {
			received = received.Add(p.Amount)
		}
	}

	date := in.Date
	if date.IsZero() {
		date = Today()
	}
	now := l.now()

	var key TxKey
	err := l.store.WithTx(ctx, func(s Store) error {
		customer, err := s.GetCustomer(ctx, in.CustomerID)
		if err != nil {
			return err
		}

		var old Transaction
		hasOld := in.Key != nil
		if hasOld {
			old, err = s.GetTransaction(ctx, *in.Key)
			if err != nil {
				return err
			}
			if !old.Deletion.Active() {
				return &NotFoundError{Kind: "transaction", ID: in.Key.String()}
			}
			key = *in.Key
		} else {
			key = TxKey{LocalID: uuid.NewString(), DeviceID: l.device}
		}

		// Lots the new entry set still references stay in place; everything
		// else from the old set is reversed.
		keep := make(map[LotID]bool)
		for _, e := range entries {
			if e.LotID != "" {
				keep[e.LotID] = true
			}
		}
		prior := make(map[LotID]EntryKind)
		if hasOld {
			for _, oe := range old.Entries {
				if oe.LotID != "" {
					prior[oe.LotID] = oe.Kind
				}
				if err := reverseEntryStock(ctx, s, oe, keep); err != nil {
					return err
				}
			}
		}

		for i := range entries {
			if err := applyEntryStock(ctx, s, &entries[i], prior, now); err != nil {
				return err
			}
		}

		netAmount := decimal.Zero
		for _, e := range entries {
			netAmount = netAmount.Add(e.Subtotal)
		}

		t := Transaction{
			Key:           key,
			CustomerID:    in.CustomerID,
			Date:          date,
			Entries:       entries,
			NetAmount:     netAmount,
			AmountSettled: received,
			Note:          in.Note,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if hasOld {
			t.CreatedAt = old.CreatedAt
		}
		if err := s.PutTransaction(ctx, t); err != nil {
			return err
		}

		if err := syncMoneyLedger(ctx, s, t); err != nil {
			return err
		}
		if err := syncMetalLedger(ctx, s, t); err != nil {
			return err
		}

		// newBalance = oldBalance - oldEffect + newEffect
		newEff := computeBalanceEffect(t, customer)
		if hasOld && old.CustomerID != customer.ID {
			oldCustomer, err := s.GetCustomer(ctx, old.CustomerID)
			if err != nil {
				return err
			}
			reverseEffect(&oldCustomer, computeBalanceEffect(old, oldCustomer))
			oldCustomer.LastActivityAt = now
			if err := s.PutCustomer(ctx, oldCustomer); err != nil {
				return err
			}
		} else if hasOld {
			reverseEffect(&customer, computeBalanceEffect(old, customer))
		}
		applyEffect(&customer, newEff)
		customer.LastActivityAt = now
		if err := s.PutCustomer(ctx, customer); err != nil {
			return err
		}

		earliest := date
		if hasOld {
			earliest = MinDate(old.Date, date)
		}
		return recomputeInventoryFrom(ctx, s, earliest)
	})
	if err != nil {
		return TxKey{}, err
	}
	return key, nil
}

// =============================================================================
// DELETE / RESTORE / HARD DELETE
// =============================================================================

// Delete soft-deletes a transaction, reversing its balance and stock effects
// and marking its ledger projections deleted. Deleting an already-deleted
// transaction is a no-op.
func (l *Ledger) Delete(ctx context.Context, key TxKey) error {
	now := l.now()
	return l.store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTransaction(ctx, key)
		if err != nil {
			return err
		}
		if !t.Deletion.Active() {
			return nil
		}

		customer, err := s.GetCustomer(ctx, t.CustomerID)
		if err != nil {
			return err
		}
		reverseEffect(&customer, computeBalanceEffect(t, customer))
		customer.LastActivityAt = now
		if err := s.PutCustomer(ctx, customer); err != nil {
			return err
		}

		for _, e := range t.Entries {
			if err := reverseEntryStock(ctx, s, e, nil); err != nil {
				return err
			}
		}

		t.Deletion = DeletedOn(DateOf(now))
		t.UpdatedAt = now
		if err := s.PutTransaction(ctx, t); err != nil {
			return err
		}
		if err := setLedgerDeletion(ctx, s, key, t.Deletion); err != nil {
			return err
		}
		return recomputeInventoryFrom(ctx, s, t.Date)
	})
}

// Restore brings a soft-deleted transaction back, re-validating stock
// availability: a referenced lot consumed in the meantime fails the whole
// restore.
func (l *Ledger) Restore(ctx context.Context, key TxKey) error {
	now := l.now()
	return l.store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTransaction(ctx, key)
		if err != nil {
			return err
		}
		if t.Deletion.Active() {
			return nil
		}

		for _, e := range t.Entries {
			if err := restoreEntryStock(ctx, s, e, t.CreatedAt); err != nil {
				return err
			}
		}

		customer, err := s.GetCustomer(ctx, t.CustomerID)
		if err != nil {
			return err
		}
		applyEffect(&customer, computeBalanceEffect(t, customer))
		customer.LastActivityAt = now
		if err := s.PutCustomer(ctx, customer); err != nil {
			return err
		}

		t.Deletion = Deletion{}
		t.UpdatedAt = now
		if err := s.PutTransaction(ctx, t); err != nil {
			return err
		}
		if err := setLedgerDeletion(ctx, s, key, Deletion{}); err != nil {
			return err
		}
		return recomputeInventoryFrom(ctx, s, t.Date)
	})
}

// HardDelete physically removes a transaction and its ledger projections.
// Only allowed once the retention window has elapsed since soft deletion.
// Irreversible.
func (l *Ledger) HardDelete(ctx context.Context, key TxKey) error {
	return l.store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTransaction(ctx, key)
		if err != nil {
			return err
		}
		return hardDeleteLocked(ctx, s, t)
	})
}

func hardDeleteLocked(ctx context.Context, s Store, t Transaction) error {
	if t.Deletion.Active() {
		return &ValidationError{Field: "deletion", Reason: "transaction is not soft-deleted"}
	}
	if DaysBetween(t.Deletion.On, Today()) < RetentionDays {
		return &ValidationError{Field: "deletion", Reason: "retention window has not elapsed"}
	}
	if err := s.DeleteLedgerEntries(ctx, t.Key, ""); err != nil {
		return err
	}
	return s.DeleteTransaction(ctx, t.Key)
}

// PurgeExpired hard-deletes every transaction soft-deleted at least
// RetentionDays ago. Returns the number purged. One atomic unit.
func (l *Ledger) PurgeExpired(ctx context.Context) (int, error) {
	purged := 0
	err := l.store.WithTx(ctx, func(s Store) error {
		txs, err := s.ListTransactions(ctx, TxFilter{DeletedOnly: true})
		if err != nil {
			return err
		}
		for _, t := range txs {
			if DaysBetween(t.Deletion.On, Today()) < RetentionDays {
				continue
			}
			if err := hardDeleteLocked(ctx, s, t); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// =============================================================================
// READS
// =============================================================================

// Customer returns a customer with derived balances.
func (l *Ledger) Customer(ctx context.Context, id CustomerID) (Customer, error) {
	return l.store.GetCustomer(ctx, id)
}

// Transaction returns one transaction, deleted or not.
func (l *Ledger) Transaction(ctx context.Context, key TxKey) (Transaction, error) {
	return l.store.GetTransaction(ctx, key)
}

// Transactions lists transactions matching the filter.
func (l *Ledger) Transactions(ctx context.Context, f TxFilter) ([]Transaction, error) {
	return l.store.ListTransactions(ctx, f)
}

// LedgerEntries is a history query; it degrades to an empty result on
// storage errors rather than propagating them.
func (l *Ledger) LedgerEntries(ctx context.Context, f LedgerFilter) []LedgerEntry {
	rows, err := l.store.ListLedgerEntries(ctx, f)
	if err != nil {
		return nil
	}
	return rows
}
