/*
sync.go - Ledger projection synchronization

PURPOSE:
  Keeps the persisted money/metal ledger projections consistent with the
  authoritative Transaction state after every save.

MONEY (delta reconciliation):
  Money movements are not stored as one row per payment edit. The money
  ledger's sum must always equal the transaction's AmountSettled, so the sync
  compares the recorded sum against the authoritative amount and emits at
  most one correcting row. History stays append-only; nothing is rewritten.

METAL (full replacement):
  Metal rows are few and fully known at save time, so the sync deletes the
  transaction's metal rows and re-inserts one row per non-money entry, dated
  to the business date (not the edit time).
*/
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// moneyEpsilon absorbs floating drift from imported legacy data; anything
// larger is a real difference that needs a correcting row.
var moneyEpsilon = decimal.RequireFromString("0.001")

// syncMoneyLedger reconciles the transaction's money-ledger rows against its
// settled amount, emitting a single correcting row when they diverge.
func syncMoneyLedger(ctx context.Context, s Store, t Transaction) error {
	rows, err := s.ListLedgerEntries(ctx, LedgerFilter{Tx: &t.Key, Kind: LedgerMoney})
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, row := range rows {
		// An edit can move the transaction to another customer; its money
		// history moves with it. Amounts stay append-only.
		if row.CustomerID != t.CustomerID {
			row.CustomerID = t.CustomerID
			if err := s.PutLedgerEntry(ctx, row); err != nil {
				return err
			}
		}
		if row.Direction == DirReceive {
			total = total.Add(row.Amount)
		} else {
			total = total.Sub(row.Amount)
		}
	}

	diff := t.AmountSettled.Sub(total)
	if diff.Abs().GreaterThan(moneyEpsilon) {
		dir := DirReceive
		if diff.IsNegative() {
			dir = DirGive
		}
		if err := s.PutLedgerEntry(ctx, LedgerEntry{
			ID:         LedgerEntryID(uuid.NewString()),
			Kind:       LedgerMoney,
			Tx:         t.Key,
			CustomerID: t.CustomerID,
			Date:       t.Date,
			Direction:  dir,
			Amount:     diff.Abs(),
		}); err != nil {
			return err
		}
		total = total.Add(diff)
	}

	if t.AmountSettled.Sub(total).Abs().GreaterThan(moneyEpsilon) {
		return &ConsistencyError{Tx: t.Key, Detail: "money ledger sum diverges from settled amount after sync"}
	}
	return nil
}

// syncMetalLedger replaces the transaction's metal-ledger rows with one row
// per non-money entry. Weight is the pure weight for impure items, the raw
// weight otherwise.
func syncMetalLedger(ctx context.Context, s Store, t Transaction) error {
	if err := s.DeleteLedgerEntries(ctx, t.Key, LedgerMetal); err != nil {
		return err
	}

	for _, e := range t.Entries {
		if e.Item == ItemMoney {
			continue
		}
		dir := DirGive // sell: metal leaves the shop
		if e.Kind == KindPurchase {
			dir = DirReceive
		}
		if err := s.PutLedgerEntry(ctx, LedgerEntry{
			ID:         LedgerEntryID(uuid.NewString()),
			Kind:       LedgerMetal,
			Tx:         t.Key,
			CustomerID: t.CustomerID,
			Date:       t.Date,
			Direction:  dir,
			Item:       e.Item,
			Weight:     e.PureWeight,
		}); err != nil {
			return err
		}
	}
	return nil
}

// setLedgerDeletion flips the soft-delete state of every projection row of a
// transaction. Used by delete (mark) and restore (clear).
func setLedgerDeletion(ctx context.Context, s Store, key TxKey, del Deletion) error {
	rows, err := s.ListLedgerEntries(ctx, LedgerFilter{Tx: &key, IncludeDeleted: true})
	if err != nil {
		return err
	}
	for _, row := range rows {
		row.Deletion = del
		if err := s.PutLedgerEntry(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
