/*
inventory.go - Day-indexed opening-balance chain

PURPOSE:
  Rebuilds the DayBalance chain forward from a date to today: start from the
  opening balance of the day before (or the base inventory when the chain has
  not been built yet), then roll the net signed effect of each day's active
  ledger entries into the next day's opening snapshot.

  Every retroactive edit triggers a re-walk from the earliest affected date.
  This forward walk is the dominant cost as history grows; it stays a single
  range query plus an in-memory pass per recompute.
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// Inventory exposes the opening-balance chain operations on their own atomic
// units. TransactionLedger calls the internal recompute within its own unit.
type Inventory struct {
	store TxStore
}

func NewInventory(store TxStore) *Inventory {
	return &Inventory{store: store}
}

// RecomputeFrom rebuilds the chain from the given date to today.
func (i *Inventory) RecomputeFrom(ctx context.Context, from Date) error {
	return i.store.WithTx(ctx, func(s Store) error {
		return recomputeInventoryFrom(ctx, s, from)
	})
}

// OpeningBalance returns the persisted snapshot for a date, if the chain
// covers it.
func (i *Inventory) OpeningBalance(ctx context.Context, d Date) (DayBalance, bool, error) {
	return i.store.GetDayBalance(ctx, d)
}

// SetBase records what the merchant physically has today. Customer balances
// represent metal/money already owed before any further transaction, so their
// aggregate is subtracted from the requested base; the post-adjustment chain
// then matches what the merchant intends. Ends with a full recompute.
func (i *Inventory) SetBase(ctx context.Context, requested InventoryVector, now Date) error {
	return i.store.WithTx(ctx, func(s Store) error {
		customers, err := s.ListCustomers(ctx)
		if err != nil {
			return err
		}
		var owed InventoryVector
		for _, c := range customers {
			owed.Money = owed.Money.Add(c.MoneyBalance)
			owed.Gold999 = owed.Gold999.Add(c.MetalBalances.Gold999)
			owed.Gold995 = owed.Gold995.Add(c.MetalBalances.Gold995)
			owed.Silver = owed.Silver.Add(c.MetalBalances.Silver)
		}
		if err := s.PutBaseInventory(ctx, BaseInventory{
			InventoryVector: requested.Sub(owed),
			SetAt:           now.Time,
		}); err != nil {
			return err
		}

		from, ok, err := s.EarliestActiveLedgerDate(ctx)
		if err != nil {
			return err
		}
		if !ok {
			from = now
		}
		return recomputeInventoryFrom(ctx, s, from)
	})
}

// recomputeInventoryFrom is the in-unit forward walk shared by the ledger,
// the merge and SetBase.
func recomputeInventoryFrom(ctx context.Context, s Store, from Date) error {
	today := Today()
	if from.IsZero() || from.After(today) {
		from = today
	}

	// One range query; effects grouped by date in memory.
	entries, err := s.ListLedgerEntries(ctx, LedgerFilter{To: today})
	if err != nil {
		return err
	}
	effects := make(map[string]InventoryVector)
	for _, le := range entries {
		k := le.Date.String()
		effects[k] = effects[k].Add(ledgerEntryInventoryDelta(le))
	}

	// Starting vector: day-before snapshot plus that day's effect, or the
	// base inventory plus everything dated before `from` when the chain has
	// no coverage yet.
	var v InventoryVector
	prev, ok, err := s.GetDayBalance(ctx, from.AddDays(-1))
	if err != nil {
		return err
	}
	if ok {
		v = prev.InventoryVector.Add(effects[from.AddDays(-1).String()])
	} else {
		base, hasBase, err := s.GetBaseInventory(ctx)
		if err != nil {
			return err
		}
		if hasBase {
			v = base.InventoryVector
		}
		for _, le := range entries {
			if le.Date.Before(from) {
				v = v.Add(ledgerEntryInventoryDelta(le))
			}
		}
	}

	for d := from; d.BeforeOrEqual(today); d = d.AddDays(1) {
		if err := s.PutDayBalance(ctx, DayBalance{Date: d, InventoryVector: v}); err != nil {
			return err
		}
		v = v.Add(effects[d.String()])
	}
	return nil
}

// ledgerEntryInventoryDelta maps one active ledger row to its signed effect
// on the shop's physical holdings: receive adds, give removes.
func ledgerEntryInventoryDelta(le LedgerEntry) InventoryVector {
	sign := decimal.NewFromInt(1)
	if le.Direction == DirGive {
		sign = sign.Neg()
	}

	var v InventoryVector
	if le.Kind == LedgerMoney {
		v.Money = le.Amount.Mul(sign)
		return v
	}
	w := le.Weight.Mul(sign)
	switch le.Item {
	case ItemGold999:
		v.Gold999 = w
	case ItemGold995:
		v.Gold995 = w
	case ItemRani:
		v.Rani = w
	case ItemSilver:
		v.Silver = w
	case ItemRupu:
		v.Rupu = w
	}
	return v
}
