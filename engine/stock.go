/*
stock.go - FIFO lot inventory for impure-metal stock

PURPOSE:
  Purchases of rani/rupu create stock lots; sales consume the oldest unsold
  lot of the item type. Edits, deletes and restores mirror those effects so
  the lot pool always reflects the active transaction set.

RULES:
  purchase: referenced lot id -> update in place, otherwise create unsold lot
  sale:     pre-selected lot or oldest unsold lot (FIFO by CreatedAt);
            none available -> StockUnavailableError
  reversal: purchases remove their lot (hard failure if consumed elsewhere),
            sales return their lot to the pool
  restore:  purchases re-create their lot at its original creation time,
            sales re-mark it sold (failing loudly if the lot vanished or was
            re-sold in the interim)

All functions run on the transaction-scoped Store handed in by the caller;
a failure aborts the whole enclosing save/delete/restore.
*/
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// applyEntryStock applies the lot effect of one valuated entry at save time.
// prior maps lot id -> entry kind from the transaction's previous entry set
// (empty on create) so an edit can keep a lot it already holds. For sales
// without a pre-selected lot the chosen lot id is written back to the entry.
func applyEntryStock(ctx context.Context, s Store, e *Entry, prior map[LotID]EntryKind, now time.Time) error {
	if !e.Item.IsImpure() {
		return nil
	}

	switch e.Kind {
	case KindPurchase:
		if e.LotID != "" {
			lot, err := s.GetLot(ctx, e.LotID)
			if err == nil {
				// Edit-in-place: same lot, new weight/touch.
				lot.Weight = e.Weight
				lot.Touch = e.Touch
				return s.PutLot(ctx, lot)
			}
			if !IsNotFound(err) {
				return err
			}
			// Referenced id no longer exists (restore path re-creates it).
			return s.PutLot(ctx, StockLot{
				ID: e.LotID, Item: e.Item, Weight: e.Weight, Touch: e.Touch,
				Sold: false, CreatedAt: now,
			})
		}
		e.LotID = LotID(uuid.NewString())
		return s.PutLot(ctx, StockLot{
			ID: e.LotID, Item: e.Item, Weight: e.Weight, Touch: e.Touch,
			Sold: false, CreatedAt: now,
		})

	case KindSell:
		if e.LotID != "" {
			lot, err := s.GetLot(ctx, e.LotID)
			if err != nil {
				if IsNotFound(err) {
					return &StockUnavailableError{Item: e.Item, LotID: e.LotID}
				}
				return err
			}
			if lot.Sold && prior[e.LotID] != KindSell {
				// Consumed by some other transaction in the meantime.
				return &StockUnavailableError{Item: e.Item, LotID: e.LotID}
			}
			lot.Sold = true
			return s.PutLot(ctx, lot)
		}
		lots, err := s.ListLots(ctx, LotFilter{Item: e.Item, UnsoldOnly: true})
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			return &StockUnavailableError{Item: e.Item}
		}
		lot := lots[0] // oldest unsold, store guarantees FIFO order
		lot.Sold = true
		e.LotID = lot.ID
		return s.PutLot(ctx, lot)
	}
	return nil
}

// reverseEntryStock undoes the lot effect of an old entry during an edit or a
// soft delete. Lots still referenced by the new entry set (keep) stay put.
func reverseEntryStock(ctx context.Context, s Store, e Entry, keep map[LotID]bool) error {
	if !e.Item.IsImpure() || e.LotID == "" || keep[e.LotID] {
		return nil
	}

	lot, err := s.GetLot(ctx, e.LotID)
	if err != nil {
		if IsNotFound(err) {
			return &ConsistencyError{Detail: "lot " + string(e.LotID) + " missing during reversal"}
		}
		return err
	}

	switch e.Kind {
	case KindPurchase:
		if lot.Sold {
			// Someone already sold from this lot; removing it would lose
			// the sale's provenance.
			return &ConsistencyError{Detail: "lot " + string(e.LotID) + " already consumed elsewhere"}
		}
		return s.DeleteLot(ctx, e.LotID)
	case KindSell:
		lot.Sold = false
		return s.PutLot(ctx, lot)
	}
	return nil
}

// restoreEntryStock re-applies the lot effect of an entry when its
// transaction is restored from soft deletion. A re-created purchase lot keeps
// the transaction's original creation time so it returns to its old place in
// the FIFO queue.
func restoreEntryStock(ctx context.Context, s Store, e Entry, createdAt time.Time) error {
	if !e.Item.IsImpure() || e.LotID == "" {
		return nil
	}

	switch e.Kind {
	case KindPurchase:
		return s.PutLot(ctx, StockLot{
			ID: e.LotID, Item: e.Item, Weight: e.Weight, Touch: e.Touch,
			Sold: false, CreatedAt: createdAt,
		})
	case KindSell:
		lot, err := s.GetLot(ctx, e.LotID)
		if err != nil {
			if IsNotFound(err) {
				return &StockUnavailableError{Item: e.Item, LotID: e.LotID}
			}
			return err
		}
		if lot.Sold {
			// Re-sold while this transaction sat deleted.
			return &StockUnavailableError{Item: e.Item, LotID: e.LotID}
		}
		lot.Sold = true
		return s.PutLot(ctx, lot)
	}
	return nil
}
