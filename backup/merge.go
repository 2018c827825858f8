package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// MergeResult summarizes what a merge changed.
type MergeResult struct {
	CustomersUpserted    int `json:"customers_upserted"`
	TransactionsInserted int `json:"transactions_inserted"`
	TransactionsSkipped  int `json:"transactions_skipped"`
	LedgerInserted       int `json:"ledger_inserted"`
	LedgerSkipped        int `json:"ledger_skipped"`
}

// Merger folds imported snapshots into a local store.
type Merger struct {
	store engine.TxStore
}

func NewMerger(store engine.TxStore) *Merger {
	return &Merger{store: store}
}

// Merge applies snapshot records to the local store in one atomic unit,
// then recomputes the inventory chain from the earliest imported date.
//
// Rules:
//   - Customers upsert by id; on collision the record with the more recent
//     lastActivityAt wins.
//   - Transactions key on (local id, device id); an existing pair is
//     already merged and skipped, anything else inserts. Two devices can
//     reuse the same local id without conflict.
//   - Ledger entries insert only if the id is absent. Merged history is
//     immutable; there is no update path.
func (m *Merger) Merge(ctx context.Context, snap Snapshot) (MergeResult, error) {
	var result MergeResult
	var earliest engine.Date

	err := m.store.WithTx(ctx, func(s engine.Store) error {
		for _, incoming := range snap.Records.Customers {
			local, err := s.GetCustomer(ctx, incoming.ID)
			switch {
			case err == nil:
				if !incoming.LastActivityAt.After(local.LastActivityAt) {
					continue
				}
			case errors.Is(err, engine.ErrNotFound):
				// new customer
			default:
				return fmt.Errorf("failed to load customer %s: %w", incoming.ID, err)
			}
			if err := s.PutCustomer(ctx, incoming); err != nil {
				return err
			}
			result.CustomersUpserted++
		}

		for _, incoming := range snap.Records.Transactions {
			_, err := s.GetTransaction(ctx, incoming.Key)
			switch {
			case err == nil:
				result.TransactionsSkipped++
				continue
			case errors.Is(err, engine.ErrNotFound):
			default:
				return fmt.Errorf("failed to load transaction %s: %w", incoming.Key, err)
			}
			if err := s.PutTransaction(ctx, incoming); err != nil {
				return err
			}
			result.TransactionsInserted++
			earliest = engine.MinDate(earliest, incoming.Date)
		}

		for _, incoming := range snap.Records.LedgerEntries {
			exists, err := s.HasLedgerEntry(ctx, incoming.ID)
			if err != nil {
				return fmt.Errorf("failed to check ledger entry %s: %w", incoming.ID, err)
			}
			if exists {
				result.LedgerSkipped++
				continue
			}
			if err := s.PutLedgerEntry(ctx, incoming); err != nil {
				return err
			}
			result.LedgerInserted++
			earliest = engine.MinDate(earliest, incoming.Date)
		}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	// Imported data is never trusted to carry a correct inventory chain.
	if !earliest.IsZero() {
		if err := engine.NewInventory(m.store).RecomputeFrom(ctx, earliest); err != nil {
			return MergeResult{}, fmt.Errorf("failed to recompute inventory after merge: %w", err)
		}
	}
	return result, nil
}

// Import decrypts an exported archive and merges it.
func (m *Merger) Import(ctx context.Context, data []byte, passphrase string) (MergeResult, error) {
	snap, err := Open(data, passphrase)
	if err != nil {
		return MergeResult{}, err
	}
	return m.Merge(ctx, snap)
}
