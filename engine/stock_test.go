package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// =============================================================================
// FIFO CONSUMPTION
// =============================================================================

func TestStock_FIFOConsumesOldestLots(t *testing.T) {
	// GIVEN: three rani lots purchased in order
	// WHEN: selling twice without pre-selecting a lot
	// THEN: the two oldest lots are consumed, in creation order

	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	var lotOrder []engine.LotID
	for i := 0; i < 3; i++ {
		key, err := ledger.Save(ctx, engine.SaveInput{
			CustomerID: "c1",
			Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
		})
		require.NoError(t, err)

		tx, err := ledger.Transaction(ctx, key)
		require.NoError(t, err)
		lotOrder = append(lotOrder, tx.Entries[0].LotID)
	}

	for i := 0; i < 2; i++ {
		key, err := ledger.Save(ctx, engine.SaveInput{
			CustomerID: "c1",
			Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
		})
		require.NoError(t, err)

		tx, err := ledger.Transaction(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, lotOrder[i], tx.Entries[0].LotID, "sale %d must consume lot %d", i, i)
	}

	// The newest lot is the only one left in the pool.
	lots, err := mem.ListLots(ctx, engine.LotFilter{Item: engine.ItemRani, UnsoldOnly: true})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, lotOrder[2], lots[0].ID)
}

func TestStock_SaleWithoutStockFails(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	_, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
	})
	assert.ErrorIs(t, err, engine.ErrStockUnavailable)
}

// =============================================================================
// REVERSAL CONSISTENCY
// =============================================================================

func TestStock_DeletePurchaseWithConsumedLotFails(t *testing.T) {
	// GIVEN: a purchased lot that a later sale consumed
	// WHEN: deleting the purchase
	// THEN: the whole delete fails; removing the lot would lose the sale's
	//       provenance

	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	purchaseKey, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	_, err = ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	err = ledger.Delete(ctx, purchaseKey)
	assert.ErrorIs(t, err, engine.ErrConsistency)

	// The purchase is still active after the failed delete.
	tx, err := ledger.Transaction(ctx, purchaseKey)
	require.NoError(t, err)
	assert.True(t, tx.Deletion.Active())
}

func TestStock_RestoreSaleAfterLotResoldFails(t *testing.T) {
	// GIVEN: a deleted sale whose lot was sold again in the interim
	// WHEN: restoring the original sale
	// THEN: restore fails loudly instead of double-consuming the lot

	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	_, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	saleKey, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	// Delete returns the lot to the pool; a second sale picks it up.
	require.NoError(t, ledger.Delete(ctx, saleKey))
	_, err = ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	err = ledger.Restore(ctx, saleKey)
	assert.ErrorIs(t, err, engine.ErrStockUnavailable)
}

func TestStock_RestorePurchaseKeepsFIFOPosition(t *testing.T) {
	// GIVEN: an old purchase deleted, then a newer purchase booked
	// WHEN: the old purchase is restored and a sale runs
	// THEN: the sale consumes the restored lot; restoring must not push the
	//       lot to the back of the FIFO queue

	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	oldKey, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
	})
	require.NoError(t, err)
	oldTx, err := ledger.Transaction(ctx, oldKey)
	require.NoError(t, err)
	oldLotID := oldTx.Entries[0].LotID

	require.NoError(t, ledger.Delete(ctx, oldKey))
	_, err = ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	require.NoError(t, ledger.Restore(ctx, oldKey))
	restored, err := mem.GetLot(ctx, oldLotID)
	require.NoError(t, err)
	assert.True(t, restored.CreatedAt.Equal(oldTx.CreatedAt), "restored lot keeps its original creation time")

	saleKey, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniSell("25", "93.55", "65000")},
	})
	require.NoError(t, err)
	sale, err := ledger.Transaction(ctx, saleKey)
	require.NoError(t, err)
	assert.Equal(t, oldLotID, sale.Entries[0].LotID, "oldest lot first, restored or not")
}

func TestStock_EditKeepsReferencedLot(t *testing.T) {
	// Editing a purchase updates its lot in place instead of recreating it.
	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	addCustomer(t, mem, "c1", "Ramesh")

	key, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "c1",
		Entries:    []engine.Entry{raniPurchase("25", "93.55", "65000")},
	})
	require.NoError(t, err)

	tx, err := ledger.Transaction(ctx, key)
	require.NoError(t, err)
	lotID := tx.Entries[0].LotID

	edited := raniPurchase("30", "94.00", "65000")
	edited.LotID = lotID
	_, err = ledger.Save(ctx, engine.SaveInput{
		Key:        &key,
		CustomerID: "c1",
		Entries:    []engine.Entry{edited},
	})
	require.NoError(t, err)

	lot, err := mem.GetLot(ctx, lotID)
	require.NoError(t, err)
	assert.True(t, lot.Weight.Equal(dec("30")))
	assert.True(t, lot.Touch.Equal(dec("94.00")))
	assert.False(t, lot.Sold)

	lots, err := mem.ListLots(ctx, engine.LotFilter{Item: engine.ItemRani})
	require.NoError(t, err)
	assert.Len(t, lots, 1, "edit must not duplicate the lot")
}
