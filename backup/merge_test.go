package backup_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaryanSoni0610/bulliondesk/backup"
	"github.com/AaryanSoni0610/bulliondesk/engine"
	"github.com/AaryanSoni0610/bulliondesk/engine/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedDevice builds a store with one customer and one silver sell recorded
// on the given device, and returns the store plus the customer id.
func seedDevice(t *testing.T, device engine.DeviceID) (*store.TxMemory, engine.CustomerID) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewTxMemory()
	ledger := engine.NewLedger(mem, device)

	customerID := engine.CustomerID("cust-1")
	require.NoError(t, mem.PutCustomer(ctx, engine.Customer{
		ID:             customerID,
		Name:           "Sharma Jewellers",
		LastActivityAt: time.Now().UTC(),
	}))

	_, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: customerID,
		Date:       engine.Today().AddDays(-1),
		Entries: []engine.Entry{{
			Kind:   engine.KindSell,
			Item:   engine.ItemSilver,
			Weight: dec("500"),
			Price:  dec("80000"),
		}},
		Payments: []engine.Payment{{Direction: engine.DirReceive, Amount: dec("30000")}},
	})
	require.NoError(t, err)
	return mem, customerID
}

func TestMerge_FreshStoreCarriesEverything(t *testing.T) {
	// GIVEN a snapshot exported from device a
	ctx := context.Background()
	source, customerID := seedDevice(t, "device-a")
	snap, err := backup.Build(ctx, source, backup.ExportManual, "device-a")
	require.NoError(t, err)

	// WHEN it is merged into an empty store
	target := store.NewTxMemory()
	result, err := backup.NewMerger(target).Merge(ctx, snap)
	require.NoError(t, err)

	// THEN customers, transactions and ledger history all carry over
	assert.Equal(t, 1, result.CustomersUpserted)
	assert.Equal(t, 1, result.TransactionsInserted)
	assert.Equal(t, 2, result.LedgerInserted, "one money row and one metal row")

	c, err := target.GetCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, c.MoneyBalance.Equal(dec("-10000")), "balance rides the customer record: got %s", c.MoneyBalance)

	txs, err := target.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	// AND the inventory chain is rebuilt on the target
	today, found, err := engine.NewInventory(target).OpeningBalance(ctx, engine.Today())
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, today.Silver.Equal(dec("-500")), "sold silver leaves the shop: got %s", today.Silver)
	assert.True(t, today.Money.Equal(dec("30000")), "settled money enters the shop: got %s", today.Money)
}

func TestMerge_Idempotent(t *testing.T) {
	// GIVEN a snapshot already merged once
	ctx := context.Background()
	source, customerID := seedDevice(t, "device-a")
	snap, err := backup.Build(ctx, source, backup.ExportManual, "device-a")
	require.NoError(t, err)

	target := store.NewTxMemory()
	_, err = backup.NewMerger(target).Merge(ctx, snap)
	require.NoError(t, err)

	// WHEN the same snapshot is merged again
	second, err := backup.NewMerger(target).Merge(ctx, snap)
	require.NoError(t, err)

	// THEN nothing new is inserted
	assert.Equal(t, 0, second.CustomersUpserted)
	assert.Equal(t, 0, second.TransactionsInserted)
	assert.Equal(t, 1, second.TransactionsSkipped)
	assert.Equal(t, 0, second.LedgerInserted)
	assert.Equal(t, 2, second.LedgerSkipped)

	txs, err := target.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	entries, err := target.ListLedgerEntries(ctx, engine.LedgerFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	c, err := target.GetCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, c.MoneyBalance.Equal(dec("-10000")), "double merge must not double the balance: got %s", c.MoneyBalance)
}

func TestMerge_SameLocalIDDifferentDevicesBothKept(t *testing.T) {
	// GIVEN two devices that independently used the same local id
	ctx := context.Background()
	key := func(device engine.DeviceID) engine.TxKey {
		return engine.TxKey{LocalID: "tx-1", DeviceID: device}
	}
	makeSnap := func(device engine.DeviceID) backup.Snapshot {
		mem := store.NewTxMemory()
		require.NoError(t, mem.PutTransaction(ctx, engine.Transaction{
			Key:        key(device),
			CustomerID: "cust-1",
			Date:       engine.Today(),
		}))
		snap, err := backup.Build(ctx, mem, backup.ExportManual, device)
		require.NoError(t, err)
		return snap
	}

	// WHEN both snapshots land on the same store
	target := store.NewTxMemory()
	merger := backup.NewMerger(target)
	_, err := merger.Merge(ctx, makeSnap("device-a"))
	require.NoError(t, err)
	_, err = merger.Merge(ctx, makeSnap("device-b"))
	require.NoError(t, err)

	// THEN the composite key keeps them apart
	txs, err := target.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	_, err = target.GetTransaction(ctx, key("device-a"))
	assert.NoError(t, err)
	_, err = target.GetTransaction(ctx, key("device-b"))
	assert.NoError(t, err)
}

func TestMerge_NewerCustomerActivityWins(t *testing.T) {
	// GIVEN a local customer edited after the snapshot was taken
	ctx := context.Background()
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	target := store.NewTxMemory()
	require.NoError(t, target.PutCustomer(ctx, engine.Customer{
		ID:             "cust-1",
		Name:           "Renamed Locally",
		MoneyBalance:   dec("-500"),
		LastActivityAt: newer,
	}))

	snap := backup.Snapshot{Records: backup.Records{Customers: []engine.Customer{{
		ID:             "cust-1",
		Name:           "Stale Name",
		LastActivityAt: older,
	}}}}

	// WHEN the stale snapshot is merged
	result, err := backup.NewMerger(target).Merge(ctx, snap)
	require.NoError(t, err)

	// THEN the local record survives untouched
	assert.Equal(t, 0, result.CustomersUpserted)
	c, err := target.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Locally", c.Name)
	assert.True(t, c.MoneyBalance.Equal(dec("-500")))

	// AND a fresher incoming record replaces it
	snap.Records.Customers[0].LastActivityAt = newer.Add(time.Hour)
	result, err = backup.NewMerger(target).Merge(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CustomersUpserted)
	c, err = target.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Stale Name", c.Name)
}

func TestExport_SealedRoundTripThroughImport(t *testing.T) {
	// GIVEN an encrypted export from device a
	ctx := context.Background()
	source, customerID := seedDevice(t, "device-a")
	data, err := backup.Export(ctx, source, backup.ExportManual, "device-a", "shop secret")
	require.NoError(t, err)

	// WHEN another device imports it with the right passphrase
	target := store.NewTxMemory()
	result, err := backup.NewMerger(target).Import(ctx, data, "shop secret")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionsInserted)
	_, err = target.GetCustomer(ctx, customerID)
	assert.NoError(t, err)

	// AND a wrong passphrase is rejected before anything touches the store
	empty := store.NewTxMemory()
	_, err = backup.NewMerger(empty).Import(ctx, data, "wrong")
	assert.ErrorIs(t, err, engine.ErrDecryption)
	txs, err := empty.ListTransactions(ctx, engine.TxFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, txs)
}
