package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaryanSoni0610/bulliondesk/engine"
	"github.com/AaryanSoni0610/bulliondesk/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStore_CustomerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	c := engine.Customer{
		ID:           "cust-1",
		Name:         "Sharma Jewellers",
		MoneyBalance: dec("-12500.50"),
		MetalBalances: engine.MetalBalance{
			Gold999: dec("10.250"),
			Silver:  dec("-500"),
		},
		LastActivityAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.True(t, got.MoneyBalance.Equal(c.MoneyBalance))
	assert.True(t, got.MetalBalances.Gold999.Equal(c.MetalBalances.Gold999))
	assert.True(t, got.MetalBalances.Silver.Equal(c.MetalBalances.Silver))
	assert.True(t, got.LastActivityAt.Equal(c.LastActivityAt))

	// Put is an upsert.
	c.Name = "Sharma & Sons"
	require.NoError(t, s.PutCustomer(ctx, c))
	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sharma & Sons", list[0].Name)
}

func TestStore_TransactionCompositeKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := engine.Transaction{
		CustomerID: "cust-1",
		Date:       engine.Today(),
		Entries: []engine.Entry{{
			Kind:     engine.KindSell,
			Item:     engine.ItemSilver,
			Weight:   dec("500"),
			Price:    dec("80000"),
			Subtotal: dec("40000"),
		}},
		NetAmount:     dec("40000"),
		AmountSettled: dec("0"),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		UpdatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	// Same local id on two devices are distinct rows.
	a := base
	a.Key = engine.TxKey{LocalID: "tx-1", DeviceID: "device-a"}
	b := base
	b.Key = engine.TxKey{LocalID: "tx-1", DeviceID: "device-b"}
	require.NoError(t, s.PutTransaction(ctx, a))
	require.NoError(t, s.PutTransaction(ctx, b))

	got, err := s.GetTransaction(ctx, a.Key)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.True(t, got.Entries[0].Weight.Equal(dec("500")))
	assert.True(t, got.NetAmount.Equal(dec("40000")))

	all, err := s.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_TransactionFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	today := engine.Today()

	put := func(local string, customer engine.CustomerID, date engine.Date, del engine.Deletion) {
		require.NoError(t, s.PutTransaction(ctx, engine.Transaction{
			Key:        engine.TxKey{LocalID: local, DeviceID: "device-a"},
			CustomerID: customer,
			Date:       date,
			Deletion:   del,
		}))
	}
	put("tx-1", "cust-1", today.AddDays(-5), engine.Deletion{})
	put("tx-2", "cust-1", today, engine.Deletion{})
	put("tx-3", "cust-2", today, engine.DeletedOn(today))

	active, err := s.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := s.ListTransactions(ctx, engine.TxFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := s.ListTransactions(ctx, engine.TxFilter{DeletedOnly: true})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "tx-3", deleted[0].Key.LocalID)
	assert.True(t, deleted[0].Deletion.Deleted)
	assert.True(t, deleted[0].Deletion.On.Equal(today))

	byCustomer, err := s.ListTransactions(ctx, engine.TxFilter{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	recent, err := s.ListTransactions(ctx, engine.TxFilter{From: today.AddDays(-1)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "tx-2", recent[0].Key.LocalID)
}

func TestStore_LotFIFOOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	put := func(id engine.LotID, age time.Duration, sold bool) {
		require.NoError(t, s.PutLot(ctx, engine.StockLot{
			ID:        id,
			Item:      engine.ItemRani,
			Weight:    dec("25"),
			Touch:     dec("93.55"),
			Sold:      sold,
			CreatedAt: now.Add(-age),
		}))
	}
	put("lot-new", 1*time.Hour, false)
	put("lot-old", 3*time.Hour, false)
	put("lot-sold", 2*time.Hour, true)

	unsold, err := s.ListLots(ctx, engine.LotFilter{Item: engine.ItemRani, UnsoldOnly: true})
	require.NoError(t, err)
	require.Len(t, unsold, 2)
	assert.Equal(t, engine.LotID("lot-old"), unsold[0].ID, "oldest lot is consumed first")
	assert.Equal(t, engine.LotID("lot-new"), unsold[1].ID)

	require.NoError(t, s.DeleteLot(ctx, "lot-old"))
	_, err = s.GetLot(ctx, "lot-old")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestStore_LotFIFOOrder_SubsecondTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Two quick consecutive purchases land in the same second. The stored
	// timestamps must still sort chronologically: .1s has a shorter decimal
	// rendering than .12s, which would sort after it lexicographically.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	put := func(id engine.LotID, offset time.Duration) {
		require.NoError(t, s.PutLot(ctx, engine.StockLot{
			ID:        id,
			Item:      engine.ItemRani,
			Weight:    dec("25"),
			Touch:     dec("93.55"),
			CreatedAt: base.Add(offset),
		}))
	}
	put("lot-newer", 120*time.Millisecond)
	put("lot-older", 100*time.Millisecond)

	lots, err := s.ListLots(ctx, engine.LotFilter{Item: engine.ItemRani, UnsoldOnly: true})
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, engine.LotID("lot-older"), lots[0].ID)
	assert.Equal(t, engine.LotID("lot-newer"), lots[1].ID)
	assert.True(t, lots[0].CreatedAt.Equal(base.Add(100*time.Millisecond)), "sub-second precision survives the round trip")
}

func TestStore_TransactionOrder_SubsecondTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	today := engine.Today()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	put := func(local string, offset time.Duration) {
		require.NoError(t, s.PutTransaction(ctx, engine.Transaction{
			Key:        engine.TxKey{LocalID: local, DeviceID: "device-a"},
			CustomerID: "cust-1",
			Date:       today,
			CreatedAt:  base.Add(offset),
			UpdatedAt:  base.Add(offset),
		}))
	}
	put("tx-newer", 120*time.Millisecond)
	put("tx-older", 100*time.Millisecond)

	txs, err := s.ListTransactions(ctx, engine.TxFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-older", txs[0].Key.LocalID)
	assert.Equal(t, "tx-newer", txs[1].Key.LocalID)
}

func TestStore_LedgerEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	today := engine.Today()
	tx := engine.TxKey{LocalID: "tx-1", DeviceID: "device-a"}

	_, ok, err := s.EarliestActiveLedgerDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	put := func(id engine.LedgerEntryID, kind engine.LedgerKind, date engine.Date) {
		require.NoError(t, s.PutLedgerEntry(ctx, engine.LedgerEntry{
			ID:         id,
			Kind:       kind,
			Tx:         tx,
			CustomerID: "cust-1",
			Date:       date,
			Direction:  engine.DirReceive,
			Amount:     dec("1000"),
		}))
	}
	put("le-1", engine.LedgerMoney, today.AddDays(-3))
	put("le-2", engine.LedgerMetal, today)

	exists, err := s.HasLedgerEntry(ctx, "le-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.HasLedgerEntry(ctx, "le-9")
	require.NoError(t, err)
	assert.False(t, exists)

	earliest, ok, err := s.EarliestActiveLedgerDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, earliest.Equal(today.AddDays(-3)))

	money, err := s.ListLedgerEntries(ctx, engine.LedgerFilter{Kind: engine.LedgerMoney})
	require.NoError(t, err)
	require.Len(t, money, 1)
	assert.Equal(t, engine.LedgerEntryID("le-1"), money[0].ID)

	byTx, err := s.ListLedgerEntries(ctx, engine.LedgerFilter{Tx: &tx})
	require.NoError(t, err)
	assert.Len(t, byTx, 2)

	// Soft-deleting a projection only flips its deletion flag.
	le := money[0]
	le.Deletion = engine.DeletedOn(today)
	require.NoError(t, s.PutLedgerEntry(ctx, le))
	activeRows, err := s.ListLedgerEntries(ctx, engine.LedgerFilter{})
	require.NoError(t, err)
	assert.Len(t, activeRows, 1)
	earliest, ok, err = s.EarliestActiveLedgerDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, earliest.Equal(today), "deleted rows do not anchor the chain")
}

func TestStore_DayBalanceAndBase(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	today := engine.Today()

	_, ok, err := s.GetDayBalance(ctx, today)
	require.NoError(t, err)
	assert.False(t, ok)

	b := engine.DayBalance{
		Date: today,
		InventoryVector: engine.InventoryVector{
			Gold999: dec("150.250"),
			Silver:  dec("12000"),
			Money:   dec("-35000"),
		},
	}
	require.NoError(t, s.PutDayBalance(ctx, b))
	// Upsert: recompute overwrites the snapshot for the same day.
	b.Money = dec("-36000")
	require.NoError(t, s.PutDayBalance(ctx, b))

	got, ok, err := s.GetDayBalance(ctx, today)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Gold999.Equal(dec("150.250")))
	assert.True(t, got.Money.Equal(dec("-36000")))

	_, ok, err = s.GetBaseInventory(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	base := engine.BaseInventory{
		InventoryVector: engine.InventoryVector{Rupu: dec("2600"), Money: dec("100000")},
		SetAt:           time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutBaseInventory(ctx, base))
	gotBase, ok, err := s.GetBaseInventory(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gotBase.Rupu.Equal(dec("2600")))
	assert.True(t, gotBase.Money.Equal(dec("100000")))
	assert.True(t, gotBase.SetAt.Equal(base.SetAt))
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx engine.Store) error {
		if err := tx.PutCustomer(ctx, engine.Customer{ID: "cust-1", Name: "Doomed"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetCustomer(ctx, "cust-1")
	assert.ErrorIs(t, err, engine.ErrNotFound, "failed unit leaves no trace")
}

func TestStore_WithTxSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx engine.Store) error {
		if err := tx.PutCustomer(ctx, engine.Customer{ID: "cust-1", Name: "Visible"}); err != nil {
			return err
		}
		c, err := tx.GetCustomer(ctx, "cust-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "Visible", c.Name, "uncommitted writes are visible inside the unit")
		return nil
	})
	require.NoError(t, err)

	c, err := s.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Visible", c.Name)
}

// The ledger exercises every store method in one flow; running it against
// SQLite catches SQL-level regressions the memory store cannot.
func TestStore_LedgerEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ledger := engine.NewLedger(s, "device-a")

	require.NoError(t, s.PutCustomer(ctx, engine.Customer{
		ID:             "cust-1",
		Name:           "Sharma Jewellers",
		LastActivityAt: time.Now().UTC(),
	}))

	// Purchase books a lot; the sell consumes it FIFO.
	_, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "cust-1",
		Entries: []engine.Entry{{
			Kind:   engine.KindPurchase,
			Item:   engine.ItemRani,
			Weight: dec("25"),
			Touch:  dec("93.55"),
			Price:  dec("65000"),
		}},
	})
	require.NoError(t, err)

	key, err := ledger.Save(ctx, engine.SaveInput{
		CustomerID: "cust-1",
		Entries: []engine.Entry{{
			Kind:   engine.KindSell,
			Item:   engine.ItemRani,
			Weight: dec("25"),
			Touch:  dec("93.55"),
			Price:  dec("65000"),
		}},
	})
	require.NoError(t, err)

	lots, err := s.ListLots(ctx, engine.LotFilter{Item: engine.ItemRani, UnsoldOnly: true})
	require.NoError(t, err)
	assert.Empty(t, lots, "the sell consumed the only lot")

	c, err := s.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, c.MoneyBalance.IsZero(), "buy and sell at the same rate cancel: got %s", c.MoneyBalance)

	require.NoError(t, ledger.Delete(ctx, key))
	deleted, err := s.ListTransactions(ctx, engine.TxFilter{DeletedOnly: true})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	require.NoError(t, ledger.Restore(ctx, key))
	tx, err := s.GetTransaction(ctx, key)
	require.NoError(t, err)
	assert.True(t, tx.Deletion.Active())
}
