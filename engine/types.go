/*
Package engine is the core ledger and inventory reconciliation engine for a
precious-metals trading desk.

PURPOSE:
  This package contains the domain types and algorithms that turn raw entry
  inputs into deterministic monetary/weight values, maintain per-customer
  balances as reversible effects of transactions, manage a FIFO lot inventory
  for impure-metal stock, and rebuild the day-indexed inventory chain after
  retroactive edits.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: money and metal balances, signed (positive = merchant owes customer)
  - Transaction: the aggregate, identified by a composite TxKey (local id + device)
  - Entry: one line of a transaction (sell/purchase/money)
  - StockLot: a discrete quantity of impure-metal stock, consumed FIFO
  - LedgerEntry: append-only, date-indexed money/metal movement projection
  - DayBalance: opening inventory snapshot for one business date

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every money and weight value
  2. Reversibility: balance changes are effects that can be applied and reversed
  3. Soft deletion is an explicit tagged state, not a nullable date
  4. Transaction identity is a value-type composite key, never string parsing

SEE ALSO:
  - rounding.go: merchant rounding rules for money and pure weights
  - valuation.go: entry -> signed subtotal
  - ledger.go: the transaction state machine
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type LotID string
type LedgerEntryID string
type DeviceID string

// TxKey identifies a transaction across devices. Local ids are only unique per
// device, so merge logic keys on the full pair.
type TxKey struct {
	LocalID  string   `json:"local_id"`
	DeviceID DeviceID `json:"device_id"`
}

func (k TxKey) IsZero() bool { return k.LocalID == "" }

func (k TxKey) String() string { return k.LocalID + "@" + string(k.DeviceID) }

// =============================================================================
// ITEM AND ENTRY CLASSIFICATION
// =============================================================================

type EntryKind string

const (
	KindSell     EntryKind = "sell"
	KindPurchase EntryKind = "purchase"
	KindMoney    EntryKind = "money"
)

type ItemType string

const (
	ItemGold999 ItemType = "gold999"
	ItemGold995 ItemType = "gold995"
	ItemRani    ItemType = "rani" // impure gold, traded by weight and touch
	ItemSilver  ItemType = "silver"
	ItemRupu    ItemType = "rupu" // impure silver
	ItemMoney   ItemType = "money"
)

// IsImpure reports whether the item is lot-tracked impure stock.
func (it ItemType) IsImpure() bool { return it == ItemRani || it == ItemRupu }

type Direction string

const (
	DirReceive Direction = "receive"
	DirGive    Direction = "give"
)

// RupuMode distinguishes how a rupu trade settles: in money or in
// returned refined silver.
type RupuMode string

const (
	RupuMoneyReturn  RupuMode = "money"
	RupuSilverReturn RupuMode = "silver"
)

// =============================================================================
// SOFT-DELETE STATE
// =============================================================================

// Deletion is the tagged soft-delete state of a record. Using an explicit
// value instead of a nullable date keeps recompute and merge filters
// exhaustive.
type Deletion struct {
	Deleted bool `json:"deleted"`
	On      Date `json:"on,omitempty"`
}

func DeletedOn(on Date) Deletion { return Deletion{Deleted: true, On: on} }

func (d Deletion) Active() bool { return !d.Deleted }

// =============================================================================
// CUSTOMER
// =============================================================================

// MetalBalance holds signed pure-weight balances per refined metal.
// Positive = merchant owes the customer, negative = customer owes the merchant.
type MetalBalance struct {
	Gold999 decimal.Decimal `json:"gold999"`
	Gold995 decimal.Decimal `json:"gold995"`
	Silver  decimal.Decimal `json:"silver"`
}

func (b MetalBalance) Add(o MetalBalance) MetalBalance {
	return MetalBalance{
		Gold999: b.Gold999.Add(o.Gold999),
		Gold995: b.Gold995.Add(o.Gold995),
		Silver:  b.Silver.Add(o.Silver),
	}
}

func (b MetalBalance) Sub(o MetalBalance) MetalBalance {
	return MetalBalance{
		Gold999: b.Gold999.Sub(o.Gold999),
		Gold995: b.Gold995.Sub(o.Gold995),
		Silver:  b.Silver.Sub(o.Silver),
	}
}

func (b MetalBalance) IsZero() bool {
	return b.Gold999.IsZero() && b.Gold995.IsZero() && b.Silver.IsZero()
}

type Customer struct {
	ID             CustomerID      `json:"id"`
	Name           string          `json:"name"`
	MoneyBalance   decimal.Decimal `json:"money_balance"`
	MetalBalances  MetalBalance    `json:"metal_balances"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// =============================================================================
// TRANSACTION AND ENTRIES
// =============================================================================

// Entry is one line of a transaction. Derived fields (PureWeight, Subtotal)
// are filled by Valuate and never recomputed ad hoc.
type Entry struct {
	Kind EntryKind `json:"kind"`
	Item ItemType  `json:"item"`

	Weight decimal.Decimal `json:"weight,omitempty"`
	Price  decimal.Decimal `json:"price,omitempty"`
	Touch  decimal.Decimal `json:"touch,omitempty"` // purity %, impure metals only

	ExtraBonusPerKg decimal.Decimal `json:"extra_bonus_per_kg,omitempty"` // rupu only
	ReturnMode      RupuMode        `json:"return_mode,omitempty"`        // rupu only
	SilverReturnedA decimal.Decimal `json:"silver_returned_a,omitempty"`  // rupu silver-return
	SilverReturnedB decimal.Decimal `json:"silver_returned_b,omitempty"`  // rupu silver-return

	Direction Direction       `json:"direction,omitempty"` // money only
	Amount    decimal.Decimal `json:"amount,omitempty"`    // money only

	LotID LotID `json:"lot_id,omitempty"` // impure metals only

	// MetalOnly marks a weight movement with no money leg; it moves the
	// customer's metal balance instead of the money balance.
	MetalOnly bool `json:"metal_only,omitempty"`

	PureWeight decimal.Decimal `json:"pure_weight"` // derived
	Subtotal   decimal.Decimal `json:"subtotal"`    // derived, signed
}

// Payment is money actually exchanged alongside a transaction.
type Payment struct {
	Direction Direction       `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
}

type Transaction struct {
	Key           TxKey           `json:"key"`
	CustomerID    CustomerID      `json:"customer_id"`
	Date          Date            `json:"date"` // business date, not edit time
	Entries       []Entry         `json:"entries"`
	NetAmount     decimal.Decimal `json:"net_amount"`     // sum of money-effective subtotals
	AmountSettled decimal.Decimal `json:"amount_settled"` // money actually exchanged
	Note          string          `json:"note,omitempty"`
	Deletion      Deletion        `json:"deletion"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// =============================================================================
// STOCK LOT - Impure-metal inventory unit
// =============================================================================

type StockLot struct {
	ID        LotID           `json:"id"`
	Item      ItemType        `json:"item"` // rani or rupu
	Weight    decimal.Decimal `json:"weight"`
	Touch     decimal.Decimal `json:"touch"`
	Sold      bool            `json:"sold"`
	CreatedAt time.Time       `json:"created_at"`
}

// =============================================================================
// LEDGER ENTRY - Append-only money/metal movement projection
// =============================================================================

type LedgerKind string

const (
	LedgerMoney LedgerKind = "money"
	LedgerMetal LedgerKind = "metal"
)

// LedgerEntry is the authoritative time series used for history queries and
// inventory recomputation. It is derived from Transaction state but persisted,
// so the sync components keep it consistent explicitly.
type LedgerEntry struct {
	ID         LedgerEntryID   `json:"id"`
	Kind       LedgerKind      `json:"kind"`
	Tx         TxKey           `json:"tx"`
	CustomerID CustomerID      `json:"customer_id"`
	Date       Date            `json:"date"`
	Direction  Direction       `json:"direction"`
	Item       ItemType        `json:"item,omitempty"`   // metal rows
	Weight     decimal.Decimal `json:"weight,omitempty"` // metal rows, pure weight for impure items
	Amount     decimal.Decimal `json:"amount,omitempty"` // money rows
	Deletion   Deletion        `json:"deletion"`
}

// =============================================================================
// INVENTORY SNAPSHOTS
// =============================================================================

// InventoryVector is one quantity per tracked bucket. Impure stock is tracked
// as its pure-weight equivalent in the rani/rupu buckets.
type InventoryVector struct {
	Gold999 decimal.Decimal `json:"gold999"`
	Gold995 decimal.Decimal `json:"gold995"`
	Rani    decimal.Decimal `json:"rani"`
	Silver  decimal.Decimal `json:"silver"`
	Rupu    decimal.Decimal `json:"rupu"`
	Money   decimal.Decimal `json:"money"`
}

func (v InventoryVector) Add(o InventoryVector) InventoryVector {
	return InventoryVector{
		Gold999: v.Gold999.Add(o.Gold999),
		Gold995: v.Gold995.Add(o.Gold995),
		Rani:    v.Rani.Add(o.Rani),
		Silver:  v.Silver.Add(o.Silver),
		Rupu:    v.Rupu.Add(o.Rupu),
		Money:   v.Money.Add(o.Money),
	}
}

func (v InventoryVector) Sub(o InventoryVector) InventoryVector {
	return InventoryVector{
		Gold999: v.Gold999.Sub(o.Gold999),
		Gold995: v.Gold995.Sub(o.Gold995),
		Rani:    v.Rani.Sub(o.Rani),
		Silver:  v.Silver.Sub(o.Silver),
		Rupu:    v.Rupu.Sub(o.Rupu),
		Money:   v.Money.Sub(o.Money),
	}
}

func (v InventoryVector) IsZero() bool {
	return v.Gold999.IsZero() && v.Gold995.IsZero() && v.Rani.IsZero() &&
		v.Silver.IsZero() && v.Rupu.IsZero() && v.Money.IsZero()
}

// DayBalance is the opening inventory snapshot for one business date.
// Invariant: opening(date) = opening(previous date) + net effect of active
// ledger entries dated the previous date.
type DayBalance struct {
	Date Date `json:"date"`
	InventoryVector
}

// BaseInventory is the singleton starting point of the opening-balance chain.
type BaseInventory struct {
	InventoryVector
	SetAt time.Time `json:"set_at"`
}
