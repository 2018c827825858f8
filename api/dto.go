/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Money and weights travel as JSON strings in decimal form. Clients must
  not send floats; the engine never touches float64.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain model
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// EntryRequest is one transaction entry draft from the client.
type EntryRequest struct {
	Kind            string          `json:"kind"`
	Item            string          `json:"item"`
	Weight          decimal.Decimal `json:"weight"`
	Price           decimal.Decimal `json:"price"`
	Touch           decimal.Decimal `json:"touch"`
	ExtraBonusPerKg decimal.Decimal `json:"extra_bonus_per_kg"`
	ReturnMode      string          `json:"return_mode,omitempty"`
	SilverReturnedA decimal.Decimal `json:"silver_returned_a"`
	SilverReturnedB decimal.Decimal `json:"silver_returned_b"`
	Direction       string          `json:"direction,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	LotID           string          `json:"lot_id,omitempty"`
	MetalOnly       bool            `json:"metal_only,omitempty"`
}

func (e EntryRequest) toEntry() engine.Entry {
	return engine.Entry{
		Kind:            engine.EntryKind(e.Kind),
		Item:            engine.ItemType(e.Item),
		Weight:          e.Weight,
		Price:           e.Price,
		Touch:           e.Touch,
		ExtraBonusPerKg: e.ExtraBonusPerKg,
		ReturnMode:      engine.RupuMode(e.ReturnMode),
		SilverReturnedA: e.SilverReturnedA,
		SilverReturnedB: e.SilverReturnedB,
		Direction:       engine.Direction(e.Direction),
		Amount:          e.Amount,
		LotID:           engine.LotID(e.LotID),
		MetalOnly:       e.MetalOnly,
	}
}

// ValuateResponse previews an entry before it is committed.
type ValuateResponse struct {
	PureWeight decimal.Decimal `json:"pure_weight"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// PaymentRequest is money exchanged alongside a transaction.
type PaymentRequest struct {
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
}

// SaveTransactionRequest creates a transaction, or edits one when both id
// fields are present.
type SaveTransactionRequest struct {
	LocalID    string           `json:"local_id,omitempty"`
	DeviceID   string           `json:"device_id,omitempty"`
	CustomerID string           `json:"customer_id"`
	Date       string           `json:"date,omitempty"` // YYYY-MM-DD, empty = today
	Entries    []EntryRequest   `json:"entries"`
	Payments   []PaymentRequest `json:"payments"`
	Note       string           `json:"note,omitempty"`
}

// SaveTransactionResponse returns the committed key.
type SaveTransactionResponse struct {
	LocalID  string `json:"local_id"`
	DeviceID string `json:"device_id"`
}

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	LocalID       string          `json:"local_id"`
	DeviceID      string          `json:"device_id"`
	CustomerID    string          `json:"customer_id"`
	Date          string          `json:"date"`
	Entries       []engine.Entry  `json:"entries"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	AmountSettled decimal.Decimal `json:"amount_settled"`
	Note          string          `json:"note,omitempty"`
	Deleted       bool            `json:"deleted"`
	DeletedOn     string          `json:"deleted_on,omitempty"`
}

func toTransactionDTO(t engine.Transaction) TransactionDTO {
	dto := TransactionDTO{
		LocalID:       t.Key.LocalID,
		DeviceID:      string(t.Key.DeviceID),
		CustomerID:    string(t.CustomerID),
		Date:          t.Date.String(),
		Entries:       t.Entries,
		NetAmount:     t.NetAmount,
		AmountSettled: t.AmountSettled,
		Note:          t.Note,
		Deleted:       !t.Deletion.Active(),
	}
	if !t.Deletion.Active() {
		dto.DeletedOn = t.Deletion.On.String()
	}
	return dto
}

// UpsertCustomerRequest creates or renames a customer.
type UpsertCustomerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomerDTO represents a customer with balances.
type CustomerDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MoneyBalance decimal.Decimal `json:"money_balance"`
	Gold999      decimal.Decimal `json:"gold999_balance"`
	Gold995      decimal.Decimal `json:"gold995_balance"`
	Silver       decimal.Decimal `json:"silver_balance"`
}

func toCustomerDTO(c engine.Customer) CustomerDTO {
	return CustomerDTO{
		ID:           string(c.ID),
		Name:         c.Name,
		MoneyBalance: c.MoneyBalance,
		Gold999:      c.MetalBalances.Gold999,
		Gold995:      c.MetalBalances.Gold995,
		Silver:       c.MetalBalances.Silver,
	}
}

// LedgerEntryDTO represents one money/metal movement row.
type LedgerEntryDTO struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	LocalID    string          `json:"local_id"`
	DeviceID   string          `json:"device_id"`
	CustomerID string          `json:"customer_id"`
	Date       string          `json:"date"`
	Direction  string          `json:"direction"`
	Item       string          `json:"item,omitempty"`
	Weight     decimal.Decimal `json:"weight"`
	Amount     decimal.Decimal `json:"amount"`
}

func toLedgerEntryDTO(le engine.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:         string(le.ID),
		Kind:       string(le.Kind),
		LocalID:    le.Tx.LocalID,
		DeviceID:   string(le.Tx.DeviceID),
		CustomerID: string(le.CustomerID),
		Date:       le.Date.String(),
		Direction:  string(le.Direction),
		Item:       string(le.Item),
		Weight:     le.Weight,
		Amount:     le.Amount,
	}
}

// InventoryDTO is one day's opening balance.
type InventoryDTO struct {
	Date    string          `json:"date"`
	Gold999 decimal.Decimal `json:"gold999"`
	Gold995 decimal.Decimal `json:"gold995"`
	Rani    decimal.Decimal `json:"rani"`
	Silver  decimal.Decimal `json:"silver"`
	Rupu    decimal.Decimal `json:"rupu"`
	Money   decimal.Decimal `json:"money"`
}

// SetBaseInventoryRequest sets what the merchant physically holds today.
type SetBaseInventoryRequest struct {
	Gold999 decimal.Decimal `json:"gold999"`
	Gold995 decimal.Decimal `json:"gold995"`
	Rani    decimal.Decimal `json:"rani"`
	Silver  decimal.Decimal `json:"silver"`
	Rupu    decimal.Decimal `json:"rupu"`
	Money   decimal.Decimal `json:"money"`
}

// RecomputeRequest triggers an inventory rebuild from a date.
type RecomputeRequest struct {
	From string `json:"from"` // YYYY-MM-DD
}

// SweepResponse reports how many expired transactions were purged.
type SweepResponse struct {
	Purged int `json:"purged"`
}
