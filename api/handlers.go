/*
handlers.go - HTTP API handlers for the bullion ledger engine

PURPOSE:
  Exposes the ledger and inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Entries:
    POST   /api/entries/valuate                    Preview subtotal/pure weight

  Transactions:
    POST   /api/transactions                       Save (create or edit)
    GET    /api/transactions                       List (filters)
    GET    /api/transactions/{device}/{id}         Get one
    DELETE /api/transactions/{device}/{id}         Soft delete
    POST   /api/transactions/{device}/{id}/restore Restore

  Customers:
    GET    /api/customers                          List with balances
    POST   /api/customers                          Upsert
    GET    /api/customers/{id}/balance             Balance summary

  Ledger / Inventory:
    GET    /api/ledger                             Ledger entries (filters)
    GET    /api/inventory/{date}                   Opening balance for a date
    POST   /api/inventory/recompute                Rebuild chain from a date
    PUT    /api/inventory/base                     Set base inventory

  Backup / Admin:
    POST   /api/backup/export                      Encrypted archive download
    POST   /api/backup/import                      Merge uploaded archive
    POST   /api/admin/retention/sweep              Purge expired soft-deletes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation, stock unavailable, bad backup key
  - 404: Record not found
  - 500: Consistency violations and internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. The server is meant to sit
  on a trusted local network, one per shop.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - retention.go: Background purge of expired soft-deletes
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AaryanSoni0610/bulliondesk/backup"
	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     engine.TxStore
	Ledger    *engine.Ledger
	Inventory *engine.Inventory
	Merger    *backup.Merger
	Device    engine.DeviceID
	BackupKey string
}

// NewHandler creates a new handler over the given store.
func NewHandler(store engine.TxStore, device engine.DeviceID, backupKey string) *Handler {
	return &Handler{
		Store:     store,
		Ledger:    engine.NewLedger(store, device),
		Inventory: engine.NewInventory(store),
		Merger:    backup.NewMerger(store),
		Device:    device,
		BackupKey: backupKey,
	}
}

// =============================================================================
// ENTRY VALUATION
// =============================================================================

// ValuateEntry previews the derived subtotal and pure weight of one entry.
// POST /api/entries/valuate
func (h *Handler) ValuateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := engine.Valuate(req.toEntry())
	if err != nil {
		writeDomainError(w, "Valuation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ValuateResponse{
		PureWeight: entry.PureWeight,
		Subtotal:   entry.Subtotal,
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// SaveTransaction creates or edits a transaction.
// POST /api/transactions
func (h *Handler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	var req SaveTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := engine.SaveInput{
		CustomerID: engine.CustomerID(req.CustomerID),
		Note:       req.Note,
	}
	if req.LocalID != "" {
		key := engine.TxKey{LocalID: req.LocalID, DeviceID: engine.DeviceID(req.DeviceID)}
		if key.DeviceID == "" {
			key.DeviceID = h.Device
		}
		in.Key = &key
	}
	if req.Date != "" {
		date, err := engine.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		in.Date = date
	}
	for _, e := range req.Entries {
		in.Entries = append(in.Entries, e.toEntry())
	}
	for _, p := range req.Payments {
		in.Payments = append(in.Payments, engine.Payment{
			Direction: engine.Direction(p.Direction),
			Amount:    p.Amount,
		})
	}

	key, err := h.Ledger.Save(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to save transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, SaveTransactionResponse{
		LocalID:  key.LocalID,
		DeviceID: string(key.DeviceID),
	})
}

// GetTransaction returns a single transaction.
// GET /api/transactions/{device}/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.Transaction(r.Context(), urlTxKey(r))
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

// ListTransactions returns transactions matching the query filters.
// GET /api/transactions?customer=&from=&to=&deleted=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f := engine.TxFilter{
		CustomerID: engine.CustomerID(r.URL.Query().Get("customer")),
	}
	switch r.URL.Query().Get("deleted") {
	case "only":
		f.DeletedOnly = true
	case "include":
		f.IncludeDeleted = true
	}
	var err error
	if f.From, f.To, err = urlDateRange(r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	txs, err := h.Ledger.Transactions(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteTransaction soft-deletes a transaction, reversing its balance and
// stock effects.
// DELETE /api/transactions/{device}/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Delete(r.Context(), urlTxKey(r)); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreTransaction re-activates a soft-deleted transaction.
// POST /api/transactions/{device}/{id}/restore
func (h *Handler) RestoreTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Restore(r.Context(), urlTxKey(r)); err != nil {
		writeDomainError(w, "Failed to restore transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func urlTxKey(r *http.Request) engine.TxKey {
	return engine.TxKey{
		LocalID:  chi.URLParam(r, "id"),
		DeviceID: engine.DeviceID(chi.URLParam(r, "device")),
	}
}

// =============================================================================
// CUSTOMERS
// =============================================================================

// ListCustomers returns all customers with balances.
// GET /api/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertCustomer creates a customer or renames an existing one. Balances
// are never written through this endpoint; they move only as transaction
// effects.
// POST /api/customers
func (h *Handler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var req UpsertCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	ctx := r.Context()
	c, err := h.Store.GetCustomer(ctx, engine.CustomerID(req.ID))
	if err != nil {
		if !engine.IsNotFound(err) {
			writeError(w, http.StatusInternalServerError, "Failed to load customer", err)
			return
		}
		c = engine.Customer{ID: engine.CustomerID(req.ID)}
	}
	c.Name = req.Name
	c.LastActivityAt = time.Now().UTC()

	if err := h.Store.PutCustomer(ctx, c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// GetBalance returns one customer's money and metal balances.
// GET /api/customers/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Customer(r.Context(), engine.CustomerID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// =============================================================================
// LEDGER
// =============================================================================

// ListLedgerEntries returns money/metal movement rows matching the filters.
// GET /api/ledger?customer=&kind=&from=&to=
func (h *Handler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	f := engine.LedgerFilter{
		CustomerID: engine.CustomerID(r.URL.Query().Get("customer")),
		Kind:       engine.LedgerKind(r.URL.Query().Get("kind")),
	}
	var err error
	if f.From, f.To, err = urlDateRange(r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	entries := h.Ledger.LedgerEntries(r.Context(), f)
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, le := range entries {
		dtos[i] = toLedgerEntryDTO(le)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVENTORY
// =============================================================================

// GetInventory returns the opening balance for a date.
// GET /api/inventory/{date}
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	b, found, err := h.Inventory.OpeningBalance(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get inventory", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "No inventory snapshot for date", nil)
		return
	}

	writeJSON(w, http.StatusOK, InventoryDTO{
		Date:    b.Date.String(),
		Gold999: b.Gold999,
		Gold995: b.Gold995,
		Rani:    b.Rani,
		Silver:  b.Silver,
		Rupu:    b.Rupu,
		Money:   b.Money,
	})
}

// RecomputeInventory rebuilds the opening-balance chain from a date.
// POST /api/inventory/recompute
func (h *Handler) RecomputeInventory(w http.ResponseWriter, r *http.Request) {
	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, err := engine.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	if err := h.Inventory.RecomputeFrom(r.Context(), from); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recompute inventory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBaseInventory records what the merchant physically holds today and
// rebuilds the whole chain against it.
// PUT /api/inventory/base
func (h *Handler) SetBaseInventory(w http.ResponseWriter, r *http.Request) {
	var req SetBaseInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	vec := engine.InventoryVector{
		Gold999: req.Gold999,
		Gold995: req.Gold995,
		Rani:    req.Rani,
		Silver:  req.Silver,
		Rupu:    req.Rupu,
		Money:   req.Money,
	}
	if err := h.Inventory.SetBase(r.Context(), vec, engine.Today()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set base inventory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BACKUP
// =============================================================================

// ExportBackup streams an encrypted snapshot archive of the full store.
// POST /api/backup/export
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := backup.Export(r.Context(), h.Store, backup.ExportManual, h.Device, h.BackupKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export backup", err)
		return
	}

	name := fmt.Sprintf("bulliondesk-%s-%s.bdk", h.Device, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportBackup decrypts an uploaded archive and merges it into the store.
// POST /api/backup/import
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	result, err := h.Merger.Import(r.Context(), data, h.BackupKey)
	if err != nil {
		writeDomainError(w, "Failed to import backup", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// ADMIN
// =============================================================================

// SweepRetention hard-deletes transactions whose soft-delete window has
// expired. The retention sweeper calls the same path on a timer.
// POST /api/admin/retention/sweep
func (h *Handler) SweepRetention(w http.ResponseWriter, r *http.Request) {
	purged, err := h.Ledger.PurgeExpired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to purge expired transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Purged: purged})
}

// =============================================================================
// HELPERS
// =============================================================================

func urlDateRange(r *http.Request) (from, to engine.Date, err error) {
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = engine.ParseDate(s); err != nil {
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		to, err = engine.ParseDate(s)
	}
	return
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error categories onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
