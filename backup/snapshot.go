package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// ExportKind distinguishes user-initiated exports from scheduled ones.
type ExportKind string

const (
	ExportManual ExportKind = "manual"
	ExportAuto   ExportKind = "auto"
)

// snapshotFileName is the single entry inside the zip container.
const snapshotFileName = "snapshot.json"

// Records holds the full exportable state of one device's store.
type Records struct {
	Customers     []engine.Customer    `json:"customers"`
	Transactions  []engine.Transaction `json:"transactions"`
	LedgerEntries []engine.LedgerEntry `json:"ledger_entries"`
}

// Snapshot is the logical backup payload.
type Snapshot struct {
	ExportKind  ExportKind      `json:"export_kind"`
	Timestamp   time.Time       `json:"timestamp"`
	RecordCount int             `json:"record_count"`
	DeviceID    engine.DeviceID `json:"device_id"`
	Records     Records         `json:"records"`
}

// Build reads the full store state into a Snapshot. Soft-deleted
// transactions and ledger rows are included: the importing device needs
// them to honor retention windows and restores.
func Build(ctx context.Context, s engine.Store, kind ExportKind, device engine.DeviceID) (Snapshot, error) {
	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list customers: %w", err)
	}
	transactions, err := s.ListTransactions(ctx, engine.TxFilter{IncludeDeleted: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	ledgerEntries, err := s.ListLedgerEntries(ctx, engine.LedgerFilter{IncludeDeleted: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return Snapshot{
		ExportKind:  kind,
		Timestamp:   time.Now().UTC(),
		RecordCount: len(customers) + len(transactions) + len(ledgerEntries),
		DeviceID:    device,
		Records: Records{
			Customers:     customers,
			Transactions:  transactions,
			LedgerEntries: ledgerEntries,
		},
	}, nil
}

// Export builds a snapshot and seals it into an encrypted archive:
// JSON -> zip -> AES-256-GCM.
func Export(ctx context.Context, s engine.Store, kind ExportKind, device engine.DeviceID, passphrase string) ([]byte, error) {
	snap, err := Build(ctx, s, kind, device)
	if err != nil {
		return nil, err
	}
	return Seal(snap, passphrase)
}

// Seal encodes and encrypts a snapshot.
func Seal(snap Snapshot, passphrase string) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	f, err := zw.Create(snapshotFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to write archive entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return encrypt(passphrase, archive.Bytes())
}

// Open decrypts and decodes an exported archive. Wrong passphrases surface
// as engine.ErrDecryption; a well-decrypted but malformed archive is a
// plain error.
func Open(data []byte, passphrase string) (Snapshot, error) {
	plaintext, err := decrypt(passphrase, data)
	if err != nil {
		return Snapshot{}, err
	}

	zr, err := zip.NewReader(bytes.NewReader(plaintext), int64(len(plaintext)))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open archive: %w", err)
	}

	var payload []byte
	for _, f := range zr.File {
		if f.Name != snapshotFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to open archive entry: %w", err)
		}
		payload, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to read archive entry: %w", err)
		}
		break
	}
	if payload == nil {
		return Snapshot{}, fmt.Errorf("archive does not contain %s", snapshotFileName)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
