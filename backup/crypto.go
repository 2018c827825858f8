/*
Package backup implements encrypted snapshot export, import, and merge.

PURPOSE:
  A device exports its full store as an encrypted archive; another device
  imports it and merges the records into its own store. Merge is
  conflict-free: transaction identity is the composite (local id, device id)
  pair, so two devices can never overwrite each other's rows.

WIRE FORMAT:
  salt(16) || nonce(12) || AES-256-GCM ciphertext
  The key is derived from the passphrase with PBKDF2-SHA256 (100k rounds).
  The plaintext is a zip archive containing snapshot.json.

SEE ALSO:
  - backup/snapshot.go: snapshot shape and archive container
  - backup/merge.go: merge rules
*/
package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

const (
	saltSize  = 16
	keySize   = 32
	keyRounds = 100_000
)

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, keyRounds, keySize, sha256.New)
}

// encrypt seals plaintext with a key derived from the passphrase. The salt
// and GCM nonce are prepended so decrypt needs only the passphrase.
func encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// decrypt opens data sealed by encrypt. A wrong passphrase or a corrupted
// payload returns an error wrapping engine.ErrDecryption, distinct from
// plain I/O failures, so the caller can prompt for the key again.
func decrypt(passphrase string, data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, fmt.Errorf("%w: payload too short", engine.ErrDecryption)
	}
	salt, rest := data[:saltSize], data[saltSize:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: payload too short", engine.ErrDecryption)
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong key or corrupted payload", engine.ErrDecryption)
	}
	return plaintext, nil
}
