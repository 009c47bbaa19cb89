package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port
// interface. Rows hold AES-256-GCM sealed values; plaintext only crosses the
// port boundary.
type CredentialRepo struct {
	db   *DB
	aead cipher.AEAD // nil when no encryption key is configured
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable credential storage entirely (every operation
// then returns ErrEncryptionKeyNotSet). A key of any other length is treated
// like nil; config validation rejects it long before this point.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	repo := &CredentialRepo{db: db}

	if block, err := aes.NewCipher(key); err == nil {
		if aead, err := cipher.NewGCM(block); err == nil {
			repo.aead = aead
		}
	}

	return repo
}

// Set stores or replaces one credential of a service, sealing the value first.
func (r *CredentialRepo) Set(ctx context.Context, service, key, plaintext string) error {
	sealed, err := r.seal(plaintext)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO credentials (service, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, key, sealed); err != nil {
		return fmt.Errorf("set credential %s/%s: %w", service, key, err)
	}
	return nil
}

// Get returns the plaintext credential of a service, or ("", nil) when the
// row does not exist.
func (r *CredentialRepo) Get(ctx context.Context, service, key string) (string, error) {
	if r.aead == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE service = ? AND key = ?`

	var sealed string
	err := r.db.Reader.QueryRowContext(ctx, query, service, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", service, key, err)
	}

	plaintext, err := r.open(sealed)
	if err != nil {
		return "", fmt.Errorf("open credential %s/%s: %w", service, key, err)
	}
	return plaintext, nil
}

// List returns every stored credential with its value unsealed.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	if r.aead == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT id, service, key, value, updated_at FROM credentials ORDER BY service, key`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var (
			cred      model.Credential
			sealed    string
			updatedAt string
		)
		if err := rows.Scan(&cred.ID, &cred.Service, &cred.Key, &sealed, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		if cred.Value, err = r.open(sealed); err != nil {
			return nil, fmt.Errorf("open credential %s/%s: %w", cred.Service, cred.Key, err)
		}
		if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for credential %s/%s: %w", cred.Service, cred.Key, err)
		}

		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes one credential of a service. Deleting a missing row is not
// an error; logout must succeed on a half-written credential set.
func (r *CredentialRepo) Delete(ctx context.Context, service, key string) error {
	const query = `DELETE FROM credentials WHERE service = ? AND key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, service, key); err != nil {
		return fmt.Errorf("delete credential %s/%s: %w", service, key, err)
	}
	return nil
}

// seal encrypts plaintext and encodes nonce||ciphertext||tag as base64 for
// storage in a TEXT column.
func (r *CredentialRepo) seal(plaintext string) (string, error) {
	if r.aead == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	nonce := make([]byte, r.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := r.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open decodes and decrypts a sealed value produced by seal.
func (r *CredentialRepo) open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	if len(data) < r.aead.NonceSize() {
		return "", errors.New("sealed value shorter than nonce")
	}

	nonce, ciphertext := data[:r.aead.NonceSize()], data[r.aead.NonceSize():]
	plaintext, err := r.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt sealed value: %w", err)
	}

	return string(plaintext), nil
}
