package driven

import (
	"context"
	"errors"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by every CredentialStore operation while
// TGTG_ENCRYPTION_KEY is unconfigured. Without the key the watcher cannot
// persist tokens, and a completed login would be lost on restart.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set TGTG_ENCRYPTION_KEY")

// CredentialStore persists login secrets (tokens, cookie, account identity)
// encrypted at rest. Callers hand in and receive plaintext; sealing is the
// adapter's concern. Credentials are addressed by service plus key so one
// store holds the whole token bundle of an account.
type CredentialStore interface {
	// Set stores or replaces one credential.
	Set(ctx context.Context, service, key, plaintext string) error

	// Get returns one credential, or ("", nil) when it was never stored.
	Get(ctx context.Context, service, key string) (string, error)

	// List returns every stored credential with plaintext values.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes one credential. Missing rows are not an error.
	Delete(ctx context.Context, service, key string) error
}
