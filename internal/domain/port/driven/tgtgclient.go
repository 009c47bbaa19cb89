// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// Sentinel errors returned by TGTGClient implementations.
var (
	// ErrUnauthorized indicates the stored token set was rejected and a
	// token refresh (or a fresh login) is required.
	ErrUnauthorized = errors.New("tgtg: unauthorized")

	// ErrAuthPending indicates the login mail has not been confirmed yet;
	// callers should keep polling.
	ErrAuthPending = errors.New("tgtg: authorization pending")

	// ErrBlocked indicates the bot-protection layer rejected the request.
	// The datadome cookie is stale; logging in again obtains a fresh one.
	ErrBlocked = errors.New("tgtg: blocked by bot protection, log in again to refresh the cookie")

	// ErrItemNotFound indicates the requested listing does not exist or is
	// not visible to the account.
	ErrItemNotFound = errors.New("tgtg: item not found")
)

// TGTGClient defines the driven port for interacting with the TGTG API.
// Auth methods drive the email login flow; data methods fetch listings and
// orders on behalf of the authorized account.
type TGTGClient interface {
	// Auth methods

	// StartAuthByEmail requests a login mail for the given address and
	// returns the polling ID used to collect the resulting token set.
	StartAuthByEmail(ctx context.Context, email string) (pollingID string, err error)
	// PollAuthByRequestPollingID checks whether the login mail was confirmed.
	// Returns ErrAuthPending while the user has not clicked the link yet.
	PollAuthByRequestPollingID(ctx context.Context, email, pollingID string) (*model.TokenSet, error)
	// RefreshToken exchanges the refresh token for a fresh token set.
	RefreshToken(ctx context.Context, tokens model.TokenSet) (*model.TokenSet, error)

	// Data methods

	// FetchFavorites pages through the account's favorites feed.
	FetchFavorites(ctx context.Context) ([]model.Item, error)
	// FetchItem returns a single listing by ID. Returns ErrItemNotFound for
	// unknown IDs.
	FetchItem(ctx context.Context, itemID string) (*model.Item, error)
	// FetchActiveOrders returns all active orders for the account.
	FetchActiveOrders(ctx context.Context) ([]model.Order, error)
}
