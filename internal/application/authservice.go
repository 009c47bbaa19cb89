package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Email login polling cadence. The mobile app uses the same values: check
// every five seconds, give up after two minutes.
const (
	authPollInterval = 5 * time.Second
	authPollAttempts = 24
)

// persistTimeout bounds background credential writes triggered by token
// refreshes inside the API client.
const persistTimeout = 10 * time.Second

// ClientFactory builds a TGTG API client for a token set. onRefresh is
// invoked whenever the client transparently rotates its tokens, so the
// fresh set can be persisted.
type ClientFactory func(tokens model.TokenSet, onRefresh func(model.TokenSet)) driven.TGTGClient

// AuthService orchestrates the TGTG email login flow and keeps the stored
// credentials in sync with the active API client.
type AuthService struct {
	provider *ClientProvider
	creds    driven.CredentialStore
	factory  ClientFactory
	logger   *slog.Logger

	mu              sync.Mutex
	state           model.AuthState
	email           string
	refreshesOK     uint64
	refreshesFailed uint64
}

// NewAuthService creates a new AuthService with the required dependencies.
func NewAuthService(provider *ClientProvider, creds driven.CredentialStore, factory ClientFactory) *AuthService {
	return &AuthService{
		provider: provider,
		creds:    creds,
		factory:  factory,
		logger:   slog.Default(),
		state:    model.AuthStateNone,
	}
}

// Bootstrap loads stored credentials and activates an API client when a
// usable token set exists. Called once at startup, before the poll loop.
// Without an encryption key the store is unusable; the watcher still runs,
// logins just do not survive a restart.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	tokens, err := s.loadTokens(ctx)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Warn("credential storage disabled, logins will not survive restarts", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load stored credentials: %w", err)
	}
	if !tokens.Usable() {
		s.logger.Info("no stored credentials, login required")
		return nil
	}

	email, err := s.creds.Get(ctx, model.CredentialServiceTGTG, model.CredentialKeyEmail)
	if err != nil {
		return fmt.Errorf("load stored email: %w", err)
	}

	s.activate(tokens, email)
	s.logger.Info("stored credentials loaded", "user_id", tokens.UserID)
	return nil
}

// Login runs the full email flow: request the login mail, poll until the
// link is clicked, persist the token set, and activate a client for it.
// Blocks for up to two minutes; a context cancellation aborts the wait.
func (s *AuthService) Login(ctx context.Context, email string) error {
	client := s.provider.Get()
	if client == nil {
		client = s.factory(model.TokenSet{}, s.persistRefreshedTokens)
	}

	pollingID, err := client.StartAuthByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("start email login: %w", err)
	}

	s.setState(model.AuthStatePending, email)
	s.logger.Info("login mail sent, waiting for confirmation", "email", email)

	var tokens *model.TokenSet
	backoff := retry.WithMaxRetries(authPollAttempts, retry.NewConstant(authPollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := client.PollAuthByRequestPollingID(ctx, email, pollingID)
		if errors.Is(err, driven.ErrAuthPending) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		tokens = t
		return nil
	})
	if err != nil {
		s.setState(model.AuthStateNone, "")
		if errors.Is(err, driven.ErrAuthPending) {
			return fmt.Errorf("login mail not confirmed in time: %w", err)
		}
		return fmt.Errorf("poll email login: %w", err)
	}

	// A missing encryption key only costs persistence; the session itself
	// stays valid, so activate the client anyway.
	switch err := s.storeTokens(ctx, *tokens); {
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		s.logger.Warn("login not persisted, it will not survive a restart", "error", err)
	case err != nil:
		s.setState(model.AuthStateNone, "")
		return fmt.Errorf("store credentials: %w", err)
	default:
		if err := s.creds.Set(ctx, model.CredentialServiceTGTG, model.CredentialKeyEmail, email); err != nil {
			s.logger.Warn("failed to store login email", "error", err)
		}
	}

	s.activate(*tokens, email)
	s.logger.Info("login complete", "user_id", tokens.UserID)
	return nil
}

// Logout removes the stored credentials and deactivates the API client.
func (s *AuthService) Logout(ctx context.Context) error {
	keys := []string{
		model.CredentialKeyAccessToken,
		model.CredentialKeyRefreshToken,
		model.CredentialKeyUserID,
		model.CredentialKeyCookie,
		model.CredentialKeyEmail,
	}
	for _, key := range keys {
		if err := s.creds.Delete(ctx, model.CredentialServiceTGTG, key); err != nil {
			return fmt.Errorf("delete credential %s: %w", key, err)
		}
	}

	s.provider.Replace(nil)
	s.setState(model.AuthStateNone, "")
	s.logger.Info("logged out, credentials removed")
	return nil
}

// Status returns the current login state and, while pending or authorized,
// the email it belongs to.
func (s *AuthService) Status() (model.AuthState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.email
}

// RefreshCounts returns how many background token refreshes were persisted
// and how many failed to persist since startup.
func (s *AuthService) RefreshCounts() (ok, failed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshesOK, s.refreshesFailed
}

// activate builds a fresh API client for the token set and swaps it into
// the provider.
func (s *AuthService) activate(tokens model.TokenSet, email string) {
	client := s.factory(tokens, s.persistRefreshedTokens)
	s.provider.Replace(client)
	s.setState(model.AuthStateAuthorized, email)
}

// persistRefreshedTokens stores a token set rotated by the API client. It
// runs on the client's goroutine with its own deadline because the request
// that triggered the refresh has already completed.
func (s *AuthService) persistRefreshedTokens(tokens model.TokenSet) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.storeTokens(ctx, tokens); err != nil {
		s.mu.Lock()
		s.refreshesFailed++
		s.mu.Unlock()
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			s.logger.Debug("refreshed tokens not persisted, credential storage disabled")
		} else {
			s.logger.Error("failed to persist refreshed tokens", "error", err)
		}
		return
	}
	s.mu.Lock()
	s.refreshesOK++
	s.mu.Unlock()
	s.logger.Debug("refreshed tokens persisted", "user_id", tokens.UserID)
}

func (s *AuthService) setState(state model.AuthState, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.email = email
}

// loadTokens assembles a token set from the individual stored credentials.
func (s *AuthService) loadTokens(ctx context.Context) (model.TokenSet, error) {
	var tokens model.TokenSet
	fields := []struct {
		key  string
		dest *string
	}{
		{model.CredentialKeyAccessToken, &tokens.AccessToken},
		{model.CredentialKeyRefreshToken, &tokens.RefreshToken},
		{model.CredentialKeyUserID, &tokens.UserID},
		{model.CredentialKeyCookie, &tokens.Cookie},
	}
	for _, f := range fields {
		value, err := s.creds.Get(ctx, model.CredentialServiceTGTG, f.key)
		if err != nil {
			return model.TokenSet{}, err
		}
		*f.dest = value
	}
	return tokens, nil
}

// storeTokens persists each credential of the token set.
func (s *AuthService) storeTokens(ctx context.Context, tokens model.TokenSet) error {
	fields := []struct {
		key   string
		value string
	}{
		{model.CredentialKeyAccessToken, tokens.AccessToken},
		{model.CredentialKeyRefreshToken, tokens.RefreshToken},
		{model.CredentialKeyUserID, tokens.UserID},
		{model.CredentialKeyCookie, tokens.Cookie},
	}
	for _, f := range fields {
		if err := s.creds.Set(ctx, model.CredentialServiceTGTG, f.key, f.value); err != nil {
			return fmt.Errorf("store credential %s: %w", f.key, err)
		}
	}
	return nil
}
