package tgtg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// StartAuthByEmail begins the email login flow. The API mails the user a
// confirmation link; the returned polling ID is used to poll for the outcome.
func (c *Client) StartAuthByEmail(ctx context.Context, email string) (string, error) {
	body := apiAuthByEmailRequest{
		DeviceType: deviceType,
		Email:      email,
	}

	var result apiAuthByEmailResponse
	resp, err := c.doPost(ctx, authByEmailPath, body, &result)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("start auth: unexpected status %d: %s", resp.StatusCode(), truncateBody(resp))
	}

	// The API answers TERMS when the address has no account yet; signup
	// only works through the mobile app.
	if result.State == "TERMS" {
		return "", fmt.Errorf("start auth: no account for %s, sign up in the TooGoodToGo app first", email)
	}
	if result.PollingID == "" {
		return "", fmt.Errorf("start auth: response carried no polling id (state %q)", result.State)
	}

	return result.PollingID, nil
}

// PollAuthByRequestPollingID checks whether the user has clicked the mailed
// confirmation link. It returns ErrAuthPending until they have, and a full
// token set once login completes.
func (c *Client) PollAuthByRequestPollingID(ctx context.Context, email, pollingID string) (*model.TokenSet, error) {
	body := apiAuthPollRequest{
		DeviceType:       deviceType,
		Email:            email,
		RequestPollingID: pollingID,
	}

	// Decoded by hand: the pending answer is a 202 with an empty body,
	// which must not be treated as a decode failure.
	resp, err := c.doPost(ctx, authPollPath, body, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusAccepted:
		return nil, driven.ErrAuthPending
	case http.StatusOK:
		// Carry on below.
	default:
		return nil, fmt.Errorf("poll auth: unexpected status %d: %s", resp.StatusCode(), truncateBody(resp))
	}

	var result apiAuthPollResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("poll auth: decode response: %w", err)
	}

	if result.AccessToken == "" || result.RefreshToken == "" {
		return nil, fmt.Errorf("poll auth: response missing tokens")
	}

	c.mu.Lock()
	tokens := model.TokenSet{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		UserID:       result.StartupData.User.UserID,
		Cookie:       c.tokens.Cookie,
	}
	c.tokens = tokens
	handler := c.onRefresh
	c.mu.Unlock()

	if handler != nil {
		handler(tokens)
	}

	return &tokens, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. The user
// ID and datadome cookie carry over from the supplied set.
func (c *Client) RefreshToken(ctx context.Context, tokens model.TokenSet) (*model.TokenSet, error) {
	if tokens.RefreshToken == "" {
		return nil, driven.ErrUnauthorized
	}

	body := apiRefreshRequest{RefreshToken: tokens.RefreshToken}

	var result apiRefreshResponse
	resp, err := c.doPost(ctx, refreshPath, body, &result)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.IsSuccess():
		// Carry on below.
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, fmt.Errorf("refresh token: %w", driven.ErrUnauthorized)
	default:
		return nil, fmt.Errorf("refresh token: unexpected status %d: %s", resp.StatusCode(), truncateBody(resp))
	}

	if result.AccessToken == "" {
		return nil, fmt.Errorf("refresh token: response missing access token")
	}

	refreshToken := result.RefreshToken
	if refreshToken == "" {
		refreshToken = tokens.RefreshToken
	}

	c.mu.Lock()
	cookie := c.tokens.Cookie
	if cookie == "" {
		cookie = tokens.Cookie
	}
	fresh := model.TokenSet{
		AccessToken:  result.AccessToken,
		RefreshToken: refreshToken,
		UserID:       tokens.UserID,
		Cookie:       cookie,
	}
	c.tokens = fresh
	c.mu.Unlock()

	return &fresh, nil
}
