// Package tgtg implements the TGTGClient port against the TooGoodToGo mobile API.
package tgtg

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TGTGClient = (*Client)(nil)

const (
	defaultBaseURL = "https://apptoogoodtogo.com/api/"

	authByEmailPath = "auth/v3/authByEmail"
	authPollPath    = "auth/v3/authByRequestPollingId"
	refreshPath     = "auth/v3/token/refresh"
	itemPath        = "item/v8/"
	activeOrderPath = "order/v7/active"

	deviceType = "ANDROID"

	// datadomeCookie is the anti-bot cookie the API hands out and expects back.
	datadomeCookie = "datadome"

	favoritesPageSize = 100
	favoritesMaxPages = 10
)

// appVersions the mobile app ships as; the user agent is rotated per client
// to blend in with real devices.
var userAgents = []string{
	"TGTG/24.11.1 Dalvik/2.1.0 (Linux; U; Android 10; Pixel 3 Build/QP1A.190711.020)",
	"TGTG/24.11.1 Dalvik/2.1.0 (Linux; U; Android 9; Nexus 5X Build/PQ3A.190801.002)",
	"TGTG/24.11.1 Dalvik/2.1.0 (Linux; U; Android 11; SM-G973F Build/RP1A.200720.012)",
}

// Client implements the driven.TGTGClient port using resty.
// Token state is guarded by mu: a 401 triggers one transparent refresh and
// the refreshed set is reported through the refresh handler so it can be
// persisted.
type Client struct {
	rc        *resty.Client
	userAgent string

	mu        sync.Mutex
	tokens    model.TokenSet
	onRefresh func(model.TokenSet)
}

// NewClient creates a TGTG API client for the given token set. A zero token
// set is valid for driving the login flow only.
func NewClient(tokens model.TokenSet) *Client {
	return NewClientWithBaseURL(tokens, defaultBaseURL)
}

// NewClientWithBaseURL creates a Client against a custom base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithBaseURL(tokens model.TokenSet, baseURL string) *Client {
	ua := userAgents[rand.IntN(len(userAgents))]

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en-GB").
		SetHeader("User-Agent", ua).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	rc.AddRetryCondition(retryCondition)

	return &Client{
		rc:        rc,
		userAgent: ua,
		tokens:    tokens,
	}
}

// retryCondition retries network errors, server-side failures and rate
// limits. Auth failures are handled by the refresh path, not the transport
// retry.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	return r.StatusCode() >= http.StatusInternalServerError ||
		r.StatusCode() == http.StatusTooManyRequests
}

// SetTokenRefreshHandler registers a callback invoked whenever the client
// obtains a fresh token set, so callers can persist it.
func (c *Client) SetTokenRefreshHandler(fn func(model.TokenSet)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// SetUserAgent overrides the rotated default, for operators who pin a
// specific app version. Changing the agent mid-session invalidates the
// datadome cookie, so call this before the first request.
func (c *Client) SetUserAgent(ua string) {
	if ua == "" {
		return
	}
	c.userAgent = ua
	c.rc.SetHeader("User-Agent", ua)
}

// Tokens returns a copy of the current token set.
func (c *Client) Tokens() model.TokenSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// FetchFavorites pages through the account's favorites feed. Pagination stops
// at the first short page or after favoritesMaxPages pages.
func (c *Client) FetchFavorites(ctx context.Context) ([]model.Item, error) {
	tokens := c.Tokens()
	if !tokens.Usable() {
		return nil, driven.ErrUnauthorized
	}

	var all []model.Item

	for page := 1; page <= favoritesMaxPages; page++ {
		body := apiFavoritesRequest{
			UserID:        tokens.UserID,
			Origin:        apiOrigin{},
			Radius:        21,
			PageSize:      favoritesPageSize,
			Page:          page,
			Discover:      false,
			FavoritesOnly: true,
			WithStockOnly: false,
		}

		var result apiFavoritesResponse
		if err := c.post(ctx, itemPath, body, &result); err != nil {
			return nil, fmt.Errorf("fetch favorites page %d: %w", page, err)
		}

		for _, listing := range result.Items {
			all = append(all, mapListing(listing, model.ItemOriginFavorites))
		}

		if len(result.Items) < favoritesPageSize {
			break
		}
	}

	if all == nil {
		all = []model.Item{}
	}

	return all, nil
}

// FetchItem returns a single listing by ID.
func (c *Client) FetchItem(ctx context.Context, itemID string) (*model.Item, error) {
	tokens := c.Tokens()
	if !tokens.Usable() {
		return nil, driven.ErrUnauthorized
	}

	body := apiItemRequest{UserID: tokens.UserID}

	var result apiListing
	if err := c.post(ctx, itemPath+itemID, body, &result); err != nil {
		return nil, fmt.Errorf("fetch item %s: %w", itemID, err)
	}

	item := mapListing(result, model.ItemOriginManual)
	return &item, nil
}

// FetchActiveOrders returns all active orders for the account.
func (c *Client) FetchActiveOrders(ctx context.Context) ([]model.Order, error) {
	tokens := c.Tokens()
	if !tokens.Usable() {
		return nil, driven.ErrUnauthorized
	}

	var result apiOrdersResponse
	if err := c.post(ctx, activeOrderPath, apiOrdersRequest{UserID: tokens.UserID}, &result); err != nil {
		return nil, fmt.Errorf("fetch active orders: %w", err)
	}

	orders := make([]model.Order, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, mapOrder(o))
	}

	return orders, nil
}

// post issues an authorized POST and decodes the response into result.
// A 401 triggers one token refresh followed by a single retry.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.doPost(ctx, path, body, result)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		if refreshErr := c.refreshAndStore(ctx); refreshErr != nil {
			return refreshErr
		}
		resp, err = c.doPost(ctx, path, body, result)
		if err != nil {
			return err
		}
	}

	return c.checkStatus(resp, path)
}

func (c *Client) doPost(ctx context.Context, path string, body, result any) (*resty.Response, error) {
	req := c.rc.R().
		SetContext(ctx).
		SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	c.mu.Lock()
	if c.tokens.AccessToken != "" {
		req.SetHeader("Authorization", "Bearer "+c.tokens.AccessToken)
	}
	if c.tokens.Cookie != "" {
		req.SetHeader("Cookie", datadomeCookie+"="+c.tokens.Cookie)
	}
	c.mu.Unlock()

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}

	c.captureCookie(resp)
	logResponse(path, resp)

	return resp, nil
}

// checkStatus maps HTTP error codes onto port sentinels.
func (c *Client) checkStatus(resp *resty.Response, path string) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return driven.ErrUnauthorized
	case resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("post %s: %w", path, driven.ErrBlocked)
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("post %s: %w", path, driven.ErrItemNotFound)
	default:
		return fmt.Errorf("post %s: unexpected status %d: %s", path, resp.StatusCode(), truncateBody(resp))
	}
}

// refreshAndStore refreshes the token set in place and notifies the handler.
// RefreshToken already stores the fresh set; this adds the persistence callback.
func (c *Client) refreshAndStore(ctx context.Context) error {
	fresh, err := c.RefreshToken(ctx, c.Tokens())
	if err != nil {
		return err
	}

	c.mu.Lock()
	handler := c.onRefresh
	c.mu.Unlock()

	if handler != nil {
		handler(*fresh)
	}

	return nil
}

// captureCookie stores the datadome cookie from the response, if present.
func (c *Client) captureCookie(resp *resty.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == datadomeCookie && cookie.Value != "" {
			c.mu.Lock()
			c.tokens.Cookie = cookie.Value
			c.mu.Unlock()
			return
		}
	}
}

// logResponse logs the API response status after each call.
func logResponse(path string, resp *resty.Response) {
	slog.Debug("tgtg api response",
		"endpoint", path,
		"status", resp.StatusCode(),
		"duration_ms", resp.Time().Milliseconds(),
	)
}

func truncateBody(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return body
}

func mapListing(listing apiListing, origin model.ItemOrigin) model.Item {
	now := time.Now().UTC()

	var lastAvailable time.Time
	if listing.ItemsAvailable > 0 {
		lastAvailable = now
	}

	return model.Item{
		ItemID:         listing.Item.ItemID,
		DisplayName:    listing.DisplayName,
		StoreName:      listing.Store.StoreName,
		StoreBranch:    listing.Store.Branch,
		Description:    listing.Item.Description,
		ItemsAvailable: listing.ItemsAvailable,
		Price:          mapAmount(listing.Item.Price),
		OriginalValue:  mapAmount(listing.Item.Value),
		Pickup: model.PickupWindow{
			Start: parseAPITime(listing.PickupInterval.Start),
			End:   parseAPITime(listing.PickupInterval.End),
		},
		SoldOutAt:       parseAPITime(listing.SoldOutAt),
		PurchaseEnd:     parseAPITime(listing.PurchaseEnd),
		LogoURL:         listing.Item.LogoPicture.CurrentURL,
		CoverURL:        listing.Item.CoverPicture.CurrentURL,
		Rating:          listing.Item.Rating.AverageOverallRating,
		RatingCount:     listing.Item.Rating.RatingCount,
		Favorite:        listing.Favorite,
		InSalesWindow:   listing.InSalesWindow,
		ItemType:        listing.ItemType,
		Origin:          origin,
		LastSeenAt:      now,
		LastAvailableAt: lastAvailable,
		UpdatedAt:       now,
	}
}

func mapAmount(a apiAmount) model.Amount {
	return model.Amount{
		MinorUnits: a.MinorUnits,
		Decimals:   a.Decimals,
		Code:       a.Code,
	}
}

func mapOrder(o apiOrder) model.Order {
	return model.Order{
		OrderID:  o.OrderID,
		ItemID:   o.ItemID,
		State:    o.State,
		Quantity: o.Quantity,
		Pickup: model.PickupWindow{
			Start: parseAPITime(o.PickupInterval.Start),
			End:   parseAPITime(o.PickupInterval.End),
		},
		PickupWindowChanged: o.PickupWindowChanged,
		CancelUntil:         parseAPITime(o.CancelUntil),
		StoreName:           o.StoreName,
		ItemName:            o.ItemName,
		PlacedAt:            parseAPITime(o.OrderTime),
	}
}

// parseAPITime parses the API's RFC3339 timestamps, tolerating the empty
// string and sub-second precision. Unparseable values map to the zero time.
func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, format := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}

	slog.Debug("tgtg api: unparseable timestamp", "value", s)
	return time.Time{}
}
