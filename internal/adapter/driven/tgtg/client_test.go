package tgtg_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tgtgAdapter "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driven/tgtg"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, tokens model.TokenSet, handler http.Handler) (*tgtgAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := tgtgAdapter.NewClientWithBaseURL(tokens, server.URL)

	return client, server
}

func testTokens() model.TokenSet {
	return model.TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "user-1",
	}
}

// listingJSON builds an API listing payload with sensible defaults.
func listingJSON(itemID, displayName string, available int) map[string]any {
	return map[string]any{
		"item": map[string]any{
			"item_id":     itemID,
			"item_price":  map[string]any{"code": "EUR", "minor_units": int64(499), "decimals": 2},
			"item_value":  map[string]any{"code": "EUR", "minor_units": int64(1500), "decimals": 2},
			"logo_picture": map[string]any{
				"current_url": "https://images.tgtg.ninja/store/logo.png",
			},
			"cover_picture": map[string]any{
				"current_url": "https://images.tgtg.ninja/store/cover.png",
			},
			"name":        "Magic Bag",
			"description": "Surprise bag of baked goods",
			"average_overall_rating": map[string]any{
				"average_overall_rating": 4.3,
				"rating_count":           128,
			},
			"favorite_count": 7,
		},
		"store": map[string]any{
			"store_id":   "store-1",
			"store_name": "Beranek's Bakery",
			"branch":     "Downtown",
		},
		"display_name":    displayName,
		"pickup_interval": map[string]any{"start": "2026-08-20T16:00:00Z", "end": "2026-08-20T17:30:00Z"},
		"items_available": available,
		"sold_out_at":     "",
		"purchase_end":    "2026-08-20T17:00:00Z",
		"favorite":        true,
		"in_sales_window": true,
		"item_type":       "MAGIC_BAG",
	}
}

func TestFetchFavorites_SinglePage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/v8/", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req["user_id"])
		assert.Equal(t, true, req["favorites_only"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				listingJSON("item-1", "Beranek's Bakery (Downtown)", 3),
			},
		})
	})

	client, _ := newTestClient(t, testTokens(), handler)
	result, err := client.FetchFavorites(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)

	item := result[0]
	assert.Equal(t, "item-1", item.ItemID)
	assert.Equal(t, "Beranek's Bakery (Downtown)", item.DisplayName)
	assert.Equal(t, "Beranek's Bakery", item.StoreName)
	assert.Equal(t, "Downtown", item.StoreBranch)
	assert.Equal(t, "Surprise bag of baked goods", item.Description)
	assert.Equal(t, 3, item.ItemsAvailable)
	assert.Equal(t, model.Amount{MinorUnits: 499, Decimals: 2, Code: "EUR"}, item.Price)
	assert.Equal(t, model.Amount{MinorUnits: 1500, Decimals: 2, Code: "EUR"}, item.OriginalValue)
	assert.Equal(t, time.Date(2026, 8, 20, 16, 0, 0, 0, time.UTC), item.Pickup.Start)
	assert.Equal(t, time.Date(2026, 8, 20, 17, 30, 0, 0, time.UTC), item.Pickup.End)
	assert.True(t, item.SoldOutAt.IsZero(), "sold_out_at was empty")
	assert.Equal(t, time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC), item.PurchaseEnd)
	assert.Equal(t, "https://images.tgtg.ninja/store/logo.png", item.LogoURL)
	assert.Equal(t, "https://images.tgtg.ninja/store/cover.png", item.CoverURL)
	assert.InDelta(t, 4.3, item.Rating, 0.001)
	assert.Equal(t, 128, item.RatingCount)
	assert.True(t, item.Favorite)
	assert.True(t, item.InSalesWindow)
	assert.Equal(t, "MAGIC_BAG", item.ItemType)
	assert.Equal(t, model.ItemOriginFavorites, item.Origin)
	assert.False(t, item.LastSeenAt.IsZero())
	assert.Equal(t, item.LastSeenAt, item.LastAvailableAt, "a listing with stock stamps LastAvailableAt")
}

func TestFetchFavorites_Pagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page     int `json:"page"`
			PageSize int `json:"page_size"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, 100, req.PageSize)

		w.Header().Set("Content-Type", "application/json")

		if req.Page == 1 {
			// Full page: the client must ask for the next one.
			items := make([]map[string]any, 0, req.PageSize)
			for i := 0; i < req.PageSize; i++ {
				items = append(items, listingJSON(fmt.Sprintf("item-%d", i), "Store", 1))
			}
			json.NewEncoder(w).Encode(map[string]any{"items": items})
			return
		}

		// Short page: pagination stops here.
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{listingJSON("item-last", "Store", 1)},
		})
	})

	client, _ := newTestClient(t, testTokens(), handler)
	result, err := client.FetchFavorites(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 101)
	assert.Equal(t, "item-0", result[0].ItemID)
	assert.Equal(t, "item-last", result[100].ItemID)
}

func TestFetchFavorites_Empty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	})

	client, _ := newTestClient(t, testTokens(), handler)
	result, err := client.FetchFavorites(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, result, "should return empty slice, not nil")
	assert.Empty(t, result)
}

func TestFetchFavorites_NoTokens(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called without a usable token set")
	})

	client, _ := newTestClient(t, model.TokenSet{}, handler)
	_, err := client.FetchFavorites(context.Background())

	require.ErrorIs(t, err, driven.ErrUnauthorized)
}

func TestFetchFavorites_BlockedOn403(t *testing.T) {
	var calls atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	client, _ := newTestClient(t, testTokens(), handler)
	_, err := client.FetchFavorites(context.Background())

	require.ErrorIs(t, err, driven.ErrBlocked)
	assert.Equal(t, int32(1), calls.Load(), "a datadome block must not trigger the refresh path")
}

func TestFetchFavorites_RefreshOn401(t *testing.T) {
	var itemCalls atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/auth/v3/token/refresh":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
			})

		case "/item/v8/":
			if itemCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			// Second attempt must carry the refreshed bearer.
			assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{listingJSON("item-1", "Store", 2)},
			})

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client, _ := newTestClient(t, testTokens(), handler)

	var refreshed model.TokenSet
	client.SetTokenRefreshHandler(func(tokens model.TokenSet) {
		refreshed = tokens
	})

	result, err := client.FetchFavorites(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int32(2), itemCalls.Load(), "item endpoint should be hit twice")
	assert.Equal(t, "access-2", refreshed.AccessToken, "refresh handler should see new tokens")
	assert.Equal(t, "refresh-2", refreshed.RefreshToken)
	assert.Equal(t, "user-1", refreshed.UserID, "user id carries over on refresh")
}

func TestFetchItem(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/v8/item-42", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listingJSON("item-42", "Corner Deli", 0))
	})

	client, _ := newTestClient(t, testTokens(), handler)
	result, err := client.FetchItem(context.Background(), "item-42")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "item-42", result.ItemID)
	assert.Equal(t, "Corner Deli", result.DisplayName)
	assert.Equal(t, 0, result.ItemsAvailable)
	assert.True(t, result.LastAvailableAt.IsZero(), "no stock observed, no availability stamp")
	assert.Equal(t, model.ItemOriginManual, result.Origin, "single-item fetches are manual adds")
}

func TestFetchItem_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, testTokens(), handler)
	_, err := client.FetchItem(context.Background(), "missing")

	require.ErrorIs(t, err, driven.ErrItemNotFound)
}

func TestFetchActiveOrders(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/v7/active", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"has_more": false,
			"orders": []map[string]any{
				{
					"order_id":              "order-1",
					"item_id":               "item-1",
					"state":                 "CONFIRMED",
					"quantity":              2,
					"pickup_interval":       map[string]any{"start": "2026-08-20T16:00:00Z", "end": "2026-08-20T17:30:00Z"},
					"pickup_window_changed": true,
					"cancel_until":          "2026-08-20T15:00:00Z",
					"store_name":            "Beranek's Bakery",
					"item_name":             "Magic Bag",
					"order_time":            "2026-08-19T09:30:00Z",
				},
				{
					"order_id":        "order-2",
					"item_id":         "item-2",
					"state":           "CONFIRMED",
					"quantity":        1,
					"pickup_interval": map[string]any{"start": "2026-08-21T11:00:00Z", "end": "2026-08-21T12:00:00Z"},
					"store_name":      "Corner Deli",
					"item_name":       "Surprise Box",
					"order_time":      "2026-08-19T10:00:00Z",
				},
			},
		})
	})

	client, _ := newTestClient(t, testTokens(), handler)
	result, err := client.FetchActiveOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "order-1", result[0].OrderID)
	assert.Equal(t, "item-1", result[0].ItemID)
	assert.Equal(t, "CONFIRMED", result[0].State)
	assert.Equal(t, 2, result[0].Quantity)
	assert.True(t, result[0].PickupWindowChanged)
	assert.Equal(t, time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC), result[0].CancelUntil)
	assert.Equal(t, "Beranek's Bakery", result[0].StoreName)
	assert.Equal(t, time.Date(2026, 8, 19, 9, 30, 0, 0, time.UTC), result[0].PlacedAt)

	assert.Equal(t, "order-2", result[1].OrderID)
	assert.False(t, result[1].PickupWindowChanged)
	assert.True(t, result[1].CancelUntil.IsZero(), "cancel_until omitted maps to zero time")
}

func TestDatadomeCookieCapture(t *testing.T) {
	var calls atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if calls.Add(1) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "datadome", Value: "dd-cookie-value"})
		} else {
			// Later requests must replay the captured cookie.
			assert.Contains(t, r.Header.Get("Cookie"), "datadome=dd-cookie-value")
		}

		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	})

	client, _ := newTestClient(t, testTokens(), handler)

	_, err := client.FetchFavorites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dd-cookie-value", client.Tokens().Cookie)

	_, err = client.FetchFavorites(context.Background())
	require.NoError(t, err)
}
