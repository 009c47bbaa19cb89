package tgtg

// Wire types for the TGTG mobile API. Field names follow the JSON payloads
// produced by the app backend; only the fields the watcher reads are mapped.

type apiAmount struct {
	Code       string `json:"code"`
	MinorUnits int64  `json:"minor_units"`
	Decimals   int    `json:"decimals"`
}

type apiPicture struct {
	CurrentURL string `json:"current_url"`
}

type apiRating struct {
	AverageOverallRating float64 `json:"average_overall_rating"`
	RatingCount          int     `json:"rating_count"`
}

type apiInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type apiItem struct {
	ItemID        string     `json:"item_id"`
	Price         apiAmount  `json:"item_price"`
	Value         apiAmount  `json:"item_value"`
	LogoPicture   apiPicture `json:"logo_picture"`
	CoverPicture  apiPicture `json:"cover_picture"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Rating        apiRating  `json:"average_overall_rating"`
	FavoriteCount int        `json:"favorite_count"`
}

type apiStore struct {
	StoreID   string `json:"store_id"`
	StoreName string `json:"store_name"`
	Branch    string `json:"branch"`
}

// apiListing is the envelope the favorites feed and the single-item endpoint
// both return: the inner item plus store, stock, and pickup information.
type apiListing struct {
	Item           apiItem     `json:"item"`
	Store          apiStore    `json:"store"`
	DisplayName    string      `json:"display_name"`
	PickupInterval apiInterval `json:"pickup_interval"`
	ItemsAvailable int         `json:"items_available"`
	SoldOutAt      string      `json:"sold_out_at"`
	PurchaseEnd    string      `json:"purchase_end"`
	Favorite       bool        `json:"favorite"`
	InSalesWindow  bool        `json:"in_sales_window"`
	ItemType       string      `json:"item_type"`
}

type apiFavoritesRequest struct {
	UserID        string    `json:"user_id"`
	Origin        apiOrigin `json:"origin"`
	Radius        int       `json:"radius"`
	PageSize      int       `json:"page_size"`
	Page          int       `json:"page"`
	Discover      bool      `json:"discover"`
	FavoritesOnly bool      `json:"favorites_only"`
	WithStockOnly bool      `json:"with_stock_only"`
}

type apiOrigin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type apiFavoritesResponse struct {
	Items []apiListing `json:"items"`
}

type apiItemRequest struct {
	UserID string    `json:"user_id"`
	Origin apiOrigin `json:"origin"`
}

type apiOrder struct {
	OrderID             string      `json:"order_id"`
	ItemID              string      `json:"item_id"`
	State               string      `json:"state"`
	Quantity            int         `json:"quantity"`
	PickupInterval      apiInterval `json:"pickup_interval"`
	PickupWindowChanged bool        `json:"pickup_window_changed"`
	CancelUntil         string      `json:"cancel_until"`
	StoreName           string      `json:"store_name"`
	ItemName            string      `json:"item_name"`
	OrderTime           string      `json:"order_time"`
}

type apiOrdersRequest struct {
	UserID string `json:"user_id"`
}

type apiOrdersResponse struct {
	Orders  []apiOrder `json:"orders"`
	HasMore bool       `json:"has_more"`
}

type apiAuthByEmailRequest struct {
	DeviceType string `json:"device_type"`
	Email      string `json:"email"`
}

type apiAuthByEmailResponse struct {
	State     string `json:"state"`
	PollingID string `json:"polling_id"`
}

type apiAuthPollRequest struct {
	DeviceType       string `json:"device_type"`
	Email            string `json:"email"`
	RequestPollingID string `json:"request_polling_id"`
}

type apiAuthPollResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	StartupData  struct {
		User struct {
			UserID string `json:"user_id"`
		} `json:"user"`
	} `json:"startup_data"`
}

type apiRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type apiRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
