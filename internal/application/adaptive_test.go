package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

func TestClassifyListings(t *testing.T) {
	now := time.Date(2026, 8, 20, 16, 0, 0, 0, time.UTC)
	window := func(start, end time.Duration) model.PickupWindow {
		return model.PickupWindow{Start: now.Add(start), End: now.Add(end)}
	}

	tests := []struct {
		name     string
		items    []model.Item
		wantTier ActivityTier
	}{
		{
			name:     "no listings is stale",
			items:    nil,
			wantTier: TierStale,
		},
		{
			name: "sold out outside sales window is stale",
			items: []model.Item{
				{ItemsAvailable: 0, InSalesWindow: false},
			},
			wantTier: TierStale,
		},
		{
			name: "sold out inside sales window is warm",
			items: []model.Item{
				{ItemsAvailable: 0, InSalesWindow: true},
			},
			wantTier: TierWarm,
		},
		{
			name: "stock with a distant pickup window is active",
			items: []model.Item{
				{ItemsAvailable: 2, Pickup: window(5*time.Hour, 7*time.Hour)},
			},
			wantTier: TierActive,
		},
		{
			name: "stock without a pickup window is active",
			items: []model.Item{
				{ItemsAvailable: 2},
			},
			wantTier: TierActive,
		},
		{
			name: "stock with pickup opening soon is hot",
			items: []model.Item{
				{ItemsAvailable: 2, Pickup: window(10*time.Minute, 2*time.Hour)},
			},
			wantTier: TierHot,
		},
		{
			name: "stock with open pickup window is hot",
			items: []model.Item{
				{ItemsAvailable: 2, Pickup: window(-time.Hour, time.Hour)},
			},
			wantTier: TierHot,
		},
		{
			name: "stock with pickup ending soon is hot",
			items: []model.Item{
				{ItemsAvailable: 2, Pickup: window(-2*time.Hour, 20*time.Minute)},
			},
			wantTier: TierHot,
		},
		{
			name: "pickup edge without stock does not count",
			items: []model.Item{
				{ItemsAvailable: 0, InSalesWindow: true, Pickup: window(10*time.Minute, 2*time.Hour)},
			},
			wantTier: TierWarm,
		},
		{
			name: "hottest listing wins across the set",
			items: []model.Item{
				{ItemsAvailable: 0, InSalesWindow: true},
				{ItemsAvailable: 1, Pickup: window(15*time.Minute, 2*time.Hour)},
				{ItemsAvailable: 0},
			},
			wantTier: TierHot,
		},
		{
			name: "available beats restock candidates",
			items: []model.Item{
				{ItemsAvailable: 0, InSalesWindow: true},
				{ItemsAvailable: 3, Pickup: window(5*time.Hour, 7*time.Hour)},
			},
			wantTier: TierActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyListings(tt.items, now)
			assert.Equal(t, tt.wantTier, got)
		})
	}
}

func TestTierInterval(t *testing.T) {
	tests := []struct {
		name    string
		tier    ActivityTier
		base    time.Duration
		wantDur time.Duration
	}{
		{"hot", TierHot, 30 * time.Minute, 2 * time.Minute},
		{"active", TierActive, 30 * time.Minute, 5 * time.Minute},
		{"warm", TierWarm, 30 * time.Minute, 15 * time.Minute},
		{"stale uses the base interval", TierStale, 30 * time.Minute, 30 * time.Minute},
		{"a short base caps the hot interval", TierHot, time.Minute, time.Minute},
		{"a short base caps the warm interval", TierWarm, 10 * time.Minute, 10 * time.Minute},
		{"unknown tier uses the base interval", ActivityTier(99), 30 * time.Minute, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tierInterval(tt.tier, tt.base)
			assert.Equal(t, tt.wantDur, got)
		})
	}
}

func TestActivityTierString(t *testing.T) {
	tests := []struct {
		tier ActivityTier
		want string
	}{
		{TierHot, "hot"},
		{TierActive, "active"},
		{TierWarm, "warm"},
		{TierStale, "stale"},
		{ActivityTier(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tier.String())
		})
	}
}
