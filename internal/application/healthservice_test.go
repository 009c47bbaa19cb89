package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(_ context.Context) error {
	return m.err
}

// authorizedAuth builds an AuthService already holding a usable session.
func authorizedAuth(t *testing.T) *application.AuthService {
	t.Helper()
	f := newAuthFixture(&mockTGTGClient{})
	f.seedTokens(model.TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "user-1",
	}, "jan@example.com")
	require.NoError(t, f.svc.Bootstrap(context.Background()))
	return f.svc
}

func TestHealthReport_AllHealthy(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{
		favorites: []model.Item{listing("item-1", 3)},
	})
	f.runCycle(t)
	svc := application.NewHealthService(&mockPinger{}, f.svc, authorizedAuth(t))

	report := svc.Report(context.Background())

	assert.True(t, report.Healthy())
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "ok", report.Database)
	assert.Equal(t, model.AuthStateAuthorized, report.Auth)
	assert.False(t, report.LastPollAt.IsZero())
	assert.Equal(t, 0, report.PollErrors)
	assert.Equal(t, 1, report.ListingCount)
}

func TestHealthReport_DatabaseDown(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{})
	f.runCycle(t)
	pinger := &mockPinger{err: errors.New("database is locked")}
	svc := application.NewHealthService(pinger, f.svc, authorizedAuth(t))

	report := svc.Report(context.Background())

	assert.False(t, report.Healthy())
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "database is locked", report.Database)
}

func TestHealthReport_NotLoggedIn(t *testing.T) {
	f := newPollFixture(nil)
	auth := newAuthFixture(&mockTGTGClient{})
	svc := application.NewHealthService(&mockPinger{}, f.svc, auth.svc)

	report := svc.Report(context.Background())

	assert.False(t, report.Healthy())
	assert.Equal(t, "ok", report.Database)
	assert.Equal(t, model.AuthStateNone, report.Auth)
}

func TestHealthReport_StalePollLoop(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{})
	alerts := application.NewAlertService(f.webhooks, f.mutes, f.tracks, f.settings, f.items, f.notifier)
	provider := application.NewClientProvider(f.client)
	// A tiny base interval makes the freshness cutoff reachable in a test.
	f.svc = application.NewPollService(
		provider, f.items, f.orders, f.snapshots, f.tracks, f.settings,
		alerts, 10*time.Millisecond, 14*24*time.Hour,
	)
	f.runCycle(t)
	svc := application.NewHealthService(&mockPinger{}, f.svc, authorizedAuth(t))

	time.Sleep(50 * time.Millisecond)
	report := svc.Report(context.Background())

	assert.False(t, report.Healthy())
	assert.Equal(t, "degraded", report.Status)
	assert.False(t, report.LastPollAt.IsZero())
}
