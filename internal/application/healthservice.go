package application

import (
	"context"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// Pinger reports whether the underlying storage is reachable. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthReport is the aggregated liveness view served by the health
// endpoint and the container healthcheck.
type HealthReport struct {
	Status       string          `json:"status"` // "ok" or "degraded"
	Database     string          `json:"database"`
	Auth         model.AuthState `json:"auth"`
	LastPollAt   time.Time       `json:"last_poll_at"`
	PollErrors   int             `json:"poll_errors"`
	ListingCount int             `json:"listing_count"`
}

// Healthy reports whether the watcher is fully operational.
func (r HealthReport) Healthy() bool {
	return r.Status == "ok"
}

// HealthService aggregates storage reachability, login state, and poll loop
// freshness into a single report.
type HealthService struct {
	db   Pinger
	poll *PollService
	auth *AuthService
}

// NewHealthService creates a new HealthService with the required dependencies.
func NewHealthService(db Pinger, poll *PollService, auth *AuthService) *HealthService {
	return &HealthService{
		db:   db,
		poll: poll,
		auth: auth,
	}
}

// Report assembles the current health view. The watcher is degraded when
// the database is unreachable, nobody is logged in, or the poll loop has
// not completed a cycle for more than twice the base interval.
func (s *HealthService) Report(ctx context.Context) HealthReport {
	report := HealthReport{Status: "ok", Database: "ok"}

	if err := s.db.PingContext(ctx); err != nil {
		report.Status = "degraded"
		report.Database = err.Error()
	}

	state, _ := s.auth.Status()
	report.Auth = state
	if state != model.AuthStateAuthorized {
		report.Status = "degraded"
	}

	status := s.poll.Status()
	report.LastPollAt = status.LastPollAt
	report.PollErrors = status.LastErrors
	report.ListingCount = status.ListingCount

	staleAfter := 2 * s.poll.BaseInterval()
	if !status.LastPollAt.IsZero() && time.Since(status.LastPollAt) > staleAfter {
		report.Status = "degraded"
	}

	return report
}
