package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	api "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/http"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
)

// apiClient is a thin wrapper over the daemon's REST API. Response types are
// the handler package's own, so the CLI cannot drift from the wire format.
type apiClient struct {
	rc *resty.Client
}

func newAPIClient(flags *rootFlags) *apiClient {
	rc := resty.New().
		SetBaseURL("http://" + flags.addr).
		SetTimeout(flags.timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &apiClient{rc: rc}
}

func (c *apiClient) health(ctx context.Context) (application.HealthReport, error) {
	var report application.HealthReport
	resp, err := c.rc.R().SetContext(ctx).SetResult(&report).Get("/api/v1/health")
	if err != nil {
		return application.HealthReport{}, connectError(err)
	}
	if !resp.IsSuccess() {
		return application.HealthReport{}, apiError(resp)
	}
	return report, nil
}

func (c *apiClient) authStatus(ctx context.Context) (api.AuthStatusResponse, error) {
	var status api.AuthStatusResponse
	resp, err := c.rc.R().SetContext(ctx).SetResult(&status).Get("/api/v1/auth/status")
	if err != nil {
		return api.AuthStatusResponse{}, connectError(err)
	}
	if !resp.IsSuccess() {
		return api.AuthStatusResponse{}, apiError(resp)
	}
	return status, nil
}

func (c *apiClient) login(ctx context.Context, email string) error {
	resp, err := c.rc.R().SetContext(ctx).
		SetBody(api.LoginRequest{Email: email}).
		Post("/api/v1/auth/login")
	if err != nil {
		return connectError(err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) logout(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Post("/api/v1/auth/logout")
	if err != nil {
		return connectError(err)
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) items(ctx context.Context) ([]api.SensorResponse, error) {
	var items []api.SensorResponse
	resp, err := c.rc.R().SetContext(ctx).SetResult(&items).Get("/api/v1/items")
	if err != nil {
		return nil, connectError(err)
	}
	if !resp.IsSuccess() {
		return nil, apiError(resp)
	}
	return items, nil
}

func (c *apiClient) itemsRaw(ctx context.Context) ([]byte, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("/api/v1/items")
	if err != nil {
		return nil, connectError(err)
	}
	if !resp.IsSuccess() {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}

func (c *apiClient) track(ctx context.Context, req api.TrackRequest) (api.TrackResponse, error) {
	var track api.TrackResponse
	resp, err := c.rc.R().SetContext(ctx).SetBody(req).SetResult(&track).Post("/api/v1/items")
	if err != nil {
		return api.TrackResponse{}, connectError(err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return api.TrackResponse{}, apiError(resp)
	}
	return track, nil
}

func (c *apiClient) untrack(ctx context.Context, itemID string) error {
	resp, err := c.rc.R().SetContext(ctx).Delete("/api/v1/items/" + itemID)
	if err != nil {
		return connectError(err)
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) mute(ctx context.Context, itemID string) error {
	resp, err := c.rc.R().SetContext(ctx).Post("/api/v1/items/" + itemID + "/mute")
	if err != nil {
		return connectError(err)
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) unmute(ctx context.Context, itemID string) error {
	resp, err := c.rc.R().SetContext(ctx).Delete("/api/v1/items/" + itemID + "/mute")
	if err != nil {
		return connectError(err)
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	return nil
}

// refresh triggers a poll cycle; an empty item ID refreshes everything. The
// request timeout is stretched because a full cycle waits on the upstream API.
func (c *apiClient) refresh(ctx context.Context, itemID string) error {
	resp, err := c.rc.R().SetContext(ctx).
		SetBody(api.RefreshRequest{ItemID: itemID}).
		Post("/api/v1/refresh")
	if err != nil {
		return connectError(err)
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	return nil
}

// apiError extracts the daemon's error message from a failed response.
func apiError(resp *resty.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s (status %d)", body.Error, resp.StatusCode())
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode())
}

func connectError(err error) error {
	return fmt.Errorf("cannot reach tgtgd (is it running?): %w", err)
}

// waitTimeout is how long login waits for the mail link to be clicked,
// matching the daemon's own polling window.
const waitTimeout = 2*time.Minute + 10*time.Second
