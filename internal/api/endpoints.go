package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/towerops/fieldtrack/internal/models"
)

// AuthResponse is the backend's response to login and refresh calls.
type AuthResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"` // seconds
	User         models.User `json:"user"`
}

// validate rejects response shapes the session manager cannot act on.
func (a *AuthResponse) validate() error {
	if a.Token == "" {
		return &Error{Kind: KindServer, Message: "auth response missing token"}
	}
	if a.RefreshToken == "" {
		return &Error{Kind: KindServer, Message: "auth response missing refresh token"}
	}
	if a.User.ID == "" || a.User.Email == "" {
		return &Error{Kind: KindServer, Message: "auth response missing user"}
	}
	return nil
}

// VerifyAuth exchanges credentials for a session.
func (c *Client) VerifyAuth(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/verify", nil, body, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshAuth exchanges a refresh token for a new session.
func (c *Client) RefreshAuth(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the backend that the session ended.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// ResetPassword requests a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", nil, body, nil)
}

// ListParams narrows list reads.
type ListParams struct {
	Page   int
	Region string
	Status string
}

// Query renders the params as a URL query.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Region != "" {
		q.Set("region", p.Region)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}

// ListSites fetches sites matching params.
func (c *Client) ListSites(ctx context.Context, params ListParams) ([]models.Site, error) {
	var sites []models.Site
	if err := c.do(ctx, http.MethodGet, "/sites", params.Query(), nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// GetSite fetches a single site by id.
func (c *Client) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	if err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(id), nil, nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateSite creates a site and returns the canonical entity.
func (c *Client) CreateSite(ctx context.Context, site *models.Site) (*models.Site, error) {
	var created models.Site
	if err := c.do(ctx, http.MethodPost, "/sites", nil, site, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, &Error{Kind: KindServer, Message: "site response missing id"}
	}
	return &created, nil
}

// UpdateSite updates a site and returns the canonical entity.
func (c *Client) UpdateSite(ctx context.Context, site *models.Site) (*models.Site, error) {
	if site.ID == "" {
		return nil, fmt.Errorf("site id is required")
	}
	var updated models.Site
	if err := c.do(ctx, http.MethodPut, "/sites/"+url.PathEscape(site.ID), nil, site, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListFuelLogs fetches fuel logs for a site.
func (c *Client) ListFuelLogs(ctx context.Context, siteID string) ([]models.FuelLog, error) {
	var logs []models.FuelLog
	if err := c.do(ctx, http.MethodGet, "/fuel/site/"+url.PathEscape(siteID), nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// AddFuelLog records a fuel log and returns the canonical entity.
func (c *Client) AddFuelLog(ctx context.Context, entry *models.FuelLog) (*models.FuelLog, error) {
	var created models.FuelLog
	if err := c.do(ctx, http.MethodPost, "/fuel", nil, entry, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, &Error{Kind: KindServer, Message: "fuel log response missing id"}
	}
	return &created, nil
}

// ListMaintenanceLogs fetches maintenance logs for a site.
func (c *Client) ListMaintenanceLogs(ctx context.Context, siteID string) ([]models.MaintenanceLog, error) {
	var logs []models.MaintenanceLog
	if err := c.do(ctx, http.MethodGet, "/maintenance/site/"+url.PathEscape(siteID), nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// AddMaintenanceLog records maintenance work and returns the canonical entity.
func (c *Client) AddMaintenanceLog(ctx context.Context, entry *models.MaintenanceLog) (*models.MaintenanceLog, error) {
	var created models.MaintenanceLog
	if err := c.do(ctx, http.MethodPost, "/maintenance", nil, entry, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, &Error{Kind: KindServer, Message: "maintenance log response missing id"}
	}
	return &created, nil
}

// SyncOperation is a queued mutation as sent to the backend.
type SyncOperation struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	LocalID    string          `json:"local_id,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// SyncRequest is the batch replay request.
type SyncRequest struct {
	Operations []SyncOperation `json:"operations"`
	DeviceID   string          `json:"deviceId"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SyncResult reports the backend's accounting for a sync batch. The response
// carries counts only, not per-operation identities.
type SyncResult struct {
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Processed int `json:"processed"`
}

// Sync replays queued operations as a single batch.
func (c *Client) Sync(ctx context.Context, req *SyncRequest) (*SyncResult, error) {
	var result SyncResult
	if err := c.do(ctx, http.MethodPost, "/sync", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
