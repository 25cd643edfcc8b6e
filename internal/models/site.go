package models

import (
	"strings"
	"time"
)

// SyncStatus marks whether an entity has been confirmed by the backend.
type SyncStatus string

const (
	// SyncStatusConfirmed is the zero-value status for server-confirmed entities.
	SyncStatusConfirmed SyncStatus = ""

	// SyncStatusPending marks an entity that was accepted locally while the
	// backend was unreachable and has not yet been confirmed.
	SyncStatusPending SyncStatus = "pending_sync"
)

// Site is a telecom infrastructure site tracked by field technicians.
type Site struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Region    string     `json:"region"`
	Status    string     `json:"status"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	UpdatedAt time.Time  `json:"updated_at,omitzero"`
	Sync      SyncStatus `json:"sync_status,omitempty"`
}

// SiteStatuses are the states a site can be reported in.
var SiteStatuses = []string{"active", "inactive", "maintenance", "decommissioned"}

// Validate checks the site fields and returns every violation found.
func (s *Site) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(s.Region) == "" {
		errs = append(errs, FieldError{Field: "region", Message: "region is required"})
	}
	if s.Status != "" && !containsString(SiteStatuses, s.Status) {
		errs = append(errs, FieldError{Field: "status", Message: "status must be one of: " + strings.Join(SiteStatuses, ", ")})
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		errs = append(errs, FieldError{Field: "latitude", Message: "latitude must be between -90 and 90"})
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		errs = append(errs, FieldError{Field: "longitude", Message: "longitude must be between -180 and 180"})
	}

	return errs
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
