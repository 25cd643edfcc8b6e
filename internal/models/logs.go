package models

import (
	"strings"
	"time"
)

// FuelLog records a generator refuelling at a site.
type FuelLog struct {
	ID         string     `json:"id"`
	SiteID     string     `json:"site_id"`
	Liters     float64    `json:"liters"`
	Cost       float64    `json:"cost"`
	FilledAt   time.Time  `json:"filled_at,omitzero"`
	Technician string     `json:"technician,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitzero"`
	Sync       SyncStatus `json:"sync_status,omitempty"`
}

// Validate checks the fuel log fields and returns every violation found.
func (f *FuelLog) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(f.SiteID) == "" {
		errs = append(errs, FieldError{Field: "site_id", Message: "site_id is required"})
	}
	if f.Liters <= 0 {
		errs = append(errs, FieldError{Field: "liters", Message: "liters must be greater than zero"})
	}
	if f.Liters > 100000 {
		errs = append(errs, FieldError{Field: "liters", Message: "liters exceeds maximum of 100000"})
	}
	if f.Cost < 0 {
		errs = append(errs, FieldError{Field: "cost", Message: "cost must not be negative"})
	}

	return errs
}

// MaintenanceCategories are the supported maintenance work categories.
var MaintenanceCategories = []string{"preventive", "corrective", "inspection", "upgrade"}

// MaintenanceLog records maintenance work performed at a site.
type MaintenanceLog struct {
	ID          string     `json:"id"`
	SiteID      string     `json:"site_id"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	PerformedAt time.Time  `json:"performed_at,omitzero"`
	Technician  string     `json:"technician,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitzero"`
	Sync        SyncStatus `json:"sync_status,omitempty"`
}

// Validate checks the maintenance log fields and returns every violation found.
func (m *MaintenanceLog) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(m.SiteID) == "" {
		errs = append(errs, FieldError{Field: "site_id", Message: "site_id is required"})
	}
	if !containsString(MaintenanceCategories, m.Category) {
		errs = append(errs, FieldError{Field: "category", Message: "category must be one of: " + strings.Join(MaintenanceCategories, ", ")})
	}
	if strings.TrimSpace(m.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	}
	if len(m.Description) > 2000 {
		errs = append(errs, FieldError{Field: "description", Message: "description exceeds 2000 characters"})
	}

	return errs
}
