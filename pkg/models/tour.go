// Package models contains domain types for guidepost-engine.
package models

import "time"

// TriggerType controls how a tour is started on a page.
const (
	TriggerAutomatic    = "automatic"
	TriggerManual       = "manual"
	TriggerURLParameter = "url_parameter"
)

// ValidTriggerType reports whether s is one of the known trigger types.
func ValidTriggerType(s string) bool {
	switch s {
	case TriggerAutomatic, TriggerManual, TriggerURLParameter:
		return true
	}
	return false
}

// Tour is an ordered walkthrough of tooltip steps anchored to page elements.
type Tour struct {
	ID           int64     `json:"tour_id"`
	Name         string    `json:"tour_name"`
	Description  string    `json:"tour_description"`
	TriggerType  string    `json:"tour_trigger_type"`
	TriggerValue string    `json:"tour_trigger_value"`
	ShowProgress bool      `json:"show_progress"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TourUpdate is a partial update for a tour. Nil fields are left unchanged.
type TourUpdate struct {
	Name         *string
	Description  *string
	TriggerType  *string
	TriggerValue *string
	ShowProgress *bool
	IsActive     *bool
}

// Empty reports whether the update would change nothing.
func (u *TourUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.TriggerType == nil &&
		u.TriggerValue == nil && u.ShowProgress == nil && u.IsActive == nil
}
