package models

import "time"

// Tracking statuses. A record moves not_started -> in_progress -> completed,
// or out via one of the skip statuses.
const (
	StatusNotStarted       = "not_started"
	StatusInProgress       = "in_progress"
	StatusCompleted        = "completed"
	StatusSkippedSession   = "skipped_session"
	StatusSkippedPermanent = "skipped_permanent"
)

// ValidStatus reports whether s is one of the known tracking statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted,
		StatusSkippedSession, StatusSkippedPermanent:
		return true
	}
	return false
}

// TrackingRecord is one user's progress through one tour on one page.
// (UserID, TourID, PageURL) is unique; LastStepCompleted only ever grows,
// and only while the status is in_progress.
type TrackingRecord struct {
	ID                int64     `json:"tracking_id"`
	UserID            int64     `json:"user_id"`
	TourID            int64     `json:"tour_id"`
	PageURL           string    `json:"page_url"`
	Status            string    `json:"status"`
	LastStepCompleted int       `json:"last_step_completed"`
	FirstViewed       time.Time `json:"first_viewed"`
	LastUpdated       time.Time `json:"last_updated"`
}

// TrackingSummary is the per-tour tracking state exposed to the client
// engine. Field names are part of the wire contract.
type TrackingSummary struct {
	Status            string `json:"status"`
	LastStepCompleted int    `json:"last_step_completed"`
}

// StatusStat is one row of the per-status aggregate: how many tracking
// records and how many distinct users hold each status.
type StatusStat struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	UniqueUsers int64  `json:"unique_users"`
}
