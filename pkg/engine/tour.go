// Package engine is the headless client engine for running a tour: it keeps
// the walkthrough state machine, solves tooltip placement against the
// viewport, and reports interactions back to the tracking endpoint. A host
// renderer feeds it target geometry and draws what View describes.
package engine

import (
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// Tour is the engine's view of one resolved tour, decoded straight from the
// page-tours payload.
type Tour struct {
	ID           int64                  `json:"tour_id"`
	Name         string                 `json:"tour_name"`
	Description  string                 `json:"tour_description"`
	ShowProgress bool                   `json:"show_progress"`
	Steps        []*models.Step         `json:"steps"`
	Tracking     models.TrackingSummary `json:"user_tracking"`
}

// AutoStart names the tour the server decided should start on page load.
type AutoStart struct {
	TourID int64  `json:"tour_id"`
	Reason string `json:"reason"`
}

// PageToursPayload is the page-tours response body.
type PageToursPayload struct {
	Tours     []*Tour    `json:"tours"`
	AutoStart *AutoStart `json:"auto_start"`
}

// Startable reports whether the tour should be offered to this viewer:
// it has steps and the viewer has not finished or skipped it.
func (t *Tour) Startable() bool {
	if len(t.Steps) == 0 {
		return false
	}
	switch t.Tracking.Status {
	case "", models.StatusNotStarted, models.StatusInProgress:
		return true
	}
	return false
}
