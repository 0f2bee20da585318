package models

import (
	"strings"
	"time"
)

// Step positions. Modal centers the tooltip with no target highlight;
// auto picks the first side with enough viewport space.
const (
	PositionModal  = "modal"
	PositionTop    = "top"
	PositionBottom = "bottom"
	PositionLeft   = "left"
	PositionRight  = "right"
	PositionAuto   = "auto"
)

// ValidPosition reports whether s is one of the known step positions.
func ValidPosition(s string) bool {
	switch s {
	case PositionModal, PositionTop, PositionBottom, PositionLeft, PositionRight, PositionAuto:
		return true
	}
	return false
}

// Step is a single tooltip in a tour. An empty TargetSelector means a
// full-page modal step.
type Step struct {
	ID             int64     `json:"step_id"`
	TourID         int64     `json:"tour_id"`
	Order          int       `json:"step_order"`
	Title          string    `json:"step_title"`
	Content        string    `json:"step_content"`
	TargetSelector string    `json:"target_selector"`
	Position       string    `json:"step_position"`
	PageURLPattern string    `json:"page_url_pattern"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MatchesPage reports whether the step applies to pageURL. The pattern is
// plain substring containment, not a glob; an empty pattern matches every
// page.
func (s *Step) MatchesPage(pageURL string) bool {
	if s.PageURLPattern == "" {
		return true
	}
	return strings.Contains(pageURL, s.PageURLPattern)
}

// StepUpdate is a partial update for a step. Nil fields are left unchanged.
type StepUpdate struct {
	Order          *int
	Title          *string
	Content        *string
	TargetSelector *string
	Position       *string
	PageURLPattern *string
	IsActive       *bool
}

// Empty reports whether the update would change nothing.
func (u *StepUpdate) Empty() bool {
	return u.Order == nil && u.Title == nil && u.Content == nil &&
		u.TargetSelector == nil && u.Position == nil &&
		u.PageURLPattern == nil && u.IsActive == nil
}
