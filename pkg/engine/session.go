package engine

import (
	"fmt"

	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// Report is an interaction the session wants sent to the tracking endpoint.
type Report struct {
	TourID        int64
	Action        string
	StepCompleted int
}

// Progress is the "step 2 of 5" indicator. Visible only when the tour has
// show_progress set.
type Progress struct {
	Current int
	Total   int
	Visible bool
}

// String renders the indicator text.
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Current, p.Total)
}

// Session is the walkthrough state machine: Idle, or Active on one step of
// one tour. Transitions return the report to deliver, or nil when the
// transition reports nothing. Session itself never talks to the network;
// the Engine owns delivery.
type Session struct {
	tour      *Tour
	stepIndex int
}

// Active reports whether a tour is running.
func (s *Session) Active() bool {
	return s.tour != nil
}

// Tour returns the running tour, or nil when idle.
func (s *Session) Tour() *Tour {
	return s.tour
}

// StepIndex returns the zero-based index of the current step. Only
// meaningful while active.
func (s *Session) StepIndex() int {
	return s.stepIndex
}

// CurrentStep returns the step being shown, or nil when idle.
func (s *Session) CurrentStep() *models.Step {
	if s.tour == nil {
		return nil
	}
	return s.tour.Steps[s.stepIndex]
}

// Progress returns the progress indicator for the current step.
func (s *Session) Progress() Progress {
	if s.tour == nil {
		return Progress{}
	}
	return Progress{
		Current: s.stepIndex + 1,
		Total:   len(s.tour.Steps),
		Visible: s.tour.ShowProgress,
	}
}

// Start begins the tour at its first step. A tour already running is force
// closed first, without a report. Starting a tour with no steps is a no-op.
func (s *Session) Start(tour *Tour) *Report {
	if tour == nil || len(tour.Steps) == 0 {
		return nil
	}
	s.tour = tour
	s.stepIndex = 0
	return s.enterReport()
}

// Next advances to the following step. On the last step the tour completes:
// the session goes idle and a completed report is returned.
func (s *Session) Next() *Report {
	if s.tour == nil {
		return nil
	}
	if s.stepIndex+1 >= len(s.tour.Steps) {
		report := &Report{
			TourID:        s.tour.ID,
			Action:        models.StatusCompleted,
			StepCompleted: s.stepIndex,
		}
		s.reset()
		return report
	}
	s.stepIndex++
	return s.enterReport()
}

// Previous steps back, flooring at the first step. Staying on the first
// step is not a new step entry and reports nothing.
func (s *Session) Previous() *Report {
	if s.tour == nil || s.stepIndex == 0 {
		return nil
	}
	s.stepIndex--
	return s.enterReport()
}

// Skip ends the tour for this session only.
func (s *Session) Skip() *Report {
	return s.end(models.StatusSkippedSession)
}

// Disable ends the tour and asks never to see it again.
func (s *Session) Disable() *Report {
	return s.end(models.StatusSkippedPermanent)
}

// Close dismisses the tour without any report. Progress already recorded
// by step entries stands.
func (s *Session) Close() {
	s.reset()
}

// PageHidden force-closes the tour when the page is backgrounded or
// unloaded. No report: there may be nobody left to deliver it.
func (s *Session) PageHidden() {
	s.reset()
}

// enterReport is the report for entering the current step. Every entry,
// including the first, reports in_progress with the zero-based index.
func (s *Session) enterReport() *Report {
	return &Report{
		TourID:        s.tour.ID,
		Action:        models.StatusInProgress,
		StepCompleted: s.stepIndex,
	}
}

func (s *Session) end(action string) *Report {
	if s.tour == nil {
		return nil
	}
	report := &Report{
		TourID:        s.tour.ID,
		Action:        action,
		StepCompleted: s.stepIndex,
	}
	s.reset()
	return report
}

func (s *Session) reset() {
	s.tour = nil
	s.stepIndex = 0
}
