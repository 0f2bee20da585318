package engine

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// TargetResolver maps a step's selector to the geometry of the matched
// element, in viewport coordinates. Returns nil when nothing matches.
type TargetResolver interface {
	Resolve(selector string) *Rect
}

// TargetResolverFunc adapts a function to the TargetResolver interface.
type TargetResolverFunc func(selector string) *Rect

func (f TargetResolverFunc) Resolve(selector string) *Rect { return f(selector) }

// StepView is everything the host renderer needs to draw the current step.
// At most one element carries the highlight at any time; an empty Highlight
// means nothing is highlighted.
type StepView struct {
	Step      *models.Step
	Layout    Layout
	Highlight string
	Progress  Progress
}

// DefaultStartDelay is how long an embedded payload waits before offering
// its first tour.
const DefaultStartDelay = time.Second

// Engine drives a walkthrough on one page: it owns the session state
// machine and delivers its reports. All methods are meant for the single
// goroutine driving the page; the reporter is the only concurrent part.
type Engine struct {
	session    Session
	reporter   Reporter
	targets    TargetResolver
	pageURL    string
	startDelay time.Duration
	logger     *zap.Logger
}

// New creates an engine for the page at pageURL.
func New(reporter Reporter, targets TargetResolver, pageURL string, logger *zap.Logger) *Engine {
	return &Engine{
		reporter:   reporter,
		targets:    targets,
		pageURL:    pageURL,
		startDelay: DefaultStartDelay,
		logger:     logger.Named("tour-engine"),
	}
}

// SetStartDelay overrides the embedded-payload offer delay.
func (e *Engine) SetStartDelay(d time.Duration) {
	e.startDelay = d
}

// Active reports whether a tour is running.
func (e *Engine) Active() bool { return e.session.Active() }

// Start begins a tour, force-closing any tour already running.
func (e *Engine) Start(tour *Tour) {
	e.deliver(e.session.Start(tour))
}

// Next advances to the following step, completing the tour on the last one.
func (e *Engine) Next() {
	e.deliver(e.session.Next())
}

// Previous steps back, flooring at the first step.
func (e *Engine) Previous() {
	e.deliver(e.session.Previous())
}

// Skip dismisses the tour for this session.
func (e *Engine) Skip() {
	e.deliver(e.session.Skip())
}

// Disable dismisses the tour permanently for this viewer.
func (e *Engine) Disable() {
	e.deliver(e.session.Disable())
}

// Close dismisses the tour without reporting anything.
func (e *Engine) Close() {
	e.session.Close()
}

// PageHidden force-closes the tour when the page is backgrounded.
func (e *Engine) PageHidden() {
	e.session.PageHidden()
}

// View solves the current step's layout for the given tooltip size and
// viewport. Returns nil when no tour is running.
func (e *Engine) View(tooltip Size, vp Viewport) *StepView {
	step := e.session.CurrentStep()
	if step == nil {
		return nil
	}

	var target *Rect
	if step.Position != models.PositionModal && step.TargetSelector != "" {
		target = e.targets.Resolve(step.TargetSelector)
		if target == nil {
			e.logger.Debug("Step target not found, centering tooltip",
				zap.Int64("step_id", step.ID),
				zap.String("selector", step.TargetSelector))
		}
	}

	view := &StepView{
		Step:     step,
		Layout:   Solve(target, step.Position, tooltip, vp),
		Progress: e.session.Progress(),
	}
	if target != nil {
		view.Highlight = step.TargetSelector
	}
	return view
}

// Bootstrap fetches the page tours and starts whichever tour the server
// picked, falling back to the first startable one. Returns true when a
// tour started.
func (e *Engine) Bootstrap(ctx context.Context, client *Client, pageQuery url.Values) (bool, error) {
	payload, err := client.PageTours(ctx, e.pageURL, pageQuery)
	if err != nil {
		return false, err
	}
	return e.StartFromPayload(payload), nil
}

// StartFromPayload starts the server-selected auto-start tour, or the first
// startable tour when the server had no preference. Returns true when a
// tour started.
func (e *Engine) StartFromPayload(payload *PageToursPayload) bool {
	if payload == nil {
		return false
	}

	if payload.AutoStart != nil {
		for _, tour := range payload.Tours {
			if tour.ID == payload.AutoStart.TourID && len(tour.Steps) > 0 {
				e.Start(tour)
				return true
			}
		}
	}

	for _, tour := range payload.Tours {
		if tour.Startable() {
			e.Start(tour)
			return true
		}
	}
	return false
}

// Offer waits the configured delay, then starts the first startable tour
// from an embedded payload. Cancelled by ctx or by a tour starting in the
// meantime.
func (e *Engine) Offer(ctx context.Context, payload *PageToursPayload) {
	timer := time.NewTimer(e.startDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if e.session.Active() {
		return
	}
	e.StartFromPayload(payload)
}

func (e *Engine) deliver(report *Report) {
	if report == nil || e.reporter == nil {
		return
	}
	e.reporter.Report(*report, e.pageURL)
}
