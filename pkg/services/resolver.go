package services

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/repositories"
)

// ResolvedTour is a tour with its page-filtered steps and the viewer's
// tracking state, ready to hand to the client engine.
type ResolvedTour struct {
	Tour     *models.Tour
	Steps    []*models.Step
	Tracking models.TrackingSummary
}

// Trigger reasons reported by SelectTrigger.
const (
	TriggerReasonURLParameter = "url_parameter"
	TriggerReasonAutomatic    = "automatic"
)

// TriggerDecision names the tour that should auto-start on a page load, if
// any, and why it was picked.
type TriggerDecision struct {
	Tour   *ResolvedTour
	Reason string
}

// TourQueryService resolves which tours a viewer should see on a page.
type TourQueryService interface {
	// ActiveToursForPage returns active tours with at least one active step
	// matching the page, excluding tours the viewer permanently skipped.
	ActiveToursForPage(ctx context.Context, pageURL string, viewer identity.Viewer) ([]*models.Tour, error)
	// ResolveTourForPage loads one tour with its page-filtered, content-
	// processed steps. Returns nil when the tour does not exist.
	ResolveTourForPage(ctx context.Context, tourID int64, pageURL string, viewer identity.Viewer) (*ResolvedTour, error)
	// ResolvePageTours resolves every startable tour for the page, dropping
	// tours the viewer completed or permanently skipped and attaching each
	// one's tracking summary.
	ResolvePageTours(ctx context.Context, pageURL string, viewer identity.Viewer) ([]*ResolvedTour, error)
	// SelectTrigger picks the single tour that should auto-start for this
	// page load. A matching URL trigger parameter beats automatic tours;
	// otherwise the first automatic tour in creation order wins. A nil Tour
	// means nothing auto-starts.
	SelectTrigger(ctx context.Context, pageURL string, query url.Values, viewer identity.Viewer) (TriggerDecision, error)
}

type tourQueryService struct {
	tours           repositories.TourRepository
	steps           repositories.StepRepository
	tracking        repositories.TrackingRepository
	skips           SessionSkipStore
	content         ContentProcessor
	urlTriggerParam string
	logger          *zap.Logger
}

// NewTourQueryService creates a new tour query service. urlTriggerParam is
// the query parameter that force-starts a tour (default "show_tour").
func NewTourQueryService(
	tours repositories.TourRepository,
	steps repositories.StepRepository,
	tracking repositories.TrackingRepository,
	skips SessionSkipStore,
	content ContentProcessor,
	urlTriggerParam string,
	logger *zap.Logger,
) TourQueryService {
	if content == nil {
		content = NoopContentProcessor{}
	}
	return &tourQueryService{
		tours:           tours,
		steps:           steps,
		tracking:        tracking,
		skips:           skips,
		content:         content,
		urlTriggerParam: urlTriggerParam,
		logger:          logger.Named("tour-query"),
	}
}

var _ TourQueryService = (*tourQueryService)(nil)

func (s *tourQueryService) ActiveToursForPage(ctx context.Context, pageURL string, viewer identity.Viewer) ([]*models.Tour, error) {
	tours, err := s.tours.ListActiveForPage(ctx, pageURL, viewer.UserID)
	if err != nil {
		s.logger.Error("Failed to list tours for page",
			zap.String("page_url", pageURL),
			zap.Error(err))
		return nil, err
	}

	if !viewer.Anonymous() || viewer.SessionID == "" {
		return tours, nil
	}

	// Anonymous skip state is session-scoped, not in the database.
	filtered := tours[:0]
	for _, tour := range tours {
		skipped, err := s.skips.Skipped(ctx, viewer.SessionID, tour.ID)
		if err != nil {
			// Fail open: a broken skip store must not hide tours.
			s.logger.Warn("Session skip lookup failed",
				zap.Int64("tour_id", tour.ID),
				zap.Error(err))
			skipped = false
		}
		if !skipped {
			filtered = append(filtered, tour)
		}
	}
	return filtered, nil
}

func (s *tourQueryService) ResolveTourForPage(ctx context.Context, tourID int64, pageURL string, viewer identity.Viewer) (*ResolvedTour, error) {
	tour, err := s.tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	resolved, err := s.resolve(ctx, tour, pageURL, viewer)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *tourQueryService) ResolvePageTours(ctx context.Context, pageURL string, viewer identity.Viewer) ([]*ResolvedTour, error) {
	tours, err := s.ActiveToursForPage(ctx, pageURL, viewer)
	if err != nil {
		return nil, err
	}

	var resolved []*ResolvedTour
	for _, tour := range tours {
		r, err := s.resolve(ctx, tour, pageURL, viewer)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		if r.Tracking.Status == models.StatusCompleted || r.Tracking.Status == models.StatusSkippedPermanent {
			continue
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

func (s *tourQueryService) SelectTrigger(ctx context.Context, pageURL string, query url.Values, viewer identity.Viewer) (TriggerDecision, error) {
	resolved, err := s.ResolvePageTours(ctx, pageURL, viewer)
	if err != nil {
		return TriggerDecision{}, err
	}
	if len(resolved) == 0 {
		return TriggerDecision{}, nil
	}

	if query.Has(s.urlTriggerParam) {
		value := query.Get(s.urlTriggerParam)
		for _, r := range resolved {
			if r.Tour.TriggerType != models.TriggerURLParameter {
				continue
			}
			if r.Tour.TriggerValue != "" && r.Tour.TriggerValue != value {
				continue
			}
			return TriggerDecision{Tour: r, Reason: TriggerReasonURLParameter}, nil
		}
		// Parameter present but no url_parameter tour matches: fall through
		// to the automatic selection rather than hijacking an unrelated tour.
	}

	for _, r := range resolved {
		if r.Tour.TriggerType == models.TriggerAutomatic {
			return TriggerDecision{Tour: r, Reason: TriggerReasonAutomatic}, nil
		}
	}

	return TriggerDecision{}, nil
}

// resolve loads a tour's page steps, runs content processing, and attaches
// the viewer's tracking summary. Returns nil when no active step matches the
// page.
func (s *tourQueryService) resolve(ctx context.Context, tour *models.Tour, pageURL string, viewer identity.Viewer) (*ResolvedTour, error) {
	steps, err := s.steps.ListForTour(ctx, tour.ID, pageURL)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, nil
	}

	for _, step := range steps {
		processed, err := s.content.Process(ctx, step.Content, viewer.UserID)
		if err != nil {
			// Placeholder failures degrade to the raw content.
			s.logger.Warn("Content processing failed",
				zap.Int64("step_id", step.ID),
				zap.Error(err))
			continue
		}
		step.Content = processed
	}

	resolved := &ResolvedTour{
		Tour:     tour,
		Steps:    steps,
		Tracking: models.TrackingSummary{Status: models.StatusNotStarted, LastStepCompleted: 0},
	}

	if !viewer.Anonymous() {
		record, err := s.tracking.Get(ctx, viewer.UserID, tour.ID, pageURL)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if record != nil {
			resolved.Tracking = models.TrackingSummary{
				Status:            record.Status,
				LastStepCompleted: record.LastStepCompleted,
			}
		}
	}

	return resolved, nil
}
