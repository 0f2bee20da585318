package handlers

import (
	"context"
	"net/url"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/services"
)

// mockTourService implements services.TourService for handler tests.
type mockTourService struct {
	tours        []*models.Tour
	steps        []*models.Step
	stats        []*models.StatusStat
	createErr    error
	updateErr    error
	deleteErr    error
	reorderErr   error
	lastUpdate   *models.TourUpdate
	lastStepIDs  []int64
	lastTourID   int64
	createdSteps []*models.Step
}

func (m *mockTourService) CreateTour(_ context.Context, tour *models.Tour) error {
	if m.createErr != nil {
		return m.createErr
	}
	tour.ID = int64(len(m.tours) + 1)
	m.tours = append(m.tours, tour)
	return nil
}

func (m *mockTourService) GetTour(_ context.Context, id int64) (*models.Tour, error) {
	for _, t := range m.tours {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTourService) ListTours(_ context.Context) ([]*models.Tour, error) {
	return m.tours, nil
}

func (m *mockTourService) UpdateTour(_ context.Context, id int64, update *models.TourUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastTourID = id
	m.lastUpdate = update
	if _, err := m.GetTour(context.Background(), id); err != nil {
		return err
	}
	return nil
}

func (m *mockTourService) DeleteTour(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, t := range m.tours {
		if t.ID == id {
			m.tours = append(m.tours[:i], m.tours[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockTourService) CreateStep(_ context.Context, step *models.Step) error {
	if m.createErr != nil {
		return m.createErr
	}
	step.ID = int64(len(m.steps) + 1)
	m.steps = append(m.steps, step)
	m.createdSteps = append(m.createdSteps, step)
	return nil
}

func (m *mockTourService) GetStep(_ context.Context, id int64) (*models.Step, error) {
	for _, s := range m.steps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTourService) ListSteps(_ context.Context, tourID int64) ([]*models.Step, error) {
	var result []*models.Step
	for _, s := range m.steps {
		if s.TourID == tourID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockTourService) UpdateStep(_ context.Context, id int64, _ *models.StepUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, err := m.GetStep(context.Background(), id); err != nil {
		return err
	}
	return nil
}

func (m *mockTourService) DeleteStep(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, s := range m.steps {
		if s.ID == id {
			m.steps = append(m.steps[:i], m.steps[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockTourService) ReorderSteps(_ context.Context, tourID int64, stepIDs []int64) error {
	if m.reorderErr != nil {
		return m.reorderErr
	}
	m.lastTourID = tourID
	m.lastStepIDs = stepIDs
	return nil
}

func (m *mockTourService) Stats(_ context.Context, _ int64) ([]*models.StatusStat, error) {
	return m.stats, nil
}

func (m *mockTourService) DuplicateStepOrders(_ context.Context, _ int64) ([]int, error) {
	return nil, nil
}

var _ services.TourService = (*mockTourService)(nil)

// mockQueryService implements services.TourQueryService for handler tests.
type mockQueryService struct {
	resolved   []*services.ResolvedTour
	decision   services.TriggerDecision
	resolveErr error
	triggerErr error
}

func (m *mockQueryService) ActiveToursForPage(_ context.Context, _ string, _ identity.Viewer) ([]*models.Tour, error) {
	var tours []*models.Tour
	for _, r := range m.resolved {
		tours = append(tours, r.Tour)
	}
	return tours, nil
}

func (m *mockQueryService) ResolveTourForPage(_ context.Context, tourID int64, _ string, _ identity.Viewer) (*services.ResolvedTour, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	for _, r := range m.resolved {
		if r.Tour.ID == tourID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockQueryService) ResolvePageTours(_ context.Context, _ string, _ identity.Viewer) ([]*services.ResolvedTour, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.resolved, nil
}

func (m *mockQueryService) SelectTrigger(_ context.Context, _ string, _ url.Values, _ identity.Viewer) (services.TriggerDecision, error) {
	if m.triggerErr != nil {
		return services.TriggerDecision{}, m.triggerErr
	}
	return m.decision, nil
}

var _ services.TourQueryService = (*mockQueryService)(nil)

// mockTrackingService implements services.TrackingService for handler tests.
type mockTrackingService struct {
	recordErr  error
	lastAction string
	lastTourID int64
	lastStep   int
	lastViewer identity.Viewer
}

func (m *mockTrackingService) RecordInteraction(_ context.Context, viewer identity.Viewer, tourID int64, action, _ string, stepCompleted int) error {
	m.lastViewer = viewer
	m.lastTourID = tourID
	m.lastAction = action
	m.lastStep = stepCompleted
	return m.recordErr
}

func (m *mockTrackingService) GetTracking(_ context.Context, _ identity.Viewer, _ int64, _ string) (*models.TrackingRecord, error) {
	return nil, apperrors.ErrNotFound
}

var _ services.TrackingService = (*mockTrackingService)(nil)
