package services

import (
	"context"
	"time"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// mockTourRepo implements repositories.TourRepository for testing.
type mockTourRepo struct {
	tours     []*models.Tour
	nextID    int64
	createErr error
	listErr   error
	updateErr error
	deleteErr error
}

func (m *mockTourRepo) Create(_ context.Context, tour *models.Tour) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	tour.ID = m.nextID
	tour.CreatedAt = time.Now()
	tour.UpdatedAt = tour.CreatedAt
	m.tours = append(m.tours, tour)
	return nil
}

func (m *mockTourRepo) Get(_ context.Context, id int64) (*models.Tour, error) {
	for _, t := range m.tours {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTourRepo) GetByName(_ context.Context, name string) (*models.Tour, error) {
	for _, t := range m.tours {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTourRepo) List(_ context.Context) ([]*models.Tour, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.tours, nil
}

func (m *mockTourRepo) ListActive(_ context.Context) ([]*models.Tour, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Tour
	for _, t := range m.tours {
		if t.IsActive {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTourRepo) ListActiveForPage(_ context.Context, _ string, _ int64) ([]*models.Tour, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Tour
	for _, t := range m.tours {
		if t.IsActive {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTourRepo) Update(_ context.Context, id int64, update *models.TourUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if update.Empty() {
		return apperrors.ErrEmptyUpdate
	}
	for _, t := range m.tours {
		if t.ID != id {
			continue
		}
		if update.Name != nil {
			t.Name = *update.Name
		}
		if update.IsActive != nil {
			t.IsActive = *update.IsActive
		}
		return nil
	}
	return apperrors.ErrNotFound
}

func (m *mockTourRepo) Delete(_ context.Context, id int64) error {
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

// mockStepRepo implements repositories.StepRepository for testing.
type mockStepRepo struct {
	steps      []*models.Step
	nextID     int64
	createErr  error
	listErr    error
	reorderErr error
	dupOrders  []int
	reordered  []int64
}

func (m *mockStepRepo) Create(_ context.Context, step *models.Step) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	step.ID = m.nextID
	if step.Order == 0 {
		max := 0
		for _, s := range m.steps {
			if s.TourID == step.TourID && s.Order > max {
				max = s.Order
			}
		}
		step.Order = max + 1
	}
	m.steps = append(m.steps, step)
	return nil
}

func (m *mockStepRepo) Get(_ context.Context, id int64) (*models.Step, error) {
	for _, s := range m.steps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStepRepo) ListForTour(_ context.Context, tourID int64, pageURL string) ([]*models.Step, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Step
	for _, s := range m.steps {
		if s.TourID == tourID && s.IsActive && s.MatchesPage(pageURL) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockStepRepo) ListAllForTour(_ context.Context, tourID int64) ([]*models.Step, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Step
	for _, s := range m.steps {
		if s.TourID == tourID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockStepRepo) Update(_ context.Context, id int64, update *models.StepUpdate) error {
	if update.Empty() {
		return apperrors.ErrEmptyUpdate
	}
	for _, s := range m.steps {
		if s.ID != id {
			continue
		}
		if update.Title != nil {
			s.Title = *update.Title
		}
		if update.Order != nil {
			s.Order = *update.Order
		}
		return nil
	}
	return apperrors.ErrNotFound
}

func (m *mockStepRepo) Delete(_ context.Context, id int64) error {
	for i, s := range m.steps {
		if s.ID == id {
			m.steps = append(m.steps[:i], m.steps[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockStepRepo) Reorder(_ context.Context, _ int64, ids []int64) error {
	if m.reorderErr != nil {
		return m.reorderErr
	}
	m.reordered = ids
	for pos, id := range ids {
		for _, s := range m.steps {
			if s.ID == id {
				s.Order = pos + 1
			}
		}
	}
	return nil
}

func (m *mockStepRepo) DuplicateOrders(_ context.Context, _ int64) ([]int, error) {
	return m.dupOrders, nil
}

// mockTrackingRepo implements repositories.TrackingRepository for testing.
type mockTrackingRepo struct {
	records   []*models.TrackingRecord
	stats     []*models.StatusStat
	upsertErr error
	getErr    error
}

func (m *mockTrackingRepo) Upsert(_ context.Context, userID, tourID int64, pageURL, status string, stepCompleted int) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, r := range m.records {
		if r.UserID == userID && r.TourID == tourID && r.PageURL == pageURL {
			r.Status = status
			if status == models.StatusInProgress && stepCompleted > r.LastStepCompleted {
				r.LastStepCompleted = stepCompleted
			}
			return nil
		}
	}
	m.records = append(m.records, &models.TrackingRecord{
		ID:                int64(len(m.records) + 1),
		UserID:            userID,
		TourID:            tourID,
		PageURL:           pageURL,
		Status:            status,
		LastStepCompleted: stepCompleted,
	})
	return nil
}

func (m *mockTrackingRepo) Get(_ context.Context, userID, tourID int64, pageURL string) (*models.TrackingRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.records {
		if r.UserID == userID && r.TourID == tourID && r.PageURL == pageURL {
			return r, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTrackingRepo) Stats(_ context.Context, _ int64) ([]*models.StatusStat, error) {
	return m.stats, nil
}

// failingSkipStore returns err from every call.
type failingSkipStore struct {
	err error
}

func (f *failingSkipStore) Skip(_ context.Context, _ string, _ int64) error {
	return f.err
}

func (f *failingSkipStore) Skipped(_ context.Context, _ string, _ int64) (bool, error) {
	return false, f.err
}
