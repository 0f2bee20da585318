package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/repositories"
)

// TourService provides admin-facing tour and step operations: validation,
// defaulting, and the reorder contract, on top of the repositories.
type TourService interface {
	CreateTour(ctx context.Context, tour *models.Tour) error
	GetTour(ctx context.Context, id int64) (*models.Tour, error)
	ListTours(ctx context.Context) ([]*models.Tour, error)
	UpdateTour(ctx context.Context, id int64, update *models.TourUpdate) error
	DeleteTour(ctx context.Context, id int64) error

	CreateStep(ctx context.Context, step *models.Step) error
	GetStep(ctx context.Context, id int64) (*models.Step, error)
	ListSteps(ctx context.Context, tourID int64) ([]*models.Step, error)
	UpdateStep(ctx context.Context, id int64, update *models.StepUpdate) error
	DeleteStep(ctx context.Context, id int64) error
	// ReorderSteps rewrites each listed step's order to its 1-based position.
	ReorderSteps(ctx context.Context, tourID int64, stepIDs []int64) error

	Stats(ctx context.Context, tourID int64) ([]*models.StatusStat, error)
	// DuplicateStepOrders surfaces the advisory order-uniqueness violations
	// for a tour; a non-empty result is a data-integrity warning, not an
	// error.
	DuplicateStepOrders(ctx context.Context, tourID int64) ([]int, error)
}

type tourService struct {
	tours    repositories.TourRepository
	steps    repositories.StepRepository
	tracking repositories.TrackingRepository
	logger   *zap.Logger
}

// NewTourService creates a new tour service.
func NewTourService(
	tours repositories.TourRepository,
	steps repositories.StepRepository,
	tracking repositories.TrackingRepository,
	logger *zap.Logger,
) TourService {
	return &tourService{
		tours:    tours,
		steps:    steps,
		tracking: tracking,
		logger:   logger.Named("tour-service"),
	}
}

var _ TourService = (*tourService)(nil)

func (s *tourService) CreateTour(ctx context.Context, tour *models.Tour) error {
	if strings.TrimSpace(tour.Name) == "" {
		return fmt.Errorf("%w: tour name is required", apperrors.ErrValidation)
	}
	if tour.TriggerType == "" {
		tour.TriggerType = models.TriggerAutomatic
	}
	if !models.ValidTriggerType(tour.TriggerType) {
		return fmt.Errorf("%w: unknown trigger type %q", apperrors.ErrValidation, tour.TriggerType)
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		s.logger.Error("Failed to create tour",
			zap.String("name", tour.Name),
			zap.Error(err))
		return err
	}

	s.logger.Info("Created tour",
		zap.Int64("tour_id", tour.ID),
		zap.String("name", tour.Name))
	return nil
}

func (s *tourService) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	return s.tours.Get(ctx, id)
}

func (s *tourService) ListTours(ctx context.Context) ([]*models.Tour, error) {
	return s.tours.List(ctx)
}

func (s *tourService) UpdateTour(ctx context.Context, id int64, update *models.TourUpdate) error {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return fmt.Errorf("%w: tour name cannot be empty", apperrors.ErrValidation)
	}
	if update.TriggerType != nil && !models.ValidTriggerType(*update.TriggerType) {
		return fmt.Errorf("%w: unknown trigger type %q", apperrors.ErrValidation, *update.TriggerType)
	}

	if err := s.tours.Update(ctx, id, update); err != nil {
		if err != apperrors.ErrEmptyUpdate && err != apperrors.ErrNotFound {
			s.logger.Error("Failed to update tour", zap.Int64("tour_id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *tourService) DeleteTour(ctx context.Context, id int64) error {
	if err := s.tours.Delete(ctx, id); err != nil {
		if err != apperrors.ErrNotFound {
			s.logger.Error("Failed to delete tour", zap.Int64("tour_id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("Deleted tour", zap.Int64("tour_id", id))
	return nil
}

func (s *tourService) CreateStep(ctx context.Context, step *models.Step) error {
	if strings.TrimSpace(step.Title) == "" {
		return fmt.Errorf("%w: step title is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(step.Content) == "" {
		return fmt.Errorf("%w: step content is required", apperrors.ErrValidation)
	}
	if step.Position == "" {
		step.Position = models.PositionAuto
	}
	if !models.ValidPosition(step.Position) {
		return fmt.Errorf("%w: unknown step position %q", apperrors.ErrValidation, step.Position)
	}
	if step.TargetSelector == "" && step.Position != models.PositionModal {
		return fmt.Errorf("%w: target selector is required for non-modal steps", apperrors.ErrValidation)
	}

	// The tour must exist; a bad id would otherwise surface as an FK error.
	if _, err := s.tours.Get(ctx, step.TourID); err != nil {
		return err
	}

	if err := s.steps.Create(ctx, step); err != nil {
		s.logger.Error("Failed to create step",
			zap.Int64("tour_id", step.TourID),
			zap.String("title", step.Title),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *tourService) GetStep(ctx context.Context, id int64) (*models.Step, error) {
	return s.steps.Get(ctx, id)
}

func (s *tourService) ListSteps(ctx context.Context, tourID int64) ([]*models.Step, error) {
	return s.steps.ListAllForTour(ctx, tourID)
}

func (s *tourService) UpdateStep(ctx context.Context, id int64, update *models.StepUpdate) error {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return fmt.Errorf("%w: step title cannot be empty", apperrors.ErrValidation)
	}
	if update.Position != nil && !models.ValidPosition(*update.Position) {
		return fmt.Errorf("%w: unknown step position %q", apperrors.ErrValidation, *update.Position)
	}
	if update.Order != nil && *update.Order < 1 {
		return fmt.Errorf("%w: step order must be positive", apperrors.ErrValidation)
	}

	if err := s.steps.Update(ctx, id, update); err != nil {
		if err != apperrors.ErrEmptyUpdate && err != apperrors.ErrNotFound {
			s.logger.Error("Failed to update step", zap.Int64("step_id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *tourService) DeleteStep(ctx context.Context, id int64) error {
	if err := s.steps.Delete(ctx, id); err != nil {
		if err != apperrors.ErrNotFound {
			s.logger.Error("Failed to delete step", zap.Int64("step_id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *tourService) ReorderSteps(ctx context.Context, tourID int64, stepIDs []int64) error {
	if len(stepIDs) == 0 {
		return fmt.Errorf("%w: no step ids supplied", apperrors.ErrValidation)
	}
	seen := make(map[int64]bool, len(stepIDs))
	for _, id := range stepIDs {
		if seen[id] {
			return fmt.Errorf("%w: duplicate step id %d", apperrors.ErrValidation, id)
		}
		seen[id] = true
	}

	if err := s.steps.Reorder(ctx, tourID, stepIDs); err != nil {
		s.logger.Error("Failed to reorder steps",
			zap.Int64("tour_id", tourID),
			zap.Int("count", len(stepIDs)),
			zap.Error(err))
		return err
	}

	s.logger.Info("Reordered steps",
		zap.Int64("tour_id", tourID),
		zap.Int("count", len(stepIDs)))
	return nil
}

func (s *tourService) Stats(ctx context.Context, tourID int64) ([]*models.StatusStat, error) {
	return s.tracking.Stats(ctx, tourID)
}

func (s *tourService) DuplicateStepOrders(ctx context.Context, tourID int64) ([]int, error) {
	orders, err := s.steps.DuplicateOrders(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if len(orders) > 0 {
		s.logger.Warn("Tour has duplicate step orders",
			zap.Int64("tour_id", tourID),
			zap.Ints("orders", orders))
	}
	return orders, nil
}
