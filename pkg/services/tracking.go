package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/repositories"
)

// TrackingService records tour interactions reported by the client engine.
type TrackingService interface {
	// RecordInteraction stores the viewer's interaction. Authenticated
	// viewers get a durable tracking row; anonymous viewers only get
	// session-scoped skip state, and non-skip actions are acknowledged
	// without persistence. Storage failures are reported but are expected
	// to be treated as best-effort by callers (the walkthrough continues).
	RecordInteraction(ctx context.Context, viewer identity.Viewer, tourID int64, action, pageURL string, stepCompleted int) error
	// GetTracking returns the viewer's tracking record for a tour/page, or
	// ErrNotFound. Always ErrNotFound for anonymous viewers.
	GetTracking(ctx context.Context, viewer identity.Viewer, tourID int64, pageURL string) (*models.TrackingRecord, error)
}

type trackingService struct {
	tracking repositories.TrackingRepository
	skips    SessionSkipStore
	logger   *zap.Logger
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(tracking repositories.TrackingRepository, skips SessionSkipStore, logger *zap.Logger) TrackingService {
	return &trackingService{
		tracking: tracking,
		skips:    skips,
		logger:   logger.Named("tracking-service"),
	}
}

var _ TrackingService = (*trackingService)(nil)

func (s *trackingService) RecordInteraction(ctx context.Context, viewer identity.Viewer, tourID int64, action, pageURL string, stepCompleted int) error {
	if !models.ValidStatus(action) {
		return fmt.Errorf("%w: unknown action %q", apperrors.ErrValidation, action)
	}
	if pageURL == "" {
		return fmt.Errorf("%w: page_url is required", apperrors.ErrValidation)
	}

	if viewer.Anonymous() {
		if action == models.StatusSkippedSession || action == models.StatusSkippedPermanent {
			if viewer.SessionID == "" {
				return nil
			}
			if err := s.skips.Skip(ctx, viewer.SessionID, tourID); err != nil {
				s.logger.Warn("Failed to record anonymous skip",
					zap.Int64("tour_id", tourID),
					zap.Error(err))
				return err
			}
		}
		// Progress of anonymous visitors is not persisted.
		return nil
	}

	if err := s.tracking.Upsert(ctx, viewer.UserID, tourID, pageURL, action, stepCompleted); err != nil {
		s.logger.Error("Failed to record interaction",
			zap.Int64("user_id", viewer.UserID),
			zap.Int64("tour_id", tourID),
			zap.String("action", action),
			zap.Error(err))
		return err
	}

	s.logger.Debug("Recorded interaction",
		zap.Int64("user_id", viewer.UserID),
		zap.Int64("tour_id", tourID),
		zap.String("action", action),
		zap.Int("step_completed", stepCompleted))
	return nil
}

func (s *trackingService) GetTracking(ctx context.Context, viewer identity.Viewer, tourID int64, pageURL string) (*models.TrackingRecord, error) {
	if viewer.Anonymous() {
		return nil, apperrors.ErrNotFound
	}

	record, err := s.tracking.Get(ctx, viewer.UserID, tourID, pageURL)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to get tracking record",
				zap.Int64("user_id", viewer.UserID),
				zap.Int64("tour_id", tourID),
				zap.Error(err))
		}
		return nil, err
	}
	return record, nil
}
