package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

func TestTrackingService_RecordInteraction_UnknownAction(t *testing.T) {
	svc := NewTrackingService(&mockTrackingRepo{}, NewMemorySkipStore(), zap.NewNop())

	err := svc.RecordInteraction(context.Background(), identity.Viewer{UserID: 7}, 1, "paused", "/dashboard", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTrackingService_RecordInteraction_MissingPageURL(t *testing.T) {
	svc := NewTrackingService(&mockTrackingRepo{}, NewMemorySkipStore(), zap.NewNop())

	err := svc.RecordInteraction(context.Background(), identity.Viewer{UserID: 7}, 1, models.StatusInProgress, "", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTrackingService_RecordInteraction_AuthenticatedUpserts(t *testing.T) {
	repo := &mockTrackingRepo{}
	svc := NewTrackingService(repo, NewMemorySkipStore(), zap.NewNop())

	err := svc.RecordInteraction(context.Background(), identity.Viewer{UserID: 7}, 1, models.StatusInProgress, "/dashboard", 2)
	require.NoError(t, err)
	require.Len(t, repo.records, 1)
	assert.Equal(t, models.StatusInProgress, repo.records[0].Status)
	assert.Equal(t, 2, repo.records[0].LastStepCompleted)
}

func TestTrackingService_RecordInteraction_AnonymousSkipGoesToStore(t *testing.T) {
	repo := &mockTrackingRepo{}
	skips := NewMemorySkipStore()
	svc := NewTrackingService(repo, skips, zap.NewNop())

	viewer := identity.Viewer{SessionID: "sess-1"}
	err := svc.RecordInteraction(context.Background(), viewer, 1, models.StatusSkippedSession, "/dashboard", 0)
	require.NoError(t, err)

	// No tracking row for anonymous visitors; skip state lives in the store.
	assert.Empty(t, repo.records)
	skipped, err := skips.Skipped(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	assert.True(t, skipped)
}

func TestTrackingService_RecordInteraction_AnonymousProgressNotPersisted(t *testing.T) {
	repo := &mockTrackingRepo{}
	svc := NewTrackingService(repo, NewMemorySkipStore(), zap.NewNop())

	viewer := identity.Viewer{SessionID: "sess-1"}
	err := svc.RecordInteraction(context.Background(), viewer, 1, models.StatusInProgress, "/dashboard", 1)
	require.NoError(t, err)
	assert.Empty(t, repo.records)
}

func TestTrackingService_RecordInteraction_UpsertFailure(t *testing.T) {
	repo := &mockTrackingRepo{upsertErr: errors.New("connection reset")}
	svc := NewTrackingService(repo, NewMemorySkipStore(), zap.NewNop())

	err := svc.RecordInteraction(context.Background(), identity.Viewer{UserID: 7}, 1, models.StatusCompleted, "/dashboard", 3)
	assert.Error(t, err)
}

func TestTrackingService_GetTracking_AnonymousNotFound(t *testing.T) {
	svc := NewTrackingService(&mockTrackingRepo{}, NewMemorySkipStore(), zap.NewNop())

	_, err := svc.GetTracking(context.Background(), identity.Viewer{SessionID: "sess-1"}, 1, "/dashboard")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTrackingService_GetTracking_ReturnsRecord(t *testing.T) {
	repo := &mockTrackingRepo{records: []*models.TrackingRecord{{
		UserID:  7,
		TourID:  1,
		PageURL: "/dashboard",
		Status:  models.StatusCompleted,
	}}}
	svc := NewTrackingService(repo, NewMemorySkipStore(), zap.NewNop())

	record, err := svc.GetTracking(context.Background(), identity.Viewer{UserID: 7}, 1, "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
}
