//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/database"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/testhelpers"
)

// wipeTables clears all tour data so each test starts from an empty
// database. The shared container is reused across the package, so tests
// must not assume rows from other tests are absent without calling this.
func wipeTables(t *testing.T, ctx context.Context) {
	t.Helper()
	scope, ok := database.GetScope(ctx)
	require.True(t, ok, "no database scope in context")

	for _, table := range []string{
		"guidepost_tour_user_tracking",
		"guidepost_tour_steps",
		"guidepost_tours",
	} {
		_, err := scope.Conn.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err, "failed to wipe %s", table)
	}
}

func setupTourRepoTest(t *testing.T) (context.Context, TourRepository) {
	t.Helper()
	tourDB := testhelpers.GetTourDB(t)
	ctx := testhelpers.ScopedContext(t, tourDB.DB)
	wipeTables(t, ctx)
	return ctx, NewTourRepository()
}

func newTestTour(name string) *models.Tour {
	return &models.Tour{
		Name:         name,
		Description:  "A test walkthrough",
		TriggerType:  models.TriggerAutomatic,
		ShowProgress: true,
		IsActive:     true,
	}
}

func TestTourRepository_CreateAndGet(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	tour := newTestTour("welcome")
	require.NoError(t, repo.Create(ctx, tour))
	assert.NotZero(t, tour.ID)
	assert.False(t, tour.CreatedAt.IsZero())

	got, err := repo.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "welcome", got.Name)
	assert.Equal(t, models.TriggerAutomatic, got.TriggerType)
	assert.True(t, got.ShowProgress)
	assert.True(t, got.IsActive)
}

func TestTourRepository_Get_NotFound(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	_, err := repo.Get(ctx, 999999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTourRepository_GetByName(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	tour := newTestTour("billing-intro")
	require.NoError(t, repo.Create(ctx, tour))

	got, err := repo.GetByName(ctx, "billing-intro")
	require.NoError(t, err)
	assert.Equal(t, tour.ID, got.ID)

	_, err = repo.GetByName(ctx, "no-such-tour")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTourRepository_ListActive(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	active := newTestTour("active-tour")
	require.NoError(t, repo.Create(ctx, active))

	inactive := newTestTour("inactive-tour")
	inactive.IsActive = false
	require.NoError(t, repo.Create(ctx, inactive))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tours, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, "active-tour", tours[0].Name)
}

func TestTourRepository_ListActiveForPage(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)
	stepRepo := NewStepRepository()

	// Tour with a step bound to /settings pages only.
	settings := newTestTour("settings-tour")
	require.NoError(t, repo.Create(ctx, settings))
	require.NoError(t, stepRepo.Create(ctx, &models.Step{
		TourID:         settings.ID,
		Title:          "Settings intro",
		TargetSelector: "#settings-panel",
		Position:       models.PositionAuto,
		PageURLPattern: "/settings",
		IsActive:       true,
	}))

	// Tour with an unrestricted step, visible everywhere.
	everywhere := newTestTour("everywhere-tour")
	require.NoError(t, repo.Create(ctx, everywhere))
	require.NoError(t, stepRepo.Create(ctx, &models.Step{
		TourID:         everywhere.ID,
		Title:          "Global intro",
		TargetSelector: "#nav",
		Position:       models.PositionAuto,
		IsActive:       true,
	}))

	// Tour whose only step is inactive drops out entirely.
	dormant := newTestTour("dormant-tour")
	require.NoError(t, repo.Create(ctx, dormant))
	require.NoError(t, stepRepo.Create(ctx, &models.Step{
		TourID:         dormant.ID,
		Title:          "Never shown",
		TargetSelector: "#hidden",
		Position:       models.PositionAuto,
		IsActive:       false,
	}))

	tours, err := repo.ListActiveForPage(ctx, "/app/dashboard", 0)
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, "everywhere-tour", tours[0].Name)

	tours, err = repo.ListActiveForPage(ctx, "/app/settings/profile", 0)
	require.NoError(t, err)
	assert.Len(t, tours, 2)
}

func TestTourRepository_ListActiveForPage_ExcludesPermanentSkips(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)
	stepRepo := NewStepRepository()
	trackingRepo := NewTrackingRepository()

	tour := newTestTour("skippable-tour")
	require.NoError(t, repo.Create(ctx, tour))
	require.NoError(t, stepRepo.Create(ctx, &models.Step{
		TourID:         tour.ID,
		Title:          "Step one",
		TargetSelector: "#one",
		Position:       models.PositionAuto,
		IsActive:       true,
	}))

	require.NoError(t, trackingRepo.Upsert(ctx, 42, tour.ID, "/app", models.StatusSkippedPermanent, 0))

	// The skipping user no longer sees the tour.
	tours, err := repo.ListActiveForPage(ctx, "/app", 42)
	require.NoError(t, err)
	assert.Empty(t, tours)

	// Other users still do, as does the anonymous (zero) viewer.
	tours, err = repo.ListActiveForPage(ctx, "/app", 7)
	require.NoError(t, err)
	assert.Len(t, tours, 1)

	tours, err = repo.ListActiveForPage(ctx, "/app", 0)
	require.NoError(t, err)
	assert.Len(t, tours, 1)
}

func TestTourRepository_Update(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	tour := newTestTour("renameme")
	require.NoError(t, repo.Create(ctx, tour))

	name := "renamed"
	inactive := false
	err := repo.Update(ctx, tour.ID, &models.TourUpdate{Name: &name, IsActive: &inactive})
	require.NoError(t, err)

	got, err := repo.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.IsActive)
	// Untouched fields survive a partial update.
	assert.Equal(t, "A test walkthrough", got.Description)
	assert.True(t, got.ShowProgress)
}

func TestTourRepository_Update_Errors(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)

	err := repo.Update(ctx, 1, &models.TourUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyUpdate)

	name := "ghost"
	err = repo.Update(ctx, 999999, &models.TourUpdate{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTourRepository_Delete_Cascades(t *testing.T) {
	ctx, repo := setupTourRepoTest(t)
	stepRepo := NewStepRepository()
	trackingRepo := NewTrackingRepository()

	tour := newTestTour("doomed")
	require.NoError(t, repo.Create(ctx, tour))

	step := &models.Step{
		TourID:         tour.ID,
		Title:          "Doomed step",
		TargetSelector: "#x",
		Position:       models.PositionAuto,
		IsActive:       true,
	}
	require.NoError(t, stepRepo.Create(ctx, step))
	require.NoError(t, trackingRepo.Upsert(ctx, 42, tour.ID, "/app", models.StatusInProgress, 1))

	require.NoError(t, repo.Delete(ctx, tour.ID))

	_, err := repo.Get(ctx, tour.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = stepRepo.Get(ctx, step.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = trackingRepo.Get(ctx, 42, tour.ID, "/app")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, tour.ID), apperrors.ErrNotFound)
}
