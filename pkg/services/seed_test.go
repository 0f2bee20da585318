package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

const seedFixture = `
- name: Getting Started
  description: First steps around the dashboard
  trigger_type: automatic
  steps:
    - title: Welcome
      content: This is your dashboard.
      target_selector: "#dashboard"
    - title: Reports
      content: Find your reports here.
      target_selector: "#reports"
      position: right
- name: Billing Walkthrough
  trigger_type: url_parameter
  trigger_value: billing
  active: false
  steps:
    - title: Invoices
      content: Invoices live here.
      target_selector: "#invoices"
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tours.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeeder_CreatesToursAndSteps(t *testing.T) {
	tourRepo := &mockTourRepo{}
	stepRepo := &mockStepRepo{}
	seeder := NewSeeder(tourRepo, stepRepo, zap.NewNop())

	created, err := seeder.SeedFromFile(context.Background(), writeSeedFile(t, seedFixture))
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, tourRepo.tours, 2)
	assert.Len(t, stepRepo.steps, 3)

	first := tourRepo.tours[0]
	assert.Equal(t, "Getting Started", first.Name)
	assert.True(t, first.ShowProgress)
	assert.True(t, first.IsActive)

	second := tourRepo.tours[1]
	assert.Equal(t, models.TriggerURLParameter, second.TriggerType)
	assert.Equal(t, "billing", second.TriggerValue)
	assert.False(t, second.IsActive)

	// Steps get sequential orders and the auto position default.
	assert.Equal(t, 1, stepRepo.steps[0].Order)
	assert.Equal(t, 2, stepRepo.steps[1].Order)
	assert.Equal(t, models.PositionAuto, stepRepo.steps[0].Position)
	assert.Equal(t, "right", stepRepo.steps[1].Position)
}

func TestSeeder_Idempotent(t *testing.T) {
	tourRepo := &mockTourRepo{}
	stepRepo := &mockStepRepo{}
	seeder := NewSeeder(tourRepo, stepRepo, zap.NewNop())
	path := writeSeedFile(t, seedFixture)

	_, err := seeder.SeedFromFile(context.Background(), path)
	require.NoError(t, err)

	created, err := seeder.SeedFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, tourRepo.tours, 2)
	assert.Len(t, stepRepo.steps, 3)
}

func TestSeeder_UnnamedTourRejected(t *testing.T) {
	seeder := NewSeeder(&mockTourRepo{}, &mockStepRepo{}, zap.NewNop())

	_, err := seeder.SeedFromFile(context.Background(), writeSeedFile(t, "- description: nameless\n"))
	assert.Error(t, err)
}

func TestSeeder_MissingFile(t *testing.T) {
	seeder := NewSeeder(&mockTourRepo{}, &mockStepRepo{}, zap.NewNop())

	_, err := seeder.SeedFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
