package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/repositories"
)

// SeedTour is one tour definition in a seed file.
type SeedTour struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	TriggerType  string     `yaml:"trigger_type"`
	TriggerValue string     `yaml:"trigger_value"`
	ShowProgress *bool      `yaml:"show_progress"`
	Active       *bool      `yaml:"active"`
	Steps        []SeedStep `yaml:"steps"`
}

// SeedStep is one step definition in a seed file.
type SeedStep struct {
	Title          string `yaml:"title"`
	Content        string `yaml:"content"`
	TargetSelector string `yaml:"target_selector"`
	Position       string `yaml:"position"`
	PageURLPattern string `yaml:"page_url_pattern"`
}

// Seeder creates tours from a YAML file at startup. Tours are keyed by name,
// so seeding is idempotent: an existing tour is left untouched.
type Seeder struct {
	tours  repositories.TourRepository
	steps  repositories.StepRepository
	logger *zap.Logger
}

// NewSeeder creates a new seeder.
func NewSeeder(tours repositories.TourRepository, steps repositories.StepRepository, logger *zap.Logger) *Seeder {
	return &Seeder{
		tours:  tours,
		steps:  steps,
		logger: logger.Named("seeder"),
	}
}

// SeedFromFile loads the YAML seed file and creates any tour not already
// present. Returns the number of tours created.
func (s *Seeder) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seeds []SeedTour
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	created := 0
	for _, seed := range seeds {
		if seed.Name == "" {
			return created, fmt.Errorf("%w: seed tour without a name", apperrors.ErrValidation)
		}

		_, err := s.tours.GetByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return created, err
		}

		if err := s.createSeedTour(ctx, seed); err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		s.logger.Info("Seeded tours", zap.Int("created", created))
	}
	return created, nil
}

func (s *Seeder) createSeedTour(ctx context.Context, seed SeedTour) error {
	tour := &models.Tour{
		Name:         seed.Name,
		Description:  seed.Description,
		TriggerType:  seed.TriggerType,
		TriggerValue: seed.TriggerValue,
		ShowProgress: seed.ShowProgress == nil || *seed.ShowProgress,
		IsActive:     seed.Active == nil || *seed.Active,
	}
	if tour.TriggerType == "" {
		tour.TriggerType = models.TriggerAutomatic
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return fmt.Errorf("failed to seed tour %q: %w", seed.Name, err)
	}

	for i, seedStep := range seed.Steps {
		step := &models.Step{
			TourID:         tour.ID,
			Order:          i + 1,
			Title:          seedStep.Title,
			Content:        seedStep.Content,
			TargetSelector: seedStep.TargetSelector,
			Position:       seedStep.Position,
			PageURLPattern: seedStep.PageURLPattern,
			IsActive:       true,
		}
		if step.Position == "" {
			step.Position = models.PositionAuto
		}
		if err := s.steps.Create(ctx, step); err != nil {
			return fmt.Errorf("failed to seed step %d of tour %q: %w", i+1, seed.Name, err)
		}
	}

	return nil
}
