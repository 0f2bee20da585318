package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/database"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// TourRepository defines the interface for tour data access.
type TourRepository interface {
	Create(ctx context.Context, tour *models.Tour) error
	Get(ctx context.Context, id int64) (*models.Tour, error)
	GetByName(ctx context.Context, name string) (*models.Tour, error)
	List(ctx context.Context) ([]*models.Tour, error)
	ListActive(ctx context.Context) ([]*models.Tour, error)
	ListActiveForPage(ctx context.Context, pageURL string, excludeSkippedBy int64) ([]*models.Tour, error)
	Update(ctx context.Context, id int64, update *models.TourUpdate) error
	Delete(ctx context.Context, id int64) error
}

const tourColumns = `tour_id, tour_name, tour_description, tour_trigger_type,
	tour_trigger_value, show_progress, is_active, created_at, updated_at`

// tourRepository implements TourRepository using PostgreSQL.
type tourRepository struct{}

// NewTourRepository creates a new tour repository.
func NewTourRepository() TourRepository {
	return &tourRepository{}
}

// Create inserts a new tour and fills in its generated id and timestamps.
func (r *tourRepository) Create(ctx context.Context, tour *models.Tour) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()
	tour.CreatedAt = now
	tour.UpdatedAt = now

	query := `
		INSERT INTO guidepost_tours
			(tour_name, tour_description, tour_trigger_type, tour_trigger_value,
			 show_progress, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING tour_id`

	err := scope.Conn.QueryRow(ctx, query,
		tour.Name,
		tour.Description,
		tour.TriggerType,
		tour.TriggerValue,
		tour.ShowProgress,
		tour.IsActive,
		tour.CreatedAt,
		tour.UpdatedAt,
	).Scan(&tour.ID)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", err)
	}

	return nil
}

// Get retrieves a tour by ID.
func (r *tourRepository) Get(ctx context.Context, id int64) (*models.Tour, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT ` + tourColumns + ` FROM guidepost_tours WHERE tour_id = $1`
	return scanTour(scope.Conn.QueryRow(ctx, query, id))
}

// GetByName retrieves a tour by its exact name. Used by the seeder to keep
// startup idempotent.
func (r *tourRepository) GetByName(ctx context.Context, name string) (*models.Tour, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT ` + tourColumns + ` FROM guidepost_tours WHERE tour_name = $1
		ORDER BY created_at ASC LIMIT 1`
	return scanTour(scope.Conn.QueryRow(ctx, query, name))
}

// List returns every tour, newest last, for the admin builder.
func (r *tourRepository) List(ctx context.Context) ([]*models.Tour, error) {
	return r.listWhere(ctx, "", nil)
}

// ListActive returns active tours ordered by creation time ascending.
func (r *tourRepository) ListActive(ctx context.Context) ([]*models.Tour, error) {
	return r.listWhere(ctx, "WHERE is_active", nil)
}

// ListActiveForPage returns active tours that have at least one active step
// matching pageURL (inner join, so a tour with no matching steps drops out).
// When excludeSkippedBy is non-zero, tours that user permanently skipped are
// excluded. Ordered by tour creation time ascending.
func (r *tourRepository) ListActiveForPage(ctx context.Context, pageURL string, excludeSkippedBy int64) ([]*models.Tour, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT DISTINCT t.tour_id, t.tour_name, t.tour_description, t.tour_trigger_type,
			t.tour_trigger_value, t.show_progress, t.is_active, t.created_at, t.updated_at
		FROM guidepost_tours t
		INNER JOIN guidepost_tour_steps s ON t.tour_id = s.tour_id
		WHERE t.is_active
		AND s.is_active
		AND (s.page_url_pattern = '' OR POSITION(s.page_url_pattern IN $1) > 0)`
	args := []any{pageURL}

	if excludeSkippedBy != 0 {
		query += `
		AND t.tour_id NOT IN (
			SELECT tour_id FROM guidepost_tour_user_tracking
			WHERE user_id = $2 AND status = 'skipped_permanent'
		)`
		args = append(args, excludeSkippedBy)
	}

	query += ` ORDER BY t.created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours for page: %w", err)
	}
	defer rows.Close()

	return scanTours(rows)
}

// Update applies a partial update. An empty update is rejected before
// touching the database.
func (r *tourRepository) Update(ctx context.Context, id int64, update *models.TourUpdate) error {
	if update.Empty() {
		return apperrors.ErrEmptyUpdate
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	sets := []string{}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("tour_name", *update.Name)
	}
	if update.Description != nil {
		add("tour_description", *update.Description)
	}
	if update.TriggerType != nil {
		add("tour_trigger_type", *update.TriggerType)
	}
	if update.TriggerValue != nil {
		add("tour_trigger_value", *update.TriggerValue)
	}
	if update.ShowProgress != nil {
		add("show_progress", *update.ShowProgress)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	add("updated_at", time.Now())

	query := fmt.Sprintf("UPDATE guidepost_tours SET %s WHERE tour_id = $1", strings.Join(sets, ", "))

	result, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a tour by ID. Steps and tracking records are removed via
// ON DELETE CASCADE.
func (r *tourRepository) Delete(ctx context.Context, id int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM guidepost_tours WHERE tour_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *tourRepository) listWhere(ctx context.Context, where string, args []any) ([]*models.Tour, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT ` + tourColumns + ` FROM guidepost_tours ` + where + ` ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	return scanTours(rows)
}

func scanTour(row pgx.Row) (*models.Tour, error) {
	var tour models.Tour
	err := row.Scan(
		&tour.ID,
		&tour.Name,
		&tour.Description,
		&tour.TriggerType,
		&tour.TriggerValue,
		&tour.ShowProgress,
		&tour.IsActive,
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &tour, nil
}

func scanTours(rows pgx.Rows) ([]*models.Tour, error) {
	var tours []*models.Tour
	for rows.Next() {
		var tour models.Tour
		if err := rows.Scan(
			&tour.ID,
			&tour.Name,
			&tour.Description,
			&tour.TriggerType,
			&tour.TriggerValue,
			&tour.ShowProgress,
			&tour.IsActive,
			&tour.CreatedAt,
			&tour.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, &tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tours: %w", err)
	}
	return tours, nil
}

// Ensure tourRepository implements TourRepository at compile time.
var _ TourRepository = (*tourRepository)(nil)
