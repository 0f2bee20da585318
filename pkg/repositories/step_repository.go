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

// StepRepository defines the interface for tour step data access.
type StepRepository interface {
	Create(ctx context.Context, step *models.Step) error
	Get(ctx context.Context, id int64) (*models.Step, error)
	// ListForTour returns a tour's active steps ordered by step_order. When
	// pageURL is non-empty, only steps whose pattern is empty or a substring
	// of pageURL are returned.
	ListForTour(ctx context.Context, tourID int64, pageURL string) ([]*models.Step, error)
	// ListAllForTour returns every step of a tour, active or not, for the
	// admin builder.
	ListAllForTour(ctx context.Context, tourID int64) ([]*models.Step, error)
	Update(ctx context.Context, id int64, update *models.StepUpdate) error
	Delete(ctx context.Context, id int64) error
	// Reorder rewrites each step's order to its 1-based position in ids.
	// Last writer wins; steps not listed keep their order.
	Reorder(ctx context.Context, tourID int64, ids []int64) error
	// DuplicateOrders returns the order values used by more than one active
	// step of the tour. Non-empty means the advisory uniqueness is violated.
	DuplicateOrders(ctx context.Context, tourID int64) ([]int, error)
}

const stepColumns = `step_id, tour_id, step_order, step_title, step_content,
	target_selector, step_position, page_url_pattern, is_active, created_at, updated_at`

// stepRepository implements StepRepository using PostgreSQL.
type stepRepository struct{}

// NewStepRepository creates a new step repository.
func NewStepRepository() StepRepository {
	return &stepRepository{}
}

// Create inserts a new step. A zero Order is replaced with
// max(order for tour) + 1.
func (r *stepRepository) Create(ctx context.Context, step *models.Step) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()
	step.CreatedAt = now
	step.UpdatedAt = now

	if step.Order == 0 {
		next, err := r.nextOrder(ctx, step.TourID)
		if err != nil {
			return err
		}
		step.Order = next
	}

	query := `
		INSERT INTO guidepost_tour_steps
			(tour_id, step_order, step_title, step_content, target_selector,
			 step_position, page_url_pattern, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING step_id`

	err := scope.Conn.QueryRow(ctx, query,
		step.TourID,
		step.Order,
		step.Title,
		step.Content,
		step.TargetSelector,
		step.Position,
		step.PageURLPattern,
		step.IsActive,
		step.CreatedAt,
		step.UpdatedAt,
	).Scan(&step.ID)
	if err != nil {
		return fmt.Errorf("failed to create step: %w", err)
	}

	return nil
}

// Get retrieves a step by ID.
func (r *stepRepository) Get(ctx context.Context, id int64) (*models.Step, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT ` + stepColumns + ` FROM guidepost_tour_steps WHERE step_id = $1`

	var step models.Step
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&step.ID,
		&step.TourID,
		&step.Order,
		&step.Title,
		&step.Content,
		&step.TargetSelector,
		&step.Position,
		&step.PageURLPattern,
		&step.IsActive,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return &step, nil
}

// ListForTour implements the page-filtered active step listing.
func (r *stepRepository) ListForTour(ctx context.Context, tourID int64, pageURL string) ([]*models.Step, error) {
	where := "tour_id = $1 AND is_active"
	args := []any{tourID}
	if pageURL != "" {
		where += " AND (page_url_pattern = '' OR POSITION(page_url_pattern IN $2) > 0)"
		args = append(args, pageURL)
	}
	return r.listWhere(ctx, where, args)
}

// ListAllForTour returns every step of the tour regardless of active flag.
func (r *stepRepository) ListAllForTour(ctx context.Context, tourID int64) ([]*models.Step, error) {
	return r.listWhere(ctx, "tour_id = $1", []any{tourID})
}

// Update applies a partial update. An empty update is rejected before
// touching the database.
func (r *stepRepository) Update(ctx context.Context, id int64, update *models.StepUpdate) error {
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

	if update.Order != nil {
		add("step_order", *update.Order)
	}
	if update.Title != nil {
		add("step_title", *update.Title)
	}
	if update.Content != nil {
		add("step_content", *update.Content)
	}
	if update.TargetSelector != nil {
		add("target_selector", *update.TargetSelector)
	}
	if update.Position != nil {
		add("step_position", *update.Position)
	}
	if update.PageURLPattern != nil {
		add("page_url_pattern", *update.PageURLPattern)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	add("updated_at", time.Now())

	query := fmt.Sprintf("UPDATE guidepost_tour_steps SET %s WHERE step_id = $1", strings.Join(sets, ", "))

	result, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a step by ID.
func (r *stepRepository) Delete(ctx context.Context, id int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM guidepost_tour_steps WHERE step_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Reorder rewrites step orders to dense 1-based positions.
func (r *stepRepository) Reorder(ctx context.Context, tourID int64, ids []int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE guidepost_tour_steps
		SET step_order = $3, updated_at = NOW()
		WHERE step_id = $1 AND tour_id = $2`

	for position, id := range ids {
		if _, err := scope.Conn.Exec(ctx, query, id, tourID, position+1); err != nil {
			return fmt.Errorf("failed to reorder step %d: %w", id, err)
		}
	}

	return nil
}

// DuplicateOrders reports order values shared by multiple active steps.
func (r *stepRepository) DuplicateOrders(ctx context.Context, tourID int64) ([]int, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT step_order FROM guidepost_tour_steps
		WHERE tour_id = $1 AND is_active
		GROUP BY step_order
		HAVING COUNT(*) > 1
		ORDER BY step_order`

	rows, err := scope.Conn.Query(ctx, query, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to check step orders: %w", err)
	}
	defer rows.Close()

	var orders []int
	for rows.Next() {
		var order int
		if err := rows.Scan(&order); err != nil {
			return nil, fmt.Errorf("failed to scan step order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read step orders: %w", err)
	}
	return orders, nil
}

func (r *stepRepository) nextOrder(ctx context.Context, tourID int64) (int, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no database scope in context")
	}

	var next int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COALESCE(MAX(step_order), 0) + 1 FROM guidepost_tour_steps WHERE tour_id = $1`,
		tourID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next step order: %w", err)
	}
	return next, nil
}

func (r *stepRepository) listWhere(ctx context.Context, where string, args []any) ([]*models.Step, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT ` + stepColumns + ` FROM guidepost_tour_steps WHERE ` + where + ` ORDER BY step_order ASC`

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.Step
	for rows.Next() {
		var step models.Step
		if err := rows.Scan(
			&step.ID,
			&step.TourID,
			&step.Order,
			&step.Title,
			&step.Content,
			&step.TargetSelector,
			&step.Position,
			&step.PageURLPattern,
			&step.IsActive,
			&step.CreatedAt,
			&step.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	return steps, nil
}

// Ensure stepRepository implements StepRepository at compile time.
var _ StepRepository = (*stepRepository)(nil)
