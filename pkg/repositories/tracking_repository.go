package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/database"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// TrackingRepository defines the interface for user tour tracking data access.
type TrackingRepository interface {
	// Upsert records an interaction for the (userID, tourID, pageURL) key.
	// A missing record is inserted; an existing one gets the new status, and
	// last_step_completed is raised only when the status is in_progress and
	// the new value exceeds the stored one. The whole operation is a single
	// atomic statement, so concurrent reporters cannot clobber each other.
	Upsert(ctx context.Context, userID, tourID int64, pageURL, status string, stepCompleted int) error
	Get(ctx context.Context, userID, tourID int64, pageURL string) (*models.TrackingRecord, error)
	// Stats aggregates record count and distinct users per status. A zero
	// tourID aggregates across all tours.
	Stats(ctx context.Context, tourID int64) ([]*models.StatusStat, error)
}

// trackingRepository implements TrackingRepository using PostgreSQL.
type trackingRepository struct{}

// NewTrackingRepository creates a new tracking repository.
func NewTrackingRepository() TrackingRepository {
	return &trackingRepository{}
}

// Upsert implements the atomic insert-or-update keyed on the composite
// unique index.
func (r *trackingRepository) Upsert(ctx context.Context, userID, tourID int64, pageURL, status string, stepCompleted int) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO guidepost_tour_user_tracking
			(user_id, tour_id, page_url, status, last_step_completed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT user_tour_page DO UPDATE
		SET status = EXCLUDED.status,
		    last_updated = NOW(),
		    last_step_completed = CASE
		        WHEN EXCLUDED.status = 'in_progress'
		        THEN GREATEST(guidepost_tour_user_tracking.last_step_completed, EXCLUDED.last_step_completed)
		        ELSE guidepost_tour_user_tracking.last_step_completed
		    END`

	_, err := scope.Conn.Exec(ctx, query, userID, tourID, pageURL, status, stepCompleted)
	if err != nil {
		return fmt.Errorf("failed to upsert tracking record: %w", err)
	}

	return nil
}

// Get retrieves the tracking record for one (user, tour, page) triple.
func (r *trackingRepository) Get(ctx context.Context, userID, tourID int64, pageURL string) (*models.TrackingRecord, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT tracking_id, user_id, tour_id, page_url, status,
			last_step_completed, first_viewed, last_updated
		FROM guidepost_tour_user_tracking
		WHERE user_id = $1 AND tour_id = $2 AND page_url = $3`

	var record models.TrackingRecord
	err := scope.Conn.QueryRow(ctx, query, userID, tourID, pageURL).Scan(
		&record.ID,
		&record.UserID,
		&record.TourID,
		&record.PageURL,
		&record.Status,
		&record.LastStepCompleted,
		&record.FirstViewed,
		&record.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tracking record: %w", err)
	}

	return &record, nil
}

// Stats aggregates tracking records grouped by status.
func (r *trackingRepository) Stats(ctx context.Context, tourID int64) ([]*models.StatusStat, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT status, COUNT(*), COUNT(DISTINCT user_id)
		FROM guidepost_tour_user_tracking`
	var args []any
	if tourID != 0 {
		query += ` WHERE tour_id = $1`
		args = append(args, tourID)
	}
	query += ` GROUP BY status ORDER BY status`

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tour stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.StatusStat
	for rows.Next() {
		var stat models.StatusStat
		if err := rows.Scan(&stat.Status, &stat.Count, &stat.UniqueUsers); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		stats = append(stats, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return stats, nil
}

// Ensure trackingRepository implements TrackingRepository at compile time.
var _ TrackingRepository = (*trackingRepository)(nil)
