package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourguard-backend/internal/models"

	"go.uber.org/zap"
)

// ErrTourNotFound is returned when no tour matches the given id.
var ErrTourNotFound = errors.New("tour not found")

// ToursRepository persists tours in Postgres.
type ToursRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewToursRepository creates a tours repository.
func NewToursRepository(db *sql.DB, logger *zap.Logger) *ToursRepository {
	return &ToursRepository{
		db:     db,
		logger: logger,
	}
}

const tourColumns = `
	id,
	name,
	description,
	start_location,
	end_location,
	start_time,
	expected_end_time,
	actual_end_time,
	status,
	created_by,
	emergency_contact,
	route_data,
	equipment,
	participants,
	checked_in,
	checked_out,
	checkin_time,
	checkout_time,
	created_at,
	updated_at
`

// Create inserts a new tour. The tour must already be validated.
func (r *ToursRepository) Create(ctx context.Context, tour *models.Tour) error {
	if tour == nil {
		return fmt.Errorf("tour is required")
	}

	contactJSON, err := json.Marshal(tour.EmergencyContact)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency contact: %w", err)
	}
	routeJSON, err := json.Marshal(tour.Route)
	if err != nil {
		return fmt.Errorf("failed to marshal route data: %w", err)
	}
	equipmentJSON, err := marshalSlice(tour.Equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}
	participantsJSON, err := marshalSlice(tour.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}

	query := `
		INSERT INTO tours (` + tourColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.db.ExecContext(ctx,
		query,
		tour.ID,
		tour.Name,
		tour.Description,
		tour.StartLocation,
		tour.EndLocation,
		tour.StartTime,
		tour.ExpectedEndTime,
		tour.ActualEndTime,
		tour.Status,
		tour.CreatedBy,
		contactJSON,
		routeJSON,
		equipmentJSON,
		participantsJSON,
		tour.CheckedIn,
		tour.CheckedOut,
		tour.CheckinTime,
		tour.CheckoutTime,
		tour.CreatedAt,
		tour.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", err)
	}

	return nil
}

// GetByID fetches a single tour.
func (r *ToursRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	if id == "" {
		return nil, fmt.Errorf("tour id is required")
	}

	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`

	tour, err := scanTour(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTourNotFound
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}

	return tour, nil
}

// ListByUser returns all tours created by the given user, newest first.
func (r *ToursRepository) ListByUser(ctx context.Context, userID string) ([]*models.Tour, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	query := `SELECT ` + tourColumns + ` FROM tours WHERE created_by = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	var tours []*models.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tours: %w", err)
	}

	return tours, nil
}

// Update rewrites the mutable fields of a tour.
func (r *ToursRepository) Update(ctx context.Context, tour *models.Tour) error {
	if tour == nil || tour.ID == "" {
		return fmt.Errorf("tour with id is required")
	}

	contactJSON, err := json.Marshal(tour.EmergencyContact)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency contact: %w", err)
	}
	routeJSON, err := json.Marshal(tour.Route)
	if err != nil {
		return fmt.Errorf("failed to marshal route data: %w", err)
	}
	equipmentJSON, err := marshalSlice(tour.Equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}
	participantsJSON, err := marshalSlice(tour.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}

	query := `
		UPDATE tours SET
			name = $2,
			description = $3,
			start_location = $4,
			end_location = $5,
			start_time = $6,
			expected_end_time = $7,
			emergency_contact = $8,
			route_data = $9,
			equipment = $10,
			participants = $11,
			updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx,
		query,
		tour.ID,
		tour.Name,
		tour.Description,
		tour.StartLocation,
		tour.EndLocation,
		tour.StartTime,
		tour.ExpectedEndTime,
		contactJSON,
		routeJSON,
		equipmentJSON,
		participantsJSON,
		tour.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTourNotFound
	}

	return nil
}

// UpdateRoute replaces the route data of a tour (GPX upload).
func (r *ToursRepository) UpdateRoute(ctx context.Context, id string, route models.RouteData, now time.Time) error {
	routeJSON, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal route data: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE tours SET route_data = $2, updated_at = $3 WHERE id = $1`,
		id, routeJSON, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTourNotFound
	}

	return nil
}

// Delete removes a tour. Deleted tours simply stop appearing in scans.
func (r *ToursRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTourNotFound
	}

	return nil
}

// CheckIn applies planned -> active as a conditional update. The WHERE clause
// carries the state-machine guard; zero affected rows means the transition
// was not allowed.
func (r *ToursRepository) CheckIn(ctx context.Context, id string, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tours
		 SET status = $2, checked_in = TRUE, checkin_time = $3, updated_at = $3
		 WHERE id = $1 AND status = $4 AND checked_in = FALSE`,
		id, models.StatusActive, now, models.StatusPlanned,
	)
	if err != nil {
		return fmt.Errorf("failed to check in tour: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInvalidTransition
	}

	return nil
}

// CheckOut applies active -> completed as a conditional update.
func (r *ToursRepository) CheckOut(ctx context.Context, id string, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tours
		 SET status = $2, checked_out = TRUE, checkout_time = $3, actual_end_time = $3, updated_at = $3
		 WHERE id = $1 AND status = $4 AND checked_in = TRUE AND checked_out = FALSE`,
		id, models.StatusCompleted, now, models.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to check out tour: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInvalidTransition
	}

	return nil
}

// FindOverdueCandidates returns tours that are checked in, not checked out,
// not completed, and strictly past their expected end time.
func (r *ToursRepository) FindOverdueCandidates(ctx context.Context, now time.Time) ([]*models.Tour, error) {
	query := `
		SELECT ` + tourColumns + `
		FROM tours
		WHERE status <> $1
		  AND checked_in = TRUE
		  AND checked_out = FALSE
		  AND expected_end_time < $2
		ORDER BY expected_end_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.StatusCompleted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue candidates: %w", err)
	}
	defer rows.Close()

	var tours []*models.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return tours, nil
}

// MarkOverdueIfNotAlready atomically transitions a tour to overdue. It
// returns true iff this call performed the transition; false when the tour is
// already overdue or absent. The conditional WHERE is the concurrency
// control between overlapping ticks and a concurrent check-out.
func (r *ToursRepository) MarkOverdueIfNotAlready(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tours
		 SET status = $2, updated_at = NOW()
		 WHERE id = $1
		   AND status <> $2
		   AND status <> $3
		   AND checked_in = TRUE
		   AND checked_out = FALSE`,
		id, models.StatusOverdue, models.StatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark tour overdue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTour(row rowScanner) (*models.Tour, error) {
	var (
		tour             models.Tour
		contactJSON      []byte
		routeJSON        []byte
		equipmentJSON    []byte
		participantsJSON []byte
	)

	err := row.Scan(
		&tour.ID,
		&tour.Name,
		&tour.Description,
		&tour.StartLocation,
		&tour.EndLocation,
		&tour.StartTime,
		&tour.ExpectedEndTime,
		&tour.ActualEndTime,
		&tour.Status,
		&tour.CreatedBy,
		&contactJSON,
		&routeJSON,
		&equipmentJSON,
		&participantsJSON,
		&tour.CheckedIn,
		&tour.CheckedOut,
		&tour.CheckinTime,
		&tour.CheckoutTime,
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &tour.EmergencyContact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal emergency contact: %w", err)
		}
	}
	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &tour.Route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route data: %w", err)
		}
	}
	if len(equipmentJSON) > 0 {
		if err := json.Unmarshal(equipmentJSON, &tour.Equipment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal equipment: %w", err)
		}
	}
	if len(participantsJSON) > 0 {
		if err := json.Unmarshal(participantsJSON, &tour.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
	}

	return &tour, nil
}

// marshalSlice keeps empty slices as JSON arrays instead of null.
func marshalSlice[T any](items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}
