package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tourguard-backend/internal/models"
)

func setupMockToursDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ToursRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewToursRepository(db, zap.NewNop())

	return db, mock, repo
}

func tourRowColumns() []string {
	return []string{
		"id", "name", "description", "start_location", "end_location",
		"start_time", "expected_end_time", "actual_end_time", "status",
		"created_by", "emergency_contact", "route_data", "equipment",
		"participants", "checked_in", "checked_out", "checkin_time",
		"checkout_time", "created_at", "updated_at",
	}
}

func addTourRow(rows *sqlmock.Rows, id string, status models.TourStatus, expectedEnd time.Time, checkedIn, checkedOut bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "Watzmann Überschreitung", "", "Wimbachbrücke", "Königssee",
		expectedEnd.Add(-8*time.Hour), expectedEnd, nil, status,
		"user-1", []byte(`{"name":"Maria Huber","phone":"+49 170 1234567"}`),
		[]byte(`{"waypoints":[]}`), []byte(`[]`),
		[]byte(`[{"id":"p1","name":"Hans","isGuide":true}]`),
		checkedIn, checkedOut, nil, nil, now, now,
	)
}

func TestGetByID_Success(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	tourID := uuid.New().String()
	expectedEnd := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	rows := addTourRow(sqlmock.NewRows(tourRowColumns()), tourID, models.StatusActive, expectedEnd, true, false)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tourID).
		WillReturnRows(rows)

	tour, err := repo.GetByID(context.Background(), tourID)

	require.NoError(t, err)
	assert.Equal(t, tourID, tour.ID)
	assert.Equal(t, models.StatusActive, tour.Status)
	assert.Equal(t, "Maria Huber", tour.EmergencyContact.Name)
	assert.Equal(t, "+49 170 1234567", tour.EmergencyContact.Phone)
	assert.Len(t, tour.Participants, 1)
	assert.True(t, tour.CheckedIn)
	assert.False(t, tour.CheckedOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	tourID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(tourID).
		WillReturnError(sql.ErrNoRows)

	tour, err := repo.GetByID(context.Background(), tourID)

	assert.ErrorIs(t, err, ErrTourNotFound)
	assert.Nil(t, tour)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverdueCandidates(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	now := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	expectedEnd := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	rows := addTourRow(sqlmock.NewRows(tourRowColumns()), "tour-a", models.StatusActive, expectedEnd, true, false)
	rows = addTourRow(rows, "tour-c", models.StatusOverdue, expectedEnd, true, false)

	mock.ExpectQuery(`SELECT(.|\n)*FROM tours(.|\n)*expected_end_time < \$2`).
		WithArgs(models.StatusCompleted, now).
		WillReturnRows(rows)

	tours, err := repo.FindOverdueCandidates(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, tours, 2)
	assert.Equal(t, "tour-a", tours[0].ID)
	assert.Equal(t, models.StatusOverdue, tours[1].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverdueCandidates_QueryError(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	tours, err := repo.FindOverdueCandidates(context.Background(), time.Now())

	assert.Error(t, err)
	assert.Nil(t, tours)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOverdueIfNotAlready_Transitioned(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusOverdue, models.StatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.MarkOverdueIfNotAlready(context.Background(), "tour-a")

	require.NoError(t, err)
	assert.True(t, transitioned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOverdueIfNotAlready_AlreadyOverdue(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	// Guard in the WHERE clause rejects the update: zero rows affected.
	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-c", models.StatusOverdue, models.StatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	transitioned, err := repo.MarkOverdueIfNotAlready(context.Background(), "tour-c")

	require.NoError(t, err)
	assert.False(t, transitioned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOverdueIfNotAlready_StoreError(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusOverdue, models.StatusCompleted).
		WillReturnError(sql.ErrConnDone)

	transitioned, err := repo.MarkOverdueIfNotAlready(context.Background(), "tour-a")

	assert.Error(t, err)
	assert.False(t, transitioned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIn_Success(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusActive, now, models.StatusPlanned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CheckIn(context.Background(), "tour-a", now)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIn_AlreadyActive(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusActive, now, models.StatusPlanned).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CheckIn(context.Background(), "tour-a", now)

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOut_Success(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusCompleted, now, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CheckOut(context.Background(), "tour-a", now)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOut_NotCheckedIn(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectExec(`UPDATE tours`).
		WithArgs("tour-a", models.StatusCompleted, now, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CheckOut(context.Background(), "tour-a", now)

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTour(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	tour := &models.Tour{
		ID:              uuid.New().String(),
		Name:            "Zugspitze über Höllental",
		StartTime:       start,
		ExpectedEndTime: start.Add(10 * time.Hour),
		Status:          models.StatusPlanned,
		CreatedBy:       "user-1",
		EmergencyContact: models.EmergencyContact{
			Name:  "Maria Huber",
			Phone: "+49 170 1234567",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO tours`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), tour)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTour_NotFound(t *testing.T) {
	db, mock, repo := setupMockToursDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM tours`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrTourNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
