package service

import (
	"context"
	"fmt"
	"time"

	"tourguard-backend/internal/models"
	"tourguard-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToursRepo is the persistence surface the tour service needs.
type ToursRepo interface {
	Create(ctx context.Context, tour *models.Tour) error
	GetByID(ctx context.Context, id string) (*models.Tour, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Tour, error)
	Update(ctx context.Context, tour *models.Tour) error
	UpdateRoute(ctx context.Context, id string, route models.RouteData, now time.Time) error
	Delete(ctx context.Context, id string) error
	CheckIn(ctx context.Context, id string, now time.Time) error
	CheckOut(ctx context.Context, id string, now time.Time) error
}

// TourInput carries the user-editable tour fields.
type TourInput struct {
	Name             string                  `json:"name"`
	Description      string                  `json:"description"`
	StartLocation    string                  `json:"startLocation"`
	EndLocation      string                  `json:"endLocation"`
	StartTime        time.Time               `json:"startTime"`
	ExpectedEndTime  time.Time               `json:"expectedEndTime"`
	EmergencyContact models.EmergencyContact `json:"emergencyContact"`
	Equipment        []models.EquipmentItem  `json:"equipment"`
	Participants     []models.Participant    `json:"participants"`
}

// EmergencyData is the public bundle returned to emergency services.
type EmergencyData struct {
	TourInfo struct {
		ID              string            `json:"id"`
		Name            string            `json:"name"`
		Description     string            `json:"description,omitempty"`
		Status          models.TourStatus `json:"status"`
		StartTime       time.Time         `json:"startTime"`
		ExpectedEndTime time.Time         `json:"expectedEndTime"`
		CheckedIn       bool              `json:"checkedIn"`
		CheckedOut      bool              `json:"checkedOut"`
		CheckinTime     *time.Time        `json:"checkinTime,omitempty"`
		CheckoutTime    *time.Time        `json:"checkoutTime,omitempty"`
	} `json:"tourInfo"`
	EmergencyContact models.EmergencyContact `json:"emergencyContact"`
	Route            models.RouteData        `json:"route"`
	Participants     []models.Participant    `json:"participants"`
	Equipment        []models.EquipmentItem  `json:"equipment"`
}

// TourService implements tour CRUD and the check-in/check-out transitions.
// Ownership is enforced here: a tour that exists but belongs to someone else
// is reported as not found.
type TourService struct {
	tours  ToursRepo
	logger *zap.Logger
	now    func() time.Time
}

// NewTourService creates a tour service.
func NewTourService(tours ToursRepo, logger *zap.Logger) *TourService {
	return &TourService{
		tours:  tours,
		logger: logger,
		now:    time.Now,
	}
}

// Create registers a new tour in status planned.
func (s *TourService) Create(ctx context.Context, userID string, input TourInput) (*models.Tour, error) {
	now := s.now()

	tour := &models.Tour{
		ID:               uuid.New().String(),
		Name:             input.Name,
		Description:      input.Description,
		StartLocation:    input.StartLocation,
		EndLocation:      input.EndLocation,
		StartTime:        input.StartTime,
		ExpectedEndTime:  input.ExpectedEndTime,
		Status:           models.StatusPlanned,
		CreatedBy:        userID,
		EmergencyContact: input.EmergencyContact,
		Equipment:        input.Equipment,
		Participants:     input.Participants,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := tour.Validate(); err != nil {
		return nil, err
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return nil, fmt.Errorf("failed to create tour: %w", err)
	}

	s.logger.Info("Tour created",
		zap.String("tour_id", tour.ID),
		zap.String("user_id", userID),
	)

	return tour, nil
}

// Get returns a tour owned by the given user.
func (s *TourService) Get(ctx context.Context, id, userID string) (*models.Tour, error) {
	return s.getOwned(ctx, id, userID)
}

// List returns all tours of a user, newest first.
func (s *TourService) List(ctx context.Context, userID string) ([]*models.Tour, error) {
	return s.tours.ListByUser(ctx, userID)
}

// Update rewrites the editable fields of an owned tour.
func (s *TourService) Update(ctx context.Context, id, userID string, input TourInput) (*models.Tour, error) {
	tour, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	tour.Name = input.Name
	tour.Description = input.Description
	tour.StartLocation = input.StartLocation
	tour.EndLocation = input.EndLocation
	tour.StartTime = input.StartTime
	tour.ExpectedEndTime = input.ExpectedEndTime
	tour.EmergencyContact = input.EmergencyContact
	tour.Equipment = input.Equipment
	tour.Participants = input.Participants
	tour.UpdatedAt = s.now()

	if err := tour.Validate(); err != nil {
		return nil, err
	}

	if err := s.tours.Update(ctx, tour); err != nil {
		return nil, fmt.Errorf("failed to update tour: %w", err)
	}

	return tour, nil
}

// Delete removes an owned tour; it simply stops appearing in scans.
func (s *TourService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	return s.tours.Delete(ctx, id)
}

// CheckIn applies the planned -> active transition for an owned tour.
func (s *TourService) CheckIn(ctx context.Context, id, userID string) (*models.Tour, error) {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	if err := s.tours.CheckIn(ctx, id, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("Tour checked in",
		zap.String("tour_id", id),
	)

	return s.tours.GetByID(ctx, id)
}

// CheckOut applies the active -> completed transition for an owned tour.
func (s *TourService) CheckOut(ctx context.Context, id, userID string) (*models.Tour, error) {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	if err := s.tours.CheckOut(ctx, id, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("Tour checked out",
		zap.String("tour_id", id),
	)

	return s.tours.GetByID(ctx, id)
}

// AttachGPX parses uploaded GPX content and stores the resulting route on an
// owned tour.
func (s *TourService) AttachGPX(ctx context.Context, id, userID string, content []byte) (*models.RouteData, error) {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	route, err := ParseGPX(content)
	if err != nil {
		return nil, err
	}

	if err := s.tours.UpdateRoute(ctx, id, *route, s.now()); err != nil {
		return nil, fmt.Errorf("failed to store route: %w", err)
	}

	return route, nil
}

// EmergencyInfo returns the public emergency bundle for a tour. No ownership
// check: emergency services reach this through the link in the alert SMS.
func (s *TourService) EmergencyInfo(ctx context.Context, id string) (*EmergencyData, error) {
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data := &EmergencyData{
		EmergencyContact: tour.EmergencyContact,
		Route:            tour.Route,
		Participants:     tour.Participants,
		Equipment:        tour.Equipment,
	}
	data.TourInfo.ID = tour.ID
	data.TourInfo.Name = tour.Name
	data.TourInfo.Description = tour.Description
	data.TourInfo.Status = tour.Status
	data.TourInfo.StartTime = tour.StartTime
	data.TourInfo.ExpectedEndTime = tour.ExpectedEndTime
	data.TourInfo.CheckedIn = tour.CheckedIn
	data.TourInfo.CheckedOut = tour.CheckedOut
	data.TourInfo.CheckinTime = tour.CheckinTime
	data.TourInfo.CheckoutTime = tour.CheckoutTime

	return data, nil
}

func (s *TourService) getOwned(ctx context.Context, id, userID string) (*models.Tour, error) {
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tour.CreatedBy != userID {
		// Do not leak existence of other users' tours.
		return nil, repository.ErrTourNotFound
	}
	return tour, nil
}
