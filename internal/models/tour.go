package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TourStatus is the lifecycle state of a tour.
type TourStatus string

const (
	StatusPlanned   TourStatus = "planned"
	StatusActive    TourStatus = "active"
	StatusCompleted TourStatus = "completed"
	StatusOverdue   TourStatus = "overdue"
	// StatusEmergency is reserved for manual escalation; no code path sets it.
	StatusEmergency TourStatus = "emergency"
)

// ErrInvalidTransition is returned when a status change violates the
// lifecycle state machine. The tour is left unchanged.
var ErrInvalidTransition = errors.New("invalid tour status transition")

// allowedTransitions is the authoritative edge list of the tour lifecycle.
// completed is terminal; overdue and emergency require external intervention.
var allowedTransitions = map[TourStatus][]TourStatus{
	StatusPlanned: {StatusActive},
	StatusActive:  {StatusCompleted, StatusOverdue},
}

// CanTransitionTo reports whether the state machine allows moving from s to target.
func (s TourStatus) CanTransitionTo(target TourStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the defined tour statuses.
func (s TourStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusCompleted, StatusOverdue, StatusEmergency:
		return true
	}
	return false
}

// EmergencyContact is the person alerted when a tour goes overdue.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Participant is a member of the tour party.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Experience string `json:"experience,omitempty"` // beginner, intermediate, advanced, expert
	IsGuide    bool   `json:"isGuide"`
}

// Waypoint is a single point on a tour route.
type Waypoint struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Type      string   `json:"type"` // start, checkpoint, summit, end, emergency
}

// RouteData is the parsed route attached to a tour.
type RouteData struct {
	Waypoints         []Waypoint `json:"waypoints"`
	GPXData           string     `json:"gpxData,omitempty"`
	TotalDistanceKm   float64    `json:"totalDistance,omitempty"`
	EstimatedDuration int        `json:"estimatedDuration,omitempty"` // minutes
	Difficulty        string     `json:"difficulty,omitempty"`
	Description       string     `json:"description,omitempty"`
}

// EquipmentItem is a packing-list entry for a tour.
type EquipmentItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"` // clothing, safety, navigation, food, shelter, tools, medical, communication
	IsEssential bool   `json:"isEssential"`
	Quantity    int    `json:"quantity,omitempty"`
}

// Tour is the unit of tracking (maps to the tours table).
type Tour struct {
	ID               string           `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Description      string           `json:"description,omitempty" db:"description"`
	StartLocation    string           `json:"startLocation" db:"start_location"`
	EndLocation      string           `json:"endLocation" db:"end_location"`
	StartTime        time.Time        `json:"startTime" db:"start_time"`
	ExpectedEndTime  time.Time        `json:"expectedEndTime" db:"expected_end_time"`
	ActualEndTime    *time.Time       `json:"actualEndTime,omitempty" db:"actual_end_time"`
	Status           TourStatus       `json:"status" db:"status"`
	CreatedBy        string           `json:"createdBy" db:"created_by"`
	EmergencyContact EmergencyContact `json:"emergencyContact" db:"emergency_contact"` // JSONB
	Route            RouteData        `json:"route" db:"route_data"`                   // JSONB
	Equipment        []EquipmentItem  `json:"equipment" db:"equipment"`                // JSONB
	Participants     []Participant    `json:"participants" db:"participants"`          // JSONB
	CheckedIn        bool             `json:"checkedIn" db:"checked_in"`
	CheckedOut       bool             `json:"checkedOut" db:"checked_out"`
	CheckinTime      *time.Time       `json:"checkinTime,omitempty" db:"checkin_time"`
	CheckoutTime     *time.Time       `json:"checkoutTime,omitempty" db:"checkout_time"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// Validate enforces the tour invariants at construction time.
func (t *Tour) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tour name is required")
	}
	if t.StartTime.IsZero() || t.ExpectedEndTime.IsZero() {
		return fmt.Errorf("start time and expected end time are required")
	}
	if !t.ExpectedEndTime.After(t.StartTime) {
		return fmt.Errorf("expected end time must be after start time")
	}
	if strings.TrimSpace(t.EmergencyContact.Name) == "" {
		return fmt.Errorf("emergency contact name is required")
	}
	if !ValidPhone(t.EmergencyContact.Phone) {
		return fmt.Errorf("emergency contact phone is invalid")
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("unknown tour status %q", t.Status)
	}
	if t.CheckedOut && !t.CheckedIn {
		return fmt.Errorf("tour cannot be checked out without being checked in")
	}
	return nil
}

// CheckIn applies the planned -> active transition.
func (t *Tour) CheckIn(now time.Time) error {
	if t.CheckedIn || !t.Status.CanTransitionTo(StatusActive) {
		return fmt.Errorf("check-in from status %q: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = StatusActive
	t.CheckedIn = true
	t.CheckinTime = &now
	t.UpdatedAt = now
	return nil
}

// CheckOut applies the active -> completed transition.
func (t *Tour) CheckOut(now time.Time) error {
	if !t.CheckedIn || t.CheckedOut || !t.Status.CanTransitionTo(StatusCompleted) {
		return fmt.Errorf("check-out from status %q: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = StatusCompleted
	t.CheckedOut = true
	t.CheckoutTime = &now
	t.ActualEndTime = &now
	t.UpdatedAt = now
	return nil
}

// MarkOverdue applies the active -> overdue transition. Re-applying it when
// the tour is already overdue is a no-op: that is the at-most-once guard for
// the notification pipeline.
func (t *Tour) MarkOverdue(now time.Time) error {
	if t.Status == StatusOverdue {
		return nil
	}
	if !t.CheckedIn || t.CheckedOut || !now.After(t.ExpectedEndTime) || !t.Status.CanTransitionTo(StatusOverdue) {
		return fmt.Errorf("mark overdue from status %q: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = StatusOverdue
	t.UpdatedAt = now
	return nil
}

// ValidPhone is the minimal shape check applied to emergency contact numbers:
// optional leading +, then 6-15 digits (spaces, dashes and parens allowed).
func ValidPhone(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '/':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	if strings.HasPrefix(cleaned, "+") {
		cleaned = cleaned[1:]
	}
	if len(cleaned) < 6 || len(cleaned) > 15 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
