package notifier

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tourguard-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryStore persists SMS delivery records.
type DeliveryStore interface {
	Create(ctx context.Context, n *models.Notification) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Dispatcher renders overdue alerts and delivers them to the tour's
// emergency contact. Every attempt leaves a Notification record regardless
// of the transport outcome.
type Dispatcher struct {
	store            DeliveryStore
	sender           SMSSender
	emergencyBaseURL string
	logger           *zap.Logger
	now              func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store DeliveryStore, sender SMSSender, emergencyBaseURL string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:            store,
		sender:           sender,
		emergencyBaseURL: strings.TrimRight(emergencyBaseURL, "/"),
		logger:           logger,
		now:              time.Now,
	}
}

// SendOverdueAlert delivers one overdue alert for a tour. The record is
// created as pending before the attempt and updated to sent or failed after
// it resolves. Delivery failures propagate to the caller; the tour's status
// is not touched here.
func (d *Dispatcher) SendOverdueAlert(ctx context.Context, tour *models.Tour) error {
	if tour == nil {
		return fmt.Errorf("tour is required")
	}

	now := d.now()
	message := d.renderOverdueMessage(tour, now)
	phone := tour.EmergencyContact.Phone

	notification := &models.Notification{
		ID:             uuid.New().String(),
		TourID:         tour.ID,
		RecipientPhone: phone,
		Message:        message,
		Status:         models.NotificationPending,
		CreatedAt:      now,
	}

	if err := d.store.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to persist notification record: %w", err)
	}

	// A contact without a usable phone cannot be delivered to; record it
	// like any other transport failure.
	if !models.ValidPhone(phone) {
		reason := "invalid recipient phone"
		if err := d.store.MarkFailed(ctx, notification.ID, reason); err != nil {
			d.logger.Error("Failed to mark notification failed",
				zap.String("notification_id", notification.ID),
				zap.Error(err),
			)
		}
		return fmt.Errorf("cannot deliver alert for tour %s: %s", tour.ID, reason)
	}

	if err := d.sender.Send(ctx, phone, message); err != nil {
		if markErr := d.store.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			d.logger.Error("Failed to mark notification failed",
				zap.String("notification_id", notification.ID),
				zap.Error(markErr),
			)
		}
		return fmt.Errorf("failed to deliver overdue alert for tour %s: %w", tour.ID, err)
	}

	if err := d.store.MarkSent(ctx, notification.ID, d.now()); err != nil {
		// Delivery succeeded; the record stays pending rather than losing
		// the attempt.
		d.logger.Error("Failed to mark notification sent",
			zap.String("notification_id", notification.ID),
			zap.Error(err),
		)
	}

	d.logger.Info("Overdue alert dispatched",
		zap.String("tour_id", tour.ID),
		zap.String("notification_id", notification.ID),
	)

	return nil
}

// renderOverdueMessage builds the alert text sent to the emergency contact.
func (d *Dispatcher) renderOverdueMessage(tour *models.Tour, now time.Time) string {
	overdueHours := math.Round(now.Sub(tour.ExpectedEndTime).Hours()*100) / 100
	hours := strconv.FormatFloat(overdueHours, 'f', -1, 64)

	names := make([]string, 0, len(tour.Participants))
	for _, p := range tour.Participants {
		names = append(names, p.Name)
	}

	var b strings.Builder
	b.WriteString("🚨 TOURGUARD ALERT 🚨\n\n")
	fmt.Fprintf(&b, "Tour %q ist %s Stunden überfällig.\n\n", tour.Name, hours)
	fmt.Fprintf(&b, "Geplantes Ende: %s\n", tour.ExpectedEndTime.Format("02.01.2006, 15:04"))
	fmt.Fprintf(&b, "Status: Check-in %s | Check-out %s\n\n", glyph(tour.CheckedIn), glyph(tour.CheckedOut))
	fmt.Fprintf(&b, "Teilnehmer: %s\n\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Notfalldaten abrufen:\n%s/%s\n\n", d.emergencyBaseURL, tour.ID)
	b.WriteString("Bei Notfall: 112 anrufen!")

	return b.String()
}

func glyph(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
