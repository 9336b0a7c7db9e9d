package monitor

import (
	"context"
	"time"

	"tourguard-backend/internal/models"

	"go.uber.org/zap"
)

// TourStore is the slice of the tour store the monitor needs.
type TourStore interface {
	FindOverdueCandidates(ctx context.Context, now time.Time) ([]*models.Tour, error)
	MarkOverdueIfNotAlready(ctx context.Context, id string) (bool, error)
}

// AlertDispatcher delivers an overdue alert for a tour.
type AlertDispatcher interface {
	SendOverdueAlert(ctx context.Context, tour *models.Tour) error
}

// Summary is the per-tick processing report.
type Summary struct {
	Candidates     int
	Transitioned   int
	NotifyFailures int
}

// Monitor periodically detects tours past their expected end time without a
// checkout, transitions them to overdue and triggers one notification per
// transition. A single goroutine runs all ticks, so ticks never overlap.
type Monitor struct {
	interval       time.Duration
	perTourTimeout time.Duration
	store          TourStore
	dispatcher     AlertDispatcher
	logger         *zap.Logger
	now            func() time.Time
}

// New creates a monitor. The scan interval is injected configuration, not a
// constant.
func New(store TourStore, dispatcher AlertDispatcher, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		interval:       interval,
		perTourTimeout: 30 * time.Second,
		store:          store,
		dispatcher:     dispatcher,
		logger:         logger,
		now:            time.Now,
	}
}

// Start runs the scan loop until the context is cancelled. The first tick
// runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("Overdue monitor started",
		zap.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RunTick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Overdue monitor stopped")
			return nil
		case <-ticker.C:
			m.RunTick(ctx)
		}
	}
}

// RunTick executes one complete scan. Candidate tours are processed
// independently; one tour's failure never aborts the others. A failed
// candidate query makes the tick a no-op, retried on the next tick.
func (m *Monitor) RunTick(ctx context.Context) Summary {
	now := m.now()

	candidates, err := m.store.FindOverdueCandidates(ctx, now)
	if err != nil {
		m.logger.Error("Failed to query overdue candidates",
			zap.Error(err),
		)
		return Summary{}
	}

	summary := Summary{Candidates: len(candidates)}

	for _, tour := range candidates {
		select {
		case <-ctx.Done():
			return summary
		default:
		}

		// Tours already marked overdue were alerted on an earlier tick;
		// skipping them is the at-most-once guarantee.
		if tour.Status == models.StatusOverdue {
			continue
		}

		m.processTour(ctx, tour, &summary)
	}

	if summary.Candidates == 0 {
		m.logger.Debug("No overdue tours found")
	} else {
		m.logger.Info("Overdue scan completed",
			zap.Int("candidates", summary.Candidates),
			zap.Int("transitioned", summary.Transitioned),
			zap.Int("notify_failures", summary.NotifyFailures),
		)
	}

	return summary
}

// processTour applies the overdue transition for one tour and dispatches the
// alert. The status write is durable before the notify step; if the write
// fails the tour is left untouched and picked up again next tick.
func (m *Monitor) processTour(ctx context.Context, tour *models.Tour, summary *Summary) {
	tourCtx, cancel := context.WithTimeout(ctx, m.perTourTimeout)
	defer cancel()

	transitioned, err := m.store.MarkOverdueIfNotAlready(tourCtx, tour.ID)
	if err != nil {
		m.logger.Error("Failed to mark tour overdue, will retry next tick",
			zap.String("tour_id", tour.ID),
			zap.Error(err),
		)
		return
	}
	if !transitioned {
		// Lost the race against another writer (checkout or an earlier
		// transition); nothing to notify.
		return
	}

	summary.Transitioned++

	m.logger.Warn("Tour is overdue, sending notification",
		zap.String("tour_id", tour.ID),
		zap.String("tour_name", tour.Name),
		zap.Time("expected_end_time", tour.ExpectedEndTime),
	)

	if err := m.dispatcher.SendOverdueAlert(tourCtx, tour); err != nil {
		// The tour stays overdue; the failure is visible in the delivery
		// record and here.
		summary.NotifyFailures++
		m.logger.Error("Failed to send overdue notification",
			zap.String("tour_id", tour.ID),
			zap.Error(err),
		)
	}
}
