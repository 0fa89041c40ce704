package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ticketboss/internal/metrics"
	"ticketboss/internal/repository"
)

const InvariantCheckInterval = 30 * time.Second

// InvariantCheckJob periodically verifies that the counter and the ledger
// agree: availableSeats == totalSeats - seats held by confirmed
// reservations. It only reads.
type InvariantCheckJob struct {
	repos    *repository.Repositories
	eventID  string
	metrics  *metrics.Metrics
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewInvariantCheckJob creates a new invariant check job
func NewInvariantCheckJob(repos *repository.Repositories, eventID string, m *metrics.Metrics) *InvariantCheckJob {
	if m == nil {
		m = metrics.NewNop()
	}
	return &InvariantCheckJob{
		repos:    repos,
		eventID:  eventID,
		metrics:  m,
		interval: InvariantCheckInterval,
		done:     make(chan struct{}),
	}
}

// Start begins the background job that checks the invariant every interval
func (j *InvariantCheckJob) Start(ctx context.Context) {
	slog.Info("Starting invariant check job", "check_interval", j.interval.String(), "event_id", j.eventID)

	j.ticker = time.NewTicker(j.interval)

	go func() {
		j.runOnce(ctx)
		for {
			select {
			case <-j.ticker.C:
				j.runOnce(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Invariant check job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *InvariantCheckJob) Stop() {
	j.stopOnce.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
	})
}

func (j *InvariantCheckJob) runOnce(ctx context.Context) {
	if _, err := j.Check(ctx); err != nil {
		slog.Error("Invariant check failed", "event_id", j.eventID, "error", err)
	}
}

// Check computes the drift between the counter and the ledger and exports
// it as a gauge. A non-zero drift is logged at error level.
func (j *InvariantCheckJob) Check(ctx context.Context) (int, error) {
	balance, err := j.repos.Events.ReadBalance(ctx, j.eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger balance: %w", err)
	}
	if balance == nil {
		return 0, fmt.Errorf("event %s not found", j.eventID)
	}

	drift := balance.Drift()
	j.metrics.InvariantDrift.WithLabelValues(j.eventID).Set(float64(drift))
	j.metrics.AvailableSeats.WithLabelValues(j.eventID).Set(float64(balance.AvailableSeats))
	j.metrics.EventVersion.WithLabelValues(j.eventID).Set(float64(balance.Version))

	if drift != 0 {
		slog.Error("Seat counter drifted from ledger",
			"event_id", j.eventID,
			"available_seats", balance.AvailableSeats,
			"total_seats", balance.TotalSeats,
			"reserved_seats", balance.ReservedSeats,
			"drift", drift,
			"version", balance.Version)
		return drift, nil
	}

	slog.Debug("Invariant holds", "event_id", j.eventID, "available_seats", balance.AvailableSeats, "version", balance.Version)
	return 0, nil
}
