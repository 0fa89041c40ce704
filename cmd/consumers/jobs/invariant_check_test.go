package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticketboss/internal/database"
	"ticketboss/internal/metrics"
	"ticketboss/internal/models"
	"ticketboss/internal/repository"
	"ticketboss/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID = "node-meetup-2025"

func setup(t *testing.T) (*database.DB, *repository.Repositories) {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.RunMigrations(ctx))
	_, err = db.SeedEvent(ctx, database.EventSeed{ID: eventID, Name: "Node.js Meet-up", TotalSeats: 500})
	require.NoError(t, err)

	return db, repository.NewRepositories(db)
}

func addReservation(t *testing.T, repos *repository.Repositories, seats int) {
	t.Helper()
	ctx := context.Background()

	state, err := repos.Events.ReadCounter(ctx, eventID)
	require.NoError(t, err)
	ok, err := repos.Events.CompareAndDecrement(ctx, eventID, seats, state.Version)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repos.Reservations.Create(ctx, &models.Reservation{
		ID:        uuid.NewString(),
		EventID:   eventID,
		PartnerID: "abc",
		Seats:     seats,
		Status:    models.StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}))
}

func TestCheckNoDrift(t *testing.T) {
	_, repos := setup(t)
	m := metrics.NewNop()
	job := NewInvariantCheckJob(repos, eventID, m)

	addReservation(t, repos, 3)
	addReservation(t, repos, 10)

	drift, err := job.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, drift)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InvariantDrift.WithLabelValues(eventID)))
	assert.Equal(t, 487.0, testutil.ToFloat64(m.AvailableSeats.WithLabelValues(eventID)))
}

func TestCheckReportsDrift(t *testing.T) {
	db, repos := setup(t)
	m := metrics.NewNop()
	job := NewInvariantCheckJob(repos, eventID, m)

	addReservation(t, repos, 4)
	_, err := db.Exec(`UPDATE events SET available_seats = available_seats + 1 WHERE id = ?`, eventID)
	require.NoError(t, err)

	drift, err := job.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, drift)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvariantDrift.WithLabelValues(eventID)))
}

func TestCheckUnderConcurrentTraffic(t *testing.T) {
	db, repos := setup(t)
	svc := service.NewReservationService(db, repos, eventID, nil, nil, nil)
	job := NewInvariantCheckJob(repos, eventID, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				resp, err := svc.Reserve(ctx, &models.ReserveSeatsRequest{PartnerID: "load", Seats: 2})
				if err != nil {
					continue
				}
				_ = svc.Cancel(context.Background(), resp.ReservationID)
			}
		}()
	}

	for i := 0; i < 500; i++ {
		drift, err := job.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, 0, drift, "check %d", i)
	}
}

func TestCheckMissingEvent(t *testing.T) {
	_, repos := setup(t)
	job := NewInvariantCheckJob(repos, "other-event", nil)

	_, err := job.Check(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	_, repos := setup(t)
	m := metrics.NewNop()
	job := NewInvariantCheckJob(repos, eventID, m)
	job.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job.Start(ctx)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.AvailableSeats.WithLabelValues(eventID)) == 500.0
	}, time.Second, 10*time.Millisecond)

	job.Stop()
	job.Stop()
}
