package validation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketboss/internal/api"
	"ticketboss/internal/config"
	"ticketboss/internal/database"
	"ticketboss/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, totalSeats int) *httptest.Server {
	t.Helper()

	s, err := api.NewServer(&config.Config{
		GinMode: "test",
		Event: config.EventConfig{
			ID:         "node-meetup-2025",
			Name:       "Node.js Meet-up",
			TotalSeats: totalSeats,
		},
		Database:  database.Config{Driver: database.DriverSQLite, Path: ":memory:"},
		Messaging: messaging.Config{Driver: messaging.DriverNone},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Cleanup() })

	srv := httptest.NewServer(s.GetRouter())
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateAll(t *testing.T) {
	srv := startServer(t, 500)

	report, err := NewValidator(srv.URL).ValidateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 500, report.StartAvailable)
	assert.Equal(t, 60, report.Accepted+report.Conflicts)
	assert.LessOrEqual(t, report.Accepted, 50)
	assert.Equal(t, 500, report.FinalAvailable+10*report.Accepted)

	summary, err := NewValidator(srv.URL).summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, summary.AvailableSeats)
	assert.Equal(t, 0, summary.ReservationCount)
}

func TestValidateAllSmallEvent(t *testing.T) {
	srv := startServer(t, 30)

	report, err := NewValidator(srv.URL).ValidateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, 57, report.Conflicts)
	assert.Equal(t, 0, report.FinalAvailable)
}

func TestValidateAllDetectsBrokenServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewValidator(srv.URL).ValidateAll(context.Background())
	assert.Error(t, err)
}
