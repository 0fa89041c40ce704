package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketboss/internal/database"
	"ticketboss/internal/models"
	"ticketboss/internal/repository"
	"ticketboss/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, totalSeats int) (*gin.Engine, *database.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.RunMigrations(ctx))
	_, err = db.SeedEvent(ctx, database.EventSeed{ID: "node-meetup-2025", Name: "Node.js Meet-up", TotalSeats: totalSeats})
	require.NoError(t, err)

	services := service.NewServices(db, repository.NewRepositories(db), "node-meetup-2025", nil, nil, nil)
	h := NewHandlers(services, db)

	r := gin.New()
	r.GET("/", h.Welcome)
	r.GET("/health", h.Health)
	reservations := r.Group("/reservations")
	{
		reservations.POST("", h.Reserve)
		reservations.GET("", h.Summary)
		reservations.DELETE("/:reservationId", h.CancelReservation)
	}
	r.POST("/admin/reset", h.ResetEvent)

	return r, db
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if method == http.MethodPost {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getSummary(t *testing.T, r *gin.Engine) models.EventSummary {
	t.Helper()
	w := doRequest(r, http.MethodGet, "/reservations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.EventSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	return summary
}

func TestWelcome(t *testing.T) {
	r, _ := setupRouter(t, 500)

	w := doRequest(r, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome to TicketBoss API")
}

func TestReserve(t *testing.T) {
	r, _ := setupRouter(t, 500)

	w := doRequest(r, http.MethodPost, "/reservations", `{"partnerId":"abc","seats":3}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response["reservationId"])
	assert.Equal(t, float64(3), response["seats"])
	assert.Equal(t, "confirmed", response["status"])

	summary := getSummary(t, r)
	assert.Equal(t, "node-meetup-2025", summary.EventID)
	assert.Equal(t, 497, summary.AvailableSeats)
	assert.Equal(t, 1, summary.ReservationCount)
	assert.Equal(t, int64(1), summary.Version)
}

func TestReserveBadRequests(t *testing.T) {
	r, _ := setupRouter(t, 500)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing seats", `{"partnerId":"abc"}`, "Missing partnerId or seats"},
		{"missing partner", `{"seats":2}`, "Missing partnerId or seats"},
		{"zero seats", `{"partnerId":"abc","seats":0}`, "Missing partnerId or seats"},
		{"empty body", ``, "Missing partnerId or seats"},
		{"blank partner", `{"partnerId":"   ","seats":2}`, "Missing partnerId or seats"},
		{"too many seats", `{"partnerId":"abc","seats":11}`, "Invalid number of seats (1-10 allowed)"},
		{"negative seats", `{"partnerId":"abc","seats":-1}`, "Invalid number of seats (1-10 allowed)"},
		{"fractional seats", `{"partnerId":"abc","seats":2.5}`, "Invalid request body"},
		{"seats as string", `{"partnerId":"abc","seats":"3"}`, "Invalid request body"},
		{"malformed json", `{"partnerId":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/reservations", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantErr, response.Error)
		})
	}

	summary := getSummary(t, r)
	assert.Equal(t, 500, summary.AvailableSeats)
	assert.Equal(t, int64(0), summary.Version)
}

func TestReserveNotEnoughSeats(t *testing.T) {
	r, _ := setupRouter(t, 5)

	w := doRequest(r, http.MethodPost, "/reservations", `{"partnerId":"abc","seats":5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/reservations", `{"partnerId":"xyz","seats":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Not enough seats left"}`, w.Body.String())
}

func TestCancelReservation(t *testing.T) {
	r, _ := setupRouter(t, 500)

	w := doRequest(r, http.MethodPost, "/reservations", `{"partnerId":"abc","seats":3}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.ReserveSeatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(r, http.MethodDelete, "/reservations/"+created.ReservationID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doRequest(r, http.MethodDelete, "/reservations/"+created.ReservationID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Reservation not found or already cancelled"}`, w.Body.String())

	summary := getSummary(t, r)
	assert.Equal(t, 500, summary.AvailableSeats)
	assert.Equal(t, 0, summary.ReservationCount)
	assert.Equal(t, int64(2), summary.Version)
}

func TestCancelUnknownReservation(t *testing.T) {
	r, _ := setupRouter(t, 500)

	w := doRequest(r, http.MethodDelete, "/reservations/does-not-exist", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummaryInternalError(t *testing.T) {
	r, db := setupRouter(t, 500)

	_, err := db.Exec(`DELETE FROM events`)
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/reservations", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestResetEvent(t *testing.T) {
	r, _ := setupRouter(t, 500)

	for i := 0; i < 3; i++ {
		w := doRequest(r, http.MethodPost, "/reservations", `{"partnerId":"abc","seats":10}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(r, http.MethodPost, "/admin/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled_reservations":3`)

	summary := getSummary(t, r)
	assert.Equal(t, 500, summary.AvailableSeats)
	assert.Equal(t, 0, summary.ReservationCount)
}

func TestHealth(t *testing.T) {
	r, db := setupRouter(t, 500)

	w := doRequest(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	require.NoError(t, db.Close())

	w = doRequest(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
