package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ticketboss/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	concurrentRequests = 60
	concurrentSeats    = 10
)

// Validator прогоняет сквозную проверку против запущенного сервиса
type Validator struct {
	baseURL string
	client  *http.Client
}

// NewValidator создает новый валидатор
func NewValidator(baseURL string) *Validator {
	return &Validator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Report is the outcome of the concurrent reservation burst
type Report struct {
	StartAvailable int
	Accepted       int
	Conflicts      int
	Others         int
	FinalAvailable int
}

// ValidateAll runs every check in order. It leaves the event with the same
// availability it found.
func (v *Validator) ValidateAll(ctx context.Context) (*Report, error) {
	slog.Info("Начинаю валидацию API...", "base_url", v.baseURL)

	start, err := v.summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial summary: %w", err)
	}

	if err := v.validateRoundTrip(ctx, start.AvailableSeats); err != nil {
		return nil, fmt.Errorf("reserve/cancel round trip: %w", err)
	}

	if err := v.validateDoubleCancel(ctx); err != nil {
		return nil, fmt.Errorf("double cancel: %w", err)
	}

	if err := v.validateBadRequests(ctx); err != nil {
		return nil, fmt.Errorf("invalid requests: %w", err)
	}

	report, err := v.validateConcurrency(ctx, start.AvailableSeats)
	if err != nil {
		return report, fmt.Errorf("concurrency: %w", err)
	}

	slog.Info("✅ Все проверки пройдены",
		"accepted", report.Accepted,
		"conflicts", report.Conflicts,
		"final_available", report.FinalAvailable)
	return report, nil
}

func (v *Validator) validateRoundTrip(ctx context.Context, startAvailable int) error {
	if startAvailable < 3 {
		return fmt.Errorf("need at least 3 available seats, have %d", startAvailable)
	}

	created, err := v.reserve(ctx, "validator", 3)
	if err != nil {
		return err
	}

	summary, err := v.summary(ctx)
	if err != nil {
		return err
	}
	if summary.AvailableSeats != startAvailable-3 {
		return fmt.Errorf("seats not deducted: expected %d, got %d", startAvailable-3, summary.AvailableSeats)
	}

	status, err := v.cancel(ctx, created.ReservationID)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("DELETE /reservations/%s: expected 204, got %d", created.ReservationID, status)
	}

	summary, err = v.summary(ctx)
	if err != nil {
		return err
	}
	if summary.AvailableSeats != startAvailable {
		return fmt.Errorf("seats not returned: expected %d, got %d", startAvailable, summary.AvailableSeats)
	}

	slog.Info("✅ Бронирование и отмена валидны")
	return nil
}

func (v *Validator) validateDoubleCancel(ctx context.Context) error {
	created, err := v.reserve(ctx, "validator", 1)
	if err != nil {
		return err
	}

	for i, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		status, err := v.cancel(ctx, created.ReservationID)
		if err != nil {
			return err
		}
		if status != want {
			return fmt.Errorf("cancel #%d: expected %d, got %d", i+1, want, status)
		}
	}

	slog.Info("✅ Повторная отмена возвращает 404")
	return nil
}

func (v *Validator) validateBadRequests(ctx context.Context) error {
	bodies := []string{
		`{"partnerId":"validator"}`,
		`{"seats":2}`,
		`{"partnerId":"validator","seats":0}`,
		`{"partnerId":"validator","seats":11}`,
		`{"partnerId":"validator","seats":2.5}`,
	}

	for _, body := range bodies {
		resp, err := v.do(ctx, http.MethodPost, "/reservations", []byte(body))
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			return fmt.Errorf("POST /reservations %s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	slog.Info("✅ Некорректные запросы отклоняются")
	return nil
}

func (v *Validator) validateConcurrency(ctx context.Context, startAvailable int) (*Report, error) {
	report := &Report{StartAvailable: startAvailable}

	var (
		mu       sync.Mutex
		accepted []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrentRequests; i++ {
		partnerID := fmt.Sprintf("partner-%d", i)
		g.Go(func() error {
			payload, _ := json.Marshal(models.ReserveSeatsRequest{PartnerID: partnerID, Seats: concurrentSeats})
			resp, err := v.do(gctx, http.MethodPost, "/reservations", payload)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			mu.Lock()
			defer mu.Unlock()

			switch resp.StatusCode {
			case http.StatusCreated:
				var created models.ReserveSeatsResponse
				if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
					return fmt.Errorf("failed to decode response: %w", err)
				}
				accepted = append(accepted, created.ReservationID)
				report.Accepted++
			case http.StatusConflict:
				report.Conflicts++
			default:
				report.Others++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	summary, err := v.summary(ctx)
	if err != nil {
		return report, err
	}
	report.FinalAvailable = summary.AvailableSeats

	slog.Info("Результаты конкурентного бронирования",
		"accepted", report.Accepted,
		"conflicts", report.Conflicts,
		"others", report.Others,
		"available", report.FinalAvailable)

	if report.Others > 0 {
		return report, fmt.Errorf("%d requests ended with neither 201 nor 409", report.Others)
	}
	if report.Accepted*concurrentSeats > startAvailable {
		return report, fmt.Errorf("oversold: %d accepted for %d seats", report.Accepted, startAvailable)
	}
	if report.FinalAvailable+report.Accepted*concurrentSeats != startAvailable {
		return report, fmt.Errorf("seat leak: available %d + booked %d != %d",
			report.FinalAvailable, report.Accepted*concurrentSeats, startAvailable)
	}

	// Give the seats back
	for _, id := range accepted {
		status, err := v.cancel(ctx, id)
		if err != nil {
			return report, err
		}
		if status != http.StatusNoContent {
			return report, fmt.Errorf("cleanup of %s: expected 204, got %d", id, status)
		}
	}

	slog.Info("✅ Целостность счетчика подтверждена")
	return report, nil
}

func (v *Validator) summary(ctx context.Context) (*models.EventSummary, error) {
	resp, err := v.do(ctx, http.MethodGet, "/reservations", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /reservations: expected 200, got %d", resp.StatusCode)
	}

	var summary models.EventSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("GET /reservations: failed to decode response: %w", err)
	}
	return &summary, nil
}

func (v *Validator) reserve(ctx context.Context, partnerID string, seats int) (*models.ReserveSeatsResponse, error) {
	payload, err := json.Marshal(models.ReserveSeatsRequest{PartnerID: partnerID, Seats: seats})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := v.do(ctx, http.MethodPost, "/reservations", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("POST /reservations: expected 201, got %d: %s", resp.StatusCode, body)
	}

	var created models.ReserveSeatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("POST /reservations: failed to decode response: %w", err)
	}
	if created.ReservationID == "" || created.Status != models.StatusConfirmed || created.Seats != seats {
		return nil, fmt.Errorf("POST /reservations: unexpected response %+v", created)
	}
	return &created, nil
}

func (v *Validator) cancel(ctx context.Context, reservationID string) (int, error) {
	resp, err := v.do(ctx, http.MethodDelete, "/reservations/"+reservationID, nil)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (v *Validator) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

// RunValidation запускает валидацию API
func RunValidation(baseURL string) error {
	_, err := NewValidator(baseURL).ValidateAll(context.Background())
	return err
}
