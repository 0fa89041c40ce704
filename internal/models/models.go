package models

const (
	MinSeatsPerReservation = 1
	MaxSeatsPerReservation = 10
)

// ReserveSeatsRequest - модель для бронирования мест
type ReserveSeatsRequest struct {
	PartnerID string `json:"partnerId" binding:"required"`
	Seats     int    `json:"seats" binding:"required"`
}

// ReserveSeatsResponse - модель ответа при бронировании
type ReserveSeatsResponse struct {
	ReservationID string            `json:"reservationId"`
	Seats         int               `json:"seats"`
	Status        ReservationStatus `json:"status"`
}

// EventSummary - сводка по событию
type EventSummary struct {
	EventID          string `json:"eventId"`
	Name             string `json:"name"`
	TotalSeats       int    `json:"totalSeats"`
	AvailableSeats   int    `json:"availableSeats"`
	ReservationCount int    `json:"reservationCount"`
	Version          int64  `json:"version"`
}

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
