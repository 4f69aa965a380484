package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviq/booking-engine/internal/booking"
	"github.com/serviq/booking-engine/internal/schedule"
)

type BookAppointmentRequest struct {
	ProfessionalID  string `json:"professional_id"`
	ClientID        string `json:"client_id"`
	Date            string `json:"date"`  // YYYY-MM-DD, marketplace locale
	Start           string `json:"start"` // HH:MM, marketplace locale
	DurationMinutes int    `json:"duration_minutes"`
}

type CancelAppointmentRequest struct {
	Actor string `json:"actor"` // client | professional
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	ClientID        uuid.UUID  `json:"client_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	AmountExclTax   int64      `json:"amount_excl_tax"`
	AmountInclTax   int64      `json:"amount_incl_tax"`
	Currency        string     `json:"currency"`
	CreatedAt       time.Time  `json:"created_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

type BookAppointmentResponse struct {
	Appointment         AppointmentResponse `json:"appointment"`
	PaymentClientSecret string              `json:"payment_client_secret,omitempty"`
}

type SlotResponse struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Available       bool      `json:"available"`
}

type SlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ProfessionalID:  a.ProfessionalID,
		ClientID:        a.ClientID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		AmountExclTax:   a.AmountExclTax,
		AmountInclTax:   a.AmountInclTax,
		Currency:        a.Currency,
		CreatedAt:       a.CreatedAt,
		ConfirmedAt:     a.ConfirmedAt,
		CompletedAt:     a.CompletedAt,
		CancelledAt:     a.CancelledAt,
	}
}

func toSlotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			Start:           s.Start,
			End:             s.End,
			DurationMinutes: s.DurationMinutes,
			Available:       s.Available,
		})
	}
	return out
}
