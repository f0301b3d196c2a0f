package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"barberdesk/internal/booking"
	"barberdesk/internal/metrics"
	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	BarberID      *int64  `json:"barber_id,omitempty"` // omit for any barber
	Date          string  `json:"date"`                // Format: YYYY-MM-DD
	Time          string  `json:"time"`                // Format: HH:MM, on the slot grid
	ServiceIDs    []int64 `json:"service_ids"`
	TipPercent    int     `json:"tip_percent,omitempty"`
	TipCents      int64   `json:"tip_cents,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Override      bool    `json:"override,omitempty"` // acknowledge a recent-booking warning
}

// ServiceLineResponse is one priced service line on a booking.
type ServiceLineResponse struct {
	ServiceID   int64  `json:"service_id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	DurationMin int    `json:"duration_min"`
}

// BookingResponse represents a booking in API responses.
type BookingResponse struct {
	ID            int64                 `json:"id"`
	Ref           string                `json:"ref"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	BarberID      *int64                `json:"barber_id,omitempty"`
	Date          string                `json:"date"`
	Time          string                `json:"time"`
	Display       string                `json:"display"`
	Services      []ServiceLineResponse `json:"services"`
	Status        string                `json:"status"`
	SubtotalCents int64                 `json:"subtotal_cents"`
	TipCents      int64                 `json:"tip_cents"`
	TotalCents    int64                 `json:"total_cents"`
	PaymentMethod string                `json:"payment_method,omitempty"`
	Notes         string                `json:"notes,omitempty"`
}

func toBookingResponse(b *models.Booking) BookingResponse {
	lines := make([]ServiceLineResponse, 0, len(b.Services))
	for _, line := range b.Services {
		lines = append(lines, ServiceLineResponse{
			ServiceID:   line.ServiceID,
			Name:        line.Name,
			PriceCents:  line.PriceCents,
			DurationMin: line.DurationMin,
		})
	}
	return BookingResponse{
		ID:            b.ID,
		Ref:           b.Ref,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		BarberID:      b.BarberID,
		Date:          b.Date.String(),
		Time:          b.Time.String(),
		Display:       timeslot.DisplayAt(b.Date, b.Time),
		Services:      lines,
		Status:        b.Status,
		SubtotalCents: b.SubtotalCents,
		TipCents:      b.TipCents,
		TotalCents:    b.TotalCents,
		PaymentMethod: b.PaymentMethod,
		Notes:         b.Notes,
	}
}

// handleBookings creates a booking.
// POST /api/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, tod, ok := s.parseSlot(w, req.Date, req.Time)
	if !ok {
		return
	}

	b, err := s.deps.Bookings.Create(r.Context(), booking.CreateRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		BarberID:      req.BarberID,
		Date:          date,
		Time:          tod,
		ServiceIDs:    req.ServiceIDs,
		TipPercent:    req.TipPercent,
		TipCents:      req.TipCents,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Override:      req.Override,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// ValidateTimeRequest is the request body for POST /api/bookings/validate-time.
type ValidateTimeRequest struct {
	Date string `json:"date"` // Format: YYYY-MM-DD
	Time string `json:"time"` // Format: HH:MM
}

// handleValidateTime checks a requested slot against business hours
// without creating anything.
// POST /api/bookings/validate-time
func (s *HTTPServer) handleValidateTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("validate_time")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req ValidateTimeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, tod, ok := s.parseSlot(w, req.Date, req.Time)
	if !ok {
		return
	}

	if err := s.deps.Validator.Validate(date, tod); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// CheckDuplicateRequest is the request body for POST /api/bookings/check-duplicate.
type CheckDuplicateRequest struct {
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Date          string `json:"date"` // Format: YYYY-MM-DD
}

// handleCheckDuplicate reports whether a customer already has a booking
// that would collide with the requested date.
// POST /api/bookings/check-duplicate
func (s *HTTPServer) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("check_duplicate")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CheckDuplicateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CustomerPhone == "" && req.CustomerEmail == "" {
		writeError(w, http.StatusBadRequest, "customer_phone or customer_email is required")
		return
	}

	date, err := timeslot.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	dup, err := s.deps.Detector.Check(r.Context(), req.CustomerPhone, req.CustomerEmail, date, 0)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if dup == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"duplicate": false})
		return
	}

	body := map[string]any{
		"duplicate":        true,
		"kind":             dup.Kind,
		"override_allowed": dup.Overridable,
	}
	if dup.Existing != nil {
		body["existing"] = toBookingResponse(dup.Existing)
	}
	writeJSON(w, http.StatusOK, body)
}

// handleBookingByID serves a single booking.
// GET /api/bookings/{id}        — id may be numeric or the public ref
// PATCH /api/bookings/{id}/status
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/bookings/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	if key, found := strings.CutSuffix(rest, "/status"); found {
		s.handleUpdateStatus(w, r, key)
		return
	}

	metrics.IncHTTP("get_booking")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	b, err := s.loadBooking(r, rest)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// UpdateStatusRequest is the request body for PATCH /api/bookings/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request, key string) {
	metrics.IncHTTP("update_status")
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use PATCH")
		return
	}

	var req UpdateStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.loadBooking(r, key)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.deps.Bookings.UpdateStatus(r.Context(), b.ID, req.Status); err != nil {
		s.writeServiceError(w, err)
		return
	}

	b.Status = req.Status
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// loadBooking resolves a path key as a numeric id first, then as a ref.
func (s *HTTPServer) loadBooking(r *http.Request, key string) (*models.Booking, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return s.deps.Bookings.Get(r.Context(), id)
	}
	return s.deps.Bookings.GetByRef(r.Context(), key)
}

// parseSlot parses the date and time strings shared by booking requests,
// writing the 400 itself on failure.
func (s *HTTPServer) parseSlot(w http.ResponseWriter, dateStr, timeStr string) (timeslot.Date, timeslot.TimeOfDay, bool) {
	date, err := timeslot.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return timeslot.Date{}, 0, false
	}
	tod, err := timeslot.ParseTimeOfDay(timeStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time format; expected HH:MM")
		return timeslot.Date{}, 0, false
	}
	return date, tod, true
}
