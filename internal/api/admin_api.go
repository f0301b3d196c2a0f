package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"barberdesk/internal/metrics"
	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// ListingStore serves the back-office day view.
type ListingStore interface {
	ListBookingsByDate(ctx context.Context, date timeslot.Date) ([]models.Booking, error)
}

// BlackoutRequest is the request body for POST /api/admin/blackouts.
type BlackoutRequest struct {
	Date        string `json:"date"`  // Format: YYYY-MM-DD
	Start       string `json:"start"` // Format: HH:MM
	DurationMin int    `json:"duration_min"`
	Reason      string `json:"reason,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// BlackoutResponse represents a blackout window in API responses.
type BlackoutResponse struct {
	ID          int64    `json:"id"`
	Date        string   `json:"date"`
	Start       string   `json:"start"`
	DurationMin int      `json:"duration_min"`
	Reason      string   `json:"reason,omitempty"`
	CreatedBy   string   `json:"created_by,omitempty"`
	Slots       []string `json:"slots"` // slot markers the window blocks
}

func toBlackoutResponse(w *models.BlackoutWindow) BlackoutResponse {
	slots := make([]string, 0)
	for _, tod := range w.Slots() {
		slots = append(slots, tod.String())
	}
	return BlackoutResponse{
		ID:          w.ID,
		Date:        w.Date.String(),
		Start:       w.Start.String(),
		DurationMin: w.DurationMin,
		Reason:      w.Reason,
		CreatedBy:   w.CreatedBy,
		Slots:       slots,
	}
}

// handleBlackouts creates or lists blackout windows.
// POST /api/admin/blackouts
// GET /api/admin/blackouts?date=YYYY-MM-DD
func (s *HTTPServer) handleBlackouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAddBlackout(w, r)
	case http.MethodGet:
		s.handleListBlackouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAddBlackout(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_blackout")

	var req BlackoutRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, start, ok := s.parseSlot(w, req.Date, req.Start)
	if !ok {
		return
	}

	window := &models.BlackoutWindow{
		Date:        date,
		Start:       start,
		DurationMin: req.DurationMin,
		Reason:      req.Reason,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.deps.Blackouts.Add(r.Context(), window); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBlackoutResponse(window))
}

func (s *HTTPServer) handleListBlackouts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_blackouts")

	date, err := timeslot.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	windows, err := s.deps.Blackouts.ListForDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]BlackoutResponse, 0, len(windows))
	for i := range windows {
		out = append(out, toBlackoutResponse(&windows[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"blackouts": out})
}

// handleBlackoutByID removes a blackout window.
// DELETE /api/admin/blackouts/{id}
func (s *HTTPServer) handleBlackoutByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_blackout")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use DELETE")
		return
	}

	const prefix = "/api/admin/blackouts/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid blackout id")
		return
	}

	if err := s.deps.Blackouts.Remove(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleAdminBookings lists the bookings on a date for the day sheet.
// GET /api/admin/bookings?date=YYYY-MM-DD
func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_bookings")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	date, err := timeslot.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	bookings, err := s.deps.Listings.ListBookingsByDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

// handleSweep runs the archival sweep on demand.
// POST /api/admin/sweep
func (s *HTTPServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("sweep")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	archived, err := s.deps.Sweeper.Sweep(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"archived": archived})
}

// handleReport streams an .xlsx report of bookings and blackouts.
// GET /api/admin/report?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	from, err := timeslot.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := timeslot.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=bookings_%s_%s.xlsx", from, to))

	if err := s.deps.Reporter.WriteReport(r.Context(), from, to, w); err != nil {
		// Headers are already gone; log and drop the connection body.
		s.log.Error().Err(err).Msg("report generation failed")
	}
}
