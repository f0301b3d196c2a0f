package api

import (
	"net/http"
	"strconv"

	"barberdesk/internal/metrics"
	"barberdesk/internal/timeslot"
)

// SlotResponse is one free slot in an availability response.
type SlotResponse struct {
	Time    string `json:"time"`
	Display string `json:"display"`
}

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	Date     string         `json:"date"`
	BarberID *int64         `json:"barber_id,omitempty"`
	Slots    []SlotResponse `json:"slots"`
}

// handleAvailability lists the free slots on a date.
// GET /api/availability?date=YYYY-MM-DD&barber_id=N
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := timeslot.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	var barberID *int64
	if raw := r.URL.Query().Get("barber_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid barber_id")
			return
		}
		barberID = &id
	}

	free, err := s.deps.Checker.FreeSlots(r.Context(), barberID, date, s.deps.Hours.Open, s.deps.Hours.Close)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	slots := make([]SlotResponse, 0, len(free))
	for _, tod := range free {
		slots = append(slots, SlotResponse{Time: tod.String(), Display: tod.Display()})
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Date:     dateStr,
		BarberID: barberID,
		Slots:    slots,
	})
}

// ServiceResponse represents a catalog service in API responses.
type ServiceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	DurationMin int    `json:"duration_min"`
}

// handleServices lists the bookable service catalog.
// GET /api/services
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	services, err := s.deps.Catalog.Services(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, ServiceResponse{
			ID:          svc.ID,
			Name:        svc.Name,
			PriceCents:  svc.PriceCents,
			DurationMin: svc.DurationMin,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

// BarberResponse represents a barber in API responses.
type BarberResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// handleBarbers lists barbers.
// GET /api/barbers
func (s *HTTPServer) handleBarbers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("barbers")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	barbers, err := s.deps.Catalog.Barbers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]BarberResponse, 0, len(barbers))
	for _, b := range barbers {
		out = append(out, BarberResponse{ID: b.ID, Name: b.Name, Available: b.Available})
	}
	writeJSON(w, http.StatusOK, map[string]any{"barbers": out})
}
