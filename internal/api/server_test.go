package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"barberdesk/internal/audit"
	"barberdesk/internal/booking"
	"barberdesk/internal/database"
	"barberdesk/internal/models"
	"barberdesk/internal/schedule"
)

const testAPIKey = "valid-key"

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	*httptest.Server
	db       *database.DB
	barberID int64
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	haircut := &models.Service{Name: "Haircut", PriceCents: 3000, DurationMin: 30, IsActive: true}
	trim := &models.Service{Name: "Beard Trim", PriceCents: 2000, DurationMin: 30, IsActive: true}
	require.NoError(t, db.CreateService(ctx, haircut))
	require.NoError(t, db.CreateService(ctx, trim))

	sam := &models.Barber{Name: "Sam", Available: true}
	kim := &models.Barber{Name: "Kim", Available: true}
	require.NoError(t, db.CreateBarber(ctx, sam))
	require.NoError(t, db.CreateBarber(ctx, kim))

	logger := zerolog.New(io.Discard)
	clock := schedule.FixedClock{At: testNow}
	hours := schedule.DefaultHours()

	catalog := booking.NewCatalog(db, time.Minute)
	validator := schedule.NewValidator(hours, clock)
	detector := booking.NewDuplicateDetector(db, nil, 3*time.Hour, clock, &logger)
	registry := booking.NewBlackoutRegistry(db, nil, &logger)
	checker := booking.NewAvailabilityChecker(db, registry, true)
	sweeper := booking.NewArchivalSweeper(db, clock, nil, &logger)
	reporter := audit.NewReporter(db, &logger)
	svc := booking.NewService(db, catalog, validator, detector, checker, nil, true, &logger)

	server := NewHTTPServer(cfg, Deps{
		Bookings:  svc,
		Validator: validator,
		Detector:  detector,
		Checker:   checker,
		Blackouts: registry,
		Sweeper:   sweeper,
		Catalog:   catalog,
		Reporter:  reporter,
		Listings:  db,
		Hours:     hours,
	}, &logger)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{Server: ts, db: db, barberID: sam.ID}
}

func newTestServer(t *testing.T) *testEnv {
	return newTestEnv(t, ServerConfig{
		AdminAPIKey:    testAPIKey,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
}

func (e *testEnv) do(t *testing.T, method, path, apiKey string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.URL+path, buf)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func bookingBody(barberID *int64) map[string]any {
	body := map[string]any{
		"customer_name":  "Alex Doe",
		"customer_phone": "555-0100",
		"date":           "2026-06-10",
		"time":           "10:00",
		"service_ids":    []int64{1, 2},
		"tip_percent":    20,
		"payment_method": "card",
	}
	if barberID != nil {
		body["barber_id"] = *barberID
	}
	return body
}

func TestCreateAndFetchBooking(t *testing.T) {
	env := newTestServer(t)

	resp, body := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(&env.barberID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, float64(5000), body["subtotal_cents"])
	assert.Equal(t, float64(1000), body["tip_cents"])
	assert.Equal(t, float64(6000), body["total_cents"])
	assert.Equal(t, "pending", body["status"])
	ref, _ := body["ref"].(string)
	require.NotEmpty(t, ref)

	resp, byID := env.do(t, http.MethodGet, "/api/bookings/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ref, byID["ref"])

	resp, byRef := env.do(t, http.MethodGet, "/api/bookings/"+ref, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), byRef["id"])

	resp, _ = env.do(t, http.MethodGet, "/api/bookings/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateBookingBadRequests(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"unknown field", func(m map[string]any) { m["surprise"] = true }, http.StatusBadRequest},
		{"bad date", func(m map[string]any) { m["date"] = "10-06-2026" }, http.StatusBadRequest},
		{"bad time", func(m map[string]any) { m["time"] = "10am" }, http.StatusBadRequest},
		{"missing name", func(m map[string]any) { delete(m, "customer_name") }, http.StatusBadRequest},
		{"off-grid time", func(m map[string]any) { m["time"] = "10:15" }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bookingBody(nil)
			tt.mutate(body)
			resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCreateBookingTimeWindowRejected(t *testing.T) {
	env := newTestServer(t)

	// Same day as the fixed clock, but earlier than now.
	body := bookingBody(nil)
	body["date"] = "2026-06-01"
	body["time"] = "10:00"

	resp, out := env.do(t, http.MethodPost, "/api/bookings", "", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, schedule.ReasonSameDayPassed, out["reason"])

	sug, ok := out["suggestion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2026-06-01", sug["date"])
	assert.Equal(t, "12:30", sug["time"])
}

func TestCreateBookingConflicts(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(&env.barberID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same customer, same date.
	resp, out := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(&env.barberID))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "same_date", out["kind"])
	assert.Equal(t, false, out["override_allowed"])

	// Different customer, same barber and slot.
	body := bookingBody(&env.barberID)
	body["customer_name"] = "Pat Roe"
	body["customer_phone"] = "555-0200"
	resp, out = env.do(t, http.MethodPost, "/api/bookings", "", body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "slot_taken", out["kind"])
}

func TestValidateTimeEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, out := env.do(t, http.MethodPost, "/api/bookings/validate-time", "",
		map[string]string{"date": "2026-06-10", "time": "10:00"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["valid"])

	resp, out = env.do(t, http.MethodPost, "/api/bookings/validate-time", "",
		map[string]string{"date": "2026-06-10", "time": "20:00"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, schedule.ReasonOutsideHours, out["reason"])
}

func TestCheckDuplicateEndpoint(t *testing.T) {
	env := newTestServer(t)

	check := map[string]string{"customer_phone": "555-0100", "date": "2026-06-10"}

	resp, out := env.do(t, http.MethodPost, "/api/bookings/check-duplicate", "", check)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["duplicate"])

	resp, _ = env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(nil))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out = env.do(t, http.MethodPost, "/api/bookings/check-duplicate", "", check)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["duplicate"])
	assert.Equal(t, "same_date", out["kind"])
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(&env.barberID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/api/availability?date=2026-06-10&barber_id=%d", env.barberID)
	resp, out := env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	slots, ok := out["slots"].([]any)
	require.True(t, ok)
	times := make([]string, 0, len(slots))
	for _, raw := range slots {
		slot := raw.(map[string]any)
		times = append(times, slot["time"].(string))
	}
	assert.NotContains(t, times, "10:00")
	assert.Contains(t, times, "10:30")
	assert.Contains(t, times, "09:00")
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(nil))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := env.do(t, http.MethodPatch, "/api/bookings/1/status", "",
		map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirmed", out["status"])

	resp, _ = env.do(t, http.MethodPatch, "/api/bookings/1/status", "",
		map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cancelled bookings stay cancelled.
	resp, _ = env.do(t, http.MethodPatch, "/api/bookings/1/status", "",
		map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/sweep", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/sweep", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, out := env.do(t, http.MethodPost, "/api/admin/sweep", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), out["archived"])
}

func TestBlackoutEndpoints(t *testing.T) {
	env := newTestServer(t)

	window := map[string]any{
		"date":         "2026-06-10",
		"start":        "13:15",
		"duration_min": 60,
		"reason":       "maintenance",
	}

	resp, out := env.do(t, http.MethodPost, "/api/admin/blackouts", testAPIKey, window)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slots, ok := out["slots"].([]any)
	require.True(t, ok)
	// 13:15+60 partially covers three slots.
	assert.Len(t, slots, 3)

	resp, _ = env.do(t, http.MethodPost, "/api/admin/blackouts", testAPIKey, window)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The covered slots are gone from availability.
	resp, avail := env.do(t, http.MethodGet, "/api/availability?date=2026-06-10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, raw := range avail["slots"].([]any) {
		slot := raw.(map[string]any)
		assert.NotContains(t, []string{"13:00", "13:30", "14:00"}, slot["time"])
	}

	// Booking into the window is rejected.
	body := bookingBody(nil)
	body["time"] = "13:30"
	resp, _ = env.do(t, http.MethodPost, "/api/bookings", "", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, list := env.do(t, http.MethodGet, "/api/admin/blackouts?date=2026-06-10", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list["blackouts"], 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/admin/blackouts/1", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/admin/blackouts/1", testAPIKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminBookingsDaySheet(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(nil))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := env.do(t, http.MethodGet, "/api/admin/bookings?date=2026-06-10", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["bookings"], 1)

	resp, out = env.do(t, http.MethodGet, "/api/admin/bookings?date=2026-06-11", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out["bookings"])
}

func TestAdminReportEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, http.MethodPost, "/api/bookings", "", bookingBody(nil))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet,
		env.URL+"/api/admin/report?from=2026-06-01&to=2026-06-30", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + one booking
	assert.Equal(t, "Alex Doe", rows[1][4])
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestServer(t)

	resp, out := env.do(t, http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["services"], 2)

	resp, out = env.do(t, http.MethodGet, "/api/barbers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["barbers"], 2)
}

func TestHealthz(t *testing.T) {
	env := newTestServer(t)

	resp, out := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, ServerConfig{
		AdminAPIKey:    testAPIKey,
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	resp, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
