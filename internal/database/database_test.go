package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCatalog(t *testing.T, db *DB) (barber *models.Barber, cut, shave *models.Service) {
	t.Helper()
	ctx := context.Background()

	barber = &models.Barber{Name: "Sam", Available: true}
	require.NoError(t, db.CreateBarber(ctx, barber))

	cut = &models.Service{Name: "Haircut", PriceCents: 3000, DurationMin: 30, Category: "hair", IsActive: true}
	require.NoError(t, db.CreateService(ctx, cut))

	shave = &models.Service{Name: "Shave", PriceCents: 2000, DurationMin: 30, Category: "beard", IsActive: true}
	require.NoError(t, db.CreateService(ctx, shave))

	return barber, cut, shave
}

func testBooking(barberID *int64, date timeslot.Date, tod timeslot.TimeOfDay) *models.Booking {
	return &models.Booking{
		Ref:           uuid.NewString(),
		CustomerName:  "Alex Doe",
		CustomerEmail: "alex@example.com",
		CustomerPhone: "555-0100",
		BarberID:      barberID,
		Date:          date,
		Time:          tod,
		SubtotalCents: 3000,
		TotalCents:    3000,
	}
}

var (
	testDate = timeslot.Date{Year: 2026, Month: time.June, Day: 10}
	testSlot = timeslot.TimeOfDay(10 * 60)
)

func TestCreateAndGetBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, cut, shave := seedCatalog(t, db)

	b := testBooking(&barber.ID, testDate, testSlot)
	b.Services = []models.BookingService{
		{ServiceID: cut.ID, Name: cut.Name, PriceCents: cut.PriceCents, DurationMin: 30},
		{ServiceID: shave.ID, Name: shave.Name, PriceCents: shave.PriceCents, DurationMin: 30},
	}
	b.SubtotalCents = 5000
	b.TipCents = 1000
	b.TotalCents = 6000

	require.NoError(t, db.CreateBooking(ctx, b, CapacityPerBarber))
	assert.NotZero(t, b.ID)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, testDate, got.Date)
	assert.Equal(t, testSlot, got.Time)
	require.Len(t, got.Services, 2)
	assert.Equal(t, "Haircut", got.Services[0].Name)
	assert.Equal(t, int64(5000), got.SubtotalCents)
	assert.Equal(t, int64(6000), got.TotalCents)

	byRef, err := db.GetBookingByRef(ctx, b.Ref)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBookingBarberConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber))

	err := db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different slot is fine.
	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot+30), CapacityPerBarber))
}

func TestCreateBookingCapacity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	second := &models.Barber{Name: "Kim", Available: true}
	require.NoError(t, db.CreateBarber(ctx, second))

	// Two available barbers: two barber-agnostic bookings fit.
	require.NoError(t, db.CreateBooking(ctx, testBooking(nil, testDate, testSlot), CapacityPerBarber))
	require.NoError(t, db.CreateBooking(ctx, testBooking(nil, testDate, testSlot), CapacityPerBarber))

	err := db.CreateBooking(ctx, testBooking(nil, testDate, testSlot), CapacityPerBarber)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreateBookingSingleChair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	require.NoError(t, db.CreateBooking(ctx, testBooking(nil, testDate, testSlot), CapacitySingleChair))

	err := db.CreateBooking(ctx, testBooking(nil, testDate, testSlot), CapacitySingleChair)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreateBookingBlackedOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	w := &models.BlackoutWindow{Date: testDate, Start: timeslot.TimeOfDay(10*60 + 15), DurationMin: 30}
	require.NoError(t, db.CreateBlackout(ctx, w))

	// 10:15+30min overlaps both the 10:00 and 10:30 slots.
	err := db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber)
	assert.ErrorIs(t, err, ErrSlotBlackedOut)

	err = db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot+30), CapacityPerBarber)
	assert.ErrorIs(t, err, ErrSlotBlackedOut)

	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot+60), CapacityPerBarber))
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber)
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent create must succeed")

	count, err := db.CountActiveAt(ctx, testDate, testSlot)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateBookingStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	b := testBooking(&barber.ID, testDate, testSlot)
	require.NoError(t, db.CreateBooking(ctx, b, CapacityPerBarber))

	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusConfirmed))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	// Guard status no longer matches.
	err = db.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	err = db.UpdateBookingStatus(ctx, 9999, models.StatusPending, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledBookingFreesSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	b := testBooking(&barber.ID, testDate, testSlot)
	require.NoError(t, db.CreateBooking(ctx, b, CapacityPerBarber))
	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusCancelled))

	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber))
}

func TestFindActiveByCustomerOnDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	b := testBooking(&barber.ID, testDate, testSlot)
	require.NoError(t, db.CreateBooking(ctx, b, CapacityPerBarber))

	// Matched by phone.
	got, err := db.FindActiveByCustomerOnDate(ctx, "555-0100", "other@example.com", testDate, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.ID, got.ID)

	// Matched by email.
	got, err = db.FindActiveByCustomerOnDate(ctx, "555-9999", "alex@example.com", testDate, 0)
	require.NoError(t, err)
	require.NotNil(t, got)

	// Different date.
	got, err = db.FindActiveByCustomerOnDate(ctx, "555-0100", "alex@example.com", testDate.AddDays(1), 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Own booking excluded.
	got, err = db.FindActiveByCustomerOnDate(ctx, "555-0100", "alex@example.com", testDate, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Cancelled bookings do not count.
	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusCancelled))
	got, err = db.FindActiveByCustomerOnDate(ctx, "555-0100", "alex@example.com", testDate, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindRecentByCustomer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	b := testBooking(&barber.ID, testDate, testSlot)
	require.NoError(t, db.CreateBooking(ctx, b, CapacityPerBarber))

	got, err := db.FindRecentByCustomer(ctx, "555-0100", "", time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.ID, got.ID)

	got, err = db.FindRecentByCustomer(ctx, "555-0100", "", time.Now().Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSweepPast(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	old := testBooking(&barber.ID, testDate, testSlot)
	require.NoError(t, db.CreateBooking(ctx, old, CapacityPerBarber))

	confirmed := testBooking(&barber.ID, testDate, testSlot+30)
	require.NoError(t, db.CreateBooking(ctx, confirmed, CapacityPerBarber))
	require.NoError(t, db.UpdateBookingStatus(ctx, confirmed.ID, models.StatusPending, models.StatusConfirmed))

	cancelled := testBooking(&barber.ID, testDate, testSlot+60)
	require.NoError(t, db.CreateBooking(ctx, cancelled, CapacityPerBarber))
	require.NoError(t, db.UpdateBookingStatus(ctx, cancelled.ID, models.StatusPending, models.StatusCancelled))

	future := testBooking(&barber.ID, testDate.AddDays(5), testSlot)
	require.NoError(t, db.CreateBooking(ctx, future, CapacityPerBarber))

	moved, err := db.SweepPast(ctx, testDate.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	for _, tc := range []struct {
		id   int64
		want string
	}{
		{old.ID, models.StatusPast},
		{confirmed.ID, models.StatusPast},
		{cancelled.ID, models.StatusCancelled},
		{future.ID, models.StatusPending},
	} {
		got, err := db.GetBooking(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Status)
	}

	// Second sweep is a no-op.
	moved, err = db.SweepPast(ctx, testDate.AddDays(1))
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestListBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	barber, _, _ := seedCatalog(t, db)

	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot+30), CapacityPerBarber))
	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate, testSlot), CapacityPerBarber))
	require.NoError(t, db.CreateBooking(ctx, testBooking(&barber.ID, testDate.AddDays(1), testSlot), CapacityPerBarber))

	byDate, err := db.ListBookingsByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, testSlot, byDate[0].Time)

	inRange, err := db.ListBookingsInRange(ctx, testDate, testDate.AddDays(1))
	require.NoError(t, err)
	assert.Len(t, inRange, 3)
}
