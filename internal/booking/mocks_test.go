package booking

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"barberdesk/internal/database"
	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking, capacity database.Capacity) error {
	return m.Called(ctx, b, capacity).Error(0)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) GetBookingByRef(ctx context.Context, ref string) (*models.Booking, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) UpdateBookingStatus(ctx context.Context, id int64, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockStore) FindActiveByCustomerOnDate(ctx context.Context, phone, email string, date timeslot.Date, excludeID int64) (*models.Booking, error) {
	args := m.Called(ctx, phone, email, date, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) FindRecentByCustomer(ctx context.Context, phone, email string, since time.Time, excludeID int64) (*models.Booking, error) {
	args := m.Called(ctx, phone, email, since, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) CountActiveAt(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (int, error) {
	args := m.Called(ctx, date, tod)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) BarberBookedAt(ctx context.Context, barberID int64, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	args := m.Called(ctx, barberID, date, tod)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CountAvailableBarbers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CreateBlackout(ctx context.Context, w *models.BlackoutWindow) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockStore) DeleteBlackout(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetBlackout(ctx context.Context, id int64) (*models.BlackoutWindow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlackoutWindow), args.Error(1)
}

func (m *mockStore) IsBlackedOut(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	args := m.Called(ctx, date, tod)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListBlackoutsByDate(ctx context.Context, date timeslot.Date) ([]models.BlackoutWindow, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]models.BlackoutWindow), args.Error(1)
}

func (m *mockStore) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *mockStore) ListBarbers(ctx context.Context) ([]models.Barber, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Barber), args.Error(1)
}

func (m *mockStore) SweepPast(ctx context.Context, before timeslot.Date) (int, error) {
	args := m.Called(ctx, before)
	return args.Int(0), args.Error(1)
}
