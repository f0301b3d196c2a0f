package audit

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// ReportStore loads the rows that go into a report.
type ReportStore interface {
	ListBookingsInRange(ctx context.Context, from, to timeslot.Date) ([]models.Booking, error)
	ListBlackoutsInRange(ctx context.Context, from, to timeslot.Date) ([]models.BlackoutWindow, error)
}

// Reporter renders booking activity over a date range as an .xlsx
// workbook with one sheet for bookings and one for blackout windows.
type Reporter struct {
	store  ReportStore
	logger *zerolog.Logger
}

// NewReporter creates a reporter over the given store.
func NewReporter(store ReportStore, logger *zerolog.Logger) *Reporter {
	return &Reporter{store: store, logger: logger}
}

var bookingColumns = []string{
	"ID", "Ref", "Date", "Time", "Customer", "Phone", "Email",
	"Barber ID", "Services", "Status", "Subtotal", "Tip", "Total", "Payment", "Created At",
}

var blackoutColumns = []string{
	"ID", "Date", "Start", "Duration (min)", "Reason", "Created By", "Created At",
}

// WriteReport streams the workbook for the inclusive date range to out.
func (r *Reporter) WriteReport(ctx context.Context, from, to timeslot.Date, out io.Writer) error {
	bookings, err := r.store.ListBookingsInRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	blackouts, err := r.store.ListBlackoutsInRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load blackouts: %w", err)
	}

	w := newSheetWriter()
	defer w.close()

	if err := r.writeBookings(w, bookings); err != nil {
		return err
	}
	if err := r.writeBlackouts(w, blackouts); err != nil {
		return err
	}

	if err := w.save(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	r.logger.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Int("bookings", len(bookings)).
		Int("blackouts", len(blackouts)).
		Msg("audit report generated")
	return nil
}

func (r *Reporter) writeBookings(w *sheetWriter, bookings []models.Booking) error {
	if err := w.addSheet("Bookings"); err != nil {
		return err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return err
	}

	for _, b := range bookings {
		names := make([]string, 0, len(b.Services))
		for _, line := range b.Services {
			names = append(names, line.Name)
		}

		barber := ""
		if b.BarberID != nil {
			barber = fmt.Sprintf("%d", *b.BarberID)
		}

		row := []any{
			b.ID,
			b.Ref,
			b.Date.String(),
			b.Time.String(),
			b.CustomerName,
			b.CustomerPhone,
			b.CustomerEmail,
			barber,
			strings.Join(names, ", "),
			b.Status,
			formatCents(b.SubtotalCents),
			formatCents(b.TipCents),
			formatCents(b.TotalCents),
			b.PaymentMethod,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) writeBlackouts(w *sheetWriter, blackouts []models.BlackoutWindow) error {
	if err := w.addSheet("Blackouts"); err != nil {
		return err
	}
	if err := w.writeHeader(blackoutColumns); err != nil {
		return err
	}

	for _, bw := range blackouts {
		row := []any{
			bw.ID,
			bw.Date.String(),
			bw.Start.String(),
			bw.DurationMin,
			bw.Reason,
			bw.CreatedBy,
			bw.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
