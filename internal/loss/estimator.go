package loss

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"barber-growth-backend/internal/behavior"
	"barber-growth-backend/internal/model"
)

// Policy decides when a day's loss is critical.
type Policy struct {
	CriticalCancelRate float64
	CriticalEmptySlots int
}

// DefaultPolicy returns the stock criticality thresholds.
func DefaultPolicy() Policy {
	return Policy{CriticalCancelRate: 0.30, CriticalEmptySlots: 3}
}

// Input carries one tenant's figures for one day.
type Input struct {
	TenantID          uuid.UUID
	Date              string
	EmptySlots        int
	Cancellations     int
	NoShows           int
	TotalAppointments int
	AvgServicePrice   decimal.Decimal
}

// Estimate prices every lost opportunity of the day at the average ticket.
// The returned alert is not dismissed; persisting it must not overwrite a
// stored dismissal.
func Estimate(in Input, p Policy) model.MoneyLostAlert {
	lost := int64(in.EmptySlots + in.Cancellations + in.NoShows)
	estimated := in.AvgServicePrice.Mul(decimal.NewFromInt(lost)).Round(2)
	rate := behavior.CancelRate(in.Cancellations, in.TotalAppointments)

	return model.MoneyLostAlert{
		TenantID:           in.TenantID,
		Date:               in.Date,
		EmptySlotsCount:    in.EmptySlots,
		CancellationsCount: in.Cancellations,
		NoShowsCount:       in.NoShows,
		TotalAppointments:  in.TotalAppointments,
		AvgServicePrice:    in.AvgServicePrice.Round(2),
		EstimatedLoss:      estimated,
		CancelRate:         rate,
		IsCritical:         rate > p.CriticalCancelRate || in.EmptySlots > p.CriticalEmptySlots,
	}
}

// DayCounts returns the cancellations, no-shows and total appointments dated on date.
func DayCounts(appointments []model.Appointment, date string) (cancellations, noShows, total int) {
	for _, a := range appointments {
		if a.Date != date || !a.Status.Valid() {
			continue
		}
		total++
		switch a.Status {
		case model.StatusCancelled:
			cancellations++
		case model.StatusNoShow:
			noShows++
		}
	}
	return cancellations, noShows, total
}
