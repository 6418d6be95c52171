package behavior

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
)

// Result is the output of one aggregation pass.
type Result struct {
	Records []model.ClientBehavior
	// Skipped holds one error per appointment left out of the counts.
	Skipped []error
}

// Aggregate recomputes every client's behavior record of a tenant from its full
// appointment history. Records are sorted by client id.
//
// Appointments without a client, of another tenant, with an unknown status or
// with an unparsable date are skipped and reported.
func Aggregate(tenantID uuid.UUID, appointments []model.Appointment, policy Policy) Result {
	byClient := make(map[uuid.UUID]*model.ClientBehavior)
	var skipped []error

	for _, a := range appointments {
		if err := checkAppointment(tenantID, a); err != nil {
			skipped = append(skipped, err)
			continue
		}

		rec, ok := byClient[a.ClientID]
		if !ok {
			rec = &model.ClientBehavior{ClientID: a.ClientID, TenantID: tenantID}
			byClient[a.ClientID] = rec
		}

		rec.TotalAppointments++
		switch a.Status {
		case model.StatusCompleted:
			rec.CompletedCount++
			if a.Date > rec.LastCompletedDate {
				rec.LastCompletedDate = a.Date
			}
		case model.StatusCancelled:
			rec.CancelledCount++
		case model.StatusNoShow:
			rec.NoShowCount++
		}
		// Dates are YYYY-MM-DD so string order is calendar order.
		if a.Date > rec.LastAppointmentDate {
			rec.LastAppointmentDate = a.Date
		}
	}

	records := make([]model.ClientBehavior, 0, len(byClient))
	for _, rec := range byClient {
		rec.CancelRate = CancelRate(rec.CancelledCount, rec.TotalAppointments)
		rec.Classification = policy.Classify(rec.TotalAppointments, rec.CancelledCount)
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ClientID.String() < records[j].ClientID.String()
	})

	return Result{Records: records, Skipped: skipped}
}

func checkAppointment(tenantID uuid.UUID, a model.Appointment) error {
	switch {
	case a.TenantID != tenantID:
		return fmt.Errorf("appointment %s belongs to tenant %s", a.ID, a.TenantID)
	case a.ClientID == uuid.Nil:
		return fmt.Errorf("appointment %s has no client", a.ID)
	case !a.Status.Valid():
		return fmt.Errorf("appointment %s has unknown status %q", a.ID, a.Status)
	}
	if _, err := parse.ParseDate(a.Date); err != nil {
		return fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	return nil
}
