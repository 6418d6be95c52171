package behavior

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
)

// ReactivationPlan is the set of writes that brings a tenant's queue in line
// with its behavior records.
type ReactivationPlan struct {
	// Upserts carry the status to keep: pending for new entries, the stored
	// status for existing ones.
	Upserts []model.ReactivationQueueEntry
	// Removals are clients whose entry must be deleted.
	Removals []uuid.UUID
}

// DaysInactive returns the whole days from the last appointment date to today.
func DaysInactive(lastAppointmentDate string, today time.Time) (int, error) {
	return parse.DaysBetween(lastAppointmentDate, parse.FormatDate(today))
}

// PlanReactivation filters records for clients that are not blocked and whose
// last appointment is more than policy.InactiveDays before today.
//
// An existing entry keeps its status and creation time while the client still
// qualifies. It is removed once the client has a completed appointment dated on
// or after the day the entry was created, or stops qualifying for any other reason.
func PlanReactivation(
	tenantID uuid.UUID,
	records []model.ClientBehavior,
	existing []model.ReactivationQueueEntry,
	clients map[uuid.UUID]model.Client,
	today time.Time,
	policy Policy,
) ReactivationPlan {
	current := make(map[uuid.UUID]model.ReactivationQueueEntry, len(existing))
	for _, e := range existing {
		current[e.ClientID] = e
	}

	var plan ReactivationPlan
	keep := make(map[uuid.UUID]bool)

	for _, rec := range records {
		if rec.TenantID != tenantID || rec.Classification == model.ClassificationBlocked || rec.LastAppointmentDate == "" {
			continue
		}
		days, err := DaysInactive(rec.LastAppointmentDate, today)
		if err != nil || days <= policy.InactiveDays {
			continue
		}

		entry := model.ReactivationQueueEntry{
			ClientID:            rec.ClientID,
			TenantID:            tenantID,
			DaysInactive:        days,
			LastAppointmentDate: rec.LastAppointmentDate,
			Status:              model.ReactivationPending,
		}
		if c, ok := clients[rec.ClientID]; ok {
			entry.ClientName = c.Name
			entry.ClientPhone = c.Phone
		}

		if old, ok := current[rec.ClientID]; ok {
			if returnedSince(rec, old) {
				continue
			}
			entry.Status = old.Status
			entry.CreatedAt = old.CreatedAt
		}

		keep[rec.ClientID] = true
		plan.Upserts = append(plan.Upserts, entry)
	}

	for id := range current {
		if !keep[id] {
			plan.Removals = append(plan.Removals, id)
		}
	}
	sort.Slice(plan.Removals, func(i, j int) bool {
		return plan.Removals[i].String() < plan.Removals[j].String()
	})
	return plan
}

func returnedSince(rec model.ClientBehavior, entry model.ReactivationQueueEntry) bool {
	if rec.LastCompletedDate == "" || entry.CreatedAt.IsZero() {
		return false
	}
	return rec.LastCompletedDate >= parse.FormatDate(entry.CreatedAt)
}
