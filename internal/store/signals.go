package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barber-growth-backend/internal/model"
)

const batchSize = 500

// SyncEmptySlots converges the empty_slots rows of one staff member and date
// with the latest resolution:
//   - open slots without a row are inserted as open, filled rows reopen;
//   - booked slots that had an open or notified row become filled;
//   - rows for times that are no longer candidates are deleted.
func (s *gormStore) SyncEmptySlots(ctx context.Context, tenantID, staffID uuid.UUID, date string, open, booked []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(open) > 0 {
			rows := make([]model.EmptySlot, len(open))
			for i, t := range open {
				rows[i] = model.EmptySlot{StaffID: staffID, Date: date, Time: t, TenantID: tenantID, Status: model.SlotOpen}
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "staff_id"}, {Name: "date"}, {Name: "time"}},
				DoNothing: true,
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert open slots of staff %s on %s: %w", staffID, date, err)
			}

			if err := tx.Model(&model.EmptySlot{}).
				Where("staff_id = ? AND date = ? AND time IN ? AND status = ?", staffID, date, open, model.SlotFilled).
				Update("status", model.SlotOpen).Error; err != nil {
				return fmt.Errorf("failed to reopen slots of staff %s on %s: %w", staffID, date, err)
			}
		}

		if len(booked) > 0 {
			if err := tx.Model(&model.EmptySlot{}).
				Where("staff_id = ? AND date = ? AND time IN ? AND status IN ?", staffID, date, booked,
					[]model.EmptySlotStatus{model.SlotOpen, model.SlotNotified}).
				Update("status", model.SlotFilled).Error; err != nil {
				return fmt.Errorf("failed to fill slots of staff %s on %s: %w", staffID, date, err)
			}
		}

		stale := tx.Where("staff_id = ? AND date = ?", staffID, date)
		if keep := append(append([]string{}, open...), booked...); len(keep) > 0 {
			stale = stale.Where("time NOT IN ?", keep)
		}
		if err := stale.Delete(&model.EmptySlot{}).Error; err != nil {
			return fmt.Errorf("failed to prune slots of staff %s on %s: %w", staffID, date, err)
		}
		return nil
	})
}

// PruneEmptySlots deletes a tenant's slot rows for date that belong to staff
// outside roster, such as deactivated or removed staff. An empty roster
// deletes every row of the date.
func (s *gormStore) PruneEmptySlots(ctx context.Context, tenantID uuid.UUID, date string, roster []uuid.UUID) error {
	q := s.db.WithContext(ctx).Where("tenant_id = ? AND date = ?", tenantID, date)
	if len(roster) > 0 {
		q = q.Where("staff_id NOT IN ?", roster)
	}
	if err := q.Delete(&model.EmptySlot{}).Error; err != nil {
		return fmt.Errorf("failed to prune slots of tenant %s on %s: %w", tenantID, date, err)
	}
	return nil
}

// ReplaceClientBehaviors overwrites every counter of the given records and
// deletes the records of clients that are no longer in the set.
func (s *gormStore) ReplaceClientBehaviors(ctx context.Context, tenantID uuid.UUID, records []model.ClientBehavior) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "client_id"}, {Name: "tenant_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"total_appointments", "completed_count", "cancelled_count", "no_show_count",
					"cancel_rate", "classification", "last_appointment_date", "last_completed_date",
				}),
			}).CreateInBatches(&records, batchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert client behavior of tenant %s: %w", tenantID, err)
			}
		}

		prune := tx.Where("tenant_id = ?", tenantID)
		if len(records) > 0 {
			ids := make([]uuid.UUID, len(records))
			for i, r := range records {
				ids[i] = r.ClientID
			}
			prune = prune.Where("client_id NOT IN ?", ids)
		}
		if err := prune.Delete(&model.ClientBehavior{}).Error; err != nil {
			return fmt.Errorf("failed to prune client behavior of tenant %s: %w", tenantID, err)
		}
		return nil
	})
}

func (s *gormStore) ListReactivationEntries(ctx context.Context, tenantID uuid.UUID) ([]model.ReactivationQueueEntry, error) {
	var entries []model.ReactivationQueueEntry
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("days_inactive DESC, client_id").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list reactivation queue of tenant %s: %w", tenantID, err)
	}
	return entries, nil
}

// SyncReactivationQueue refreshes the queue. Status and created_at are only
// written on insert, so a status advanced by outreach is never regressed.
func (s *gormStore) SyncReactivationQueue(ctx context.Context, tenantID uuid.UUID, upserts []model.ReactivationQueueEntry, removals []uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(upserts) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "client_id"}, {Name: "tenant_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"client_name", "client_phone", "days_inactive", "last_appointment_date",
				}),
			}).CreateInBatches(&upserts, batchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert reactivation queue of tenant %s: %w", tenantID, err)
			}
		}
		if len(removals) > 0 {
			if err := tx.Where("tenant_id = ? AND client_id IN ?", tenantID, removals).
				Delete(&model.ReactivationQueueEntry{}).Error; err != nil {
				return fmt.Errorf("failed to prune reactivation queue of tenant %s: %w", tenantID, err)
			}
		}
		return nil
	})
}

// UpsertMoneyLostAlert writes the day's computed figures. is_dismissed and
// created_at are only written on insert.
//
// It reports whether the alert became critical with this write, that is it
// is critical and was either absent or not critical before, and not dismissed.
func (s *gormStore) UpsertMoneyLostAlert(ctx context.Context, alert model.MoneyLostAlert) (bool, error) {
	var becameCritical bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.MoneyLostAlert
		err := tx.First(&prev, "tenant_id = ? AND date = ?", alert.TenantID, alert.Date).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			becameCritical = alert.IsCritical
		case err != nil:
			return err
		default:
			becameCritical = alert.IsCritical && !prev.IsCritical && !prev.IsDismissed
		}

		alert.IsDismissed = false
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"empty_slots_count", "cancellations_count", "no_shows_count", "total_appointments",
				"avg_service_price", "estimated_loss", "cancel_rate", "is_critical",
			}),
		}).Create(&alert).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert money lost alert of tenant %s on %s: %w", alert.TenantID, alert.Date, err)
	}
	return becameCritical, nil
}
