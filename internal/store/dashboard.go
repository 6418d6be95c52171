package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"barber-growth-backend/internal/model"
)

// ListEmptySlots returns the slot rows of a tenant's date ordered by staff and time.
func (s *gormStore) ListEmptySlots(ctx context.Context, tenantID uuid.UUID, date string) ([]model.EmptySlot, error) {
	var slots []model.EmptySlot
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND date = ?", tenantID, date).
		Order("staff_id, time").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list empty slots: %w", err)
	}
	return slots, nil
}

// ListClientBehaviors returns a tenant's behavior records, highest cancel rate
// first. An empty classification returns all of them.
func (s *gormStore) ListClientBehaviors(ctx context.Context, tenantID uuid.UUID, classification model.Classification) ([]model.ClientBehavior, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if classification != "" {
		q = q.Where("classification = ?", classification)
	}
	var records []model.ClientBehavior
	if err := q.Order("cancel_rate DESC, client_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list client behavior: %w", err)
	}
	return records, nil
}

func (s *gormStore) GetMoneyLostAlert(ctx context.Context, tenantID uuid.UUID, date string) (*model.MoneyLostAlert, error) {
	var alert model.MoneyLostAlert
	if err := s.db.WithContext(ctx).First(&alert, "tenant_id = ? AND date = ?", tenantID, date).Error; err != nil {
		return nil, notFound(err)
	}
	return &alert, nil
}

// ListMoneyLostAlerts returns the most recent alerts of a tenant.
func (s *gormStore) ListMoneyLostAlerts(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MoneyLostAlert, error) {
	var alerts []model.MoneyLostAlert
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("date DESC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *gormStore) DismissMoneyLostAlert(ctx context.Context, tenantID uuid.UUID, date string) error {
	res := s.db.WithContext(ctx).Model(&model.MoneyLostAlert{}).
		Where("tenant_id = ? AND date = ?", tenantID, date).
		Update("is_dismissed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to dismiss alert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReactivationStatus records the outcome of outreach for a queued client.
func (s *gormStore) SetReactivationStatus(ctx context.Context, tenantID, clientID uuid.UUID, status model.ReactivationStatus) error {
	res := s.db.WithContext(ctx).Model(&model.ReactivationQueueEntry{}).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update reactivation status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSubscription creates or replaces a subscription keyed by endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "p256dh", "auth"}),
	}).Create(&sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of tenant %s: %w", tenantID, err)
	}
	return subs, nil
}
