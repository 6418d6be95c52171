package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	// Source data, read-only to the sync.
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error)
	ListStaff(ctx context.Context, tenantID uuid.UUID) ([]model.Staff, error)
	LoadCalendarRules(ctx context.Context, staffID uuid.UUID, date time.Time) (CalendarRules, error)
	ListStaffAppointments(ctx context.Context, staffID uuid.UUID, date string) ([]model.Appointment, error)
	ListTenantAppointments(ctx context.Context, tenantID uuid.UUID) ([]model.Appointment, error)
	ListClients(ctx context.Context, tenantID uuid.UUID) ([]model.Client, error)
	AverageServicePrice(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, bool, error)
	GetPolicy(ctx context.Context, tenantID uuid.UUID) (*model.GrowthPolicy, error)

	// Derived signal tables.
	SyncEmptySlots(ctx context.Context, tenantID, staffID uuid.UUID, date string, open, booked []string) error
	PruneEmptySlots(ctx context.Context, tenantID uuid.UUID, date string, roster []uuid.UUID) error
	ReplaceClientBehaviors(ctx context.Context, tenantID uuid.UUID, records []model.ClientBehavior) error
	ListReactivationEntries(ctx context.Context, tenantID uuid.UUID) ([]model.ReactivationQueueEntry, error)
	SyncReactivationQueue(ctx context.Context, tenantID uuid.UUID, upserts []model.ReactivationQueueEntry, removals []uuid.UUID) error
	UpsertMoneyLostAlert(ctx context.Context, alert model.MoneyLostAlert) (bool, error)

	// Dashboard reads and owner actions.
	ListEmptySlots(ctx context.Context, tenantID uuid.UUID, date string) ([]model.EmptySlot, error)
	ListClientBehaviors(ctx context.Context, tenantID uuid.UUID, classification model.Classification) ([]model.ClientBehavior, error)
	GetMoneyLostAlert(ctx context.Context, tenantID uuid.UUID, date string) (*model.MoneyLostAlert, error)
	ListMoneyLostAlerts(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MoneyLostAlert, error)
	DismissMoneyLostAlert(ctx context.Context, tenantID uuid.UUID, date string) error
	SetReactivationStatus(ctx context.Context, tenantID, clientID uuid.UUID, status model.ReactivationStatus) error

	// Owner push subscriptions.
	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListTenants returns every active tenant ordered by id.
func (s *gormStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

func (s *gormStore) GetTenant(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		return nil, notFound(err)
	}
	return &tenant, nil
}

// ListStaff returns the active staff of a tenant.
func (s *gormStore) ListStaff(ctx context.Context, tenantID uuid.UUID) ([]model.Staff, error) {
	var staff []model.Staff
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("id").
		Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("failed to list staff of tenant %s: %w", tenantID, err)
	}
	return staff, nil
}

// LoadCalendarRules loads the rules of the date's weekday and the exceptions of the date.
func (s *gormStore) LoadCalendarRules(ctx context.Context, staffID uuid.UUID, date time.Time) (CalendarRules, error) {
	var rules CalendarRules
	db := s.db.WithContext(ctx)
	weekday := int(date.Weekday())

	if err := db.Where("staff_id = ? AND weekday = ?", staffID, weekday).
		Order("start_time").Find(&rules.Hours).Error; err != nil {
		return rules, fmt.Errorf("failed to load work hours of staff %s: %w", staffID, err)
	}
	if err := db.Where("staff_id = ? AND weekday = ?", staffID, weekday).
		Order("start_time").Find(&rules.Breaks).Error; err != nil {
		return rules, fmt.Errorf("failed to load breaks of staff %s: %w", staffID, err)
	}
	if err := db.Where("staff_id = ? AND date = ?", staffID, parse.FormatDate(date)).
		Find(&rules.Exceptions).Error; err != nil {
		return rules, fmt.Errorf("failed to load exceptions of staff %s: %w", staffID, err)
	}
	return rules, nil
}

func (s *gormStore) ListStaffAppointments(ctx context.Context, staffID uuid.UUID, date string) ([]model.Appointment, error) {
	var appts []model.Appointment
	if err := s.db.WithContext(ctx).
		Where("staff_id = ? AND date = ?", staffID, date).
		Order("time").
		Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments of staff %s on %s: %w", staffID, date, err)
	}
	return appts, nil
}

// ListTenantAppointments returns the full appointment history of a tenant.
func (s *gormStore) ListTenantAppointments(ctx context.Context, tenantID uuid.UUID) ([]model.Appointment, error) {
	var appts []model.Appointment
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("date, time").
		Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments of tenant %s: %w", tenantID, err)
	}
	return appts, nil
}

func (s *gormStore) ListClients(ctx context.Context, tenantID uuid.UUID) ([]model.Client, error) {
	var clients []model.Client
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients of tenant %s: %w", tenantID, err)
	}
	return clients, nil
}

// AverageServicePrice averages the prices of the tenant's active priced services.
// The boolean is false when the tenant has none.
func (s *gormStore) AverageServicePrice(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, bool, error) {
	var avg decimal.NullDecimal
	row := s.db.WithContext(ctx).
		Model(&model.Service{}).
		Select("AVG(price)").
		Where("tenant_id = ? AND active = ? AND price > 0", tenantID, true).
		Row()
	if err := row.Scan(&avg); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to average service prices of tenant %s: %w", tenantID, err)
	}
	if !avg.Valid {
		return decimal.Zero, false, nil
	}
	return avg.Decimal.Round(2), true, nil
}

// GetPolicy returns the tenant's threshold overrides, or nil when it has none.
func (s *gormStore) GetPolicy(ctx context.Context, tenantID uuid.UUID) (*model.GrowthPolicy, error) {
	var policy model.GrowthPolicy
	err := s.db.WithContext(ctx).First(&policy, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load growth policy of tenant %s: %w", tenantID, err)
	}
	return &policy, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
