package growth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"barber-growth-backend/config"
	"barber-growth-backend/internal/cache"
	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/store"
)

// 2026-03-02 is a Monday.
var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

const today = "2026-03-02"

func newSQLiteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Tenant{}, &model.Staff{}, &model.Client{}, &model.Service{}, &model.GrowthPolicy{},
		&model.WorkHourRule{}, &model.BreakRule{}, &model.DateException{}, &model.Appointment{},
		&model.ClientBehavior{}, &model.EmptySlot{}, &model.ReactivationQueueEntry{},
		&model.MoneyLostAlert{}, &model.PushSubscription{},
	))
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// shop is one seeded tenant.
type shop struct {
	tenant model.Tenant
	staff  model.Staff
	loyal  model.Client
	flaky  model.Client
	lapsed model.Client
}

// seedShop creates a tenant whose Monday produces:
//   - candidates 09:00 09:30 10:30 11:00 11:30 (10:00 is lunch)
//   - 09:00 and 09:30 booked by a 60 minute appointment
//   - one cancellation today, so a 0.5 cancel rate
//   - a blocked client, an inactive client and a regular one
func seedShop(t *testing.T, db *gorm.DB, name string) shop {
	t.Helper()
	s := shop{tenant: model.Tenant{Name: name, Timezone: "UTC", Active: true}}
	require.NoError(t, db.Create(&s.tenant).Error)
	tid := s.tenant.ID

	s.staff = model.Staff{TenantID: tid, Name: "Rafa", Active: true}
	require.NoError(t, db.Create(&s.staff).Error)

	require.NoError(t, db.Create(&model.WorkHourRule{StaffID: s.staff.ID, Weekday: int(time.Monday), StartTime: "09:00", EndTime: "12:00"}).Error)
	require.NoError(t, db.Create(&model.BreakRule{StaffID: s.staff.ID, Weekday: int(time.Monday), StartTime: "10:00", EndTime: "10:30", Kind: "lunch"}).Error)

	require.NoError(t, db.Create(&[]model.Service{
		{TenantID: tid, Name: "Corte", Price: decimal.NewFromInt(40), Active: true},
		{TenantID: tid, Name: "Barba", Price: decimal.NewFromInt(30), Active: true},
	}).Error)

	s.loyal = model.Client{TenantID: tid, Name: "Loyal"}
	s.flaky = model.Client{TenantID: tid, Name: "Flaky"}
	s.lapsed = model.Client{TenantID: tid, Name: "Lapsed", Phone: "+5511900000000"}
	require.NoError(t, db.Create(&s.loyal).Error)
	require.NoError(t, db.Create(&s.flaky).Error)
	require.NoError(t, db.Create(&s.lapsed).Error)

	appt := func(c model.Client, date, clock string, minutes int, status model.AppointmentStatus) model.Appointment {
		return model.Appointment{TenantID: tid, StaffID: s.staff.ID, ClientID: c.ID, Date: date, Time: clock, DurationMinutes: minutes, Status: status}
	}
	require.NoError(t, db.Create(&[]model.Appointment{
		appt(s.loyal, "2026-02-20", "10:00", 30, model.StatusCompleted),
		appt(s.loyal, today, "09:00", 60, model.StatusConfirmed),
		appt(s.flaky, "2026-01-05", "09:00", 30, model.StatusCancelled),
		appt(s.flaky, "2026-01-12", "09:00", 30, model.StatusCancelled),
		appt(s.flaky, "2026-01-19", "09:00", 30, model.StatusNoShow),
		appt(s.flaky, today, "11:00", 30, model.StatusCancelled),
		appt(s.lapsed, "2026-01-10", "14:00", 30, model.StatusCompleted),
	}).Error)
	return s
}

// snapshot is the content of every derived table.
type snapshot struct {
	Slots     []model.EmptySlot
	Behaviors []model.ClientBehavior
	Queue     []model.ReactivationQueueEntry
	Alerts    []model.MoneyLostAlert
}

func takeSnapshot(t *testing.T, db *gorm.DB) snapshot {
	t.Helper()
	var s snapshot
	require.NoError(t, db.Order("staff_id, date, time").Find(&s.Slots).Error)
	require.NoError(t, db.Order("tenant_id, client_id").Find(&s.Behaviors).Error)
	require.NoError(t, db.Order("tenant_id, client_id").Find(&s.Queue).Error)
	require.NoError(t, db.Order("tenant_id, date").Find(&s.Alerts).Error)
	return s
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []string
}

func (n *recordingNotifier) Dispatch(tenantID uuid.UUID, date string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, tenantID.String()+"/"+date)
	return true
}

// failingStore fails chosen reads for one tenant.
type failingStore struct {
	store.Store
	failTenant  uuid.UUID
	failStaff   uuid.UUID
	failTenants bool
}

func (f *failingStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	if f.failTenants {
		return nil, errors.New("dial tcp: connection refused")
	}
	return f.Store.ListTenants(ctx)
}

func (f *failingStore) ListStaff(ctx context.Context, tenantID uuid.UUID) ([]model.Staff, error) {
	if tenantID == f.failTenant {
		return nil, errors.New("connection reset by peer")
	}
	return f.Store.ListStaff(ctx, tenantID)
}

func (f *failingStore) ListStaffAppointments(ctx context.Context, staffID uuid.UUID, date string) ([]model.Appointment, error) {
	if staffID == f.failStaff {
		return nil, errors.New("statement timeout")
	}
	return f.Store.ListStaffAppointments(ctx, staffID, date)
}

func newTestService(cfg *config.Config, s store.Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(cfg, s, zap.NewNop(), opts...)
}

func TestRunGrowthSync_DerivedTables(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	notifier := &recordingNotifier{}
	svc := newTestService(testConfig(), store.NewGormStore(db), WithNotifier(notifier))

	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TenantsProcessed)
	assert.Equal(t, 0, sum.Errors)
	assert.Equal(t, 1, sum.StaffProcessed)

	snap := takeSnapshot(t, db)

	statuses := map[string]model.EmptySlotStatus{}
	for _, s := range snap.Slots {
		assert.Equal(t, today, s.Date)
		statuses[s.Time] = s.Status
	}
	assert.Equal(t, map[string]model.EmptySlotStatus{
		"10:30": model.SlotOpen, "11:00": model.SlotOpen, "11:30": model.SlotOpen,
	}, statuses)

	byClient := map[uuid.UUID]model.ClientBehavior{}
	for _, b := range snap.Behaviors {
		byClient[b.ClientID] = b
	}
	require.Len(t, byClient, 3)
	assert.Equal(t, model.ClassificationBlocked, byClient[sh.flaky.ID].Classification)
	assert.Equal(t, model.ClassificationNormal, byClient[sh.loyal.ID].Classification)
	assert.Equal(t, today, byClient[sh.loyal.ID].LastAppointmentDate)

	require.Len(t, snap.Queue, 1)
	assert.Equal(t, sh.lapsed.ID, snap.Queue[0].ClientID)
	assert.Equal(t, 51, snap.Queue[0].DaysInactive)
	assert.Equal(t, "+5511900000000", snap.Queue[0].ClientPhone)
	assert.Equal(t, model.ReactivationPending, snap.Queue[0].Status)

	require.Len(t, snap.Alerts, 1)
	alert := snap.Alerts[0]
	assert.Equal(t, 3, alert.EmptySlotsCount)
	assert.Equal(t, 1, alert.CancellationsCount)
	assert.Equal(t, 0, alert.NoShowsCount)
	assert.Equal(t, 2, alert.TotalAppointments)
	assert.InDelta(t, 0.5, alert.CancelRate, 1e-9)
	assert.True(t, alert.IsCritical)
	assert.True(t, decimal.NewFromInt(140).Equal(alert.EstimatedLoss), "loss %s", alert.EstimatedLoss)

	assert.Equal(t, []string{sh.tenant.ID.String() + "/" + today}, notifier.jobs)
}

func TestRunGrowthSync_Idempotent(t *testing.T) {
	db := newSQLiteDB(t)
	seedShop(t, db, "Navalha")
	seedShop(t, db, "Tesoura")
	notifier := &recordingNotifier{}
	svc := newTestService(testConfig(), store.NewGormStore(db), WithNotifier(notifier))

	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	first := takeSnapshot(t, db)

	_, err = svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	second := takeSnapshot(t, db)

	assert.Equal(t, first, second)
	assert.Len(t, notifier.jobs, 2, "a critical day is pushed once per tenant")
}

func TestRunGrowthSync_TenantFailureIsIsolated(t *testing.T) {
	db := newSQLiteDB(t)
	a := seedShop(t, db, "A")
	b := seedShop(t, db, "B")
	c := seedShop(t, db, "C")

	fs := &failingStore{Store: store.NewGormStore(db), failTenant: b.tenant.ID}
	svc := newTestService(testConfig(), fs)

	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TenantsProcessed)
	assert.Equal(t, 1, sum.Errors)

	for _, sh := range []shop{a, c} {
		var n int64
		require.NoError(t, db.Model(&model.MoneyLostAlert{}).Where("tenant_id = ?", sh.tenant.ID).Count(&n).Error)
		assert.Equal(t, int64(1), n, "tenant %s must be synced", sh.tenant.Name)
		require.NoError(t, db.Model(&model.ClientBehavior{}).Where("tenant_id = ?", sh.tenant.ID).Count(&n).Error)
		assert.Equal(t, int64(3), n)
	}

	var n int64
	require.NoError(t, db.Model(&model.MoneyLostAlert{}).Where("tenant_id = ?", b.tenant.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRunGrowthSync_StaffFailureIsIsolated(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	second := model.Staff{TenantID: sh.tenant.ID, Name: "Leo", Active: true}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&model.WorkHourRule{StaffID: second.ID, Weekday: int(time.Monday), StartTime: "14:00", EndTime: "15:00"}).Error)

	fs := &failingStore{Store: store.NewGormStore(db), failStaff: sh.staff.ID}
	svc := newTestService(testConfig(), fs)

	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TenantsProcessed)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 1, sum.StaffProcessed)

	var slots []model.EmptySlot
	require.NoError(t, db.Where("staff_id = ?", second.ID).Find(&slots).Error)
	assert.Len(t, slots, 2)

	var alert model.MoneyLostAlert
	require.NoError(t, db.First(&alert, "tenant_id = ?", sh.tenant.ID).Error)
	assert.Equal(t, 2, alert.EmptySlotsCount)
}

func TestRunGrowthSync_StoreUnavailable(t *testing.T) {
	db := newSQLiteDB(t)
	fs := &failingStore{Store: store.NewGormStore(db), failTenants: true}
	svc := newTestService(testConfig(), fs)

	sum, err := svc.RunGrowthSync(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, sum.TenantsProcessed)
}

func TestRunGrowthSync_ConfigWarning(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	require.NoError(t, db.Create(&model.WorkHourRule{StaffID: sh.staff.ID, Weekday: int(time.Monday), StartTime: "11:00", EndTime: "13:00"}).Error)

	svc := newTestService(testConfig(), store.NewGormStore(db))
	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ConfigWarnings)
	assert.Equal(t, 0, sum.Errors)
	assert.Equal(t, 1, sum.TenantsProcessed)

	var n int64
	require.NoError(t, db.Model(&model.EmptySlot{}).Where("staff_id = ?", sh.staff.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRunGrowthSync_BreaksCanBeIgnored(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")

	cfg := testConfig()
	honor := false
	cfg.Sync.HonorBreaks = &honor
	svc := newTestService(cfg, store.NewGormStore(db))

	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&model.EmptySlot{}).Where("staff_id = ? AND time = ?", sh.staff.ID, "10:00").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRunGrowthSync_TenantPolicyOverride(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	inactive := 60
	criticalRate := 0.9
	require.NoError(t, db.Create(&model.GrowthPolicy{
		TenantID: sh.tenant.ID, InactiveDays: &inactive, CriticalCancelRate: &criticalRate,
	}).Error)

	svc := newTestService(testConfig(), store.NewGormStore(db))
	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)

	snap := takeSnapshot(t, db)
	assert.Empty(t, snap.Queue, "51 days is below the tenant's 60 day threshold")
	require.Len(t, snap.Alerts, 1)
	assert.False(t, snap.Alerts[0].IsCritical)
}

func TestRunGrowthSync_DefaultPriceFallback(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	require.NoError(t, db.Model(&model.Service{}).Where("tenant_id = ?", sh.tenant.ID).Update("active", false).Error)

	cfg := testConfig()
	cfg.Sync.DefaultAvgPrice = "25.00"
	svc := newTestService(cfg, store.NewGormStore(db))
	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)

	var alert model.MoneyLostAlert
	require.NoError(t, db.First(&alert, "tenant_id = ?", sh.tenant.ID).Error)
	assert.True(t, decimal.NewFromInt(100).Equal(alert.EstimatedLoss), "loss %s", alert.EstimatedLoss)
}

func TestRunGrowthSync_ReadsFreshDataEachRun(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	mem := cache.NewMemory("test:", 5*time.Minute)
	svc := newTestService(testConfig(), store.NewGormStore(db), WithCache(mem))

	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)

	newcomer := model.Staff{TenantID: sh.tenant.ID, Name: "Leo", Active: true}
	require.NoError(t, db.Create(&newcomer).Error)
	require.NoError(t, db.Create(&model.WorkHourRule{StaffID: newcomer.ID, Weekday: int(time.Monday), StartTime: "14:00", EndTime: "15:00"}).Error)
	require.NoError(t, db.Model(&model.Service{}).Where("tenant_id = ? AND name = ?", sh.tenant.ID, "Barba").
		Update("price", decimal.NewFromInt(50)).Error)

	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.StaffProcessed)

	var n int64
	require.NoError(t, db.Model(&model.EmptySlot{}).Where("staff_id = ?", newcomer.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n)

	// 5 open slots and 1 cancellation at an average ticket of 45.
	var alert model.MoneyLostAlert
	require.NoError(t, db.First(&alert, "tenant_id = ?", sh.tenant.ID).Error)
	assert.True(t, decimal.NewFromInt(270).Equal(alert.EstimatedLoss), "loss %s", alert.EstimatedLoss)
}

func TestRunGrowthSync_PrunesSlotsOfStaffOffRoster(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	svc := newTestService(testConfig(), store.NewGormStore(db))

	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.Staff{}).Where("id = ?", sh.staff.ID).Update("active", false).Error)

	sum, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TenantsProcessed)
	assert.Equal(t, 0, sum.StaffProcessed)

	var n int64
	require.NoError(t, db.Model(&model.EmptySlot{}).Where("tenant_id = ?", sh.tenant.ID).Count(&n).Error)
	assert.Zero(t, n)

	var alert model.MoneyLostAlert
	require.NoError(t, db.First(&alert, "tenant_id = ?", sh.tenant.ID).Error)
	assert.Equal(t, 0, alert.EmptySlotsCount)
}

func TestSyncTenant(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	closed := seedShop(t, db, "Fechada")
	require.NoError(t, db.Model(&model.Tenant{}).Where("id = ?", closed.tenant.ID).Update("active", false).Error)
	svc := newTestService(testConfig(), store.NewGormStore(db))

	sum, err := svc.SyncTenant(context.Background(), sh.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TenantsProcessed)
	assert.Equal(t, 1, sum.StaffProcessed)

	_, err = svc.SyncTenant(context.Background(), closed.tenant.ID)
	assert.True(t, IsNotFound(err))
	var n int64
	require.NoError(t, db.Model(&model.MoneyLostAlert{}).Where("tenant_id = ?", closed.tenant.ID).Count(&n).Error)
	assert.Zero(t, n, "inactive tenants get no derived rows")

	_, err = svc.SyncTenant(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestService_SyncHook(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")
	calls := 0
	svc := newTestService(testConfig(), store.NewGormStore(db), WithSyncHook(func() { calls++ }))

	_, err := svc.RunGrowthSync(context.Background())
	require.NoError(t, err)
	_, err = svc.SyncTenant(context.Background(), sh.tenant.ID)
	require.NoError(t, err)
	_, err = svc.SyncTenant(context.Background(), uuid.New())
	require.Error(t, err)

	assert.Equal(t, 2, calls)
}

func TestService_RunLoop(t *testing.T) {
	db := newSQLiteDB(t)
	sh := seedShop(t, db, "Navalha")

	cfg := testConfig()
	cfg.Sync.Enabled = true
	cfg.Sync.RunOnStart = true
	svc := newTestService(cfg, store.NewGormStore(db))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		var n int64
		db.Model(&model.MoneyLostAlert{}).Where("tenant_id = ?", sh.tenant.ID).Count(&n)
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, svc.Trigger(sh.tenant.ID))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop")
	}
}

func TestService_RunDisabled(t *testing.T) {
	svc := newTestService(testConfig(), nil)
	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sync must return immediately")
	}
}

func TestTrigger_NeverBlocks(t *testing.T) {
	svc := newTestService(testConfig(), nil)
	for i := 0; i < cap(svc.triggers); i++ {
		require.True(t, svc.Trigger(uuid.New()))
	}
	assert.False(t, svc.Trigger(uuid.New()))
}

func TestMergePolicy(t *testing.T) {
	cfg := testConfig().Policy
	p := mergePolicy(cfg, nil)
	assert.Equal(t, 0.5, p.behavior.BlockedCancelRate)
	assert.Equal(t, 3, p.loss.CriticalEmptySlots)

	minimum := 5
	rate := 0.4
	p = mergePolicy(cfg, &model.GrowthPolicy{BlockedMinAppointments: &minimum, AtRiskCancelRate: &rate})
	assert.Equal(t, 5, p.behavior.BlockedMinAppointments)
	assert.Equal(t, 0.4, p.behavior.AtRiskCancelRate)
	assert.Equal(t, 30, p.behavior.InactiveDays)
}
