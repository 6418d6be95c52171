package growth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"barber-growth-backend/config"
	"barber-growth-backend/internal/cache"
	"barber-growth-backend/internal/metrics"
	"barber-growth-backend/internal/schedule"
	"barber-growth-backend/internal/store"
)

// ErrStoreUnavailable is returned when the tenant list cannot be read at all.
// The whole run is abandoned and the next scheduled run retries it.
var ErrStoreUnavailable = errors.New("growth store unavailable")

// Notifier receives the tenants whose daily loss just turned critical.
type Notifier interface {
	Dispatch(tenantID uuid.UUID, date string) bool
}

// Service recomputes the growth signal tables of every tenant.
type Service struct {
	cfg       *config.Config
	store     store.Store
	cache     cache.Cache
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	limiter   *rate.Limiter
	generator schedule.SlotGenerator
	onSynced  func()

	// runMu serializes full runs and tenant syncs.
	runMu    sync.Mutex
	triggers chan uuid.UUID
}

// Option customizes a Service.
type Option func(*Service)

// WithCache sets the cache used for roster and price lookups.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithNotifier sets the receiver of critical alert nudges.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSyncHook registers fn to run after every completed sync, scheduled or
// on demand. The API uses it to drop cached dashboard responses.
func WithSyncHook(fn func()) Option {
	return func(s *Service) { s.onSynced = fn }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a growth sync service.
func NewService(cfg *config.Config, s store.Store, logger *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		cfg:       cfg,
		store:     s,
		cache:     cache.Nop{},
		logger:    logger.Named("growth"),
		now:       time.Now,
		generator: schedule.NewSlotGenerator(cfg.Sync.GranularityMinutes, cfg.Sync.BreaksHonored()),
		triggers:  make(chan uuid.UUID, 64),
	}
	if cfg.Sync.TenantsPerSecond > 0 {
		burst := int(cfg.Sync.TenantsPerSecond)
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(rate.Limit(cfg.Sync.TenantsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Trigger asks the running loop to resync one tenant soon, typically after a
// change event. It never blocks and reports false when the request was dropped;
// the scheduled run still converges without it.
func (s *Service) Trigger(tenantID uuid.UUID) bool {
	select {
	case s.triggers <- tenantID:
		return true
	default:
		return false
	}
}

// Run starts the sync loop: an optional run on start, then one run per
// interval, plus tenant syncs requested through Trigger.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Sync.Enabled {
		s.logger.Info("growth sync is disabled, not starting")
		return
	}
	s.logger.Info("starting growth sync", zap.Duration("interval", s.cfg.Sync.Interval))

	if s.cfg.Sync.RunOnStart {
		s.runLogged(ctx)
	}

	timer := time.NewTimer(s.cfg.Sync.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("growth sync shutting down")
			return
		case <-timer.C:
			s.runLogged(ctx)
			timer.Reset(s.cfg.Sync.Interval)
		case tenantID := <-s.triggers:
			if _, err := s.SyncTenant(ctx, tenantID); err != nil {
				s.logger.Warn("triggered tenant sync failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			}
		}
	}
}

func (s *Service) synced() {
	if s.onSynced != nil {
		s.onSynced()
	}
}

func (s *Service) runLogged(ctx context.Context) {
	if _, err := s.RunGrowthSync(ctx); err != nil {
		s.logger.Error("growth sync run failed", zap.Error(err))
	}
}
