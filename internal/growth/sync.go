package growth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"barber-growth-backend/internal/behavior"
	"barber-growth-backend/internal/loss"
	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
	"barber-growth-backend/internal/schedule"
	"barber-growth-backend/internal/store"
)

// Summary reports the outcome of a sync.
type Summary struct {
	TenantsProcessed int       `json:"tenantsProcessed"`
	Errors           int       `json:"errors"`
	StaffProcessed   int       `json:"staffProcessed"`
	ConfigWarnings   int       `json:"configWarnings"`
	SkippedRecords   int       `json:"skippedRecords"`
	StartedAt        time.Time `json:"startedAt"`
	DurationMillis   int64     `json:"durationMillis"`
}

// tenantResult is what one tenant pass contributes to the summary.
type tenantResult struct {
	staff          int
	staffErrors    int
	configWarnings int
	skipped        int
	err            error
}

func (sum *Summary) add(r tenantResult) {
	if r.err != nil {
		sum.Errors++
	} else {
		sum.TenantsProcessed++
	}
	sum.Errors += r.staffErrors
	sum.StaffProcessed += r.staff
	sum.ConfigWarnings += r.configWarnings
	sum.SkippedRecords += r.skipped
}

// RunGrowthSync refreshes the derived tables of every active tenant.
//
// Failures of one tenant or one staff member are logged, counted in the
// summary and do not stop the others. Only a failure to list tenants is
// returned, wrapped in ErrStoreUnavailable.
func (s *Service) RunGrowthSync(ctx context.Context) (Summary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	sum := Summary{StartedAt: s.now().UTC()}
	start := time.Now()

	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		s.metrics.ObserveRun("failed", time.Since(start))
		return sum, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.logger.Info("growth sync started", zap.Int("tenants", len(tenants)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Sync.TenantWorkers)

	for _, tenant := range tenants {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		tenant := tenant
		g.Go(func() error {
			r := s.syncTenant(gctx, tenant)
			mu.Lock()
			sum.add(r)
			mu.Unlock()
			// Tenant failures are isolated, never returned.
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	sum.DurationMillis = elapsed.Milliseconds()

	if err := ctx.Err(); err != nil {
		s.metrics.ObserveRun("failed", elapsed)
		return sum, err
	}

	result := "ok"
	if sum.Errors > 0 {
		result = "partial"
	}
	s.metrics.ObserveRun(result, elapsed)
	s.synced()
	s.logger.Info("growth sync finished",
		zap.Int("tenants_processed", sum.TenantsProcessed),
		zap.Int("errors", sum.Errors),
		zap.Int("config_warnings", sum.ConfigWarnings),
		zap.Int("skipped_records", sum.SkippedRecords),
		zap.Duration("duration", elapsed))
	return sum, nil
}

// SyncTenant refreshes the derived tables of a single active tenant. Inactive
// tenants are reported as not found.
func (s *Service) SyncTenant(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	sum := Summary{StartedAt: s.now().UTC()}
	start := time.Now()

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return sum, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}
	if !tenant.Active {
		return sum, fmt.Errorf("tenant %s is inactive: %w", tenantID, store.ErrNotFound)
	}

	sum.add(s.syncTenant(ctx, *tenant))
	sum.DurationMillis = time.Since(start).Milliseconds()
	s.synced()
	return sum, nil
}

// syncTenant runs every stage for one tenant. Staff failures are counted and
// skipped; a failure of a tenant-wide stage ends the pass for this tenant.
func (s *Service) syncTenant(ctx context.Context, tenant model.Tenant) (r tenantResult) {
	log := s.logger.With(zap.String("tenant_id", tenant.ID.String()))
	defer func() {
		if r.err != nil {
			s.metrics.SyncError("tenant")
			log.Error("tenant sync failed", zap.Error(r.err))
			return
		}
		s.metrics.TenantProcessed()
	}()

	override, err := s.store.GetPolicy(ctx, tenant.ID)
	if err != nil {
		r.err = err
		return r
	}
	pol := mergePolicy(s.cfg.Policy, override)

	today := s.now().In(s.location(tenant))
	date := parse.FormatDate(today)
	log = log.With(zap.String("date", date))

	// Cached lookups never outlive a tenant pass.
	if err := s.cache.Invalidate(ctx, staffKey(tenant.ID), priceKey(tenant.ID)); err != nil {
		log.Warn("failed to invalidate tenant cache", zap.Error(err))
	}

	roster, err := s.roster(ctx, tenant.ID)
	if err != nil {
		r.err = err
		return r
	}

	emptySlots := 0
	rosterIDs := make([]uuid.UUID, 0, len(roster))
	for _, staff := range roster {
		rosterIDs = append(rosterIDs, staff.ID)
		open, warned, skipped, err := s.syncStaff(ctx, tenant.ID, staff, today)
		r.skipped += skipped
		if warned {
			r.configWarnings++
		}
		if err != nil {
			r.staffErrors++
			s.metrics.SyncError("staff")
			log.Error("staff sync failed", zap.String("staff_id", staff.ID.String()), zap.Error(err))
			continue
		}
		r.staff++
		emptySlots += open
	}

	// Rows of staff who left the roster would otherwise stay open forever.
	if err := s.store.PruneEmptySlots(ctx, tenant.ID, date, rosterIDs); err != nil {
		r.err = err
		return r
	}

	appointments, err := s.store.ListTenantAppointments(ctx, tenant.ID)
	if err != nil {
		r.err = err
		return r
	}

	agg := behavior.Aggregate(tenant.ID, appointments, pol.behavior)
	for _, e := range agg.Skipped {
		log.Warn("appointment skipped", zap.Error(e))
	}
	r.skipped += len(agg.Skipped)
	if err := s.store.ReplaceClientBehaviors(ctx, tenant.ID, agg.Records); err != nil {
		r.err = err
		return r
	}

	if err := s.syncReactivation(ctx, tenant.ID, agg.Records, today, pol.behavior); err != nil {
		r.err = err
		return r
	}

	avg, err := s.averagePrice(ctx, tenant.ID)
	if err != nil {
		r.err = err
		return r
	}
	cancellations, noShows, total := loss.DayCounts(appointments, date)
	alert := loss.Estimate(loss.Input{
		TenantID:          tenant.ID,
		Date:              date,
		EmptySlots:        emptySlots,
		Cancellations:     cancellations,
		NoShows:           noShows,
		TotalAppointments: total,
		AvgServicePrice:   avg,
	}, pol.loss)

	becameCritical, err := s.store.UpsertMoneyLostAlert(ctx, alert)
	if err != nil {
		r.err = err
		return r
	}
	s.metrics.TenantDay(tenant.ID.String(), emptySlots, alert.EstimatedLoss.InexactFloat64())

	if becameCritical {
		log.Info("daily loss became critical", zap.String("estimated_loss", alert.EstimatedLoss.StringFixed(2)))
		if s.notifier != nil {
			s.notifier.Dispatch(tenant.ID, date)
		}
	}
	return r
}

// syncStaff converges the empty slots of one staff member for the day and
// returns the number of open slots.
//
// A broken rule set is a configuration warning: the staff member's rows are
// left untouched and no open slots are counted for the day.
func (s *Service) syncStaff(ctx context.Context, tenantID uuid.UUID, staff model.Staff, today time.Time) (open int, warned bool, skipped int, err error) {
	date := parse.FormatDate(today)

	rules, err := s.store.LoadCalendarRules(ctx, staff.ID, today)
	if err != nil {
		return 0, false, 0, err
	}
	cal := schedule.NewWorkCalendar(staff.ID, rules.Hours, rules.Breaks, rules.Exceptions)

	candidates, cfgErr := s.generator.Generate(cal, today)
	if cfgErr != nil {
		s.logger.Warn("invalid calendar rules, skipping staff for the day",
			zap.String("tenant_id", tenantID.String()),
			zap.String("staff_id", staff.ID.String()),
			zap.String("date", date),
			zap.Error(cfgErr))
		return 0, true, 0, nil
	}

	bookings, err := s.store.ListStaffAppointments(ctx, staff.ID, date)
	if err != nil {
		return 0, false, 0, err
	}

	av := schedule.Resolve(candidates, s.generator.Granularity, bookings)
	for _, e := range av.Skipped {
		s.logger.Warn("booking skipped",
			zap.String("tenant_id", tenantID.String()),
			zap.String("staff_id", staff.ID.String()),
			zap.Error(e))
	}

	if err := s.store.SyncEmptySlots(ctx, tenantID, staff.ID, date,
		schedule.Strings(av.Open), schedule.Strings(av.Booked)); err != nil {
		return 0, false, len(av.Skipped), err
	}
	return len(av.Open), false, len(av.Skipped), nil
}

func (s *Service) syncReactivation(ctx context.Context, tenantID uuid.UUID, records []model.ClientBehavior, today time.Time, pol behavior.Policy) error {
	clients, err := s.store.ListClients(ctx, tenantID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]model.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}

	existing, err := s.store.ListReactivationEntries(ctx, tenantID)
	if err != nil {
		return err
	}

	plan := behavior.PlanReactivation(tenantID, records, existing, byID, today, pol)
	return s.store.SyncReactivationQueue(ctx, tenantID, plan.Upserts, plan.Removals)
}

func (s *Service) location(tenant model.Tenant) *time.Location {
	name := tenant.Timezone
	if name == "" {
		name = s.cfg.Sync.Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn("unknown timezone, using UTC",
			zap.String("tenant_id", tenant.ID.String()), zap.String("timezone", name))
		return time.UTC
	}
	return loc
}

func staffKey(tenantID uuid.UUID) string { return "staff:" + tenantID.String() }
func priceKey(tenantID uuid.UUID) string { return "price:" + tenantID.String() }

// roster returns the active staff of a tenant, through the cache.
func (s *Service) roster(ctx context.Context, tenantID uuid.UUID) ([]model.Staff, error) {
	var staff []model.Staff
	if found, err := s.cache.Get(ctx, staffKey(tenantID), &staff); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", staffKey(tenantID)), zap.Error(err))
	} else if found {
		return staff, nil
	}

	staff, err := s.store.ListStaff(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, staffKey(tenantID), staff); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", staffKey(tenantID)), zap.Error(err))
	}
	return staff, nil
}

// averagePrice returns the tenant's average ticket, or the configured default
// when it has no priced services.
func (s *Service) averagePrice(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var cached string
	if found, err := s.cache.Get(ctx, priceKey(tenantID), &cached); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", priceKey(tenantID)), zap.Error(err))
	} else if found {
		if d, err := decimal.NewFromString(cached); err == nil {
			return d, nil
		}
	}

	avg, ok, err := s.store.AverageServicePrice(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		avg, err = decimal.NewFromString(s.cfg.Sync.DefaultAvgPrice)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid default average price %q: %w", s.cfg.Sync.DefaultAvgPrice, err)
		}
	}
	if err := s.cache.Set(ctx, priceKey(tenantID), avg.String()); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", priceKey(tenantID)), zap.Error(err))
	}
	return avg, nil
}

// IsNotFound reports whether err means the tenant does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
