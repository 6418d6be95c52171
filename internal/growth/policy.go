package growth

import (
	"barber-growth-backend/config"
	"barber-growth-backend/internal/behavior"
	"barber-growth-backend/internal/loss"
	"barber-growth-backend/internal/model"
)

// policies are the thresholds in effect for one tenant.
type policies struct {
	behavior behavior.Policy
	loss     loss.Policy
}

// mergePolicy applies the non-nil columns of a tenant override over the configured defaults.
func mergePolicy(cfg config.PolicyConfig, override *model.GrowthPolicy) policies {
	p := policies{
		behavior: behavior.Policy{
			BlockedCancelRate:      cfg.BlockedCancelRate,
			BlockedMinAppointments: cfg.BlockedMinAppointments,
			AtRiskCancelRate:       cfg.AtRiskCancelRate,
			InactiveDays:           cfg.InactiveDays,
		},
		loss: loss.Policy{
			CriticalCancelRate: cfg.CriticalCancelRate,
			CriticalEmptySlots: cfg.CriticalEmptySlots,
		},
	}
	if override == nil {
		return p
	}

	if override.BlockedCancelRate != nil {
		p.behavior.BlockedCancelRate = *override.BlockedCancelRate
	}
	if override.BlockedMinAppointments != nil {
		p.behavior.BlockedMinAppointments = *override.BlockedMinAppointments
	}
	if override.AtRiskCancelRate != nil {
		p.behavior.AtRiskCancelRate = *override.AtRiskCancelRate
	}
	if override.InactiveDays != nil {
		p.behavior.InactiveDays = *override.InactiveDays
	}
	if override.CriticalCancelRate != nil {
		p.loss.CriticalCancelRate = *override.CriticalCancelRate
	}
	if override.CriticalEmptySlots != nil {
		p.loss.CriticalEmptySlots = *override.CriticalEmptySlots
	}
	return p
}
