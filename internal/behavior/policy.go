package behavior

import "barber-growth-backend/internal/model"

// Policy holds the tunable thresholds used to classify clients.
type Policy struct {
	// BlockedCancelRate must be exceeded, together with BlockedMinAppointments
	// being reached, for a client to be blocked.
	BlockedCancelRate      float64
	BlockedMinAppointments int
	AtRiskCancelRate       float64
	// InactiveDays must be exceeded for a client to enter the reactivation queue.
	InactiveDays int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		BlockedCancelRate:      0.5,
		BlockedMinAppointments: 3,
		AtRiskCancelRate:       0.25,
		InactiveDays:           30,
	}
}

// CancelRate is cancelled/total, or 0 when there are no appointments.
func CancelRate(cancelled, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(cancelled) / float64(total)
}

// Classify maps counters to a classification.
func (p Policy) Classify(total, cancelled int) model.Classification {
	rate := CancelRate(cancelled, total)
	switch {
	case rate > p.BlockedCancelRate && total >= p.BlockedMinAppointments:
		return model.ClassificationBlocked
	case rate > p.AtRiskCancelRate:
		return model.ClassificationAtRisk
	default:
		return model.ClassificationNormal
	}
}
