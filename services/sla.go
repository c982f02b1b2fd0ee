package services

import (
	"github.com/ucfc/fulfillment-app/models"
)

type UrgencyTier string

const (
	TierGood    UrgencyTier = "good"
	TierWarning UrgencyTier = "warning"
	TierOverdue UrgencyTier = "overdue"
)

// Tier boundaries as fractions of the preparation target.
const (
	warningRatio = 0.8
	overdueRatio = 1.0
)

type Urgency struct {
	TargetMinutes int         `json:"target_minutes"`
	Ratio         float64     `json:"ratio"`
	Tier          UrgencyTier `json:"tier"`
}

// SLACalculator maps (order type, elapsed minutes) to an urgency tier for the
// kitchen display. Pure lookup plus arithmetic; callers re-evaluate it on
// every poll.
type SLACalculator struct {
	targets map[models.OrderType]int
}

func NewSLACalculator(targets map[models.OrderType]int) *SLACalculator {
	return &SLACalculator{targets: targets}
}

// TargetMinutes returns the preparation target for an order type, or the
// dine-in target when the type is unknown.
func (s *SLACalculator) TargetMinutes(orderType models.OrderType) int {
	if t, ok := s.targets[orderType]; ok && t > 0 {
		return t
	}
	return s.targets[models.OrderTypeDineIn]
}

func (s *SLACalculator) Urgency(orderType models.OrderType, elapsedMinutes float64) Urgency {
	target := s.TargetMinutes(orderType)
	ratio := elapsedMinutes / float64(target)

	tier := TierGood
	switch {
	case ratio >= overdueRatio:
		tier = TierOverdue
	case ratio >= warningRatio:
		tier = TierWarning
	}

	return Urgency{
		TargetMinutes: target,
		Ratio:         ratio,
		Tier:          tier,
	}
}
