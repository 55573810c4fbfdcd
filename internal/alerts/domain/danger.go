package alerts

import "time"

// Occupancy contribution to the danger score is capped so a crowded but
// low-confidence reading cannot alone reach critical classification.
const occupancyWeightCap = 30.0

// DangerScore maps a reading onto the 0-100 danger scale.
// staticRisk is the installation site's baseline, confidence the detector's
// 0-100 fire confidence, occupants the detected occupant count.
func DangerScore(staticRisk, confidence float64, occupants int) float64 {
	occupancy := float64(occupants) * 0.4
	if occupancy > occupancyWeightCap {
		occupancy = occupancyWeightCap
	}
	score := staticRisk + confidence*0.6 + occupancy
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Danger tier thresholds.
const (
	dangerHighFrom = 61.0
	dangerMidFrom  = 31.0
)

// TimeoutPolicy maps a danger level to the station response timeout.
type TimeoutPolicy struct {
	High   time.Duration
	Mid    time.Duration
	Normal time.Duration
}

// DefaultTimeoutPolicy returns the stock tier durations.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		High:   3 * time.Minute,
		Mid:    5 * time.Minute,
		Normal: 10 * time.Minute,
	}
}

// For returns the response timeout for a danger level.
func (p TimeoutPolicy) For(dangerLevel float64) time.Duration {
	switch {
	case dangerLevel >= dangerHighFrom:
		return p.High
	case dangerLevel >= dangerMidFrom:
		return p.Mid
	default:
		return p.Normal
	}
}
