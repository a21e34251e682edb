package controller

// Zone is the moisture classification bucket relative to the two configured
// thresholds. The three zones partition the whole axis; the boundaries are
// inclusive on the normal side.
type Zone int

const (
	ZoneCriticalLow Zone = iota
	ZoneNormal
	ZoneCriticalHigh
)

func (z Zone) String() string {
	switch z {
	case ZoneCriticalLow:
		return "CRITICAL_LOW"
	case ZoneNormal:
		return "NORMAL"
	case ZoneCriticalHigh:
		return "CRITICAL_HIGH"
	default:
		return "UNKNOWN"
	}
}

// ClassifyMoisture maps a moisture percentage onto its zone:
// (-inf, low) | [low, high] | (high, +inf).
func ClassifyMoisture(moisture, low, high float64) Zone {
	switch {
	case moisture < low:
		return ZoneCriticalLow
	case moisture > high:
		return ZoneCriticalHigh
	default:
		return ZoneNormal
	}
}
