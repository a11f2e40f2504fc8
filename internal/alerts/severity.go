package alerts

// escalationThreshold is the confidence at or above which severity is
// bumped one level.
const escalationThreshold = 0.95

// baseSeverities is the static base-severity table. Types not listed
// default to medium.
var baseSeverities = map[string]string{
	"collision_detected": SeverityCritical,
	"engine_warning":     SeverityHigh,
	"brake_failure":      SeverityCritical,
	"tire_pressure_low":  SeverityMedium,
	"fuel_low":           SeverityLow,
	"battery_low":        SeverityLow,
}

// escalations bumps severity one level for high-confidence detections.
// critical has nowhere to go; low deliberately stays put, matching the
// legacy lifecycle semantics.
var escalations = map[string]string{
	SeverityLow:      SeverityLow,
	SeverityMedium:   SeverityHigh,
	SeverityHigh:     SeverityCritical,
	SeverityCritical: SeverityCritical,
}

// ResolveSeverity maps an alert type and confidence to a severity.
func ResolveSeverity(alertType string, confidence float64) string {
	severity, ok := baseSeverities[CanonicalType(alertType)]

	if !ok {
		severity = SeverityMedium
	}

	if confidence >= escalationThreshold {
		severity = escalations[severity]
	}

	return severity
}
