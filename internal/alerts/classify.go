package alerts

import (
	"context"
	"sort"
)

// ThresholdSource looks up the minimum confidence for a canonical alert
// type. ok is false when no threshold is registered; such types never
// qualify.
type ThresholdSource interface {
	MinThreshold(ctx context.Context, alertType string) (threshold float64, ok bool, err error)
}

// Selection is the winning candidate of a classification run.
type Selection struct {
	AlertType  string  `json:"alert_type"`
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"`
}

// SelectCandidate picks the single best qualifying candidate from a
// classifier result set. A candidate qualifies when a threshold exists
// for its type and its confidence is at or above it. Among qualifying
// candidates the highest confidence wins; equal confidences are broken
// by lexical order of the canonical alert type, so selection is
// deterministic regardless of map iteration order or input casing.
// Returns nil when nothing qualifies.
func SelectCandidate(ctx context.Context, thresholds ThresholdSource, results map[string]float64) (*Selection, error) {
	// Canonicalize before ordering; raw keys that collapse to the same
	// type keep the higher confidence.
	candidates := make(map[string]float64, len(results))

	for alertType, confidence := range results {
		canonical := CanonicalType(alertType)

		if existing, ok := candidates[canonical]; !ok || confidence > existing {
			candidates[canonical] = confidence
		}
	}

	types := make([]string, 0, len(candidates))

	for alertType := range candidates {
		types = append(types, alertType)
	}

	sort.Strings(types)

	var selected *Selection

	for _, alertType := range types {
		confidence := candidates[alertType]

		threshold, ok, err := thresholds.MinThreshold(ctx, alertType)

		if err != nil {
			return nil, err
		}

		if !ok || confidence < threshold {
			continue
		}

		if selected == nil || confidence > selected.Confidence {
			selected = &Selection{
				AlertType:  alertType,
				Confidence: confidence,
				Threshold:  threshold,
			}
		}
	}

	return selected, nil
}
