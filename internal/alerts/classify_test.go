package alerts

import (
	"context"
	"errors"
	"testing"
)

type fakeThresholds map[string]float64

func (f fakeThresholds) MinThreshold(_ context.Context, alertType string) (float64, bool, error) {
	value, ok := f[alertType]
	return value, ok, nil
}

type failingThresholds struct{}

func (failingThresholds) MinThreshold(context.Context, string) (float64, bool, error) {
	return 0, false, errors.New("threshold store down")
}

func TestSelectCandidate_PicksHighestQualifying(t *testing.T) {
	thresholds := fakeThresholds{"engine_warning": 0.6, "battery_low": 0.5}

	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
		"engine_warning": 0.82,
		"battery_low":    0.40,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected == nil {
		t.Fatal("expected a selection")
	}

	if selected.AlertType != "engine_warning" {
		t.Fatalf("expected engine_warning, got %s", selected.AlertType)
	}

	if selected.Confidence != 0.82 {
		t.Fatalf("expected confidence 0.82, got %v", selected.Confidence)
	}

	if selected.Threshold != 0.6 {
		t.Fatalf("expected threshold 0.6, got %v", selected.Threshold)
	}
}

func TestSelectCandidate_NoThresholdNeverQualifies(t *testing.T) {
	thresholds := fakeThresholds{"engine_warning": 0.6}

	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
		"unregistered_type": 0.99,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected != nil {
		t.Fatalf("expected no selection, got %+v", selected)
	}
}

func TestSelectCandidate_AllBelowThreshold(t *testing.T) {
	thresholds := fakeThresholds{"engine_warning": 0.6, "fuel_low": 0.7}

	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
		"engine_warning": 0.59,
		"fuel_low":       0.5,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected != nil {
		t.Fatalf("expected no selection, got %+v", selected)
	}
}

func TestSelectCandidate_ConfidenceAtThresholdQualifies(t *testing.T) {
	thresholds := fakeThresholds{"fuel_low": 0.5}

	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{"fuel_low": 0.5})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected == nil || selected.AlertType != "fuel_low" {
		t.Fatalf("expected fuel_low selection, got %+v", selected)
	}
}

func TestSelectCandidate_TieBreaksLexically(t *testing.T) {
	thresholds := fakeThresholds{"engine_warning": 0.5, "battery_low": 0.5}

	// Repeated runs must agree regardless of map iteration order.
	for i := 0; i < 50; i++ {
		selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
			"engine_warning": 0.8,
			"battery_low":    0.8,
		})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if selected == nil || selected.AlertType != "battery_low" {
			t.Fatalf("run %d: expected battery_low (lexical tie-break), got %+v", i, selected)
		}
	}
}

func TestSelectCandidate_TieBreaksOnCanonicalForm(t *testing.T) {
	thresholds := fakeThresholds{"axle_warning": 0.5, "brake_failure": 0.5}

	// "Brake_failure" sorts before "axle_warning" in raw byte order;
	// the tie must break on the canonical lowercase forms instead.
	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
		"Brake_failure": 0.8,
		"axle_warning":  0.8,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected == nil || selected.AlertType != "axle_warning" {
		t.Fatalf("expected axle_warning (canonical tie-break), got %+v", selected)
	}
}

func TestSelectCandidate_CanonicalizesTypes(t *testing.T) {
	thresholds := fakeThresholds{"engine_warning": 0.5}

	selected, err := SelectCandidate(context.Background(), thresholds, map[string]float64{
		"  Engine_Warning ": 0.7,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if selected == nil || selected.AlertType != "engine_warning" {
		t.Fatalf("expected canonicalized engine_warning, got %+v", selected)
	}
}

func TestSelectCandidate_PropagatesLookupErrors(t *testing.T) {
	_, err := SelectCandidate(context.Background(), failingThresholds{}, map[string]float64{"engine_warning": 0.9})

	if err == nil {
		t.Fatal("expected threshold lookup error")
	}
}
