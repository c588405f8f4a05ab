package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
)

func seedDecisions(t *testing.T, s *memory.Store, decisions []common.DedupDecision) {
	t.Helper()
	for _, d := range decisions {
		if err := s.AppendDecision(context.Background(), d); err != nil {
			t.Fatalf("AppendDecision: %v", err)
		}
	}
}

func decision(id string, duplicate bool, similarity float64, corroborated bool) common.DedupDecision {
	return common.DedupDecision{
		ID:           id,
		ArticleID:    "article-" + id,
		Duplicate:    duplicate,
		Similarity:   similarity,
		Threshold:    DefaultThreshold,
		Corroborated: corroborated,
		DecidedAt:    time.Now().UTC(),
	}
}

func TestTune_RaisesOnFalseDuplicates(t *testing.T) {
	s := memory.NewStore()
	seedDecisions(t, s, []common.DedupDecision{
		decision("d1", true, 0.91, true),
		decision("d2", true, 0.82, true),
		decision("d3", true, 0.81, true),
		decision("d4", false, 0.60, false),
	})

	threshold := NewThreshold(DefaultThreshold)
	tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

	// 1 of 3 merges labeled wrong is far above the 5% target.
	got, err := tuner.Tune(context.Background(), time.Time{}, []string{"d3"})
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	want := DefaultThreshold + defaultStep
	if got != want {
		t.Fatalf("threshold = %v, want %v", got, want)
	}
	if threshold.Value() != want {
		t.Fatalf("shared threshold = %v, want %v", threshold.Value(), want)
	}
}

func TestTune_LowersOnCleanMergesWithNearMisses(t *testing.T) {
	s := memory.NewStore()
	seedDecisions(t, s, []common.DedupDecision{
		decision("d1", true, 0.95, true),
		// Corroborated rejections just under the cutoff.
		decision("d2", false, 0.79, true),
		decision("d3", false, 0.78, true),
		decision("d4", false, 0.76, true),
		// Far below the cutoff, not a near miss.
		decision("d5", false, 0.40, true),
	})

	threshold := NewThreshold(DefaultThreshold)
	tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

	got, err := tuner.Tune(context.Background(), time.Time{}, nil)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	want := DefaultThreshold - defaultStep
	if got != want {
		t.Fatalf("threshold = %v, want %v", got, want)
	}
}

func TestTune_HoldsWhenBalanced(t *testing.T) {
	s := memory.NewStore()
	seedDecisions(t, s, []common.DedupDecision{
		decision("d1", true, 0.92, true),
		decision("d2", true, 0.88, true),
		decision("d3", false, 0.40, false),
	})

	threshold := NewThreshold(DefaultThreshold)
	tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

	got, err := tuner.Tune(context.Background(), time.Time{}, nil)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if got != DefaultThreshold {
		t.Fatalf("threshold moved to %v without evidence", got)
	}
}

func TestTune_ClampsAtBounds(t *testing.T) {
	t.Run("upper", func(t *testing.T) {
		s := memory.NewStore()
		seedDecisions(t, s, []common.DedupDecision{decision("d1", true, 0.96, true)})

		threshold := NewThreshold(defaultMaxValue)
		tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

		got, err := tuner.Tune(context.Background(), time.Time{}, []string{"d1"})
		if err != nil {
			t.Fatalf("Tune: %v", err)
		}
		if got != defaultMaxValue {
			t.Fatalf("threshold = %v, want clamp at %v", got, defaultMaxValue)
		}
	})

	t.Run("lower", func(t *testing.T) {
		s := memory.NewStore()
		d1 := decision("d1", false, 0.46, true)
		d2 := decision("d2", false, 0.47, true)
		d1.Threshold = defaultMinValue
		d2.Threshold = defaultMinValue
		seedDecisions(t, s, []common.DedupDecision{d1, d2})

		threshold := NewThreshold(defaultMinValue)
		tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

		got, err := tuner.Tune(context.Background(), time.Time{}, nil)
		if err != nil {
			t.Fatalf("Tune: %v", err)
		}
		if got != defaultMinValue {
			t.Fatalf("threshold = %v, want clamp at %v", got, defaultMinValue)
		}
	})
}

func TestTune_IgnoresDecisionsBeforeSince(t *testing.T) {
	s := memory.NewStore()
	old := decision("d1", true, 0.85, true)
	old.DecidedAt = time.Now().UTC().Add(-48 * time.Hour)
	seedDecisions(t, s, []common.DedupDecision{old})

	threshold := NewThreshold(DefaultThreshold)
	tuner := NewTuner(NewTunerParams{Log: s, Threshold: threshold})

	// The only labeled false duplicate is outside the review window.
	got, err := tuner.Tune(context.Background(), time.Now().UTC().Add(-time.Hour), []string{"d1"})
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if got != DefaultThreshold {
		t.Fatalf("threshold = %v, want unchanged %v", got, DefaultThreshold)
	}
}
