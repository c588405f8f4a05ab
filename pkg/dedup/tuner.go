package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const (
	defaultTargetRate = 0.05
	defaultStep       = 0.01
	defaultMinValue   = 0.5
	defaultMaxValue   = 0.95

	// nearMissBand is the similarity band below the threshold treated as
	// "almost merged" when deciding whether to lower it.
	nearMissBand = 0.05
)

// Tuner is the external feedback loop adjusting the dedup threshold from
// decision records plus reviewer labels. It is the only writer of the
// shared Threshold; the engine stays a pure consumer.
//
// A Tuner should be created using NewTuner.
type Tuner struct {
	log       store.DecisionLog
	threshold *Threshold

	targetRate float64
	step       float64
	minValue   float64
	maxValue   float64
}

// NewTunerParams configures a Tuner. TargetRate is the tolerated
// false-duplicate rate (default 0.05); Step is the per-adjustment delta
// (default 0.01); Min/Max clamp the threshold (defaults 0.5 and 0.95).
type NewTunerParams struct {
	Log       store.DecisionLog
	Threshold *Threshold

	TargetRate float64
	Step       float64
	Min        float64
	Max        float64
}

// NewTuner creates a Tuner over the given decision log and shared
// threshold.
func NewTuner(params NewTunerParams) *Tuner {
	if params.TargetRate <= 0 {
		params.TargetRate = defaultTargetRate
	}
	if params.Step <= 0 {
		params.Step = defaultStep
	}
	if params.Min <= 0 {
		params.Min = defaultMinValue
	}
	if params.Max <= 0 {
		params.Max = defaultMaxValue
	}
	return &Tuner{
		log:        params.Log,
		threshold:  params.Threshold,
		targetRate: params.TargetRate,
		step:       params.Step,
		minValue:   params.Min,
		maxValue:   params.Max,
	}
}

// Tune reviews decisions made since the given time against the reviewer's
// false-duplicate labels (decision ids judged wrongly merged) and adjusts
// the threshold: up when the false-duplicate rate exceeds the target, down
// when merges are clean and near-misses suggest the cutoff is too strict.
// Returns the threshold now in effect.
func (t *Tuner) Tune(ctx context.Context, since time.Time, falseDuplicateIDs []string) (float64, error) {
	decisions, err := t.log.ListDecisions(ctx, since)
	if err != nil {
		return t.threshold.Value(), fmt.Errorf("listing decisions: %w", err)
	}

	labeled := make(map[string]struct{}, len(falseDuplicateIDs))
	for _, id := range falseDuplicateIDs {
		labeled[id] = struct{}{}
	}

	duplicates, falsePositives, nearMisses := 0, 0, 0
	for _, d := range decisions {
		if d.Duplicate {
			duplicates++
			if _, ok := labeled[d.ID]; ok {
				falsePositives++
			}
			continue
		}
		if d.Corroborated && d.Similarity >= d.Threshold-nearMissBand {
			nearMisses++
		}
	}

	current := t.threshold.Value()
	next := current
	switch {
	case duplicates > 0 && float64(falsePositives)/float64(duplicates) > t.targetRate:
		next = current + t.step
	case falsePositives == 0 && nearMisses > duplicates:
		next = current - t.step
	}

	if next > t.maxValue {
		next = t.maxValue
	}
	if next < t.minValue {
		next = t.minValue
	}

	if next != current {
		t.threshold.Set(next)
		logger.Info("[Dedup] threshold adjusted",
			"previous", current,
			"current", next,
			"duplicates", duplicates,
			"false_positives", falsePositives,
			"near_misses", nearMisses,
		)
	}

	return next, nil
}
