package classify

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// DefaultTestFraction is the held-out fraction used when a split is
// requested with a zero fraction. The reference pipeline trained on only 10%
// of its corpus; the value is kept as the default for comparability but it
// is configuration, not a constant of the design — most deployments will
// want something far lower.
const DefaultTestFraction = 0.9

// Sample is one labelled training/evaluation example: a snippet's feature
// vector plus the identifier used to report misclassifications.
type Sample struct {
	// ID identifies the source snippet (typically its filename).
	ID string

	// Vector is the extracted feature vector.
	Vector features.Vector

	// Label is the ground-truth event label.
	Label event.Label
}

// Misclassification records one wrong prediction for inspection.
type Misclassification struct {
	ID        string
	Predicted event.Label
	Actual    event.Label
}

// Report summarises an evaluation run.
type Report struct {
	// Total is the number of evaluated samples.
	Total int

	// Correct is the number of correct predictions.
	Correct int

	// Misclassified lists every wrong prediction with its snippet ID.
	Misclassified []Misclassification
}

// Accuracy returns Correct/Total, or 0 for an empty report.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// StratifiedSplit partitions samples into train and test sets, holding out
// testFraction of each label independently so class balance survives the
// split. The shuffle is driven entirely by seed: the same samples, fraction,
// and seed always produce the same partition.
//
// testFraction must lie in (0, 1); zero selects [DefaultTestFraction].
func StratifiedSplit(samples []Sample, testFraction float64, seed int64) (train, test []Sample, err error) {
	if testFraction == 0 {
		testFraction = DefaultTestFraction
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("classify: test fraction must be in (0, 1), got %v", testFraction)
	}

	byLabel := map[event.Label][]Sample{}
	for _, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}

	// Deterministic label order regardless of map iteration.
	labels := make([]event.Label, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	rng := rand.New(rand.NewSource(seed))
	for _, label := range labels {
		group := byLabel[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(float64(len(group)) * testFraction)
		// Keep at least one sample on each side when the group allows it.
		if nTest == len(group) && len(group) > 1 {
			nTest--
		}
		if nTest == 0 && len(group) > 1 {
			nTest = 1
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	if len(train) == 0 {
		return nil, nil, fmt.Errorf("classify: split left no training samples (%d total)", len(samples))
	}
	return train, test, nil
}

// Evaluate fits c on train and scores it on test, reporting accuracy and the
// IDs of every misclassified sample. Per-sample prediction failures (e.g. a
// malformed vector) count as misclassifications against an empty prediction
// rather than aborting the evaluation.
func Evaluate(c Classifier, train, test []Sample) (Report, error) {
	vectors := make([]features.Vector, len(train))
	labels := make([]event.Label, len(train))
	for i, s := range train {
		vectors[i] = s.Vector
		labels[i] = s.Label
	}
	if err := c.Fit(vectors, labels); err != nil {
		return Report{}, fmt.Errorf("classify: fit: %w", err)
	}

	report := Report{Total: len(test)}
	for _, s := range test {
		predicted, err := c.PredictOne(s.Vector)
		if err != nil {
			predicted = ""
		}
		if predicted == s.Label {
			report.Correct++
		} else {
			report.Misclassified = append(report.Misclassified, Misclassification{
				ID:        s.ID,
				Predicted: predicted,
				Actual:    s.Label,
			})
		}
	}
	return report, nil
}
