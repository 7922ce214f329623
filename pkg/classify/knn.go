package classify

import (
	"fmt"
	"sort"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// DefaultK is the neighbour count used when a [KNN] is built with k <= 0.
const DefaultK = 5

// KNN is a k-nearest-neighbour classifier with Euclidean distance and
// majority vote. Ties are broken towards the label with the smaller total
// distance, then lexicographically, so prediction is fully deterministic.
type KNN struct {
	k       int
	dim     int
	vectors []features.Vector
	labels  []event.Label
}

var _ Classifier = (*KNN)(nil)

// NewKNN returns an unfitted KNN classifier. k <= 0 selects [DefaultK].
func NewKNN(k int) *KNN {
	if k <= 0 {
		k = DefaultK
	}
	return &KNN{k: k}
}

// K returns the configured neighbour count.
func (c *KNN) K() int { return c.k }

// Fit implements [Classifier]. The training set is copied, so callers may
// reuse their slices.
func (c *KNN) Fit(vectors []features.Vector, labels []event.Label) error {
	dim, err := checkFitInput(vectors, labels)
	if err != nil {
		return err
	}
	c.dim = dim
	c.vectors = make([]features.Vector, len(vectors))
	for i, v := range vectors {
		c.vectors[i] = append(features.Vector(nil), v...)
	}
	c.labels = append([]event.Label(nil), labels...)
	return nil
}

// PredictOne implements [Classifier].
func (c *KNN) PredictOne(v features.Vector) (event.Label, error) {
	if err := checkDim(v, c.dim); err != nil {
		return "", err
	}

	type neighbour struct {
		dist  float64
		index int
	}
	neighbours := make([]neighbour, len(c.vectors))
	for i, tv := range c.vectors {
		neighbours[i] = neighbour{dist: euclidean(v, tv), index: i}
	}
	sort.Slice(neighbours, func(i, j int) bool {
		if neighbours[i].dist != neighbours[j].dist {
			return neighbours[i].dist < neighbours[j].dist
		}
		return neighbours[i].index < neighbours[j].index
	})

	k := c.k
	if k > len(neighbours) {
		k = len(neighbours)
	}

	votes := map[event.Label]int{}
	totals := map[event.Label]float64{}
	for _, n := range neighbours[:k] {
		label := c.labels[n.index]
		votes[label]++
		totals[label] += n.dist
	}

	var best event.Label
	for label, count := range votes {
		if best == "" {
			best = label
			continue
		}
		switch {
		case count > votes[best]:
			best = label
		case count == votes[best] && totals[label] < totals[best]:
			best = label
		case count == votes[best] && totals[label] == totals[best] && label < best:
			best = label
		}
	}
	return best, nil
}

// Predict implements [Classifier]. A dimension mismatch on any vector fails
// the whole batch up front — mixed-dimension batches indicate a caller bug,
// not a data problem.
func (c *KNN) Predict(vectors []features.Vector) ([]event.Label, error) {
	for i, v := range vectors {
		if err := checkDim(v, c.dim); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	out := make([]event.Label, len(vectors))
	for i, v := range vectors {
		label, err := c.PredictOne(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}
