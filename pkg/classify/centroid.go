package classify

import (
	"fmt"
	"sort"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// NearestCentroid classifies by distance to the per-label mean feature
// vector. It is the cheapest trainable variant: prediction cost is
// O(labels), independent of corpus size, which makes it the fallback for
// very constrained deployments.
type NearestCentroid struct {
	dim       int
	labels    []event.Label // sorted, parallel to centroids
	centroids []features.Vector
}

var _ Classifier = (*NearestCentroid)(nil)

// NewNearestCentroid returns an unfitted nearest-centroid classifier.
func NewNearestCentroid() *NearestCentroid {
	return &NearestCentroid{}
}

// Fit implements [Classifier].
func (c *NearestCentroid) Fit(vectors []features.Vector, labels []event.Label) error {
	dim, err := checkFitInput(vectors, labels)
	if err != nil {
		return err
	}

	sums := map[event.Label]features.Vector{}
	counts := map[event.Label]int{}
	for i, v := range vectors {
		label := labels[i]
		if sums[label] == nil {
			sums[label] = make(features.Vector, dim)
		}
		for j, x := range v {
			sums[label][j] += x
		}
		counts[label]++
	}

	c.dim = dim
	c.labels = c.labels[:0]
	for label := range sums {
		c.labels = append(c.labels, label)
	}
	sort.Slice(c.labels, func(i, j int) bool { return c.labels[i] < c.labels[j] })

	c.centroids = make([]features.Vector, len(c.labels))
	for i, label := range c.labels {
		centroid := sums[label]
		for j := range centroid {
			centroid[j] /= float64(counts[label])
		}
		c.centroids[i] = centroid
	}
	return nil
}

// PredictOne implements [Classifier].
func (c *NearestCentroid) PredictOne(v features.Vector) (event.Label, error) {
	if err := checkDim(v, c.dim); err != nil {
		return "", err
	}
	best := 0
	bestDist := euclidean(v, c.centroids[0])
	for i := 1; i < len(c.centroids); i++ {
		if d := euclidean(v, c.centroids[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return c.labels[best], nil
}

// Predict implements [Classifier].
func (c *NearestCentroid) Predict(vectors []features.Vector) ([]event.Label, error) {
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
