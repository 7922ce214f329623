// Package classify provides trainable event classifiers over feature
// vectors, a deterministic train/test evaluation harness, and model
// persistence.
//
// Every classifier implements the same capability set — fit, batch predict,
// single predict — so variants are swappable without touching the pipeline.
// The package ships a k-nearest-neighbour classifier and a nearest-centroid
// baseline; [github.com/Gasburger/BrainBox/pkg/classify/postgres] adds a
// pgvector-backed variant for corpora too large to hold in memory.
package classify

import (
	"errors"
	"fmt"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// ErrDimensionMismatch is returned when a feature vector's dimensionality
// does not match what the model was trained on. The error is fatal for that
// prediction call only — batch callers skip the offending vector, they do
// not abort.
var ErrDimensionMismatch = errors.New("classify: feature dimension mismatch")

// ErrNotFitted is returned when predicting with a classifier that has not
// been trained.
var ErrNotFitted = errors.New("classify: model has not been fitted")

// Classifier is the capability set every trainable model implements.
// Implementations are safe for concurrent prediction after Fit returns;
// Fit itself must not run concurrently with predictions.
type Classifier interface {
	// Fit trains the model on parallel slices of feature vectors and labels.
	Fit(vectors []features.Vector, labels []event.Label) error

	// Predict classifies a batch of feature vectors.
	Predict(vectors []features.Vector) ([]event.Label, error)

	// PredictOne classifies a single feature vector.
	PredictOne(v features.Vector) (event.Label, error)
}

// checkFitInput validates the parallel training slices.
func checkFitInput(vectors []features.Vector, labels []event.Label) (dim int, err error) {
	if len(vectors) == 0 {
		return 0, fmt.Errorf("classify: empty training set")
	}
	if len(vectors) != len(labels) {
		return 0, fmt.Errorf("classify: %d vectors but %d labels", len(vectors), len(labels))
	}
	dim = len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: training vector %d has %d dims, want %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

// checkDim validates a prediction input against the fitted dimensionality.
func checkDim(v features.Vector, dim int) error {
	if dim == 0 {
		return ErrNotFitted
	}
	if len(v) != dim {
		return fmt.Errorf("%w: got %d dims, model expects %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

// euclidean returns the squared Euclidean distance between equal-length
// vectors. Squared distance preserves ordering and skips the square root.
func euclidean(a, b features.Vector) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
