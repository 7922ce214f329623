package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gasburger/BrainBox/internal/config"
	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
	"github.com/Gasburger/BrainBox/pkg/snippet"
)

// loadCorpus reads every snippet under the configured corpus directories and
// extracts its feature vector. Snippets too short for feature extraction are
// logged and dropped rather than failing the whole run.
func loadCorpus(ctx context.Context, cfg *config.Config) ([]classify.Sample, error) {
	if len(cfg.Corpus.SnippetDirs) == 0 {
		return nil, fmt.Errorf("no snippet directories: set corpus.snippet_dirs")
	}

	store := snippet.NewStore(cfg.Corpus.SnippetDirs...)
	snippets, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]classify.Sample, 0, len(snippets))
	for _, sn := range snippets {
		v, err := features.Extract(sn.Signal)
		if err != nil {
			slog.Warn("dropping snippet", "id", sn.ID, "err", err)
			continue
		}
		samples = append(samples, classify.Sample{ID: sn.ID, Vector: v, Label: sn.Label})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("corpus is empty: no usable snippets under %v", cfg.Corpus.SnippetDirs)
	}
	return samples, nil
}

// newClassifier builds the configured classifier variant, unfitted.
func newClassifier(cfg config.TrainConfig) (classify.Classifier, error) {
	switch cfg.Classifier {
	case config.ClassifierCentroid:
		return classify.NewNearestCentroid(), nil
	case config.ClassifierKNN, "":
		return classify.NewKNN(cfg.KNNNeighbors), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}
}

// fit trains c on the given samples.
func fit(c classify.Classifier, samples []classify.Sample) error {
	vectors := make([]features.Vector, len(samples))
	labels := make([]event.Label, len(samples))
	for i, s := range samples {
		vectors[i] = s.Vector
		labels[i] = s.Label
	}
	return c.Fit(vectors, labels)
}
