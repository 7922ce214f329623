package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/detect"
)

// Default returns a Config populated with the defaults applied after
// decoding. Loading an empty document yields exactly this value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Detect: DetectConfig{
			WindowSize: 500,
		},
		Train: TrainConfig{
			Classifier:   ClassifierKNN,
			KNNNeighbors: classify.DefaultK,
			TestFraction: classify.DefaultTestFraction,
			ModelPath:    "brainbox.model",
		},
		Snipper: SnipperConfig{
			SnippetSize:     1.0,
			RightProportion: 0.9,
		},
		Stream: StreamConfig{
			Source: SourceWS,
		},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for unset
// fields and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields from [Default].
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Detect.WindowSize == 0 {
		cfg.Detect.WindowSize = def.Detect.WindowSize
	}
	if cfg.Train.Classifier == "" {
		cfg.Train.Classifier = def.Train.Classifier
	}
	if cfg.Train.KNNNeighbors == 0 {
		cfg.Train.KNNNeighbors = def.Train.KNNNeighbors
	}
	if cfg.Train.TestFraction == 0 {
		cfg.Train.TestFraction = def.Train.TestFraction
	}
	if cfg.Train.ModelPath == "" {
		cfg.Train.ModelPath = def.Train.ModelPath
	}
	if cfg.Snipper.SnippetSize == 0 {
		cfg.Snipper.SnippetSize = def.Snipper.SnippetSize
	}
	if cfg.Snipper.RightProportion == 0 {
		cfg.Snipper.RightProportion = def.Snipper.RightProportion
	}
	if cfg.Stream.Source == "" {
		cfg.Stream.Source = def.Stream.Source
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Detect
	if cfg.Detect.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("detect.window_size must be at least 1, got %d", cfg.Detect.WindowSize))
	}
	if cfg.Detect.Increment < 0 {
		errs = append(errs, fmt.Errorf("detect.increment must not be negative, got %d", cfg.Detect.Increment))
	}
	if cfg.Detect.Increment >= cfg.Detect.WindowSize && cfg.Detect.WindowSize >= 1 {
		errs = append(errs, fmt.Errorf("detect.increment %d must be smaller than detect.window_size %d", cfg.Detect.Increment, cfg.Detect.WindowSize))
	}
	if cfg.Detect.ThresholdCrossings < 0 {
		errs = append(errs, fmt.Errorf("detect.threshold_crossings must not be negative, got %d", cfg.Detect.ThresholdCrossings))
	}

	// Train
	if !cfg.Train.Classifier.IsValid() {
		errs = append(errs, fmt.Errorf("train.classifier %q is invalid; valid values: knn, centroid", cfg.Train.Classifier))
	}
	if cfg.Train.KNNNeighbors < 1 {
		errs = append(errs, fmt.Errorf("train.knn_neighbors must be at least 1, got %d", cfg.Train.KNNNeighbors))
	}
	if cfg.Train.TestFraction <= 0 || cfg.Train.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("train.test_fraction %.2f is out of range (0, 1)", cfg.Train.TestFraction))
	}

	// Snipper
	if cfg.Snipper.SnippetSize <= 0 {
		errs = append(errs, fmt.Errorf("snipper.snippet_size must be positive, got %v", cfg.Snipper.SnippetSize))
	}
	if cfg.Snipper.RightProportion < 0 || cfg.Snipper.RightProportion > 1 {
		errs = append(errs, fmt.Errorf("snipper.right_proportion %.2f is out of range [0, 1]", cfg.Snipper.RightProportion))
	}

	// Stream
	if !cfg.Stream.Source.IsValid() {
		errs = append(errs, fmt.Errorf("stream.source %q is invalid; valid values: array, wav, ws", cfg.Stream.Source))
	}
	if cfg.Stream.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("stream.sample_rate must not be negative, got %d", cfg.Stream.SampleRate))
	}
	switch cfg.Stream.Source {
	case SourceArray, SourceWAV:
		if cfg.Stream.URL != "" {
			slog.Warn("stream.url is set but ignored for file sources", "source", cfg.Stream.Source)
		}
	case SourceWS:
		if cfg.Stream.Path != "" {
			slog.Warn("stream.path is set but ignored for the ws source")
		}
	}

	// Corpus availability
	if len(cfg.Corpus.SnippetDirs) == 0 {
		slog.Warn("corpus.snippet_dirs is empty; training and evaluation will have no data")
	}

	// Postgres availability
	if cfg.Postgres.DSN == "" {
		slog.Warn("postgres.dsn is empty; the pgvector feature index will not be available")
	}

	return errors.Join(errs...)
}

// DetectorConfig translates the detect section into a scanner configuration
// plus a threshold, applying the proportional default when
// threshold_crossings is unset.
func (c DetectConfig) DetectorConfig() (detect.Config, int) {
	threshold := c.ThresholdCrossings
	if threshold == 0 {
		threshold = detect.ThresholdFor(c.WindowSize)
	}
	return detect.Config{WindowSize: c.WindowSize, Increment: c.Increment}, threshold
}
