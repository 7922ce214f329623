package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gasburger/BrainBox/internal/config"
	"github.com/Gasburger/BrainBox/internal/observe"
	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/detect"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
	"github.com/Gasburger/BrainBox/pkg/signal"
	"github.com/Gasburger/BrainBox/pkg/stream"
)

var (
	flagScanModel string
	flagScanRate  int
)

var scanCmd = &cobra.Command{
	Use:   "scan <capture-file>",
	Short: "Detect and classify events in a recorded capture file",
	Long: `Scan a recorded capture for eye events and print one line per event.

The capture may be a .wav recording or a .npy sample array; .npy captures
need a sample rate from --rate or stream.sample_rate. Each detected event
is labelled by signal direction, and when a fitted model is available the
classifier's label is printed alongside.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagScanModel, "model", "", "path to a fitted model (default: train.model_path if it exists)")
	scanCmd.Flags().IntVar(&flagScanRate, "rate", 0, "sample rate for .npy captures")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.Server.LogLevel)
	ctx := cmd.Context()

	rate := cfg.Stream.SampleRate
	if flagScanRate != 0 {
		rate = flagScanRate
	}
	sig, err := readCapture(ctx, args[0], rate)
	if err != nil {
		return err
	}

	scanner, err := newScanner(cfg.Detect)
	if err != nil {
		return err
	}
	classifier, err := loadModel(cmd, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	events := scanner.Events(sig)
	observe.DefaultMetrics().DetectDuration.Record(ctx, time.Since(start).Seconds())

	for _, d := range events {
		printDetection(ctx, d, classifier)
	}
	fmt.Printf("%d events in %.1fs of signal\n", len(events), sig.Duration())
	return nil
}

// readCapture loads a full capture file into a signal, dispatching on the
// file extension.
func readCapture(ctx context.Context, path string, rate int) (*signal.Signal, error) {
	var (
		src stream.Source
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		src, err = stream.OpenWAV(path)
	case ".npy":
		src, err = stream.OpenArray(path, rate)
	default:
		return nil, fmt.Errorf("unsupported capture format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var samples []float64
	err = stream.Drain(ctx, src, func(chunk []float64) error {
		samples = append(samples, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return signal.New(samples, float64(src.SampleRate()))
}

// newScanner builds a zero-crossing scanner from the detect section.
func newScanner(dc config.DetectConfig) (*detect.Scanner, error) {
	scanCfg, threshold := dc.DetectorConfig()
	det, err := detect.NewZeroCrossing(threshold)
	if err != nil {
		return nil, err
	}
	return detect.NewScanner(scanCfg, det)
}

// loadModel loads the classifier named by --model, falling back to the
// configured model path when that file exists. A nil classifier means
// detection runs without classification.
func loadModel(cmd *cobra.Command, cfg *config.Config) (classify.Classifier, error) {
	path := flagScanModel
	if path == "" {
		if _, err := os.Stat(cfg.Train.ModelPath); err != nil {
			return nil, nil
		}
		path = cfg.Train.ModelPath
	}
	c, err := classify.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// printDetection writes one line per detected event: the event time, the
// argmax/argmin direction, and the classifier label when a model is loaded.
func printDetection(ctx context.Context, d detect.Detection, classifier classify.Classifier) {
	line := fmt.Sprintf("t=%.3fs crossings=%d", d.Window.StartTime(), d.Crossings)
	if direction, err := detect.Direction(d.Window); err == nil {
		line += " direction=" + string(direction)
	}

	if classifier != nil {
		if label, err := classifyWindow(ctx, classifier, d.Window); err != nil {
			slog.Warn("classification failed", "t", d.Window.StartTime(), "err", err)
		} else {
			line += " label=" + string(label)
		}
	}
	fmt.Println(line)
}

// classifyWindow normalises a detection window and predicts its label.
func classifyWindow(ctx context.Context, c classify.Classifier, w signal.Window) (event.Label, error) {
	v, err := extractNormalized(ctx, w.Samples())
	if err != nil {
		return "", err
	}
	return c.PredictOne(v)
}

// extractNormalized scales raw window samples the way training snippets are
// scaled, then extracts the feature vector.
func extractNormalized(ctx context.Context, samples []float64) (features.Vector, error) {
	normalised, err := signal.Normalize(samples)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := features.Extract(normalised)
	observe.DefaultMetrics().ExtractDuration.Record(ctx, time.Since(start).Seconds())
	return v, err
}
