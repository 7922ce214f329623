package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Gasburger/BrainBox/internal/config"
	"github.com/Gasburger/BrainBox/internal/health"
	"github.com/Gasburger/BrainBox/internal/observe"
	"github.com/Gasburger/BrainBox/internal/resilience"
	"github.com/Gasburger/BrainBox/pkg/classify/postgres"
	"github.com/Gasburger/BrainBox/pkg/detect"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
	"github.com/Gasburger/BrainBox/pkg/stream"
)

// shutdownTimeout bounds graceful teardown of the HTTP server and the
// telemetry providers.
const shutdownTimeout = 15 * time.Second

var (
	flagStreamSource string
	flagStreamPath   string
	flagStreamURL    string
	flagStreamRate   int
	flagStreamIndex  bool
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Scan a live sample source and report events as they happen",
	Long: `Scan a live sample source and log one event per detected eye movement.

The source is a SpikerBox relay websocket, a .wav recording, or a .npy
sample array; file sources replay their capture and then exit. Detected
events are labelled with the fitted model from train.model_path, or with
the PostgreSQL feature index when --index is set.

While a session runs the configuration file is watched: log level and
detector tuning changes are picked up without restarting the command.
When server.listen_addr is set, Prometheus metrics and health probes are
served over HTTP.`,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVar(&flagStreamSource, "source", "", "acquisition source: ws, wav or array")
	streamCmd.Flags().StringVar(&flagStreamPath, "path", "", "capture file for wav and array sources")
	streamCmd.Flags().StringVar(&flagStreamURL, "url", "", "relay endpoint for the ws source")
	streamCmd.Flags().IntVar(&flagStreamRate, "rate", 0, "sample rate for ws and array sources")
	streamCmd.Flags().BoolVar(&flagStreamIndex, "index", false, "classify against the PostgreSQL feature index")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.Server.LogLevel)
	applyStreamFlags(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers. Metrics are exported through the Prometheus
	// bridge and scraped from the HTTP endpoint below.
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "brainbox",
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Classification backend: the fitted model file, or the pgvector index.
	predict, checkers, cleanup, err := newPredictor(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Server.ListenAddr != "" {
		srv := newHTTPServer(cfg.Server.ListenAddr, metrics, checkers)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("http shutdown", "err", err)
			}
		}()
		slog.Info("serving metrics and health probes", "addr", cfg.Server.ListenAddr)
	}

	// Watch the config file so detector tuning applies to the next session
	// and the log level changes in place. Flags passed on the command line
	// keep their precedence across reloads.
	restart := make(chan struct{}, 1)
	watcher, err := config.NewWatcher(flagConfigPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.DetectChanged {
			slog.Info("detector settings changed, restarting scan session",
				"window_size", diff.NewDetect.WindowSize,
				"increment", diff.NewDetect.Increment,
				"threshold_crossings", diff.NewDetect.ThresholdCrossings)
			select {
			case restart <- struct{}{}:
			default:
			}
		}
	})
	if err == nil {
		defer watcher.Stop()
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	// A relay that drops mid-session is redialled; the reconnector keeps
	// a hostile relay from turning this loop into a busy loop.
	reconnect := resilience.NewReconnector(2 * time.Second)

	for {
		sessionCfg := cfg
		if watcher != nil {
			sessionCfg = watcher.Current()
			applyStreamFlags(sessionCfg)
		}
		again, err := runSession(ctx, sessionCfg, metrics, predict, restart)
		if errors.Is(err, errSourceLost) && sessionCfg.Stream.Source == config.SourceWS && ctx.Err() == nil {
			slog.Warn("relay connection lost, reconnecting", "err", err)
			if werr := reconnect.Wait(ctx); werr != nil {
				return nil
			}
			continue
		}
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// errSourceLost marks a session that ended because the sample source failed
// mid-stream rather than reaching a clean end of input.
var errSourceLost = errors.New("sample source lost")

// applyStreamFlags overlays command-line flags onto the stream section.
// Called once per session so flags survive config reloads.
func applyStreamFlags(cfg *config.Config) {
	if flagStreamSource != "" {
		cfg.Stream.Source = config.SourceKind(flagStreamSource)
	}
	if flagStreamPath != "" {
		cfg.Stream.Path = flagStreamPath
	}
	if flagStreamURL != "" {
		cfg.Stream.URL = flagStreamURL
	}
	if flagStreamRate != 0 {
		cfg.Stream.SampleRate = flagStreamRate
	}
}

// openSource builds the acquisition source selected by the stream section.
func openSource(ctx context.Context, sc config.StreamConfig) (stream.Source, error) {
	switch sc.Source {
	case config.SourceWS:
		if sc.URL == "" {
			return nil, fmt.Errorf("ws source needs stream.url")
		}
		var src stream.Source
		err := resilience.Retry(ctx, resilience.RetryConfig{Name: "relay dial"}, func(ctx context.Context) error {
			var err error
			src, err = stream.DialWS(ctx, sc.URL, sc.SampleRate)
			return err
		})
		return src, err
	case config.SourceWAV:
		if sc.Path == "" {
			return nil, fmt.Errorf("wav source needs stream.path")
		}
		return stream.OpenWAV(sc.Path)
	case config.SourceArray:
		if sc.Path == "" {
			return nil, fmt.Errorf("array source needs stream.path")
		}
		return stream.OpenArray(sc.Path, sc.SampleRate)
	default:
		return nil, fmt.Errorf("unknown stream source %q", sc.Source)
	}
}

// runSession runs one scan session: it opens the source, feeds a live
// scanner, and logs every detected event. It returns again=true when the
// session should be rebuilt with fresh detector settings.
func runSession(
	ctx context.Context,
	cfg *config.Config,
	metrics *observe.Metrics,
	predict predictFunc,
	restart <-chan struct{},
) (again bool, err error) {
	src, err := openSource(ctx, cfg.Stream)
	if err != nil {
		return false, err
	}
	defer src.Close()

	scanner, err := newScanner(cfg.Detect)
	if err != nil {
		return false, err
	}
	live, err := detect.NewLiveScanner(scanner, float64(src.SampleRate()))
	if err != nil {
		return false, err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("scan session started",
		"source", cfg.Stream.Source,
		"sample_rate", src.SampleRate(),
		"window_size", scanner.WindowSize(),
		"increment", scanner.Increment())

	g, gctx := errgroup.WithContext(sessionCtx)

	// Producer: drain the source into the live scanner.
	g.Go(func() error {
		defer live.CloseInput()
		err := stream.Drain(gctx, src, func(chunk []float64) error {
			live.Push(chunk)
			metrics.RecordBufferDepth(gctx, live.BufferLen())
			return nil
		})
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("%w: %v", errSourceLost, err)
		}
		return nil
	})

	// Consumer: walk the buffer window by window and report events.
	g.Go(func() error {
		for d := range live.Run(gctx) {
			metrics.RecordWindow(gctx, d.Event)
			if !d.Event {
				continue
			}
			reportEvent(gctx, d, metrics, predict)
		}
		return nil
	})

	// Session control: end the session on cancellation or config reload.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-restart:
		cancel()
		<-done
		return true, nil
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return false, err
		}
		slog.Info("scan session finished")
		return false, nil
	case <-ctx.Done():
		<-done
		slog.Info("scan session cancelled")
		return false, nil
	}
}

// reportEvent logs one detected event with its direction and, when a
// classification backend is available, its predicted label.
func reportEvent(ctx context.Context, d detect.Detection, metrics *observe.Metrics, predict predictFunc) {
	attrs := []any{
		"t", fmt.Sprintf("%.3f", d.Window.StartTime()),
		"crossings", d.Crossings,
	}
	if direction, err := detect.Direction(d.Window); err == nil {
		attrs = append(attrs, "direction", direction)
	}

	label := event.Label("")
	if predict != nil {
		start := time.Now()
		var err error
		label, err = predict(ctx, d.Window.Samples())
		metrics.ClassifyDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordExtractionFailure(ctx)
			slog.Warn("classification failed", "t", d.Window.StartTime(), "err", err)
		} else {
			attrs = append(attrs, "label", label)
		}
	}

	metrics.RecordEvent(ctx, string(label))
	slog.Info("event detected", attrs...)
}

// predictFunc labels one raw detection window.
type predictFunc func(ctx context.Context, samples []float64) (event.Label, error)

// newPredictor picks the classification backend: the pgvector feature index
// with --index, otherwise the fitted model file when one exists. A nil
// predictFunc means events are reported with direction only.
func newPredictor(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (predictFunc, []health.Checker, func(), error) {
	cleanup := func() {}

	if flagStreamIndex {
		if cfg.Postgres.DSN == "" {
			return nil, nil, cleanup, fmt.Errorf("--index requires postgres.dsn")
		}
		ix, err := postgres.NewIndex(ctx, cfg.Postgres.DSN, features.Dim)
		if err != nil {
			return nil, nil, cleanup, err
		}
		predict := func(ctx context.Context, samples []float64) (event.Label, error) {
			v, err := extractNormalized(ctx, samples)
			if err != nil {
				return "", err
			}
			return ix.Classify(ctx, v, cfg.Train.KNNNeighbors)
		}
		check := health.Checker{
			Name: "feature-index",
			Check: func(ctx context.Context) error {
				_, err := ix.Count(ctx)
				return err
			},
		}
		return predict, []health.Checker{check}, ix.Close, nil
	}

	classifier, err := loadModel(cmd, cfg)
	if err != nil || classifier == nil {
		return nil, nil, cleanup, err
	}
	predict := func(ctx context.Context, samples []float64) (event.Label, error) {
		v, err := extractNormalized(ctx, samples)
		if err != nil {
			return "", err
		}
		return classifier.PredictOne(v)
	}
	return predict, nil, cleanup, nil
}

// newHTTPServer assembles the metrics and health endpoint.
func newHTTPServer(addr string, metrics *observe.Metrics, checkers []health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
