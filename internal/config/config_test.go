package config_test

import (
	"testing"

	"github.com/Gasburger/BrainBox/internal/config"
	"github.com/Gasburger/BrainBox/pkg/detect"
)

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()
	valid := []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError}
	for _, l := range valid {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	for _, l := range []config.LogLevel{"", "verbose", "INFO"} {
		if l.IsValid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}

func TestClassifierKindIsValid(t *testing.T) {
	t.Parallel()
	if !config.ClassifierKNN.IsValid() || !config.ClassifierCentroid.IsValid() {
		t.Error("built-in classifier kinds should be valid")
	}
	if config.ClassifierKind("svm").IsValid() {
		t.Error("unknown classifier kind should be invalid")
	}
}

func TestSourceKindIsValid(t *testing.T) {
	t.Parallel()
	for _, s := range []config.SourceKind{config.SourceArray, config.SourceWAV, config.SourceWS} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if config.SourceKind("serial").IsValid() {
		t.Error("unknown source kind should be invalid")
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(config.Default()); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestDetectorConfigAppliesThresholdDefault(t *testing.T) {
	t.Parallel()
	dc := config.DetectConfig{WindowSize: 1000}
	sc, threshold := dc.DetectorConfig()
	if sc.WindowSize != 1000 {
		t.Errorf("window size: got %d, want 1000", sc.WindowSize)
	}
	if want := detect.ThresholdFor(1000); threshold != want {
		t.Errorf("threshold: got %d, want %d", threshold, want)
	}

	dc.ThresholdCrossings = 42
	if _, threshold := dc.DetectorConfig(); threshold != 42 {
		t.Errorf("explicit threshold: got %d, want 42", threshold)
	}
}
