// Package snippet persists labelled waveform windows as 2-row NumPy arrays:
// row 0 holds the normalised amplitude, row 1 the window's local time axis.
// The event label is encoded in the filename as its second-to-last
// underscore-separated token — {recording}_{label}_{n}.npy — so a snippet
// file is self-describing without a sidecar.
//
// Snippets are immutable once written. They are cut offline around known
// annotation timestamps and loaded in bulk to build classifier training and
// evaluation corpora.
package snippet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/Gasburger/BrainBox/pkg/event"
)

// Ext is the snippet file extension.
const Ext = ".npy"

// ErrBadShape is returned when a snippet array is not the expected 2×N
// layout or its rows disagree in length.
var ErrBadShape = errors.New("snippet: array is not a 2-row snippet")

// ErrBadName is returned when a snippet filename does not encode a label.
var ErrBadName = errors.New("snippet: filename does not encode an event label")

// Snippet is one persisted labelled window.
type Snippet struct {
	// ID is the snippet's identity: its filename without directory or
	// extension. Used in misclassification reports.
	ID string

	// Signal is the normalised amplitude slice (row 0).
	Signal []float64

	// Time is the local time axis in seconds, starting at 0 (row 1).
	Time []float64

	// Label is the event label parsed from the filename.
	Label event.Label
}

// Parse splits a loaded 2×N array into its amplitude and time rows.
func Parse(m *mat.Dense) (signalSlice, timeSlice []float64, err error) {
	rows, cols := m.Dims()
	if rows != 2 || cols < 1 {
		return nil, nil, fmt.Errorf("%w: got %d×%d", ErrBadShape, rows, cols)
	}
	signalSlice = make([]float64, cols)
	timeSlice = make([]float64, cols)
	mat.Row(signalSlice, 0, m)
	mat.Row(timeSlice, 1, m)
	return signalSlice, timeSlice, nil
}

// Build assembles the 2×N array for persistence from an amplitude slice and
// its local time axis. It is the inverse of [Parse]: building and re-parsing
// reproduces both slices exactly.
func Build(signalSlice, timeSlice []float64) (*mat.Dense, error) {
	if len(signalSlice) == 0 || len(signalSlice) != len(timeSlice) {
		return nil, fmt.Errorf("%w: signal has %d samples, time has %d",
			ErrBadShape, len(signalSlice), len(timeSlice))
	}
	m := mat.NewDense(2, len(signalSlice), nil)
	m.SetRow(0, signalSlice)
	m.SetRow(1, timeSlice)
	return m, nil
}

// EventFromFilename extracts the event label from a snippet path. The label
// is the second-to-last underscore-separated token of the base name, e.g.
// "session3_left_12.npy" → "left". Unknown labels are returned as-is so
// extended corpora (blink, noise, custom gestures) pass through.
func EventFromFilename(path string) (event.Label, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tokens := strings.Split(base, "_")
	if len(tokens) < 2 {
		return "", fmt.Errorf("%w: %q", ErrBadName, filepath.Base(path))
	}
	label := tokens[len(tokens)-2]
	if label == "" {
		return "", fmt.Errorf("%w: %q", ErrBadName, filepath.Base(path))
	}
	return event.Label(label), nil
}

// WriteFile persists a snippet's rows to path as an .npy array.
func WriteFile(path string, signalSlice, timeSlice []float64) error {
	m, err := Build(signalSlice, timeSlice)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snippet: create %q: %w", path, err)
	}
	defer f.Close()
	if err := npyio.Write(f, m); err != nil {
		return fmt.Errorf("snippet: write %q: %w", path, err)
	}
	return f.Close()
}

// ReadFile loads a snippet file written by [WriteFile] (or any 2×N .npy
// array), returning its amplitude and time rows.
func ReadFile(path string) (signalSlice, timeSlice []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("snippet: open %q: %w", path, err)
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, nil, fmt.Errorf("snippet: read %q: %w", path, err)
	}
	signalSlice, timeSlice, err = Parse(&m)
	if err != nil {
		return nil, nil, fmt.Errorf("snippet: %q: %w", path, err)
	}
	return signalSlice, timeSlice, nil
}

// Read loads one snippet file including its filename-encoded label.
func Read(path string) (Snippet, error) {
	sig, tm, err := ReadFile(path)
	if err != nil {
		return Snippet{}, err
	}
	label, err := EventFromFilename(path)
	if err != nil {
		return Snippet{}, err
	}
	return Snippet{
		ID:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Signal: sig,
		Time:   tm,
		Label:  label,
	}, nil
}
