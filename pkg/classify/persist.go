package classify

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// Model kinds recognised by [Load].
const (
	kindKNN      = "knn"
	kindCentroid = "centroid"
)

// envelope wraps a serialised model with its kind so Load can reconstruct
// the right type.
type envelope struct {
	Kind string `msgpack:"kind"`
	Blob []byte `msgpack:"blob"`
}

type knnState struct {
	K       int         `msgpack:"k"`
	Dim     int         `msgpack:"dim"`
	Vectors [][]float64 `msgpack:"vectors"`
	Labels  []string    `msgpack:"labels"`
}

type centroidState struct {
	Dim       int         `msgpack:"dim"`
	Labels    []string    `msgpack:"labels"`
	Centroids [][]float64 `msgpack:"centroids"`
}

// Save serialises a fitted classifier to w as an opaque msgpack blob.
// Only the shipped classifier types are supported.
func Save(w io.Writer, c Classifier) error {
	var env envelope
	var err error
	switch m := c.(type) {
	case *KNN:
		env.Kind = kindKNN
		env.Blob, err = msgpack.Marshal(knnState{
			K:       m.k,
			Dim:     m.dim,
			Vectors: toRaw(m.vectors),
			Labels:  toStrings(m.labels),
		})
	case *NearestCentroid:
		env.Kind = kindCentroid
		env.Blob, err = msgpack.Marshal(centroidState{
			Dim:       m.dim,
			Labels:    toStrings(m.labels),
			Centroids: toRaw(m.centroids),
		})
	default:
		return fmt.Errorf("classify: cannot serialise %T", c)
	}
	if err != nil {
		return fmt.Errorf("classify: encode model: %w", err)
	}
	data, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("classify: encode envelope: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("classify: write model: %w", err)
	}
	return nil
}

// Load reconstructs a classifier previously written by [Save]. The result is
// ready for prediction without retraining.
func Load(r io.Reader) (Classifier, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("classify: read model: %w", err)
	}
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("classify: decode envelope: %w", err)
	}

	switch env.Kind {
	case kindKNN:
		var st knnState
		if err := msgpack.Unmarshal(env.Blob, &st); err != nil {
			return nil, fmt.Errorf("classify: decode knn model: %w", err)
		}
		return &KNN{
			k:       st.K,
			dim:     st.Dim,
			vectors: fromRaw(st.Vectors),
			labels:  fromStrings(st.Labels),
		}, nil
	case kindCentroid:
		var st centroidState
		if err := msgpack.Unmarshal(env.Blob, &st); err != nil {
			return nil, fmt.Errorf("classify: decode centroid model: %w", err)
		}
		return &NearestCentroid{
			dim:       st.Dim,
			labels:    fromStrings(st.Labels),
			centroids: fromRaw(st.Centroids),
		}, nil
	default:
		return nil, fmt.Errorf("classify: unknown model kind %q", env.Kind)
	}
}

// SaveFile writes a fitted classifier to path, creating or truncating it.
func SaveFile(path string, c Classifier) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("classify: create %q: %w", path, err)
	}
	defer f.Close()
	if err := Save(f, c); err != nil {
		return err
	}
	return f.Close()
}

// LoadFile reads a classifier previously written with [SaveFile].
func LoadFile(path string) (Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("classify: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func toRaw(vectors []features.Vector) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = v
	}
	return out
}

func fromRaw(raw [][]float64) []features.Vector {
	out := make([]features.Vector, len(raw))
	for i, v := range raw {
		out[i] = v
	}
	return out
}

func toStrings(labels []event.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

func fromStrings(raw []string) []event.Label {
	out := make([]event.Label, len(raw))
	for i, s := range raw {
		out[i] = event.Label(s)
	}
	return out
}
