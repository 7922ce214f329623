package stream_test

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/Gasburger/BrainBox/pkg/stream"
)

// encodeSamples packs raw 14-bit wire values into the two-byte framing used
// by the acquisition hardware.
func encodeSamples(values ...int) []byte {
	out := make([]byte, 0, 2*len(values))
	for _, v := range values {
		out = append(out, 0x80|byte(v>>7), byte(v&0x7F))
	}
	return out
}

func TestDecodeFramesValues(t *testing.T) {
	// 8192 is the midpoint, so it decodes to zero.
	data := encodeSamples(8192, 8193, 8191, 0, 16383)
	got := stream.DecodeFrames(data)
	want := []float64{0, 1, -1, -8192, 8191}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeFramesResync(t *testing.T) {
	// A stray low byte before the first frame and a frame byte that lost
	// its low byte must both be skipped without corrupting later samples.
	data := []byte{0x05}
	data = append(data, encodeSamples(9000)...)
	data = append(data, 0x80|byte(9999>>7)) // high byte with no low byte
	data = append(data, encodeSamples(7000)...)

	got := stream.DecodeFrames(data)
	// The orphaned high byte is overwritten by the next frame start, so the
	// 7000 sample survives.
	want := []float64{9000 - 8192, 7000 - 8192}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFrameDecoderCarriesSplitSamples(t *testing.T) {
	data := encodeSamples(8192+100, 8192-100, 8192+55)
	var dec stream.FrameDecoder
	var got []float64
	// Feed one byte at a time so every sample is split across a boundary.
	for _, b := range data {
		got = dec.Decode(got, []byte{b})
	}
	want := []float64{100, -100, 55}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestArraySourceReplaysAllSamples(t *testing.T) {
	samples := make([]float64, 2500)
	for i := range samples {
		samples[i] = float64(i)
	}
	src, err := stream.NewArraySource(samples, 500)
	if err != nil {
		t.Fatalf("NewArraySource: %v", err)
	}
	if src.SampleRate() != 500 {
		t.Errorf("SampleRate: got %d, want 500", src.SampleRate())
	}

	var got []float64
	if err := stream.Drain(context.Background(), src, func(chunk []float64) error {
		got = append(got, chunk...)
		return nil
	}); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], samples[i])
		}
	}
}

func TestArraySourceClosed(t *testing.T) {
	src, err := stream.NewArraySource([]float64{1, 2, 3}, 500)
	if err != nil {
		t.Fatalf("NewArraySource: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := src.Read(context.Background()); !errors.Is(err, stream.ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestArraySourceRejectsBadRate(t *testing.T) {
	if _, err := stream.NewArraySource([]float64{1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestOpenArrayTwoRowRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.npy")

	m := mat.NewDense(2, 4, nil)
	m.SetRow(0, []float64{0.5, -0.5, 1, -1})
	m.SetRow(1, []float64{0, 0.002, 0.004, 0.006})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := npyio.Write(f, m); err != nil {
		t.Fatalf("npyio.Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	src, err := stream.OpenArray(path, 500)
	if err != nil {
		t.Fatalf("OpenArray: %v", err)
	}
	defer src.Close()

	chunk, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float64{0.5, -0.5, 1, -1}
	if len(chunk) != len(want) {
		t.Fatalf("got %d samples, want %d", len(chunk), len(want))
	}
	for i := range want {
		if chunk[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v (amplitude row only)", i, chunk[i], want[i])
		}
	}
}

func TestDrainStopsOnCallbackError(t *testing.T) {
	src, err := stream.NewArraySource(make([]float64, 10_000), 500)
	if err != nil {
		t.Fatalf("NewArraySource: %v", err)
	}
	sentinel := errors.New("stop here")
	calls := 0
	err = stream.Drain(context.Background(), src, func([]float64) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestWAVSourceRoundTrip(t *testing.T) {
	const rate = 8000
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.wav")

	ints := make([]int, 400)
	for i := range ints {
		ints[i] = int(10_000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           ints,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	src, err := stream.OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != rate {
		t.Errorf("SampleRate: got %d, want %d", src.SampleRate(), rate)
	}
	var got []float64
	if err := stream.Drain(context.Background(), src, func(chunk []float64) error {
		got = append(got, chunk...)
		return nil
	}); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != len(ints) {
		t.Fatalf("got %d samples, want %d", len(got), len(ints))
	}
	for i := range ints {
		want := float64(ints[i]) / 32768
		if math.Abs(got[i]-want) > 1e-9 {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want)
		}
	}
}

func TestWSSourceDecodesBinaryMessages(t *testing.T) {
	payload := encodeSamples(8192+500, 8192-500, 8192+250)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()
		if err := c.Write(ctx, websocket.MessageText, []byte("hello")); err != nil {
			t.Errorf("write text: %v", err)
			return
		}
		if err := c.Write(ctx, websocket.MessageBinary, payload); err != nil {
			t.Errorf("write binary: %v", err)
			return
		}
		c.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	ctx := context.Background()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	src, err := stream.DialWS(ctx, url, 10_000)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer src.Close()

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float64{500, -500, 250}
	if len(chunk) != len(want) {
		t.Fatalf("got %v, want %v", chunk, want)
	}
	for i := range want {
		if chunk[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, chunk[i], want[i])
		}
	}

	if _, err := src.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("after close: got %v, want io.EOF", err)
	}
}
