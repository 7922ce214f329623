package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/classify/postgres"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

const testDim = 3

// testDSN returns the test database DSN from the environment, or skips the
// test if BRAINBOX_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("BRAINBOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BRAINBOX_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestIndex creates a fresh [postgres.Index] over an empty table.
func newTestIndex(t *testing.T) *postgres.Index {
	t.Helper()
	ctx := context.Background()

	ix, err := postgres.NewIndex(ctx, testDSN(t), testDim)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(ix.Close)
	if err := ix.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	return ix
}

func vec(xs ...float64) features.Vector { return features.Vector(xs) }

func TestIndexAddAndNearest(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	points := []classify.Sample{
		{ID: "a", Vector: vec(0, 0, 0), Label: event.Left},
		{ID: "b", Vector: vec(1, 0, 0), Label: event.Left},
		{ID: "c", Vector: vec(10, 10, 10), Label: event.Right},
	}
	if err := ix.AddSamples(ctx, points); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if n, err := ix.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count: got (%d, %v), want (3, nil)", n, err)
	}

	got, err := ix.Nearest(ctx, vec(0.1, 0, 0), 2)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("neighbor order: got %q, %q; want a, b", got[0].ID, got[1].ID)
	}
	if got[0].Distance > got[1].Distance {
		t.Errorf("distances not ascending: %v, %v", got[0].Distance, got[1].Distance)
	}
}

func TestIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	if err := ix.Add(ctx, "a", vec(0, 0, 0), event.Left); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add(ctx, "a", vec(5, 5, 5), event.Right); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	if n, err := ix.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count after upsert: got (%d, %v), want (1, nil)", n, err)
	}
	got, err := ix.Nearest(ctx, vec(5, 5, 5), 1)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if got[0].Label != event.Right {
		t.Errorf("label after upsert: got %v, want %v", got[0].Label, event.Right)
	}
}

func TestIndexClassifyMajorityVote(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	points := []classify.Sample{
		{ID: "l1", Vector: vec(0, 0, 0), Label: event.Left},
		{ID: "l2", Vector: vec(0.1, 0, 0), Label: event.Left},
		{ID: "l3", Vector: vec(0, 0.1, 0), Label: event.Left},
		{ID: "r1", Vector: vec(10, 10, 10), Label: event.Right},
		{ID: "r2", Vector: vec(10.1, 10, 10), Label: event.Right},
	}
	if err := ix.AddSamples(ctx, points); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}

	got, err := ix.Classify(ctx, vec(0.05, 0.05, 0), 5)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != event.Left {
		t.Errorf("got %v, want %v", got, event.Left)
	}

	got, err = ix.Classify(ctx, vec(10, 10.05, 10), 3)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != event.Right {
		t.Errorf("got %v, want %v", got, event.Right)
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	if err := ix.Add(ctx, "bad", vec(1, 2), event.Left); err == nil {
		t.Error("expected dimension error on Add")
	}
	if _, err := ix.Nearest(ctx, vec(1), 1); err == nil {
		t.Error("expected dimension error on Nearest")
	}
}

func TestIndexClassifyEmpty(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	if _, err := ix.Classify(ctx, vec(0, 0, 0), 5); err == nil {
		t.Error("expected error when classifying against an empty index")
	}
}
