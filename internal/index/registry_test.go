package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

type fakeStore struct {
	ensureCalls atomic.Int32
	ensureErr   error
}

func (f *fakeStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	f.ensureCalls.Add(1)
	return f.ensureErr
}

func (f *fakeStore) Upsert(ctx context.Context, collection string, docs []vector.Document) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vec []float32, limit int) ([]vector.SearchResult, error) {
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func TestGetHandleCreatesOnce(t *testing.T) {
	store := &fakeStore{}
	r := NewRegistry(store)
	ctx := context.Background()

	h1, err := r.GetHandle(ctx, "proj", "model-a", 8)
	if err != nil {
		t.Fatalf("first GetHandle: %v", err)
	}
	h2, err := r.GetHandle(ctx, "proj", "model-a", 8)
	if err != nil {
		t.Fatalf("second GetHandle: %v", err)
	}

	if h1 != h2 {
		t.Error("repeated GetHandle should return the cached handle")
	}
	if got := store.ensureCalls.Load(); got != 1 {
		t.Errorf("EnsureCollection called %d times, want 1", got)
	}
	if h1.Collection() != "proj" {
		t.Errorf("collection = %q, want project name", h1.Collection())
	}
}

func TestGetHandleRejectsParamMismatch(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	ctx := context.Background()

	if _, err := r.GetHandle(ctx, "proj", "model-a", 8); err != nil {
		t.Fatalf("seed GetHandle: %v", err)
	}

	tests := []struct {
		name  string
		model string
		dim   int
	}{
		{"different model", "model-b", 8},
		{"different dimension", "model-a", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := r.GetHandle(ctx, "proj", tt.model, tt.dim)
			if err == nil {
				t.Fatal("expected mismatch error")
			}
			if !errortypes.IsKind(err, errortypes.KindInvalidArgument) {
				t.Errorf("error kind = %q, want invalid_argument", errortypes.KindOf(err))
			}
			if h != nil {
				t.Error("mismatch should not return a handle")
			}
		})
	}

	// The original binding survives a rejected request.
	h, err := r.GetHandle(ctx, "proj", "model-a", 8)
	if err != nil {
		t.Fatalf("original params rejected after mismatch: %v", err)
	}
	if h.EmbedModel != "model-a" || h.Dimension != 8 {
		t.Errorf("handle changed: %+v", h)
	}
}

func TestGetHandleStoreFailure(t *testing.T) {
	store := &fakeStore{ensureErr: errors.New("unreachable")}
	r := NewRegistry(store)

	if _, err := r.GetHandle(context.Background(), "proj", "m", 8); err == nil {
		t.Fatal("expected store failure to propagate")
	}

	// Failure must not cache a broken handle.
	store.ensureErr = nil
	h, err := r.GetHandle(context.Background(), "proj", "m", 8)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if h == nil {
		t.Fatal("retry should create the handle")
	}
}

func TestGetHandleConcurrentFirstAccess(t *testing.T) {
	store := &fakeStore{}
	r := NewRegistry(store)

	var wg sync.WaitGroup
	handles := make([]*Handle, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.GetHandle(context.Background(), "proj", "m", 8)
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if got := store.ensureCalls.Load(); got != 1 {
		t.Errorf("EnsureCollection called %d times under contention, want 1", got)
	}
	for i, h := range handles {
		if h != handles[0] {
			t.Errorf("goroutine %d got a different handle", i)
		}
	}
}

func TestPutHandleReplaces(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	ctx := context.Background()

	if _, err := r.GetHandle(ctx, "proj", "model-a", 8); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Re-ingestion under new parameters replaces the binding outright.
	r.PutHandle("proj", &Handle{Project: "proj", EmbedModel: "model-b", Dimension: 16})

	h, err := r.GetHandle(ctx, "proj", "model-b", 16)
	if err != nil {
		t.Fatalf("GetHandle after PutHandle: %v", err)
	}
	if h.EmbedModel != "model-b" || h.Dimension != 16 {
		t.Errorf("handle = %+v, want replaced binding", h)
	}
}
