package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dunamismax/pixelcache/internal/domain"
	"github.com/dunamismax/pixelcache/internal/engine"
	"github.com/dunamismax/pixelcache/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	getCalls int
	putCalls int
	getErr   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		getErr:  make(map[string]error),
	}
}

func (s *fakeStore) put(bucket, key string, data []byte, contentType string) {
	s.objects[bucket+"/"+key] = data
	s.types[bucket+"/"+key] = contentType
}

func (s *fakeStore) Get(_ context.Context, bucket, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++

	full := bucket + "/" + key
	if err, ok := s.getErr[full]; ok {
		return nil, "", err
	}
	data, ok := s.objects[full]
	if !ok {
		return nil, "", fmt.Errorf("get object %s: %w", full, storage.ErrObjectNotFound)
	}
	return data, s.types[full], nil
}

func (s *fakeStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	s.objects[bucket+"/"+key] = data
	s.types[bucket+"/"+key] = contentType
	return nil
}

type fakeEngine struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeEngine) Transform(_ context.Context, src []byte, spec domain.TransformSpec) (engine.Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	data := []byte(fmt.Sprintf("transformed(%s,%dx%d,%s)", src, spec.Width, spec.Height, spec.Fit))
	return engine.Result{Data: data, Width: spec.Width, Height: spec.Height}, nil
}

type fakeCompositor struct {
	calls int
}

func (c *fakeCompositor) Apply(_ context.Context, base, overlay []byte, _ int) ([]byte, error) {
	c.calls++
	return append(append([]byte{}, base...), []byte("+watermark")...), nil
}

const (
	sourceBucket  = "images"
	derivedBucket = "derived"
	watermarkKey  = "assets/watermark.png"
)

func newTestOrchestrator(t *testing.T, store *fakeStore, eng engine.Engine, comp Compositor, policy Policy) *Orchestrator {
	t.Helper()

	orch, err := New(Config{
		Store:              store,
		Engine:             eng,
		Compositor:         comp,
		Policy:             policy,
		Buckets:            Buckets{Source: sourceBucket, Derived: derivedBucket},
		WatermarkObjectKey: watermarkKey,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func TestResolveValidationBeforeStoreAccess(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(t, store, &fakeEngine{}, nil, Policy{FitInCacheKey: true})

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"conflict", Request{RawPath: "a.jpg", Size: "small", Width: "800"}, domain.ErrConflictingDimensionParams},
		{"bad fit", Request{RawPath: "a.jpg", Width: "100", Fit: "zoom"}, domain.ErrInvalidFit},
		{"traversal", Request{RawPath: "../../etc/passwd", Width: "100"}, domain.ErrInvalidSourcePath},
		{"unknown preset", Request{RawPath: "a.jpg", Size: "gigantic"}, domain.ErrUnknownPresetSize},
		{"bad dims", Request{RawPath: "a.jpg", Width: "-1", Height: "x"}, domain.ErrInvalidDimensions},
	}

	for _, tc := range cases {
		_, err := orch.Resolve(context.Background(), tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
		if !domain.IsValidation(err) {
			t.Fatalf("%s: expected a validation error, got %v", tc.name, err)
		}
	}

	if store.getCalls != 0 || store.putCalls != 0 {
		t.Fatalf("expected no store access on validation failure, got get=%d put=%d", store.getCalls, store.putCalls)
	}
}

func TestResolveMissThenHit(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "media/banner.jpg", []byte("source"), "image/jpeg")
	eng := &fakeEngine{}
	orch := newTestOrchestrator(t, store, eng, nil, Policy{FitInCacheKey: true})

	req := Request{RawPath: "media/banner.jpg", Width: "800", Height: "600"}

	first, err := orch.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("expected one transform, got %d", eng.calls)
	}
	if store.putCalls != 1 {
		t.Fatalf("expected exactly one derived put, got %d", store.putCalls)
	}
	if first.ContentType != "image/jpeg" {
		t.Fatalf("expected image/jpeg response, got %s", first.ContentType)
	}

	if _, ok := store.objects[derivedBucket+"/media/800x600/cover/banner.jpg"]; !ok {
		t.Fatal("expected derived object under {dir}/{w}x{h}/{fit}/{file}")
	}

	second, err := orch.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("expected cache hit on second call, transform ran %d times", eng.calls)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("expected byte-identical responses across hit and miss")
	}
}

func TestResolveSourceMissing(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(t, store, &fakeEngine{}, nil, Policy{FitInCacheKey: true})

	_, err := orch.Resolve(context.Background(), Request{RawPath: "missing.jpg", Width: "100"})
	if !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestResolveDerivedLookupErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "a.jpg", []byte("source"), "image/jpeg")
	store.getErr[derivedBucket+"/100x0/cover/a.jpg"] = errors.New("connection reset")
	orch := newTestOrchestrator(t, store, &fakeEngine{}, nil, Policy{FitInCacheKey: true})

	_, err := orch.Resolve(context.Background(), Request{RawPath: "a.jpg", Width: "100"})
	if err == nil {
		t.Fatal("expected fatal error on non-miss lookup failure")
	}
	if domain.IsValidation(err) || errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestResolveAppliesWatermark(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "a.jpg", []byte("source"), "image/jpeg")
	store.put(sourceBucket, watermarkKey, []byte("logo"), "image/png")
	comp := &fakeCompositor{}
	orch := newTestOrchestrator(t, store, &fakeEngine{}, comp, Policy{WatermarkEnabled: true, FitInCacheKey: true})

	resp, err := orch.Resolve(context.Background(), Request{RawPath: "a.jpg", Width: "200", Height: "100"})
	if err != nil {
		t.Fatalf("resolve with watermark: %v", err)
	}
	if comp.calls != 1 {
		t.Fatalf("expected one composite call, got %d", comp.calls)
	}
	if !bytes.HasSuffix(resp.Data, []byte("+watermark")) {
		t.Fatal("expected watermarked payload")
	}
}

func TestResolveWatermarkAssetMissingIsFatal(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "a.jpg", []byte("source"), "image/jpeg")
	orch := newTestOrchestrator(t, store, &fakeEngine{}, &fakeCompositor{}, Policy{WatermarkEnabled: true, FitInCacheKey: true})

	_, err := orch.Resolve(context.Background(), Request{RawPath: "a.jpg", Width: "200"})
	if err == nil {
		t.Fatal("expected hard failure when the watermark asset cannot be fetched")
	}
	if errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("watermark asset miss must not surface as source-not-found: %v", err)
	}
}

func TestResolvePerRequestWatermarkToggle(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "a.jpg", []byte("source"), "image/jpeg")
	comp := &fakeCompositor{}
	orch := newTestOrchestrator(t, store, &fakeEngine{}, comp, Policy{WatermarkEnabled: true, FitInCacheKey: true})

	_, err := orch.Resolve(context.Background(), Request{RawPath: "a.jpg", Width: "200", Watermark: "false"})
	if err != nil {
		t.Fatalf("resolve with watermark disabled: %v", err)
	}
	if comp.calls != 0 {
		t.Fatalf("expected compositor to be skipped, got %d calls", comp.calls)
	}
}

func TestOriginalPassthrough(t *testing.T) {
	store := newFakeStore()
	store.put(sourceBucket, "media/film/2001/banner/banner.jpg", []byte("raw-bytes"), "image/png")
	orch := newTestOrchestrator(t, store, &fakeEngine{}, nil, Policy{})

	resp, err := orch.Original(context.Background(), "media/film/2001/banner/banner.jpg")
	if err != nil {
		t.Fatalf("original: %v", err)
	}
	if !bytes.Equal(resp.Data, []byte("raw-bytes")) {
		t.Fatal("expected verbatim source bytes")
	}
	if resp.ContentType != "image/png" {
		t.Fatalf("expected stored content type, got %s", resp.ContentType)
	}
	if store.putCalls != 0 {
		t.Fatal("original route must not write to the cache")
	}

	if _, err := orch.Original(context.Background(), "missing.jpg"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}
