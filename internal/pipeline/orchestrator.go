// Package pipeline sequences the resolve-or-compute path: parameter
// validation, cache lookup, transform on miss, optional watermark, persist,
// respond.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/dunamismax/pixelcache/internal/cachekey"
	"github.com/dunamismax/pixelcache/internal/domain"
	"github.com/dunamismax/pixelcache/internal/engine"
	"github.com/dunamismax/pixelcache/internal/geometry"
	"github.com/dunamismax/pixelcache/internal/storage"
)

const derivedContentType = "image/jpeg"

// ObjectStore is the storage surface the orchestrator depends on. A missing
// object surfaces as storage.ErrObjectNotFound; every other error is fatal
// for the current request.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) (data []byte, contentType string, err error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Compositor overlays the watermark asset onto a transformed image.
type Compositor interface {
	Apply(ctx context.Context, base, overlay []byte, targetWidth int) ([]byte, error)
}

// Policy collapses the deployment variants into one orchestrator: whether
// computed images carry the watermark by default, whether the fit mode is
// part of the cache key, and whether per-request cache outcomes are logged.
type Policy struct {
	WatermarkEnabled bool
	FitInCacheKey    bool
	VerboseLogging   bool
}

type Buckets struct {
	Source  string
	Derived string
}

// Request is the raw parameter bag handed over by the HTTP layer.
type Request struct {
	RawPath   string
	Size      string
	Width     string
	Height    string
	Fit       string
	Watermark string
}

type Response struct {
	Data        []byte
	ContentType string
}

type Config struct {
	Logger             *log.Logger
	Store              ObjectStore
	Engine             engine.Engine
	Compositor         Compositor
	Presets            domain.PresetTable
	Policy             Policy
	Buckets            Buckets
	WatermarkObjectKey string
	Metrics            *Metrics
}

type Orchestrator struct {
	logger       *log.Logger
	store        ObjectStore
	engine       engine.Engine
	compositor   Compositor
	resolver     *geometry.Resolver
	keys         *cachekey.Deriver
	policy       Policy
	buckets      Buckets
	watermarkKey string
	metrics      *Metrics
	tracer       trace.Tracer
	group        singleflight.Group
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("object store is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("transform engine is required")
	}
	if cfg.Buckets.Source == "" || cfg.Buckets.Derived == "" {
		return nil, errors.New("source and derived buckets are required")
	}
	if cfg.Policy.WatermarkEnabled && cfg.Compositor == nil {
		return nil, errors.New("watermark compositor is required when watermarking is enabled")
	}

	presets := cfg.Presets
	if presets == nil {
		presets = domain.DefaultPresets()
	}
	resolver, err := geometry.NewResolver(presets)
	if err != nil {
		return nil, fmt.Errorf("build geometry resolver: %w", err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Orchestrator{
		logger:       cfg.Logger,
		store:        cfg.Store,
		engine:       cfg.Engine,
		compositor:   cfg.Compositor,
		resolver:     resolver,
		keys:         cachekey.NewDeriver(cfg.Policy.FitInCacheKey),
		policy:       cfg.Policy,
		buckets:      cfg.Buckets,
		watermarkKey: cfg.WatermarkObjectKey,
		metrics:      metrics,
		tracer:       otel.Tracer("pixelcache/pipeline"),
	}, nil
}

// Resolve runs the full pipeline: validate -> check cache -> respond on hit,
// or fetch source -> transform -> watermark -> persist -> respond on miss.
// Validation failures return before any store access.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (Response, error) {
	ref, err := domain.ParseSourceRef(req.RawPath)
	if err != nil {
		return Response{}, err
	}

	spec, err := o.resolver.Resolve(geometry.Params{
		Size:   req.Size,
		Width:  req.Width,
		Height: req.Height,
		Fit:    req.Fit,
	})
	if err != nil {
		return Response{}, err
	}

	key := o.keys.Derive(ref, spec)

	ctx, span := o.tracer.Start(ctx, "pipeline.resolve")
	span.SetAttributes(
		attribute.String("image.source", ref.String()),
		attribute.String("image.derived_key", key),
		attribute.String("image.fit", string(spec.Fit)),
		attribute.Int("image.width", spec.Width),
		attribute.Int("image.height", spec.Height),
	)
	defer span.End()

	cached, _, err := o.store.Get(ctx, o.buckets.Derived, key)
	switch {
	case err == nil:
		o.metrics.cacheHits.Inc()
		span.SetAttributes(attribute.String("cache.outcome", "hit"))
		if o.policy.VerboseLogging && o.logger != nil {
			o.logger.Printf("cache hit key=%s", key)
		}
		return Response{Data: cached, ContentType: derivedContentType}, nil
	case !errors.Is(err, storage.ErrObjectNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache lookup failed")
		return Response{}, fmt.Errorf("lookup derived object: %w", err)
	}

	o.metrics.cacheMisses.Inc()
	span.SetAttributes(attribute.String("cache.outcome", "miss"))

	// Concurrent misses on the same derived key compute once; both writes
	// would be idempotent anyway, this just avoids the duplicate work.
	data, err, _ := o.group.Do(key, func() (any, error) {
		return o.compute(ctx, ref, spec, key, o.wantWatermark(req.Watermark))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute failed")
		return Response{}, err
	}

	if o.policy.VerboseLogging && o.logger != nil {
		o.logger.Printf("cache miss computed key=%s source=%s fit=%s", key, ref, spec.Fit)
	}
	return Response{Data: data.([]byte), ContentType: derivedContentType}, nil
}

func (o *Orchestrator) compute(ctx context.Context, ref domain.SourceRef, spec domain.TransformSpec, key string, watermark bool) ([]byte, error) {
	src, _, err := o.store.Get(ctx, o.buckets.Source, ref.String())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, ref)
		}
		return nil, fmt.Errorf("fetch source object: %w", err)
	}

	timer := o.metrics.startTransformTimer()
	result, err := o.engine.Transform(ctx, src, spec)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", ref, err)
	}

	out := result.Data
	if watermark {
		overlay, _, err := o.store.Get(ctx, o.buckets.Source, o.watermarkKey)
		if err != nil {
			return nil, fmt.Errorf("fetch watermark asset %s: %w", o.watermarkKey, err)
		}
		out, err = o.compositor.Apply(ctx, out, overlay, result.Width)
		if err != nil {
			return nil, fmt.Errorf("composite watermark: %w", err)
		}
	}

	if err := o.store.Put(ctx, o.buckets.Derived, key, out, derivedContentType); err != nil {
		return nil, fmt.Errorf("persist derived object: %w", err)
	}
	o.metrics.derivedBytes.Add(float64(len(out)))

	return out, nil
}

// Original bypasses transform and cache entirely, returning the source
// object's bytes verbatim with its stored content type.
func (o *Orchestrator) Original(ctx context.Context, rawPath string) (Response, error) {
	ref, err := domain.ParseSourceRef(rawPath)
	if err != nil {
		return Response{}, err
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.original")
	span.SetAttributes(attribute.String("image.source", ref.String()))
	defer span.End()

	data, contentType, err := o.store.Get(ctx, o.buckets.Source, ref.String())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Response{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, ref)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "source fetch failed")
		return Response{}, fmt.Errorf("fetch source object: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Response{Data: data, ContentType: contentType}, nil
}

// wantWatermark resolves the per-request toggle against the policy default.
// Unparseable values keep the default.
func (o *Orchestrator) wantWatermark(raw string) bool {
	if o.compositor == nil {
		return false
	}
	if raw == "" {
		return o.policy.WatermarkEnabled
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return o.policy.WatermarkEnabled
	}
	return enabled
}
