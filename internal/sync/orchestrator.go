package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/otel"
	"github.com/projectenv/tools-index/internal/sources"
	"github.com/projectenv/tools-index/internal/telemetry"
)

// NamedDatasource is a datasource together with the name it is configured under
type NamedDatasource struct {
	Name       string
	Datasource sources.Datasource
}

// Error reports the datasource whose fetch aborted a run
type Error struct {
	Datasource string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("datasource %s failed: %v", e.Datasource, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Orchestrator fetches partial catalogs from datasources and merges them
type Orchestrator struct {
	metrics *telemetry.FetchMetrics
	tracer  trace.Tracer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics records fetch durations and per-section entry counts
func WithMetrics(m *telemetry.FetchMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer creates a span per run and per datasource
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run fetches every datasource concurrently and merges seed followed by the partial
// catalogs in the order of datasources. Neither seed nor any partial catalog is aliased
// by the result.
//
// The first datasource failure is returned as an *Error; no catalog is returned in that case.
func (o *Orchestrator) Run(ctx context.Context, seed *catalog.Catalog, datasources []NamedDatasource) (*catalog.Catalog, error) {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.Run")
	defer span.End()

	slog.Info("Fetching datasources", "datasource_count", len(datasources))
	start := time.Now()

	partials := make([]*catalog.Catalog, len(datasources))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range datasources {
		g.Go(func() error {
			result, err := o.fetch(gctx, ds)
			if err != nil {
				return &Error{Datasource: ds.Name, Err: err}
			}
			partials[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		otel.RecordError(span, err)
		slog.Error("Fetch failed", "error", err)
		return nil, err
	}

	merged := catalog.Merge(append([]*catalog.Catalog{seed}, partials...)...)

	for _, section := range catalog.URLSections {
		o.metrics.RecordEntries(ctx, string(section), int64(merged.SectionLen(section)))
	}
	span.SetAttributes(otel.AttrLeafCount.Int(merged.Len()))
	slog.Info("Fetched and merged datasources",
		"datasource_count", len(datasources),
		"url_count", merged.Len(),
		"duration", time.Since(start).Round(time.Millisecond))

	return merged, nil
}

func (o *Orchestrator) fetch(ctx context.Context, ds NamedDatasource) (*catalog.Catalog, error) {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.Fetch",
		trace.WithAttributes(otel.AttrDatasource.String(ds.Name)))
	defer span.End()

	start := time.Now()
	result, err := ds.Datasource.Fetch(ctx)
	duration := time.Since(start)
	o.metrics.RecordFetchDuration(ctx, ds.Name, duration, err == nil)

	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	if result == nil {
		result = catalog.New()
	}

	span.SetAttributes(otel.AttrLeafCount.Int(result.Len()))
	slog.Info("Datasource fetched",
		"datasource", ds.Name,
		"url_count", result.Len(),
		"duration", duration.Round(time.Millisecond))
	return result, nil
}
