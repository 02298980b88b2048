package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/otel"
	"github.com/projectenv/tools-index/internal/sources"
	"github.com/projectenv/tools-index/internal/storage"
	pkgsync "github.com/projectenv/tools-index/internal/sync"
	"github.com/projectenv/tools-index/internal/sync/coordinator"
	"github.com/projectenv/tools-index/internal/validation"
)

// Pipeline produces one version of the index: it loads the previously published index,
// fetches every selected datasource on top of it, validates the URLs and writes the result.
type Pipeline struct {
	config       *config.Config
	tools        []string
	store        storage.Store
	factory      sources.Factory
	orchestrator *pkgsync.Orchestrator

	// validator is nil when validation is skipped
	validator *validation.Validator
	tracer    trace.Tracer
}

// Generate runs the pipeline once. Nothing is written unless every step succeeds, so a
// failed run leaves the published index untouched.
func (p *Pipeline) Generate(ctx context.Context) (*coordinator.Result, error) {
	runID := uuid.NewString()
	ctx, span := otel.StartSpan(ctx, p.tracer, "app.Generate",
		trace.WithAttributes(otel.AttrRunID.String(runID)))
	defer span.End()

	result, err := p.generate(ctx, runID, slog.With("run_id", runID))
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrLeafCount.Int(result.URLCount))
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, runID string, logger *slog.Logger) (*coordinator.Result, error) {
	start := time.Now()

	datasources, err := p.datasources()
	if err != nil {
		return nil, err
	}

	previous, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous index: %w", err)
	}
	logger.Info("Loaded previous index", "url_count", previous.Len())

	merged, err := p.orchestrator.Run(ctx, previous, datasources)
	if err != nil {
		return nil, err
	}

	index := merged
	var rejected int
	if p.validator != nil {
		var report validation.Report
		index, report = p.validator.Validate(ctx, previous, merged)
		rejected = report.RejectedNew
		logger.Info("Validated index URLs",
			"checked", report.Checked,
			"kept_despite_failure", report.KeptDespiteFailure,
			"rejected_new", report.RejectedNew,
			"preserved_omitted", report.PreservedOmitted)
	} else {
		logger.Info("URL validation skipped")
	}

	if err := p.write(ctx, index); err != nil {
		return nil, err
	}

	logger.Info("Index generated",
		"url_count", index.Len(),
		"rejected_count", rejected,
		"duration", time.Since(start).Round(time.Millisecond))

	return &coordinator.Result{
		RunID:         runID,
		URLCount:      index.Len(),
		RejectedCount: rejected,
	}, nil
}

// datasources creates the selected datasources in configured order
func (p *Pipeline) datasources() ([]pkgsync.NamedDatasource, error) {
	selected, err := p.config.Select(p.tools)
	if err != nil {
		return nil, err
	}

	named := make([]pkgsync.NamedDatasource, 0, len(selected))
	for i := range selected {
		ds, err := p.factory.CreateDatasource(&selected[i])
		if err != nil {
			return nil, fmt.Errorf("failed to create datasource: %w", err)
		}
		named = append(named, pkgsync.NamedDatasource{Name: selected[i].Name, Datasource: ds})
	}
	return named, nil
}

func (p *Pipeline) write(ctx context.Context, index *catalog.Catalog) error {
	if err := index.Validate(); err != nil {
		return fmt.Errorf("generated index is invalid: %w", err)
	}
	if err := p.store.Store(ctx, index); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
