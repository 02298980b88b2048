// Package validation probes every download URL of a freshly merged catalog and decides,
// against the previously published catalog, which entries make it into the next one.
//
// Decision per leaf:
//
//	existed before | probe   | action
//	---------------+---------+--------------------------------
//	yes            | valid   | keep
//	yes            | invalid | keep, warn (potentially broken)
//	no             | valid   | keep
//	no             | invalid | drop, warn (rejected)
//
// A probe is valid when a HEAD request answers with a 2xx status after redirects and
// transport retries. A failing probe only ever affects its own entry.
package validation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	gosync "sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/httpclient"
	"github.com/projectenv/tools-index/internal/otel"
	"github.com/projectenv/tools-index/internal/telemetry"
)

// DefaultConcurrency is the default maximum number of probes in flight
const DefaultConcurrency = 40

// Probe outcomes as recorded in metrics
const (
	ActionKeep               = "keep"
	ActionKeepDespiteFailure = "keep_despite_failure"
	ActionReject             = "reject"
	ActionPreserveOmitted    = "preserve_omitted"
)

// Options configures a Validator
type Options struct {
	// Concurrency caps the number of probes in flight. Defaults to DefaultConcurrency.
	Concurrency int

	// PreserveOmitted carries over leaves of the previous catalog that the merged catalog
	// no longer contains, instead of silently dropping them.
	PreserveOmitted bool

	Metrics *telemetry.ValidationMetrics
	Tracer  trace.Tracer
}

// Report counts the outcome of a validation pass. It is diagnostic only.
type Report struct {
	Checked            int
	KeptDespiteFailure int
	RejectedNew        int
	PreservedOmitted   int
}

// Validator checks catalog URLs over HTTP
type Validator struct {
	client *http.Client
	opts   Options
}

// NewValidator creates a Validator probing through client. The client is expected to
// use the shared resilient transport so that probes honor per-host rate limits.
func NewValidator(client *http.Client, opts Options) *Validator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Validator{client: client, opts: opts}
}

// accumulator is the catalog under construction, shared by all probes
type accumulator struct {
	mu     gosync.Mutex
	out    *catalog.Catalog
	report Report
}

func (a *accumulator) record(leaf catalog.Leaf, keep bool, update func(*Report)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.Checked++
	if update != nil {
		update(&a.report)
	}
	if !keep {
		return
	}
	if err := a.out.Put(leaf); err != nil {
		slog.Error("Failed to keep URL", "path", leaf.Path.String(), "error", err)
	}
}

// Validate probes every leaf of merged and returns a new catalog with the leaves that
// passed the decision table. Neither input is modified and the result shares no
// container with them. Cancelling ctx does not abort the pass: probes that could not
// run are treated as failed.
func (v *Validator) Validate(ctx context.Context, previous, merged *catalog.Catalog) (*catalog.Catalog, Report) {
	ctx, span := otel.StartSpan(ctx, v.opts.Tracer, "validation.Validate")
	defer span.End()

	acc := &accumulator{out: catalog.New()}
	if merged != nil {
		for dist, names := range merged.JDKDistributionSynonyms {
			acc.out.AddSynonyms(dist, names...)
		}
	}

	leaves := merged.Leaves()
	slog.Info("Validating URLs", "url_count", len(leaves), "concurrency", v.opts.Concurrency)

	sem := semaphore.NewWeighted(int64(v.opts.Concurrency))
	var wg gosync.WaitGroup
	for _, leaf := range leaves {
		existedBefore := previous.Has(leaf.Path)

		if err := sem.Acquire(ctx, 1); err != nil {
			v.decide(ctx, acc, leaf, existedBefore, false)
			continue
		}
		wg.Go(func() {
			defer sem.Release(1)
			v.decide(ctx, acc, leaf, existedBefore, v.probe(ctx, leaf.URL))
		})
	}
	wg.Wait()

	if v.opts.PreserveOmitted {
		v.preserveOmitted(ctx, acc, previous, merged)
	}

	report := acc.report
	span.SetAttributes(
		attribute.Int("validation.checked", report.Checked),
		attribute.Int("validation.kept_despite_failure", report.KeptDespiteFailure),
		attribute.Int("validation.rejected_new", report.RejectedNew),
	)
	slog.Info("URL validation completed",
		"checked", report.Checked,
		"kept_despite_failure", report.KeptDespiteFailure,
		"rejected_new", report.RejectedNew,
		"preserved_omitted", report.PreservedOmitted)

	return acc.out, report
}

func (v *Validator) decide(ctx context.Context, acc *accumulator, leaf catalog.Leaf, existedBefore, valid bool) {
	section := string(leaf.Path.Section)
	switch {
	case valid:
		v.opts.Metrics.RecordProbe(ctx, section, ActionKeep)
		acc.record(leaf, true, nil)
	case existedBefore:
		slog.Warn("Potentially broken but previously indexed URL",
			"path", leaf.Path.String(),
			"url", leaf.URL)
		v.opts.Metrics.RecordProbe(ctx, section, ActionKeepDespiteFailure)
		recordDecision(ctx, leaf, ActionKeepDespiteFailure)
		acc.record(leaf, true, func(r *Report) { r.KeptDespiteFailure++ })
	default:
		slog.Warn("Rejected new invalid URL",
			"path", leaf.Path.String(),
			"url", leaf.URL)
		v.opts.Metrics.RecordProbe(ctx, section, ActionReject)
		recordDecision(ctx, leaf, ActionReject)
		acc.record(leaf, false, func(r *Report) { r.RejectedNew++ })
	}
}

// preserveOmitted copies leaves that only exist in previous. It runs after all probes
// have completed, so it does not need the accumulator lock.
func (v *Validator) preserveOmitted(ctx context.Context, acc *accumulator, previous, merged *catalog.Catalog) {
	for _, leaf := range previous.Leaves() {
		if merged.Has(leaf.Path) {
			continue
		}
		slog.Warn("Preserving previously indexed URL no datasource reported",
			"path", leaf.Path.String(),
			"url", leaf.URL)
		if err := acc.out.Put(leaf); err != nil {
			slog.Error("Failed to preserve URL", "path", leaf.Path.String(), "error", err)
			continue
		}
		v.opts.Metrics.RecordProbe(ctx, string(leaf.Path.Section), ActionPreserveOmitted)
		recordDecision(ctx, leaf, ActionPreserveOmitted)
		acc.report.PreservedOmitted++
	}
	if previous != nil {
		for dist, names := range previous.JDKDistributionSynonyms {
			acc.out.AddSynonyms(dist, names...)
		}
	}
}

// recordDecision adds an event for a leaf that did not simply pass to the validation span.
func recordDecision(ctx context.Context, leaf catalog.Leaf, action string) {
	trace.SpanFromContext(ctx).AddEvent("validation.decision", trace.WithAttributes(
		otel.AttrSection.String(string(leaf.Path.Section)),
		otel.AttrProbeAction.String(action),
		attribute.String("catalog.path", leaf.Path.String()),
		attribute.String("url.full", leaf.URL),
	))
}

// probe reports whether url answers a HEAD request with a 2xx status
func (v *Validator) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		slog.Debug("Invalid URL", "url", url, "error", err)
		return false
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		slog.Debug("URL probe failed", "url", url, "error", err)
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("URL probe returned non-success status", "url", url, "status", resp.StatusCode)
		return false
	}
	return true
}
