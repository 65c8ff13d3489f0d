package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soundpatch/patchc/pkg/cache"
	"github.com/soundpatch/patchc/pkg/compile"
	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/nodelib"
	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
	"github.com/soundpatch/patchc/pkg/observability"
	"github.com/soundpatch/patchc/pkg/patch"
	"github.com/soundpatch/patchc/pkg/render"
)

// Runner encapsulates pipeline execution with caching. Both the CLI and the
// HTTP server use it, so caching logic lives in exactly one place.
//
// The Runner is stateless except for the cache, library, and logger; it
// stores no per-run results. Multiple goroutines can safely share one Runner.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Library *nodelib.Library
	Logger  *log.Logger
}

// NewRunner creates a runner.
// A nil cache disables caching, a nil keyer uses the default key scheme, and
// a nil library uses the builtin kinds.
func NewRunner(c cache.Cache, keyer cache.Keyer, lib *nodelib.Library, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if lib == nil {
		lib = kinds.Library()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Library: lib,
		Logger:  logger,
	}
}

// Execute runs the complete normalize → validate → plan → emit pipeline.
//
// Graph-content problems are not errors: when validation fails, the returned
// result carries the issue list and no source, and the error is nil. Errors
// are reserved for malformed payloads and infrastructure failures.
func (r *Runner) Execute(ctx context.Context, payload any, opts Options) (*Result, error) {
	logger := r.logger(opts)

	doc, err := patch.Normalize(payload)
	if err != nil {
		return nil, err
	}
	doc.Patch = opts.Apply(doc.Patch)

	result := &Result{Document: doc}
	result.PatchHash = r.patchHash(doc.Patch)
	result.Stats.NodeCount = doc.Patch.NodeCount()
	result.Stats.ConnectionCount = doc.Patch.ConnectionCount()

	// Stage 1: Validate
	validateStart := time.Now()
	observability.Compile().OnValidateStart(ctx, result.Stats.NodeCount)
	result.Validation = compile.Validate(doc.Patch)
	result.Stats.ValidateTime = time.Since(validateStart)
	observability.Compile().OnValidateComplete(ctx, result.Stats.NodeCount,
		len(result.Validation.Issues), result.Stats.ValidateTime)

	logger.Info("validated patch",
		"nodes", result.Stats.NodeCount,
		"connections", result.Stats.ConnectionCount,
		"issues", len(result.Validation.Issues),
		"duration", result.Stats.ValidateTime)

	if !result.Validation.Valid {
		return result, nil
	}

	// Cached source short-circuits planning and emission entirely.
	sourceKey := r.Keyer.SourceKey(result.PatchHash, r.sourceKeyOpts(doc.Patch))
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, sourceKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "source")
			result.Source = string(data)
			result.CacheInfo.SourceHit = true
			logger.Debug("source cache hit", "hash", result.PatchHash)
			return result, nil
		}
		observability.Cache().OnCacheMiss(ctx, "source")
	}

	// Stage 2: Plan
	planStart := time.Now()
	observability.Compile().OnPlanStart(ctx, result.Stats.NodeCount)
	plan, err := compile.NewPlan(result.Validation, doc.Patch, r.Library)
	result.Stats.PlanTime = time.Since(planStart)
	observability.Compile().OnPlanComplete(ctx, result.Stats.NodeCount, result.Stats.PlanTime, err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "plan patch")
	}
	result.Plan = plan

	logger.Info("planned compilation",
		"params", plan.ParamCount,
		"state_words", plan.StateWords,
		"duration", result.Stats.PlanTime)

	// Stage 3: Emit
	emitStart := time.Now()
	observability.Compile().OnEmitStart(ctx, result.Stats.NodeCount)
	source, err := compile.Emit(plan, r.Library)
	result.Stats.EmitTime = time.Since(emitStart)
	observability.Compile().OnEmitComplete(ctx, len(source), result.Stats.EmitTime, err)
	if err != nil {
		return nil, err
	}
	result.Source = source

	logger.Info("emitted source",
		"bytes", len(source),
		"duration", result.Stats.EmitTime)

	if err := r.Cache.Set(ctx, sourceKey, []byte(source), cache.TTLSource); err == nil {
		observability.Cache().OnCacheSet(ctx, "source", len(source))
	}

	return result, nil
}

// Validate normalizes a payload and runs validation only.
func (r *Runner) Validate(ctx context.Context, payload any, opts Options) (patch.Document, compile.Result, error) {
	doc, err := patch.Normalize(payload)
	if err != nil {
		return patch.Document{}, compile.Result{}, err
	}
	doc.Patch = opts.Apply(doc.Patch)

	observability.Compile().OnValidateStart(ctx, doc.Patch.NodeCount())
	start := time.Now()
	res := compile.Validate(doc.Patch)
	observability.Compile().OnValidateComplete(ctx, doc.Patch.NodeCount(), len(res.Issues), time.Since(start))
	return doc, res, nil
}

// RenderGraph renders the patch topology in the given format ("dot" or
// "svg"), with artifact caching. The second return reports a cache hit.
func (r *Runner) RenderGraph(ctx context.Context, payload any, format string) ([]byte, bool, error) {
	if err := ValidateRenderFormat(format); err != nil {
		return nil, false, err
	}
	doc, err := patch.Normalize(payload)
	if err != nil {
		return nil, false, err
	}

	key := r.Keyer.RenderKey(r.patchHash(doc.Patch), cache.RenderKeyOpts{Format: format})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "render")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	var data []byte
	switch format {
	case FormatDOT:
		data = []byte(render.ToDOT(doc.Patch, r.Library))
	case FormatSVG:
		data, err = render.SVG(ctx, doc.Patch, r.Library)
		if err != nil {
			return nil, false, err
		}
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err == nil {
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}
	return data, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// patchHash computes the content hash over the patch including its settings,
// so a settings change is a different artifact.
func (r *Runner) patchHash(p patch.Patch) string {
	data, _ := json.Marshal(p)
	return cache.Hash(data)
}

func (r *Runner) sourceKeyOpts(p patch.Patch) cache.SourceKeyOpts {
	return cache.SourceKeyOpts{
		SampleRate:   p.Settings.SampleRate,
		BlockSize:    p.Settings.BlockSize,
		Oversample:   p.Settings.Oversample,
		LibraryKinds: r.Library.Kinds(),
	}
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
