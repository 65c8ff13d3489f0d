// Package pipeline provides the complete compilation pipeline for patchc.
//
// This package implements the normalize → validate → plan → emit pipeline
// shared by the CLI and the HTTP server. Centralizing it keeps behavior
// identical across entry points and puts artifact caching in one place.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Normalize: Accept a document or bare patch, apply setting defaults
//  2. Validate: Check graph structure, compute the node order
//  3. Plan: Resolve wires, parameter slots, and state offsets
//  4. Emit: Generate the source unit
//
// Compiled source is cached by patch content hash; recompiling an unchanged
// patch is a cache lookup.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Validation.Valid {
//	    // inspect result.Validation.Issues
//	}
//	src := result.Source
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/soundpatch/patchc/pkg/compile"
	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/patch"
)

// Render format constants.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidRenderFormats is the set of supported graph render formats.
var ValidRenderFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// Options contains per-run configuration for the compilation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Engine setting overrides. Zero values keep the document's settings.
	SampleRate float64 `json:"sample_rate,omitempty"`
	BlockSize  int     `json:"block_size,omitempty"`
	Oversample int     `json:"oversample,omitempty"`

	// Refresh bypasses the source cache and recompiles.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Apply returns the patch with the option overrides folded into its
// settings.
func (o Options) Apply(p patch.Patch) patch.Patch {
	if o.SampleRate == 0 && o.BlockSize == 0 && o.Oversample == 0 {
		return p
	}
	return p.WithSettings(patch.Settings{
		SampleRate: o.SampleRate,
		BlockSize:  o.BlockSize,
		Oversample: o.Oversample,
	})
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the normalized input document.
	Document patch.Document

	// PatchHash is the content hash of the compiled patch, including its
	// settings.
	PatchHash string

	// Validation is the full validation outcome. When it is invalid, Plan
	// and Source are empty and Issues lists every problem found.
	Validation compile.Result

	// Plan is the compilation plan. Nil when the source came from cache or
	// validation failed.
	Plan *compile.Plan

	// Source is the emitted source unit.
	Source string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which artifacts came from cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount       int
	ConnectionCount int
	ValidateTime    time.Duration
	PlanTime        time.Duration
	EmitTime        time.Duration
}

// CacheInfo tracks cache hits per artifact class.
type CacheInfo struct {
	SourceHit bool // Whether compiled source came from cache
	RenderHit bool // Whether a rendered graph came from cache
}

// ValidateRenderFormat checks that a graph render format is supported.
func ValidateRenderFormat(format string) error {
	if !ValidRenderFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid render format: %q (must be one of: dot, svg)", format)
	}
	return nil
}
