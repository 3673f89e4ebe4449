// Package extract turns free-form expense sentences into structured records
// by prompting a text generator and normalizing what it returns.
//
// The pipeline is: date hint resolution, prompt construction, one generator
// call, tolerant JSON parsing and, when the returned category is not part of
// the closed set, a single stateless correction round-trip.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartledger/internal/core"
)

// Generator produces raw text for a conversation. Implementations own model
// selection, transport and inference settings.
type Generator interface {
	Generate(ctx context.Context, conv core.Conversation) (string, error)
}

// GenerateFunc adapts a plain function to Generator.
type GenerateFunc func(ctx context.Context, conv core.Conversation) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, conv core.Conversation) (string, error) {
	return f(ctx, conv)
}

// Result is the outcome of one extraction.
type Result struct {
	Record core.Record `json:"record"`
	// Raw is the generator text the record was built from: the correction
	// response when it was adopted, the first response otherwise.
	Raw       string `json:"raw"`
	Hint      string `json:"hint,omitempty"`
	Corrected bool   `json:"corrected"`
	Calls     int    `json:"calls"`
}

type Extractor struct {
	gen     Generator
	builder *Builder
	clock   func() time.Time
	logger  *slog.Logger
}

type Option func(*Extractor)

// WithClock sets the source of the reference date used by Extract.
func WithClock(clock func() time.Time) Option {
	return func(e *Extractor) { e.clock = clock }
}

func WithBuilder(b *Builder) Option {
	return func(e *Extractor) { e.builder = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func New(gen Generator, opts ...Option) *Extractor {
	e := &Extractor{
		gen:     gen,
		builder: NewBuilder(),
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the pipeline with the extractor's clock as reference date.
func (e *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	return e.ExtractAt(ctx, text, e.clock())
}

// ExtractAt runs the pipeline against an explicit reference date. Malformed
// generator output never produces an error; the affected fields are left nil.
// Only a failure of the first generator call is returned.
func (e *Extractor) ExtractAt(ctx context.Context, text string, today time.Time) (Result, error) {
	conv, hint, hasHint := e.builder.Build(text, today)

	raw, err := e.gen.Generate(ctx, conv)
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}
	res := Result{Raw: raw, Hint: hint, Calls: 1}
	fields := ParseResponse(raw)

	e.logger.DebugContext(ctx, "Extraction response parsed",
		"hint", hint,
		"fields", len(fields),
		"raw_length", len(raw))

	if _, ok := fields.Category(); !ok {
		res.Calls++
		if fixed, fixedRaw, ok := e.correct(ctx, fields); ok {
			fields = fixed
			res.Raw = fixedRaw
			res.Corrected = true
		}
	}

	res.Record = assemble(fields, hint, hasHint)
	return res, nil
}

// correct asks the generator to replace an invalid category. The retry sees
// only the previous parse, never the original prompt.
func (e *Extractor) correct(ctx context.Context, previous Fields) (Fields, string, bool) {
	e.logger.InfoContext(ctx, "Invalid category, requesting correction",
		"category", fmt.Sprint(previous["category"]))

	raw, err := e.gen.Generate(ctx, CorrectionConversation(previous.JSON()))
	if err != nil {
		e.logger.WarnContext(ctx, "Correction call failed, keeping first response", "error", err)
		return nil, "", false
	}
	fixed := ParseResponse(raw)
	if _, ok := fixed.Category(); !ok {
		e.logger.WarnContext(ctx, "Correction rejected, category left empty",
			"category", fmt.Sprint(fixed["category"]))
		return nil, "", false
	}
	return fixed, raw, true
}

func assemble(f Fields, hint string, hasHint bool) core.Record {
	var rec core.Record
	if d, ok := f.Date(); ok {
		rec.Date = &d
	} else if hasHint {
		h := hint
		rec.Date = &h
	}
	rec.Amount = f.Amount()
	if c, ok := f.Category(); ok {
		rec.Category = &c
	}
	rec.Note = core.TruncateNote(f.Note())
	return rec
}
