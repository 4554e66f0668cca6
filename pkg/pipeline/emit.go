package pipeline

import (
	"context"
	"fmt"

	"github.com/nstogner/answerpipe/pkg/domain"
)

// DeliverFunc hands the final answer text to the caller.
type DeliverFunc func(ctx context.Context, text string) error

// SourcesFunc is the side channel for formatted sources.
type SourcesFunc func(ctx context.Context, sources []domain.Source) error

// Emit delivers the answer and, only after delivery succeeds, the formatted
// sources. Sources are skipped when disabled, when there are no citations,
// or when no side channel is configured.
func Emit(ctx context.Context, res *domain.Result, deliver DeliverFunc, sources SourcesFunc, emitSources bool) error {
	if deliver != nil {
		if err := deliver(ctx, res.FinalText); err != nil {
			return fmt.Errorf("delivering answer: %w", err)
		}
	}
	if !emitSources || sources == nil || len(res.Citations) == 0 {
		return nil
	}
	formatted := FormatSources(res.Citations)
	if len(formatted) == 0 {
		return nil
	}
	if err := sources(ctx, formatted); err != nil {
		return fmt.Errorf("emitting sources: %w", err)
	}
	return nil
}
