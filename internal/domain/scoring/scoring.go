// Package scoring computes the weighted overall score from per-dimension raw
// scores and produces those raw scores from whatever evidence a request
// carries.
package scoring

import (
	"context"
	"errors"
	"math"

	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/sport"
)

// Outcome is the scored form of one request.
type Outcome struct {
	Pattern sport.Pattern
	Overall int
	Scores  model.RawScores
}

// Engine resolves sport weights and aggregates raw scores.
type Engine struct {
	registry  *sport.Registry
	estimator Estimator
	fallback  Estimator
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithEstimator sets the estimator used for per-frame evidence.
func WithEstimator(e Estimator) Option {
	return func(en *Engine) {
		if e != nil {
			en.estimator = e
		}
	}
}

// WithFallback sets the estimator used when the primary one has nothing to
// work with.
func WithFallback(e Estimator) Option {
	return func(en *Engine) {
		if e != nil {
			en.fallback = e
		}
	}
}

// NewEngine creates an engine backed by registry. Without options it uses
// the frame estimator and falls back to placeholder generation.
func NewEngine(registry *sport.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = sport.NewRegistry()
	}
	e := &Engine{
		registry:  registry,
		estimator: NewFrameEstimator(),
		fallback:  NewPlaceholder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the pattern table the engine scores against.
func (e *Engine) Registry() *sport.Registry { return e.registry }

// Score resolves sportKey (unknown keys map to the default sport) and
// computes the overall score.
func (e *Engine) Score(sportKey string, scores model.RawScores) Outcome {
	p := e.registry.Lookup(sportKey)
	return Outcome{
		Pattern: p,
		Overall: Overall(scores, p.Weights),
		Scores:  scores,
	}
}

// Measure derives raw scores and metrics from frames. When the primary
// estimator reports ErrNoEvidence the fallback is used instead.
func (e *Engine) Measure(ctx context.Context, frames []model.Frame) (Estimate, error) {
	est, err := e.estimator.Estimate(ctx, frames)
	if err == nil {
		return est, nil
	}
	if !errors.Is(err, ErrNoEvidence) || e.fallback == nil {
		return Estimate{}, err
	}
	return e.fallback.Estimate(ctx, frames)
}

// Overall is round(Σ score[d]*weight[d]) clamped to [0,100]. Dimensions
// without a weight use model.DefaultWeight.
func Overall(scores model.RawScores, weights model.Weights) int {
	var sum float64
	for _, d := range model.Dimensions {
		sum += float64(scores.Get(d)) * weights.Of(d)
	}
	return clampScore(math.Round(sum))
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return model.MinScore
	}
	return int(math.Max(model.MinScore, math.Min(model.MaxScore, v)))
}
