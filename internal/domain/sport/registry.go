// Package sport holds the read-only table of sport patterns: the display
// name and dimension weights used to score each supported sport.
package sport

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/formcoach/internal/domain/model"
)

// DefaultKey is the pattern served for unknown sport identifiers.
const DefaultKey = "running"

// WeightSumTolerance bounds how far a weight vector may drift from 1.0.
const WeightSumTolerance = 1e-6

// Pattern is the weight vector and display name of one sport.
type Pattern struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"displayName"`
	Weights     model.Weights `json:"weights"`
}

func (p Pattern) clone() Pattern {
	w := make(model.Weights, len(p.Weights))
	for d, v := range p.Weights {
		w[d] = v
	}
	p.Weights = w
	return p
}

func weights(form, power, consistency, balance, timing float64) model.Weights {
	return model.Weights{
		model.Form:        form,
		model.Power:       power,
		model.Consistency: consistency,
		model.Balance:     balance,
		model.Timing:      timing,
	}
}

// builtin is the shipped table. Adding a sport is a data change only.
var builtin = []Pattern{
	{Key: "running", DisplayName: "Distance Running", Weights: weights(0.25, 0.15, 0.25, 0.15, 0.20)},
	{Key: "sprinting", DisplayName: "Sprinting", Weights: weights(0.20, 0.35, 0.10, 0.10, 0.25)},
	{Key: "basketball", DisplayName: "Basketball", Weights: weights(0.25, 0.20, 0.15, 0.20, 0.20)},
	{Key: "soccer", DisplayName: "Soccer", Weights: weights(0.20, 0.20, 0.15, 0.25, 0.20)},
	{Key: "tennis", DisplayName: "Tennis", Weights: weights(0.25, 0.20, 0.15, 0.15, 0.25)},
	{Key: "golf", DisplayName: "Golf", Weights: weights(0.30, 0.15, 0.25, 0.15, 0.15)},
	{Key: "baseball", DisplayName: "Baseball", Weights: weights(0.25, 0.25, 0.15, 0.10, 0.25)},
	{Key: "swimming", DisplayName: "Swimming", Weights: weights(0.30, 0.20, 0.25, 0.05, 0.20)},
	{Key: "cycling", DisplayName: "Cycling", Weights: weights(0.20, 0.30, 0.30, 0.10, 0.10)},
	{Key: "weightlifting", DisplayName: "Weightlifting", Weights: weights(0.35, 0.30, 0.15, 0.15, 0.05)},
	{Key: "volleyball", DisplayName: "Volleyball", Weights: weights(0.20, 0.25, 0.15, 0.15, 0.25)},
	{Key: "boxing", DisplayName: "Boxing", Weights: weights(0.20, 0.25, 0.10, 0.20, 0.25)},
}

// Registry resolves sport keys to patterns. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	patterns   map[string]Pattern
	defaultKey string
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithPatterns adds patterns, replacing built-ins that share a key.
func WithPatterns(patterns ...Pattern) Option {
	return func(r *Registry) {
		for _, p := range patterns {
			key := normalize(p.Key)
			if key == "" {
				continue
			}
			p.Key = key
			if p.DisplayName == "" {
				p.DisplayName = p.Key
			}
			r.patterns[key] = p.clone()
		}
	}
}

// WithDefaultKey changes the fallback pattern. Keys missing from the table
// are ignored.
func WithDefaultKey(key string) Option {
	return func(r *Registry) {
		if _, ok := r.patterns[normalize(key)]; ok {
			r.defaultKey = normalize(key)
		}
	}
}

// NewRegistry builds a registry seeded with the built-in table.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		patterns:   make(map[string]Pattern, len(builtin)),
		defaultKey: DefaultKey,
	}
	for _, p := range builtin {
		r.patterns[p.Key] = p.clone()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Lookup returns the pattern for key, or the default pattern when key is
// unknown. It never fails.
func (r *Registry) Lookup(key string) Pattern {
	if p, ok := r.patterns[normalize(key)]; ok {
		return p.clone()
	}
	return r.patterns[r.defaultKey].clone()
}

// Has reports whether key names a registered sport.
func (r *Registry) Has(key string) bool {
	_, ok := r.patterns[normalize(key)]
	return ok
}

// DefaultKey returns the key served for unknown sports.
func (r *Registry) DefaultKey() string { return r.defaultKey }

// Len returns the number of registered sports.
func (r *Registry) Len() int { return len(r.patterns) }

// All returns every pattern ordered by key.
func (r *Registry) All() []Pattern {
	out := make([]Pattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Validate reports every pattern whose weights are negative or do not sum
// to 1.0. An empty result means the table is clean.
func (r *Registry) Validate() []error {
	var problems []error
	for _, p := range r.All() {
		for _, d := range model.Dimensions {
			if w := p.Weights.Of(d); w < 0 {
				problems = append(problems, fmt.Errorf("sport %q: negative %s weight %.3f", p.Key, d, w))
			}
		}
		if sum := p.Weights.Sum(); math.Abs(sum-1) > WeightSumTolerance {
			problems = append(problems, fmt.Errorf("sport %q: weights sum to %.4f, want 1.0", p.Key, sum))
		}
	}
	return problems
}
