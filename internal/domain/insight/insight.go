// Package insight turns scores and metrics into short coaching cues using an
// ordered table of threshold rules.
package insight

import (
	"fmt"

	"github.com/okian/formcoach/internal/domain/model"
)

// MaxInsights caps the number of cues returned for one analysis.
const MaxInsights = 5

// Rule thresholds. Comparisons are strict where the rule table says so.
const (
	WeakScore       = 65  // dimension < WeakScore triggers a corrective cue
	StrongScore     = 80  // dimension >= StrongScore triggers praise
	KneeTooBent     = 80  // knee angle < KneeTooBent degrees
	KneeTooStraight = 160 // knee angle > KneeTooStraight degrees
)

// Input is everything a rule may look at.
type Input struct {
	Scores  model.RawScores
	Metrics model.Metrics
	Sport   string
}

// Rule appends a message when its condition holds.
type Rule struct {
	Name    string
	When    func(Input) bool
	Message func(Input) string
}

func fixed(msg string) func(Input) string {
	return func(Input) string { return msg }
}

// DefaultRules is the shipped rule table, in evaluation order. The order
// decides which cues survive truncation when more than MaxInsights fire.
var DefaultRules = []Rule{
	{
		Name:    "form_alignment",
		When:    func(in Input) bool { return in.Scores.Form < WeakScore },
		Message: fixed("Focus on joint alignment: keep knees tracking over your toes and hips level through each repetition."),
	},
	{
		Name:    "power_development",
		When:    func(in Input) bool { return in.Scores.Power < WeakScore },
		Message: fixed("Build explosive power with plyometric jumps and progressive resistance training."),
	},
	{
		Name:    "consistency_drilling",
		When:    func(in Input) bool { return in.Scores.Consistency < WeakScore },
		Message: fixed("Drill the movement in short, repeated sets to groove a more consistent pattern."),
	},
	{
		Name:    "balance_stability",
		When:    func(in Input) bool { return in.Scores.Balance < WeakScore },
		Message: fixed("Add single-leg stability work such as single-leg deadlifts and balance-board holds."),
	},
	{
		Name:    "timing_phases",
		When:    func(in Input) bool { return in.Scores.Timing < WeakScore },
		Message: fixed("Rehearse each phase of the movement in slow motion to sharpen your timing and sequencing."),
	},
	{
		Name: "knee_excessive_bend",
		When: func(in Input) bool { return in.Metrics.KneeAngle < KneeTooBent },
		Message: func(in Input) string {
			return fmt.Sprintf("Knee angle of %d° shows excessive knee bend; this can overload the joint, so stay a little taller.", in.Metrics.KneeAngle)
		},
	},
	{
		Name: "knee_insufficient_flexion",
		When: func(in Input) bool { return in.Metrics.KneeAngle > KneeTooStraight },
		Message: func(in Input) string {
			return fmt.Sprintf("Knee angle of %d° is nearly locked; add more knee flexion to absorb force and protect the joint.", in.Metrics.KneeAngle)
		},
	},
	{
		Name: "form_excellent",
		When: func(in Input) bool { return in.Scores.Form >= StrongScore },
		Message: func(in Input) string {
			return fmt.Sprintf("Excellent %s form! Your technique is a real strength.", in.Sport)
		},
	},
	{
		Name:    "consistency_excellent",
		When:    func(in Input) bool { return in.Scores.Consistency >= StrongScore },
		Message: fixed("Great repeatability: your movement pattern stays consistent from rep to rep."),
	},
}

// Generator evaluates a rule table.
type Generator struct {
	rules []Rule
	limit int
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRules replaces the rule table.
func WithRules(rules []Rule) Option {
	return func(g *Generator) {
		g.rules = rules
	}
}

// WithLimit changes the cap on returned cues. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.limit = n
		}
	}
}

// NewGenerator creates a generator over DefaultRules.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rules: DefaultRules, limit: MaxInsights}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate evaluates every rule in order and keeps the first messages up to
// the limit. No matches yields an empty, non-nil slice.
func (g *Generator) Generate(scores model.RawScores, metrics model.Metrics, sport string) []string {
	in := Input{Scores: scores, Metrics: metrics, Sport: sport}
	out := make([]string, 0, g.limit)
	for _, r := range g.rules {
		if r.When(in) {
			out = append(out, r.Message(in))
		}
	}
	if len(out) > g.limit {
		out = out[:g.limit]
	}
	return out
}

// Fired returns the names of every rule whose condition holds, before
// truncation. Useful for diagnostics and metrics.
func (g *Generator) Fired(scores model.RawScores, metrics model.Metrics, sport string) []string {
	in := Input{Scores: scores, Metrics: metrics, Sport: sport}
	var names []string
	for _, r := range g.rules {
		if r.When(in) {
			names = append(names, r.Name)
		}
	}
	return names
}
