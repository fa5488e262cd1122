package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/formcoach/internal/domain/model"
)

// ErrNoEvidence means an estimator had no input to derive scores from.
var ErrNoEvidence = errors.New("no evidence to estimate from")

// Estimator source names, reported on results and metrics.
const (
	SourcePlaceholder = "placeholder"
	SourceFrames      = "frames"
	SourceSupplied    = "supplied"
)

// Estimate is what an estimator derives from one request.
type Estimate struct {
	Scores  model.RawScores
	Metrics model.Metrics
	Source  string
}

// Estimator produces raw scores and metrics. A pose-model backed
// implementation plugs in here without changing any caller.
type Estimator interface {
	Estimate(ctx context.Context, frames []model.Frame) (Estimate, error)
}

// band is a closed integer range [base, base+spread].
type band struct {
	base   int
	spread int
}

func (b band) draw(rng *rand.Rand) int { return b.base + rng.Intn(b.spread+1) }

// Placeholder ranges. Sport independent.
var placeholderScores = map[model.Dimension]band{
	model.Form:        {base: 60, spread: 35},
	model.Power:       {base: 55, spread: 40},
	model.Consistency: {base: 58, spread: 35},
	model.Balance:     {base: 62, spread: 32},
	model.Timing:      {base: 57, spread: 38},
}

var (
	placeholderKnee        = band{base: 70, spread: 100}
	placeholderHip         = band{base: 80, spread: 90}
	placeholderArm         = band{base: 60, spread: 120}
	placeholderBalance     = band{base: 60, spread: 40}
	placeholderSpeedTenths = band{base: 40, spread: 60} // speed index 4.0 .. 10.0
)

// Placeholder generates bounded pseudo-random scores. It stands in for a
// real pose model and ignores its input.
type Placeholder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// PlaceholderOption configures a Placeholder.
type PlaceholderOption func(*Placeholder)

// WithSeed makes placeholder output reproducible. Zero keeps time seeding.
func WithSeed(seed int64) PlaceholderOption {
	return func(p *Placeholder) {
		if seed != 0 {
			p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // demo values, not security sensitive
		}
	}
}

// NewPlaceholder creates a placeholder estimator.
func NewPlaceholder(opts ...PlaceholderOption) *Placeholder {
	p := &Placeholder{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // demo values, not security sensitive
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Estimate draws one value per dimension and metric from the fixed ranges.
func (p *Placeholder) Estimate(ctx context.Context, _ []model.Frame) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, fmt.Errorf("context cancelled: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	return Estimate{
		Scores: model.RawScores{
			Form:        placeholderScores[model.Form].draw(p.rng),
			Power:       placeholderScores[model.Power].draw(p.rng),
			Consistency: placeholderScores[model.Consistency].draw(p.rng),
			Balance:     placeholderScores[model.Balance].draw(p.rng),
			Timing:      placeholderScores[model.Timing].draw(p.rng),
		},
		Metrics: model.Metrics{
			KneeAngle:  placeholderKnee.draw(p.rng),
			HipAngle:   placeholderHip.draw(p.rng),
			ArmAngle:   placeholderArm.draw(p.rng),
			SpeedIndex: model.NewSpeedIndex(float64(placeholderSpeedTenths.draw(p.rng)) / 10),
			Balance:    placeholderBalance.draw(p.rng),
		},
		Source: SourcePlaceholder,
	}, nil
}

// Reference values for the frame estimator.
const (
	referenceVelocity = 10.0 // m/s mapped to a power score of 100
	consistencyScale  = 200.0
	timingScale       = 100.0
	neutralTiming     = 70
	maxSpeedIndex     = 99.9
)

// angleRange is the neutral working range of a joint, in degrees.
type angleRange struct{ lo, hi float64 }

func (r angleRange) deviation(v float64) float64 {
	switch {
	case v < r.lo:
		return r.lo - v
	case v > r.hi:
		return v - r.hi
	}
	return 0
}

// FrameEstimator derives scores deterministically from per-frame samples.
type FrameEstimator struct {
	knee angleRange
	hip  angleRange
	arm  angleRange
}

// NewFrameEstimator creates a frame estimator with neutral joint ranges.
func NewFrameEstimator() *FrameEstimator {
	return &FrameEstimator{
		knee: angleRange{lo: 90, hi: 160},
		hip:  angleRange{lo: 100, hi: 175},
		arm:  angleRange{lo: 60, hi: 170},
	}
}

// Estimate returns ErrNoEvidence for an empty frame slice.
func (f *FrameEstimator) Estimate(ctx context.Context, frames []model.Frame) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, fmt.Errorf("context cancelled: %w", err)
	}
	if len(frames) == 0 {
		return Estimate{}, ErrNoEvidence
	}

	n := float64(len(frames))
	var knee, hip, arm, vel, sway, penalty, peak float64
	kneeSeries := make([]float64, len(frames))
	velSeries := make([]float64, len(frames))
	for i, fr := range frames {
		knee += fr.KneeAngle
		hip += fr.HipAngle
		arm += fr.ArmAngle
		vel += fr.Velocity
		sway += math.Abs(fr.Sway)
		penalty += f.knee.deviation(fr.KneeAngle) + f.hip.deviation(fr.HipAngle) + f.arm.deviation(fr.ArmAngle)
		peak = math.Max(peak, fr.Velocity)
		kneeSeries[i] = fr.KneeAngle
		velSeries[i] = fr.Velocity
	}

	balance := clampScore(math.Round(100 * (1 - sway/n)))
	metrics := model.Metrics{
		KneeAngle:  int(math.Round(knee / n)),
		HipAngle:   int(math.Round(hip / n)),
		ArmAngle:   int(math.Round(arm / n)),
		SpeedIndex: model.NewSpeedIndex(math.Max(0, math.Min(maxSpeedIndex, vel/n))),
		Balance:    balance,
	}
	scores := model.RawScores{
		Form:        clampScore(math.Round(100 - penalty/n)),
		Power:       clampScore(math.Round(peak / referenceVelocity * 100)),
		Consistency: clampScore(math.Round(100 - variation(kneeSeries)*consistencyScale)),
		Balance:     balance,
		Timing:      timingScore(velSeries),
	}
	return Estimate{Scores: scores, Metrics: metrics, Source: SourceFrames}, nil
}

// variation is the coefficient of variation (stddev/mean) of xs.
func variation(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss/float64(len(xs))) / math.Abs(mean)
}

// timingScore rates how evenly spaced the velocity peaks are. Fewer than
// three peaks carry no rhythm information and score neutral.
func timingScore(vel []float64) int {
	var peaks []int
	for i := 1; i < len(vel)-1; i++ {
		if vel[i] > vel[i-1] && vel[i] >= vel[i+1] {
			peaks = append(peaks, i)
		}
	}
	if len(peaks) < 3 {
		return neutralTiming
	}
	gaps := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		gaps[i-1] = float64(peaks[i] - peaks[i-1])
	}
	return clampScore(math.Round(100 - variation(gaps)*timingScale))
}
