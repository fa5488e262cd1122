package probe

import (
	"fmt"
	"math/rand"
	"time"

	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/internal/domain/model"
)

var (
	probeSports = []string{"running", "sprinting", "basketball", "soccer", "tennis", "golf", "swimming", "boxing"}
	probeLevels = []string{"beginner", "intermediate", "advanced", "elite"}
)

// tier is a performer band generated scores are drawn from. Average
// performers are listed twice so they dominate.
type tier struct{ lo, hi int }

var tiers = []tier{
	{lo: 45, hi: 65},
	{lo: 60, hi: 80},
	{lo: 60, hi: 80},
	{lo: 75, hi: 92},
	{lo: 88, hi: 100},
}

// generator produces profile and analysis payloads. It is not safe for
// concurrent use; runs build everything up front.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed int64) *generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // load test payloads
}

func (g *generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *generator) profiles(n int) []service.ProfileRequest {
	out := make([]service.ProfileRequest, n)
	for i := range out {
		age := g.between(14, 45)
		height := float64(g.between(150, 205))
		weight := float64(g.between(45, 110))
		sport := probeSports[g.rng.Intn(len(probeSports))]
		level := probeLevels[g.rng.Intn(len(probeLevels))]
		out[i] = service.ProfileRequest{
			Name:   fmt.Sprintf("Probe Athlete %03d", i+1),
			Age:    &age,
			Height: &height,
			Weight: &weight,
			Sport:  &sport,
			Level:  &level,
		}
	}
	return out
}

// analyses spreads n requests round-robin over athleteIDs. Every third
// request carries explicit scores, every third carries frames and the rest
// leave estimation to the server.
func (g *generator) analyses(n int, athleteIDs []string) []service.AnalyzeRequest {
	out := make([]service.AnalyzeRequest, n)
	for i := range out {
		req := service.AnalyzeRequest{Sport: probeSports[g.rng.Intn(len(probeSports))]}
		if len(athleteIDs) > 0 {
			req.AthleteID = athleteIDs[i%len(athleteIDs)]
		}
		switch i % 3 {
		case 0:
			t := tiers[g.rng.Intn(len(tiers))]
			req.Scores = &model.RawScores{
				Form:        g.between(t.lo, t.hi),
				Power:       g.between(t.lo, t.hi),
				Consistency: g.between(t.lo, t.hi),
				Balance:     g.between(t.lo, t.hi),
				Timing:      g.between(t.lo, t.hi),
			}
			req.Metrics = &model.Metrics{
				KneeAngle:  g.between(80, 170),
				HipAngle:   g.between(120, 175),
				ArmAngle:   g.between(60, 150),
				SpeedIndex: model.NewSpeedIndex(float64(g.between(40, 100)) / 10),
				Balance:    g.between(t.lo, t.hi),
			}
		case 1:
			req.Frames = g.frames(g.between(10, 40))
		default:
			req.FrameCount = g.between(30, 300)
		}
		out[i] = req
	}
	return out
}

func (g *generator) frames(n int) []model.Frame {
	out := make([]model.Frame, n)
	for i := range out {
		out[i] = model.Frame{
			TimestampMS: int64(i) * 33,
			KneeAngle:   float64(g.between(85, 165)),
			HipAngle:    float64(g.between(110, 175)),
			ArmAngle:    float64(g.between(60, 160)),
			Velocity:    float64(g.between(20, 95)) / 10,
			Sway:        float64(g.between(-30, 30)) / 100,
		}
	}
	return out
}
