// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Score bounds shared by every dimension and by the overall score.
const (
	MinScore = 0
	MaxScore = 100
)

// Dimension names one of the five scoring categories.
type Dimension string

const (
	Form        Dimension = "form"
	Power       Dimension = "power"
	Consistency Dimension = "consistency"
	Balance     Dimension = "balance"
	Timing      Dimension = "timing"
)

// Dimensions lists every scoring dimension in canonical order.
var Dimensions = []Dimension{Form, Power, Consistency, Balance, Timing}

// Valid reports whether d is one of Dimensions.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// DefaultWeight applies to a dimension absent from a weight vector.
const DefaultWeight = 0.2

// Weights maps each dimension to its share of the overall score.
type Weights map[Dimension]float64

// Of returns the weight of d, falling back to DefaultWeight when unset.
func (w Weights) Of(d Dimension) float64 {
	if v, ok := w[d]; ok {
		return v
	}
	return DefaultWeight
}

// Sum adds the effective weight of every dimension.
func (w Weights) Sum() float64 {
	var total float64
	for _, d := range Dimensions {
		total += w.Of(d)
	}
	return total
}

// RawScores holds one 0-100 score per dimension.
type RawScores struct {
	Form        int `json:"form"`
	Power       int `json:"power"`
	Consistency int `json:"consistency"`
	Balance     int `json:"balance"`
	Timing      int `json:"timing"`
}

// Get returns the score for d. Unknown dimensions score zero.
func (s RawScores) Get(d Dimension) int {
	switch d {
	case Form:
		return s.Form
	case Power:
		return s.Power
	case Consistency:
		return s.Consistency
	case Balance:
		return s.Balance
	case Timing:
		return s.Timing
	}
	return 0
}

// Validate rejects any dimension outside [0,100].
func (s RawScores) Validate() error {
	for _, d := range Dimensions {
		if v := s.Get(d); v < MinScore || v > MaxScore {
			return fmt.Errorf("score %s=%d outside [%d,%d]", d, v, MinScore, MaxScore)
		}
	}
	return nil
}

// SpeedIndex is a decimal rendered with one fractional digit. On the wire it
// is a string, e.g. "7.4".
type SpeedIndex float64

// NewSpeedIndex rounds v to one decimal place.
func NewSpeedIndex(v float64) SpeedIndex {
	return SpeedIndex(math.Round(v*10) / 10)
}

func (s SpeedIndex) String() string {
	return strconv.FormatFloat(float64(s), 'f', 1, 64)
}

// MarshalJSON encodes the index as a one-decimal string.
func (s SpeedIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both "7.4" and 7.4.
func (s *SpeedIndex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid speed index %q: %w", raw, err)
	}
	*s = NewSpeedIndex(v)
	return nil
}

// Metrics are auxiliary measurements consumed by insight rules. They do not
// contribute to the overall score.
type Metrics struct {
	KneeAngle  int        `json:"kneeAngle"` // degrees
	HipAngle   int        `json:"hipAngle"`  // degrees
	ArmAngle   int        `json:"armAngle"`  // degrees
	SpeedIndex SpeedIndex `json:"speedIndex"`
	Balance    int        `json:"balance"` // 0-100
}

// Validate rejects angles outside [0,360], a negative speed index and a
// balance outside [0,100].
func (m Metrics) Validate() error {
	for name, v := range map[string]int{"kneeAngle": m.KneeAngle, "hipAngle": m.HipAngle, "armAngle": m.ArmAngle} {
		if v < 0 || v > 360 {
			return fmt.Errorf("metric %s=%d outside [0,360]", name, v)
		}
	}
	if m.SpeedIndex < 0 {
		return fmt.Errorf("metric speedIndex=%s is negative", m.SpeedIndex)
	}
	if m.Balance < MinScore || m.Balance > MaxScore {
		return fmt.Errorf("metric balance=%d outside [%d,%d]", m.Balance, MinScore, MaxScore)
	}
	return nil
}

// Frame is one per-frame measurement produced by a pose pipeline.
type Frame struct {
	TimestampMS int64   `json:"ts"`
	KneeAngle   float64 `json:"kneeAngle"`
	HipAngle    float64 `json:"hipAngle"`
	ArmAngle    float64 `json:"armAngle"`
	Velocity    float64 `json:"velocity"` // m/s of the tracked centre of mass
	Sway        float64 `json:"sway"`     // lateral offset, 0 = centred, 1 = base edge
}

// Validate rejects samples no pose pipeline can produce: non-finite values,
// angles outside [0,360], a negative velocity or sway beyond the base edge.
func (f Frame) Validate() error {
	for _, a := range []struct {
		name string
		v    float64
	}{{"kneeAngle", f.KneeAngle}, {"hipAngle", f.HipAngle}, {"armAngle", f.ArmAngle}} {
		if math.IsNaN(a.v) || a.v < 0 || a.v > 360 {
			return fmt.Errorf("frame %s=%g outside [0,360]", a.name, a.v)
		}
	}
	if math.IsNaN(f.Velocity) || math.IsInf(f.Velocity, 0) || f.Velocity < 0 {
		return fmt.Errorf("frame velocity=%g must be a non-negative number", f.Velocity)
	}
	if math.IsNaN(f.Sway) || math.Abs(f.Sway) > 1 {
		return fmt.Errorf("frame sway=%g outside [-1,1]", f.Sway)
	}
	return nil
}

// AnalysisResult is the immutable outcome of one analysis request.
type AnalysisResult struct {
	SportKey   string    `json:"sportKey"`
	Sport      string    `json:"sport"`
	Overall    int       `json:"overall"`
	Scores     RawScores `json:"scores"`
	Metrics    Metrics   `json:"metrics"`
	Insights   []string  `json:"insights"`
	FrameCount int       `json:"frameCount"`
}
