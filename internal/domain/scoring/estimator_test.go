package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlaceholder(t *testing.T) {
	Convey("Given a placeholder estimator", t, func() {
		p := scoring.NewPlaceholder()
		ctx := context.Background()

		Convey("When drawing many estimates", func() {
			Convey("Then every value stays inside its documented range", func() {
				for i := 0; i < 1000; i++ {
					est, err := p.Estimate(ctx, nil)
					So(err, ShouldBeNil)
					So(est.Scores.Form, ShouldBeBetweenOrEqual, 60, 95)
					So(est.Scores.Power, ShouldBeBetweenOrEqual, 55, 95)
					So(est.Scores.Consistency, ShouldBeBetweenOrEqual, 58, 93)
					So(est.Scores.Balance, ShouldBeBetweenOrEqual, 62, 94)
					So(est.Scores.Timing, ShouldBeBetweenOrEqual, 57, 95)
					So(est.Metrics.KneeAngle, ShouldBeBetweenOrEqual, 70, 170)
					So(est.Metrics.HipAngle, ShouldBeBetweenOrEqual, 80, 170)
					So(est.Metrics.ArmAngle, ShouldBeBetweenOrEqual, 60, 180)
					So(est.Metrics.Balance, ShouldBeBetweenOrEqual, 60, 100)
					So(float64(est.Metrics.SpeedIndex), ShouldBeBetweenOrEqual, 4.0, 10.0)
				}
			})
		})

		Convey("When two placeholders share a seed", func() {
			a := scoring.NewPlaceholder(scoring.WithSeed(42))
			b := scoring.NewPlaceholder(scoring.WithSeed(42))
			ea, _ := a.Estimate(ctx, nil)
			eb, _ := b.Estimate(ctx, nil)

			Convey("Then they produce identical output", func() {
				So(ea, ShouldResemble, eb)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := p.Estimate(cctx, nil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestFrameEstimator(t *testing.T) {
	ctx := context.Background()
	f := scoring.NewFrameEstimator()

	Convey("Given no frames", t, func() {
		_, err := f.Estimate(ctx, nil)
		So(err, ShouldEqual, scoring.ErrNoEvidence)
	})

	Convey("Given steady frames inside the neutral joint ranges", t, func() {
		frames := make([]model.Frame, 20)
		for i := range frames {
			frames[i] = model.Frame{TimestampMS: int64(i * 33), KneeAngle: 120, HipAngle: 150, ArmAngle: 100, Velocity: 5}
		}
		est, err := f.Estimate(ctx, frames)

		Convey("Then the derived metrics are the per-frame means", func() {
			So(err, ShouldBeNil)
			So(est.Metrics.KneeAngle, ShouldEqual, 120)
			So(est.Metrics.HipAngle, ShouldEqual, 150)
			So(est.Metrics.ArmAngle, ShouldEqual, 100)
			So(est.Metrics.SpeedIndex.String(), ShouldEqual, "5.0")
			So(est.Metrics.Balance, ShouldEqual, 100)
		})

		Convey("Then form, consistency and balance are perfect", func() {
			So(est.Scores.Form, ShouldEqual, 100)
			So(est.Scores.Consistency, ShouldEqual, 100)
			So(est.Scores.Balance, ShouldEqual, 100)
			So(est.Scores.Power, ShouldEqual, 50)
		})

		Convey("Then timing is neutral without a rhythm to measure", func() {
			So(est.Scores.Timing, ShouldEqual, 70)
		})
	})

	Convey("Given frames with a perfectly regular velocity rhythm", t, func() {
		cycle := []float64{1, 2, 3, 4, 3, 2}
		frames := make([]model.Frame, 24)
		for i := range frames {
			frames[i] = model.Frame{KneeAngle: 120, HipAngle: 150, ArmAngle: 100, Velocity: cycle[i%len(cycle)], Sway: 0.1}
		}
		est, err := f.Estimate(ctx, frames)

		Convey("Then timing is perfect and power follows the peak", func() {
			So(err, ShouldBeNil)
			So(est.Scores.Timing, ShouldEqual, 100)
			So(est.Scores.Power, ShouldEqual, 40)
			So(est.Scores.Balance, ShouldEqual, 90)
		})
	})

	Convey("Given frames with deeply bent knees", t, func() {
		frames := []model.Frame{
			{KneeAngle: 60, HipAngle: 150, ArmAngle: 100},
			{KneeAngle: 60, HipAngle: 150, ArmAngle: 100},
		}
		est, err := f.Estimate(ctx, frames)

		Convey("Then form is penalised by the degrees outside range", func() {
			So(err, ShouldBeNil)
			So(est.Scores.Form, ShouldEqual, 70)
			So(est.Metrics.KneeAngle, ShouldEqual, 60)
		})
	})

	Convey("Given wild frames", t, func() {
		frames := []model.Frame{
			{KneeAngle: 0, HipAngle: 0, ArmAngle: 0, Velocity: 500, Sway: 3},
			{KneeAngle: 300, HipAngle: 360, ArmAngle: 360, Velocity: -4, Sway: -2},
		}
		est, err := f.Estimate(ctx, frames)

		Convey("Then every score is still clamped to [0,100]", func() {
			So(err, ShouldBeNil)
			So(est.Scores.Validate(), ShouldBeNil)
			So(est.Metrics.Balance, ShouldBeBetweenOrEqual, 0, 100)
		})
	})
}
