package insight_test

import (
	"strings"
	"testing"

	"github.com/okian/formcoach/internal/domain/insight"
	"github.com/okian/formcoach/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func scores(form, power, consistency, balance, timing int) model.RawScores {
	return model.RawScores{Form: form, Power: power, Consistency: consistency, Balance: balance, Timing: timing}
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestGenerate(t *testing.T) {
	g := insight.NewGenerator()
	neutralKnee := model.Metrics{KneeAngle: 120}

	Convey("Given mid-range scores and a neutral knee", t, func() {
		out := g.Generate(scores(70, 70, 70, 70, 70), neutralKnee, "Tennis")

		Convey("Then no rule fires and the list is empty", func() {
			So(out, ShouldNotBeNil)
			So(out, ShouldBeEmpty)
		})
	})

	Convey("Given weak form and strong everything else", t, func() {
		out := g.Generate(scores(60, 85, 85, 85, 85), neutralKnee, "Tennis")

		Convey("Then the alignment cue is present", func() {
			So(containsPrefix(out, "Focus on joint alignment"), ShouldBeTrue)
		})

		Convey("And the excellent-form praise is absent", func() {
			So(containsPrefix(out, "Excellent"), ShouldBeFalse)
			So(containsPrefix(out, "Great repeatability"), ShouldBeTrue)
			So(len(out), ShouldEqual, 2)
		})
	})

	Convey("Given a knee angle of 70 degrees", t, func() {
		out := g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 70}, "Golf")

		Convey("Then the excessive-bend warning is present", func() {
			So(len(out), ShouldEqual, 1)
			So(out[0], ShouldContainSubstring, "excessive knee bend")
			So(out[0], ShouldContainSubstring, "70°")
		})
	})

	Convey("Given a nearly straight knee", t, func() {
		out := g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 175}, "Golf")
		So(len(out), ShouldEqual, 1)
		So(out[0], ShouldContainSubstring, "more knee flexion")
	})

	Convey("Given values exactly on the thresholds", t, func() {
		Convey("Then 65 is not weak and 80 counts as strong", func() {
			out := g.Generate(scores(65, 65, 65, 65, 65), neutralKnee, "Boxing")
			So(out, ShouldBeEmpty)

			out = g.Generate(scores(80, 70, 79, 70, 70), neutralKnee, "Boxing")
			So(out, ShouldResemble, []string{"Excellent Boxing form! Your technique is a real strength."})
		})

		Convey("Then knee angles of exactly 80 and 160 are not flagged", func() {
			So(g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 80}, "Boxing"), ShouldBeEmpty)
			So(g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 160}, "Boxing"), ShouldBeEmpty)
			So(g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 79}, "Boxing"), ShouldHaveLength, 1)
			So(g.Generate(scores(70, 70, 70, 70, 70), model.Metrics{KneeAngle: 161}, "Boxing"), ShouldHaveLength, 1)
		})
	})

	Convey("Given every weak rule plus a knee warning", t, func() {
		s := scores(50, 50, 50, 50, 50)
		m := model.Metrics{KneeAngle: 70}
		out := g.Generate(s, m, "Soccer")

		Convey("Then six rules fire", func() {
			So(g.Fired(s, m, "Soccer"), ShouldResemble, []string{
				"form_alignment", "power_development", "consistency_drilling",
				"balance_stability", "timing_phases", "knee_excessive_bend",
			})
		})

		Convey("Then only the first five survive, in rule order", func() {
			So(len(out), ShouldEqual, insight.MaxInsights)
			So(out[0], ShouldStartWith, "Focus on joint alignment")
			So(out[1], ShouldStartWith, "Build explosive power")
			So(out[2], ShouldStartWith, "Drill the movement")
			So(out[3], ShouldStartWith, "Add single-leg stability")
			So(out[4], ShouldStartWith, "Rehearse each phase")
			So(containsPrefix(out, "Knee angle"), ShouldBeFalse)
		})

		Convey("When the rule order is reversed", func() {
			reversed := make([]insight.Rule, len(insight.DefaultRules))
			for i, r := range insight.DefaultRules {
				reversed[len(reversed)-1-i] = r
			}
			rg := insight.NewGenerator(insight.WithRules(reversed))
			rout := rg.Generate(s, m, "Soccer")

			Convey("Then a different subset surfaces", func() {
				So(len(rout), ShouldEqual, insight.MaxInsights)
				So(rout[0], ShouldStartWith, "Knee angle of 70°")
				So(containsPrefix(rout, "Focus on joint alignment"), ShouldBeFalse)
			})
		})
	})

	Convey("Given strong scores everywhere", t, func() {
		out := g.Generate(scores(90, 90, 90, 90, 90), neutralKnee, "Swimming")
		So(out, ShouldResemble, []string{
			"Excellent Swimming form! Your technique is a real strength.",
			"Great repeatability: your movement pattern stays consistent from rep to rep.",
		})
	})

	Convey("Given a custom limit", t, func() {
		lg := insight.NewGenerator(insight.WithLimit(2), insight.WithLimit(0))
		out := lg.Generate(scores(10, 10, 10, 10, 10), model.Metrics{KneeAngle: 10}, "Golf")
		So(len(out), ShouldEqual, 2)
	})
}
