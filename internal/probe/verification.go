package probe

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/formcoach/internal/domain/model"
)

// PercentageMultiplier converts a ratio into a percentage.
const PercentageMultiplier = 100

// verifyListing returns every way sessions breaks the listing contract:
// bounded by limit, exactly want entries, all for athleteID, newest first.
func verifyListing(sessions []model.Session, athleteID string, limit, want int) []string {
	var problems []string
	if len(sessions) > limit {
		problems = append(problems, fmt.Sprintf("got %d sessions, limit is %d", len(sessions), limit))
	}
	if len(sessions) != want {
		problems = append(problems, fmt.Sprintf("got %d sessions, want %d", len(sessions), want))
	}
	for i, s := range sessions {
		if s.AthleteID != athleteID {
			problems = append(problems, fmt.Sprintf("session %s belongs to %q", s.ID, s.AthleteID))
		}
		if s.Overall < model.MinScore || s.Overall > model.MaxScore {
			problems = append(problems, fmt.Sprintf("session %s has overall %d", s.ID, s.Overall))
		}
		if i > 0 && s.CreatedAt.After(sessions[i-1].CreatedAt) {
			problems = append(problems, fmt.Sprintf("session %s is newer than its predecessor", s.ID))
		}
	}
	return problems
}

// renderSummary prints the final probe statistics.
func renderSummary(w io.Writer, stats *Stats) {
	var successRate, perSecond float64
	if stats.AnalysesSubmitted > 0 {
		successRate = float64(stats.AnalysesStored+stats.AnalysesUnstored) / float64(stats.AnalysesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.AnalysesSubmitted) / stats.Duration.Seconds()
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("formcoach probe")
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"profiles created", stats.ProfilesCreated},
		{"profiles failed", stats.ProfilesFailed},
		{"analyses submitted", stats.AnalysesSubmitted},
		{"analyses stored", stats.AnalysesStored},
		{"analyses not stored", stats.AnalysesUnstored},
		{"analyses rate limited", stats.RateLimited},
		{"analyses failed", stats.AnalysesFailed},
		{"listings verified", stats.ListingsVerified},
		{"listing problems", len(stats.ListingProblems)},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"success rate", fmt.Sprintf("%.1f%%", successRate)},
		{"analyses/sec", fmt.Sprintf("%.1f", perSecond)},
		{"duration", stats.Duration.Round(time.Millisecond).String()},
	})
	tbl.Render()
}
