package model

import "time"

// Session is one persisted analysis. AthleteID is a weak reference: it is
// never checked against stored profiles.
type Session struct {
	ID         string    `json:"id"`
	AthleteID  string    `json:"athleteId,omitempty"`
	Sport      string    `json:"sport"`
	Overall    int       `json:"overall"`
	Scores     RawScores `json:"scores"`
	Metrics    Metrics   `json:"metrics"`
	Insights   []string  `json:"insights"`
	FilePath   string    `json:"filePath,omitempty"`
	FrameCount int       `json:"frameCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewSession snapshots result into a session record. ID and CreatedAt are
// assigned by the store.
func NewSession(result AnalysisResult, athleteID, filePath string) Session {
	insights := make([]string, len(result.Insights))
	copy(insights, result.Insights)
	return Session{
		AthleteID:  athleteID,
		Sport:      result.Sport,
		Overall:    result.Overall,
		Scores:     result.Scores,
		Metrics:    result.Metrics,
		Insights:   insights,
		FilePath:   filePath,
		FrameCount: result.FrameCount,
	}
}
