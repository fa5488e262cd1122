// Package probe drives a running formcoach server end to end: it creates
// athletes, submits paced analyses from concurrent workers and checks that
// session listings come back newest first and bounded.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Athletes int           // Number of athlete profiles to create
	Analyses int           // Number of analyses to submit
	Workers  int           // Number of concurrent workers
	RPS      float64       // Request pacing across all workers; <= 0 disables it
	Limit    int           // Listing limit used during verification
	Timeout  time.Duration // HTTP request timeout
	Seed     int64         // Seed for generated payloads; 0 uses the clock
	Verbose  bool          // Log every failed request
}

// Stats holds probe statistics.
type Stats struct {
	ProfilesCreated   int
	ProfilesFailed    int
	AnalysesSubmitted int
	AnalysesStored    int
	AnalysesUnstored  int
	AnalysesFailed    int
	RateLimited       int
	ListingsVerified  int
	ListingProblems   []string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
