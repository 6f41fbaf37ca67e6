package showdrive

import "time"

// Config holds configuration for the show driver
type Config struct {
	BaseURL      string        // Base URL of the coordinator
	SessionID    int           // Session to start and drive
	JudgeIDs     []int         // Judge ids to connect as judge<N> clients
	PerformDelay time.Duration // Simulated performance length
	ScoreDelay   time.Duration // Simulated judge deliberation time
	Timeout      time.Duration // HTTP request timeout
	RunTimeout   time.Duration // Overall deadline for the show
	LogFile      string        // Log file for driver output
	Verbose      bool          // Enable verbose logging
}

// Stats holds driver statistics
type Stats struct {
	ClientsConnected     int
	EventsReceived       int
	PerformancesResolved int
	ScoresResolved       int
	ScoreUpdatesSeen     int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
