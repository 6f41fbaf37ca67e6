package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/encore/internal/showdrive"
)

// Default configuration constants.
const (
	defaultSessionID    = 1
	defaultJudges       = "1,2,3"
	defaultPerformDelay = 500 * time.Millisecond
	defaultScoreDelay   = 200 * time.Millisecond
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the coordinator")
		sessionID    = flag.Int("session", defaultSessionID, "Session id to start and drive")
		judges       = flag.String("judges", defaultJudges, "Comma-separated judge ids to connect")
		performDelay = flag.Duration("perform-delay", defaultPerformDelay, "Simulated performance length")
		scoreDelay   = flag.Duration("score-delay", defaultScoreDelay, "Simulated judge deliberation time")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		runTimeout   = flag.Duration("run-timeout", defaultRunTimeout, "Overall deadline for the show")
		logFile      = flag.String("log", "", "Log file for driver output (default: show_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		showdrive.ShowHelp()
		return
	}

	judgeIDs, err := parseJudgeIDs(*judges)
	if err != nil {
		os.Stderr.WriteString("Invalid -judges value: " + err.Error() + "\n")
		return
	}

	// Setup logging
	if err := showdrive.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *runTimeout)
	defer cancel()

	// Create driver configuration
	config := &showdrive.Config{
		BaseURL:      *baseURL,
		SessionID:    *sessionID,
		JudgeIDs:     judgeIDs,
		PerformDelay: *performDelay,
		ScoreDelay:   *scoreDelay,
		Timeout:      *timeout,
		RunTimeout:   *runTimeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the show
	if err := showdrive.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Show failed: " + err.Error() + "\n")
		return
	}
}

func parseJudgeIDs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
