package showdrive

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/session"
	"github.com/okian/encore/pkg/logger"
)

// Quiescence window: the show is considered over when the scoreboard
// stream has been silent this long after the last frame.
const idleWindow = 5 * time.Second

// driverState is the shared view of announced competitions. Judge and
// director actors read it to answer prompts.
type driverState struct {
	mu           sync.Mutex
	competitions map[int]model.Competition
}

func (s *driverState) record(c model.Competition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions[c.ID] = c
}

func (s *driverState) competition(id int) (model.Competition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitions[id]
	return c, ok
}

// Run executes the complete show against a running coordinator.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting show driver",
		logger.String("baseURL", config.BaseURL),
		logger.Int("session", config.SessionID),
		logger.Any("judges", config.JudgeIDs),
		logger.String("performDelay", config.PerformDelay.String()),
		logger.String("scoreDelay", config.ScoreDelay.String()))

	runCtx, cancel := context.WithTimeout(ctx, config.RunTimeout)
	defer cancel()

	client := newHTTPClient(config.Timeout)

	// Step 1: Check coordinator health
	if err := checkHealth(runCtx, client, config); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Step 2: Connect all clients before the session starts
	state := &driverState{competitions: make(map[int]model.Competition)}

	clientIDs := []string{model.RoleDJ.ClientID(0), model.RoleScoreboard.ClientID(10)}
	for _, id := range config.JudgeIDs {
		clientIDs = append(clientIDs, model.JudgeClientID(id))
	}

	streams := make(map[string]<-chan StreamEvent, len(clientIDs))
	for _, id := range clientIDs {
		token, err := registerClient(runCtx, client, config.BaseURL, id)
		if err != nil {
			return fmt.Errorf("client setup failed: %w", err)
		}
		events, err := openStream(runCtx, client, config.BaseURL, token)
		if err != nil {
			return fmt.Errorf("client setup failed: %w", err)
		}
		streams[id] = events
		stats.ClientsConnected++
		log.Printf("🔌 Connected %s", id)
	}

	// Step 3: Start the reactive actors
	var wg sync.WaitGroup
	var performances, scores int64

	wg.Add(1)
	go func() {
		defer wg.Done()
		runDirector(runCtx, client, config, state, streams[model.RoleDJ.ClientID(0)], &performances)
	}()

	for _, judgeID := range config.JudgeIDs {
		wg.Add(1)
		go func(judgeID int) {
			defer wg.Done()
			runJudge(runCtx, client, config, state, streams[model.JudgeClientID(judgeID)], judgeID, &scores)
		}(judgeID)
	}

	// Step 4: Start the session
	if err := startSession(runCtx, client, config.BaseURL, config.SessionID); err != nil {
		return fmt.Errorf("session start failed: %w", err)
	}
	log.Printf("🎬 Session %d started", config.SessionID)

	// Step 5: Record the scoreboard stream until the show goes quiet
	recording := recordScoreboard(runCtx, streams[model.RoleScoreboard.ClientID(10)], state, stats, config.Verbose)

	cancel()
	wg.Wait()

	stats.PerformancesResolved = int(atomic.LoadInt64(&performances))
	stats.ScoresResolved = int(atomic.LoadInt64(&scores))

	// Step 6: Verify the broadcast sequence
	if err := verifySequence(recording, state, config.JudgeIDs); err != nil {
		return fmt.Errorf("sequence verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "show completed successfully")
	return nil
}

// checkHealth verifies the coordinator is running.
func checkHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking coordinator health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to coordinator: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("coordinator health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "coordinator is healthy")
	return nil
}

// runDirector answers performance prompts after the configured delay.
func runDirector(ctx context.Context, client *HTTPClient, config *Config, state *driverState, events <-chan StreamEvent, resolved *int64) {
	for ev := range events {
		switch ev.Name {
		case session.EventCompetitionStart:
			var payload session.CompetitionStart
			if err := json.Unmarshal(ev.Data, &payload); err == nil {
				state.record(payload.Competition)
			}
		case session.EventPerformanceStart, session.EventPerformanceRecovery:
			var payload session.PerformanceStart
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				log.Printf("⚠️  Director: bad %s payload: %v", ev.Name, err)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(config.PerformDelay):
			}
			tag := fmt.Sprintf("perf:%d:%d", payload.CompetitionID, payload.Position)
			if err := postResponse(ctx, client, config.BaseURL, tag, true); err != nil {
				log.Printf("⚠️  Director: %v", err)
				continue
			}
			atomic.AddInt64(resolved, 1)
			if config.Verbose {
				log.Printf("🎭 Performance done: %s", tag)
			}
		}
	}
}

// runJudge answers scoring prompts with generated scores for the judge's
// assigned criteria.
func runJudge(ctx context.Context, client *HTTPClient, config *Config, state *driverState, events <-chan StreamEvent, judgeID int, resolved *int64) {
	for ev := range events {
		switch ev.Name {
		case session.EventCompetitionStart:
			var payload session.CompetitionStart
			if err := json.Unmarshal(ev.Data, &payload); err == nil {
				state.record(payload.Competition)
			}
		case session.EventEnableScoring:
			var payload session.EnableScoring
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				log.Printf("⚠️  Judge %d: bad payload: %v", judgeID, err)
				continue
			}
			comp, ok := state.competition(payload.CompetitionID)
			if !ok || payload.Position >= len(comp.Competitors) {
				log.Printf("⚠️  Judge %d: unknown competition %d", judgeID, payload.CompetitionID)
				continue
			}
			competitor := comp.Competitors[payload.Position]
			scores := generateScores(comp.Rubric, judgeID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(config.ScoreDelay):
			}
			tag := fmt.Sprintf("score:%d:%d:%d", comp.ID, competitor.ID, judgeID)
			if err := postResponse(ctx, client, config.BaseURL, tag, scores); err != nil {
				log.Printf("⚠️  Judge %d: %v", judgeID, err)
				continue
			}
			atomic.AddInt64(resolved, 1)
			if config.Verbose {
				log.Printf("⚖️  Scored: %s", tag)
			}
		}
	}
}

// recordScoreboard drains the scoreboard stream into a recording until
// the stream closes or goes idle.
func recordScoreboard(ctx context.Context, events <-chan StreamEvent, state *driverState, stats *Stats, verbose bool) []StreamEvent {
	var recording []StreamEvent
	idle := time.NewTimer(idleWindow)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return recording
		case <-idle.C:
			log.Printf("🏁 Scoreboard quiet for %s; show over", idleWindow)
			return recording
		case ev, ok := <-events:
			if !ok {
				return recording
			}
			if ev.Name == session.EventCompetitionStart {
				var payload session.CompetitionStart
				if err := json.Unmarshal(ev.Data, &payload); err == nil {
					state.record(payload.Competition)
				}
			}
			recording = append(recording, ev)
			stats.EventsReceived++
			if ev.Name == session.EventScoreUpdate {
				stats.ScoreUpdatesSeen++
			}
			if verbose {
				log.Printf("📺 Scoreboard: %s %s", ev.Name, ev.Data)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleWindow)
		}
	}
}

// generateScores produces one score per criterion assigned to the judge.
func generateScores(rubric model.Rubric, judgeID int) model.Scores {
	var criteria []int
	for _, j := range rubric.Judges {
		if j.ID == judgeID {
			criteria = j.Criteria
			break
		}
	}
	scores := make(model.Scores, 0, len(criteria))
	for _, criterionID := range criteria {
		scores = append(scores, model.CriterionScore{
			CriterionID: criterionID,
			Score:       scoreMin + randomFloat()*scoreRange,
		})
	}
	return scores
}

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	const divisor = 1000000
	n, _ := rand.Int(rand.Reader, big.NewInt(divisor))
	return float64(n.Int64()) / float64(divisor)
}

// displayFinalStats prints the final driver statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("clientsConnected", stats.ClientsConnected),
		logger.Int("eventsReceived", stats.EventsReceived),
		logger.Int("performancesResolved", stats.PerformancesResolved),
		logger.Int("scoresResolved", stats.ScoresResolved),
		logger.Int("scoreUpdatesSeen", stats.ScoreUpdatesSeen),
		logger.String("duration", stats.Duration.String()))
}
