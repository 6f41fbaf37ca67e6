package showdrive

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/session"
)

// verifySequence checks the scoreboard recording against the expected
// show shape: each competition announces itself, then every competitor
// performs and collects one score update per responding judge.
func verifySequence(recording []StreamEvent, state *driverState, judgeIDs []int) error {
	log.Println("🔍 Verifying broadcast sequence...")

	if len(recording) == 0 {
		return fmt.Errorf("no events recorded")
	}

	var (
		competitions int
		performances int
		scoringRuns  int
		scoreUpdates int
		current      *model.Competition
	)

	for i, ev := range recording {
		switch ev.Name {
		case session.EventClientStatus:
			// Roster churn shows up interleaved; not part of the shape.
		case session.EventCompetitionStart:
			var payload session.CompetitionStart
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				return fmt.Errorf("event %d: bad competition_start payload: %w", i, err)
			}
			current = &payload.Competition
			competitions++
		case session.EventPerformanceStart:
			if current == nil {
				return fmt.Errorf("event %d: performance_start before any competition_start", i)
			}
			performances++
		case session.EventEnableScoring:
			if performances == 0 {
				return fmt.Errorf("event %d: enable_scoring before any performance", i)
			}
			scoringRuns++
		case session.EventScoreUpdate:
			if scoringRuns == 0 {
				return fmt.Errorf("event %d: score_update outside a scoring phase", i)
			}
			var payload session.ScoreUpdate
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				return fmt.Errorf("event %d: bad score_update payload: %w", i, err)
			}
			if !containsJudge(judgeIDs, payload.JudgeID) {
				return fmt.Errorf("event %d: score_update from unknown judge %d", i, payload.JudgeID)
			}
			scoreUpdates++
		}
	}

	// Every announced competitor should have performed and been scored once.
	expectedPerformances := 0
	state.mu.Lock()
	for _, comp := range state.competitions {
		expectedPerformances += len(comp.Competitors)
	}
	state.mu.Unlock()

	if competitions == 0 {
		return fmt.Errorf("no competition_start observed")
	}
	if performances != expectedPerformances {
		return fmt.Errorf("expected %d performances, observed %d", expectedPerformances, performances)
	}
	if scoringRuns != expectedPerformances {
		return fmt.Errorf("expected %d scoring phases, observed %d", expectedPerformances, scoringRuns)
	}
	if scoreUpdates == 0 {
		return fmt.Errorf("no score updates observed")
	}

	log.Printf(`✅ Sequence verified:
   Competitions: %d
   Performances: %d
   Score updates: %d
`, competitions, performances, scoreUpdates)
	return nil
}

func containsJudge(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
