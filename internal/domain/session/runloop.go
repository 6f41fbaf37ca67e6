package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/pool"
	"github.com/okian/encore/internal/domain/rendezvous"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// Run executes the session: for each competition in order, register its
// judges, wait for the full roster, then walk the competitors through the
// perform/score cycle. Competitions and competitors are strictly
// sequential; only judge score waits within one competitor run
// concurrently.
//
// Teardown runs exactly once on every exit path and the original error, if
// any, is returned after cleanup.
func (s *Session) Run(ctx context.Context, competitions []model.Competition, permanentIDs []string) (err error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("session %d: %w", s.id, ErrAlreadyRunning)
	}
	if len(competitions) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("session %d: %w", s.id, ErrNoCompetitions)
	}
	s.running = true
	s.submitted = make(map[string]struct{})
	s.mu.Unlock()

	metrics.RecordSessionStarted()
	s.logger.Info(ctx, "starting session",
		logger.Int("session_id", s.id),
		logger.Int("competitions", len(competitions)),
		logger.Strings("permanent_clients", permanentIDs),
	)

	defer func() {
		s.teardown(ctx)
		if err != nil {
			metrics.RecordSessionFailed()
			s.logger.Error(ctx, "session ended with error",
				logger.Int("session_id", s.id),
				logger.Error(err),
			)
			return
		}
		metrics.RecordSessionCompleted()
		s.logger.Info(ctx, "session completed", logger.Int("session_id", s.id))
	}()

	s.RegisterPermanentClients(ctx, permanentIDs)
	if err := s.Require(ctx, permanentIDs); err != nil {
		return err
	}
	s.logger.Info(ctx, "all permanent clients connected", logger.Int("session_id", s.id))

	for i, competition := range competitions {
		s.RegisterRequiredClients(ctx, competition)
		if err := s.RequireAllClients(ctx); err != nil {
			return err
		}

		s.Broadcast(EventCompetitionStart, mustJSON(CompetitionStart{Competition: competition}))

		for position, competitor := range competition.Competitors {
			if err := s.runCompetitor(ctx, competition, position, competitor); err != nil {
				return err
			}
		}

		var next *model.Competition
		if i+1 < len(competitions) {
			next = &competitions[i+1]
		}
		s.ClearUnneededClients(ctx, next, permanentIDs)
	}

	return nil
}

// runCompetitor drives one competitor through the perform phase and, when
// the performance happened, the score phase. Errors other than context
// cancellation are contained here: the show moves on to the next
// competitor. The submitted-score set is cleared on every exit, so a
// judge's reconnect-recovery check only matters within one competitor's
// scoring window.
func (s *Session) runCompetitor(ctx context.Context, competition model.Competition, position int, competitor model.Competitor) error {
	defer func() {
		s.mu.Lock()
		s.submitted = make(map[string]struct{})
		s.mu.Unlock()
	}()

	performed, err := s.performPhase(ctx, competition, position)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error(ctx, "error during competitor",
			logger.Int("competition_id", competition.ID),
			logger.Int("competitor_id", competitor.ID),
			logger.Int("position", position),
			logger.Error(err),
		)
		return nil
	}

	if !performed {
		s.logger.Info(ctx, "competitor skipped, no scoring",
			logger.Int("competition_id", competition.ID),
			logger.Int("position", position),
		)
		return nil
	}

	s.scorePhase(ctx, competition, position)
	return nil
}

// performPhase broadcasts performance_start and suspends until the director
// reports completion. The wait is unbounded: an absent director stalls the
// show, which is accepted — the run is human-paced. The result reports
// whether the performance happened or was skipped.
func (s *Session) performPhase(ctx context.Context, competition model.Competition, position int) (bool, error) {
	s.mu.Lock()
	s.phase = PhasePerforming
	s.current = &competition
	s.position = position
	s.mu.Unlock()

	s.Broadcast(EventPerformanceStart, mustJSON(PerformanceStart{
		CompetitionID: competition.ID,
		Position:      position,
	}))

	payload, err := s.deps.Rendezvous.WaitFor(ctx, rendezvous.PerfTag{
		CompetitionID: competition.ID,
		Position:      position,
	}, 0)

	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()

	if err != nil {
		return false, err
	}
	performed, ok := payload.(bool)
	if !ok {
		return false, fmt.Errorf("perf tag resolved with %T, want bool", payload)
	}
	return performed, nil
}

// scorePhase broadcasts enable_scoring and waits for every judge assigned
// to the competition, concurrently, each with the configured timeout. A
// judge timing out or failing is logged and scored as missing; it never
// aborts the competitor.
func (s *Session) scorePhase(ctx context.Context, competition model.Competition, position int) {
	s.mu.Lock()
	s.phase = PhaseScoring
	s.mu.Unlock()

	s.Broadcast(EventEnableScoring, mustJSON(EnableScoring{
		CompetitionID: competition.ID,
		Position:      position,
	}))

	competitor := competition.Competitors[position]
	start := time.Now()

	done := make(chan bool, len(competition.Rubric.Judges))
	for _, judge := range competition.Rubric.Judges {
		go func(judge model.Judge) {
			done <- s.awaitJudge(ctx, competition, competitor, position, judge, start)
		}(judge)
	}

	failures := 0
	for range competition.Rubric.Judges {
		if ok := <-done; !ok {
			failures++
		}
	}
	if failures > 0 {
		s.logger.Warn(ctx, "judges failed to submit scores",
			logger.Int("competition_id", competition.ID),
			logger.Int("position", position),
			logger.Int("failed", failures),
		)
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()
}

// awaitJudge waits for one judge's submission, records it, persists it, and
// broadcasts the score update. Returns false when the judge's score is
// missing (timeout or error).
func (s *Session) awaitJudge(ctx context.Context, competition model.Competition, competitor model.Competitor, position int, judge model.Judge, enabledAt time.Time) bool {
	payload, err := s.deps.Rendezvous.WaitFor(ctx, rendezvous.ScoreTag{
		CompetitionID: competition.ID,
		CompetitorID:  competitor.ID,
		JudgeID:       judge.ID,
	}, s.scoreTimeout)
	if err != nil {
		if errors.Is(err, rendezvous.ErrTimeout) {
			metrics.RecordScoreTimeout()
		}
		s.logger.Warn(ctx, "judge score missing",
			logger.Int("judge_id", judge.ID),
			logger.Int("competition_id", competition.ID),
			logger.Int("position", position),
			logger.Error(err),
		)
		return false
	}

	scores, ok := payload.(model.Scores)
	if !ok {
		s.logger.Warn(ctx, "score tag resolved with unexpected payload",
			logger.Int("judge_id", judge.ID),
			logger.Any("payload", payload),
		)
		return false
	}

	// Marked submitted before saving: recovery must not re-prompt this
	// judge even when the save below fails.
	s.mu.Lock()
	s.submitted[submissionKey(competition.ID, position, judge.ID)] = struct{}{}
	s.mu.Unlock()

	metrics.RecordScoreSubmitted()
	metrics.RecordScoringLatency(time.Since(enabledAt).Seconds())

	submission := model.ScoreSubmission{
		CompetitionID: competition.ID,
		CompetitorID:  competitor.ID,
		JudgeID:       judge.ID,
		Scores:        scores,
	}
	if err := s.deps.SaveScore(ctx, submission); err != nil {
		metrics.RecordPersistenceError()
		s.logger.Error(ctx, "score save failed",
			logger.Int("judge_id", judge.ID),
			logger.Int("competition_id", competition.ID),
			logger.Int("competitor_id", competitor.ID),
			logger.Error(err),
		)
	}

	s.Broadcast(EventScoreUpdate, mustJSON(ScoreUpdate{
		CompetitionID: submission.CompetitionID,
		CompetitorID:  submission.CompetitorID,
		JudgeID:       submission.JudgeID,
		Scores:        submission.Scores,
	}))
	return true
}

// teardown resets the session to idle and moves every connected client,
// permanent ones included, back to the pool. The roster is emptied.
func (s *Session) teardown(ctx context.Context) {
	s.mu.Lock()
	s.running = false
	s.phase = PhaseIdle
	s.current = nil
	s.position = -1
	s.submitted = make(map[string]struct{})

	var returned []string
	for id, c := range s.roster {
		if c != nil {
			s.deps.Pool.Put(c)
			returned = append(returned, id)
		}
	}
	s.roster = make(map[string]pool.Client)
	s.mu.Unlock()

	for _, id := range returned {
		s.logger.Info(ctx, "returned client to pool on teardown",
			logger.Int("session_id", s.id),
			logger.String("client_id", id),
		)
	}
}
