package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/encore/internal/domain/model"
)

// Default SQLite store configuration constants.
const (
	defaultSaveRetries  = 3
	defaultSaveInterval = 50 * time.Millisecond
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB

	saveRetries  uint64
	saveInterval time.Duration
}

// Open opens the SQLite store at path and applies the schema.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		saveRetries:  defaultSaveRetries,
		saveInterval: defaultSaveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveScore inserts one row per criterion inside a transaction. Transient
// failures (locked database) are retried with exponential backoff.
func (s *SQLiteStore) SaveScore(ctx context.Context, sub model.ScoreSubmission) error {
	op := func() error {
		return s.saveScoreOnce(ctx, sub)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(s.saveInterval),
		), s.saveRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

func (s *SQLiteStore) saveScoreOnce(ctx context.Context, sub model.ScoreSubmission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, cs := range sub.Scores {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO scores (competition_id, competitor_id, judge_id, criteria_id, score)
			 VALUES (?, ?, ?, ?, ?)`,
			sub.CompetitionID, sub.CompetitorID, sub.JudgeID, cs.CriterionID, cs.Score,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SessionCompetitions loads the session's competitions in running order,
// with competitors and rubric resolved.
func (s *SQLiteStore) SessionCompetitions(ctx context.Context, sessionID int) ([]model.Competition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, rubric_id FROM competitions
		 WHERE session_id = ? ORDER BY order_number`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query competitions: %w", err)
	}
	defer rows.Close()

	type compRow struct {
		comp     model.Competition
		rubricID int
	}
	var comps []compRow
	for rows.Next() {
		var r compRow
		if err := rows.Scan(&r.comp.ID, &r.comp.Name, &r.rubricID); err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		comps = append(comps, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitions: %w", err)
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}

	out := make([]model.Competition, 0, len(comps))
	for _, r := range comps {
		competitors, err := s.competitionCompetitors(ctx, r.comp.ID)
		if err != nil {
			return nil, err
		}
		// Competitions without entrants are not runnable; mirror the
		// source query's HAVING COUNT(...) > 0 filter.
		if len(competitors) == 0 {
			continue
		}
		rubric, err := s.rubric(ctx, r.rubricID)
		if err != nil {
			return nil, err
		}
		comp := r.comp
		comp.Competitors = competitors
		comp.Rubric = rubric
		out = append(out, comp)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}
	return out, nil
}

func (s *SQLiteStore) competitionCompetitors(ctx context.Context, competitionID int) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, cc.duration_ms FROM competition_competitors cc
		 JOIN competitors c ON c.id = cc.competitor_id
		 WHERE cc.competition_id = ? ORDER BY cc.order_number`,
		competitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query competitors: %w", err)
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		var durationMs int64
		if err := rows.Scan(&c.ID, &c.Name, &durationMs); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) rubric(ctx context.Context, rubricID int) (model.Rubric, error) {
	rubric := model.Rubric{ID: rubricID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cr.id, cr.name, COALESCE(rc.weight, 0) FROM rubric_criteria rc
		 JOIN criteria cr ON cr.id = rc.criteria_id
		 WHERE rc.rubric_id = ? ORDER BY cr.id`,
		rubricID,
	)
	if err != nil {
		return rubric, fmt.Errorf("query criteria: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Criterion
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight); err != nil {
			return rubric, fmt.Errorf("scan criterion: %w", err)
		}
		rubric.Criteria = append(rubric.Criteria, c)
	}
	if err := rows.Err(); err != nil {
		return rubric, fmt.Errorf("iterate criteria: %w", err)
	}

	judgeRows, err := s.db.QueryContext(ctx,
		`SELECT j.id, j.name FROM rubric_judges rj
		 JOIN judges j ON j.id = rj.judge_id
		 WHERE rj.rubric_id = ? ORDER BY j.id`,
		rubricID,
	)
	if err != nil {
		return rubric, fmt.Errorf("query judges: %w", err)
	}
	defer judgeRows.Close()
	for judgeRows.Next() {
		var j model.Judge
		if err := judgeRows.Scan(&j.ID, &j.Name); err != nil {
			return rubric, fmt.Errorf("scan judge: %w", err)
		}
		rubric.Judges = append(rubric.Judges, j)
	}
	if err := judgeRows.Err(); err != nil {
		return rubric, fmt.Errorf("iterate judges: %w", err)
	}

	for i := range rubric.Judges {
		criteria, err := s.judgeCriteria(ctx, rubricID, rubric.Judges[i].ID)
		if err != nil {
			return rubric, err
		}
		rubric.Judges[i].Criteria = criteria
	}
	return rubric, nil
}

func (s *SQLiteStore) judgeCriteria(ctx context.Context, rubricID, judgeID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT criteria_id FROM rubric_judge_criteria
		 WHERE rubric_id = ? AND judge_id = ? ORDER BY criteria_id`,
		rubricID, judgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query judge criteria: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan judge criterion: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
