package repository

import (
	"context"
	"fmt"

	"github.com/okian/encore/internal/domain/model"
)

// Seed inserts a session and its competitions. Used by tests and the
// showctl driver to build a runnable fixture database.
func (s *SQLiteStore) Seed(ctx context.Context, sessionID int, comps []model.Competition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) error {
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
		return err
	}

	_ = exec(`INSERT OR IGNORE INTO sessions (id) VALUES (?)`, sessionID)

	for order, comp := range comps {
		_ = exec(`INSERT OR IGNORE INTO rubrics (id) VALUES (?)`, comp.Rubric.ID)
		for _, cr := range comp.Rubric.Criteria {
			_ = exec(`INSERT OR IGNORE INTO criteria (id, name) VALUES (?, ?)`, cr.ID, cr.Name)
			_ = exec(`INSERT OR IGNORE INTO rubric_criteria (rubric_id, criteria_id, weight) VALUES (?, ?, ?)`,
				comp.Rubric.ID, cr.ID, cr.Weight)
		}
		for _, j := range comp.Rubric.Judges {
			_ = exec(`INSERT OR IGNORE INTO judges (id, name) VALUES (?, ?)`, j.ID, j.Name)
			_ = exec(`INSERT OR IGNORE INTO rubric_judges (rubric_id, judge_id) VALUES (?, ?)`,
				comp.Rubric.ID, j.ID)
			for _, crID := range j.Criteria {
				_ = exec(`INSERT OR IGNORE INTO rubric_judge_criteria (rubric_id, judge_id, criteria_id) VALUES (?, ?, ?)`,
					comp.Rubric.ID, j.ID, crID)
			}
		}

		_ = exec(`INSERT OR IGNORE INTO competitions (id, session_id, rubric_id, name, order_number) VALUES (?, ?, ?, ?, ?)`,
			comp.ID, sessionID, comp.Rubric.ID, comp.Name, order)
		for pos, c := range comp.Competitors {
			_ = exec(`INSERT OR IGNORE INTO competitors (id, name) VALUES (?, ?)`, c.ID, c.Name)
			_ = exec(`INSERT OR IGNORE INTO competition_competitors (competition_id, competitor_id, duration_ms, order_number) VALUES (?, ?, ?, ?)`,
				comp.ID, c.ID, c.Duration.Milliseconds(), pos)
		}
	}

	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
