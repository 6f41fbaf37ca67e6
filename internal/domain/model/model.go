// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Competitor is one entrant in a competition. Ordinal position within the
// competition's competitor list is significant: it is used as an array index
// and in display countdowns.
type Competitor struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Criterion is one scoring dimension of a rubric.
type Criterion struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight,omitempty"`
}

// Judge names a judge and the subset of criteria that judge scores.
type Judge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Criteria []int  `json:"criteria"`
}

// Rubric is the scoring definition for a competition: the criteria and the
// judge-to-criteria assignment.
type Rubric struct {
	ID       int         `json:"id"`
	Criteria []Criterion `json:"criteria"`
	Judges   []Judge     `json:"judges"`
}

// Competition is one judged round: an ordered competitor list plus a rubric.
// Immutable once handed to a session.
type Competition struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Competitors []Competitor `json:"competitors"`
	Rubric      Rubric       `json:"rubric"`
}

// JudgeClientIDs returns the client ids of every judge in the competition's
// rubric, in rubric order.
func (c Competition) JudgeClientIDs() []string {
	ids := make([]string, 0, len(c.Rubric.Judges))
	for _, j := range c.Rubric.Judges {
		ids = append(ids, JudgeClientID(j.ID))
	}
	return ids
}

// CriterionScore is a single judge-assigned score for one criterion.
type CriterionScore struct {
	CriterionID int     `json:"criteria_id"`
	Score       float64 `json:"score"`
}

// Scores is the ordered list of criterion scores one judge submits for one
// competitor.
type Scores []CriterionScore

// ScoreSubmission is one judge's complete verdict for one competitor,
// produced at most once per judge per competitor.
type ScoreSubmission struct {
	CompetitionID int    `json:"competition_id"`
	CompetitorID  int    `json:"competitor_id"`
	JudgeID       int    `json:"judge_id"`
	Scores        Scores `json:"scores"`
}

// Role is the kind of client connected to a show: the director playing the
// performances, a judge scoring them, or a scoreboard display.
type Role string

// Known client roles.
const (
	RoleDJ         Role = "dj"
	RoleJudge      Role = "judge"
	RoleScoreboard Role = "sb"
)

var clientIDPattern = regexp.MustCompile(`^(dj|judge|sb)(\d*)$`)

// ParseClientID splits a client id like "judge2" or "dj0" into its role and
// numeric part. The number is zero when the id carries none.
func ParseClientID(id string) (Role, int, error) {
	m := clientIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidClientID, id)
	}
	n := 0
	if m[2] != "" {
		n, _ = strconv.Atoi(m[2])
	}
	return Role(m[1]), n, nil
}

// JudgeClientID formats the roster key for a judge id, e.g. 2 -> "judge2".
func JudgeClientID(judgeID int) string {
	return RoleJudge.ClientID(judgeID)
}

// ClientID formats a roster key for the role and number, e.g. sb+10 -> "sb10".
func (r Role) ClientID(n int) string {
	return string(r) + strconv.Itoa(n)
}
