package session

import (
	"encoding/json"

	"github.com/okian/encore/internal/domain/model"
)

// Event names on the push stream. These are the wire contract the
// coordinator emits regardless of transport.
const (
	EventClientStatus        = "client_status"
	EventCompetitionStart    = "competition_start"
	EventPerformanceStart    = "performance_start"
	EventPerformanceRecovery = "performance_recovery"
	EventEnableScoring       = "enable_scoring"
	EventScoreUpdate         = "score_update"
)

// ClientStatus lists the roster ids whose slot currently holds a live
// handle. Registered-but-disconnected slots are never included.
type ClientStatus struct {
	ConnectedClients []string `json:"connected_clients"`
}

// CompetitionStart announces a competition, rubric included, to every
// connected client.
type CompetitionStart struct {
	Competition model.Competition `json:"competition"`
}

// PerformanceStart tells the director which competitor performs next.
type PerformanceStart struct {
	CompetitionID int `json:"competition_id"`
	Position      int `json:"position"`
}

// PerformanceRecovery resynchronizes a director that reconnected while a
// performance was in progress.
type PerformanceRecovery struct {
	CompetitionID int `json:"competition_id"`
	Position      int `json:"position"`
}

// EnableScoring opens the scoring window for the competitor at Position.
type EnableScoring struct {
	CompetitionID int `json:"competition_id"`
	Position      int `json:"position"`
}

// ScoreUpdate carries one judge's accepted submission to every client.
type ScoreUpdate struct {
	CompetitionID int          `json:"competition_id"`
	CompetitorID  int          `json:"competitor_id"`
	JudgeID       int          `json:"judge_id"`
	Scores        model.Scores `json:"scores"`
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Message payloads are plain structs; marshal cannot fail at runtime.
		panic(err)
	}
	return data
}
