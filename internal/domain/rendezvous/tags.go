package rendezvous

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/encore/internal/domain/model"
)

// Tag identifies a single rendezvous point. Each variant carries its own
// payload type: a RequiredTag resolves with no payload, a PerfTag with a
// bool (performed vs skipped), and a ScoreTag with model.Scores. The String
// form is the wire-level grammar shared with the HTTP boundary.
type Tag interface {
	fmt.Stringer

	// DecodePayload converts a raw JSON payload from the boundary layer
	// into the payload type this tag variant expects.
	DecodePayload(raw json.RawMessage) (any, error)
}

// RequiredTag signals that a client with the given id has connected.
type RequiredTag struct {
	ClientID string
}

func (t RequiredTag) String() string {
	return "required:" + t.ClientID
}

func (t RequiredTag) DecodePayload(_ json.RawMessage) (any, error) {
	return nil, nil
}

// PerfTag signals completion of the performance at a position within a
// competition. The payload reports whether it was performed or skipped.
type PerfTag struct {
	CompetitionID int
	Position      int
}

func (t PerfTag) String() string {
	return fmt.Sprintf("perf:%d:%d", t.CompetitionID, t.Position)
}

func (t PerfTag) DecodePayload(raw json.RawMessage) (any, error) {
	var performed bool
	if err := json.Unmarshal(raw, &performed); err != nil {
		return nil, fmt.Errorf("%w: perf payload: %w", ErrBadPayload, err)
	}
	return performed, nil
}

// ScoreTag signals a judge's score submission for a competitor.
type ScoreTag struct {
	CompetitionID int
	CompetitorID  int
	JudgeID       int
}

func (t ScoreTag) String() string {
	return fmt.Sprintf("score:%d:%d:%d", t.CompetitionID, t.CompetitorID, t.JudgeID)
}

func (t ScoreTag) DecodePayload(raw json.RawMessage) (any, error) {
	var scores model.Scores
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("%w: score payload: %w", ErrBadPayload, err)
	}
	return scores, nil
}

// ParseTag parses the wire form of a tag. The grammar must match exactly
// what Tag.String produces; anything else is rejected.
func ParseTag(s string) (Tag, error) {
	parts := strings.Split(s, ":")
	switch parts[0] {
	case "required":
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
		}
		return RequiredTag{ClientID: parts[1]}, nil
	case "perf":
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
		}
		comp, err1 := strconv.Atoi(parts[1])
		pos, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
		}
		return PerfTag{CompetitionID: comp, Position: pos}, nil
	case "score":
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
		}
		comp, err1 := strconv.Atoi(parts[1])
		competitor, err2 := strconv.Atoi(parts[2])
		judge, err3 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
		}
		return ScoreTag{CompetitionID: comp, CompetitorID: competitor, JudgeID: judge}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadTag, s)
	}
}
