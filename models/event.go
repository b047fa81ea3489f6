package models

import (
	"encoding/json"
	"time"
)

// EventType — тип записи в журнале матча.
type EventType string

const (
	EventClaimSubmitted     EventType = "claim_submitted"
	EventClaimStatusChanged EventType = "claim_status_changed"
	EventConflictOpened     EventType = "conflict_opened"
	EventConflictResolved   EventType = "conflict_resolved"
	EventPhaseChanged       EventType = "phase_changed"
	EventScoreChanged       EventType = "score_changed"
	EventRoundAdvanced      EventType = "round_advanced"
	EventMatchSettled       EventType = "match_settled"
	EventRatingUpdated      EventType = "rating_updated"
)

// MatchEvent — запись append-only журнала. Seq монотонно растёт в рамках
// одного матча (партиции), что позволяет детерминированно восстановить
// состояние повторным проигрыванием журнала.
type MatchEvent struct {
	MatchID    int             `json:"match_id"`
	Seq        int64           `json:"seq"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}
