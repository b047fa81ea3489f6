package models

import "time"

// ClaimStatus представляет статусы заявки на поражение (kill claim).
type ClaimStatus string

const (
	ClaimStatusPending          ClaimStatus = "pending"
	ClaimStatusAutoConfirmed    ClaimStatus = "auto_confirmed"
	ClaimStatusRefereeConfirmed ClaimStatus = "referee_confirmed"
	ClaimStatusRejected         ClaimStatus = "rejected"
	ClaimStatusInvalidated      ClaimStatus = "invalidated"
)

// IsTerminal сообщает, является ли статус конечным. Заявка в конечном
// статусе больше не изменяется (аудиторский след).
func (s ClaimStatus) IsTerminal() bool {
	return s != ClaimStatusPending
}

// Confirmed reports whether the claim counts as a confirmed elimination.
func (s ClaimStatus) Confirmed() bool {
	return s == ClaimStatusAutoConfirmed || s == ClaimStatusRefereeConfirmed
}

// KillClaim — заявка игрока на поражение противника.
type KillClaim struct {
	ID                     string      `json:"id"`
	MatchID                int         `json:"match_id"`
	ShooterID              int         `json:"shooter_id"`
	VictimID               int         `json:"victim_id"`
	Round                  int         `json:"round"`
	DeclaredAt             time.Time   `json:"declared_at"`
	DistanceEstimateMeters float64     `json:"distance_estimate_meters"`
	Status                 ClaimStatus `json:"status"`
	// Assist is set when the claim was confirmed as part of a split-assist
	// resolution: the shooter gains an assist, not an exclusive kill.
	Assist bool `json:"assist,omitempty"`
}
