package models

import "time"

// ResolutionKind — вид решения судьи по спорному случаю.
type ResolutionKind string

const (
	ResolutionUnresolved  ResolutionKind = "unresolved"
	ResolutionAssignedTo  ResolutionKind = "assigned_to"
	ResolutionSplitAssist ResolutionKind = "split_assist"
	ResolutionInvalidated ResolutionKind = "invalidated"
)

// Resolution фиксирует решение судьи. Kind = Unresolved означает, что
// решение ещё не принято.
type Resolution struct {
	Kind ResolutionKind `json:"kind"`
	// ClaimIDs: для AssignedTo ровно одна заявка, для SplitAssist — все
	// подтверждённые как ассисты. Для Invalidated пусто.
	ClaimIDs   []string   `json:"claim_ids,omitempty"`
	RefereeID  int        `json:"referee_id,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ConflictCase — группа конкурирующих заявок по одной жертве.
// На жертву одновременно может быть открыт не более одного случая;
// после установки Resolution случай терминален.
type ConflictCase struct {
	ID         string     `json:"id"`
	MatchID    int        `json:"match_id"`
	VictimID   int        `json:"victim_id"`
	Round      int        `json:"round"`
	ClaimIDs   []string   `json:"claim_ids"`
	OpenedAt   time.Time  `json:"opened_at"`
	Resolution Resolution `json:"resolution"`
}

// Open reports whether the case still awaits a referee decision.
func (c *ConflictCase) Open() bool {
	return c.Resolution.Kind == ResolutionUnresolved
}
