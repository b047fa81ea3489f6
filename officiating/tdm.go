package officiating

import "github.com/Dosada05/officiation-system/models"

// TDMRule — командный бой: каждое подтверждённое поражение приносит
// команде стрелка одно очко.
type TDMRule struct{}

func NewTDMRule() ScoringRule {
	return &TDMRule{}
}

func (r *TDMRule) GetName() string {
	return "TDM"
}

func (r *TDMRule) PointsForElimination(_ *models.MatchState, _ models.TeamSide) int {
	return 1
}
