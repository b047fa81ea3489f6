package officiating

import "github.com/Dosada05/officiation-system/models"

// DominationRule — режим удержания точек. Очки за контроль точек приходят
// из внешнего источника (вне этого сервиса); за подтверждённое поражение
// команда стрелка получает одно очко, как и в TDM.
type DominationRule struct{}

func NewDominationRule() ScoringRule {
	return &DominationRule{}
}

func (r *DominationRule) GetName() string {
	return "Domination"
}

func (r *DominationRule) PointsForElimination(_ *models.MatchState, _ models.TeamSide) int {
	return 1
}
