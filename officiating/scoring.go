package officiating

import (
	"fmt"

	"github.com/Dosada05/officiation-system/models"
)

// ScoringRule отображает подтверждённые поражения в командные очки.
// Правило зависит от режима матча и подключается снаружи, а не зашито в
// конечный автомат.
type ScoringRule interface {
	// PointsForElimination возвращает количество очков, начисляемых
	// команде стрелка за одно подтверждённое поражение.
	PointsForElimination(state *models.MatchState, shooterSide models.TeamSide) int

	GetName() string
}

// RuleForMode подбирает правило начисления очков по режиму матча.
func RuleForMode(mode models.MatchMode) (ScoringRule, error) {
	switch mode {
	case models.ModeTDM:
		return NewTDMRule(), nil
	case models.ModeDomination:
		return NewDominationRule(), nil
	default:
		return nil, fmt.Errorf("unsupported match mode %q", mode)
	}
}
