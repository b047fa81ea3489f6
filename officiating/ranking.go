package officiating

import (
	"sort"

	"github.com/Dosada05/officiation-system/models"
)

// OutcomeKind — результат оценки набора заявок по одной жертве.
type OutcomeKind string

const (
	OutcomeNoClaim     OutcomeKind = "no_claim"
	OutcomeSingleClaim OutcomeKind = "single_claim"
	OutcomeConflict    OutcomeKind = "conflict"
)

// Outcome возвращается оценщиком после закрытия окна сбора заявок.
// Для SingleClaim заполнен ClaimID; для Conflict — Ranked (заявки в
// детерминированном порядке уверенности, только для судьи).
type Outcome struct {
	Kind    OutcomeKind
	ClaimID string
	Ranked  []*models.KillClaim
}

// Rank упорядочивает заявки по убыванию уверенности: сначала меньшая
// заявленная дистанция, при равенстве — более раннее declared_at, затем ID
// как последний разделитель. Порядок детерминирован и воспроизводим;
// он никогда не используется для автоматического назначения победителя,
// поскольку дистанция — недоверенная телеметрия с клиента.
func Rank(claims []*models.KillClaim) []*models.KillClaim {
	ranked := make([]*models.KillClaim, len(claims))
	copy(ranked, claims)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceEstimateMeters != ranked[j].DistanceEstimateMeters {
			return ranked[i].DistanceEstimateMeters < ranked[j].DistanceEstimateMeters
		}
		if !ranked[i].DeclaredAt.Equal(ranked[j].DeclaredAt) {
			return ranked[i].DeclaredAt.Before(ranked[j].DeclaredAt)
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Evaluate оценивает набор Pending-заявок по жертве после закрытия окна
// сбора. Одна заявка — SingleClaim (авто-подтверждение), две и более —
// Conflict с ранжированием для судьи. Неоднозначность — нормальный исход,
// а не ошибка.
func Evaluate(pending []*models.KillClaim) Outcome {
	switch len(pending) {
	case 0:
		return Outcome{Kind: OutcomeNoClaim}
	case 1:
		return Outcome{Kind: OutcomeSingleClaim, ClaimID: pending[0].ID}
	default:
		return Outcome{Kind: OutcomeConflict, Ranked: Rank(pending)}
	}
}
