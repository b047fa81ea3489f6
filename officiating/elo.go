package officiating

import (
	"math"

	"github.com/Dosada05/officiation-system/models"
)

// K-факторы: ниже 1000 elo дельта ускорена для быстрой первичной
// калибровки новых игроков.
const (
	KFactorPlacement = 40
	KFactorDefault   = 20

	placementCeiling = 1000
)

// KFactor возвращает K-фактор для текущего elo игрока.
func KFactor(elo int) float64 {
	if elo < placementCeiling {
		return KFactorPlacement
	}
	return KFactorDefault
}

// ExpectedScore — стандартная логистическая формула ожидаемого результата
// игрока против среднего elo команды противника.
func ExpectedScore(playerElo, opponentAvgElo float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponentAvgElo-playerElo)/400.0))
}

// ActualScore переводит командный исход матча в очки игрока заданной
// стороны: победа 1.0, ничья 0.5, поражение 0.0. Индивидуальный K/D на
// elo не влияет — рейтинг начисляется одинаково всем членам команды.
func ActualScore(winner models.MatchWinner, side models.TeamSide) float64 {
	switch winner {
	case models.WinnerDraw:
		return 0.5
	case models.WinnerTeamA:
		if side == models.TeamA {
			return 1.0
		}
		return 0.0
	case models.WinnerTeamB:
		if side == models.TeamB {
			return 1.0
		}
		return 0.0
	}
	return 0.0
}

// EloDelta вычисляет изменение рейтинга игрока. Дельта округляется до
// ближайшего целого, чтобы результат был воспроизводим при повторном
// расчёте.
func EloDelta(playerElo int, opponentAvgElo float64, actual float64) int {
	expected := ExpectedScore(float64(playerElo), opponentAvgElo)
	return int(math.Round(KFactor(playerElo) * (actual - expected)))
}

// ApplyDelta применяет дельту с нижней границей elo = 0.
func ApplyDelta(elo, delta int) int {
	next := elo + delta
	if next < 0 {
		return 0
	}
	return next
}
