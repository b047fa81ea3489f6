package models

import "time"

// Tier — дискретный ранг игрока, чистая функция от текущего elo.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Границы тиров по elo (нижние пороги).
const (
	SilverFloor   = 1000
	GoldFloor     = 1400
	PlatinumFloor = 1800
	DiamondFloor  = 2200
)

// TierForElo возвращает тир и его порядковый уровень (1..5) для заданного
// elo. Единственный источник истины для границ тиров: поле Tier в
// RatingRecord не должно расходиться с elo.
func TierForElo(elo int) (Tier, int) {
	switch {
	case elo >= DiamondFloor:
		return TierDiamond, 5
	case elo >= PlatinumFloor:
		return TierPlatinum, 4
	case elo >= GoldFloor:
		return TierGold, 3
	case elo >= SilverFloor:
		return TierSilver, 2
	default:
		return TierBronze, 1
	}
}

// RatingRecord — долгоживущий рейтинг игрока, обновляется один раз на
// каждое событие MatchEnded.
type RatingRecord struct {
	PlayerID  int       `json:"player_id"`
	Elo       int       `json:"elo"`
	Tier      Tier      `json:"tier"`
	TierLevel int       `json:"tier_level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize пересчитывает Tier/TierLevel из текущего elo.
func (r *RatingRecord) Normalize() {
	r.Tier, r.TierLevel = TierForElo(r.Elo)
}
