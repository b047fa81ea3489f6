package models

import "time"

// MatchPhase представляет фазы матча. Строгий конечный автомат:
// Live -> Paused -> Live, Live -> RoundEnded -> Live (следующий раунд)
// или -> MatchEnded, Live -> MatchEnded (досрочное завершение).
type MatchPhase string

const (
	PhaseLive       MatchPhase = "live"
	PhasePaused     MatchPhase = "paused"
	PhaseRoundEnded MatchPhase = "round_ended"
	PhaseMatchEnded MatchPhase = "match_ended"
)

// MatchMode определяет режим игры; от режима зависит правило начисления
// командных очков за подтверждённые поражения.
type MatchMode string

const (
	ModeTDM        MatchMode = "tdm"
	ModeDomination MatchMode = "domination"
)

// TeamSide — сторона команды в матче.
type TeamSide string

const (
	TeamA TeamSide = "team_a"
	TeamB TeamSide = "team_b"
)

type Score struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// PausedInterval — интервал, в течение которого матч был на паузе.
type PausedInterval struct {
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
}

// MatchState — состояние матча. Владелец — MatchService; все мутации
// сериализуются по matchID.
type MatchState struct {
	MatchID         int              `json:"match_id"`
	Mode            MatchMode        `json:"mode"`
	Phase           MatchPhase       `json:"phase"`
	Round           int              `json:"round"`
	TotalRounds     int              `json:"total_rounds"`
	Score           Score            `json:"score"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	PausedIntervals []PausedInterval `json:"paused_intervals,omitempty"`
	TeamARoster     []int            `json:"team_a_roster"`
	TeamBRoster     []int            `json:"team_b_roster"`
}

// TeamOf returns the side the player fights for, or "" if the player is
// not on either roster.
func (m *MatchState) TeamOf(playerID int) TeamSide {
	for _, id := range m.TeamARoster {
		if id == playerID {
			return TeamA
		}
	}
	for _, id := range m.TeamBRoster {
		if id == playerID {
			return TeamB
		}
	}
	return ""
}

// MatchWinner — исход матча на уровне команд.
type MatchWinner string

const (
	WinnerTeamA MatchWinner = "team_a"
	WinnerTeamB MatchWinner = "team_b"
	WinnerDraw  MatchWinner = "draw"
)

// MatchSummary формируется ровно один раз при переходе в MatchEnded и
// передаётся в RatingService. Повторный endMatch возвращает тот же summary.
type MatchSummary struct {
	MatchID      int                     `json:"match_id"`
	Mode         MatchMode               `json:"mode"`
	Score        Score                   `json:"score"`
	Winner       MatchWinner             `json:"winner"`
	TeamA        []int                   `json:"team_a"`
	TeamB        []int                   `json:"team_b"`
	RoundsPlayed int                     `json:"rounds_played"`
	StartedAt    time.Time               `json:"started_at"`
	EndedAt      time.Time               `json:"ended_at"`
	Stats        []ParticipantMatchStats `json:"stats"`
}
