package models

// ParticipantMatchStats — статистика игрока в рамках одного матча.
// Вычисляется только из подтверждённых заявок; никогда не редактируется
// независимо от них.
type ParticipantMatchStats struct {
	PlayerID int `json:"player_id"`
	MatchID  int `json:"match_id"`
	Kills    int `json:"kills"`
	Deaths   int `json:"deaths"`
	Assists  int `json:"assists"`
}
