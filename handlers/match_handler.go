package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/officiation-system/middleware"
	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type createMatchRequest struct {
	Mode        models.MatchMode `json:"mode"`
	TotalRounds int              `json:"total_rounds"`
	TeamA       []int            `json:"team_a"`
	TeamB       []int            `json:"team_b"`
}

func (h *MatchHandler) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	var input createMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.matchService.CreateMatch(r.Context(), input.Mode, input.TotalRounds, input.TeamA, input.TeamB)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchStateHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, stats, err := h.matchService.GetMatchState(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": state, "stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type declareKillRequest struct {
	VictimID               int     `json:"victim_id"`
	DistanceEstimateMeters float64 `json:"distance_estimate_meters"`
}

// DeclareKillHandler регистрирует заявку игрока на поражение. Повторная
// отправка той же заявки — success-no-op с пометкой duplicate, чтобы
// клиент мог отличить её от первого подтверждения.
func (h *MatchHandler) DeclareKillHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	shooterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input declareKillRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	claim, err := h.matchService.DeclareKill(r.Context(), matchID, shooterID, input.VictimID, input.DistanceEstimateMeters)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateClaim) {
			// Повтор по сети: вторая заявка не создана, возвращаем первую.
			writeErr := writeJSON(w, http.StatusOK, jsonResponse{"claim": claim, "duplicate": true}, nil)
			if writeErr != nil {
				serverErrorResponse(w, r, writeErr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"claim": claim, "duplicate": false}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
