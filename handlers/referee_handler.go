package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/officiation-system/middleware"
	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/services"
	"github.com/go-chi/chi/v5"
)

var errMissingCaseID = errors.New("missing caseID parameter")

type RefereeHandler struct {
	refereeService services.RefereeService
}

func NewRefereeHandler(refereeService services.RefereeService) *RefereeHandler {
	return &RefereeHandler{refereeService: refereeService}
}

func (h *RefereeHandler) ListOpenConflictsHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conflicts, err := h.refereeService.ListOpenConflicts(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"conflicts": conflicts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type resolveConflictRequest struct {
	Kind     models.ResolutionKind `json:"kind"`
	ClaimIDs []string              `json:"claim_ids,omitempty"`
}

func (h *RefereeHandler) ResolveConflictHandler(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	if caseID == "" {
		badRequestResponse(w, r, errMissingCaseID)
		return
	}

	refereeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input resolveConflictRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	resolved, err := h.refereeService.ResolveConflict(r.Context(), caseID, models.Resolution{
		Kind:     input.Kind,
		ClaimIDs: input.ClaimIDs,
	}, refereeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"case": resolved}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RefereeHandler) PauseMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.phaseTransition(w, r, h.refereeService.PauseMatch)
}

func (h *RefereeHandler) ResumeMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.phaseTransition(w, r, h.refereeService.ResumeMatch)
}

func (h *RefereeHandler) EndRoundHandler(w http.ResponseWriter, r *http.Request) {
	h.phaseTransition(w, r, h.refereeService.EndRound)
}

func (h *RefereeHandler) NextRoundHandler(w http.ResponseWriter, r *http.Request) {
	h.phaseTransition(w, r, h.refereeService.NextRound)
}

func (h *RefereeHandler) EndMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	refereeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	summary, ratings, err := h.refereeService.EndMatch(r.Context(), matchID, refereeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary, "ratings": ratings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// phaseTransition обслуживает однотипные фазовые операции судьи.
func (h *RefereeHandler) phaseTransition(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, matchID, refereeID int) (*models.MatchState, error),
) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	refereeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	state, err := transition(r.Context(), matchID, refereeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
