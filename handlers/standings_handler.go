package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/services"
)

type StandingsHandler struct {
	standings services.StandingsService
}

func NewStandingsHandler(standings services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standings: standings}
}

func (h *StandingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registrationID, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	standing, err := h.standings.GetStanding(r.Context(), tournamentID, registrationID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standing": standing}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *StandingsHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	filter := models.StandingFilter{
		TournamentID: tournamentID,
		SortByRank:   queryBool(r, "sort_by_rank", true),
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 50),
	}
	standings, err := h.standings.ListStandings(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *StandingsHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	standings, err := h.standings.RecalculateStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *StandingsHandler) Disqualify(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registrationID, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		EliminatedRound *int `json:"eliminated_round,omitempty"`
		EliminatedBy    *int `json:"eliminated_by,omitempty"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.standings.DisqualifyStanding(r.Context(), tournamentID, registrationID, req.EliminatedRound, req.EliminatedBy); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
