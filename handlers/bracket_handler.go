package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney-engine/middleware"
	"github.com/Dosada05/tourney-engine/services"
)

type BracketHandler struct {
	brackets services.BracketService
}

func NewBracketHandler(brackets services.BracketService) *BracketHandler {
	return &BracketHandler{brackets: brackets}
}

func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	brackets, err := h.brackets.GenerateBracket(r.Context(), tournamentID, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"brackets": brackets}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	bracket, err := h.brackets.GetBracket(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	brackets, err := h.brackets.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": brackets}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) Matches(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matches, err := h.brackets.GetMatches(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) Visualization(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	nodes, err := h.brackets.GetVisualization(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"nodes": nodes}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	export, err := h.brackets.ExportBracket(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, export); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) Reset(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	brackets, err := h.brackets.ResetBracket(r.Context(), tournamentID, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": brackets}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *BracketHandler) DisqualifyParticipant(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	var req struct {
		RegistrationID int    `json:"registration_id"`
		Reason         string `json:"reason"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.brackets.DisqualifyParticipant(r.Context(), tournamentID, req.RegistrationID, actorID, req.Reason); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BracketHandler) PairSwissRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	matches, err := h.brackets.PairSwissRound(r.Context(), tournamentID, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}); err != nil {
		serverErrorResponse(w, err)
	}
}
