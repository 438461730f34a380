package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/tourney-engine/middleware"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/services"
)

type MatchHandler struct {
	matches services.MatchService
}

func NewMatchHandler(matches services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.MatchFilter{
		TournamentID: queryIntPtr(r, "tournament_id"),
		BracketID:    queryIntPtr(r, "bracket_id"),
		Round:        queryIntPtr(r, "round"),
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Statuses = []models.MatchStatus{models.MatchStatus(v)}
	}
	page, err := h.matches.ListMatches(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, page); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registrationID := queryInt(r, "registration_id", 0)
	matches, err := h.matches.ListUpcoming(r.Context(), tournamentID, registrationID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ListDisputed(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matches, err := h.matches.ListDisputed(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		ScheduledAt time.Time `json:"scheduled_at"`
		ServerID    *string   `json:"server_id,omitempty"`
		LobbyCode   *string   `json:"lobby_code,omitempty"`
		StreamURL   *string   `json:"stream_url,omitempty"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.ScheduleMatch(r.Context(), services.ScheduleMatchInput{
		MatchID:     id,
		ScheduledAt: req.ScheduledAt,
		ServerID:    req.ServerID,
		LobbyCode:   req.LobbyCode,
		StreamURL:   req.StreamURL,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) AutoScheduleBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, err := pathInt(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		StartAt         time.Time `json:"start_at"`
		IntervalMinutes int       `json:"interval_minutes"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.matches.AutoScheduleBracket(r.Context(), bracketID, req.StartAt, time.Duration(req.IntervalMinutes)*time.Minute); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		RegistrationID int `json:"registration_id"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.CheckIn(r.Context(), services.CheckInInput{MatchID: id, RegistrationID: req.RegistrationID})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) AssignServer(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		ServerID  *string `json:"server_id,omitempty"`
		LobbyCode *string `json:"lobby_code,omitempty"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.AssignServer(r.Context(), id, req.ServerID, req.LobbyCode)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.UpdateStatus(r.Context(), id, models.MatchStatus(req.Status))
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
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
		WinnerID          int `json:"winner_id"`
		Participant1Score int `json:"participant1_score"`
		Participant2Score int `json:"participant2_score"`
		GamesPlayed       int `json:"games_played"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.SubmitResult(r.Context(), models.SubmitResultInput{
		MatchID:           id,
		SubmittedBy:       actorID,
		WinnerID:          req.WinnerID,
		Participant1Score: req.Participant1Score,
		Participant2Score: req.Participant2Score,
		GamesPlayed:       req.GamesPlayed,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	match, err := h.matches.ConfirmResult(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
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
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.RaiseDispute(r.Context(), services.RaiseDisputeInput{
		MatchID:  id,
		RaisedBy: actorID,
		Reason:   req.Reason,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
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
		WinnerID          int `json:"winner_id"`
		Participant1Score int `json:"participant1_score"`
		Participant2Score int `json:"participant2_score"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.ResolveDispute(r.Context(), services.ResolveDisputeInput{
		MatchID:           id,
		ResolvedBy:        actorID,
		WinnerID:          req.WinnerID,
		Participant1Score: req.Participant1Score,
		Participant2Score: req.Participant2Score,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) AdminOverride(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
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
		WinnerID          int    `json:"winner_id"`
		Participant1Score int    `json:"participant1_score"`
		Participant2Score int    `json:"participant2_score"`
		Reason            string `json:"reason"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.AdminOverride(r.Context(), models.AdminOverrideInput{
		MatchID:           id,
		AdminID:           actorID,
		WinnerID:          req.WinnerID,
		Participant1Score: req.Participant1Score,
		Participant2Score: req.Participant2Score,
		Reason:            req.Reason,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
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
		ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
		Reason      string     `json:"reason"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.PostponeMatch(r.Context(), services.PostponeMatchInput{
		MatchID:     id,
		ActorID:     actorID,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) MarkForfeit(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		WinnerID int    `json:"winner_id"`
		Reason   string `json:"reason"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.MarkForfeit(r.Context(), id, req.WinnerID, req.Reason)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) DetectManipulation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.matches.DetectManipulation(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}); err != nil {
		serverErrorResponse(w, err)
	}
}
