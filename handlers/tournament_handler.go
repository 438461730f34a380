package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/tourney-engine/middleware"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/services"
)

type TournamentHandler struct {
	tournaments services.TournamentService
}

func NewTournamentHandler(tournaments services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments}
}

type createTournamentRequest struct {
	Name                 string     `json:"name"`
	Description          *string    `json:"description,omitempty"`
	GameID               string     `json:"game_id"`
	Format               string     `json:"format"`
	Visibility           string     `json:"visibility"`
	RegistrationType     string     `json:"registration_type"`
	TeamSize             int        `json:"team_size"`
	MinParticipants      int        `json:"min_participants"`
	MaxParticipants      int        `json:"max_participants"`
	MinMMR               *int       `json:"min_mmr,omitempty"`
	MaxMMR               *int       `json:"max_mmr,omitempty"`
	AllowedRegions       []string   `json:"allowed_regions,omitempty"`
	IdentityRequired     bool       `json:"identity_required"`
	EntryFee             float64    `json:"entry_fee"`
	RegistrationStart    time.Time  `json:"registration_start"`
	RegistrationEnd      time.Time  `json:"registration_end"`
	CheckInStart         time.Time  `json:"check_in_start"`
	CheckInEnd           time.Time  `json:"check_in_end"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	MatchIntervalMinutes int        `json:"match_interval_minutes"`
	SwissRounds          int        `json:"swiss_rounds"`
	GrandFinalsReset     bool       `json:"grand_finals_reset"`
	Rules                *string    `json:"rules,omitempty"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournaments.CreateTournament(r.Context(), services.CreateTournamentInput{
		Name:                 req.Name,
		Description:          req.Description,
		GameID:               req.GameID,
		Format:               models.Format(req.Format),
		Visibility:           models.Visibility(req.Visibility),
		RegistrationType:     models.RegistrationType(req.RegistrationType),
		OrganizerID:          actorID,
		TeamSize:             req.TeamSize,
		MinParticipants:      req.MinParticipants,
		MaxParticipants:      req.MaxParticipants,
		MinMMR:               req.MinMMR,
		MaxMMR:               req.MaxMMR,
		AllowedRegions:       req.AllowedRegions,
		IdentityRequired:     req.IdentityRequired,
		EntryFee:             req.EntryFee,
		RegistrationStart:    req.RegistrationStart,
		RegistrationEnd:      req.RegistrationEnd,
		CheckInStart:         req.CheckInStart,
		CheckInEnd:           req.CheckInEnd,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		MatchIntervalMinutes: req.MatchIntervalMinutes,
		SwissRounds:          req.SwissRounds,
		GrandFinalsReset:     req.GrandFinalsReset,
		Rules:                req.Rules,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.GetTournamentByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.TournamentFilter{
		GameID:      queryStringPtr(r, "game_id"),
		OrganizerID: queryIntPtr(r, "organizer_id"),
		Search:      queryStringPtr(r, "search"),
		Page:        queryInt(r, "page", 1),
		Limit:       queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("visibility"); v != "" {
		vis := models.Visibility(v)
		filter.Visibility = &vis
	}
	if v := r.URL.Query().Get("format"); v != "" {
		f := models.Format(v)
		filter.Format = &f
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Statuses = []models.TournamentStatus{models.TournamentStatus(v)}
	}

	page, err := h.tournaments.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, page); err != nil {
		serverErrorResponse(w, err)
	}
}

type updateTournamentRequest struct {
	Name                 *string              `json:"name,omitempty"`
	Description          *string              `json:"description,omitempty"`
	TeamSize             *int                 `json:"team_size,omitempty"`
	MinParticipants      *int                 `json:"min_participants,omitempty"`
	MaxParticipants      *int                 `json:"max_participants,omitempty"`
	MinMMR               *int                 `json:"min_mmr,omitempty"`
	MaxMMR               *int                 `json:"max_mmr,omitempty"`
	AllowedRegions       []string             `json:"allowed_regions,omitempty"`
	IdentityRequired     *bool                `json:"identity_required,omitempty"`
	RegistrationType     *string              `json:"registration_type,omitempty"`
	EntryFee             *float64             `json:"entry_fee,omitempty"`
	RegistrationStart    *time.Time           `json:"registration_start,omitempty"`
	RegistrationEnd      *time.Time           `json:"registration_end,omitempty"`
	CheckInStart         *time.Time           `json:"check_in_start,omitempty"`
	CheckInEnd           *time.Time           `json:"check_in_end,omitempty"`
	StartDate            *time.Time           `json:"start_date,omitempty"`
	EndDate              *time.Time           `json:"end_date,omitempty"`
	MatchIntervalMinutes *int                 `json:"match_interval_minutes,omitempty"`
	SwissRounds          *int                 `json:"swiss_rounds,omitempty"`
	GrandFinalsReset     *bool                `json:"grand_finals_reset,omitempty"`
	Rules                *string              `json:"rules,omitempty"`
	StreamURL            *string              `json:"stream_url,omitempty"`
	Visibility           *string              `json:"visibility,omitempty"`
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}

	var req updateTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	input := services.UpdateTournamentDetailsInput{
		Name:                 req.Name,
		Description:          req.Description,
		TeamSize:             req.TeamSize,
		MinParticipants:      req.MinParticipants,
		MaxParticipants:      req.MaxParticipants,
		MinMMR:               req.MinMMR,
		MaxMMR:               req.MaxMMR,
		AllowedRegions:       req.AllowedRegions,
		IdentityRequired:     req.IdentityRequired,
		EntryFee:             req.EntryFee,
		RegistrationStart:    req.RegistrationStart,
		RegistrationEnd:      req.RegistrationEnd,
		CheckInStart:         req.CheckInStart,
		CheckInEnd:           req.CheckInEnd,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		MatchIntervalMinutes: req.MatchIntervalMinutes,
		SwissRounds:          req.SwissRounds,
		GrandFinalsReset:     req.GrandFinalsReset,
		Rules:                req.Rules,
		StreamURL:            req.StreamURL,
	}
	if req.RegistrationType != nil {
		rt := models.RegistrationType(*req.RegistrationType)
		input.RegistrationType = &rt
	}
	if req.Visibility != nil {
		vis := models.Visibility(*req.Visibility)
		input.Visibility = &vis
	}

	tournament, err := h.tournaments.UpdateTournamentDetails(r.Context(), id, actorID, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

type prizePoolRequest struct {
	Amount       float64         `json:"amount"`
	Currency     string          `json:"currency"`
	Distribution map[string]float64 `json:"distribution"`
}

func (h *TournamentHandler) ConfigurePrizePool(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	var req prizePoolRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	dist := make(models.PrizeDistribution, len(req.Distribution))
	for placementStr, pct := range req.Distribution {
		var placement int
		if _, err := fmt.Sscanf(placementStr, "%d", &placement); err != nil {
			badRequestResponse(w, fmt.Errorf("invalid placement key %q", placementStr))
			return
		}
		dist[placement] = pct
	}

	tournament, err := h.tournaments.ConfigurePrizePool(r.Context(), id, actorID, services.ConfigurePrizePoolInput{
		Amount:       req.Amount,
		Currency:     req.Currency,
		Distribution: dist,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
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
		Visibility string `json:"visibility"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.SetVisibility(r.Context(), id, actorID, models.Visibility(req.Visibility))
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) ConfigureStreaming(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
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
		StreamURL *string `json:"stream_url,omitempty"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.ConfigureStreaming(r.Context(), id, actorID, req.StreamURL)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Clone(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
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
		NewName string `json:"new_name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.CloneTournament(r.Context(), id, actorID, req.NewName)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) runTransition(w http.ResponseWriter, r *http.Request, action func(ctx_ context.Context, id, actorID int) (*models.Tournament, error)) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	tournament, err := action(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.tournaments.OpenRegistration)
}

func (h *TournamentHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.tournaments.CloseRegistration)
}

func (h *TournamentHandler) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.tournaments.StartCheckIn)
}

func (h *TournamentHandler) StartTournament(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.tournaments.StartTournament)
}

func (h *TournamentHandler) CompleteTournament(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.tournaments.CompleteTournament)
}

func (h *TournamentHandler) CancelTournament(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
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
	_ = readJSON(w, r, &req)

	tournament, err := h.tournaments.CancelTournament(r.Context(), id, actorID, req.Reason)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequestResponse(w, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, errors.New("content-type header is required for logo"))
		return
	}

	tournament, err := h.tournaments.UploadTournamentLogo(r.Context(), id, actorID, contentType, file)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	if err := h.tournaments.DeleteTournament(r.Context(), id, actorID); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
