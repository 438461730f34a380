package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney-engine/middleware"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/services"
)

type RegistrationHandler struct {
	registrations services.RegistrationService
}

func NewRegistrationHandler(registrations services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

type registerIndividualRequest struct {
	TournamentID     int     `json:"tournament_id"`
	DisplayName      string  `json:"display_name"`
	MMR              *int    `json:"mmr,omitempty"`
	IdentityVerified bool    `json:"identity_verified"`
	Region           *string `json:"region,omitempty"`
	EntryFeePaid     bool    `json:"entry_fee_paid"`
}

func (h *RegistrationHandler) RegisterIndividual(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	var req registerIndividualRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.RegisterIndividual(r.Context(), models.RegisterIndividualInput{
		TournamentID:     req.TournamentID,
		ParticipantID:    actorID,
		DisplayName:      req.DisplayName,
		MMR:              req.MMR,
		IdentityVerified: req.IdentityVerified,
		Region:           req.Region,
		EntryFeePaid:     req.EntryFeePaid,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

type registerTeamRequest struct {
	TournamentID     int     `json:"tournament_id"`
	DisplayName      string  `json:"display_name"`
	TeamID           int     `json:"team_id"`
	TeamName         string  `json:"team_name"`
	TeamMemberIDs    []int   `json:"team_member_ids"`
	MMR              *int    `json:"mmr,omitempty"`
	IdentityVerified bool    `json:"identity_verified"`
	Region           *string `json:"region,omitempty"`
	EntryFeePaid     bool    `json:"entry_fee_paid"`
}

func (h *RegistrationHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	var req registerTeamRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.RegisterTeam(r.Context(), models.RegisterTeamInput{
		TournamentID:     req.TournamentID,
		ParticipantID:    actorID,
		DisplayName:      req.DisplayName,
		TeamID:           req.TeamID,
		TeamName:         req.TeamName,
		TeamMemberIDs:    req.TeamMemberIDs,
		MMR:              req.MMR,
		IdentityVerified: req.IdentityVerified,
		Region:           req.Region,
		EntryFeePaid:     req.EntryFeePaid,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	filter := models.RegistrationFilter{
		TournamentID: tournamentID,
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Statuses = []models.RegistrationStatus{models.RegistrationStatus(v)}
	}
	page, err := h.registrations.ListRegistrations(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, page); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.GetRegistrationByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) Waitlist(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	waitlist, err := h.registrations.GetWaitlist(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"waitlist": waitlist}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	registration, err := h.registrations.CancelRegistration(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) IssueRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.IssueRefund(r.Context(), services.IssueRefundInput{
		RegistrationID: id,
		Amount:         req.Amount,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.CheckIn(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.MarkNoShow(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		NewParticipantID int    `json:"new_participant_id"`
		DisplayName      string `json:"display_name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.Substitute(r.Context(), services.SubstituteInput{
		RegistrationID:   id,
		NewParticipantID: req.NewParticipantID,
		DisplayName:      req.DisplayName,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) SeedByMMR(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	registrations, err := h.registrations.SeedByMMR(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) SetManualSeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		Seed int `json:"seed"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	registration, err := h.registrations.SetManualSeed(r.Context(), services.SetManualSeedInput{
		RegistrationID: id,
		Seed:           req.Seed,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RegistrationHandler) SetBulkSeeds(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req struct {
		Seeds map[string]int `json:"seeds"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	seeds := make(map[int]int, len(req.Seeds))
	for k, v := range req.Seeds {
		regID, convErr := pathIntFromString(k)
		if convErr != nil {
			badRequestResponse(w, convErr)
			return
		}
		seeds[regID] = v
	}
	registrations, err := h.registrations.SetBulkSeeds(r.Context(), tournamentID, seeds)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}); err != nil {
		serverErrorResponse(w, err)
	}
}
