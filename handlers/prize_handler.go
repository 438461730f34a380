package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney-engine/middleware"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/services"
)

type PrizeHandler struct {
	prizes services.PrizeService
}

func NewPrizeHandler(prizes services.PrizeService) *PrizeHandler {
	return &PrizeHandler{prizes: prizes}
}

type prizePoolEntryRequest struct {
	Placement        int      `json:"placement"`
	Amount           *float64 `json:"amount,omitempty"`
	PercentageOfPool *float64 `json:"percentage_of_pool,omitempty"`
	Type             string   `json:"type"`
}

func (h *PrizeHandler) SetupPool(w http.ResponseWriter, r *http.Request) {
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
		Entries []prizePoolEntryRequest `json:"entries"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	entries := make([]models.PrizePoolEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = models.PrizePoolEntry{
			Placement:        e.Placement,
			Amount:           e.Amount,
			PercentageOfPool: e.PercentageOfPool,
			Type:             models.PrizeType(e.Type),
		}
	}
	prizes, err := h.prizes.SetupPrizePool(r.Context(), tournamentID, actorID, entries)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"prizes": prizes}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Calculate(w http.ResponseWriter, r *http.Request) {
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
	prizes, err := h.prizes.CalculatePrizes(r.Context(), tournamentID, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prizes": prizes}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	prize, err := h.prizes.GetPrize(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.PrizeFilter{
		TournamentID: queryIntPtr(r, "tournament_id"),
		RecipientID:  queryIntPtr(r, "recipient_id"),
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Statuses = []models.PrizeStatus{models.PrizeStatus(v)}
	}
	prizes, total, err := h.prizes.ListPrizes(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prizes": prizes, "total_count": total}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	prizes, err := h.prizes.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prizes": prizes}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) ListByRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathInt(r, "recipientID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	prizes, err := h.prizes.ListByRecipient(r.Context(), recipientID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prizes": prizes}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) TotalEarnings(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathInt(r, "recipientID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	total, err := h.prizes.TotalEarnings(r.Context(), recipientID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"total_earnings": total}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	summary, err := h.prizes.PoolSummary(r.Context(), tournamentID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) CalculateTax(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
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
		TaxRate float64 `json:"tax_rate"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	prize, err := h.prizes.SetTaxRate(r.Context(), id, actorID, req.TaxRate)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	prize, err := h.prizes.DistributePrize(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) BulkDistribute(w http.ResponseWriter, r *http.Request) {
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
	verifiedOnly := queryBool(r, "verified_only", false)
	successful, failed, err := h.prizes.BulkDistribute(r.Context(), tournamentID, actorID, verifiedOnly)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"successful": successful, "failed": failed}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	prize, err := h.prizes.RetryPrize(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
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
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	prize, err := h.prizes.UpdateStatus(r.Context(), id, actorID, models.PrizeStatus(req.Status))
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) SetRecipientWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
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
		WalletID      string `json:"wallet_id"`
		WalletAddress string `json:"wallet_address"`
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	prize, err := h.prizes.SetRecipientWallet(r.Context(), id, actorID, req.WalletID, req.WalletAddress)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) VerifyRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	prize, err := h.prizes.VerifyRecipient(r.Context(), id, actorID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PrizeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "prizeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "failed to identify current user")
		return
	}
	if err := h.prizes.CancelPrize(r.Context(), id, actorID); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
