package handler

import (
	"net/http"
	"time"
)

type createInvitesRequest struct {
	Emails []string `json:"emails"`
}

type inviteResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type createInvitesResponse struct {
	Invites []inviteResponse `json:"invites"`
}

type inviteViewResponse struct {
	Email   string          `json:"email"`
	Status  string          `json:"status"`
	Receipt receiptResponse `json:"receipt"`
}

func (h *Handler) createInvites(w http.ResponseWriter, r *http.Request) {
	var req createInvitesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Emails) == 0 {
		respondError(w, http.StatusBadRequest, "emails required")
		return
	}

	invites, err := h.invites.Create(r.Context(), r.PathValue("id"), req.Emails)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := createInvitesResponse{Invites: make([]inviteResponse, len(invites))}
	for i, inv := range invites {
		resp.Invites[i] = inviteResponse{
			Token:     inv.Token,
			Email:     inv.Email,
			Link:      h.invites.Link(inv.Token),
			Status:    string(inv.Status),
			CreatedAt: inv.CreatedAt,
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// getInvite resolves a token to the invite and its receipt so the invitee
// can pick items without an account.
func (h *Handler) getInvite(w http.ResponseWriter, r *http.Request) {
	inv, rec, err := h.invites.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inviteViewResponse{
		Email:   inv.Email,
		Status:  string(inv.Status),
		Receipt: toReceiptResponse(rec),
	})
}

type inviteSelectionsRequest struct {
	Picks []pickRequest `json:"picks"`
}

// saveInviteSelections records the invitee's picks. The participant
// identity comes from the invite itself, never from the request body.
func (h *Handler) saveInviteSelections(w http.ResponseWriter, r *http.Request) {
	var req inviteSelectionsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, _, err := h.invites.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.receipts.SaveSelections(r.Context(), inv.ReceiptID, inv.Email, toPicks(req.Picks)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.invites.Accept(r.Context(), inv.Token); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
