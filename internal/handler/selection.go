package handler

import (
	"net/http"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

type saveSelectionsRequest struct {
	Participant string        `json:"participant"`
	Picks       []pickRequest `json:"picks"`
}

type pickRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// saveSelections replaces the participant's selections for a receipt.
// Submitting only zero quantities clears them.
func (h *Handler) saveSelections(w http.ResponseWriter, r *http.Request) {
	var req saveSelectionsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Participant == "" {
		respondError(w, http.StatusBadRequest, "participant required")
		return
	}

	err := h.receipts.SaveSelections(r.Context(), r.PathValue("id"), req.Participant, toPicks(req.Picks))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPicks(reqs []pickRequest) []receipt.Pick {
	picks := make([]receipt.Pick, len(reqs))
	for i, p := range reqs {
		picks[i] = receipt.Pick{ItemID: p.ItemID, Quantity: p.Quantity}
	}
	return picks
}
