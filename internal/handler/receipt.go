package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

type createReceiptRequest struct {
	Owner    string           `json:"owner"`
	Merchant string           `json:"merchant"`
	Currency string           `json:"currency"`
	TaxRate  *decimal.Decimal `json:"taxRate"`
	TipRate  *decimal.Decimal `json:"tipRate"`
}

type receiptResponse struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Merchant  string          `json:"merchant"`
	Currency  string          `json:"currency"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	TipRate   decimal.Decimal `json:"tipRate"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	Items     []itemResponse  `json:"items"`
}

type itemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Category    string          `json:"category,omitempty"`
}

type uploadURLRequest struct {
	ContentType string `json:"contentType"`
}

type uploadURLResponse struct {
	URL string `json:"url"`
}

type shareResponse struct {
	Participant string          `json:"participant"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Tip         decimal.Decimal `json:"tip"`
	Total       decimal.Decimal `json:"total"`
}

type splitResponse struct {
	Shares []shareResponse `json:"shares"`
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" {
		respondError(w, http.StatusBadRequest, "owner required")
		return
	}

	rec, err := h.receipts.Create(r.Context(), receipt.CreateRequest{
		Owner:    req.Owner,
		Merchant: req.Merchant,
		Currency: req.Currency,
		TaxRate:  req.TaxRate,
		TipRate:  req.TipRate,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toReceiptResponse(rec))
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := h.receipts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReceiptResponse(rec))
}

func (h *Handler) uploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := h.receipts.UploadURL(r.Context(), r.PathValue("id"), req.ContentType)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, uploadURLResponse{URL: url})
}

func (h *Handler) processReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := h.receipts.Process(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReceiptResponse(rec))
}

// getSplit recomputes the split from all saved selections and returns it.
// A receipt with nothing selected yields an empty share list, not an error.
func (h *Handler) getSplit(w http.ResponseWriter, r *http.Request) {
	shares, err := h.receipts.ComputeSplit(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := splitResponse{Shares: make([]shareResponse, len(shares))}
	for i, sh := range shares {
		resp.Shares[i] = shareResponse{
			Participant: sh.Participant,
			Subtotal:    sh.Subtotal,
			Tax:         sh.Tax,
			Tip:         sh.Tip,
			Total:       sh.Total,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func toReceiptResponse(rec *receipt.Receipt) receiptResponse {
	items := make([]itemResponse, len(rec.Items))
	for i, it := range rec.Items {
		items[i] = itemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
			Category:    it.Category,
		}
	}
	return receiptResponse{
		ID:        rec.ID,
		Owner:     rec.Owner,
		Merchant:  rec.Merchant,
		Currency:  rec.Currency,
		TaxRate:   rec.TaxRate,
		TipRate:   rec.TipRate,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt,
		Items:     items,
	}
}
