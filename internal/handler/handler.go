// Package handler exposes the receipt-splitting API over plain net/http.
// Handlers stay thin: decode, delegate to a domain service, map the result
// or error back to JSON.
package handler

import (
	"net/http"

	"github.com/tabsplit/tabsplit/internal/domain/invite"
	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

// Handler wires the receipt and invite services to HTTP routes.
type Handler struct {
	receipts *receipt.Service
	invites  *invite.Service
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(receipts *receipt.Service, invites *invite.Service) *Handler {
	return &Handler{
		receipts: receipts,
		invites:  invites,
	}
}

// Routes returns the API route table. Health endpoints are mounted by the
// caller alongside this mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/receipts", h.createReceipt)
	mux.HandleFunc("GET /api/receipts/{id}", h.getReceipt)
	mux.HandleFunc("POST /api/receipts/{id}/upload-url", h.uploadURL)
	mux.HandleFunc("POST /api/receipts/{id}/process", h.processReceipt)
	mux.HandleFunc("PUT /api/receipts/{id}/selections", h.saveSelections)
	mux.HandleFunc("GET /api/receipts/{id}/split", h.getSplit)
	mux.HandleFunc("POST /api/receipts/{id}/invites", h.createInvites)
	mux.HandleFunc("GET /api/invites/{token}", h.getInvite)
	mux.HandleFunc("PUT /api/invites/{token}/selections", h.saveInviteSelections)

	return mux
}
