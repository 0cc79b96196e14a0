package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tabsplit/tabsplit/internal/domain/invite"
	"github.com/tabsplit/tabsplit/internal/domain/receipt"
)

// errorResponse is the JSON envelope for all API errors.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors to status codes. Anything
// unrecognized is logged and surfaced as a 500 without leaking internals.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, receipt.ErrNotFound):
		respondError(w, http.StatusNotFound, "receipt not found")
	case errors.Is(err, invite.ErrNotFound):
		respondError(w, http.StatusNotFound, "invite not found")
	case errors.Is(err, receipt.ErrNotUploaded):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, invite.ErrInvalidEmail):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		var unknownItem *receipt.UnknownItemError
		if errors.As(err, &unknownItem) {
			respondError(w, http.StatusUnprocessableEntity, unknownItem.Error())
			return
		}
		var blocked *invite.BlockedDomainError
		if errors.As(err, &blocked) {
			respondError(w, http.StatusUnprocessableEntity, blocked.Error())
			return
		}
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}
