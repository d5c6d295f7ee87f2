package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/storage"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	s.writeJSON(w, status, resp)
}

// writeDomainError maps service errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidRate),
		errors.Is(err, common.ErrMalformedRate),
		errors.Is(err, storage.ErrEmptyString):
		s.writeError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, common.ErrMetadataServer), errors.Is(err, common.ErrMaxRetries):
		s.writeError(w, http.StatusBadGateway, "metadata service unavailable", err)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}
