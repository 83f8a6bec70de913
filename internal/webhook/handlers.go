package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidybook/tidybook/internal/assistant"
	"github.com/tidybook/tidybook/internal/llm"
	"github.com/tidybook/tidybook/internal/store"
)

type messageRequest struct {
	TenantID string `json:"tenant_id"`
	From     struct {
		Phone string `json:"phone"`
		Name  string `json:"name,omitempty"`
	} `json:"from"`
	Text string `json:"text"`
}

type messageResponse struct {
	Reply          string    `json:"reply"`
	ConversationID string    `json:"conversation_id"`
	Usage          llm.Usage `json:"usage"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.TenantID == "" || req.From.Phone == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant_id, from.phone and text are required"})
		return
	}

	result, err := s.proc.Process(r.Context(), assistant.Request{
		TenantID:      req.TenantID,
		CustomerPhone: req.From.Phone,
		CustomerName:  req.From.Name,
		Text:          req.Text,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Reply:          result.Reply,
		ConversationID: result.ConversationID,
		Usage:          result.Usage,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var provErr *llm.ProviderError
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "tenant not found"})
	case errors.As(err, &provErr):
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("provider failure")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "assistant is temporarily unavailable"})
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("message processing failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
