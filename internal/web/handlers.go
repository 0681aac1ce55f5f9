package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req usecase.SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), req)
	switch res.Status {
	case usecase.StatusOK:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": res.Detail})
	case usecase.StatusSkipped:
		if res.Reason == usecase.ReasonDuplicate {
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "skipped", "reason": res.Reason})
	default:
		s.logger.Error("Signal handling failed", zap.Error(res.Err))
		writeJSON(w, statusFor(res.Err), map[string]any{"error": res.Err.Error()})
	}
}

// statusFor maps the error taxonomy onto HTTP codes: validation failures are
// the caller's fault, data-fetch failures are a bad gateway, order rejections
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSignal):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.book.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"monitor": s.monitor.State(),
		"position": map[string]any{
			"direction":   snap.Direction,
			"quantity":    snap.Quantity,
			"entry_price": snap.EntryPrice,
			"opened_at":   snap.OpenedAt,
		},
		"dedup_entries": s.dedup.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
