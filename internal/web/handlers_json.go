package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vitos/trailing_stop/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status.Status())
}

func (s *Server) handleListReplacements(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	if s.replacementRepo == nil {
		s.writeJSON(w, []*domain.ReplacementRecord{})
		return
	}

	records, err := s.replacementRepo.ListReplacements(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list replacements", zap.Error(err))
		http.Error(w, "Failed to list replacements", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*domain.ReplacementRecord{}
	}
	s.writeJSON(w, records)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	if s.tradeRepo == nil {
		s.writeJSON(w, []*domain.OrderTrade{})
		return
	}

	trades, err := s.tradeRepo.ListOrderTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list order trades", zap.Error(err))
		http.Error(w, "Failed to list order trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []*domain.OrderTrade{}
	}
	s.writeJSON(w, trades)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}
