package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/itirp/gateway/internal/apierr"
	"github.com/itirp/gateway/internal/domain"
)

type eventsResponse struct {
	Events []domain.ReplayEvent `json:"events"`
	Total  int                  `json:"total"`
}

func (s *Server) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, apierr.New(apierr.KindValidationFailed, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	recent := s.store.GetRecent(limit)
	out := make([]domain.ReplayEvent, len(recent))
	for i, e := range recent {
		out[i] = e.ToReplay()
	}

	writeJSON(w, http.StatusOK, eventsResponse{Events: out, Total: len(out)})
}

type correlationTrailResponse struct {
	CorrelationID string               `json:"correlation_id"`
	Events        []domain.ReplayEvent `json:"events"`
	TotalEvents   int                  `json:"total_events"`
}

func (s *Server) handleAuditCorrelation(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	events := s.store.Replay(cid)
	if len(events) == 0 {
		writeError(w, apierr.New(apierr.KindNotFound, "no events for correlation id"))
		return
	}

	writeJSON(w, http.StatusOK, correlationTrailResponse{
		CorrelationID: cid,
		Events:        events,
		TotalEvents:   len(events),
	})
}

type orderTrailResponse struct {
	OrderID     string               `json:"order_id"`
	Events      []domain.ReplayEvent `json:"events"`
	TotalEvents int                  `json:"total_events"`
}

func (s *Server) handleAuditOrderTrail(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "oid")

	raw := s.store.GetByOrder(orderID)
	if len(raw) == 0 {
		writeError(w, apierr.New(apierr.KindNotFound, "no events for order id"))
		return
	}

	events := make([]domain.ReplayEvent, len(raw))
	for i, e := range raw {
		events[i] = e.ToReplay()
	}

	writeJSON(w, http.StatusOK, orderTrailResponse{
		OrderID:     orderID,
		Events:      events,
		TotalEvents: len(events),
	})
}
