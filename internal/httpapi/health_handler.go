package httpapi

import (
	"net/http"
	"time"

	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/execution"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Components: map[string]string{
			"event_store":      "ok",
			"risk_engine":      "ok",
			"execution_engine": "ok",
		},
	})
}

type systemMetricsResponse struct {
	execution.SystemMetrics
	RiskMetrics domain.RiskMetrics `json:"risk_metrics"`
	Timestamp   string             `json:"timestamp"`
}

func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, systemMetricsResponse{
		SystemMetrics: s.exec.Metrics(),
		RiskMetrics:   s.risk.Metrics(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	})
}
