package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itirp/gateway/internal/apierr"
	"github.com/itirp/gateway/internal/domain"
)

func (s *Server) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.risk.Metrics())
}

type positionsResponse struct {
	Positions      []positionProjection `json:"positions"`
	TotalPositions int                  `json:"total_positions"`
}

type positionProjection struct {
	domain.Position
	MarketValue string `json:"market_value"`
}

func (s *Server) handleRiskPositions(w http.ResponseWriter, r *http.Request) {
	positions := s.risk.Positions()

	out := make([]positionProjection, len(positions))
	for i, pos := range positions {
		out[i] = positionProjection{Position: pos, MarketValue: pos.MarketValue().String()}
	}

	writeJSON(w, http.StatusOK, positionsResponse{Positions: out, TotalPositions: len(out)})
}

func (s *Server) handleGetRiskLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.risk.Limits())
}

func (s *Server) handleUpdateRiskLimits(w http.ResponseWriter, r *http.Request) {
	var limits domain.RiskLimitsConfig
	if err := json.NewDecoder(r.Body).Decode(&limits); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidationFailed, "malformed request body", err))
		return
	}
	for _, v := range []decimal.Decimal{limits.MaxPositionSize, limits.MaxDailyVolume, limits.MaxNetExposure, limits.MaxGrossExposure} {
		if v.IsNegative() {
			writeError(w, apierr.New(apierr.KindValidationFailed, "risk limits must be non-negative"))
			return
		}
	}

	s.risk.SetConfig(limits)
	writeJSON(w, http.StatusOK, s.risk.Limits())
}

type killSwitchResponse struct {
	KillSwitchEnabled bool   `json:"kill_switch_enabled"`
	Message           string `json:"message"`
	Timestamp         string `json:"timestamp"`
}

func (s *Server) handleKillSwitch(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, apierr.New(apierr.KindValidationFailed, "enabled query parameter must be a boolean"))
		return
	}

	s.risk.SetKillSwitch(enabled)

	message := "Kill switch deactivated"
	if enabled {
		message = "Kill switch activated - all trading halted"
	}

	writeJSON(w, http.StatusOK, killSwitchResponse{
		KillSwitchEnabled: enabled,
		Message:           message,
		Timestamp:         time.Now().UTC().Format(time.RFC3339Nano),
	})
}
