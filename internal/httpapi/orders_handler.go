package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/itirp/gateway/internal/apierr"
	"github.com/itirp/gateway/internal/domain"
	"github.com/itirp/gateway/internal/execution"
)

type orderRequest struct {
	Symbol        string          `json:"symbol" validate:"required,min=1,max=20"`
	Side          domain.Side     `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	Strategy      string          `json:"strategy" validate:"max=50"`
	ClientOrderID string          `json:"client_order_id"`
}

type orderResponse struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidationFailed, "malformed request body", err))
		return
	}

	if req.Strategy == "" {
		req.Strategy = "default"
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidationFailed, "invalid order request", err))
		return
	}
	if !req.Quantity.IsPositive() {
		writeError(w, apierr.New(apierr.KindValidationFailed, "quantity must be positive"))
		return
	}
	if !req.Price.IsPositive() {
		writeError(w, apierr.New(apierr.KindValidationFailed, "price must be positive"))
		return
	}

	claims, _ := claimsFrom(r.Context())

	result, err := s.exec.Submit(execution.SubmitRequest{
		UserID:        claims.UserID,
		Symbol:        strings.ToUpper(req.Symbol),
		Side:          req.Side,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Strategy:      req.Strategy,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderResponse{
		OrderID:       result.OrderID,
		CorrelationID: result.CorrelationID,
		Status:        string(result.Status),
		Message:       result.Message,
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	order, ok := s.exec.GetOrder(orderID)
	if !ok {
		writeError(w, apierr.New(apierr.KindNotFound, "order not found"))
		return
	}

	writeJSON(w, http.StatusOK, projectOrder(order))
}

type ordersListResponse struct {
	Orders []orderProjection `json:"orders"`
	Total  int               `json:"total"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.exec.ListOrders()

	out := make([]orderProjection, len(orders))
	for i, order := range orders {
		out[i] = projectOrder(order)
	}

	writeJSON(w, http.StatusOK, ordersListResponse{Orders: out, Total: len(out)})
}

type orderProjection struct {
	OrderID         string          `json:"order_id"`
	CorrelationID   string          `json:"correlation_id"`
	Symbol          string          `json:"symbol"`
	Side            domain.Side     `json:"side"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Strategy        string          `json:"strategy"`
	Status          string          `json:"status"`
	ExecutedQty     decimal.Decimal `json:"executed_quantity"`
	ExecutedPrice   *decimal.Decimal `json:"executed_price,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	RetryCount      int             `json:"retry_count"`
	CreatedAt       string          `json:"created_at"`
}

func projectOrder(order *domain.Order) orderProjection {
	proj := orderProjection{
		OrderID:         order.OrderID,
		CorrelationID:   order.CorrelationID,
		Symbol:          order.Symbol,
		Side:            order.Side,
		Quantity:        order.Quantity,
		Price:           order.Price,
		Strategy:        order.Strategy,
		Status:          string(order.Status),
		ExecutedQty:     order.ExecutedQty,
		RejectionReason: order.RejectionReason,
		RetryCount:      order.RetryCount,
		CreatedAt:       order.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if order.HasExecPrice {
		proj.ExecutedPrice = &order.ExecutedPrice
	}
	return proj
}
