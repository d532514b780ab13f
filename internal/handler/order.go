package handler

import (
	"net/http"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	marketSvc *service.MarketService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(marketSvc *service.MarketService) *OrderHandler {
	return &OrderHandler{marketSvc: marketSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	Instrument string `json:"instrument"`
	Amount     int64  `json:"amount"`
}

// settlementResponse is the JSON response for an accepted order.
type settlementResponse struct {
	OrderID    string `json:"order_id"`
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Amount     int64  `json:"amount"`
	Price      string `json:"price"`
	Cost       string `json:"cost"`
	Quantity   int64  `json:"quantity"`
	Cash       string `json:"cash"`
	SettledAt  string `json:"settled_at"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	settlement, err := h.marketSvc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		Instrument: req.Instrument,
		Amount:     req.Amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildSettlementResponse(settlement))
}

func buildSettlementResponse(s domain.Settlement) settlementResponse {
	return settlementResponse{
		OrderID:    s.OrderID,
		Instrument: s.Instrument,
		Side:       s.Side(),
		Amount:     s.Amount,
		Price:      s.Price.String(),
		Cost:       s.Cost.String(),
		Quantity:   s.Quantity,
		Cash:       s.Cash.String(),
		SettledAt:  formatTime(s.SettledAt),
	}
}
