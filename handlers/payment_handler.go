package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

type topUpRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	balance, err := h.paymentService.Balance(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}

func (h *PaymentHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input topUpRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	balance, err := h.paymentService.TopUp(r.Context(), userID, input.Amount)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}
