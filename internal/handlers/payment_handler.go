package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pagsplit/backend/internal/middleware"
	"github.com/pagsplit/backend/internal/services"
)

// PaymentHandler adapts the payment confirmation core to HTTP.
type PaymentHandler struct {
	payments  *services.PaymentService
	quotes    *services.QuoteService
	validator *services.ValidationHelper
}

func NewPaymentHandler(payments *services.PaymentService, quotes *services.QuoteService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		quotes:    quotes,
		validator: services.NewValidationHelper(),
	}
}

type splitRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Role        string `json:"role" validate:"required"`
	Percent     int    `json:"percent" validate:"required,min=1,max=100"`
}

type confirmPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=pix card"`
	Installments  int             `json:"installments" validate:"required,min=1"`
	Splits        []splitRequest  `json:"splits" validate:"required,min=1,max=5,dive"`
}

type quoteRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=pix card"`
	Installments  int             `json:"installments" validate:"required,min=1"`
}

// ConfirmPayment confirms a payment
// @Summary Confirm a payment
// @Description Compute fees and splits, persist the payment with its ledger entries and outbox event, idempotently per Idempotency-Key
// @Tags payments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payment body confirmPaymentRequest true "Payment data"
// @Success 201 {object} services.PaymentResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := middleware.IdempotencyKeyFromContext(r.Context())
	if idempotencyKey == "" {
		services.SendErrorResponse(w, "Idempotency-Key header is required", http.StatusBadRequest, nil)
		return
	}

	var req confirmPaymentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if msg := validateAmount(req.Amount); msg != "" {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}

	if req.Currency != "BRL" {
		services.SendErrorResponse(w, "Only BRL is supported", http.StatusBadRequest, nil)
		return
	}

	totalPercent := 0
	splits := make([]services.SplitInput, 0, len(req.Splits))
	for _, split := range req.Splits {
		totalPercent += split.Percent
		splits = append(splits, services.SplitInput{
			RecipientID: split.RecipientID,
			Role:        split.Role,
			Percent:     split.Percent,
		})
	}
	if totalPercent != 100 {
		services.SendErrorResponse(w, "Split percentages must sum to 100", http.StatusBadRequest, nil)
		return
	}

	result, err := h.payments.ConfirmPayment(r.Context(), services.ConfirmPaymentInput{
		IdempotencyKey: idempotencyKey,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethod,
		Installments:   req.Installments,
		Splits:         splits,
	})
	if err != nil {
		h.sendServiceError(w, err, "Failed to process payment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// Quote returns a pre-checkout fee estimate
// @Summary Quote a checkout
// @Description Compute gross/fee/net for a payment method and installment count, without persisting anything
// @Tags payments
// @Accept json
// @Produce json
// @Param quote body quoteRequest true "Quote data"
// @Success 200 {object} services.CalculationResult
// @Failure 400 {object} services.ErrorResponse
// @Router /checkout/quote [post]
func (h *PaymentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if msg := validateAmount(req.Amount); msg != "" {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}

	result, err := h.quotes.Quote(req.Amount, req.PaymentMethod, req.Installments)
	if err != nil {
		h.sendServiceError(w, err, "Failed to quote checkout")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetPayment retrieves a captured payment
// @Summary Get payment by ID
// @Description Retrieve a payment with its receivables and latest outbox event
// @Tags payments
// @Produce json
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} services.PaymentResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /payments/{paymentId} [get]
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")

	result, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.sendServiceError(w, err, "Failed to fetch payment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *PaymentHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	return true
}

func (h *PaymentHandler) sendServiceError(w http.ResponseWriter, err error, fallback string) {
	status := services.DomainErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Store errors stay opaque; retrying the identical request is safe.
		message = fallback
	}
	services.SendErrorResponse(w, message, status, nil)
}

func validateAmount(amount decimal.Decimal) string {
	if !amount.IsPositive() {
		return "Amount must be greater than zero"
	}
	if amount.Exponent() < -2 {
		return "Amount must have at most 2 decimal places"
	}
	return ""
}
