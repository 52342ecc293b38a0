package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type lineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

type createSessionRequest struct {
	UserID        int64      `json:"userId"`
	CartID        int64      `json:"cartId"`
	CustomerEmail string     `json:"customerEmail"`
	LineItems     []lineItem `json:"lineItems"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.LineItems) == 0 {
		respondValidation(w, map[string][]string{"lineItems": {"at least one line item is required"}})
		return
	}
	if !s.mustOwn(w, r, req.UserID) {
		return
	}

	total := decimal.Zero
	for _, line := range req.LineItems {
		total = total.Add(line.Amount.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	session := &checkoutSession{
		ID:            "cs_" + uuid.NewString(),
		UserID:        req.UserID,
		CartID:        req.CartID,
		CustomerEmail: req.CustomerEmail,
		TotalAmount:   total,
		PaymentStatus: "unpaid",
	}
	s.store.saveSession(session)

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: session.ID,
		URL:       fmt.Sprintf("%s://%s/StripeCheckout/hosted/%s", scheme(r), r.Host, session.ID),
	})
}

// handleHostedPage stands in for the external payment provider: it marks the
// session paid and sends the customer back to the storefront's success URL,
// which is exactly what completing the real hosted page does.
func (s *Server) handleHostedPage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.store.markSessionPaid(sessionID); err != nil {
		respondMessage(w, http.StatusNotFound, "unknown checkout session")
		return
	}

	target := fmt.Sprintf("%s/checkout/success?session_id=%s", s.cfg.FrontendBaseURL, sessionID)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type sessionDetailsResponse struct {
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus string          `json:"paymentStatus"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.session(chi.URLParam(r, "sessionID"))
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "unknown checkout session")
		return
	}
	if !s.mustOwn(w, r, session.UserID) {
		return
	}

	respondJSON(w, http.StatusOK, sessionDetailsResponse{
		CustomerEmail: session.CustomerEmail,
		TotalAmount:   session.TotalAmount,
		PaymentStatus: session.PaymentStatus,
	})
}

type confirmPaymentRequest struct {
	SessionID     string          `json:"sessionId"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !s.mustOwn(w, r, userID) {
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		respondMessage(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	session, err := s.store.session(req.SessionID)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "unknown checkout session")
		return
	}
	if session.PaymentStatus != "paid" {
		respondMessage(w, http.StatusBadRequest, "session is not paid")
		return
	}

	order, err := s.store.confirmOrder(userID, req.SessionID, session.CustomerEmail, session.TotalAmount)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !s.mustOwn(w, r, userID) {
		return
	}

	orders := s.store.ordersForUser(userID)
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := s.store.orderByID(orderID)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "order not found")
		return
	}
	if !s.mustOwn(w, r, order.UserID) {
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
