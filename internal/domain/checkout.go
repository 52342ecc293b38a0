package domain

import "github.com/shopspring/decimal"

// CheckoutLineItem is one row of the manifest sent to the hosted-checkout
// session endpoint. Name and description come from the catalog, price and
// quantity from the cart line.
type CheckoutLineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

// CheckoutSession is what the backend hands back when a hosted session is
// created; URL points at the external payment page.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CheckoutSessionDetails is the backend's view of a session after the
// provider redirected the customer back.
type CheckoutSessionDetails struct {
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus string          `json:"paymentStatus"`
}

func (d CheckoutSessionDetails) Paid() bool {
	return d.PaymentStatus == "paid" || d.PaymentStatus == "complete"
}
