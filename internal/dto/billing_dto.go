package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateCheckoutRequest struct {
	PriceID string `json:"price_id"`
	PlanID  string `json:"plan_id"`
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	Reused      bool   `json:"reused"`
}

type PaymentStatusResponse struct {
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
	Complete      bool   `json:"complete"`
}

type ConfirmPaymentRequest struct {
	SessionID string `json:"session_id"`
	PlanID    string `json:"plan_id"`
}

type ConfirmPaymentResponse struct {
	Confirmed    bool                  `json:"confirmed"`
	Source       string                `json:"source"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
}

type PlanResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	StripePriceID string    `json:"stripe_price_id"`
	PriceCents    int64     `json:"price_cents"`
	Interval      string    `json:"interval"`
	Features      []string  `json:"features"`
}

type SubscriptionResponse struct {
	ID                uuid.UUID    `json:"id"`
	Status            string       `json:"status"`
	CurrentPeriodEnd  *time.Time   `json:"current_period_end"`
	CancelAtPeriodEnd bool         `json:"cancel_at_period_end"`
	Plan              PlanResponse `json:"plan"`
}
