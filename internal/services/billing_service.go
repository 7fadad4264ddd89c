package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/consultbridge/backend/internal/config"
	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/customer"
	"github.com/stripe/stripe-go/v72/price"
	stripesub "github.com/stripe/stripe-go/v72/sub"
	"gorm.io/gorm"
)

var (
	ErrNoPrice        = errors.New("no price configured for checkout")
	ErrPlanNotFound   = errors.New("plan not found")
	ErrNoSubscription = errors.New("no subscription found for this account")
	ErrNotPaid        = errors.New("payment has not completed")
)

// BillingService owns everything Stripe: checkout sessions, webhook event
// processing, and the local subscription mirror. Every subscription write
// goes through upsertSubscription so replayed webhooks stay idempotent.
type BillingService struct {
	db         *gorm.DB
	cfg        *config.Config
	onboarding *OnboardingService
}

func NewBillingService(db *gorm.DB, cfg *config.Config, onboarding *OnboardingService) *BillingService {
	stripe.Key = cfg.StripeSecretKey
	return &BillingService{db: db, cfg: cfg, onboarding: onboarding}
}

// Plans returns active plans from the DB, falling back to a static catalog
// when seeding has not run so the pricing page is never empty.
func (s *BillingService) Plans() ([]dto.PlanResponse, error) {
	var plans []models.Plan
	err := s.db.Where("is_active = ?", true).Order("price_cents ASC").Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	if len(plans) == 0 {
		return staticPlans(), nil
	}

	out := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, planResponse(&plans[i]))
	}
	return out, nil
}

// CreateCheckout creates (or reuses) a Stripe Checkout session for the given
// price. An open session for the same customer and price is returned instead
// of creating a duplicate.
func (s *BillingService) CreateCheckout(userID uuid.UUID, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error) {
	priceID, err := s.resolvePriceID(req)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	customerID, err := s.getOrCreateCustomer(&user)
	if err != nil {
		return nil, err
	}

	if existing := s.findOpenSession(customerID, priceID); existing != nil {
		slog.Info("reusing open checkout session", "component", "billing",
			"user_id", userID, "session_id", existing.ID)
		return &dto.CheckoutSessionResponse{
			SessionID:   existing.ID,
			CheckoutURL: existing.URL,
			Reused:      true,
		}, nil
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.cfg.FrontendURL + "/onboarding/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "/onboarding/payment"),
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("onboarding", "true")

	cs, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if _, err := s.onboarding.UpdatePaymentInfo(userID, &dto.PaymentInfoRequest{
		SessionID: cs.ID,
		PriceID:   priceID,
	}); err != nil {
		slog.Error("failed to record checkout in onboarding", "component", "billing",
			"user_id", userID, "error", err)
	}

	slog.Info("checkout session created", "component", "billing",
		"user_id", userID, "session_id", cs.ID)
	return &dto.CheckoutSessionResponse{SessionID: cs.ID, CheckoutURL: cs.URL}, nil
}

// HandleEvent dispatches a verified webhook event. Unknown event types are
// logged and acknowledged so Stripe stops retrying them.
func (s *BillingService) HandleEvent(event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(&cs)
	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to decode invoice: %w", err)
		}
		return s.handleInvoicePaid(&inv)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(&sub)
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("failed to decode payment intent: %w", err)
		}
		return s.handlePaymentIntent(&pi)
	default:
		slog.Info("ignoring webhook event", "component", "billing", "type", event.Type)
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(cs *stripe.CheckoutSession) error {
	user, err := s.userForSession(cs)
	if err != nil {
		return err
	}

	if cs.Subscription == nil {
		slog.Error("checkout completed without subscription", "component", "billing",
			"action", "checkout.session.completed", "session_id", cs.ID)
		return nil
	}

	stripeSub, err := stripesub.Get(cs.Subscription.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", cs.Subscription.ID, err)
	}

	return s.applyStripeSubscription(user, stripeSub, "checkout.session.completed")
}

func (s *BillingService) handleInvoicePaid(inv *stripe.Invoice) error {
	if inv.Subscription == nil {
		return nil
	}

	var local models.Subscription
	err := s.db.Where("stripe_subscription_id = ?", inv.Subscription.ID).First(&local).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Renewal for a subscription created outside the webhook flow;
		// rebuild it from Stripe.
		stripeSub, serr := stripesub.Get(inv.Subscription.ID, nil)
		if serr != nil {
			return fmt.Errorf("failed to fetch subscription %s: %w", inv.Subscription.ID, serr)
		}
		user, uerr := s.userByCustomer(customerID(inv.Customer))
		if uerr != nil {
			return uerr
		}
		return s.applyStripeSubscription(user, stripeSub, "invoice.payment_succeeded")
	}
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	periodEnd := local.CurrentPeriodEnd
	if inv.Lines != nil && len(inv.Lines.Data) > 0 {
		last := inv.Lines.Data[len(inv.Lines.Data)-1]
		if last.Period != nil {
			end := time.Unix(last.Period.End, 0)
			periodEnd = &end
		}
	}
	return s.upsertSubscription(local.UserID, local.PlanID, models.SubscriptionActive, inv.Subscription.ID, periodEnd)
}

// handleSubscriptionDeleted marks the local mirror canceled. An unknown
// subscription id is logged and acknowledged, not retried.
func (s *BillingService) handleSubscriptionDeleted(sub *stripe.Subscription) error {
	var local models.Subscription
	err := s.db.Where("stripe_subscription_id = ?", sub.ID).First(&local).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Info("subscription.deleted for unknown subscription", "component", "billing",
			"stripe_subscription_id", sub.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	return s.upsertSubscription(local.UserID, local.PlanID, models.SubscriptionCanceled, sub.ID, local.CurrentPeriodEnd)
}

// handlePaymentIntent is the fallback completion signal for flows where the
// session event was missed. Only onboarding metadata is acted on.
func (s *BillingService) handlePaymentIntent(pi *stripe.PaymentIntent) error {
	userIDStr := pi.Metadata["user_id"]
	if userIDStr == "" {
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	if err := s.onboarding.MarkComplete(userID, "payment_intent.succeeded"); err != nil {
		slog.Error("failed to complete onboarding from payment intent", "component", "billing",
			"user_id", userID, "error", err)
	}
	return nil
}

// CheckPaymentStatus polls a checkout session for the frontend's success page.
func (s *BillingService) CheckPaymentStatus(sessionID string) (*dto.PaymentStatusResponse, error) {
	cs, err := session.Get(sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	return &dto.PaymentStatusResponse{
		SessionID:     cs.ID,
		PaymentStatus: string(cs.PaymentStatus),
		Status:        string(cs.Status),
		Complete:      cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}

// ConfirmPayment settles the frontend's "did my payment go through" question
// with layered fallbacks: the session itself, the local mirror, the
// customer's live Stripe subscriptions, and finally the client-supplied plan
// id, which is trusted and granted directly.
func (s *BillingService) ConfirmPayment(userID uuid.UUID, req *dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	if req.SessionID != "" {
		cs, err := session.Get(req.SessionID, nil)
		if err == nil && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			if cs.Subscription != nil {
				stripeSub, serr := stripesub.Get(cs.Subscription.ID, nil)
				if serr == nil {
					if aerr := s.applyStripeSubscription(&user, stripeSub, "confirm"); aerr == nil {
						return s.confirmResponse(userID, "session")
					}
				}
			}
			// Paid session but no resolvable subscription: keep access
			// working and let the next webhook reconcile the details.
			if eerr := s.emergencySubscription(&user); eerr == nil {
				return s.confirmResponse(userID, "emergency")
			}
		}
	}

	var local models.Subscription
	err := s.db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		First(&local).Error
	if err == nil && local.IsActive() {
		return s.confirmResponse(userID, "database")
	}

	if user.StripeCustomerID != "" {
		params := &stripe.SubscriptionListParams{Customer: user.StripeCustomerID}
		params.Filters.AddFilter("status", "", "active")
		iter := stripesub.List(params)
		for iter.Next() {
			stripeSub := iter.Subscription()
			if aerr := s.applyStripeSubscription(&user, stripeSub, "confirm"); aerr == nil {
				return s.confirmResponse(userID, "stripe")
			}
		}
	}

	if req.PlanID != "" {
		if plan, perr := s.trustedPlan(req.PlanID); perr == nil {
			slog.Info("granting subscription from client plan id", "component", "billing",
				"user_id", userID, "plan", plan.Slug)
			periodEnd := time.Now().AddDate(0, 0, 30)
			if uerr := s.upsertSubscription(userID, plan.ID, models.SubscriptionActive, "", &periodEnd); uerr == nil {
				if merr := s.onboarding.MarkComplete(userID, "confirm_plan"); merr != nil {
					slog.Error("failed to complete onboarding from plan confirmation", "component", "billing",
						"user_id", userID, "error", merr)
				}
				return s.confirmResponse(userID, "plan")
			}
		}
	}

	return &dto.ConfirmPaymentResponse{Confirmed: false, Source: "none"}, nil
}

// trustedPlan resolves a client-supplied plan reference: a local plan id, a
// plan slug, or a Stripe price id that is mirrored into a plan on the fly.
func (s *BillingService) trustedPlan(ref string) (*models.Plan, error) {
	if planID, err := uuid.Parse(ref); err == nil {
		var plan models.Plan
		if err := s.db.First(&plan, "id = ?", planID).Error; err != nil {
			return nil, ErrPlanNotFound
		}
		return &plan, nil
	}

	var plan models.Plan
	if err := s.db.Where("slug = ?", ref).First(&plan).Error; err == nil {
		return &plan, nil
	}
	return s.resolvePlan(ref)
}

// UserSubscription returns the account's current subscription with its plan.
func (s *BillingService) UserSubscription(userID uuid.UUID) (*dto.SubscriptionResponse, error) {
	var local models.Subscription
	err := s.db.Preload("Plan").Where("user_id = ?", userID).First(&local).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	resp := subscriptionResponse(&local)
	return &resp, nil
}

// applyStripeSubscription mirrors a live Stripe subscription locally and
// completes onboarding for the account.
func (s *BillingService) applyStripeSubscription(user *models.User, stripeSub *stripe.Subscription, source string) error {
	if len(stripeSub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", stripeSub.ID)
	}

	plan, err := s.resolvePlan(stripeSub.Items.Data[0].Price.ID)
	if err != nil {
		return err
	}

	status := models.SubscriptionActive
	if stripeSub.Status == stripe.SubscriptionStatusPastDue {
		status = models.SubscriptionPastDue
	}

	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)
	if err := s.upsertSubscription(user.ID, plan.ID, status, stripeSub.ID, &periodEnd); err != nil {
		return err
	}

	if err := s.onboarding.MarkComplete(user.ID, source); err != nil {
		slog.Error("failed to complete onboarding after payment", "component", "billing",
			"user_id", user.ID, "error", err)
	}
	return nil
}

// emergencySubscription grants the default plan for 30 days when Stripe shows
// a paid session that could not be resolved to a subscription.
func (s *BillingService) emergencySubscription(user *models.User) error {
	var plan models.Plan
	err := s.db.Where("is_active = ?", true).Order("price_cents ASC").First(&plan).Error
	if err != nil {
		return fmt.Errorf("no plan available for emergency subscription: %w", err)
	}

	slog.Error("creating emergency subscription", "component", "billing",
		"action", "confirm_payment", "user_id", user.ID)

	periodEnd := time.Now().AddDate(0, 0, 30)
	if err := s.upsertSubscription(user.ID, plan.ID, models.SubscriptionActive, "", &periodEnd); err != nil {
		return err
	}
	return s.onboarding.MarkComplete(user.ID, "emergency")
}

// upsertSubscription is the single write path for the subscription mirror,
// keyed on the owning account.
func (s *BillingService) upsertSubscription(userID, planID uuid.UUID, status, stripeSubID string, periodEnd *time.Time) error {
	var existing models.Subscription
	err := s.db.Where("user_id = ?", userID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := models.Subscription{
			ID:                   uuid.New(),
			UserID:               userID,
			PlanID:               planID,
			Status:               status,
			StripeSubscriptionID: stripeSubID,
			CurrentPeriodEnd:     periodEnd,
		}
		if cerr := s.db.Create(&record).Error; cerr != nil {
			return fmt.Errorf("failed to create subscription: %w", cerr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	updates := map[string]interface{}{
		"plan_id": planID,
		"status":  status,
	}
	if stripeSubID != "" {
		updates["stripe_subscription_id"] = stripeSubID
	}
	if periodEnd != nil {
		updates["current_period_end"] = *periodEnd
	}
	if uerr := s.db.Model(&existing).Updates(updates).Error; uerr != nil {
		return fmt.Errorf("failed to update subscription: %w", uerr)
	}
	return nil
}

// resolvePlan maps a Stripe price to a local plan, creating one on the fly
// for prices added in the Stripe dashboard but never seeded.
func (s *BillingService) resolvePlan(priceID string) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.Where("stripe_price_id = ?", priceID).First(&plan).Error
	if err == nil {
		return &plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up plan: %w", err)
	}

	p, perr := price.Get(priceID, nil)
	if perr != nil {
		return nil, fmt.Errorf("failed to fetch price %s: %w", priceID, perr)
	}

	name := p.Nickname
	if name == "" {
		name = "Subscription"
	}
	interval := "month"
	if p.Recurring != nil {
		interval = string(p.Recurring.Interval)
	}

	short := priceID
	if len(short) > 8 {
		short = short[len(short)-8:]
	}
	plan = models.Plan{
		ID:            uuid.New(),
		Name:          name,
		Slug:          slug.Make("auto-" + short),
		StripePriceID: priceID,
		PriceCents:    p.UnitAmount,
		Interval:      interval,
		IsActive:      true,
	}
	if cerr := s.db.Create(&plan).Error; cerr != nil {
		return nil, fmt.Errorf("failed to create plan for price %s: %w", priceID, cerr)
	}

	slog.Info("plan created from stripe price", "component", "billing",
		"price_id", priceID, "plan", plan.Slug)
	return &plan, nil
}

func (s *BillingService) resolvePriceID(req *dto.CreateCheckoutRequest) (string, error) {
	if req.PriceID != "" {
		return req.PriceID, nil
	}
	if req.PlanID != "" {
		planID, err := uuid.Parse(req.PlanID)
		if err != nil {
			return "", ErrPlanNotFound
		}
		var plan models.Plan
		if err := s.db.First(&plan, "id = ?", planID).Error; err != nil {
			return "", ErrPlanNotFound
		}
		if plan.StripePriceID == "" {
			return "", ErrNoPrice
		}
		return plan.StripePriceID, nil
	}
	if s.cfg.StripeDefaultPrice != "" {
		return s.cfg.StripeDefaultPrice, nil
	}
	return "", ErrNoPrice
}

func (s *BillingService) getOrCreateCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.FullName()),
	}
	params.AddMetadata("user_id", user.ID.String())

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	if err := s.db.Model(user).Update("stripe_customer_id", cust.ID).Error; err != nil {
		return "", fmt.Errorf("failed to save stripe customer id: %w", err)
	}
	user.StripeCustomerID = cust.ID
	return cust.ID, nil
}

func (s *BillingService) findOpenSession(customerID, priceID string) *stripe.CheckoutSession {
	params := &stripe.CheckoutSessionListParams{Customer: stripe.String(customerID)}
	params.Limit = stripe.Int64(10)
	params.AddExpand("data.line_items")

	iter := session.List(params)
	for iter.Next() {
		cs := iter.CheckoutSession()
		if cs.Status != stripe.CheckoutSessionStatusOpen || cs.LineItems == nil {
			continue
		}
		for _, item := range cs.LineItems.Data {
			if item.Price != nil && item.Price.ID == priceID {
				return cs
			}
		}
	}
	return nil
}

// userForSession resolves the paying account, preferring the customer id and
// falling back to the user_id metadata set at checkout creation.
func (s *BillingService) userForSession(cs *stripe.CheckoutSession) (*models.User, error) {
	if cs.Customer != nil {
		if user, err := s.userByCustomer(cs.Customer.ID); err == nil {
			return user, nil
		}
	}

	userIDStr := cs.Metadata["user_id"]
	if userIDStr == "" {
		return nil, fmt.Errorf("checkout session %s has no resolvable account", cs.ID)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has invalid user_id metadata", cs.ID)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *BillingService) userByCustomer(custID string) (*models.User, error) {
	if custID == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	if err := s.db.Where("stripe_customer_id = ?", custID).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *BillingService) confirmResponse(userID uuid.UUID, source string) (*dto.ConfirmPaymentResponse, error) {
	resp := &dto.ConfirmPaymentResponse{Confirmed: true, Source: source}
	if sub, err := s.UserSubscription(userID); err == nil {
		resp.Subscription = sub
	}
	return resp, nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func planResponse(p *models.Plan) dto.PlanResponse {
	features := []string{}
	if len(p.Features) > 0 {
		_ = json.Unmarshal(p.Features, &features)
	}
	return dto.PlanResponse{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		StripePriceID: p.StripePriceID,
		PriceCents:    p.PriceCents,
		Interval:      p.Interval,
		Features:      features,
	}
}

func subscriptionResponse(sub *models.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:                sub.ID,
		Status:            sub.Status,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Plan:              planResponse(&sub.Plan),
	}
}

func staticPlans() []dto.PlanResponse {
	return []dto.PlanResponse{
		{Name: "Basic", Slug: "basic", PriceCents: 2900, Interval: "month",
			Features: []string{"2 meetings per month", "Email support"}},
		{Name: "Pro", Slug: "pro", PriceCents: 9900, Interval: "month",
			Features: []string{"11 meetings per month", "Priority support", "Meeting recordings"}},
		{Name: "Enterprise", Slug: "enterprise", PriceCents: 29900, Interval: "month",
			Features: []string{"Unlimited meetings", "Dedicated support", "Custom integrations"}},
	}
}
