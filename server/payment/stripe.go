package payment

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/mindgleam/mindgleam/internal/plan"
	"github.com/mindgleam/mindgleam/internal/profile"
)

// Service wraps the Stripe API for plan purchases.
type Service struct {
	webhookSecret string
	instanceURL   string
}

func NewService(profile *profile.Profile) *Service {
	stripe.Key = profile.StripeSecretKey
	return &Service{
		webhookSecret: profile.StripeWebhookSecret,
		instanceURL:   strings.TrimSuffix(profile.InstanceURL, "/"),
	}
}

// IsConfigured reports whether Stripe credentials are present.
func (s *Service) IsConfigured() bool {
	return stripe.Key != "" && s.webhookSecret != ""
}

// CreateCheckoutSession starts a hosted checkout for the given plan and
// returns the URL to redirect the user to. The user and plan ride along
// as metadata so the webhook can credit the right account.
func (s *Service) CreateCheckoutSession(userUID string, p plan.Plan) (string, error) {
	if !plan.IsPurchasable(p.ID) {
		return "", errors.New("plan is not purchasable")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.Name),
						Description: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.instanceURL + "/?success=true"),
		CancelURL:  stripe.String(s.instanceURL + "/?canceled=true"),
		Metadata: map[string]string{
			"user_uid": userUID,
			"plan_id":  p.ID,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", errors.Wrap(err, "failed to create checkout session")
	}
	return sess.URL, nil
}

// CompletedPurchase is a verified checkout.session.completed event.
type CompletedPurchase struct {
	UserUID string
	PlanID  string
}

// VerifyWebhook checks the Stripe signature and extracts the completed
// purchase, if the event is one. A nil purchase with nil error means
// the event type is not one we act on.
func (s *Service) VerifyWebhook(payload []byte, signature string) (*CompletedPurchase, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify webhook signature")
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, errors.Wrap(err, "failed to parse checkout session")
	}

	userUID := sess.Metadata["user_uid"]
	planID := sess.Metadata["plan_id"]
	if userUID == "" || !plan.IsPurchasable(planID) {
		return nil, errors.New("checkout session missing purchase metadata")
	}

	return &CompletedPurchase{UserUID: userUID, PlanID: planID}, nil
}
