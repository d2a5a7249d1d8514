package v1

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mindgleam/mindgleam/internal/plan"
	"github.com/mindgleam/mindgleam/store"
)

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout starts a hosted payment session for a purchasable plan
// and returns the redirect URL.
func (s *APIV1Service) CreateCheckout(c echo.Context) error {
	if !s.Payment.IsConfigured() {
		return echo.NewHTTPError(http.StatusNotImplemented, "payments are not configured")
	}

	req := &checkoutRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	p, ok := plan.Get(req.PlanID)
	if !ok || !plan.IsPurchasable(p.ID) {
		return echo.NewHTTPError(http.StatusBadRequest, "plan is not purchasable")
	}

	user := currentUser(c)
	url, err := s.Payment.CreateCheckoutSession(user.UID, p)
	if err != nil {
		slog.Error("failed to create checkout session", "user_id", user.ID, "plan_id", p.ID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to start checkout")
	}

	return c.JSON(http.StatusOK, &checkoutResponse{URL: url})
}

// StripeWebhook credits the purchased plan's grants after Stripe
// confirms payment. The signature check is the only authentication on
// this route.
func (s *APIV1Service) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read payload")
	}

	purchase, err := s.Payment.VerifyWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Warn("rejected stripe webhook", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook")
	}
	if purchase == nil {
		// Event type we don't act on; acknowledge so Stripe stops retrying.
		return c.NoContent(http.StatusOK)
	}

	ctx := c.Request().Context()
	user, err := s.Store.GetUser(ctx, &store.FindUser{UID: &purchase.UserUID})
	if err != nil || user == nil {
		slog.Error("purchase for unknown user", "user_uid", purchase.UserUID, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "unknown user")
	}

	p, ok := plan.Get(purchase.PlanID)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown plan")
	}

	balance, err := s.Store.CreditBalance(ctx, &store.CreditBalance{
		UserID:       user.ID,
		Messages:     p.Messages,
		MoodCheckins: p.MoodCheckins,
		UpdatedTs:    time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to credit purchase", "user_id", user.ID, "plan_id", p.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to credit purchase")
	}

	s.Metrics.RecordPurchase()
	s.Hub.BroadcastBalance(ctx, balance)
	s.Metrics.RecordBalanceBroadcast()
	slog.Info("credited purchase", "user_id", user.ID, "plan_id", p.ID,
		"messages_remaining", balance.Messages, "mood_checkins_remaining", balance.MoodCheckins)

	return c.NoContent(http.StatusOK)
}
