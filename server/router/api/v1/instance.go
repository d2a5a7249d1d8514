package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindgleam/mindgleam/internal/avatar"
	"github.com/mindgleam/mindgleam/internal/plan"
)

type statusResponse struct {
	Version          string `json:"version"`
	Mode             string `json:"mode"`
	AIEnabled        bool   `json:"ai_enabled"`
	SignInEnabled    bool   `json:"sign_in_enabled"`
	CheckoutEnabled  bool   `json:"checkout_enabled"`
	DemoMessageLimit int    `json:"demo_message_limit"`
}

// GetStatus reports what this instance has configured, so clients can
// hide sign-in or checkout when the backing services are absent.
func (s *APIV1Service) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, &statusResponse{
		Version:          s.Profile.Version,
		Mode:             s.Profile.Mode,
		AIEnabled:        s.AI != nil,
		SignInEnabled:    s.Google != nil,
		CheckoutEnabled:  s.Payment.IsConfigured(),
		DemoMessageLimit: demoMessageLimit,
	})
}

type avatarResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImagePath    string `json:"image_path"`
	Gradient     string `json:"gradient"`
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
}

func (s *APIV1Service) ListAvatars(c echo.Context) error {
	avatars := avatar.List()
	out := make([]*avatarResponse, 0, len(avatars))
	for _, a := range avatars {
		out = append(out, &avatarResponse{
			ID:           string(a.ID),
			Name:         a.Name,
			Description:  a.Description,
			ImagePath:    a.ImagePath,
			Gradient:     a.Colors.Gradient,
			PrimaryColor: a.Colors.PrimaryColor,
			AccentColor:  a.Colors.AccentColor,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type planResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
	Purchasable bool     `json:"purchasable"`
}

func (s *APIV1Service) ListPlans(c echo.Context) error {
	plans := plan.List()
	out := make([]*planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, &planResponse{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Description: p.Description,
			Features:    p.Features,
			Popular:     p.Popular,
			Purchasable: plan.IsPurchasable(p.ID),
		})
	}
	return c.JSON(http.StatusOK, out)
}
