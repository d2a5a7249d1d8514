package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/mindgleam/mindgleam/internal/profile"
	"github.com/mindgleam/mindgleam/server/ai"
	"github.com/mindgleam/mindgleam/server/auth"
	"github.com/mindgleam/mindgleam/server/metrics"
	"github.com/mindgleam/mindgleam/server/middleware"
	"github.com/mindgleam/mindgleam/server/payment"
	"github.com/mindgleam/mindgleam/server/push"
	"github.com/mindgleam/mindgleam/store"
)

const (
	// accessTokenCookie carries the token for browser clients. SDK
	// clients send it as a Bearer header instead.
	accessTokenCookie = "mindgleam_access_token"

	userContextKey    = "mindgleam.user"
	sessionContextKey = "mindgleam.session"
)

// demo chat allowance per client IP per day. The client also enforces
// its own 3-message window; the server limit backstops counter resets.
const (
	demoChatPerDay = 30
	demoChatBurst  = 10
)

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	AI      *ai.Provider
	Google  *auth.GoogleProvider
	Payment *payment.Service
	Hub     *push.Hub
	Metrics *metrics.Collector

	demoLimiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store) *APIV1Service {
	service := &APIV1Service{
		Secret:      secret,
		Profile:     profile,
		Store:       store,
		Payment:     payment.NewService(profile),
		Hub:         push.NewHub(),
		Metrics:     metrics.NewCollector(),
		demoLimiter: middleware.NewRateLimiter(demoChatPerDay, 24*time.Hour, demoChatBurst),
	}

	if profile.IsOAuthConfigured() {
		service.Google = auth.NewGoogleProvider(profile)
	}
	if profile.IsAIEnabled() {
		provider, err := ai.NewProvider(&ai.Config{
			BaseURL:   profile.AIBaseURL,
			APIKey:    profile.AIAPIKey,
			ChatModel: profile.AIChatModel,
		})
		if err != nil {
			slog.Warn("AI provider disabled", "error", err)
		} else {
			service.AI = provider
		}
	}

	return service
}

// RegisterRoutes wires all API routes onto the Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{s.Profile.InstanceURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if err != nil {
				// The error handler has not run yet; report what it
				// will send.
				status = http.StatusInternalServerError
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}
			s.Metrics.RecordHTTPStatus(status)
			return err
		}
	})

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	api := e.Group("/api")
	api.GET("/status", s.GetStatus)
	api.GET("/avatars", s.ListAvatars)
	api.GET("/plans", s.ListPlans)

	api.GET("/auth/login", s.SignIn)
	api.GET("/auth/callback", s.SignInCallback)
	api.POST("/auth/signout", s.SignOut, s.RequireAuth)

	api.POST("/chat", s.Chat)

	authed := api.Group("", s.RequireAuth)
	authed.GET("/me", s.GetMe)
	authed.PATCH("/me", s.UpdateMe)
	authed.GET("/balance", s.GetBalance)
	authed.GET("/balance/subscribe", s.SubscribeBalance)
	authed.GET("/chat/sessions", s.ListChatSessions)
	authed.GET("/chat/sessions/:uid/messages", s.ListChatMessages)
	authed.DELETE("/chat/sessions/:uid", s.DeleteChatSession)
	authed.POST("/checkout", s.CreateCheckout)
	authed.POST("/mood", s.CreateMoodCheckin)
	authed.GET("/mood", s.ListMoodCheckins)

	api.POST("/webhooks/stripe", s.StripeWebhook)
}

// RequireAuth resolves the access token to a live user session and puts
// the user on the request context. Requests with no valid session get a
// 401.
func (s *APIV1Service) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		claims, err := auth.ParseAccessToken(token, []byte(s.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		ctx := c.Request().Context()
		session, err := s.Store.GetUserSession(ctx, claims.SessionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
		}
		if session == nil {
			// Signed out or expired server-side.
			return echo.NewHTTPError(http.StatusUnauthorized, "session revoked")
		}

		user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &session.UserID})
		if err != nil || user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}

		c.Set(userContextKey, user)
		c.Set(sessionContextKey, session)
		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}

func currentSession(c echo.Context) *store.UserSession {
	session, _ := c.Get(sessionContextKey).(*store.UserSession)
	return session
}
