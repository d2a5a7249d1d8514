package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mindgleam/mindgleam/server/auth"
	"github.com/mindgleam/mindgleam/store"
)

// SignIn redirects the browser to the Google consent page.
func (s *APIV1Service) SignIn(c echo.Context) error {
	if s.Google == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "sign-in is not configured")
	}

	url, err := s.Google.LoginURL()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start sign-in")
	}
	return c.Redirect(http.StatusFound, url)
}

// SignInCallback completes the OAuth flow: upsert the user, grant the
// initial balance on first sign-in, mint a session token and send the
// browser back to the app.
func (s *APIV1Service) SignInCallback(c echo.Context) error {
	if s.Google == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "sign-in is not configured")
	}
	if errParam := c.QueryParam("error"); errParam != "" {
		// User cancelled on the consent page.
		return c.Redirect(http.StatusFound, s.Profile.InstanceURL)
	}

	ctx := c.Request().Context()
	googleUser, err := s.Google.Exchange(ctx, c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		slog.Warn("sign-in exchange failed", "error", err)
		return c.Redirect(http.StatusFound, s.Profile.InstanceURL+"/?error=auth_error")
	}

	user, err := s.upsertUser(c, googleUser)
	if err != nil {
		slog.Error("failed to sign in user", "error", err)
		return c.Redirect(http.StatusFound, s.Profile.InstanceURL+"/?error=auth_error")
	}

	now := time.Now()
	expiresAt := now.Add(auth.AccessTokenDuration)
	session, err := s.Store.CreateUserSession(ctx, &store.UserSession{
		ID:        auth.NewSessionID(),
		UserID:    user.ID,
		CreatedTs: now.Unix(),
		ExpiresTs: expiresAt.Unix(),
	})
	if err != nil {
		return c.Redirect(http.StatusFound, s.Profile.InstanceURL+"/?error=auth_error")
	}

	token, err := auth.GenerateAccessToken(user.UID, session.ID, expiresAt, []byte(s.Secret))
	if err != nil {
		return c.Redirect(http.StatusFound, s.Profile.InstanceURL+"/?error=auth_error")
	}

	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   !s.Profile.IsDev(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, s.Profile.InstanceURL+"/")
}

// upsertUser finds the user by Google subject, creating the account and
// its initial credit grant on first sign-in.
func (s *APIV1Service) upsertUser(c echo.Context, googleUser *auth.GoogleUser) (*store.User, error) {
	ctx := c.Request().Context()
	now := time.Now().Unix()

	user, err := s.Store.GetUser(ctx, &store.FindUser{GoogleSub: &googleUser.Sub})
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up user")
	}

	if user == nil {
		user, err = s.Store.CreateUser(ctx, &store.User{
			UID:         uuid.NewString(),
			GoogleSub:   googleUser.Sub,
			Email:       googleUser.Email,
			DisplayName: googleUser.Name,
			AvatarURL:   googleUser.Picture,
			CreatedTs:   now,
			UpdatedTs:   now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create user")
		}
	} else if user.Email != googleUser.Email || user.DisplayName != googleUser.Name || user.AvatarURL != googleUser.Picture {
		user, err = s.Store.UpdateUser(ctx, &store.UpdateUser{
			ID:          user.ID,
			Email:       &googleUser.Email,
			DisplayName: &googleUser.Name,
			AvatarURL:   &googleUser.Picture,
			UpdatedTs:   &now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to update user")
		}
	}

	// Idempotent: repeated sign-ins never re-grant.
	created, err := s.Store.InitializeBalance(ctx, &store.Balance{
		UserID:       user.ID,
		Messages:     store.InitialMessageGrant,
		MoodCheckins: store.InitialMoodCheckinGrant,
		UpdatedTs:    now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize balance")
	}
	if created {
		slog.Info("granted initial balance", "user_id", user.ID)
	}

	return user, nil
}

// SignOut revokes the server-side session and clears the cookie.
func (s *APIV1Service) SignOut(c echo.Context) error {
	session := currentSession(c)
	if err := s.Store.DeleteUserSession(c.Request().Context(), &store.DeleteUserSession{ID: &session.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to sign out")
	}

	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

type userResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// GetMe returns the signed-in user's profile.
func (s *APIV1Service) GetMe(c echo.Context) error {
	user := currentUser(c)
	return c.JSON(http.StatusOK, &userResponse{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	})
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// UpdateMe applies a partial profile update and returns the result.
func (s *APIV1Service) UpdateMe(c echo.Context) error {
	req := &updateMeRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.DisplayName == nil && req.AvatarURL == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	user := currentUser(c)
	now := time.Now().Unix()
	updated, err := s.Store.UpdateUser(c.Request().Context(), &store.UpdateUser{
		ID:          user.ID,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		UpdatedTs:   &now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update profile")
	}

	return c.JSON(http.StatusOK, &userResponse{
		UID:         updated.UID,
		Email:       updated.Email,
		DisplayName: updated.DisplayName,
		AvatarURL:   updated.AvatarURL,
	})
}
