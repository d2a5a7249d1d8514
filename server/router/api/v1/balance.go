package v1

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mindgleam/mindgleam/server/push"
	"github.com/mindgleam/mindgleam/store"
)

type balanceResponse struct {
	Messages     int32 `json:"messages_remaining"`
	MoodCheckins int32 `json:"mood_checkins_remaining"`
	UpdatedTs    int64 `json:"updated_ts"`
}

// GetBalance returns the signed-in user's remaining credits. A user
// with no balance row yet reads as zero rather than erroring.
func (s *APIV1Service) GetBalance(c echo.Context) error {
	user := currentUser(c)
	balance, err := s.Store.GetBalance(c.Request().Context(), &store.FindBalance{UserID: user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load balance")
	}
	if balance == nil {
		return c.JSON(http.StatusOK, &balanceResponse{})
	}
	return c.JSON(http.StatusOK, &balanceResponse{
		Messages:     balance.Messages,
		MoodCheckins: balance.MoodCheckins,
		UpdatedTs:    balance.UpdatedTs,
	})
}

// SubscribeBalance upgrades to a WebSocket and streams balance updates
// until the client disconnects. The current balance is pushed first so
// subscribers never start from a blank state.
func (s *APIV1Service) SubscribeBalance(c echo.Context) error {
	user := currentUser(c)

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "subscription ended")

	ctx := c.Request().Context()
	if balance, err := s.Store.GetBalance(ctx, &store.FindBalance{UserID: user.ID}); err == nil && balance != nil {
		_ = push.WriteBalance(ctx, conn, balance)
	}

	s.Hub.Serve(ctx, user.ID, conn)
	return nil
}
