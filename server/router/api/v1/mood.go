package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mindgleam/mindgleam/store"
)

// moods accepted by the check-in endpoint.
var validMoods = map[string]bool{
	"great":    true,
	"good":     true,
	"okay":     true,
	"low":      true,
	"terrible": true,
}

type moodCheckinRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note,omitempty"`
}

type moodCheckinResponse struct {
	UID                   string `json:"uid"`
	Mood                  string `json:"mood"`
	Note                  string `json:"note,omitempty"`
	CreatedTs             int64  `json:"created_ts"`
	MoodCheckinsRemaining *int32 `json:"mood_checkins_remaining,omitempty"`
}

// CreateMoodCheckin records a mood entry, spending one check-in credit.
func (s *APIV1Service) CreateMoodCheckin(c echo.Context) error {
	req := &moodCheckinRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	req.Mood = strings.ToLower(strings.TrimSpace(req.Mood))
	if !validMoods[req.Mood] {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown mood")
	}

	ctx := c.Request().Context()
	user := currentUser(c)

	balance, err := s.Store.SpendMoodCheckinCredit(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record check-in")
	}
	if balance == nil {
		return echo.NewHTTPError(http.StatusPaymentRequired, "out of mood check-ins")
	}
	s.Metrics.RecordCreditSpent("mood_checkin")

	checkin, err := s.Store.CreateMoodCheckin(ctx, &store.MoodCheckin{
		UID:       uuid.NewString(),
		UserID:    user.ID,
		Mood:      req.Mood,
		Note:      req.Note,
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record check-in")
	}

	s.Hub.BroadcastBalance(ctx, balance)
	s.Metrics.RecordBalanceBroadcast()

	return c.JSON(http.StatusOK, &moodCheckinResponse{
		UID:                   checkin.UID,
		Mood:                  checkin.Mood,
		Note:                  checkin.Note,
		CreatedTs:             checkin.CreatedTs,
		MoodCheckinsRemaining: &balance.MoodCheckins,
	})
}

// ListMoodCheckins returns the user's recent check-ins, newest first.
func (s *APIV1Service) ListMoodCheckins(c echo.Context) error {
	user := currentUser(c)

	find := &store.FindMoodCheckin{UserID: &user.ID}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			find.Limit = &limit
		}
	}

	checkins, err := s.Store.ListMoodCheckins(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list check-ins")
	}

	out := make([]*moodCheckinResponse, 0, len(checkins))
	for _, checkin := range checkins {
		out = append(out, &moodCheckinResponse{
			UID:       checkin.UID,
			Mood:      checkin.Mood,
			Note:      checkin.Note,
			CreatedTs: checkin.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, out)
}
