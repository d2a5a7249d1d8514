package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollectorExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordChatMessage("demo")
	c.RecordChatMessage("full")
	c.RecordChatFailure()
	c.RecordChatLatency(120 * time.Millisecond)
	c.RecordCreditSpent("message")
	c.RecordPurchase()
	c.RecordHTTPStatus(402)
	c.RecordBalanceBroadcast()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `mindgleam_chat_messages_total{mode="demo"} 1`))
	require.True(t, strings.Contains(body, `mindgleam_credits_spent_total{kind="message"} 1`))
	require.True(t, strings.Contains(body, `mindgleam_http_status_total{status_code="402"} 1`))
	require.True(t, strings.Contains(body, "mindgleam_purchases_total 1"))
}
