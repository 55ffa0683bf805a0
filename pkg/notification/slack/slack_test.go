package slack

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlerter_SendAlert_PostsWebhook(t *testing.T) {
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	alerter, err := New(server.URL, WithChannel("#recruiting-sla"))
	require.NoError(t, err)

	violation := &models.Violation{
		ID:          "v-1",
		RuleID:      "rule-1",
		EntityType:  models.EntityApplication,
		EntityID:    "app-1",
		ActualHours: 744,
		ExpectedAt:  time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	err = alerter.SendAlert(t.Context(), []string{"lead@example.com"}, violation)
	require.NoError(t, err)

	assert.Equal(t, "#recruiting-sla", body["channel"])
	assert.Contains(t, body["text"], "app-1")
	assert.Len(t, body["blocks"], 3)
}

func TestAlerter_ServerErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	alerter, err := New(server.URL)
	require.NoError(t, err)

	err = alerter.SendEscalation(t.Context(), nil, &models.Violation{ID: "v-2"})
	assert.Error(t, err)
}

func TestNew_RequiresWebhook(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrWebhookRequired)
}
