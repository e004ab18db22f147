package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "token")
	require.NoError(t, n.Notify(context.Background(), "alice", "Task reminder", "due soon"))

	assert.Equal(t, "Bearer token", auth)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "Task reminder", got.Subject)
	assert.Equal(t, "due soon", got.Body)
}

func TestWebhookNotifierRejectedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	assert.Error(t, n.Notify(context.Background(), "alice", "s", "b"))
}
