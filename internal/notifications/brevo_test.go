package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBrevo(t *testing.T, handler http.HandlerFunc) *BrevoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewBrevoClient("test-key", "shop@example.com", "SharpCut", false)
	require.NotNil(t, c)
	c.endpoint = srv.URL
	return c
}

func TestBrevoSendHTMLReturnsMessageID(t *testing.T) {
	c := newTestBrevo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"<msg-1@smtp-relay>"}`))
	})

	id, err := c.sendHTML(context.Background(), "to@example.com", "Jo", "Subject", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "<msg-1@smtp-relay>", id)
}

func TestBrevoSendHTMLMalformedSuccessBody(t *testing.T) {
	c := newTestBrevo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("not json"))
	})

	_, err := c.sendHTML(context.Background(), "to@example.com", "Jo", "Subject", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brevo parse response")
}

func TestBrevoSendHTMLErrorStatus(t *testing.T) {
	c := newTestBrevo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Key not found"}`))
	})

	_, err := c.sendHTML(context.Background(), "to@example.com", "Jo", "Subject", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestBrevoClientRequiresKeyAndSender(t *testing.T) {
	assert.Nil(t, NewBrevoClient("", "shop@example.com", "SharpCut", false))
	assert.Nil(t, NewBrevoClient("key", "", "SharpCut", false))
}
