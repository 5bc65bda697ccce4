package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledir/internal/infra/pushover"
)

func TestClient_Notify(t *testing.T) {
	var form url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL)
	require.NoError(t, client.Notify(context.Background(), "ledir", "sending light_max (pulse 3): write failed"))

	assert.Equal(t, "app-token", form.Get("token"))
	assert.Equal(t, "user-key", form.Get("user"))
	assert.Equal(t, "ledir", form.Get("title"))
	assert.Equal(t, "sending light_max (pulse 3): write failed", form.Get("message"))
}

func TestClient_NotifyTruncatesLongDetail(t *testing.T) {
	var message string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		message = r.PostForm.Get("message")
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL)
	require.NoError(t, client.Notify(context.Background(), "ledir", strings.Repeat("x", 5000)))

	assert.Equal(t, 1024, utf8.RuneCountInString(message))
}

func TestClient_NotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusBadRequest)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("bad", "user-key", server.URL)
	err := client.Notify(context.Background(), "ledir", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_NotifyWithoutCredentialsIsNoop(t *testing.T) {
	client := pushover.NewClientWithURL("", "", "http://127.0.0.1:1")
	assert.NoError(t, client.Notify(context.Background(), "ledir", "boom"))
}
