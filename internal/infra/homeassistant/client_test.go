package homeassistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledir/internal/domain"
	"ledir/internal/infra"
	"ledir/internal/infra/homeassistant"
)

func TestClient_Send(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/services/remote/send_command" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer ha-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := homeassistant.NewClient(server.URL+"/", "ha-token", "remote.living_room", "led strip")
	defer client.Close()

	require.NoError(t, client.Send(context.Background(), domain.Command("blue")))

	assert.Equal(t, "remote.living_room", got["entity_id"])
	assert.Equal(t, "blue", got["command"])
	assert.Equal(t, "led strip", got["device"])
}

func TestClient_SendOmitsEmptyDevice(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := homeassistant.NewClient(server.URL, "ha-token", "remote.tv", "")
	require.NoError(t, client.Send(context.Background(), domain.CommandOff))

	_, present := got["device"]
	assert.False(t, present)
}

func TestClient_SendUnauthorizedIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := homeassistant.NewClient(server.URL, "wrong", "remote.tv", "")
	err := client.Send(context.Background(), domain.CommandOn)

	require.Error(t, err)
	assert.ErrorIs(t, err, infra.ErrPermanent)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Equal(t, 1, calls)
}

func TestClient_SendServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := homeassistant.NewClient(server.URL, "ha-token", "remote.tv", "")
	err := client.Send(context.Background(), domain.CommandOn)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_SendRetriesWhenUnavailable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := homeassistant.NewClient(server.URL, "ha-token", "remote.tv", "")
	require.NoError(t, client.Send(context.Background(), domain.CommandOn))
	assert.Equal(t, 2, calls)
}
