package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMSClient_Send(t *testing.T) {
	var got smsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(smsResponse{Status: 0, Msg: "ok"})
	}))
	defer server.Close()

	client := NewSMSClient(server.URL, "test-key", zap.NewNop())

	err := client.Send(context.Background(), "+49 170 1234567", "alert text")

	require.NoError(t, err)
	assert.Equal(t, "+49 170 1234567", got.To)
	assert.Equal(t, "alert text", got.Message)
	assert.Equal(t, "test-key", got.APIKey)
}

func TestSMSClient_Send_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSMSClient(server.URL, "test-key", zap.NewNop())

	err := client.Send(context.Background(), "+49 170 1234567", "alert text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSMSClient_Send_MissingAPIKey(t *testing.T) {
	client := NewSMSClient("http://localhost:0", "", zap.NewNop())

	err := client.Send(context.Background(), "+49 170 1234567", "alert text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestLogSender_AlwaysSucceeds(t *testing.T) {
	sender := NewLogSender(zap.NewNop())

	assert.NoError(t, sender.Send(context.Background(), "+49 170 1234567", "alert text"))
}
