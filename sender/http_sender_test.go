package sender_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-service/sender"
)

func TestHTTPSender_SendTemplate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@relay>"}`))
	}))
	defer srv.Close()

	s, err := sender.NewHTTPSender(srv.URL, "key-123", "shop@example.com", "Market")
	require.NoError(t, err)

	res, err := s.SendTemplate(context.Background(), sender.Recipient{Email: "ana@example.com"}, 7, map[string]interface{}{"code": "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, "<abc@relay>", res.MessageID)

	assert.Equal(t, float64(7), got["templateId"])
	to := got["to"].([]interface{})
	assert.Equal(t, "ana@example.com", to[0].(map[string]interface{})["email"])
	assert.Equal(t, "ABC123", got["params"].(map[string]interface{})["code"])
}

func TestHTTPSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	s, err := sender.NewHTTPSender(srv.URL, "key", "", "")
	require.NoError(t, err)

	_, err = s.SendTemplate(context.Background(), sender.Recipient{Email: "a@b.c"}, 1, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_parameter")
}

func TestNewHTTPSender_RequiresKey(t *testing.T) {
	_, err := sender.NewHTTPSender("https://api.example.com", "", "", "")
	assert.Error(t, err)
}
