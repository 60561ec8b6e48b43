package configurator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Scegli","conversation_id":"conv-1","current_phase":"phase_1_1","ui_type":"radio","options":["A","B"]}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL+"/").SendMessage(context.Background(), ChatRequest{Message: "Ciao"})
	require.NoError(t, err)

	assert.Equal(t, "Ciao", gotBody["message"])
	v, present := gotBody["conversation_id"]
	assert.True(t, present, "conversation_id is sent as null")
	assert.Nil(t, v)

	assert.Equal(t, "Scegli", res.Response)
	assert.Equal(t, "conv-1", res.ConversationID)
	assert.Equal(t, "phase_1_1", res.CurrentPhase)
	assert.Equal(t, "radio", res.UIType)
	assert.Equal(t, []string{"A", "B"}, res.Options)
}

func TestClient_SendMessageErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "backend unavailable",
			status:     http.StatusBadGateway,
			body:       `{"error":"Backend service unavailable"}`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Backend service unavailable",
		},
		{
			name:       "proxy error",
			status:     http.StatusInternalServerError,
			body:       `{"error":"Internal Proxy Error"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Proxy Error",
		},
		{
			name:       "non json error body",
			status:     http.StatusServiceUnavailable,
			body:       `upstream down`,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).SendMessage(context.Background(), ChatRequest{Message: "x"})
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.wantStatus, statusErr.Status)
			assert.Equal(t, tt.wantMsg, statusErr.Message)
		})
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendMessage(context.Background(), ChatRequest{Message: "x"})
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr), "a 200 with a bad body is not a status error")
}

func TestClient_FetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversation/conv%201/history", r.URL.EscapedPath())
		w.Write([]byte(`{"messages":[{"role":"assistant","content":"Ciao","image_url":"/img.png"}],"conversation":{"is_complete":true,"status":"completed"}}`))
	}))
	defer srv.Close()

	history, err := NewClient(srv.URL).FetchHistory(context.Background(), "conv 1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "/img.png", history.Messages[0].ImageURL)
	assert.True(t, history.Conversation.IsComplete)
	assert.Equal(t, "completed", history.Conversation.Status)
}

func TestClient_ExportURL(t *testing.T) {
	c := NewClient("http://relay.local:3000/")
	assert.Equal(t, "http://relay.local:3000/api/conversation/conv-1/export", c.ExportURL("conv-1"))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).SendMessage(context.Background(), ChatRequest{Message: "x"})
	assert.Error(t, err)
}
