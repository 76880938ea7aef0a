package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "123456", "secret-token")
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts text message", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/123456/messages", r.URL.Path)
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body sendRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "whatsapp", body.MessagingProduct)
			assert.Equal(t, "56912345678", body.To)
			assert.Equal(t, "text", body.Type)
			assert.Equal(t, "hola", body.Text.Body)

			_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.x"}]}`))
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), "56912345678", "hola")
		require.NoError(t, err)
	})

	t.Run("retries once on server error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), "56912345678", "hola")
		require.NoError(t, err)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after second failure", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), "56912345678", "hola")
		require.Error(t, err)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad recipient"}}`))
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), "56912345678", "hola")
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 400")
		require.Contains(t, err.Error(), "bad recipient")
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries once on connection failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		baseURL := server.URL
		server.Close()

		err := newTestClient(baseURL).Send(context.Background(), "56912345678", "hola")
		require.Error(t, err)
	})
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultBaseURL, NewClient("", "1", "t").baseURL)
	require.Equal(t, "http://example.test", NewClient(" http://example.test/ ", "1", "t").baseURL)
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"500", &StatusError{StatusCode: 500}, true},
		{"502", &StatusError{StatusCode: 502}, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"401", &StatusError{StatusCode: 401}, false},
		{"context canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}
