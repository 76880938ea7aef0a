package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/egresos-bot/internal/bot"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []bot.Message
	err  error
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg bot.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return h.err
}

func (h *recordingHandler) messages() []bot.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bot.Message(nil), h.msgs...)
}

func textDelivery(id, from, body string) string {
	return `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{` +
		`"messaging_product":"whatsapp","messages":[{"id":"` + id + `","from":"` + from +
		`","type":"text","text":{"body":"` + body + `"}}]}}]}]}`
}

func serve(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Verify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid subscription returns challenge",
			query:      "?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=1158201444",
			wantStatus: http.StatusOK,
			wantBody:   "1158201444",
		},
		{
			name:       "wrong token is forbidden",
			query:      "?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1",
			wantStatus: http.StatusForbidden,
			wantBody:   "Forbidden\n",
		},
		{
			name:       "wrong mode is forbidden",
			query:      "?hub.mode=unsubscribe&hub.verify_token=s3cret&hub.challenge=1",
			wantStatus: http.StatusForbidden,
			wantBody:   "Forbidden\n",
		},
		{
			name:       "missing parameters are forbidden",
			query:      "",
			wantStatus: http.StatusForbidden,
			wantBody:   "Forbidden\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &recordingHandler{}
			rec := serve(t, New("s3cret", h), http.MethodGet, "/webhook"+tt.query, "")
			require.Equal(t, tt.wantStatus, rec.Code)
			require.Equal(t, tt.wantBody, rec.Body.String())
			require.Empty(t, h.messages())
		})
	}
}

func TestServer_Delivery(t *testing.T) {
	t.Parallel()

	t.Run("passes first text message to handler", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook", textDelivery("wamid.1", "56912345678", "egreso"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []bot.Message{{ID: "wamid.1", From: "56912345678", Text: "egreso"}}, h.messages())
	})

	t.Run("passes contact profile name", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		body := `{"entry":[{"changes":[{"value":{` +
			`"contacts":[{"wa_id":"56912345678","profile":{"name":"Rebeca"}}],` +
			`"messages":[{"id":"wamid.9","from":"56912345678","type":"text","text":{"body":"hola"}}]}}]}]}`
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []bot.Message{{ID: "wamid.9", From: "56912345678", Text: "hola", ProfileName: "Rebeca"}}, h.messages())
	})

	t.Run("handler error is acknowledged", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{err: errors.New("store down")}
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook", textDelivery("wamid.2", "56912345678", "1"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.messages(), 1)
	})

	t.Run("delivery without message is acknowledged", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook",
			`{"entry":[{"changes":[{"value":{"statuses":[{"status":"delivered"}]}}]}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, h.messages())
	})

	t.Run("non-text message is passed on with empty text", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook",
			`{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.3","from":"569","type":"image"}]}}]}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []bot.Message{{ID: "wamid.3", From: "569", Text: ""}}, h.messages())
	})

	t.Run("malformed body is acknowledged", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook", `{broken`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, h.messages())
	})

	t.Run("oversized body is acknowledged", func(t *testing.T) {
		t.Parallel()

		h := &recordingHandler{}
		body := `{"object":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		rec := serve(t, New("s3cret", h), http.MethodPost, "/webhook", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, h.messages())
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			h := &recordingHandler{}
			rec := serve(t, New("s3cret", h), method, "/webhook", "")
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			require.Equal(t, "Method Not Allowed\n", rec.Body.String())
		})
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	rec := serve(t, New("s3cret", &recordingHandler{}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestServer_ListenAndServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New("s3cret", &recordingHandler{}).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()
	require.NoError(t, <-done)
}
