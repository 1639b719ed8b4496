package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/hwbot/internal/core/notify"
)

func newBot(t *testing.T, h http.HandlerFunc) *Bot {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		APIURL:  srv.URL + "/",
		Token:   "123:secret",
		ChatID:  "42",
		Timeout: time.Second,
	})
}

func TestSend_Success(t *testing.T) {
	var got map[string]string
	bot := newBot(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:secret/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	})

	err := bot.Send(context.Background(), "review approved")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chat_id": "42", "text": "review approved"}, got)
}

func TestSend_TruncatesLongText(t *testing.T) {
	var got map[string]string
	bot := newBot(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":8}}`))
	})

	comment := strings.Repeat("please fix the tests. ", 400)
	require.NoError(t, bot.Send(context.Background(), "Reviewed: the reviewer has comments.\n"+comment))

	text := got["text"]
	assert.Len(t, utf16.Encode([]rune(text)), MaxMessageLength)
	assert.True(t, strings.HasPrefix(text, "Reviewed: the reviewer has comments.\n"))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		limit   int
		want    string
		wantCut bool
	}{
		{name: "short", text: "hello", limit: 10, want: "hello"},
		{name: "exact", text: "hello", limit: 5, want: "hello"},
		{name: "cut", text: "hello world", limit: 6, want: "hello…", wantCut: true},
		{name: "cyrillic counts one unit per letter", text: "привет мир", limit: 7, want: "привет…", wantCut: true},
		{name: "emoji counts two units", text: "ok 👍👍", limit: 6, want: "ok 👍…", wantCut: true},
		{name: "no split inside surrogate pair", text: "ok 👍👍", limit: 5, want: "ok …", wantCut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := truncate(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCut, cut)
			assert.LessOrEqual(t, len(utf16.Encode([]rune(got))), tt.limit)
		})
	}
}

func TestSend_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{
			name:       "api error",
			status:     http.StatusBadRequest,
			body:       `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			wantReason: "sendMessage: Bad Request: chat not found",
		},
		{
			name:       "ok false with 200",
			status:     http.StatusOK,
			body:       `{"ok":false}`,
			wantReason: "sendMessage: status code 200",
		},
		{
			name:       "not json",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantReason: "sendMessage: status code 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := newBot(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := bot.Send(context.Background(), "hello")

			var de *notify.DeliveryError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantReason, de.Reason)
		})
	}
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	bot := New(Options{APIURL: url, Token: "123:secret", ChatID: "42", Timeout: time.Second})
	err := bot.Send(context.Background(), "hello")

	var de *notify.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.NotContains(t, err.Error(), "123:secret")
	assert.Contains(t, err.Error(), "<token>")
}

func TestMe(t *testing.T) {
	bot := newBot(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bot123:secret/getMe", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Reviews","username":"hw_bot"}}`))
	})

	u, err := bot.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, User{ID: 99, IsBot: true, FirstName: "Reviews", Username: "hw_bot"}, u)
}

func TestMe_Unauthorized(t *testing.T) {
	bot := newBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	})

	_, err := bot.Me(context.Background())
	require.ErrorContains(t, err, "getMe: Unauthorized")
}
