package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StockBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI answers the two Bot API methods the Telegram channel uses.
func fakeBotAPI(t *testing.T, sent *[]map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Stock","username":"stock_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			*sent = append(*sent, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
}

func TestTelegramSendsMessage(t *testing.T) {
	var sent []map[string]string
	srv := fakeBotAPI(t, &sent)
	defer srv.Close()

	tg, err := NewTelegramWithEndpoint("123:abc", srv.URL+"/bot%s/%s", 42, "ToysRUs Stock Alert", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "telegram", tg.Name())

	err = tg.Notify(context.Background(), models.Alert{URL: "https://example.com/p/1", Title: "Lego", Price: 199.5})
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0]["chat_id"])
	assert.Equal(t, "ToysRUs Stock Alert\nLego (199.50)\nThe product https://example.com/p/1 is now in stock and has been added to your cart.", sent[0]["text"])
}

func TestTelegramRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewTelegramWithEndpoint("bad", srv.URL+"/bot%s/%s", 42, "Alert", srv.Client())
	assert.Error(t, err)
}

func TestTelegramHonoursCancelledContext(t *testing.T) {
	var sent []map[string]string
	srv := fakeBotAPI(t, &sent)
	defer srv.Close()

	tg, err := NewTelegramWithEndpoint("123:abc", srv.URL+"/bot%s/%s", 42, "Alert", srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Notify(ctx, models.Alert{URL: "https://example.com"}), context.Canceled)
	assert.Empty(t, sent)
}
