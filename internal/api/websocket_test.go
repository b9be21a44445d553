package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"seasonbot/internal/order"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, ts *httptest.Server, id, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + id + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
}

func TestWebSocket_Rejected(t *testing.T) {
	s := newTestServer(t)
	c := newClient(t, s)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	_, resp, err := dial(t, ts, c.id, "forged")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_PushesUpdates(t *testing.T) {
	s := newTestServer(t)
	c := newClient(t, s)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn, _, err := dial(t, ts, c.id, c.token)
	require.NoError(t, err)
	defer conn.Close()

	first := readUntil(t, conn, func(ev Event) bool { return ev.Type == EventUpdate })
	require.NotNil(t, first.Update)
	assert.Equal(t, c.id, first.Update.Snapshot.ID)
	require.Eventually(t, func() bool { return s.Hub().Connections(c.id) == 1 }, time.Second, 5*time.Millisecond)

	// changes made over HTTP reach the socket
	require.Equal(t, http.StatusOK, c.session("PUT", "/tab", TabRequest{Tab: order.TabCart}).Code)
	ev := readUntil(t, conn, func(ev Event) bool {
		return ev.Type == EventUpdate && ev.Update.Snapshot.Tab == order.TabCart
	})
	assert.NotNil(t, ev.Update.Snapshot.Wizard)

	// chat sent over the socket comes back as an update
	require.NoError(t, conn.WriteJSON(Event{Type: EventSend, Text: "Show me the full menu"}))
	ev = readUntil(t, conn, func(ev Event) bool {
		return ev.Type == EventUpdate && ev.Update.Snapshot.Tab == order.TabMenu
	})
	msgs := ev.Update.Snapshot.Messages
	assert.Equal(t, "Show me the full menu", msgs[len(msgs)-2].Content)

	require.NoError(t, conn.WriteJSON(Event{Type: "ping"}))
	ev = readUntil(t, conn, func(ev Event) bool { return ev.Type == EventError })
	assert.Equal(t, "unsupported event: ping", ev.Error)
}
