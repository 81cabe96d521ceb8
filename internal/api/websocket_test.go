package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemvis/dashboard/internal/dashboard"
)

func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, ws *websocket.Conn, typ string) WSMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, ws)
		if msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %q message received", typ)
	return WSMessage{}
}

func dialEvents(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.e)
	t.Cleanup(srv.Close)

	// The stream only joins a session opened over plain HTTP
	env.do(http.MethodGet, "/api/dashboard", nil, "")
	require.NotNil(t, env.cookie)

	header := http.Header{}
	header.Set("Cookie", env.cookie.String())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWebSocket_StreamsViewEvents(t *testing.T) {
	env := newTestEnv(t)
	ws := dialEvents(t, env)

	assert.Equal(t, MsgTypeConnected, readMessage(t, ws).Type)

	initial := readMessage(t, ws)
	require.Equal(t, MsgTypeView, initial.Type)
	var view dashboard.ViewModel
	require.NoError(t, json.Unmarshal(initial.Data, &view))
	assert.Equal(t, dashboard.ScreenLogin, view.Screen)

	// Wait for the subscription to register before acting
	require.Eventually(t, func() bool {
		return env.hub.Subscribers(env.cookie.Value) == 1
	}, time.Second, 10*time.Millisecond)

	env.login()

	for {
		msg := readUntil(t, ws, MsgTypeView)
		require.NoError(t, json.Unmarshal(msg.Data, &view))
		if view.Screen == dashboard.ScreenMain {
			break
		}
	}
	assert.Equal(t, "admin", view.Username)
}

func TestWebSocket_StreamsNotices(t *testing.T) {
	env := newTestEnv(t)
	ws := dialEvents(t, env)
	readUntil(t, ws, MsgTypeView)

	require.Eventually(t, func() bool {
		return env.hub.Subscribers(env.cookie.Value) == 1
	}, time.Second, 10*time.Millisecond)

	env.login()
	env.fake.FailUploads(http.StatusBadRequest, "bad format")
	env.upload("broken.csv", sampleCSV)

	msg := readUntil(t, ws, MsgTypeNotice)
	var notice dashboard.Notice
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	assert.Equal(t, "upload", notice.Source)
	assert.Equal(t, "bad format", notice.Message)
}

func TestWebSocket_PingPong(t *testing.T) {
	env := newTestEnv(t)
	ws := dialEvents(t, env)
	readUntil(t, ws, MsgTypeView)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readUntil(t, ws, MsgTypePong).Type)
}

func TestWebSocket_ClosedWhenSessionEnds(t *testing.T) {
	env := newTestEnv(t)
	ws := dialEvents(t, env)
	readUntil(t, ws, MsgTypeView)

	require.Eventually(t, func() bool {
		return env.hub.Subscribers(env.cookie.Value) == 1
	}, time.Second, 10*time.Millisecond)

	env.hub.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestWebSocket_RequiresExistingSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	tests := []struct {
		name   string
		cookie string
	}{
		{"no cookie", ""},
		{"unknown session", SessionCookie + "=0b8f3c52-0000-4000-8000-000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.cookie != "" {
				header.Set("Cookie", tt.cookie)
			}
			ws, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if ws != nil {
				ws.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Empty(t, resp.Header.Values("Set-Cookie"))
			assert.Equal(t, 0, env.sessions.Count())
		})
	}
}

func TestWebSocket_FollowsLoginOnFirstVisit(t *testing.T) {
	env := newTestEnv(t)

	// First visit: the page fetches the dashboard, then opens the stream
	// with the cookie it was given.
	ws := dialEvents(t, env)
	readUntil(t, ws, MsgTypeView)
	assert.Equal(t, 1, env.sessions.Count())

	require.Eventually(t, func() bool {
		return env.hub.Subscribers(env.cookie.Value) == 1
	}, time.Second, 10*time.Millisecond)

	rec := env.do(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"admin","password":"admin123"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.ScreenMain, decodeView(t, rec).Screen)

	var view dashboard.ViewModel
	for view.Screen != dashboard.ScreenMain {
		msg := readUntil(t, ws, MsgTypeView)
		require.NoError(t, json.Unmarshal(msg.Data, &view))
	}
	assert.Equal(t, 1, env.sessions.Count())
}
