package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuyogBora/picode-server/internal/config"
	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/utils"
)

const testSecret = "socket-test-secret"

type stubLoader struct {
	principals map[uint64]*model.Principal
	err        error
}

func (s stubLoader) GetPrincipal(_ context.Context, id uint64) (*model.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func testConfig() config.SocketConfig {
	return config.SocketConfig{
		Path:             "/ws",
		PingInterval:     50 * time.Millisecond,
		ProbeInterval:    time.Second,
		PongTimeout:      5 * time.Second,
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     2 * time.Second,
		SendBuffer:       16,
	}
}

func startServer(t *testing.T, loader PrincipalLoader) (*Registry, *Server, string) {
	t.Helper()
	reg := NewRegistry(nil)
	srv := NewServer(testConfig(), reg, NewTokenAuthenticator(testSecret, loader), nil)
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	return reg, srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.WriteJSON(Handshake{Token: token}))
	return ws
}

func readUntil(t *testing.T, ws *websocket.Conn, event string) inbound {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f inbound
		require.NoError(t, ws.ReadJSON(&f))
		if f.Event == event {
			return f
		}
	}
}

func token(t *testing.T, uid uint64, ttlMin int) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, uid, ttlMin)
	require.NoError(t, err)
	return tok.Token
}

func expectRejected(t *testing.T, ws *websocket.Conn, want string) {
	t.Helper()
	f := readUntil(t, ws, EventConnectError)
	var body map[string]string
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, want, body["message"])

	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestHandshakeExpiredTokenIsRejected(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{7: principal(7, "Admin")}})

	ws := dial(t, url, token(t, 7, -5))
	expectRejected(t, ws, "Authentication error: Invalid token")
	assert.Equal(t, 0, reg.Users())
}

func TestHandshakeMissingToken(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{})

	ws := dial(t, url, "  ")
	expectRejected(t, ws, "Authentication error: Token not provided")
	assert.Equal(t, 0, reg.Users())
}

func TestHandshakeUnknownUser(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{}})

	ws := dial(t, url, token(t, 404, 15))
	expectRejected(t, ws, "Authentication error: User not found")
	assert.Equal(t, 0, reg.Users())
}

func TestHandshakeLoaderFailure(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{err: errors.New("db down")})

	ws := dial(t, url, token(t, 1, 15))
	expectRejected(t, ws, "Authentication error: db down")
	assert.Equal(t, 0, reg.Users())
}

func TestHandshakeTokenWithoutUserIDClaim(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{9: principal(9, "Admin")}})

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	ws := dial(t, url, raw)
	expectRejected(t, ws, "Authentication error: Invalid token")
	assert.Equal(t, 0, reg.Users())
}

func TestHandshakeLongFailureKeepsPolicyClose(t *testing.T) {
	cause := errors.New(strings.Repeat("connection refused ", 20))
	reg, _, url := startServer(t, stubLoader{err: cause})

	ws := dial(t, url, token(t, 1, 15))
	expectRejected(t, ws, "Authentication error: "+cause.Error())
	assert.Equal(t, 0, reg.Users())
}

func TestCloseReasonFitsControlFrame(t *testing.T) {
	assert.Equal(t, "short", closeReason("short"))
	assert.Len(t, closeReason(strings.Repeat("a", 300)), maxCloseReason)

	// a two byte rune straddling the limit is dropped whole
	got := closeReason(strings.Repeat("a", maxCloseReason-1) + "é" + "tail")
	assert.Len(t, got, maxCloseReason-1)
	assert.True(t, utf8.ValidString(got))
}

type nilPrincipalAuth struct{}

func (nilPrincipalAuth) Authenticate(context.Context, string) (*model.Principal, error) {
	return nil, nil
}

func TestAuthenticatedWithoutPrincipalIsDisconnected(t *testing.T) {
	reg := NewRegistry(nil)
	hs := httptest.NewServer(NewServer(testConfig(), reg, nilPrincipalAuth{}, nil))
	t.Cleanup(hs.Close)

	ws := dial(t, "ws"+strings.TrimPrefix(hs.URL, "http"), "anything")
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, reg.Users())
}

func TestConnectedClientReceivesPingAndNotifications(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{
		7: principal(7, "Admin"),
	}})

	ws := dial(t, url, "Bearer "+token(t, 7, 15))
	readUntil(t, ws, EventConnected)
	assert.Equal(t, 1, reg.Connections(7))

	readUntil(t, ws, EventPing)

	reg.NotifyRoles([]string{"SuperAdmin", "Admin", "ContentManager"}, "notification:blogs", map[string]any{"id": 12})
	f := readUntil(t, ws, "notification:blogs")
	assert.JSONEq(t, `{"id":12}`, string(f.Data))

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return reg.Users() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestRoleFilteringOverTheWire(t *testing.T) {
	reg, _, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{
		1: principal(1, "Editor"),
		2: principal(2, "SuperAdmin"),
	}})

	editor := dial(t, url, token(t, 1, 15))
	readUntil(t, editor, EventConnected)
	super := dial(t, url, token(t, 2, 15))
	readUntil(t, super, EventConnected)

	reg.NotifyRoles([]string{"SuperAdmin", "Admin"}, "notification:inquiries", map[string]any{"id": 1})
	readUntil(t, super, "notification:inquiries")

	// the editor only ever sees heartbeats
	_ = editor.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		var f inbound
		if err := editor.ReadJSON(&f); err != nil {
			break
		}
		assert.Equal(t, EventPing, f.Event)
	}
}

func TestShutdownDropsClients(t *testing.T) {
	reg, srv, url := startServer(t, stubLoader{principals: map[uint64]*model.Principal{3: principal(3, "Admin")}})

	a := dial(t, url, token(t, 3, 15))
	readUntil(t, a, EventConnected)
	b := dial(t, url, token(t, 3, 15))
	readUntil(t, b, EventConnected)
	require.Equal(t, 2, reg.Connections(3))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Equal(t, 0, reg.Users())
}

func TestClientEmitAfterCloseFails(t *testing.T) {
	c := &Client{id: "x", send: make(chan []byte, 1), done: make(chan struct{})}
	require.NoError(t, c.Emit("a", nil))
	assert.ErrorIs(t, c.Emit("b", nil), ErrSendBufferFull)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Emit("c", nil), ErrClientClosed)
}
