package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"

	"rummy-server/internal/rummy"
	"rummy-server/internal/store"
)

func TestHandlePing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "ping"}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("pong", response.Type)
}

func TestUnknownMessageType(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "abracadabra"}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)
}

func TestInvalidJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, []byte("{not json"))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)
}

func TestRateLimiting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()
	s.limiter = NewRateLimiter(3, time.Second)

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for range 4 {
		err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "ping"}))
		assert.NoError(err)
	}

	types := make([]string, 0, 4)
	for range 4 {
		types = append(types, readMessage(t, ctx, conn).Type)
	}
	assert.Equal([]string{"pong", "pong", "pong", "error"}, types)
}

func TestBroadcastWritesAreBounded(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	// With no deadline budget every fan-out write fails instead of
	// blocking; the handler must keep serving regardless.
	old := broadcastTimeout
	broadcastTimeout = time.Nanosecond
	defer func() { broadcastTimeout = old }()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "create_lobby",
		Payload: mustMarshal(CreateLobbyRequest{Name: "Alice"}),
	}))
	assert.NoError(err)

	// The direct response still arrives; the lobby_update broadcast is
	// dropped by the expired deadline rather than stalling the loop.
	response := readMessage(t, ctx, conn)
	assert.Equal("lobby_created", response.Type)

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "ping"}))
	assert.NoError(err)
	response = readMessage(t, ctx, conn)
	assert.Equal("pong", response.Type)
}

func TestHealthHandler(t *testing.T) {
	assert := assert.New(t)
	s, _, cleanup := setupTestServer()
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	assert.Equal(http.StatusOK, rec.Code)

	var health map[string]string
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal("ok", health["status"])
	assert.Equal("memory", health["store"])
}

func setupTestServer() (*Server, string, func()) {
	documents := store.NewMemory()

	s := &Server{
		documents:         documents,
		game:              rummy.NewService(documents),
		lobbyManager:      NewLobbyManager(),
		sessionManager:    NewSessionManager(),
		connectionManager: NewConnectionManager(),
		limiter:           NewRateLimiter(100, time.Second),
		gameSubs:          make(map[string]func()),
	}

	server := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	cleanup := func() {
		s.Shutdown(context.Background())
		server.Close()
	}

	return s, url, cleanup
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// readMessage reads the next server message, failing the test rather
// than hanging if nothing arrives.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) ServerMessage {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	return msg
}

// parsePayload re-decodes a message payload into its concrete type.
func parsePayload(t *testing.T, msg ServerMessage, v interface{}) {
	t.Helper()

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("failed to re-marshal payload: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
}
