package server

import (
	"context"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// CREATE LOBBY TESTS
// ============================================================================

func TestHandleCreateLobby_Success(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "create_lobby",
		Payload: mustMarshal(CreateLobbyRequest{Name: "Alice"}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("lobby_created", response.Type)

	var createResp CreateLobbyResponse
	parsePayload(t, response, &createResp)
	assert.Len(createResp.LobbyCode, 4)
	assert.NotEmpty(createResp.Token)
	assert.NotEmpty(createResp.PlayerID)

	// Creator also receives the first lobby_update.
	response = readMessage(t, ctx, conn)
	assert.Equal("lobby_update", response.Type)

	var lobbyState LobbyState
	parsePayload(t, response, &lobbyState)
	assert.Equal(createResp.LobbyCode, lobbyState.LobbyCode)
	assert.Equal(1, lobbyState.PlayerCount)
	assert.False(lobbyState.CanStart)
	assert.True(lobbyState.Players[0].IsHost)
	assert.True(lobbyState.Players[0].IsYou)
}

func TestHandleCreateLobby_InvalidName(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "create_lobby",
		Payload: mustMarshal(CreateLobbyRequest{Name: "yo"}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)
}

// ============================================================================
// JOIN LOBBY TESTS
// ============================================================================

func TestHandleJoinLobby_Success(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	host, hostResp := createLobby(t, ctx, url, "Alice")
	defer host.Close(websocket.StatusNormalClosure, "")

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "join_lobby",
		Payload: mustMarshal(JoinLobbyRequest{LobbyCode: hostResp.LobbyCode, Name: "Bobby"}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("lobby_joined", response.Type)

	var joinResp JoinLobbyResponse
	parsePayload(t, response, &joinResp)
	assert.True(joinResp.Success)
	assert.Equal(hostResp.LobbyCode, joinResp.LobbyCode)
	assert.NotEmpty(joinResp.Token)

	// Both members receive the updated roster.
	response = readMessage(t, ctx, conn)
	assert.Equal("lobby_update", response.Type)

	var lobbyState LobbyState
	parsePayload(t, response, &lobbyState)
	assert.Equal(2, lobbyState.PlayerCount)
	assert.True(lobbyState.CanStart)

	hostUpdate := readMessage(t, ctx, host)
	assert.Equal("lobby_update", hostUpdate.Type)
}

func TestHandleJoinLobby_UnknownCode(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "join_lobby",
		Payload: mustMarshal(JoinLobbyRequest{LobbyCode: "ZZZZ", Name: "Bobby"}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)

	var errMsg ErrorMessage
	parsePayload(t, response, &errMsg)
	assert.Contains(errMsg.Message, "LOBBY_NOT_FOUND")
}

// ============================================================================
// LEAVE LOBBY TESTS
// ============================================================================

func TestHandleLeaveLobby(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	host, hostResp := createLobby(t, ctx, url, "Alice")
	defer host.Close(websocket.StatusNormalClosure, "")
	member, _ := joinLobby(t, ctx, url, hostResp.LobbyCode, "Bobby")
	defer member.Close(websocket.StatusNormalClosure, "")
	readMessage(t, ctx, host) // lobby_update from the join

	err := member.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "leave_lobby"}))
	assert.NoError(err)

	response := readMessage(t, ctx, member)
	assert.Equal("lobby_left", response.Type)

	// The host sees the shrunken roster.
	hostUpdate := readMessage(t, ctx, host)
	assert.Equal("lobby_update", hostUpdate.Type)

	var lobbyState LobbyState
	parsePayload(t, hostUpdate, &lobbyState)
	assert.Equal(1, lobbyState.PlayerCount)
}

func TestHandleLeaveLobby_NoSession(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "leave_lobby"}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)
}

// ============================================================================
// RECONNECT TESTS
// ============================================================================

func TestHandleReconnect(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	host, hostResp := createLobby(t, ctx, url, "Alice")
	host.Close(websocket.StatusNormalClosure, "")

	// A fresh connection resumes the session with the old token.
	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "reconnect",
		Payload: mustMarshal(ReconnectRequest{Token: hostResp.Token}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("reconnected", response.Type)

	var reconnectResp ReconnectResponse
	parsePayload(t, response, &reconnectResp)
	assert.True(reconnectResp.Success)
	assert.Equal(hostResp.LobbyCode, reconnectResp.LobbyCode)
	assert.Equal(hostResp.PlayerID, reconnectResp.PlayerID)

	// player_reconnected then lobby_update, both broadcast to the lobby.
	response = readMessage(t, ctx, conn)
	assert.Equal("player_reconnected", response.Type)
	response = readMessage(t, ctx, conn)
	assert.Equal("lobby_update", response.Type)
}

func TestHandleReconnect_BadToken(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "reconnect",
		Payload: mustMarshal(ReconnectRequest{Token: "not-a-token"}),
	}))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)

	var errMsg ErrorMessage
	parsePayload(t, response, &errMsg)
	assert.Contains(errMsg.Message, "TOKEN_NOT_FOUND")
}

// ============================================================================
// START GAME TESTS
// ============================================================================

func TestHandleStartGame_NotHost(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	host, hostResp := createLobby(t, ctx, url, "Alice")
	defer host.Close(websocket.StatusNormalClosure, "")
	member, _ := joinLobby(t, ctx, url, hostResp.LobbyCode, "Bobby")
	defer member.Close(websocket.StatusNormalClosure, "")
	readMessage(t, ctx, host) // lobby_update from the join

	err := member.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "start_game"}))
	assert.NoError(err)

	response := readMessage(t, ctx, member)
	assert.Equal("error", response.Type)

	var errMsg ErrorMessage
	parsePayload(t, response, &errMsg)
	assert.Contains(errMsg.Message, "NOT_HOST")
}

func TestHandleStartGame_NotEnoughPlayers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	host, _ := createLobby(t, ctx, url, "Alice")
	defer host.Close(websocket.StatusNormalClosure, "")

	err := host.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "start_game"}))
	assert.NoError(err)

	response := readMessage(t, ctx, host)
	assert.Equal("error", response.Type)
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// createLobby dials a connection, creates a lobby and consumes the
// initial lobby_update.
func createLobby(t *testing.T, ctx context.Context, url, name string) (*websocket.Conn, CreateLobbyResponse) {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "create_lobby",
		Payload: mustMarshal(CreateLobbyRequest{Name: name}),
	})); err != nil {
		t.Fatalf("failed to send create_lobby: %v", err)
	}

	response := readMessage(t, ctx, conn)
	if response.Type != "lobby_created" {
		t.Fatalf("expected lobby_created, got %s", response.Type)
	}
	var createResp CreateLobbyResponse
	parsePayload(t, response, &createResp)

	readMessage(t, ctx, conn) // lobby_update

	return conn, createResp
}

// joinLobby dials a connection, joins the lobby and consumes its own
// lobby_update. The caller must drain updates on the other members.
func joinLobby(t *testing.T, ctx context.Context, url, code, name string) (*websocket.Conn, JoinLobbyResponse) {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{
		Type:    "join_lobby",
		Payload: mustMarshal(JoinLobbyRequest{LobbyCode: code, Name: name}),
	})); err != nil {
		t.Fatalf("failed to send join_lobby: %v", err)
	}

	response := readMessage(t, ctx, conn)
	if response.Type != "lobby_joined" {
		t.Fatalf("expected lobby_joined, got %s", response.Type)
	}
	var joinResp JoinLobbyResponse
	parsePayload(t, response, &joinResp)

	readMessage(t, ctx, conn) // lobby_update

	return conn, joinResp
}
