package server

import "rummy-server/internal/rummy"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE LOBBY (create_lobby)
// ============================================================================
type CreateLobbyRequest struct {
	Name string `json:"name"`
}

type CreateLobbyResponse struct {
	LobbyCode string `json:"lobbyCode"`
	Token     string `json:"token"`
	PlayerID  string `json:"playerId"`
}

// ============================================================================
// JOIN LOBBY (join_lobby)
// ============================================================================
type JoinLobbyRequest struct {
	LobbyCode string `json:"lobbyCode"`
	Name      string `json:"name"`
}

type JoinLobbyResponse struct {
	Success   bool   `json:"success"`
	LobbyCode string `json:"lobbyCode"`
	Token     string `json:"token"`
	PlayerID  string `json:"playerId"`
}

// ============================================================================
// RECONNECT (reconnect)
// ============================================================================
type ReconnectRequest struct {
	Token string `json:"token"`
}

type ReconnectResponse struct {
	Success   bool   `json:"success"`
	LobbyCode string `json:"lobbyCode"`
	PlayerID  string `json:"playerId"`
	Message   string `json:"message"`
}

// ============================================================================
// START GAME (start_game) — host only, no fields; token identifies host
// ============================================================================
type StartGameRequest struct{}

// ============================================================================
// EXECUTE MOVE (execute_move)
// ============================================================================
type MoveRequest struct {
	Type   string       `json:"type"`
	CardID string       `json:"cardId,omitempty"`
	Melds  []rummy.Meld `json:"melds,omitempty"`
}

type MoveResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// LOBBY STATE (lobby_update broadcast)
// ============================================================================
type LobbyState struct {
	LobbyCode   string        `json:"lobbyCode"`
	Status      string        `json:"status"`
	Players     []LobbyPlayer `json:"players"`
	PlayerCount int           `json:"playerCount"`
	GameCount   int           `json:"gameCount"`
	CanStart    bool          `json:"canStart"`
}

type LobbyPlayer struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
	IsYou     bool   `json:"isYou"` // Personalized for each client
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================
type GameStartedNotification struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

type PlayerStatusNotification struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type GameEndedNotification struct {
	GameID string            `json:"gameId"`
	Winner *string           `json:"winner"`
	Scores []rummy.GameScore `json:"scores"`
}
