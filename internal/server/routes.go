package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"rummy-server/internal/rummy"
)

// broadcastTimeout bounds a single fan-out write. Broadcasts run on
// the committing goroutine (store subscriptions are synchronous), so
// one stuck socket must not stall everyone else's moves. Variable so
// tests can shrink it.
var broadcastTimeout = 5 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.helloHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) helloHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "rummy-server"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{"status": "ok", "store": "memory"}
	if s.pg != nil {
		health["store"] = "postgres"
		if err := s.pg.Health(r.Context()); err != nil {
			health["status"] = "degraded"
			health["error"] = err.Error()
		}
	}

	resp, err := json.Marshal(health)
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	defer s.closeConnection(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		if !s.limiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		log.Printf("Message Type '%s' from %s", msg.Type, connectionID)

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID)

		case "create_lobby":
			s.handleCreateLobby(socket, ctx, connectionID, msg.Payload)

		case "join_lobby":
			s.handleJoinLobby(socket, ctx, connectionID, msg.Payload)

		case "leave_lobby":
			s.handleLeaveLobby(socket, ctx, connectionID)

		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)

		case "start_game":
			s.handleStartGame(socket, ctx, connectionID)

		case "execute_move":
			s.handleExecuteMove(socket, ctx, connectionID, msg.Payload)

		default:
			log.Printf("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

// closeConnection tears down the connection's state and tells the
// player's lobby they went away. The game itself keeps running; a
// disconnected player's turn simply waits for them to reconnect.
func (s *Server) closeConnection(connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)

	s.connectionManager.RemoveConnection(connectionID)
	s.limiter.RemoveConnection(connectionID)
	log.Printf("Connection closed: %s", connectionID)

	if token == "" {
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		// Player left via leave_lobby before disconnecting; nothing to do.
		return
	}

	lobby, err := s.lobbyManager.SetConnected(session.LobbyCode, session.PlayerID, false)
	if err != nil {
		return
	}

	log.Printf("Player %s (%s) disconnected from lobby %s", session.PlayerID, session.Name, session.LobbyCode)
	s.broadcastToLobby(lobby, "player_disconnected", PlayerStatusNotification{
		PlayerID: session.PlayerID,
		Name:     session.Name,
	})
	s.broadcastLobbyUpdate(lobby)
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

func (s *Server) broadcastToLobby(lobby *Lobby, messageType string, payload interface{}) {
	for _, member := range lobby.Members {
		connID := s.connectionManager.GetConnectionByToken(member.Token)
		if connID == "" {
			continue // Player not connected
		}

		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    messageType,
			Payload: payload,
		}
		// Background context: broadcasts outlive the triggering request.
		if err := s.broadcastMessage(conn, msg); err != nil {
			log.Printf("Failed to broadcast to %s: %v", member.Name, err)
		}
	}
}

// broadcastMessage is sendMessage with the fan-out deadline applied.
func (s *Server) broadcastMessage(conn *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()
	return s.sendMessage(conn, ctx, msg)
}

func (s *Server) handleCreateLobby(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateLobbyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_lobby payload")
		return
	}

	lobby, host, err := s.lobbyManager.CreateLobby(req.Name)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.StoreSession(SessionInfo{
		Token:     host.Token,
		LobbyCode: lobby.Code,
		PlayerID:  host.PlayerID,
		Name:      host.Name,
	})
	s.connectionManager.BindToken(connectionID, host.Token)

	response := ServerMessage{
		Type: "lobby_created",
		Payload: CreateLobbyResponse{
			LobbyCode: lobby.Code,
			Token:     host.Token,
			PlayerID:  host.PlayerID,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send lobby_created: %v", err)
		return
	}

	s.broadcastLobbyUpdate(lobby)
}

func (s *Server) handleJoinLobby(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinLobbyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_lobby payload")
		return
	}

	lobby, member, err := s.lobbyManager.JoinLobby(req.LobbyCode, req.Name)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.StoreSession(SessionInfo{
		Token:     member.Token,
		LobbyCode: lobby.Code,
		PlayerID:  member.PlayerID,
		Name:      member.Name,
	})
	s.connectionManager.BindToken(connectionID, member.Token)

	response := ServerMessage{
		Type: "lobby_joined",
		Payload: JoinLobbyResponse{
			Success:   true,
			LobbyCode: lobby.Code,
			Token:     member.Token,
			PlayerID:  member.PlayerID,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send lobby_joined: %v", err)
		return
	}

	s.broadcastLobbyUpdate(lobby)
}

func (s *Server) handleLeaveLobby(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_LOBBY: No active session")
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	lobby, err := s.lobbyManager.LeaveLobby(session.LobbyCode, session.PlayerID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.RemoveSession(token)

	if err := s.sendMessage(socket, ctx, ServerMessage{Type: "lobby_left", Payload: struct{}{}}); err != nil {
		log.Printf("Failed to send lobby_left: %v", err)
	}

	s.broadcastLobbyUpdate(lobby)
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reconnect payload")
		return
	}

	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Evict any previous connection holding this token.
	oldConnectionID := s.connectionManager.BindToken(connectionID, req.Token)
	if oldConnectionID != "" {
		oldConn := s.connectionManager.GetConnection(oldConnectionID)
		if oldConn != nil {
			s.broadcastMessage(oldConn, ServerMessage{
				Type: "disconnected_elsewhere",
				Payload: struct {
					Message string `json:"message"`
				}{
					Message: "You connected on another device",
				},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
	}

	lobby, err := s.lobbyManager.SetConnected(session.LobbyCode, session.PlayerID, true)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	response := ServerMessage{
		Type: "reconnected",
		Payload: ReconnectResponse{
			Success:   true,
			LobbyCode: session.LobbyCode,
			PlayerID:  session.PlayerID,
			Message:   "Successfully reconnected",
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send reconnected response: %v", err)
	}

	s.broadcastToLobby(lobby, "player_reconnected", PlayerStatusNotification{
		PlayerID:  session.PlayerID,
		Name:      session.Name,
		Connected: true,
	})
	s.broadcastLobbyUpdate(lobby)

	// A reconnecting player needs the current game state, not just the
	// next change.
	if lobby.Status == LobbyInGame && lobby.CurrentGameID != "" {
		state, err := s.game.Game(ctx, lobby.CurrentGameID)
		if err != nil {
			log.Printf("Failed to load game %s for reconnect: %v", lobby.CurrentGameID, err)
			return
		}
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "game_state",
			Payload: state.ClientStateFor(session.PlayerID),
		})
	}
}

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_LOBBY: No active session")
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	gameID := uuid.New().String()
	players, err := s.lobbyManager.StartGame(session.LobbyCode, session.PlayerID, gameID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Subscribe before the first write so nobody misses the deal.
	s.watchGame(session.LobbyCode, gameID)

	if err := s.game.InitializeGame(ctx, gameID, session.LobbyCode, players); err != nil {
		s.dropGameSubscription(gameID)
		s.lobbyManager.FinishGame(session.LobbyCode)
		s.sendError(socket, ctx, err.Error())
		return
	}

	lobby, err := s.lobbyManager.GetLobby(session.LobbyCode)
	if err != nil {
		return
	}
	s.broadcastToLobby(lobby, "game_started", GameStartedNotification{
		GameID:  gameID,
		Message: "Game is starting! Get ready to play.",
	})
}

// watchGame fans every committed change of the game document out to
// the lobby as personalized views, and returns the lobby to waiting
// when the game reaches a terminal state.
func (s *Server) watchGame(lobbyCode, gameID string) {
	cancel := s.game.Subscribe(gameID, func(state *rummy.GameState) {
		if state == nil {
			s.dropGameSubscription(gameID)
			return
		}

		s.broadcastGameState(lobbyCode, state)

		if state.Status != rummy.StatusInProgress {
			lobby, err := s.lobbyManager.GetLobby(lobbyCode)
			if err == nil {
				s.broadcastToLobby(lobby, "game_ended", GameEndedNotification{
					GameID: gameID,
					Winner: state.Winner,
					Scores: state.Scores,
				})
			}
			s.lobbyManager.FinishGame(lobbyCode)
			s.dropGameSubscription(gameID)
			log.Printf("Game %s in lobby %s completed", gameID, lobbyCode)
		}
	})

	s.trackGameSubscription(gameID, cancel)
}

// broadcastGameState sends each connected lobby member their own view
// of the game: their hand face up, everyone else as counts.
func (s *Server) broadcastGameState(lobbyCode string, state *rummy.GameState) {
	lobby, err := s.lobbyManager.GetLobby(lobbyCode)
	if err != nil {
		return
	}

	for _, member := range lobby.Members {
		connID := s.connectionManager.GetConnectionByToken(member.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "game_state",
			Payload: state.ClientStateFor(member.PlayerID),
		}
		if err := s.broadcastMessage(conn, msg); err != nil {
			log.Printf("Failed to broadcast game state to %s: %v", member.Name, err)
		}
	}
}

func (s *Server) broadcastLobbyUpdate(lobby *Lobby) {
	for _, member := range lobby.Members {
		connID := s.connectionManager.GetConnectionByToken(member.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "lobby_update",
			Payload: s.buildLobbyState(lobby, member.Token),
		}
		if err := s.broadcastMessage(conn, msg); err != nil {
			log.Printf("Failed to broadcast to %s: %v", member.Name, err)
		}
	}
}

// buildLobbyState creates personalized lobby state for a specific player
func (s *Server) buildLobbyState(lobby *Lobby, forToken string) LobbyState {
	players := make([]LobbyPlayer, 0, len(lobby.Members))
	for _, id := range lobby.MemberOrder {
		member, ok := lobby.Members[id]
		if !ok {
			continue
		}
		players = append(players, LobbyPlayer{
			PlayerID:  member.PlayerID,
			Name:      member.Name,
			IsHost:    member.IsHost,
			Connected: member.Connected,
			IsYou:     member.Token == forToken,
		})
	}

	return LobbyState{
		LobbyCode:   lobby.Code,
		Status:      string(lobby.Status),
		Players:     players,
		PlayerCount: len(players),
		GameCount:   lobby.GameCount,
		CanStart:    lobby.Status == LobbyWaiting && len(players) >= 2,
	}
}

func (s *Server) handleExecuteMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid move request")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_LOBBY: No active session")
		return
	}

	session, err := s.sessionManager.GetSession(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	lobby, err := s.lobbyManager.GetLobby(session.LobbyCode)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	if lobby.Status != LobbyInGame || lobby.CurrentGameID == "" {
		s.sendError(socket, ctx, "GAME_NOT_STARTED: Game hasn't started yet")
		return
	}

	gameID := lobby.CurrentGameID
	playerID := session.PlayerID

	var moveErr error
	switch req.Type {
	case "draw_from_closed":
		moveErr = s.game.DrawFromClosed(ctx, gameID, playerID)
	case "draw_from_open":
		moveErr = s.game.DrawFromOpen(ctx, gameID, playerID)
	case "discard":
		moveErr = s.game.Discard(ctx, gameID, playerID, req.CardID)
	case "declare":
		moveErr = s.game.Declare(ctx, gameID, playerID, req.Melds)
	case "drop":
		moveErr = s.game.Drop(ctx, gameID, playerID)
	default:
		s.sendError(socket, ctx, fmt.Sprintf("INVALID_MOVE: Unknown move type '%s'", req.Type))
		return
	}

	if moveErr != nil {
		var declErr *rummy.DeclarationError
		if !errors.As(moveErr, &declErr) {
			log.Printf("Move %s by %s in game %s rejected: %v", req.Type, playerID, gameID, moveErr)
		}
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "move_result",
			Payload: MoveResultResponse{
				Success: false,
				Message: moveErr.Error(),
			},
		})
		return
	}

	// State fan-out already happened through the game subscription;
	// confirm after it so the caller sees a consistent order.
	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "move_result",
		Payload: MoveResultResponse{Success: true},
	})
}
