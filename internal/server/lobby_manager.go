package server

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rummy-server/internal/rummy"
)

// MaxLobbyPlayers caps a table at six seats, the practical ceiling for
// a two-deck rummy game.
const MaxLobbyPlayers = 6

type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "waiting"
	LobbyInGame   LobbyStatus = "in-game"
	LobbyFinished LobbyStatus = "finished"
)

type LobbyMember struct {
	PlayerID  string
	Name      string
	Token     string
	IsHost    bool
	Connected bool
	JoinedAt  time.Time
}

type Lobby struct {
	Code          string
	Status        LobbyStatus
	HostID        string
	CurrentGameID string
	GameCount     int
	MemberOrder   []string // join order; becomes the deal order at game start
	Members       map[string]*LobbyMember
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// snapshot deep-copies the lobby so callers can read it after the
// manager's lock is released. The live lobby never leaves the lock:
// broadcast loops iterate Members while joins and leaves mutate it,
// and sharing the map would be a concurrent iteration-and-write.
func (l *Lobby) snapshot() *Lobby {
	members := make(map[string]*LobbyMember, len(l.Members))
	for id, member := range l.Members {
		copied := *member
		members[id] = &copied
	}

	out := *l
	out.Members = members
	out.MemberOrder = append([]string(nil), l.MemberOrder...)
	return &out
}

// LobbyManager owns all lobby state. Every method that returns a
// *Lobby or *LobbyMember returns a snapshot taken under the lock;
// mutations only happen inside the manager.
type LobbyManager struct {
	lobbies   map[string]*Lobby
	usedCodes map[string]bool
	mu        sync.RWMutex
}

func NewLobbyManager() *LobbyManager {
	return &LobbyManager{
		lobbies:   make(map[string]*Lobby),
		usedCodes: make(map[string]bool),
	}
}

func (lm *LobbyManager) CreateLobby(name string) (*Lobby, *LobbyMember, error) {
	if err := validatePlayerName(name); err != nil {
		return nil, nil, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	code := GenerateLobbyCode(lm.usedCodes)
	lm.usedCodes[code] = true

	now := time.Now()
	host := &LobbyMember{
		PlayerID:  uuid.New().String(),
		Name:      name,
		Token:     uuid.New().String(),
		IsHost:    true,
		Connected: true,
		JoinedAt:  now,
	}

	lobby := &Lobby{
		Code:        code,
		Status:      LobbyWaiting,
		HostID:      host.PlayerID,
		MemberOrder: []string{host.PlayerID},
		Members:     map[string]*LobbyMember{host.PlayerID: host},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lm.lobbies[code] = lobby

	snap := lobby.snapshot()
	return snap, snap.Members[host.PlayerID], nil
}

func (lm *LobbyManager) JoinLobby(code, name string) (*Lobby, *LobbyMember, error) {
	code = NormalizeLobbyCode(code)
	if err := ValidateLobbyCode(code); err != nil {
		return nil, nil, err
	}
	if err := validatePlayerName(name); err != nil {
		return nil, nil, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return nil, nil, errors.New("LOBBY_NOT_FOUND: Lobby not found")
	}
	if lobby.Status != LobbyWaiting {
		return nil, nil, errors.New("GAME_ALREADY_STARTED: Cannot join a lobby in game")
	}
	if len(lobby.Members) >= MaxLobbyPlayers {
		return nil, nil, errors.New("LOBBY_FULL: Lobby is full")
	}
	for _, member := range lobby.Members {
		if member.Name == name {
			return nil, nil, errors.New("NAME_TAKEN: Name already taken in this lobby")
		}
	}

	now := time.Now()
	member := &LobbyMember{
		PlayerID:  uuid.New().String(),
		Name:      name,
		Token:     uuid.New().String(),
		Connected: true,
		JoinedAt:  now,
	}
	lobby.Members[member.PlayerID] = member
	lobby.MemberOrder = append(lobby.MemberOrder, member.PlayerID)
	lobby.UpdatedAt = now

	snap := lobby.snapshot()
	return snap, snap.Members[member.PlayerID], nil
}

func (lm *LobbyManager) LeaveLobby(code, playerID string) (*Lobby, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return nil, errors.New("LOBBY_NOT_FOUND: Lobby not found")
	}
	if lobby.Status != LobbyWaiting {
		return nil, errors.New("GAME_STARTED: Use drop for active games")
	}
	if _, ok := lobby.Members[playerID]; !ok {
		return nil, errors.New("NOT_IN_LOBBY: Player not in lobby")
	}

	delete(lobby.Members, playerID)
	for i, id := range lobby.MemberOrder {
		if id == playerID {
			lobby.MemberOrder = append(lobby.MemberOrder[:i], lobby.MemberOrder[i+1:]...)
			break
		}
	}
	lobby.UpdatedAt = time.Now()

	if lobby.HostID == playerID {
		lm.promoteNewHost(lobby)
	}

	if len(lobby.Members) == 0 {
		delete(lm.lobbies, code)
		delete(lm.usedCodes, code)
	}

	return lobby.snapshot(), nil
}

// StartGame flips the lobby into in-game state and returns the ordered
// participant list for the engine. Host only, two players minimum.
func (lm *LobbyManager) StartGame(code, playerID, gameID string) ([]rummy.PlayerInfo, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return nil, errors.New("LOBBY_NOT_FOUND: Lobby not found")
	}
	if lobby.Status != LobbyWaiting {
		return nil, errors.New("INVALID_STATUS: Game already started")
	}
	if lobby.HostID != playerID {
		return nil, errors.New("NOT_HOST: Only the host can start a game")
	}
	if len(lobby.Members) < 2 {
		return nil, rummy.ErrInsufficientPlayers
	}

	players := make([]rummy.PlayerInfo, 0, len(lobby.Members))
	for _, id := range lobby.MemberOrder {
		member := lobby.Members[id]
		players = append(players, rummy.PlayerInfo{ID: member.PlayerID, Name: member.Name})
	}

	lobby.Status = LobbyInGame
	lobby.CurrentGameID = gameID
	lobby.GameCount++
	lobby.UpdatedAt = time.Now()

	return players, nil
}

// FinishGame returns the lobby to the waiting state once its game has
// reached a terminal status, so the table can play again.
func (lm *LobbyManager) FinishGame(code string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return
	}
	lobby.Status = LobbyWaiting
	lobby.CurrentGameID = ""
	lobby.UpdatedAt = time.Now()
}

func (lm *LobbyManager) GetLobby(code string) (*Lobby, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return nil, errors.New("LOBBY_NOT_FOUND: Lobby not found")
	}
	return lobby.snapshot(), nil
}

func (lm *LobbyManager) SetConnected(code, playerID string, connected bool) (*Lobby, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lobby, exists := lm.lobbies[code]
	if !exists {
		return nil, errors.New("LOBBY_NOT_FOUND: Lobby not found")
	}
	member, ok := lobby.Members[playerID]
	if !ok {
		return nil, errors.New("NOT_IN_LOBBY: Player not in lobby")
	}

	member.Connected = connected
	lobby.UpdatedAt = time.Now()
	return lobby.snapshot(), nil
}

func (lm *LobbyManager) promoteNewHost(lobby *Lobby) {
	for _, id := range lobby.MemberOrder {
		if member, ok := lobby.Members[id]; ok {
			member.IsHost = true
			lobby.HostID = id
			return
		}
	}
	lobby.HostID = ""
}

func validatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return errors.New("NAME_INVALID: Name must be at least 3 characters")
	}
	if len(name) > 20 {
		return errors.New("NAME_INVALID: Name too long (max 20 characters)")
	}
	return nil
}
