package rummy

import (
	"rummy-server/internal/deck"
)

type GameStatus string

const (
	StatusInProgress GameStatus = "in-progress"
	StatusCompleted  GameStatus = "completed"
	StatusCancelled  GameStatus = "cancelled"
)

type MeldType string

const (
	MeldSequence     MeldType = "sequence"
	MeldPureSequence MeldType = "pure-sequence"
	MeldSet          MeldType = "set"
)

// Meld is a proposed grouping of cards. It only gains meaning when
// validated against its declared type.
type Meld struct {
	Type  MeldType    `json:"type"`
	Cards []deck.Card `json:"cards"`
}

type DeclarationType string

const (
	DeclarationValid      DeclarationType = "valid"
	DeclarationInvalid    DeclarationType = "invalid"
	DeclarationFirstDrop  DeclarationType = "first-drop"
	DeclarationMiddleDrop DeclarationType = "middle-drop"
)

// HandSize is the number of cards a player holds at the start and end
// of every completed turn. Between a draw and the following discard the
// hand briefly holds one more.
const HandSize = 13

type Player struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Hand        []deck.Card `json:"hand"`
	Score       int         `json:"score"`
	HasDrawn    bool        `json:"hasDrawn"`
	HasDeclared bool        `json:"hasDeclared"`
	HasDropped  bool        `json:"hasDropped"`
	Melds       []Meld      `json:"melds,omitempty"`
}

// GameScore is a player's final line in the completed game, produced
// exactly once at the transition into completed status.
type GameScore struct {
	PlayerID        string           `json:"playerId"`
	PlayerName      string           `json:"playerName"`
	Score           int              `json:"score"`
	Melds           []Meld           `json:"melds"`
	IsWinner        bool             `json:"isWinner"`
	DeclarationType *DeclarationType `json:"declarationType"`
}

// GameState is the authoritative game document. It is persisted as a
// single JSON value keyed by game id and mutated only through the turn
// operations; once status leaves in-progress it is immutable.
//
// Invariant: |closedPile| + |openPile| + sum of all hands == 106.
type GameState struct {
	GameID        string             `json:"gameId"`
	LobbyID       string             `json:"lobbyId"`
	Status        GameStatus         `json:"status"`
	CurrentTurn   string             `json:"currentTurn"`
	TurnOrder     []string           `json:"turnOrder"`
	WildJokerRank deck.Rank          `json:"wildJokerRank"`
	ClosedPile    []deck.Card        `json:"closedPile"`
	OpenPile      []deck.Card        `json:"openPile"`
	Players       map[string]*Player `json:"players"`
	CreatedAt     int64              `json:"createdAt"`
	Winner        *string            `json:"winner"`
	Scores        []GameScore        `json:"scores,omitempty"`
}

// PlayerInfo is what the lobby layer hands the engine at game start:
// a stable identifier and a display name, nothing more.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
