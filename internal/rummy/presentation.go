package rummy

import "rummy-server/internal/deck"

// ClientState is the personalized projection of a game sent to one
// player: their own hand face up, everyone else reduced to counts and
// flags. The engine keeps full visibility; trimming happens here.
type ClientState struct {
	GameID        string             `json:"gameId"`
	Status        GameStatus         `json:"status"`
	CurrentTurn   string             `json:"currentTurn"`
	IsYourTurn    bool               `json:"isYourTurn"`
	WildJokerRank deck.Rank          `json:"wildJokerRank"`
	Hand          []deck.Card        `json:"hand"`
	HasDrawn      bool               `json:"hasDrawn"`
	HasDropped    bool               `json:"hasDropped"`
	ClosedCount   int                `json:"closedCount"`
	OpenCount     int                `json:"openCount"`
	OpenTopCard   *deck.Card         `json:"openTopCard"`
	Players       []OtherPlayerState `json:"players"`
	Winner        *string            `json:"winner"`
	Scores        []GameScore        `json:"scores,omitempty"`
}

type OtherPlayerState struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HandLength    int    `json:"handLength"`
	HasDropped    bool   `json:"hasDropped"`
	HasDeclared   bool   `json:"hasDeclared"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

// ClientStateFor builds the view for one player. Safe to call with an
// id that is not in the game; the hand just comes back empty.
func (g *GameState) ClientStateFor(playerID string) *ClientState {
	state := &ClientState{
		GameID:        g.GameID,
		Status:        g.Status,
		CurrentTurn:   g.CurrentTurn,
		IsYourTurn:    g.CurrentTurn == playerID,
		WildJokerRank: g.WildJokerRank,
		ClosedCount:   len(g.ClosedPile),
		OpenCount:     len(g.OpenPile),
		Winner:        g.Winner,
		Scores:        g.Scores,
	}

	// Pointer so the client sees null, not a zero card, on an empty pile.
	if len(g.OpenPile) > 0 {
		top := g.OpenPile[len(g.OpenPile)-1]
		state.OpenTopCard = &top
	}

	if me, ok := g.Players[playerID]; ok {
		state.Hand = me.Hand
		state.HasDrawn = me.HasDrawn
		state.HasDropped = me.HasDropped
	}

	for _, id := range g.TurnOrder {
		if id == playerID {
			continue
		}
		p, ok := g.Players[id]
		if !ok {
			continue
		}
		state.Players = append(state.Players, OtherPlayerState{
			ID:            p.ID,
			Name:          p.Name,
			HandLength:    len(p.Hand),
			HasDropped:    p.HasDropped,
			HasDeclared:   p.HasDeclared,
			IsCurrentTurn: g.CurrentTurn == p.ID,
		})
	}

	return state
}
