package rummy

import (
	"math/rand"
	"time"

	"rummy-server/internal/deck"
)

// NewGame deals a fresh game: full deck, wild joker chosen and marked,
// 13 cards per player, one card opening the open pile, shuffled turn
// order. The returned state is the initial authoritative document.
func NewGame(gameID, lobbyID string, players []PlayerInfo) (*GameState, error) {
	return NewGameWith(nil, gameID, lobbyID, players)
}

// NewGameWith is NewGame with a caller-supplied shuffle source so tests
// can deal reproducibly.
func NewGameWith(r *rand.Rand, gameID, lobbyID string, players []PlayerInfo) (*GameState, error) {
	if len(players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	cards, err := deck.New()
	if err != nil {
		return nil, err
	}

	var wildRank deck.Rank
	if r != nil {
		wildRank = deck.SelectWildJokerRankWith(r)
	} else {
		wildRank = deck.SelectWildJokerRank()
	}
	cards = deck.MarkWildJokers(cards, wildRank)

	dealt, err := deck.DealWith(r, cards, len(players), HandSize)
	if err != nil {
		return nil, err
	}

	// The deal must be a clean partition of the deck: no card lost,
	// duplicated or invented.
	total := len(dealt.OpenPile) + len(dealt.ClosedPile)
	seen := make(map[string]bool, deck.Size)
	for _, pile := range [][]deck.Card{dealt.OpenPile, dealt.ClosedPile} {
		for _, card := range pile {
			seen[card.ID] = true
		}
	}
	for _, hand := range dealt.Hands {
		total += len(hand)
		for _, card := range hand {
			seen[card.ID] = true
		}
	}
	if total != deck.Size || len(seen) != deck.Size {
		return nil, consistencyErr("deal produced %d cards with %d unique ids, expected %d",
			total, len(seen), deck.Size)
	}

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	turnOrder := shuffleIDs(r, ids)

	playerMap := make(map[string]*Player, len(players))
	for i, p := range players {
		playerMap[p.ID] = &Player{
			ID:   p.ID,
			Name: p.Name,
			Hand: deck.SortHand(dealt.Hands[i]),
		}
	}

	return &GameState{
		GameID:        gameID,
		LobbyID:       lobbyID,
		Status:        StatusInProgress,
		CurrentTurn:   turnOrder[0],
		TurnOrder:     turnOrder,
		WildJokerRank: wildRank,
		ClosedPile:    dealt.ClosedPile,
		OpenPile:      dealt.OpenPile,
		Players:       playerMap,
		CreatedAt:     time.Now().UnixMilli(),
		Winner:        nil,
	}, nil
}

func shuffleIDs(r *rand.Rand, ids []string) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if r != nil {
		r.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled
}

// DrawFromClosed moves the top card of the closed pile into the
// player's hand.
func (g *GameState) DrawFromClosed(playerID string) error {
	return g.draw(playerID, &g.ClosedPile)
}

// DrawFromOpen moves the top card of the open pile into the player's
// hand.
func (g *GameState) DrawFromOpen(playerID string) error {
	return g.draw(playerID, &g.OpenPile)
}

// draw applies the shared draw transition. Piles grow at the tail, so
// the top card is the last element.
func (g *GameState) draw(playerID string, pile *[]deck.Card) error {
	if g.Status != StatusInProgress {
		return ErrGameOver
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}
	if p.HasDrawn {
		return ErrAlreadyDrawn
	}
	if len(*pile) == 0 {
		return ErrPileEmpty
	}

	drawn := (*pile)[len(*pile)-1]
	*pile = (*pile)[:len(*pile)-1]

	hand := append(append([]deck.Card(nil), p.Hand...), drawn)
	if len(hand) != HandSize+1 {
		return consistencyErr("hand has %d cards after draw, expected %d", len(hand), HandSize+1)
	}

	p.Hand = deck.SortHand(hand)
	p.HasDrawn = true
	return nil
}

// Discard moves the named card from the player's hand to the open pile
// and passes the turn to the next player in order, wrapping around.
func (g *GameState) Discard(playerID, cardID string) error {
	if g.Status != StatusInProgress {
		return ErrGameOver
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}
	if !p.HasDrawn {
		return ErrMustDrawFirst
	}

	idx := -1
	for i, card := range p.Hand {
		if card.ID == cardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrCardNotInHand
	}

	discarded := p.Hand[idx]
	hand := make([]deck.Card, 0, len(p.Hand)-1)
	hand = append(hand, p.Hand[:idx]...)
	hand = append(hand, p.Hand[idx+1:]...)
	if len(hand) != HandSize {
		return consistencyErr("hand has %d cards after discard, expected %d", len(hand), HandSize)
	}

	g.OpenPile = append(g.OpenPile, discarded)
	p.Hand = deck.SortHand(hand)
	p.HasDrawn = false
	g.CurrentTurn = g.nextPlayer(playerID)
	return nil
}

func (g *GameState) nextPlayer(playerID string) string {
	for i, id := range g.TurnOrder {
		if id == playerID {
			return g.TurnOrder[(i+1)%len(g.TurnOrder)]
		}
	}
	// currentTurn is always an element of turnOrder; reaching here
	// means the document is corrupt, so stay put rather than invent.
	return playerID
}

// Declare ends the game. A valid declaration makes the declarer the
// winner and scores every player; an invalid one still ends the game,
// with the fixed penalty on the declarer and no winner. The returned
// *DeclarationError carries the failure reason even though the state
// transition commits.
func (g *GameState) Declare(playerID string, melds []Meld) error {
	if g.Status != StatusInProgress {
		return ErrGameOver
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}

	valid, reason := ValidateDeclaration(melds)

	if !valid {
		g.Status = StatusCompleted
		p.HasDeclared = true
		p.Score = InvalidDeclarationPenalty
		p.Melds = melds
		g.Scores = buildInvalidDeclarationScores(g, playerID, melds)
		return &DeclarationError{Reason: reason}
	}

	g.Status = StatusCompleted
	g.Winner = &playerID
	p.HasDeclared = true
	p.Melds = melds
	g.Scores = buildFinalScores(g, playerID, melds)
	return nil
}

// Drop takes the player out of the game for a fixed penalty: 20 points
// before the first turn of the game has passed, 40 after. If exactly
// one active player remains they win on the spot with score 0.
//
// First-drop detection compares currentTurn against the head of the
// turn order, which only recognizes the opening player's drop; later
// first-round drops count as middle drops. Deliberately preserved
// source behavior.
func (g *GameState) Drop(playerID string) error {
	if g.Status != StatusInProgress {
		return ErrGameOver
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}
	if p.HasDropped {
		return ErrAlreadyDropped
	}

	penalty := MiddleDropPenalty
	if g.CurrentTurn == g.TurnOrder[0] {
		penalty = FirstDropPenalty
	}

	p.HasDropped = true
	p.Score = penalty

	var survivors []string
	for _, id := range g.TurnOrder {
		other := g.Players[id]
		if other != nil && !other.HasDropped && !other.HasDeclared {
			survivors = append(survivors, id)
		}
	}

	if len(survivors) == 1 {
		winnerID := survivors[0]
		g.Status = StatusCompleted
		g.Winner = &winnerID
		g.Scores = buildFinalScores(g, winnerID, nil)
	}

	return nil
}
