package rummy

import (
	"errors"
	"fmt"
)

// Validation errors are expected, caller-recoverable conditions. They
// are surfaced verbatim and never retried.
var (
	ErrNotYourTurn         = errors.New("NOT_YOUR_TURN: It's not your turn")
	ErrAlreadyDrawn        = errors.New("ALREADY_DRAWN: Already drawn this turn")
	ErrMustDrawFirst       = errors.New("MUST_DRAW_FIRST: Must draw a card first")
	ErrCardNotInHand       = errors.New("CARD_NOT_IN_HAND: Card not in hand")
	ErrPileEmpty           = errors.New("PILE_EMPTY: Pile is empty")
	ErrInsufficientPlayers = errors.New("INSUFFICIENT_PLAYERS: Need at least 2 players to start a game")
	ErrPlayerNotInGame     = errors.New("PLAYER_NOT_IN_GAME: Player not in game")
	ErrGameOver            = errors.New("GAME_OVER: Game has already ended")
	ErrGameNotFound        = errors.New("GAME_NOT_FOUND: Game not found")
	ErrAlreadyDropped      = errors.New("ALREADY_DROPPED: Player has already dropped")
)

// DeclarationError carries the first violated declaration rule back to
// the declarer. The game still transitions to completed when a
// declaration fails; the error reports why.
type DeclarationError struct {
	Reason string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("INVALID_DECLARATION: %s", e.Reason)
}

// consistencyErr marks an invariant violation: a programming defect,
// never committed to the store.
func consistencyErr(format string, args ...any) error {
	return fmt.Errorf("CONSISTENCY: "+format, args...)
}
