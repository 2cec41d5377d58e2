package rummy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"rummy-server/internal/store"
)

// maxUpdateAttempts bounds the optimistic-concurrency retry loop.
const maxUpdateAttempts = 5

// ErrTooManyConflicts is the transient failure surfaced when every
// retry of a game transaction lost the version race. Safe to retry
// from the caller's side.
var ErrTooManyConflicts = errors.New("CONFLICT: Game updated concurrently too many times, try again")

// Service exposes the game operations to the outside. Every mutation
// is one read-validate-write transaction against the document store:
// decode the latest snapshot, run the pure transition, commit only if
// nobody else wrote in between, retry the whole cycle on conflict.
type Service struct {
	store store.DocumentStore
}

func NewService(st store.DocumentStore) *Service {
	return &Service{store: st}
}

// GamePath is where a game's document lives in the store.
func GamePath(gameID string) string {
	return "games/" + gameID
}

// InitializeGame deals a new game and writes the initial document.
func (s *Service) InitializeGame(ctx context.Context, gameID, lobbyID string, players []PlayerInfo) error {
	state, err := NewGame(gameID, lobbyID, players)
	if err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize game %s: %w", gameID, err)
	}

	if err := s.store.Write(ctx, GamePath(gameID), data); err != nil {
		return fmt.Errorf("failed to store game %s: %w", gameID, err)
	}

	log.Printf("[GAME] Initialized game %s (lobby %s, %d players, wild rank %s)",
		gameID, lobbyID, len(players), state.WildJokerRank)
	return nil
}

// Game returns the current state snapshot.
func (s *Service) Game(ctx context.Context, gameID string) (*GameState, error) {
	data, _, err := s.store.Read(ctx, GamePath(gameID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	var state GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize game %s: %w", gameID, err)
	}
	return &state, nil
}

func (s *Service) DrawFromClosed(ctx context.Context, gameID, playerID string) error {
	return s.update(ctx, gameID, func(g *GameState) error {
		return g.DrawFromClosed(playerID)
	})
}

func (s *Service) DrawFromOpen(ctx context.Context, gameID, playerID string) error {
	return s.update(ctx, gameID, func(g *GameState) error {
		return g.DrawFromOpen(playerID)
	})
}

func (s *Service) Discard(ctx context.Context, gameID, playerID, cardID string) error {
	return s.update(ctx, gameID, func(g *GameState) error {
		return g.Discard(playerID, cardID)
	})
}

// Declare is the one operation where a failed validation still commits:
// an invalid declaration ends the game, and the reason comes back as a
// *DeclarationError after the terminal state is stored.
func (s *Service) Declare(ctx context.Context, gameID, playerID string, melds []Meld) error {
	var declErr *DeclarationError

	err := s.update(ctx, gameID, func(g *GameState) error {
		declErr = nil
		err := g.Declare(playerID, melds)

		var de *DeclarationError
		if errors.As(err, &de) {
			declErr = de
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	if declErr != nil {
		return declErr
	}
	return nil
}

func (s *Service) Drop(ctx context.Context, gameID, playerID string) error {
	return s.update(ctx, gameID, func(g *GameState) error {
		return g.Drop(playerID)
	})
}

// Subscribe invokes onChange with the latest game state after every
// committed change, or with nil when the document is gone. Returns the
// unsubscribe function.
func (s *Service) Subscribe(gameID string, onChange func(*GameState)) (cancel func()) {
	return s.store.Subscribe(GamePath(gameID), func(value []byte, ok bool) {
		if !ok {
			onChange(nil)
			return
		}

		var state GameState
		if err := json.Unmarshal(value, &state); err != nil {
			log.Printf("[GAME] Dropping malformed update for game %s: %v", gameID, err)
			return
		}
		onChange(&state)
	})
}

// update runs fn against a fresh snapshot until it commits, a bounded
// number of times. Validation errors from fn come back unchanged and
// are never retried; only store conflicts restart the cycle.
func (s *Service) update(ctx context.Context, gameID string, fn func(*GameState) error) error {
	path := GamePath(gameID)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.store.Update(ctx, path, func(current []byte) ([]byte, error) {
			var g GameState
			if err := json.Unmarshal(current, &g); err != nil {
				return nil, fmt.Errorf("failed to deserialize game %s: %w", gameID, err)
			}
			if err := fn(&g); err != nil {
				return nil, err
			}
			return json.Marshal(&g)
		})

		if errors.Is(err, store.ErrConflict) {
			log.Printf("[GAME] Conflict on game %s (attempt %d/%d), retrying", gameID, attempt+1, maxUpdateAttempts)
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return ErrGameNotFound
		}
		return err
	}

	return ErrTooManyConflicts
}
