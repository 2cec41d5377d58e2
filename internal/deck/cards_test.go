package deck_test

import (
	"testing"

	"rummy-server/internal/deck"
)

func TestPoints(t *testing.T) {
	tests := []struct {
		name string
		card deck.Card
		want int
	}{
		{"printed joker", deck.Card{ID: "printed-joker-1", Suit: deck.JokerSuit, Rank: deck.JokerRank, IsPrintedJoker: true}, 0},
		{"wild joker", deck.Card{ID: "hearts-7-6", Suit: deck.Hearts, Rank: deck.Seven, IsWildJoker: true}, 0},
		{"ace", deck.Card{ID: "spades-A-39", Suit: deck.Spades, Rank: deck.Ace}, 10},
		{"king", deck.Card{ID: "clubs-K-38", Suit: deck.Clubs, Rank: deck.King}, 10},
		{"queen", deck.Card{ID: "hearts-Q-11", Suit: deck.Hearts, Rank: deck.Queen}, 10},
		{"jack", deck.Card{ID: "diamonds-J-23", Suit: deck.Diamonds, Rank: deck.Jack}, 10},
		{"ten", deck.Card{ID: "hearts-10-9", Suit: deck.Hearts, Rank: deck.Ten}, 10},
		{"two", deck.Card{ID: "hearts-2-1", Suit: deck.Hearts, Rank: deck.Two}, 2},
		{"seven", deck.Card{ID: "spades-7-45", Suit: deck.Spades, Rank: deck.Seven}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.Points(); got != tt.want {
				t.Errorf("Points() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankValue(t *testing.T) {
	tests := []struct {
		rank deck.Rank
		want int
	}{
		{deck.Ace, 1},
		{deck.Two, 2},
		{deck.Ten, 10},
		{deck.Jack, 11},
		{deck.Queen, 12},
		{deck.King, 13},
		{deck.JokerRank, 0},
	}

	for _, tt := range tests {
		if got := deck.RankValue(tt.rank); got != tt.want {
			t.Errorf("RankValue(%s) = %d, want %d", tt.rank, got, tt.want)
		}
	}
}

func TestIsJoker(t *testing.T) {
	printed := deck.Card{ID: "printed-joker-2", Suit: deck.JokerSuit, Rank: deck.JokerRank, IsPrintedJoker: true}
	wild := deck.Card{ID: "clubs-5-30", Suit: deck.Clubs, Rank: deck.Five, IsWildJoker: true}
	plain := deck.Card{ID: "clubs-5-82", Suit: deck.Clubs, Rank: deck.Five}

	if !printed.IsJoker() {
		t.Error("printed joker should count as a joker")
	}
	if !wild.IsJoker() {
		t.Error("wild joker should count as a joker")
	}
	if plain.IsJoker() {
		t.Error("ordinary card should not count as a joker")
	}
}

func TestCardString(t *testing.T) {
	printed := deck.Card{ID: "printed-joker-1", Suit: deck.JokerSuit, Rank: deck.JokerRank, IsPrintedJoker: true}
	if got := printed.String(); got != "Joker" {
		t.Errorf("String() = %q, want %q", got, "Joker")
	}

	card := deck.Card{ID: "hearts-Q-11", Suit: deck.Hearts, Rank: deck.Queen}
	if got := card.String(); got != "Q of hearts" {
		t.Errorf("String() = %q, want %q", got, "Q of hearts")
	}
}
