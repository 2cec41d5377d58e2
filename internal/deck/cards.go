package deck

import "fmt"

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
	// JokerSuit is only carried by the two printed jokers.
	JokerSuit Suit = "joker"
)

type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	// JokerRank is only carried by the two printed jokers.
	JokerRank Rank = "JOKER"
)

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// rankValues is the sequence-building order: Ace is low.
var rankValues = map[Rank]int{
	Ace:   1,
	Two:   2,
	Three: 3,
	Four:  4,
	Five:  5,
	Six:   6,
	Seven: 7,
	Eight: 8,
	Nine:  9,
	Ten:   10,
	Jack:  11,
	Queen: 12,
	King:  13,
}

var suitOrder = map[Suit]int{
	Hearts:    0,
	Diamonds:  1,
	Clubs:     2,
	Spades:    3,
	JokerSuit: 4,
}

var displayRankOrder = map[Rank]int{
	Ace: 1, Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7,
	Eight: 8, Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, JokerRank: 14,
}

// RankValue returns the sequence position of a rank, Ace low (A=1 ... K=13).
// Returns 0 for the printed joker rank, which never participates in a run.
func RankValue(r Rank) int {
	return rankValues[r]
}

type Card struct {
	ID             string `json:"id"`
	Suit           Suit   `json:"suit"`
	Rank           Rank   `json:"rank"`
	IsPrintedJoker bool   `json:"isPrintedJoker"`
	IsWildJoker    bool   `json:"isWildJoker"`
}

// IsJoker reports whether the card melds as a joker, printed or wild.
func (c Card) IsJoker() bool {
	return c.IsPrintedJoker || c.IsWildJoker
}

// Points is the deadwood value of the card. Jokers score nothing,
// face cards and Aces score 10. Note Ace is worth 10 here even though
// it is low for sequence building; the two scales are independent.
func (c Card) Points() int {
	if c.IsJoker() {
		return 0
	}
	switch c.Rank {
	case Jack, Queen, King, Ace:
		return 10
	default:
		return rankValues[c.Rank]
	}
}

func (c Card) String() string {
	if c.IsPrintedJoker {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
