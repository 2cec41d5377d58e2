package deck

import (
	"fmt"
	"math/rand"
	"sort"
)

// Size is the full deck: two standard 52-card decks plus two printed jokers.
const Size = 106

// New builds the 106-card deck with per-game unique card ids.
// Returns an error if the construction invariants do not hold; that is
// a programming defect, not a runtime condition.
func New() ([]Card, error) {
	cards := make([]Card, 0, Size)

	cardID := 0
	for range 2 {
		for _, suit := range suits {
			for _, rank := range ranks {
				cards = append(cards, Card{
					ID:   fmt.Sprintf("%s-%s-%d", suit, rank, cardID),
					Suit: suit,
					Rank: rank,
				})
				cardID++
			}
		}
	}

	cards = append(cards, Card{
		ID:             "printed-joker-1",
		Suit:           JokerSuit,
		Rank:           JokerRank,
		IsPrintedJoker: true,
	})
	cards = append(cards, Card{
		ID:             "printed-joker-2",
		Suit:           JokerSuit,
		Rank:           JokerRank,
		IsPrintedJoker: true,
	})

	if len(cards) != Size {
		return nil, fmt.Errorf("CONSISTENCY: deck has %d cards, expected %d", len(cards), Size)
	}
	seen := make(map[string]bool, Size)
	for _, card := range cards {
		if seen[card.ID] {
			return nil, fmt.Errorf("CONSISTENCY: duplicate card id %q in fresh deck", card.ID)
		}
		seen[card.ID] = true
	}

	return cards, nil
}

// Shuffle returns a new, uniformly shuffled copy. The input is not mutated.
func Shuffle(cards []Card) []Card {
	return ShuffleWith(nil, cards)
}

// ShuffleWith is Shuffle with a caller-supplied source, for reproducible
// deals in tests. A nil source uses the shared one.
func ShuffleWith(r *rand.Rand, cards []Card) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)

	swap := func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if r != nil {
		r.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled
}

// SelectWildJokerRank picks the wild joker rank for the game, uniformly
// from the thirteen real ranks. Never the printed joker rank.
func SelectWildJokerRank() Rank {
	return ranks[rand.Intn(len(ranks))]
}

// SelectWildJokerRankWith is SelectWildJokerRank with a caller-supplied source.
func SelectWildJokerRankWith(r *rand.Rand) Rank {
	return ranks[r.Intn(len(ranks))]
}

// MarkWildJokers returns a copy of the deck where every non-printed card
// of the wild rank is flagged as a wild joker. All other cards pass
// through unchanged.
func MarkWildJokers(cards []Card, wildRank Rank) []Card {
	marked := make([]Card, len(cards))
	for i, card := range cards {
		card.IsWildJoker = !card.IsPrintedJoker && card.Rank == wildRank
		marked[i] = card
	}
	return marked
}

// DealResult is the full partition of a shuffled deck: one hand per
// player, one face-up card opening the open pile, the rest face down.
type DealResult struct {
	Hands      [][]Card
	OpenPile   []Card
	ClosedPile []Card
}

// Deal shuffles and partitions the deck. Every input card lands in
// exactly one hand or pile; the partition is re-checked before return.
func Deal(cards []Card, playerCount, handSize int) (DealResult, error) {
	return DealWith(nil, cards, playerCount, handSize)
}

// DealWith is Deal with a caller-supplied shuffle source.
func DealWith(r *rand.Rand, cards []Card, playerCount, handSize int) (DealResult, error) {
	if playerCount < 1 {
		return DealResult{}, fmt.Errorf("CONSISTENCY: cannot deal to %d players", playerCount)
	}
	if playerCount*handSize+1 > len(cards) {
		return DealResult{}, fmt.Errorf("CONSISTENCY: deck of %d cannot deal %d cards to %d players",
			len(cards), handSize, playerCount)
	}

	shuffled := ShuffleWith(r, cards)

	hands := make([][]Card, playerCount)
	idx := 0
	for i := range playerCount {
		hands[i] = append([]Card(nil), shuffled[idx:idx+handSize]...)
		idx += handSize
	}

	openPile := []Card{shuffled[idx]}
	closedPile := append([]Card(nil), shuffled[idx+1:]...)

	result := DealResult{
		Hands:      hands,
		OpenPile:   openPile,
		ClosedPile: closedPile,
	}

	dealt := len(openPile) + len(closedPile)
	for _, hand := range hands {
		dealt += len(hand)
	}
	if dealt != len(cards) {
		return DealResult{}, fmt.Errorf("CONSISTENCY: dealt %d cards from a deck of %d", dealt, len(cards))
	}

	return result, nil
}

// SortHand returns the hand in display order: suit (hearts, diamonds,
// clubs, spades, joker) then rank, Ace low and printed jokers last.
// Purely cosmetic; game legality never depends on hand order.
func SortHand(hand []Card) []Card {
	sorted := make([]Card, len(hand))
	copy(sorted, hand)

	sort.SliceStable(sorted, func(i, j int) bool {
		if suitOrder[sorted[i].Suit] != suitOrder[sorted[j].Suit] {
			return suitOrder[sorted[i].Suit] < suitOrder[sorted[j].Suit]
		}
		return displayRankOrder[sorted[i].Rank] < displayRankOrder[sorted[j].Rank]
	})

	return sorted
}
