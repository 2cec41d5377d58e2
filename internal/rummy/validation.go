package rummy

import (
	"fmt"
	"sort"

	"rummy-server/internal/deck"
)

// ValidateSet reports whether the cards form a legal set: 3 or 4 cards
// of one rank in pairwise-distinct suits, jokers standing in freely.
// An all-joker group is not a set.
func ValidateSet(cards []deck.Card) bool {
	if len(cards) < 3 || len(cards) > 4 {
		return false
	}

	nonJokers := withoutJokers(cards)
	if len(nonJokers) == 0 {
		return false
	}

	rank := nonJokers[0].Rank
	seenSuits := make(map[deck.Suit]bool, len(nonJokers))
	for _, card := range nonJokers {
		if card.Rank != rank {
			return false
		}
		if seenSuits[card.Suit] {
			// Two 9♥ plus a joker is still not a set.
			return false
		}
		seenSuits[card.Suit] = true
	}

	return true
}

// ValidateSequence reports whether the cards form a legal run: 3+ cards
// of one suit with consecutive ranks (Ace low), jokers filling interior
// gaps exactly. Jokers cannot extend a run past its ends: the span from
// lowest to highest known rank must equal the card count.
func ValidateSequence(cards []deck.Card) bool {
	if len(cards) < 3 {
		return false
	}

	nonJokers := withoutJokers(cards)
	if len(nonJokers) == 0 {
		return false
	}

	suit := nonJokers[0].Suit
	for _, card := range nonJokers {
		if card.Suit != suit {
			return false
		}
	}

	values := make([]int, len(nonJokers))
	for i, card := range nonJokers {
		values[i] = deck.RankValue(card.Rank)
	}
	sort.Ints(values)

	// Spend jokers on the gaps between known ranks. A duplicate rank is
	// a negative gap: two cards cannot occupy one slot.
	jokers := len(cards) - len(nonJokers)
	for i := 1; i < len(values); i++ {
		gap := values[i] - values[i-1] - 1
		if gap < 0 {
			return false
		}
		jokers -= gap
		if jokers < 0 {
			return false
		}
	}

	span := values[len(values)-1] - values[0] + 1
	return span == len(cards) && span >= 3 && span <= 13
}

// ValidatePureSequence is ValidateSequence with no joker substitution at
// all: a wild joker may not appear even as its natural rank.
func ValidatePureSequence(cards []deck.Card) bool {
	if len(cards) < 3 {
		return false
	}
	for _, card := range cards {
		if card.IsJoker() {
			return false
		}
	}
	return ValidateSequence(cards)
}

// ValidateDeclaration checks a full 13-card declaration: every meld
// valid under its declared type, at least two sequences, at least one
// of them pure. The returned reason names the first violated rule.
func ValidateDeclaration(melds []Meld) (bool, string) {
	totalCards := 0
	for _, meld := range melds {
		totalCards += len(meld.Cards)
	}
	if totalCards != HandSize {
		return false, "Must use all 13 cards"
	}

	for _, meld := range melds {
		var valid bool
		switch meld.Type {
		case MeldPureSequence:
			valid = ValidatePureSequence(meld.Cards)
		case MeldSequence:
			valid = ValidateSequence(meld.Cards)
		case MeldSet:
			valid = ValidateSet(meld.Cards)
		}
		if !valid {
			return false, fmt.Sprintf("Invalid %s", meld.Type)
		}
	}

	sequences := 0
	pureSequences := 0
	for _, meld := range melds {
		if meld.Type == MeldSequence || meld.Type == MeldPureSequence {
			sequences++
		}
		if meld.Type == MeldPureSequence {
			pureSequences++
		}
	}

	if sequences < 2 {
		return false, "Need at least 2 sequences"
	}
	if pureSequences < 1 {
		return false, "Need at least 1 pure sequence"
	}

	return true, ""
}

func withoutJokers(cards []deck.Card) []deck.Card {
	kept := make([]deck.Card, 0, len(cards))
	for _, card := range cards {
		if !card.IsJoker() {
			kept = append(kept, card)
		}
	}
	return kept
}
