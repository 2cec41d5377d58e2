package rummy

import "rummy-server/internal/deck"

// Penalty values for the terminal outcomes that are not plain deadwood.
const (
	InvalidDeclarationPenalty = 80
	FirstDropPenalty          = 20
	MiddleDropPenalty         = 40
)

// CalculateDeadwood sums the point values of ungrouped cards.
func CalculateDeadwood(cards []deck.Card) int {
	total := 0
	for _, card := range cards {
		total += card.Points()
	}
	return total
}

// playerScore is a non-dropping player's final score: the deadwood of
// their hand minus whatever they managed to meld. The winner scores 0.
func playerScore(p *Player, isWinner bool, melds []Meld) int {
	if isWinner {
		return 0
	}

	inMelds := make(map[string]bool)
	for _, meld := range melds {
		for _, card := range meld.Cards {
			inMelds[card.ID] = true
		}
	}

	deadwood := make([]deck.Card, 0, len(p.Hand))
	for _, card := range p.Hand {
		if !inMelds[card.ID] {
			deadwood = append(deadwood, card)
		}
	}

	return CalculateDeadwood(deadwood)
}

// dropDeclarationType recovers the drop kind from the penalty recorded
// when the player dropped.
func dropDeclarationType(p *Player) DeclarationType {
	if p.Score == FirstDropPenalty {
		return DeclarationFirstDrop
	}
	return DeclarationMiddleDrop
}

func declarationTypePtr(t DeclarationType) *DeclarationType {
	return &t
}

// buildFinalScores produces the one-and-only scores list for a game
// that ended with a winner (a valid declaration, or the sole survivor
// after drops). Dropped players keep their drop penalty; everyone else
// pays the deadwood left in their hand after their own declared melds.
func buildFinalScores(g *GameState, winnerID string, winnerMelds []Meld) []GameScore {
	scores := make([]GameScore, 0, len(g.Players))

	for _, id := range g.TurnOrder {
		p, ok := g.Players[id]
		if !ok {
			continue
		}

		isWinner := id == winnerID
		melds := p.Melds
		if isWinner {
			melds = winnerMelds
		}
		if melds == nil {
			melds = []Meld{}
		}

		score := GameScore{
			PlayerID:   id,
			PlayerName: p.Name,
			Melds:      melds,
			IsWinner:   isWinner,
		}

		switch {
		case isWinner:
			score.Score = 0
			score.DeclarationType = declarationTypePtr(DeclarationValid)
		case p.HasDropped:
			score.Score = p.Score
			score.DeclarationType = declarationTypePtr(dropDeclarationType(p))
		default:
			score.Score = playerScore(p, false, melds)
			score.DeclarationType = nil
		}

		scores = append(scores, score)
	}

	return scores
}

// buildInvalidDeclarationScores is the scores list for a game killed by
// an invalid declaration: the declarer eats the fixed penalty, everyone
// else scores 0 and there is no winner.
func buildInvalidDeclarationScores(g *GameState, declarerID string, melds []Meld) []GameScore {
	scores := make([]GameScore, 0, len(g.Players))

	for _, id := range g.TurnOrder {
		p, ok := g.Players[id]
		if !ok {
			continue
		}

		score := GameScore{
			PlayerID:   id,
			PlayerName: p.Name,
			Melds:      []Meld{},
			IsWinner:   false,
		}
		if id == declarerID {
			score.Score = InvalidDeclarationPenalty
			score.Melds = melds
			score.DeclarationType = declarationTypePtr(DeclarationInvalid)
		}

		scores = append(scores, score)
	}

	return scores
}
