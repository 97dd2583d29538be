package game

import "errors"

// Play is one accepted move: who played, the exact cards, and the shape
// they were classified as. An ordered slice of Plays forms the pile for
// the active round.
type Play struct {
	PlayerID string `json:"player_id"`
	Cards    []Card `json:"cards"`
	Combo    Combo  `json:"combo"`
}

// Verdict is the result of a successful validation. Chop marks the special
// escalation plays (quads and pair-bombs over 2s and over each other).
type Verdict struct {
	Combo Combo
	Chop  bool
}

// Validation errors. The messages are shown verbatim to the acting player.
var (
	ErrInvalidCombo   = errors.New("cards do not form a playable combination")
	ErrMissingOpener  = errors.New("first play of the match must include the lowest card")
	ErrComboMismatch  = errors.New("must play the same combination as the pile")
	ErrLengthMismatch = errors.New("must play the same number of cards as the pile")
	ErrTooWeak        = errors.New("combination does not beat the top of the pile")
)

// ValidateMove decides whether the proposed cards may be played against the
// current pile. It is a pure query: callers apply the result themselves.
// opener is the lowest dealt card of the match and must be part of the very
// first play; it is ignored once firstPlay is false.
func ValidateMove(cards []Card, pile []Play, firstPlay bool, opener Card) (Verdict, error) {
	combo := Classify(cards)
	if combo.Type == Invalid {
		return Verdict{}, ErrInvalidCombo
	}

	if firstPlay && !containsOpener(combo.Cards, opener) {
		return Verdict{}, ErrMissingOpener
	}

	if len(pile) == 0 {
		return Verdict{Combo: combo}, nil
	}

	prev := pile[len(pile)-1].Combo

	if chop, ok := isChop(prev, combo); ok {
		return Verdict{Combo: combo, Chop: chop}, nil
	}

	if combo.Type != prev.Type {
		return Verdict{}, ErrComboMismatch
	}
	if combo.Size() != prev.Size() {
		return Verdict{}, ErrLengthMismatch
	}
	if combo.Top().Score() <= prev.Top().Score() {
		return Verdict{}, ErrTooWeak
	}
	return Verdict{Combo: combo}, nil
}

// isChop implements the escalation table. The second return value reports
// whether the table produced a decision at all; when false the caller falls
// through to the plain same-shape comparison.
//
// The hierarchy is deliberately asymmetric: a quad of pairs beats a bomb of
// pairs outright, but not the other way around.
func isChop(prev, next Combo) (bool, bool) {
	prevTopRankSingle := prev.Type == Single && prev.Top().Rank == TopRank
	prevTopRankPair := prev.Type == Pair && prev.Top().Rank == TopRank

	switch next.Type {
	case Quad:
		if prevTopRankSingle || prevTopRankPair {
			return true, true
		}
	case BombOfPairs:
		if prevTopRankSingle {
			return true, true
		}
	case QuadOfPairs:
		if prevTopRankSingle || prevTopRankPair {
			return true, true
		}
		if prev.Type == Quad || prev.Type == BombOfPairs {
			return true, true
		}
	}
	return false, false
}

func containsOpener(cards []Card, opener Card) bool {
	for _, c := range cards {
		if sameCard(c, opener) {
			return true
		}
	}
	return false
}
