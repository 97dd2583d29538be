package bot

import (
	"errors"
	"sort"

	"github.com/wfunc/thirteen/game"
)

// Difficulty is reserved for future weighting; every level currently plays
// the same greedy-minimal line.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty validates a client-supplied difficulty string. The empty
// string maps to normal.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return Difficulty(s), nil
	case "":
		return DifficultyNormal, nil
	}
	return "", ErrUnknownDifficulty
}

// Decision is the outcome of one bot turn. Pass true means no cards are
// played; a leader never receives a passing decision.
type Decision struct {
	Pass  bool
	Cards []game.Card
}

// Decide picks a legal play for the given hand against the current pile, or
// elects to pass. Pure and synchronous: safe to call inside the turn
// handler.
//
// The line is greedy-minimal: cheapest legal beat of the required shape,
// chopping only when no plain beat exists. When leading, the cheapest legal
// combination is played instead of passing. opener is the lowest dealt
// card, mandatory in the very first play of the match.
func Decide(hand []game.Card, pile []game.Play, firstPlay bool, opener game.Card, _ Difficulty) Decision {
	if len(hand) == 0 {
		return Decision{Pass: true}
	}

	type option struct {
		cards []game.Card
		top   int
		chop  bool
	}

	var options []option
	for _, cand := range candidates(hand) {
		verdict, err := game.ValidateMove(cand, pile, firstPlay, opener)
		if err != nil {
			continue
		}
		options = append(options, option{
			cards: verdict.Combo.Cards,
			top:   verdict.Combo.Top().Score(),
			chop:  verdict.Chop,
		})
	}

	if len(options) == 0 {
		if len(pile) == 0 {
			// Leaders must play. Reaching here means the hand has no
			// classifiable combination at all, which cannot happen with a
			// non-empty hand (every single is legal); fall back to the
			// lowest card anyway.
			lowest := lowestCard(hand)
			return Decision{Cards: []game.Card{lowest}}
		}
		return Decision{Pass: true}
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].chop != options[j].chop {
			return !options[i].chop
		}
		if options[i].top != options[j].top {
			return options[i].top < options[j].top
		}
		return len(options[i].cards) < len(options[j].cards)
	})

	return Decision{Cards: options[0].cards}
}

func lowestCard(hand []game.Card) game.Card {
	best := hand[0]
	for _, c := range hand[1:] {
		if c.Score() < best.Score() {
			best = c
		}
	}
	return best
}
