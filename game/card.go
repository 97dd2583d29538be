package game

import "sort"

// Suit is the tiebreaker between cards of equal rank.
// Order follows the southern house rule: spades lowest, hearts highest.
type Suit int

const (
	SuitSpades Suit = iota
	SuitClubs
	SuitDiamonds
	SuitHearts
)

// TopRank is the rank of the 2, which sorts above everything else and is
// subject to the chop rules.
const TopRank = 12

// Card is a single playing card. Rank runs 0..12 with 3 mapped to 0 and
// 2 mapped to TopRank. ID is unique per physical card and stable for the
// life of one deal.
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
	ID   int  `json:"id"`
}

// Score gives the total order used everywhere: rank first, suit breaks ties.
// Suits occupy 0..3 so scores never collide.
func (c Card) Score() int {
	return c.Rank*10 + int(c.Suit)
}

// SortCards orders cards ascending by score in place.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Score() < cards[j].Score()
	})
}

// sortedCopy leaves the caller's slice untouched.
func sortedCopy(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	SortCards(out)
	return out
}

func sameCard(a, b Card) bool {
	return a.Rank == b.Rank && a.Suit == b.Suit
}

// ContainsAll reports whether hand holds every card in cards, with
// multiset semantics.
func ContainsAll(hand []Card, cards []Card) bool {
	remaining := make(map[Card]int, len(hand))
	for _, c := range hand {
		remaining[Card{Rank: c.Rank, Suit: c.Suit}]++
	}
	for _, c := range cards {
		key := Card{Rank: c.Rank, Suit: c.Suit}
		if remaining[key] == 0 {
			return false
		}
		remaining[key]--
	}
	return true
}

// RemoveCards returns hand minus the given cards, multiset semantics.
func RemoveCards(hand []Card, played []Card) []Card {
	out := append([]Card{}, hand...)
	for _, pc := range played {
		for i := 0; i < len(out); i++ {
			if sameCard(out[i], pc) {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}
