package game

import "math/rand"

// HandSize is the number of cards dealt to each seat.
const HandSize = 13

// DeckSize is the full deck: 13 ranks by 4 suits.
const DeckSize = 52

// NewDeck builds the 52 unique cards in deterministic order. Card IDs are
// assigned here and remain stable for the life of the deal.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	id := 0
	for r := 0; r <= TopRank; r++ {
		for s := SuitSpades; s <= SuitHearts; s++ {
			deck = append(deck, Card{Rank: r, Suit: s, ID: id})
			id++
		}
	}
	return deck
}

// Shuffle applies an unbiased Fisher-Yates shuffle in place.
func Shuffle(rng *rand.Rand, deck []Card) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// Deal distributes HandSize contiguous cards per seat in seating order.
// Each hand comes back sorted ascending.
func Deal(deck []Card, seats int) [][]Card {
	hands := make([][]Card, seats)
	for i := 0; i < seats; i++ {
		hand := append([]Card{}, deck[i*HandSize:(i+1)*HandSize]...)
		SortCards(hand)
		hands[i] = hand
	}
	return hands
}

// LowestDealt returns the lowest-scored card across the dealt hands. With
// fewer than four seats part of the deck stays in the box, so the opener is
// defined over what was actually dealt, not over the full deck.
func LowestDealt(hands [][]Card) Card {
	var best Card
	found := false
	for _, hand := range hands {
		for _, c := range hand {
			if !found || c.Score() < best.Score() {
				best = c
				found = true
			}
		}
	}
	return best
}

// OpenerSeat returns the seat holding LowestDealt; that seat leads the
// first round of the match.
func OpenerSeat(hands [][]Card) int {
	opener := LowestDealt(hands)
	for i, hand := range hands {
		for _, c := range hand {
			if sameCard(c, opener) {
				return i
			}
		}
	}
	return 0
}
