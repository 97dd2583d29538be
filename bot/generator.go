package bot

import (
	"sort"

	"github.com/wfunc/thirteen/game"
)

// candidates enumerates the combinations a hand can form: every single,
// every same-rank subset of size 2..4, runs, and the two pair-bomb shapes.
// The caller filters them through the move validator, so over-generation is
// harmless; under-generation would blind the bot.
func candidates(hand []game.Card) [][]game.Card {
	sorted := append([]game.Card{}, hand...)
	game.SortCards(sorted)

	byRank := make(map[int][]game.Card)
	for _, c := range sorted {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}

	var out [][]game.Card

	for _, c := range sorted {
		out = append(out, []game.Card{c})
	}

	for _, group := range byRank {
		for size := 2; size <= 4 && size <= len(group); size++ {
			out = append(out, rankSubsets(group, size)...)
		}
	}

	out = append(out, runCandidates(byRank)...)
	out = append(out, pairBombCandidates(byRank, 3)...)
	out = append(out, pairBombCandidates(byRank, 4)...)

	return out
}

// rankSubsets returns every subset of the given size from one rank group.
// Groups hold at most 4 cards, so this stays tiny.
func rankSubsets(group []game.Card, size int) [][]game.Card {
	var out [][]game.Card
	var pick func(start int, chosen []game.Card)
	pick = func(start int, chosen []game.Card) {
		if len(chosen) == size {
			out = append(out, append([]game.Card{}, chosen...))
			return
		}
		for i := start; i < len(group); i++ {
			pick(i+1, append(chosen, group[i]))
		}
	}
	pick(0, nil)
	return out
}

// runCandidates builds runs of every length >= 3 over consecutive ranks,
// excluding the top rank. For ranks below the run's top card the cheapest
// suit is taken; the top card varies over its suits because only the top
// card decides whether the run beats the pile.
func runCandidates(byRank map[int][]game.Card) [][]game.Card {
	ranks := availableRanks(byRank, 1)

	var out [][]game.Card
	for start := 0; start < len(ranks); start++ {
		for end := start + 2; end < len(ranks); end++ {
			if ranks[end] != ranks[start]+(end-start) {
				break
			}
			base := make([]game.Card, 0, end-start)
			for k := start; k < end; k++ {
				base = append(base, byRank[ranks[k]][0])
			}
			for _, top := range byRank[ranks[end]] {
				run := append(append([]game.Card{}, base...), top)
				out = append(out, run)
			}
		}
	}
	return out
}

// pairBombCandidates builds windows of the given number of consecutive
// pairs. The two lowest suits are taken per rank, except the window's top
// rank, where every pair subset is tried for the same reason as runs.
func pairBombCandidates(byRank map[int][]game.Card, pairs int) [][]game.Card {
	ranks := availableRanks(byRank, 2)

	var out [][]game.Card
	for start := 0; start+pairs <= len(ranks); start++ {
		if ranks[start+pairs-1] != ranks[start]+pairs-1 {
			continue
		}
		base := make([]game.Card, 0, pairs*2)
		for k := start; k < start+pairs-1; k++ {
			group := byRank[ranks[k]]
			base = append(base, group[0], group[1])
		}
		topGroup := byRank[ranks[start+pairs-1]]
		for _, topPair := range rankSubsets(topGroup, 2) {
			bomb := append(append([]game.Card{}, base...), topPair...)
			out = append(out, bomb)
		}
	}
	return out
}

// availableRanks lists ranks below TopRank holding at least minCount cards,
// ascending.
func availableRanks(byRank map[int][]game.Card, minCount int) []int {
	var ranks []int
	for r, group := range byRank {
		if r == game.TopRank {
			continue
		}
		if len(group) >= minCount {
			ranks = append(ranks, r)
		}
	}
	sort.Ints(ranks)
	return ranks
}
