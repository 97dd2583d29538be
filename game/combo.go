package game

// ComboType labels the shape of a set of cards.
type ComboType int

const (
	Invalid ComboType = iota
	Single
	Pair
	Triple
	Quad
	Run
	BombOfPairs // three consecutive pairs
	QuadOfPairs // four consecutive pairs
)

func (t ComboType) String() string {
	switch t {
	case Single:
		return "single"
	case Pair:
		return "pair"
	case Triple:
		return "triple"
	case Quad:
		return "quad"
	case Run:
		return "run"
	case BombOfPairs:
		return "bomb of pairs"
	case QuadOfPairs:
		return "quad of pairs"
	default:
		return "invalid"
	}
}

// Combo is a classified set of cards, sorted ascending by score.
type Combo struct {
	Type  ComboType `json:"type"`
	Cards []Card    `json:"cards"`
}

// Top returns the highest card of the combo. Only meaningful for valid
// combos.
func (c Combo) Top() Card {
	return c.Cards[len(c.Cards)-1]
}

// Size returns the cardinality of the combo.
func (c Combo) Size() int {
	return len(c.Cards)
}

// Classify labels a non-empty set of cards as a legal shape or Invalid.
// Pure: it never inspects game state.
func Classify(cards []Card) Combo {
	if len(cards) == 0 {
		return Combo{Type: Invalid}
	}

	sorted := sortedCopy(cards)
	n := len(sorted)

	if n == 1 {
		return Combo{Type: Single, Cards: sorted}
	}

	if allSameRank(sorted) {
		switch n {
		case 2:
			return Combo{Type: Pair, Cards: sorted}
		case 3:
			return Combo{Type: Triple, Cards: sorted}
		case 4:
			return Combo{Type: Quad, Cards: sorted}
		}
		return Combo{Type: Invalid}
	}

	if isRun(sorted) {
		return Combo{Type: Run, Cards: sorted}
	}

	if n == 6 && isConsecutivePairs(sorted) {
		return Combo{Type: BombOfPairs, Cards: sorted}
	}
	if n == 8 && isConsecutivePairs(sorted) {
		return Combo{Type: QuadOfPairs, Cards: sorted}
	}

	return Combo{Type: Invalid}
}

func allSameRank(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

// isRun expects a sorted slice: length >= 3, strictly consecutive ranks,
// and the 2 may never be part of a run.
func isRun(cards []Card) bool {
	if len(cards) < 3 {
		return false
	}
	for i, c := range cards {
		if c.Rank == TopRank {
			return false
		}
		if i > 0 && c.Rank != cards[i-1].Rank+1 {
			return false
		}
	}
	return true
}

// isConsecutivePairs expects a sorted slice of even length: back-to-back
// same-rank pairs of consecutive ranks, none of them the top rank. Callers
// constrain the length to 6 or 8.
func isConsecutivePairs(cards []Card) bool {
	if len(cards)%2 != 0 {
		return false
	}
	for i := 0; i < len(cards); i += 2 {
		if cards[i].Rank == TopRank {
			return false
		}
		if cards[i].Rank != cards[i+1].Rank {
			return false
		}
		if i > 0 && cards[i].Rank != cards[i-2].Rank+1 {
			return false
		}
	}
	return true
}
