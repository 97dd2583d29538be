package bot

import (
	"math/rand"
	"testing"

	"github.com/wfunc/thirteen/game"
)

func c(rank int, suit game.Suit) game.Card {
	return game.Card{Rank: rank, Suit: suit}
}

func pileOf(t *testing.T, cards ...game.Card) []game.Play {
	t.Helper()
	combo := game.Classify(cards)
	if combo.Type == game.Invalid {
		t.Fatalf("pile cards do not classify: %v", cards)
	}
	return []game.Play{{PlayerID: "prev", Cards: combo.Cards, Combo: combo}}
}

func TestDecideLeaderNeverPasses(t *testing.T) {
	hand := []game.Card{c(4, game.SuitClubs), c(9, game.SuitHearts)}
	d := Decide(hand, nil, false, game.Card{}, DifficultyNormal)
	if d.Pass {
		t.Fatal("leader passed")
	}
	if _, err := game.ValidateMove(d.Cards, nil, false, game.Card{}); err != nil {
		t.Errorf("leader decision illegal: %v", err)
	}
}

func TestDecidePlaysCheapestBeat(t *testing.T) {
	hand := []game.Card{
		c(3, game.SuitSpades),
		c(6, game.SuitClubs),
		c(9, game.SuitHearts),
	}
	pile := pileOf(t, c(5, game.SuitHearts))

	d := Decide(hand, pile, false, game.Card{}, DifficultyNormal)
	if d.Pass {
		t.Fatal("bot passed with a beat in hand")
	}
	if len(d.Cards) != 1 || d.Cards[0].Rank != 6 {
		t.Errorf("got %v, want the 6 of clubs", d.Cards)
	}
}

func TestDecidePassesWhenBeaten(t *testing.T) {
	hand := []game.Card{c(3, game.SuitSpades), c(5, game.SuitClubs)}
	pile := pileOf(t, c(11, game.SuitHearts))

	d := Decide(hand, pile, false, game.Card{}, DifficultyNormal)
	if !d.Pass {
		t.Errorf("expected a pass, got %v", d.Cards)
	}
}

func TestDecideHonorsOpener(t *testing.T) {
	hand := []game.Card{
		c(0, game.SuitSpades),
		c(6, game.SuitClubs),
		c(9, game.SuitHearts),
	}
	opener := c(0, game.SuitSpades)
	d := Decide(hand, nil, true, opener, DifficultyNormal)
	if d.Pass {
		t.Fatal("opening bot passed")
	}
	if !game.ContainsAll(d.Cards, []game.Card{opener}) {
		t.Errorf("opening play %v does not include the 3 of spades", d.Cards)
	}
}

func TestDecideHonorsPartialDealOpener(t *testing.T) {
	// With two or three seats the 3 of spades may be undealt; the opening
	// bot must lead with whatever the lowest dealt card actually is.
	opener := c(1, game.SuitDiamonds)
	hand := []game.Card{
		opener,
		c(6, game.SuitClubs),
		c(9, game.SuitHearts),
	}
	d := Decide(hand, nil, true, opener, DifficultyNormal)
	if d.Pass {
		t.Fatal("opening bot passed")
	}
	if !game.ContainsAll(d.Cards, []game.Card{opener}) {
		t.Errorf("opening play %v does not include the lowest dealt card", d.Cards)
	}
}

func TestDecidePrefersPlainBeatOverChop(t *testing.T) {
	hand := []game.Card{
		c(7, game.SuitSpades), c(7, game.SuitClubs),
		c(7, game.SuitDiamonds), c(7, game.SuitHearts),
		c(game.TopRank, game.SuitHearts),
	}
	pile := pileOf(t, c(game.TopRank, game.SuitSpades))

	d := Decide(hand, pile, false, game.Card{}, DifficultyNormal)
	if d.Pass {
		t.Fatal("bot passed")
	}
	// The higher single 2 beats plainly; the quad would burn a chop.
	if len(d.Cards) != 1 || d.Cards[0].Rank != game.TopRank {
		t.Errorf("got %v, want the single 2", d.Cards)
	}
}

func TestDecideChopsWhenOnlyOption(t *testing.T) {
	hand := []game.Card{
		c(7, game.SuitSpades), c(7, game.SuitClubs),
		c(7, game.SuitDiamonds), c(7, game.SuitHearts),
		c(3, game.SuitSpades),
	}
	pile := pileOf(t, c(game.TopRank, game.SuitHearts))

	d := Decide(hand, pile, false, game.Card{}, DifficultyNormal)
	if d.Pass {
		t.Fatal("bot passed holding a chop")
	}
	if len(d.Cards) != 4 {
		t.Errorf("got %v, want the quad", d.Cards)
	}
}

func TestDecideAlwaysLegal(t *testing.T) {
	// Random hands against random piles: every non-pass decision must
	// validate, and a leading bot must always produce cards.
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		deck := game.NewDeck()
		game.Shuffle(rng, deck)
		hand := append([]game.Card{}, deck[:13]...)
		game.SortCards(hand)

		var pile []game.Play
		if i%2 == 0 {
			single := deck[20+rng.Intn(10)]
			combo := game.Classify([]game.Card{single})
			pile = []game.Play{{PlayerID: "prev", Cards: combo.Cards, Combo: combo}}
		}

		d := Decide(hand, pile, false, game.Card{}, DifficultyNormal)
		if d.Pass {
			if len(pile) == 0 {
				t.Fatalf("iteration %d: leader passed", i)
			}
			continue
		}
		if !game.ContainsAll(hand, d.Cards) {
			t.Fatalf("iteration %d: decision %v not in hand", i, d.Cards)
		}
		if _, err := game.ValidateMove(d.Cards, pile, false, game.Card{}); err != nil {
			t.Fatalf("iteration %d: illegal decision %v: %v", i, d.Cards, err)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{"normal", DifficultyNormal, false},
		{"hard", DifficultyHard, false},
		{"", DifficultyNormal, false},
		{"nightmare", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDifficulty(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDifficulty(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
