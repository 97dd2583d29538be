package room

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/thirteen/game"
	"github.com/wfunc/thirteen/logger"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// fakeBroadcaster records every delivery per player.
type fakeBroadcaster struct {
	mu   sync.Mutex
	sent map[string][]uint16
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{sent: make(map[string][]uint16)}
}

func (f *fakeBroadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[playerID] = append(f.sent[playerID], msgID)
}

func (f *fakeBroadcaster) SendToPlayers(playerIDs []string, msgID uint16, data []byte) {
	for _, id := range playerIDs {
		f.SendToPlayer(id, msgID, data)
	}
}

func (f *fakeBroadcaster) countFor(playerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[playerID])
}

// fakeScheduler hands out ids and lets the test fire callbacks manually.
type fakeScheduler struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{nextID: 1, tasks: make(map[int64]func())}
}

func (f *fakeScheduler) Schedule(delay time.Duration, fn func()) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.tasks[id] = fn
	return id
}

func (f *fakeScheduler) Cancel(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tasks[id]; !exists {
		return false
	}
	delete(f.tasks, id)
	return true
}

func (f *fakeScheduler) fire(id int64) bool {
	f.mu.Lock()
	fn, exists := f.tasks[id]
	delete(f.tasks, id)
	f.mu.Unlock()
	if exists {
		fn()
	}
	return exists
}

func (f *fakeScheduler) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// fakeSettler hands results to the test over a channel.
type fakeSettler struct {
	results chan MatchResult
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{results: make(chan MatchResult, 1)}
}

func (f *fakeSettler) Settle(result MatchResult) {
	f.results <- result
}

type testEnv struct {
	manager     *Manager
	broadcaster *fakeBroadcaster
	scheduler   *fakeScheduler
	settler     *fakeSettler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		broadcaster: newFakeBroadcaster(),
		scheduler:   newFakeScheduler(),
		settler:     newFakeSettler(),
	}
	env.manager = NewManager(Deps{
		Broadcaster: env.broadcaster,
		Scheduler:   env.scheduler,
		Settler:     env.settler,
		Grace:       time.Minute,
		BotMinDelay: 10 * time.Millisecond,
		BotMaxDelay: 20 * time.Millisecond,
		MaxSeats:    4,
	})
	return env
}

func mustCreate(t *testing.T, env *testEnv, turnMs int) *Room {
	t.Helper()
	r, err := env.manager.CreateRoom(CreateParams{
		HostID:         "p0",
		HostName:       "Anh",
		Visible:        true,
		TurnDurationMs: turnMs,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return r
}

func mustJoin(t *testing.T, r *Room, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := r.Join(id, "player "+id, ""); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}
}

// rig replaces the dealt hands with a scripted scenario. Only for tests;
// no timers or goroutines are live against fake schedulers.
func rig(r *Room, currentSeat int, firstPlay bool, hands ...[]game.Card) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i, hand := range hands {
		r.Players[i].Hand = hand
	}
	r.CurrentSeat = currentSeat
	r.FirstPlay = firstPlay
	r.Opener = game.LowestDealt(hands)
	r.Pile = nil
	r.LastPlayerToPlayID = ""
}

func c(rank int, suit game.Suit) game.Card {
	return game.Card{Rank: rank, Suit: suit}
}

func TestManagerCreateRoom(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)

	if len(r.Code) != codeLength {
		t.Errorf("code %q has wrong length", r.Code)
	}
	if len(r.Players) != 1 || !r.Players[0].IsHost {
		t.Error("host seat not seeded")
	}
	if r.Status != StatusLobby {
		t.Errorf("status = %v, want lobby", r.Status)
	}

	got, exists := env.manager.GetRoom(r.Code)
	if !exists || got != r {
		t.Error("GetRoom should return the created room")
	}
	if env.manager.Count() != 1 {
		t.Errorf("Count() = %d, want 1", env.manager.Count())
	}
}

func TestJoinRules(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1", "p2", "p3")

	if err := r.Join("p4", "late", ""); err != ErrRoomFull {
		t.Errorf("join into full room: got %v, want ErrRoomFull", err)
	}

	// Rejoining with a seated id is idempotent.
	if err := r.Join("p1", "player p1", ""); err != nil {
		t.Errorf("rejoin failed: %v", err)
	}
	if len(r.Players) != 4 {
		t.Errorf("rejoin duplicated seat: %d players", len(r.Players))
	}

	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := r.Join("p5", "mid-match", ""); err != ErrMatchStarted {
		t.Errorf("join mid-match: got %v, want ErrMatchStarted", err)
	}
	// A seated player still reclaims their seat mid-match.
	if err := r.Join("p2", "player p2", ""); err != nil {
		t.Errorf("mid-match rejoin failed: %v", err)
	}
}

func TestBotManagement(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1")

	if err := r.AddBot("p1"); err != ErrNotHost {
		t.Errorf("non-host AddBot: got %v, want ErrNotHost", err)
	}
	if err := r.AddBot("p0"); err != nil {
		t.Fatalf("AddBot failed: %v", err)
	}

	botID := r.Players[2].ID
	if !r.Players[2].IsBot {
		t.Fatal("third seat should be a bot")
	}

	if err := r.SetBotDifficulty("p0", "p1", "hard"); err != ErrNotABot {
		t.Errorf("SetBotDifficulty on human: got %v, want ErrNotABot", err)
	}
	if err := r.SetBotDifficulty("p0", botID, "hard"); err != nil {
		t.Errorf("SetBotDifficulty failed: %v", err)
	}
	if r.Players[2].Difficulty != "hard" {
		t.Errorf("difficulty = %v, want hard", r.Players[2].Difficulty)
	}

	if err := r.RemoveBot("p0", "p1"); err != ErrNotABot {
		t.Errorf("RemoveBot on human: got %v, want ErrNotABot", err)
	}
	if err := r.RemoveBot("p0", botID); err != nil {
		t.Fatalf("RemoveBot failed: %v", err)
	}
	if len(r.Players) != 2 {
		t.Errorf("bot seat not freed: %d players", len(r.Players))
	}

	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.AddBot("p0"); err != ErrMatchStarted {
		t.Errorf("AddBot mid-match: got %v, want ErrMatchStarted", err)
	}
}

func TestStart(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)

	if err := r.Start("p0"); err != ErrTooFewPlayers {
		t.Errorf("solo start: got %v, want ErrTooFewPlayers", err)
	}

	mustJoin(t, r, "p1")
	if err := r.Start("p1"); err != ErrNotHost {
		t.Errorf("non-host start: got %v, want ErrNotHost", err)
	}
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if r.Status != StatusPlaying {
		t.Errorf("status = %v, want playing", r.Status)
	}
	if !r.FirstPlay {
		t.Error("FirstPlay should be set after the deal")
	}
	for i, p := range r.Players {
		if len(p.Hand) != game.HandSize {
			t.Errorf("seat %d has %d cards", i, len(p.Hand))
		}
	}

	// The opener seat holds the lowest dealt card, and that card is what
	// the first play must include. With two seats half the deck stays in
	// the box, so the 3 of spades is not guaranteed to be it.
	lowest := r.Players[0].Hand[0]
	seat := 0
	for i, p := range r.Players {
		for _, card := range p.Hand {
			if card.Score() < lowest.Score() {
				lowest = card
				seat = i
			}
		}
	}
	if r.CurrentSeat != seat {
		t.Errorf("CurrentSeat = %d, want %d", r.CurrentSeat, seat)
	}
	if r.Opener.Score() != lowest.Score() {
		t.Errorf("Opener = %v, want lowest dealt card %v", r.Opener, lowest)
	}

	if err := r.Start("p0"); err != ErrMatchStarted {
		t.Errorf("double start: got %v, want ErrMatchStarted", err)
	}
}

func TestPlayFlowAndRoundResolution(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1", "p2")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig(r, 0, true,
		[]game.Card{c(0, game.SuitSpades), c(5, game.SuitClubs)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
		[]game.Card{c(7, game.SuitSpades), c(8, game.SuitClubs)},
	)

	if err := r.Play("p1", []game.Card{c(4, game.SuitDiamonds)}); err != ErrNotYourTurn {
		t.Errorf("out of turn: got %v, want ErrNotYourTurn", err)
	}
	if err := r.Play("p0", []game.Card{c(5, game.SuitClubs)}); err != game.ErrMissingOpener {
		t.Errorf("no opener: got %v, want ErrMissingOpener", err)
	}
	if err := r.Play("p0", []game.Card{c(9, game.SuitHearts)}); err != ErrCardsNotInHand {
		t.Errorf("foreign card: got %v, want ErrCardsNotInHand", err)
	}

	if err := r.Play("p0", []game.Card{c(0, game.SuitSpades)}); err != nil {
		t.Fatalf("opening play failed: %v", err)
	}
	if len(r.Pile) != 1 || len(r.Players[0].Hand) != 1 {
		t.Fatal("play not applied")
	}
	if r.FirstPlay {
		t.Error("FirstPlay should clear after the opening play")
	}
	if r.CurrentSeat != 1 {
		t.Errorf("CurrentSeat = %d, want 1", r.CurrentSeat)
	}

	if err := r.Pass("p1"); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if r.CurrentSeat != 2 {
		t.Errorf("CurrentSeat = %d, want 2", r.CurrentSeat)
	}
	if err := r.Pass("p2"); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	// Round closed: pile archived, passes cleared, leader leads again.
	if len(r.Pile) != 0 || len(r.History) != 1 {
		t.Errorf("round not archived: pile=%d history=%d", len(r.Pile), len(r.History))
	}
	if r.Players[1].HasPassed || r.Players[2].HasPassed {
		t.Error("pass flags not cleared")
	}
	if r.CurrentSeat != 0 {
		t.Errorf("leader should lead the new round, CurrentSeat = %d", r.CurrentSeat)
	}

	if err := r.Pass("p0"); err != ErrLeaderMustPlay {
		t.Errorf("leader pass: got %v, want ErrLeaderMustPlay", err)
	}
}

func TestFirstPlayWithUndealtThreeOfSpades(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 30000)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Two-seat deal where the 3 of spades stayed in the box: the opener is
	// the 3 of diamonds and the match must not demand the undealt card.
	rig(r, 0, true,
		[]game.Card{c(0, game.SuitDiamonds), c(9, game.SuitHearts)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
	)

	if err := r.Play("p0", []game.Card{c(9, game.SuitHearts)}); err != game.ErrMissingOpener {
		t.Errorf("non-opener first play: got %v, want ErrMissingOpener", err)
	}
	if err := r.Play("p0", []game.Card{c(0, game.SuitDiamonds)}); err != nil {
		t.Fatalf("lowest dealt card rejected as opener: %v", err)
	}
	if r.FirstPlay {
		t.Error("FirstPlay should clear after the opening play")
	}
	if r.CurrentSeat != 1 {
		t.Errorf("CurrentSeat = %d, want 1", r.CurrentSeat)
	}
}

func TestTurnTimeoutOpensWithoutThreeOfSpades(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 30000)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig(r, 0, true,
		[]game.Card{c(1, game.SuitClubs), c(9, game.SuitHearts)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
	)
	r.mutex.Lock()
	r.armTurnTimerLocked()
	r.mutex.Unlock()

	// The forced play for a timed-out opener must go through even though
	// the 3 of spades was never dealt, and the next turn must be clocked.
	r.handleTurnTimeout(r.Epoch())
	if len(r.Pile) != 1 {
		t.Fatal("timed-out opener did not play")
	}
	if r.Pile[0].Cards[0].Score() != c(1, game.SuitClubs).Score() {
		t.Errorf("forced play %v, want the lowest dealt card", r.Pile[0].Cards)
	}
	if r.CurrentSeat != 1 {
		t.Errorf("CurrentSeat = %d, want 1", r.CurrentSeat)
	}
	if env.scheduler.pending() == 0 {
		t.Error("no timer armed for the next seat")
	}
}

func TestMatchFinish(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig(r, 0, true,
		[]game.Card{c(0, game.SuitSpades)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
	)

	if err := r.Play("p0", []game.Card{c(0, game.SuitSpades)}); err != nil {
		t.Fatalf("final play failed: %v", err)
	}

	if r.Status != StatusFinished {
		t.Fatalf("status = %v, want finished", r.Status)
	}
	if r.Players[0].FinishedRank != 1 || r.Players[1].FinishedRank != 2 {
		t.Errorf("ranks = %d, %d", r.Players[0].FinishedRank, r.Players[1].FinishedRank)
	}
	if len(r.FinishedOrder) != 2 || r.FinishedOrder[0] != "p0" {
		t.Errorf("FinishedOrder = %v", r.FinishedOrder)
	}
	if len(r.Pile) != 0 {
		t.Error("final pile not archived")
	}

	select {
	case result := <-env.settler.results:
		if len(result.Rankings) != 2 {
			t.Errorf("settlement saw %d rankings", len(result.Rankings))
		}
		if result.Rankings[0].PlayerID != "p0" || result.Rankings[0].Rank != 1 {
			t.Errorf("winner ranking = %+v", result.Rankings[0])
		}
	case <-time.After(time.Second):
		t.Fatal("settler never called")
	}
}

func TestTurnTimeoutForcesMove(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 30000)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig(r, 0, true,
		[]game.Card{c(0, game.SuitSpades), c(9, game.SuitHearts)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
	)

	// A leading seat that times out is forced to play, not pass.
	r.handleTurnTimeout(r.Epoch())
	if len(r.Pile) != 1 {
		t.Fatal("timed-out leader did not play")
	}
	if r.CurrentSeat != 1 {
		t.Errorf("CurrentSeat = %d, want 1", r.CurrentSeat)
	}

	// A following seat that times out passes; with everyone else passed the
	// round resolves back to the leader.
	r.handleTurnTimeout(r.Epoch())
	if len(r.Pile) != 0 || len(r.History) != 1 {
		t.Error("forced pass did not close the round")
	}
	if r.CurrentSeat != 0 {
		t.Errorf("CurrentSeat = %d, want 0", r.CurrentSeat)
	}
}

func TestStaleTimerEpochNoops(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 30000)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rig(r, 0, true,
		[]game.Card{c(0, game.SuitSpades), c(9, game.SuitHearts)},
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
	)

	stale := r.Epoch()
	if err := r.Play("p0", []game.Card{c(0, game.SuitSpades)}); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	seatBefore := r.CurrentSeat
	pileBefore := len(r.Pile)
	r.handleTurnTimeout(stale)

	if r.CurrentSeat != seatBefore || len(r.Pile) != pileBefore {
		t.Error("stale timer callback mutated room state")
	}
	if r.Players[1].HasPassed {
		t.Error("stale timer forced a pass")
	}
}

func TestDisconnectInLobbyFreesSeat(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1", "p2")

	r.Disconnect("p1")
	if len(r.Players) != 2 {
		t.Errorf("seat not freed: %d players", len(r.Players))
	}

	// Host leaving promotes the next human.
	r.Disconnect("p0")
	if len(r.Players) != 1 || !r.Players[0].IsHost {
		t.Error("host not promoted")
	}

	r.Disconnect("p2")
	deadline := time.Now().Add(time.Second)
	for env.manager.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("empty room never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDisconnectDuringMatchUsesGrace(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1", "p2")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	r.Disconnect("p1")
	if len(r.Players) != 3 {
		t.Fatal("mid-match disconnect removed the seat")
	}
	if !r.Players[1].IsOffline {
		t.Error("seat not marked offline")
	}
	if len(r.graceTimers) != 1 {
		t.Fatalf("grace timer not armed: %d", len(r.graceTimers))
	}

	// Reconnecting inside the window restores the seat.
	if err := r.Reconnect("p1"); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if r.Players[1].IsOffline {
		t.Error("seat still offline after reconnect")
	}
	if len(r.graceTimers) != 0 {
		t.Error("grace timer not cancelled")
	}

	if err := r.Reconnect("ghost"); err != ErrSessionExpired {
		t.Errorf("unknown reconnect: got %v, want ErrSessionExpired", err)
	}
}

func TestGraceExpiryRemovesPlayer(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1", "p2")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	r.Disconnect("p1")
	r.mutex.Lock()
	timerID := r.graceTimers["p1"]
	r.mutex.Unlock()

	if !env.scheduler.fire(timerID) {
		t.Fatal("grace timer not registered with the scheduler")
	}

	if len(r.Players) != 2 {
		t.Errorf("expired player not removed: %d players", len(r.Players))
	}
	if idx := r.seatIndexOf("p1"); idx >= 0 {
		t.Error("removed player still seated")
	}
	if r.Status != StatusPlaying {
		t.Errorf("status = %v, want playing with two seats left", r.Status)
	}
}

func TestGraceExpiryEndsShortHandedMatch(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	r.Disconnect("p1")
	r.handleGraceExpired("p1")

	if r.Status != StatusFinished {
		t.Errorf("status = %v, want finished when one seat remains", r.Status)
	}
	select {
	case result := <-env.settler.results:
		if len(result.Rankings) != 1 {
			t.Errorf("settlement saw %d rankings", len(result.Rankings))
		}
	case <-time.After(time.Second):
		t.Fatal("settler never called")
	}
}

func TestBotTakesScheduledTurn(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	if err := r.AddBot("p0"); err != nil {
		t.Fatalf("AddBot failed: %v", err)
	}
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	botID := r.Players[1].ID
	rig(r, 1, false,
		[]game.Card{c(4, game.SuitDiamonds), c(6, game.SuitHearts)},
		[]game.Card{c(0, game.SuitSpades), c(9, game.SuitHearts)},
	)

	r.handleBotTurn(r.Epoch())

	if len(r.Pile) != 1 {
		t.Fatal("bot did not play while leading")
	}
	if r.Pile[0].PlayerID != botID {
		t.Errorf("pile play by %s, want %s", r.Pile[0].PlayerID, botID)
	}
	if r.CurrentSeat != 0 {
		t.Errorf("CurrentSeat = %d, want 0", r.CurrentSeat)
	}
}

func TestSnapshotHidesHands(t *testing.T) {
	env := newTestEnv()
	r := mustCreate(t, env, 0)
	mustJoin(t, r, "p1")
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := r.Snapshot()
	if len(snap.Seats) != 2 {
		t.Fatalf("snapshot has %d seats", len(snap.Seats))
	}
	for _, seat := range snap.Seats {
		if seat.CardCount != game.HandSize {
			t.Errorf("seat %s card count = %d", seat.PlayerID, seat.CardCount)
		}
	}
	if snap.CurrentPlayerID != r.Players[r.CurrentSeat].ID {
		t.Errorf("CurrentPlayerID = %s", snap.CurrentPlayerID)
	}
	if snap.Status != string(StatusPlaying) {
		t.Errorf("Status = %s", snap.Status)
	}
}

func TestPublicRoomsFiltersHidden(t *testing.T) {
	env := newTestEnv()
	mustCreate(t, env, 0)
	hidden, err := env.manager.CreateRoom(CreateParams{HostID: "h1", HostName: "quiet"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	rooms := env.manager.PublicRooms()
	if len(rooms) != 1 {
		t.Fatalf("PublicRooms() returned %d rooms, want 1", len(rooms))
	}
	if rooms[0].Code == hidden.Code {
		t.Error("hidden room listed")
	}
}
