package room

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/thirteen/bot"
	"github.com/wfunc/thirteen/game"
	"github.com/wfunc/thirteen/logger"
)

// Join seats a player in the lobby. Joining is idempotent by player id:
// rejoining with the same id reclaims the seat, in any status.
func (r *Room) Join(playerID, name, avatar string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}

	if p := r.findPlayer(playerID); p != nil {
		r.reclaimSeatLocked(p)
		return nil
	}

	if r.Status != StatusLobby {
		return ErrMatchStarted
	}
	if len(r.Players) >= r.deps.MaxSeats {
		return ErrRoomFull
	}

	r.Players = append(r.Players, &Player{
		ID:     playerID,
		Name:   name,
		Avatar: avatar,
	})
	r.promoteHostLocked()
	r.broadcastStateLocked()
	return nil
}

// reclaimSeatLocked restores a returning player: grace timer cancelled,
// offline flag dropped, hand untouched.
func (r *Room) reclaimSeatLocked(p *Player) {
	if timerID, ok := r.graceTimers[p.ID]; ok {
		r.deps.Scheduler.Cancel(timerID)
		delete(r.graceTimers, p.ID)
	}
	p.IsOffline = false
	r.broadcastStateLocked()
	r.sendHandLocked(p)
}

// Reconnect rebinds a returning player to their seat. Unknown ids surface
// as a session-expired signal so the client discards stale local state.
func (r *Room) Reconnect(playerID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrSessionExpired
	}
	r.reclaimSeatLocked(p)
	return nil
}

// Resync pushes the current snapshot and private hand to one member.
func (r *Room) Resync(playerID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrSessionExpired
	}
	r.sendStateToLocked(p)
	r.sendHandLocked(p)
	return nil
}

// AddBot fills a lobby seat with a computer player. Host only.
func (r *Room) AddBot(actorID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.requireHostLobbyLocked(actorID); err != nil {
		return err
	}
	if len(r.Players) >= r.deps.MaxSeats {
		return ErrRoomFull
	}

	r.Players = append(r.Players, newBotPlayer(r.rng))
	r.broadcastStateLocked()
	return nil
}

// RemoveBot frees a bot seat. Host only, lobby only.
func (r *Room) RemoveBot(actorID, botID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.requireHostLobbyLocked(actorID); err != nil {
		return err
	}
	idx := r.seatIndexOf(botID)
	if idx < 0 || !r.Players[idx].IsBot {
		return ErrNotABot
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.broadcastStateLocked()
	return nil
}

// SetBotDifficulty retunes a bot seat. Host only, lobby only.
func (r *Room) SetBotDifficulty(actorID, botID string, difficulty bot.Difficulty) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.requireHostLobbyLocked(actorID); err != nil {
		return err
	}
	p := r.findPlayer(botID)
	if p == nil || !p.IsBot {
		return ErrNotABot
	}
	p.Difficulty = difficulty
	r.broadcastStateLocked()
	return nil
}

func (r *Room) requireHostLobbyLocked(actorID string) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if r.Status != StatusLobby {
		return ErrMatchStarted
	}
	p := r.findPlayer(actorID)
	if p == nil {
		return ErrNotInRoom
	}
	if !p.IsHost {
		return ErrNotHost
	}
	return nil
}

// Start deals a fresh deck, fixes seating, and moves the room to PLAYING.
// The seat holding the lowest dealt card opens the match with it.
func (r *Room) Start(actorID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.requireHostLobbyLocked(actorID); err != nil {
		return err
	}
	if len(r.Players) < 2 {
		return ErrTooFewPlayers
	}

	deck := game.NewDeck()
	game.Shuffle(r.rng, deck)
	hands := game.Deal(deck, len(r.Players))
	for i, p := range r.Players {
		p.Hand = hands[i]
		p.HasPassed = false
		p.FinishedRank = 0
	}

	r.Status = StatusPlaying
	r.Pile = nil
	r.History = nil
	r.FinishedOrder = nil
	r.LastPlayerToPlayID = ""
	r.FirstPlay = true
	r.Opener = game.LowestDealt(hands)
	r.CurrentSeat = game.OpenerSeat(hands)
	r.startedAt = time.Now()

	r.bumpEpochLocked()
	r.armTurnTimerLocked()
	r.broadcastStateLocked()
	for _, p := range r.Players {
		r.sendHandLocked(p)
	}
	r.scheduleBotLocked()
	return nil
}

// Play applies a proposed play by the seat owner. Rejections leave state
// untouched and are reported to the actor only.
func (r *Room) Play(playerID string, cards []game.Card) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.Status != StatusPlaying {
		return ErrMatchNotLive
	}
	if r.Players[r.CurrentSeat].ID != playerID {
		return ErrNotYourTurn
	}
	return r.playLocked(playerID, cards)
}

// Pass records a pass by the seat owner. The round leader can never pass.
func (r *Room) Pass(playerID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.Status != StatusPlaying {
		return ErrMatchNotLive
	}
	if r.Players[r.CurrentSeat].ID != playerID {
		return ErrNotYourTurn
	}
	return r.passLocked(playerID)
}

func (r *Room) playLocked(playerID string, cards []game.Card) error {
	p := r.findPlayer(playerID)
	if !game.ContainsAll(p.Hand, cards) {
		return ErrCardsNotInHand
	}

	verdict, err := game.ValidateMove(cards, r.Pile, r.FirstPlay, r.Opener)
	if err != nil {
		return err
	}

	p.Hand = game.RemoveCards(p.Hand, verdict.Combo.Cards)
	r.Pile = append(r.Pile, game.Play{
		PlayerID: playerID,
		Cards:    verdict.Combo.Cards,
		Combo:    verdict.Combo,
	})
	r.LastPlayerToPlayID = playerID
	r.FirstPlay = false

	if len(p.Hand) == 0 {
		p.FinishedRank = len(r.FinishedOrder) + 1
		r.FinishedOrder = append(r.FinishedOrder, playerID)
	}

	r.afterMutationLocked()
	if r.Status == StatusPlaying && !p.IsBot {
		r.sendHandLocked(p)
	}
	return nil
}

func (r *Room) passLocked(playerID string) error {
	if len(r.Pile) == 0 {
		return ErrLeaderMustPlay
	}
	p := r.findPlayer(playerID)
	p.HasPassed = true
	r.afterMutationLocked()
	return nil
}

// afterMutationLocked is the single post-mutation path: match-end check,
// round resolution, invariant repair, timer re-arm, snapshot broadcast, and
// bot scheduling. Centralizing it keeps every handler consistent.
func (r *Room) afterMutationLocked() {
	if r.unrankedCount() <= 1 {
		r.finishMatchLocked()
		return
	}

	if r.Players[r.CurrentSeat].active() && !r.roundClosedLocked() {
		next := r.advanceTurn(r.CurrentSeat, false)
		r.CurrentSeat = next
	}
	r.resolveRoundIfClosedLocked()
	r.repairTurnPointerLocked()

	r.bumpEpochLocked()
	r.armTurnTimerLocked()
	r.broadcastStateLocked()
	r.scheduleBotLocked()
}

// finishMatchLocked auto-ranks the last unranked seat, archives the pile,
// and hands the result to the settlement collaborator.
func (r *Room) finishMatchLocked() {
	for _, p := range r.Players {
		if p.active() {
			p.FinishedRank = len(r.FinishedOrder) + 1
			r.FinishedOrder = append(r.FinishedOrder, p.ID)
		}
	}
	if len(r.Pile) > 0 {
		r.History = append(r.History, r.Pile)
		r.Pile = nil
	}
	r.LastPlayerToPlayID = ""
	r.Status = StatusFinished
	r.TurnDeadline = time.Time{}
	r.bumpEpochLocked()
	r.cancelTurnTimersLocked()
	r.broadcastStateLocked()

	result := MatchResult{
		RoomCode:  r.Code,
		RoomName:  r.Name,
		StartedAt: r.startedAt,
		EndedAt:   time.Now(),
	}
	for _, p := range r.Players {
		result.Rankings = append(result.Rankings, PlayerRanking{
			PlayerID: p.ID,
			Name:     p.Name,
			Rank:     p.FinishedRank,
			IsBot:    p.IsBot,
		})
	}
	go r.deps.Settler.Settle(result)

	logger.Log.Infow("match finished", "room", r.Code, "order", r.FinishedOrder)
}

// Disconnect handles a transport-level drop for a human player. In the
// lobby the seat is freed immediately; mid-match the seat survives for the
// grace window.
func (r *Room) Disconnect(playerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return
	}
	p := r.findPlayer(playerID)
	if p == nil || p.IsBot {
		return
	}

	if r.Status == StatusPlaying && r.deps.Grace > 0 {
		p.IsOffline = true
		if timerID, ok := r.graceTimers[playerID]; ok {
			r.deps.Scheduler.Cancel(timerID)
		}
		r.graceTimers[playerID] = r.deps.Scheduler.Schedule(r.deps.Grace, func() {
			r.handleGraceExpired(playerID)
		})
		r.broadcastStateLocked()
		return
	}

	r.removePlayerLocked(playerID)
}

// handleGraceExpired fires when the reconnect window lapses. A player who
// reconnected in the meantime makes this a no-op.
func (r *Room) handleGraceExpired(playerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return
	}
	delete(r.graceTimers, playerID)

	p := r.findPlayer(playerID)
	if p == nil || !p.IsOffline {
		return
	}
	logger.Log.Infow("grace window expired, removing player",
		"room", r.Code, "player", playerID)
	r.removePlayerLocked(playerID)
}

// removePlayerLocked frees a seat entirely and re-validates the turn
// pointer. A room left without humans is deleted; bots alone never keep a
// room alive.
func (r *Room) removePlayerLocked(playerID string) {
	idx := r.seatIndexOf(playerID)
	if idx < 0 {
		return
	}
	wasCurrent := r.Status == StatusPlaying && idx == r.CurrentSeat

	if timerID, ok := r.graceTimers[playerID]; ok {
		r.deps.Scheduler.Cancel(timerID)
		delete(r.graceTimers, playerID)
	}

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	if r.CurrentSeat > idx {
		r.CurrentSeat--
	} else if r.CurrentSeat >= len(r.Players) {
		r.CurrentSeat = 0
	}

	if r.humanCount() == 0 {
		r.teardownLocked()
		r.manager.removeRoomAsync(r.Code)
		return
	}
	r.promoteHostLocked()

	if r.Status == StatusPlaying {
		if r.unrankedCount() <= 1 {
			r.finishMatchLocked()
			return
		}
		if wasCurrent {
			// After the splice, CurrentSeat names the seat that followed
			// the departed player. Skip it only if it cannot act.
			cur := r.Players[r.CurrentSeat]
			if !cur.active() || cur.HasPassed {
				r.CurrentSeat = r.advanceTurn(r.CurrentSeat, false)
			}
		}
		r.resolveRoundIfClosedLocked()
		r.repairTurnPointerLocked()
		r.bumpEpochLocked()
		r.armTurnTimerLocked()
		r.scheduleBotLocked()
	}
	r.broadcastStateLocked()
}

var botNames = []string{"Rooster", "Buffalo", "Dragon", "Tiger", "Horse", "Monkey"}

func newBotPlayer(rng *rand.Rand) *Player {
	return &Player{
		ID:         "bot-" + uuid.NewString(),
		Name:       botNames[rng.Intn(len(botNames))],
		IsBot:      true,
		Difficulty: bot.DifficultyNormal,
	}
}
