package room

import (
	"time"

	"github.com/wfunc/thirteen/bot"
	"github.com/wfunc/thirteen/logger"
)

// armTurnTimerLocked starts the clock for the seat named by CurrentSeat.
// A non-positive turn duration disables forced moves for the room.
func (r *Room) armTurnTimerLocked() {
	r.cancelTurnTimersLocked()
	if r.Status != StatusPlaying || r.TurnDuration <= 0 {
		r.TurnDeadline = time.Time{}
		return
	}
	r.TurnDeadline = time.Now().Add(r.TurnDuration)

	epoch := r.turnEpoch
	r.turnTimerID = r.deps.Scheduler.Schedule(r.TurnDuration, func() {
		r.handleTurnTimeout(epoch)
	})
}

// handleTurnTimeout forces a move for a seat that ran out the clock. The
// captured epoch makes a callback that raced a real move a no-op.
func (r *Room) handleTurnTimeout(epoch uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed || r.Status != StatusPlaying || epoch != r.turnEpoch {
		return
	}

	p := r.Players[r.CurrentSeat]
	logger.Log.Infow("turn timed out", "room", r.Code, "player", p.ID)
	if r.deps.OnTurnTimeout != nil {
		r.deps.OnTurnTimeout()
	}

	if len(r.Pile) == 0 {
		// A leader cannot pass, so the cheapest legal play goes out.
		decision := bot.Decide(p.Hand, r.Pile, r.FirstPlay, r.Opener, bot.DifficultyNormal)
		if err := r.playLocked(p.ID, decision.Cards); err != nil {
			// Should be unreachable: any non-empty hand has a legal lead.
			logger.Log.Errorw("forced play rejected", "room", r.Code,
				"player", p.ID, "error", err)
		}
		return
	}
	if err := r.passLocked(p.ID); err != nil {
		logger.Log.Errorw("forced pass rejected", "room", r.Code,
			"player", p.ID, "error", err)
	}
}

// scheduleBotLocked queues a delayed move whenever the current seat is a
// bot. The delay keeps play legible to humans at the table.
func (r *Room) scheduleBotLocked() {
	if r.botTimerID != 0 {
		r.deps.Scheduler.Cancel(r.botTimerID)
		r.botTimerID = 0
	}
	if r.Status != StatusPlaying {
		return
	}
	p := r.Players[r.CurrentSeat]
	if !p.IsBot {
		return
	}

	delay := r.deps.BotMinDelay
	if spread := r.deps.BotMaxDelay - r.deps.BotMinDelay; spread > 0 {
		delay += time.Duration(r.rng.Int63n(int64(spread)))
	}

	epoch := r.turnEpoch
	r.botTimerID = r.deps.Scheduler.Schedule(delay, func() {
		r.handleBotTurn(epoch)
	})
}

func (r *Room) handleBotTurn(epoch uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed || r.Status != StatusPlaying || epoch != r.turnEpoch {
		return
	}

	p := r.Players[r.CurrentSeat]
	if !p.IsBot {
		return
	}

	decision := bot.Decide(p.Hand, r.Pile, r.FirstPlay, r.Opener, p.Difficulty)
	var err error
	if decision.Pass {
		err = r.passLocked(p.ID)
	} else {
		err = r.playLocked(p.ID, decision.Cards)
	}
	if err != nil {
		logger.Log.Errorw("bot move rejected", "room", r.Code,
			"player", p.ID, "error", err)
		if len(r.Pile) > 0 {
			if err := r.passLocked(p.ID); err != nil {
				logger.Log.Errorw("bot fallback pass rejected",
					"room", r.Code, "player", p.ID, "error", err)
			}
		}
	}
}
