package room

import "github.com/wfunc/thirteen/logger"

// advanceTurn walks seats clockwise from fromSeat, skipping finished seats
// and, unless allowPassed, seats that have passed this round. Returns the
// next eligible seat, wrapping; if none exists the starting index comes
// back as a defensive fallback.
func (r *Room) advanceTurn(fromSeat int, allowPassed bool) int {
	n := len(r.Players)
	if n == 0 {
		return fromSeat
	}
	for step := 1; step <= n; step++ {
		idx := (fromSeat + step) % n
		p := r.Players[idx]
		if !p.active() {
			continue
		}
		if !allowPassed && p.HasPassed {
			continue
		}
		return idx
	}
	return fromSeat
}

// roundClosedLocked reports whether the active round is over: there is an
// unbeaten play and every other still-active seat has passed. An empty pile
// means no round is open, which also makes the resolution below idempotent.
func (r *Room) roundClosedLocked() bool {
	if len(r.Pile) == 0 || r.LastPlayerToPlayID == "" {
		return false
	}
	for _, p := range r.Players {
		if !p.active() {
			continue
		}
		if p.ID == r.LastPlayerToPlayID {
			continue
		}
		if !p.HasPassed {
			return false
		}
	}
	return true
}

// resolveRoundIfClosedLocked archives the pile and resets pass flags once
// the round leader stands unbeaten. The leader opens the next round unless
// they have finished in the meantime, in which case rotation continues
// (ignoring pass flags) to the next active seat.
func (r *Room) resolveRoundIfClosedLocked() {
	if !r.roundClosedLocked() {
		return
	}

	r.History = append(r.History, r.Pile)
	r.Pile = nil
	for _, p := range r.Players {
		p.HasPassed = false
	}

	leaderSeat := r.seatIndexOf(r.LastPlayerToPlayID)
	r.LastPlayerToPlayID = ""

	switch {
	case leaderSeat >= 0 && r.Players[leaderSeat].active():
		r.CurrentSeat = leaderSeat
	case leaderSeat >= 0:
		r.CurrentSeat = r.advanceTurn(leaderSeat, true)
	default:
		// Leader left the room mid-round; hand the lead to the next
		// active seat from wherever the pointer is.
		r.CurrentSeat = r.advanceTurn(r.CurrentSeat, true)
	}
}

// repairTurnPointerLocked reasserts the core invariant after every
// mutation: currentSeatIndex names an unranked seat unless the match is
// terminal. An unrepairable pointer is a defect, logged and left on the
// current seat rather than crashing the room.
func (r *Room) repairTurnPointerLocked() {
	if r.Status != StatusPlaying || len(r.Players) == 0 {
		return
	}
	if r.CurrentSeat >= len(r.Players) {
		r.CurrentSeat = 0
	}
	if r.Players[r.CurrentSeat].active() {
		return
	}
	next := r.advanceTurn(r.CurrentSeat, false)
	if !r.Players[next].active() || r.Players[next].HasPassed {
		next = r.advanceTurn(r.CurrentSeat, true)
	}
	if !r.Players[next].active() {
		logger.Log.Errorw("no eligible seat found, keeping current seat",
			"room", r.Code, "seat", r.CurrentSeat)
		return
	}
	r.CurrentSeat = next
}
