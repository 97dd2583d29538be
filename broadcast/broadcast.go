// Package broadcast fans room messages out to live sessions. It sits on the
// session manager only, so rooms can call it while holding their own lock.
package broadcast

import (
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/monitor"
	"github.com/wfunc/thirteen/session"
)

type Broadcaster struct {
	sessions *session.Manager
	monitor  *monitor.Monitor
}

// NewBroadcaster wires delivery over the session manager. The monitor may
// be nil in tests.
func NewBroadcaster(sessions *session.Manager, mon *monitor.Monitor) *Broadcaster {
	return &Broadcaster{sessions: sessions, monitor: mon}
}

// SendToPlayer delivers to one player's live session. Offline players are
// skipped silently; the room tracks their state and resyncs on reconnect.
func (b *Broadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) {
	s, exists := b.sessions.GetByPlayerID(playerID)
	if !exists {
		return
	}
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Warnw("send failed", "player", playerID, "msgID", msgID, "error", err)
		return
	}
	if b.monitor != nil {
		b.monitor.IncMessagesSent()
	}
}

func (b *Broadcaster) SendToPlayers(playerIDs []string, msgID uint16, data []byte) {
	for _, id := range playerIDs {
		b.SendToPlayer(id, msgID, data)
	}
}
