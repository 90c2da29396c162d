package discord

import (
	"github.com/keshon/ttsvoice/internal/presence"
)

// PushStatus implements presence.Pusher.
func (f *Fleet) PushStatus(bot int, s presence.Status) error {
	b, err := f.bot(bot)
	if err != nil {
		return err
	}
	if b.UserID() == "" {
		return ErrNotConnected
	}
	if s.Listening {
		return b.dg.UpdateListeningStatus(s.Text)
	}
	return b.dg.UpdateGameStatus(0, s.Text)
}
