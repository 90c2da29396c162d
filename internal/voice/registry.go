package voice

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

type session struct {
	state          State
	textChannelID  string
	voiceChannelID string
	queue          *Queue
}

func (s *session) binding(key Key) Binding {
	return Binding{
		Key:            key,
		State:          s.state,
		TextChannelID:  s.textChannelID,
		VoiceChannelID: s.voiceChannelID,
		Pending:        s.queue.Pending(),
	}
}

// Registry maps every (bot, guild) pair to its live session. All access goes
// through its own lock; synthesis and playback run on queue workers, never
// under it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[Key]*session
	// playLocks outlive sessions: a queue closed by Disconnect or Connect
	// may still be playing when the next session of the key starts.
	playLocks map[Key]*sync.Mutex

	synth Synthesizer
	sink  Sink
	log   zerolog.Logger
}

func NewRegistry(synth Synthesizer, sink Sink, log zerolog.Logger) *Registry {
	return &Registry{
		sessions:  make(map[Key]*session),
		playLocks: make(map[Key]*sync.Mutex),
		synth:     synth,
		sink:      sink,
		log:       log,
	}
}

// Connect binds key to the given channels with a fresh queue. An existing
// session is replaced and its queue closed; its pending utterances are
// dropped, not carried over.
func (r *Registry) Connect(key Key, textChannelID, voiceChannelID string) Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[key]; ok {
		old.queue.Close()
		r.log.Info().Str("session", key.String()).
			Str("old_voice", old.voiceChannelID).
			Str("voice", voiceChannelID).
			Msg("session replaced")
	} else {
		r.log.Info().Str("session", key.String()).Str("voice", voiceChannelID).Msg("session connected")
	}

	s := &session{
		state:          StateConnected,
		textChannelID:  textChannelID,
		voiceChannelID: voiceChannelID,
		queue:          newQueue(key, r.synth, r.sink, r.playLock(key), r.log),
	}
	r.sessions[key] = s
	return s.binding(key)
}

// playLock must be called with r.mu held.
func (r *Registry) playLock(key Key) *sync.Mutex {
	mu, ok := r.playLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		r.playLocks[key] = mu
	}
	return mu
}

// Disconnect removes the session for key and closes its queue. It reports
// whether a session existed.
func (r *Registry) Disconnect(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	delete(r.sessions, key)
	s.queue.Close()
	r.log.Info().Str("session", key.String()).Msg("session disconnected")
	return true
}

// Reconnect records that the bot now sits in voiceChannelID. Queue and text
// binding are kept. It reports false when there is no session.
func (r *Registry) Reconnect(key Key, voiceChannelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	if s.voiceChannelID != voiceChannelID {
		r.log.Info().Str("session", key.String()).
			Str("from", s.voiceChannelID).
			Str("to", voiceChannelID).
			Msg("session moved")
		s.voiceChannelID = voiceChannelID
	}
	return true
}

func (r *Registry) Get(key Key) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return Binding{}, false
	}
	return s.binding(key), true
}

// Speak enqueues utterances on the session for key. A non-empty
// textChannelID must match the session's text channel. It reports whether
// anything was enqueued.
func (r *Registry) Speak(key Key, textChannelID string, utterances ...Utterance) bool {
	return r.speak(key, textChannelID, false, utterances)
}

// Overwrite is Speak after dropping everything still waiting in the queue.
func (r *Registry) Overwrite(key Key, textChannelID string, utterances ...Utterance) bool {
	return r.speak(key, textChannelID, true, utterances)
}

func (r *Registry) speak(key Key, textChannelID string, clear bool, utterances []Utterance) bool {
	if len(utterances) == 0 {
		return false
	}

	// The read lock keeps Connect from retiring this queue mid-enqueue.
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	if textChannelID != "" && s.textChannelID != textChannelID {
		return false
	}
	if clear {
		s.queue.Clear()
	}
	enqueued := false
	for _, u := range utterances {
		if s.queue.Enqueue(u) {
			enqueued = true
		}
	}
	return enqueued
}

// PendingCount sums queued and playing utterances over every session of bot.
func (r *Registry) PendingCount(bot int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for k, s := range r.sessions {
		if k.Bot == bot {
			n += s.queue.Pending()
		}
	}
	return n
}

// Keys returns every bound key ordered by bot, then guild.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sortKeys(keys)
	return keys
}

// Bindings snapshots every session, ordered like Keys.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	out := make([]Binding, 0, len(r.sessions))
	for k, s := range r.sessions {
		out = append(out, s.binding(k))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i].Key, out[j].Key) })
	return out
}

// Close disconnects every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.sessions {
		s.queue.Close()
		delete(r.sessions, k)
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
}

func less(a, b Key) bool {
	if a.Bot != b.Bot {
		return a.Bot < b.Bot
	}
	return a.GuildID < b.GuildID
}
