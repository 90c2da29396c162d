package voice

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Queue is a FIFO of utterances drained by a single worker goroutine. An
// utterance is synthesized and played fully before the next one starts.
type Queue struct {
	key   Key
	synth Synthesizer
	sink  Sink
	log   zerolog.Logger

	// playMu is shared by every queue of the same key, so a replaced
	// queue finishing its last utterance never overlaps the new one.
	playMu *sync.Mutex

	mu      sync.Mutex
	items   []Utterance
	playing bool
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newQueue(key Key, synth Synthesizer, sink Sink, playMu *sync.Mutex, log zerolog.Logger) *Queue {
	q := &Queue{
		key:    key,
		synth:  synth,
		sink:   sink,
		playMu: playMu,
		log:    log.With().Str("session", key.String()).Logger(),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue appends u without blocking. It reports false once the queue is
// closed.
func (q *Queue) Enqueue(u Utterance) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, u)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Clear drops every utterance that has not started yet and returns how many
// were dropped. The one playing keeps going.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Pending counts queued utterances plus the one playing, if any.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if q.playing {
		n++
	}
	return n
}

// Close abandons pending utterances and stops the worker once the current
// utterance, if any, has finished. It does not wait.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.items)
	q.items = nil
	q.mu.Unlock()

	close(q.stop)
	if dropped > 0 {
		q.log.Debug().Int("dropped", dropped).Msg("queue closed with pending utterances")
	}
}

// Done is closed when the worker has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		u, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.stop:
				return
			}
		}

		q.play(u)

		q.mu.Lock()
		q.playing = false
		q.mu.Unlock()
	}
}

func (q *Queue) next() (Utterance, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) == 0 {
		return Utterance{}, false
	}
	u := q.items[0]
	q.items[0] = Utterance{}
	q.items = q.items[1:]
	q.playing = true
	return u, true
}

// play never propagates errors: a failed utterance is logged and skipped so
// the next one still plays.
func (q *Queue) play(u Utterance) {
	ctx := context.Background()
	log := q.log.With().Str("utterance", u.ID.String()).Logger()

	rc, err := q.synth.Synthesize(ctx, u.Voice, u.Text)
	if err != nil {
		log.Warn().Err(err).Str("voice", u.Voice).Msg("synthesis failed")
		return
	}
	defer rc.Close()

	q.playMu.Lock()
	err = q.sink.Play(ctx, q.key, rc)
	q.playMu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("playback failed")
		return
	}
	log.Debug().Msg("utterance played")
}
