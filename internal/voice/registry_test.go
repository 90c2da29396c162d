package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSynth struct {
	fail map[string]bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, voice, text string) (io.ReadCloser, error) {
	if f.fail[text] {
		return nil, errors.New("synthesis down")
	}
	return io.NopCloser(strings.NewReader(voice + "|" + text)), nil
}

// fakeSink records start and end events; playback of a payload listed in
// gates blocks until that gate is closed.
type fakeSink struct {
	mu     sync.Mutex
	events []string
	gates  map[string]chan struct{}
}

func (f *fakeSink) Play(ctx context.Context, key Key, audio io.Reader) error {
	data, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	payload := string(data)

	f.mu.Lock()
	f.events = append(f.events, "start:"+payload)
	gate := f.gates[payload]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.events = append(f.events, "end:"+payload)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newTestRegistry(sink *fakeSink, synth *fakeSynth) *Registry {
	if synth == nil {
		synth = &fakeSynth{}
	}
	return NewRegistry(synth, sink, zerolog.Nop())
}

func TestConnectThenDisconnect(t *testing.T) {
	r := newTestRegistry(&fakeSink{}, nil)
	key := Key{Bot: 0, GuildID: "g"}

	b := r.Connect(key, "t", "v")
	if b.State != StateConnected || b.TextChannelID != "t" || b.VoiceChannelID != "v" {
		t.Fatalf("unexpected binding: %+v", b)
	}
	if _, ok := r.Get(key); !ok {
		t.Fatal("expected session after connect")
	}

	if !r.Disconnect(key) {
		t.Fatal("disconnect should report an existing session")
	}
	if _, ok := r.Get(key); ok {
		t.Fatal("get must return none after disconnect")
	}
	if r.Disconnect(key) {
		t.Fatal("second disconnect must be a no-op")
	}
}

func TestUtterancesPlayInOrder(t *testing.T) {
	sink := &fakeSink{}
	r := newTestRegistry(sink, &fakeSynth{fail: map[string]bool{"two": true}})
	key := Key{Bot: 0, GuildID: "g"}
	r.Connect(key, "t", "v")

	for _, text := range []string{"one", "two", "three", "four"} {
		if !r.Speak(key, "t", NewUtterance("vt:hikari", text)) {
			t.Fatalf("speak %q rejected", text)
		}
	}

	waitFor(t, func() bool { return len(sink.snapshot()) == 6 })

	want := []string{
		"start:vt:hikari|one", "end:vt:hikari|one",
		"start:vt:hikari|three", "end:vt:hikari|three",
		"start:vt:hikari|four", "end:vt:hikari|four",
	}
	got := sink.snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
	waitFor(t, func() bool { return r.PendingCount(0) == 0 })
}

func TestReplacementDropsPendingWithoutOverlap(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gates: map[string]chan struct{}{"v|first": gate}}
	r := newTestRegistry(sink, nil)
	key := Key{Bot: 1, GuildID: "g"}

	r.Connect(key, "t", "v1")
	r.Speak(key, "t", NewUtterance("v", "first"))
	r.Speak(key, "t", NewUtterance("v", "stale"))
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	b := r.Connect(key, "t", "v2")
	if b.VoiceChannelID != "v2" {
		t.Fatalf("binding not replaced: %+v", b)
	}
	r.Speak(key, "t", NewUtterance("v", "fresh"))
	time.Sleep(50 * time.Millisecond)
	for _, e := range sink.snapshot() {
		if e == "start:v|fresh" {
			t.Fatalf("replacement started while the old clip was still playing: %v", sink.snapshot())
		}
	}

	close(gate)
	waitFor(t, func() bool {
		for _, e := range sink.snapshot() {
			if e == "end:v|fresh" {
				return true
			}
		}
		return false
	})
	time.Sleep(20 * time.Millisecond)

	want := []string{"start:v|first", "end:v|first", "start:v|fresh", "end:v|fresh"}
	got := sink.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	for _, e := range sink.snapshot() {
		if strings.Contains(e, "stale") {
			t.Fatalf("pre-replacement utterance played after replacement: %v", sink.snapshot())
		}
	}
}

func TestSpeakChecksTextChannel(t *testing.T) {
	sink := &fakeSink{}
	r := newTestRegistry(sink, nil)
	key := Key{Bot: 0, GuildID: "g"}

	if r.Speak(key, "t", NewUtterance("v", "x")) {
		t.Fatal("speak without a session must fail")
	}
	r.Connect(key, "t", "v")
	if r.Speak(key, "other", NewUtterance("v", "x")) {
		t.Fatal("speak from an unbound text channel must fail")
	}
	if !r.Speak(key, "", NewUtterance("v", "announce")) {
		t.Fatal("speak with no text channel should reach the session")
	}
}

func TestReconnectKeepsQueue(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gates: map[string]chan struct{}{"v|a": gate}}
	r := newTestRegistry(sink, nil)
	key := Key{Bot: 0, GuildID: "g"}

	if r.Reconnect(key, "v2") {
		t.Fatal("reconnect without a session must be a no-op")
	}

	r.Connect(key, "t", "v1")
	r.Speak(key, "t", NewUtterance("v", "a"), NewUtterance("v", "b"))
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	if !r.Reconnect(key, "v2") {
		t.Fatal("reconnect should find the session")
	}
	b, _ := r.Get(key)
	if b.VoiceChannelID != "v2" || b.TextChannelID != "t" {
		t.Fatalf("unexpected binding after move: %+v", b)
	}
	if b.Pending != 2 {
		t.Fatalf("queue should survive a move, pending=%d", b.Pending)
	}
	close(gate)
	waitFor(t, func() bool { return len(sink.snapshot()) == 4 })
}

func TestOverwriteDropsWaitingUtterances(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gates: map[string]chan struct{}{"v|a": gate}}
	r := newTestRegistry(sink, nil)
	key := Key{Bot: 0, GuildID: "g"}
	r.Connect(key, "t", "v")

	r.Speak(key, "t", NewUtterance("v", "a"), NewUtterance("v", "b"))
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	r.Overwrite(key, "t", NewUtterance("v", "c"))
	close(gate)

	waitFor(t, func() bool { return len(sink.snapshot()) == 4 })
	got := sink.snapshot()
	if got[2] != "start:v|c" {
		t.Fatalf("expected overwrite to skip b, got %v", got)
	}
}

func TestPendingCountPerBot(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	sink := &fakeSink{gates: map[string]chan struct{}{"v|hold": gate}}
	r := newTestRegistry(sink, nil)

	r.Connect(Key{Bot: 0, GuildID: "a"}, "t", "v")
	r.Connect(Key{Bot: 0, GuildID: "b"}, "t", "v")
	r.Connect(Key{Bot: 1, GuildID: "a"}, "t", "v")

	r.Speak(Key{Bot: 0, GuildID: "a"}, "t", NewUtterance("v", "hold"), NewUtterance("v", "x"))
	r.Speak(Key{Bot: 0, GuildID: "b"}, "t", NewUtterance("v", "hold"))

	waitFor(t, func() bool { return r.PendingCount(0) == 3 })
	if n := r.PendingCount(1); n != 0 {
		t.Fatalf("bot 1 should be idle, got %d", n)
	}

	keys := r.Keys()
	if len(keys) != 3 || keys[0] != (Key{0, "a"}) || keys[2] != (Key{1, "a"}) {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestQueueCloseStopsWorker(t *testing.T) {
	q := newQueue(Key{}, &fakeSynth{}, &fakeSink{}, &sync.Mutex{}, zerolog.Nop())
	q.Close()
	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after close")
	}
	if q.Enqueue(NewUtterance("v", "late")) {
		t.Fatal("closed queue must reject utterances")
	}
}
