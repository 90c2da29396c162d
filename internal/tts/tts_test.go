package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/pkg/retrylimit"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestVoiceText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Form.Get("speaker") == "nobody" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "unknown speaker")
			return
		}
		_, _ = io.WriteString(w, "wav:"+r.Form.Get("speaker")+":"+r.Form.Get("text"))
	}))
	defer srv.Close()

	vt, err := NewVoiceText("key")
	if err != nil {
		t.Fatal(err)
	}
	vt.WithBaseURL(srv.URL)

	t.Run("ok", func(t *testing.T) {
		rc, err := vt.Synthesize(context.Background(), "hikari", "hello")
		if err != nil {
			t.Fatalf("synthesize: %v", err)
		}
		if got := readAll(t, rc); got != "wav:hikari:hello" {
			t.Fatalf("unexpected body %q", got)
		}
	})

	t.Run("api error", func(t *testing.T) {
		_, err := vt.Synthesize(context.Background(), "nobody", "hello")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusBadRequest || apiErr.IsRetryable() {
			t.Fatalf("expected non-retryable 400, got %v", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if _, err := vt.Synthesize(context.Background(), "hikari", "  "); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
	})

	if _, err := NewVoiceText(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/inm/yaju%20senpai.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "mp3")
	}))
	defer srv.Close()

	c := NewClip(CategoryInm, srv.URL+"/")
	rc, err := c.Synthesize(context.Background(), ClipName, "yaju senpai")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got := readAll(t, rc); got != "mp3" {
		t.Fatalf("unexpected body %q", got)
	}

	_, err = c.Synthesize(context.Background(), ClipName, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"voice":"nova"`) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "mp3")
	}))
	defer srv.Close()

	o, err := NewOpenAIWithBaseURL("sk", srv.URL+"/v1")
	if err != nil {
		t.Fatal(err)
	}
	rc, err := o.Synthesize(context.Background(), "nova", "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got := readAll(t, rc); got != "mp3" {
		t.Fatalf("unexpected body %q", got)
	}
}

type scriptedProvider struct {
	mu    sync.Mutex
	errs  []error
	calls []string
}

func (p *scriptedProvider) Synthesize(ctx context.Context, name, text string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name+"|"+text)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return io.NopCloser(strings.NewReader(name + "|" + text)), nil
}

func testRouter() *Router {
	return NewRouter(Passthrough{}, zerolog.Nop()).WithRetryConfig(retrylimit.RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     1,
	})
}

func TestRouterDispatch(t *testing.T) {
	r := testRouter()
	vt := &scriptedProvider{}
	r.Register(CategoryVoiceText, vt)

	rc, err := r.Synthesize(context.Background(), "voicetext:bear", "hi")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got := readAll(t, rc); got != "bear|hi" {
		t.Fatalf("unexpected audio %q", got)
	}

	for _, id := range []string{"openai:nova", "bear", ""} {
		if _, err := r.Synthesize(context.Background(), id, "hi"); !errors.Is(err, ErrUnknownVoice) {
			t.Fatalf("%q: expected ErrUnknownVoice, got %v", id, err)
		}
	}
}

func TestRouterRetries(t *testing.T) {
	t.Run("server error then success", func(t *testing.T) {
		r := testRouter()
		p := &scriptedProvider{errs: []error{&APIError{Status: 503}}}
		r.Register(CategoryOpenAI, p)

		if _, err := r.Synthesize(context.Background(), "openai:nova", "hi"); err != nil {
			t.Fatalf("expected success after retry, got %v", err)
		}
		if len(p.calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(p.calls))
		}
	})

	t.Run("client error is final", func(t *testing.T) {
		r := testRouter()
		p := &scriptedProvider{errs: []error{&APIError{Status: 400}}}
		r.Register(CategoryOpenAI, p)

		_, err := r.Synthesize(context.Background(), "openai:nova", "hi")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != 400 {
			t.Fatalf("expected the 400 back, got %v", err)
		}
		if len(p.calls) != 1 {
			t.Fatalf("client errors must not be retried, got %d calls", len(p.calls))
		}
	})

	t.Run("gives up", func(t *testing.T) {
		r := testRouter()
		down := &APIError{Status: 502}
		p := &scriptedProvider{errs: []error{down, down, down}}
		r.Register(CategoryOpenAI, p)

		_, err := r.Synthesize(context.Background(), "openai:nova", "hi")
		if !errors.Is(err, retrylimit.ErrMaxAttempts) {
			t.Fatalf("expected ErrMaxAttempts, got %v", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	c := NewCatalog([]string{CategoryVoiceText, CategoryInm}, "openai:nova")

	if c.Default() != "voicetext:show" {
		t.Fatalf("unavailable default should fall back to first voice, got %q", c.Default())
	}
	if _, ok := c.Lookup("openai:nova"); ok {
		t.Fatal("voices of unconfigured providers must not be listed")
	}

	closed := Gates{}
	open := Gates{Inm: true}
	if c.Allowed("inm:clip", closed) || !c.Allowed("inm:clip", open) {
		t.Fatal("inm voice must follow the guild gate")
	}
	if len(c.Available(open)) != len(c.Available(closed))+1 {
		t.Fatal("gate should add exactly the inm voice")
	}

	if got := c.Resolve("voicetext:bear", closed); got != "voicetext:bear" {
		t.Fatalf("allowed choice should win, got %q", got)
	}
	if got := c.Resolve("inm:clip", closed); got != c.Default() {
		t.Fatalf("gated choice should fall back to default, got %q", got)
	}

	found := c.Search("HIK", closed, 5)
	if len(found) != 1 || found[0].ID != "voicetext:hikari" {
		t.Fatalf("unexpected search result: %+v", found)
	}
}
