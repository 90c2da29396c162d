package cmd

import (
	"context"
	"testing"
)

type stubCommand struct {
	name string
	ran  *[]string
}

func (s stubCommand) Name() string        { return s.name }
func (s stubCommand) Description() string { return "stub" }
func (s stubCommand) Run(_ context.Context, _ *Invocation) error {
	*s.ran = append(*s.ran, s.name)
	return nil
}

func tag(label string, trace *[]string) Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation) error {
			*trace = append(*trace, label)
			return c.Run(ctx, inv)
		})
	}
}

func TestApplyOrderAndRoot(t *testing.T) {
	var trace []string
	base := stubCommand{name: "join", ran: &trace}
	wrapped := Apply(base, tag("inner", &trace), tag("outer", &trace))

	if err := wrapped.Run(context.Background(), &Invocation{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"outer", "inner", "join"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
	if wrapped.Name() != "join" {
		t.Fatalf("wrapped name = %q", wrapped.Name())
	}
	if _, ok := Root(wrapped).(stubCommand); !ok {
		t.Fatalf("Root did not reach the base command: %T", Root(wrapped))
	}
}

func TestRegistrySorted(t *testing.T) {
	var trace []string
	r := NewRegistry()
	r.Register(stubCommand{name: "voice", ran: &trace})
	r.Register(stubCommand{name: "deny", ran: &trace})
	r.Register(stubCommand{name: "join", ran: &trace})

	all := r.GetAll()
	if len(all) != 3 || all[0].Name() != "deny" || all[2].Name() != "voice" {
		t.Fatalf("unexpected order: %v", all)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("missing command found")
	}
}
