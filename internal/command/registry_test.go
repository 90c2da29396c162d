package command

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

func TestRegisterExposesDefinitions(t *testing.T) {
	reg := cmd.NewRegistry()
	Register(reg, zerolog.Nop())

	defs := core.Definitions(reg)
	if len(defs) != len(All()) {
		t.Fatalf("expected %d definitions, got %d", len(All()), len(defs))
	}
	seen := map[string]bool{}
	for _, d := range defs {
		if d.Name == "" || d.Description == "" {
			t.Fatalf("incomplete definition: %+v", d)
		}
		if len(d.Description) > 100 {
			t.Fatalf("description of %s exceeds the gateway limit", d.Name)
		}
		seen[d.Name] = true
	}
	for _, name := range []string{"join", "leave", "reconnect", "voice", "deny", "config", "vnick", "inm", "cookie"} {
		if !seen[name] {
			t.Fatalf("missing command %s", name)
		}
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("command %s not registered", name)
		}
	}
}
