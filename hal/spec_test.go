package hal

import (
	"strings"
	"testing"
)

func TestParseSpecAppliesDefaults(t *testing.T) {
	s, err := ParseSpec([]byte("name: lab\n"))
	if err != nil {
		t.Fatalf("ParseSpec() error = %v", err)
	}
	if s.Name != "lab" {
		t.Fatalf("Name = %q, want %q", s.Name, "lab")
	}
	def := DefaultSpec()
	if s.ClockHz != def.ClockHz || s.TickHz != def.TickHz {
		t.Fatalf("clock = %d/%d, want defaults %d/%d", s.ClockHz, s.TickHz, def.ClockHz, def.TickHz)
	}
}

func TestParseSpecFull(t *testing.T) {
	raw := strings.Join([]string{
		"name: bench",
		"clock_hz: 10000000",
		"tick_hz: 200",
		"memory: 64MB",
		"console: tty",
	}, "\n")

	s, err := ParseSpec([]byte(raw))
	if err != nil {
		t.Fatalf("ParseSpec() error = %v", err)
	}
	if s.ClockHz != 10_000_000 || s.TickHz != 200 || s.Console != ConsoleTTY {
		t.Fatalf("spec = %+v, want bench values", s)
	}
	if got := s.MemoryBytes(); got != 64*1024*1024 {
		t.Fatalf("MemoryBytes() = %d, want %d", got, 64*1024*1024)
	}
}

func TestSpecValidate(t *testing.T) {
	tcs := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty name", func(s *Spec) { s.Name = "" }},
		{"slow clock", func(s *Spec) { s.ClockHz = 100 }},
		{"zero tick", func(s *Spec) { s.TickHz = 0 }},
		{"tick too fast", func(s *Spec) { s.TickHz = 2000 }},
		{"tick not dividing clock", func(s *Spec) { s.TickHz = 3 }},
		{"bad memory", func(s *Spec) { s.Memory = "lots" }},
		{"bad console", func(s *Spec) { s.Console = "teletype" }},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSpec()
			tc.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
		})
	}

	if err := DefaultSpec().Validate(); err != nil {
		t.Fatalf("Validate() on default spec error = %v", err)
	}
}

func TestEncodeSpecRoundTrip(t *testing.T) {
	want := DefaultSpec()
	raw, err := EncodeSpec(want)
	if err != nil {
		t.Fatalf("EncodeSpec() error = %v", err)
	}
	got, err := ParseSpec(raw)
	if err != nil {
		t.Fatalf("ParseSpec() error = %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}
