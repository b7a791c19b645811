package hal

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

// Console attachment modes.
const (
	ConsoleStdio  = "stdio"
	ConsoleTTY    = "tty"
	ConsoleWindow = "window"
)

// Spec describes a board loadout. It is what the -board flag points at.
type Spec struct {
	Name    string `yaml:"name"`
	ClockHz uint64 `yaml:"clock_hz"`
	TickHz  uint64 `yaml:"tick_hz"`
	Memory  string `yaml:"memory"`
	Console string `yaml:"console"`
}

// DefaultSpec mirrors the qemu-virt profile.
func DefaultSpec() Spec {
	return Spec{
		Name:    "virt",
		ClockHz: 12_500_000,
		TickHz:  100,
		Memory:  "128MB",
		Console: ConsoleStdio,
	}
}

// LoadSpec reads and validates a board spec file.
func LoadSpec(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("board spec: %w", err)
	}
	return ParseSpec(raw)
}

// ParseSpec decodes and validates YAML spec bytes.
func ParseSpec(raw []byte) (Spec, error) {
	s := DefaultSpec()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Spec{}, fmt.Errorf("board spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// EncodeSpec renders a spec back to YAML.
func EncodeSpec(s Spec) ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the spec for values the boards cannot honor.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("board spec: empty name")
	}
	if s.ClockHz < 1000 {
		return fmt.Errorf("board spec: clock_hz %d below 1kHz", s.ClockHz)
	}
	if s.TickHz == 0 || s.TickHz > 1000 {
		return fmt.Errorf("board spec: tick_hz %d outside 1..1000", s.TickHz)
	}
	if s.ClockHz%s.TickHz != 0 {
		return fmt.Errorf("board spec: clock_hz %d not divisible by tick_hz %d", s.ClockHz, s.TickHz)
	}
	if _, err := bytesize.Parse(s.Memory); err != nil {
		return fmt.Errorf("board spec: memory %q: %w", s.Memory, err)
	}
	switch s.Console {
	case ConsoleStdio, ConsoleTTY, ConsoleWindow:
	default:
		return fmt.Errorf("board spec: unknown console mode %q", s.Console)
	}
	return nil
}

// MemoryBytes parses the memory field. Call Validate first; a spec that
// passed validation cannot fail here.
func (s Spec) MemoryBytes() uint64 {
	b, err := bytesize.Parse(s.Memory)
	if err != nil {
		return 0
	}
	return uint64(b)
}

// MemoryString renders the memory budget in human units for banners.
func (s Spec) MemoryString() string {
	return bytesize.New(float64(s.MemoryBytes())).String()
}
