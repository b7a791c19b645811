package main

import (
	"flag"
	"fmt"
	"os"

	"tern/hal"
)

func main() {
	var (
		outPath = flag.String("out", "board.yaml", "Output spec path.")
		check   = flag.String("check", "", "Validate an existing spec instead of writing one.")
		name    = flag.String("name", "", "Board name.")
		clock   = flag.Uint64("clock", 0, "Clock rate in Hz.")
		tick    = flag.Uint64("tick", 0, "Preemption tick rate in Hz.")
		memory  = flag.String("memory", "", "Memory budget, e.g. 128MB.")
		console = flag.String("console", "", "Console mode: stdio, tty or window.")
	)
	flag.Parse()

	if *check != "" {
		if err := runCheck(*check); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if err := runEmit(*outPath, *name, *clock, *tick, *memory, *console); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCheck(path string) error {
	s, err := hal.LoadSpec(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%s, clock %dHz, tick %dHz, %s, %s console)\n",
		path, s.Name, s.ClockHz, s.TickHz, s.MemoryString(), s.Console)
	return nil
}

func runEmit(path, name string, clock, tick uint64, memory, console string) error {
	s := hal.DefaultSpec()
	if name != "" {
		s.Name = name
	}
	if clock != 0 {
		s.ClockHz = clock
	}
	if tick != 0 {
		s.TickHz = tick
	}
	if memory != "" {
		s.Memory = memory
	}
	if console != "" {
		s.Console = console
	}
	if err := s.Validate(); err != nil {
		return err
	}

	raw, err := hal.EncodeSpec(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
