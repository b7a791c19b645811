package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tern/hal"
	"tern/internal/buildinfo"
	"tern/kern"
	"tern/progs"
)

func main() {
	var (
		boardPath = flag.String("board", "", "Board spec YAML; empty uses the builtin virt profile.")
		console   = flag.String("console", "", "Console override: stdio, tty or window.")
		turbo     = flag.Bool("turbo", false, "Run on the simulated clock instead of wall time.")
		runList   = flag.String("run", "philosophers", "Comma-separated programs to boot.")
		list      = flag.Bool("list", false, "List available programs and exit.")
		logLevel  = flag.String("log", "info", "Log level: trace, debug, info, warn or error.")
	)
	flag.Parse()

	if *list {
		for _, e := range progs.Entries() {
			fmt.Printf("%-14s %s\n", e.Name, e.Desc)
		}
		return
	}

	if err := run(*boardPath, *console, *runList, *logLevel, *turbo); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(boardPath, console, runList, logLevel string, turbo bool) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("bad -log value: %w", err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(colorable.NewColorableStderr())

	spec := hal.DefaultSpec()
	if boardPath != "" {
		if spec, err = hal.LoadSpec(boardPath); err != nil {
			return err
		}
	}
	if console != "" {
		spec.Console = console
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	var entries []progs.Entry
	for _, name := range strings.Split(runList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		e, ok := progs.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown program %q, try -list", name)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return errors.New("nothing to run, try -list")
	}

	logger.WithFields(logrus.Fields{
		"version": buildinfo.Short(),
		"board":   spec.Name,
		"console": spec.Console,
		"turbo":   turbo,
	}).Info("tern booting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch spec.Console {
	case hal.ConsoleWindow:
		return runWindow(ctx, spec, turbo, logger, entries)
	case hal.ConsoleTTY:
		return runTTY(ctx, spec, turbo, logger, entries)
	default:
		return runStdio(ctx, spec, turbo, logger, entries)
	}
}

// newBoard builds the machine the spec asks for: the deterministic virt
// board in turbo mode, the wall-clock host board otherwise. Console TX
// goes to tx either way.
func newBoard(spec hal.Spec, turbo bool, tx io.Writer) (hal.Board, hal.RXInjector) {
	if turbo {
		b := hal.NewVirtBoard(hal.VirtConfig{Spec: spec, TX: tx})
		return b, b
	}
	b := hal.NewHostBoard(hal.HostConfig{Spec: spec, Console: tx})
	return b, b
}

func newKernel(board hal.Board, spec hal.Spec, logger *logrus.Logger, entries []progs.Entry) *kern.Kernel {
	k := kern.New(board, kern.Config{
		Logger:      logger,
		TickHz:      spec.TickHz,
		MemoryBytes: spec.MemoryBytes(),
	})
	for _, e := range entries {
		k.Spawn(e.Name, e.Main)
	}
	return k
}

// runStdio runs the kernel on the calling goroutine with the host
// terminal's cooked stdin pumped into the console. Ctrl-C stays a host
// signal here; raw-mode byte delivery needs -console tty.
func runStdio(ctx context.Context, spec hal.Spec, turbo bool, logger *logrus.Logger, entries []progs.Entry) error {
	board, rx := newBoard(spec, turbo, os.Stdout)
	k := newKernel(board, spec, logger, entries)
	go pumpStdin(ctx, rx)
	return ignoreCanceled(k.Run(ctx))
}

// runTTY is runStdio with the terminal in raw mode: keystrokes reach the
// machine unbuffered and Ctrl-C arrives as byte 0x03 for the kernel to
// deal with.
func runTTY(ctx context.Context, spec hal.Spec, turbo bool, logger *logrus.Logger, entries []progs.Entry) error {
	board, rx := newBoard(spec, turbo, hal.CRLFWriter{W: os.Stdout})
	k := newKernel(board, spec, logger, entries)

	kctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := new(errgroup.Group)
	g.Go(func() error {
		defer cancel()
		return ignoreCanceled(k.Run(kctx))
	})
	g.Go(func() error {
		return ignoreCanceled(hal.RunTTY(kctx, rx))
	})
	return g.Wait()
}

// runWindow shows the console in a desktop window. The window must own
// the main goroutine, so the kernel moves to a worker; whichever side
// finishes first shuts the other down.
func runWindow(ctx context.Context, spec hal.Spec, turbo bool, logger *logrus.Logger, entries []progs.Entry) error {
	win := hal.NewWindow(hal.WindowConfig{Title: "tern " + buildinfo.Short()})
	board, rx := newBoard(spec, turbo, win.ConsoleWriter())
	win.FeedKeysTo(rx)
	k := newKernel(board, spec, logger, entries)

	kctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := new(errgroup.Group)
	g.Go(func() error {
		defer win.Close()
		return ignoreCanceled(k.Run(kctx))
	})
	go func() {
		<-kctx.Done()
		win.Close()
	}()

	err := win.Show()
	cancel()
	if gerr := g.Wait(); gerr != nil {
		return gerr
	}
	return err
}

// pumpStdin copies host stdin into the machine console. EOF turns into a
// ctrl-d byte so line-oriented programs see a session end.
func pumpStdin(ctx context.Context, rx hal.RXInjector) {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			rx.InjectRX(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			rx.InjectRX([]byte{0x04})
			return
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
