package hal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	tty "github.com/mattn/go-tty"
)

// RunTTY puts the controlling terminal in raw mode and pumps keystrokes
// into the board until ctx ends. Raw mode means Ctrl-C arrives as byte 0x03
// for the kernel to turn into a signal instead of killing the host process.
// It blocks; run the kernel in another goroutine.
func RunTTY(ctx context.Context, board RXInjector) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("tty: %w", err)
	}
	defer t.Close()

	restore, err := t.Raw()
	if err != nil {
		return fmt.Errorf("tty: %w", err)
	}
	defer restore()

	// ReadRune has no cancellation, so the pump runs detached and dies
	// with the process. Closing the TTY on return unblocks it on most
	// platforms.
	go func() {
		var buf [utf8.UTFMax]byte
		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}
			// Terminals send CR for enter; the machine speaks LF.
			if r == '\r' {
				r = '\n'
			}
			n := utf8.EncodeRune(buf[:], r)
			board.InjectRX(buf[:n])
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// CRLFWriter rewrites bare LF to CR LF. Raw-mode terminals have output
// postprocessing off, so without this every line starts where the previous
// one ended.
type CRLFWriter struct {
	W io.Writer
}

func (c CRLFWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			n, err := c.W.Write(p)
			return written + n, err
		}
		if i > 0 {
			n, err := c.W.Write(p[:i])
			written += n
			if err != nil {
				return written, err
			}
		}
		if _, err := c.W.Write([]byte{'\r', '\n'}); err != nil {
			return written, err
		}
		written++
		p = p[i+1:]
	}
	return written, nil
}
