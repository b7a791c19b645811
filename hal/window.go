package hal

import (
	"image"
	"sync"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// WindowConfig configures the desktop console window.
type WindowConfig struct {
	Title  string
	Width  int // framebuffer pixels, default 480
	Height int // framebuffer pixels, default 320
	Scale  int // window pixels per framebuffer pixel, default 2
}

// Window renders the machine console in a desktop window and feeds keyboard
// input back to the board. Console writes land in a pending buffer from the
// kernel goroutine; the ebiten update loop drains them into the terminal
// renderer so tinyterm only ever runs on one goroutine.
type Window struct {
	rx   RXInjector
	fb   *Framebuffer
	term *tinyterm.Terminal

	mu      sync.Mutex
	pending []byte

	closeOnce sync.Once
	closed    chan struct{}

	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	scale   int
	title   string
}

// NewWindow builds the window and its terminal renderer.
func NewWindow(cfg WindowConfig) *Window {
	if cfg.Width <= 0 {
		cfg.Width = 480
	}
	if cfg.Height <= 0 {
		cfg.Height = 320
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	if cfg.Title == "" {
		cfg.Title = "tern"
	}

	fb := NewFramebuffer(cfg.Width, cfg.Height)
	term := tinyterm.NewTerminal(newFBDisplay(fb))
	term.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	fb.ClearRGB(0, 0, 0)

	return &Window{
		fb:     fb,
		term:   term,
		closed: make(chan struct{}),
		scale:  cfg.Scale,
		title:  cfg.Title,
	}
}

// ConsoleWriter returns the sink the board's console output should go to.
func (w *Window) ConsoleWriter() *WindowWriter { return &WindowWriter{w: w} }

// FeedKeysTo routes keystrokes to a board. The window and the board each
// need the other, so input is wired after construction.
func (w *Window) FeedKeysTo(rx RXInjector) { w.rx = rx }

// WindowWriter queues console bytes for the next update frame.
type WindowWriter struct {
	w *Window
}

func (ww *WindowWriter) Write(p []byte) (int, error) {
	ww.w.mu.Lock()
	ww.w.pending = append(ww.w.pending, p...)
	ww.w.mu.Unlock()
	return len(p), nil
}

// Close asks the window to terminate. Safe to call more than once and from
// any goroutine.
func (w *Window) Close() {
	w.closeOnce.Do(func() { close(w.closed) })
}

// Show opens the window and blocks until it closes. Must run on the main
// goroutine; run the kernel elsewhere.
func (w *Window) Show() error {
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowSize(w.fb.Width()*w.scale, w.fb.Height()*w.scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(w)
}

// Update drains pending console output into the terminal and forwards
// keystrokes to the board.
func (w *Window) Update() error {
	select {
	case <-w.closed:
		return ebiten.Termination
	default:
	}

	w.mu.Lock()
	out := w.pending
	w.pending = nil
	w.mu.Unlock()
	if len(out) > 0 {
		w.term.Write(out)
	}

	w.pollKeys()
	return nil
}

// pollKeys translates this frame's keyboard input to console bytes.
func (w *Window) pollKeys() {
	if w.rx == nil {
		return
	}

	var buf []byte

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl {
		// Control chords arrive as raw control bytes, same as a serial line.
		emitCtrl := func(key ebiten.Key, b byte) {
			if inpututil.IsKeyJustPressed(key) {
				buf = append(buf, b)
			}
		}
		emitCtrl(ebiten.KeyC, 0x03)
		emitCtrl(ebiten.KeyD, 0x04)
		emitCtrl(ebiten.KeyL, 0x0C)
		emitCtrl(ebiten.KeyU, 0x15)
	} else {
		for _, r := range ebiten.AppendInputChars(nil) {
			buf = utf8.AppendRune(buf, r)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		buf = append(buf, '\n')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		buf = append(buf, 0x7F)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		buf = append(buf, '\t')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		buf = append(buf, 0x1B)
	}

	if len(buf) > 0 {
		w.rx.InjectRX(buf)
	}
}

// Draw converts the RGB565 framebuffer to RGBA and presents it.
func (w *Window) Draw(screen *ebiten.Image) {
	width, height := w.fb.Width(), w.fb.Height()
	if w.img == nil {
		w.img = image.NewRGBA(image.Rect(0, 0, width, height))
		w.scratch = make([]byte, w.fb.BufferLen())
		w.fbImg = ebiten.NewImage(width, height)
	}

	w.fb.SnapshotRGB565(w.scratch)

	src := w.scratch
	dst := w.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, g, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	w.fbImg.ReplacePixels(w.img.Pix)
	screen.DrawImage(w.fbImg, nil)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.fb.Width(), w.fb.Height()
}
