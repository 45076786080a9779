// Package console renders the pump label on a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/jpalmerr/pumpwatch"
)

// Display writes the current pump label to a terminal. On a TTY the label
// is coloured and rewritten in place; otherwise one plain line is written
// per change. Use [Display.Show] as a pumpwatch display callback.
type Display struct {
	out   io.Writer
	isTTY bool
	now   func() time.Time
	paint map[pumpwatch.Label]func(a ...interface{}) string

	mu    sync.Mutex
	last  pumpwatch.Label
	width int
}

// New creates a Display writing to out.
func New(out io.Writer) *Display {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return newDisplay(out, isTTY)
}

func newDisplay(out io.Writer, isTTY bool) *Display {
	d := &Display{
		out:   out,
		isTTY: isTTY,
		now:   time.Now,
		paint: make(map[pumpwatch.Label]func(a ...interface{}) string),
	}

	colours := map[pumpwatch.Label]*color.Color{
		pumpwatch.LabelError:   color.New(color.FgRed, color.Bold),
		pumpwatch.LabelPaused:  color.New(color.FgYellow, color.Bold),
		pumpwatch.LabelRunning: color.New(color.FgGreen, color.Bold),
		pumpwatch.LabelEnabled: color.New(color.FgCyan),
	}
	for label, c := range colours {
		if isTTY {
			// colour follows the display's writer, not stdout
			c.EnableColor()
			d.paint[label] = c.SprintFunc()
		} else {
			d.paint[label] = fmt.Sprint
		}
	}
	return d
}

// Show renders label. Repeats of the current label and [pumpwatch.LabelNone]
// are ignored.
func (d *Display) Show(label pumpwatch.Label) {
	if label == pumpwatch.LabelNone {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if label == d.last {
		return
	}
	d.last = label

	paint, ok := d.paint[label]
	if !ok {
		paint = fmt.Sprint
	}
	text := strings.ToUpper(label.String())

	if !d.isTTY {
		_, _ = fmt.Fprintf(d.out, "%s pump %s\n", d.now().Format(time.TimeOnly), text)
		return
	}

	// pad over the previous label so a shorter one leaves no residue
	pad := ""
	if n := d.width - len(text); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	d.width = len(text)
	_, _ = fmt.Fprintf(d.out, "\rpump: %s%s", paint(text), pad)
}

// Last returns the label most recently shown.
func (d *Display) Last() pumpwatch.Label {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == "" {
		return pumpwatch.LabelNone
	}
	return d.last
}

// Close ends an in-place line so later output starts on a fresh line.
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isTTY && d.last != "" {
		_, _ = fmt.Fprintln(d.out)
	}
}
