// Package tty bridges the console device to a real terminal: it puts the
// host terminal into raw mode so control bytes (newlines, backspace) pass
// through the way the console device expects, and supplies the io.Writer
// that device.Console.Attach wires up for live echo.
package tty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoTTY is returned if standard input is not a terminal. Grounded on
// smoynes-elsie internal/tty/tty.go's identically-named sentinel.
var ErrNoTTY = errors.New("console: not a TTY")

// Console adapts a raw terminal to an io.Writer, restoring the terminal's
// original mode on Restore. The console device (internal/device.Console)
// has no input side, so unlike smoynes-elsie's Console -- which bridged
// keystrokes into a keyboard device -- this bridge is output-only; raw
// mode is still required so the console's byte-at-a-time writes aren't
// mangled by the line discipline's own echo and cooking.
type Console struct {
	fd    int
	out   io.Writer
	state *term.State
}

// NewConsole puts in's terminal into raw mode and returns a Console that
// writes to out. Callers must call Restore to return the terminal to its
// original state.
func NewConsole(in, out *os.File) (*Console, error) {
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	c := &Console{fd: fd, out: out, state: saved}

	if err := c.disableLineBuffering(); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return c, nil
}

// disableLineBuffering sets VMIN/VTIME so a read of this terminal (should
// a future input-capable device ever need one) returns one byte at a time
// rather than waiting for a full line.
func (c *Console) disableLineBuffering() error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = 1
	termIO.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	return syscall.SetNonblock(c.fd, false)
}

// Write implements io.Writer, so a Console can be passed directly to
// device.Console.Attach.
func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// Restore returns the terminal to the mode it was in before NewConsole.
func (c *Console) Restore() {
	_ = os.Stdin.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

// WithConsole builds a Console over os.Stdin/os.Stdout, runs fn with it,
// and restores the terminal afterward regardless of how fn returns. If
// stdin is not a terminal -- redirected output, "go test", a pipe -- fn
// runs with a nil console so callers can still operate headlessly.
func WithConsole(ctx context.Context, fn func(ctx context.Context, console *Console) error) error {
	console, err := NewConsole(os.Stdin, os.Stdout)

	switch {
	case errors.Is(err, ErrNoTTY):
		return fn(ctx, nil)
	case err != nil:
		return err
	}

	defer console.Restore()

	return fn(ctx, console)
}
