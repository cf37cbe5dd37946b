// Package tty_test tries to test ttys.
//
// The test is skipped when stdin is not a terminal (ErrNoTTY). Notably, this includes when run with
// "go test" because it redirects tests' standard input/output streams. You can test it by building
// a test binary and running it directly:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"context"
	"errors"
	"testing"

	"github.com/segvm/segvm/internal/device"
	"github.com/segvm/segvm/internal/tty"
)

func TestConsoleWritesThroughToTerminal(t *testing.T) {
	err := tty.WithConsole(context.Background(), func(_ context.Context, console *tty.Console) error {
		if console == nil {
			return tty.ErrNoTTY
		}

		dev := device.NewConsole(0x00F0)
		dev.Attach(console)

		if err := dev.Output(0x00F0, 'x'); err != nil {
			t.Errorf("output: %v", err)
		}

		return nil
	})

	if errors.Is(err, tty.ErrNoTTY) {
		t.Skip("stdin is not a terminal")
	}

	if err != nil {
		t.Fatalf("WithConsole: %v", err)
	}
}

func TestHeadlessFallback(t *testing.T) {
	// WithConsole must not error when stdin isn't a terminal -- this is
	// exactly the condition "go test" always runs under.
	var ran bool

	err := tty.WithConsole(context.Background(), func(_ context.Context, console *tty.Console) error {
		ran = true

		if console != nil {
			t.Error("expected a nil console under go test's redirected stdin")
		}

		return nil
	})
	if err != nil {
		t.Fatalf("WithConsole: %v", err)
	}

	if !ran {
		t.Fatal("fn never ran")
	}
}
