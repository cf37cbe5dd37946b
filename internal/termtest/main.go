// Termtest is a testing tool for Unix terminal I/O. Lacking simple PTY support, running this tool
// manually is easier than writing automated tests. It puts the terminal into raw mode and writes a
// message through the console device every second for five seconds, so the operator can confirm
// raw-mode output isn't being mangled by the line discipline.
package main

import (
	"context"
	"time"

	"github.com/segvm/segvm/internal/device"
	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/tty"
)

var logger = log.DefaultLogger()

const consolePort = 0x00F0

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := tty.WithConsole(ctx, func(ctx context.Context, console *tty.Console) error {
		if console == nil {
			logger.Error("stdin is not a terminal")
			return tty.ErrNoTTY
		}

		dev := device.NewConsole(consolePort)
		dev.Attach(console)

		logger.Info("Writing to console. Watch for mangled output.")

		tick := time.NewTicker(time.Second)
		defer tick.Stop()

		for {
			select {
			case <-tick.C:
				if err := dev.Output(consolePort, 'A'); err != nil {
					return err
				}

				if err := dev.Output(consolePort, '\r'); err != nil {
					return err
				}

				if err := dev.Output(consolePort, '\n'); err != nil {
					return err
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err != nil {
		logger.Error(err.Error())
	}
}
