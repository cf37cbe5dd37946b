package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/segvm/segvm/internal/cli"
	"github.com/segvm/segvm/internal/device"
	"github.com/segvm/segvm/internal/encoding"
	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/monitor"
	"github.com/segvm/segvm/internal/tty"
	"github.com/segvm/segvm/internal/vm"
)

// Executor is the "run" command: loads a binary image and executes it,
// wiring a console device (bridged to the host terminal, if one is
// attached) and, if -disk is given, a file-backed storage device.
func Executor() cli.Command {
	return &executor{log: log.DefaultLogger()}
}

type executor struct {
	logLevel slog.Level
	origin   uint
	timeout  time.Duration
	diskPath string

	log *log.Logger
}

func (executor) Description() string {
	return "run a program"
}

func (executor) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-origin addr] [-disk file] [-timeout dur] program.bin

Loads a binary image and runs it.`)

	return err
}

func (ex *executor) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return ex.logLevel.UnmarshalText([]byte(s))
	})
	fs.UintVar(&ex.origin, "origin", 0, "address the image loads at")
	fs.StringVar(&ex.diskPath, "disk", "", "backing `file` for the storage device, if any")
	fs.DurationVar(&ex.timeout, "timeout", 10*time.Second, "maximum run `duration`")

	return fs
}

const consolePort = monitor.ConsolePort

const (
	storagePagePort vm.Word = 0x00F1
	storageDataPort vm.Word = 0x00F2
)

// Run loads args[0] and executes it to completion, HLT, timeout, or error.
func (ex *executor) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	log.LogLevel.Set(ex.logLevel)

	if len(args) == 0 {
		logger.Error("run: no image file given")
		return 1
	}

	img, err := ex.loadImage(args[0])
	if err != nil {
		logger.Error("error loading image", "err", err)
		return -1
	}

	ctx, cancel := context.WithTimeout(ctx, ex.timeout)
	defer cancel()

	return ex.run(ctx, logger, img)
}

func (ex *executor) run(ctx context.Context, logger *log.Logger, img []byte) int {
	var exitCode int

	err := tty.WithConsole(ctx, func(ctx context.Context, console *tty.Console) error {
		con := device.NewConsole(consolePort)
		if console != nil {
			con.Attach(console)
		}

		opts := []vm.OptionFn{
			vm.WithLogger(logger),
			monitor.WithDefaultSystemImage(),
			vm.WithDevice(con),
		}

		if ex.diskPath != "" {
			disk, err := device.NewStorage(ex.diskPath, storagePagePort, storageDataPort)
			if err != nil {
				return err
			}

			opts = append(opts, vm.WithDevice(disk))
		}

		machine := vm.New(opts...)

		if err := machine.LoadImage(img, vm.Word(ex.origin)); err != nil {
			return err
		}

		logger.Info("starting machine")

		err := machine.Run(ctx)

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("run timeout")
			exitCode = 2

			return nil
		case err != nil:
			logger.Error(err.Error())
			exitCode = 2

			return nil
		default:
			logger.Info("program completed", "exit", machine.ExitCode())
			exitCode = int(machine.ExitCode())

			return nil
		}
	})
	if err != nil {
		logger.Error(err.Error())
		return 2
	}

	return exitCode
}

func (ex *executor) loadImage(fn string) ([]byte, error) {
	ex.log.Debug("loading image", "file", fn)

	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	img := &encoding.ImageEncoding{}
	if err := img.UnmarshalBinary(b); err != nil {
		return nil, err
	}

	ex.log.Debug("loaded image", "bytes", len(img.Data))

	return img.Data, nil
}
