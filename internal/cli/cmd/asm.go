package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/segvm/segvm/internal/asm"
	"github.com/segvm/segvm/internal/cli"
	"github.com/segvm/segvm/internal/encoding"
	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/vm"
)

// Assembler is the command that translates source into a binary image.
//
//	segvm asm -o a.bin FILE.asm
func Assembler() cli.Command {
	return &assembler{output: "a.bin"}
}

type assembler struct {
	debug    bool
	compress bool
	origin   uint
	output   string
}

func (assembler) Description() string {
	return "assemble source into a binary image"
}

func (assembler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `asm [-o file.bin] [-origin addr] [-z] file.asm

Assemble source into a binary image.`)

	return err
}

func (a *assembler) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	fs.BoolVar(&a.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&a.compress, "z", false, "zlib-compress the output image")
	fs.UintVar(&a.origin, "origin", 0, "address the image loads at")
	fs.StringVar(&a.output, "o", "a.bin", "output `filename`")

	return fs
}

// Run assembles every source file in args, in order, into a single image.
func (a *assembler) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if a.debug {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) == 0 {
		logger.Error("asm: no source files given")
		return 1
	}

	asmblr := asm.NewAssembler(vm.Word(a.origin))

	for _, fn := range args {
		f, err := os.Open(fn)
		if err != nil {
			logger.Error("open failed", "file", fn, "err", err)
			return 1
		}

		err = asmblr.AssembleFile(fn, f)
		f.Close()

		if err != nil {
			logger.Error("assemble failed", "err", err)
			return 1
		}
	}

	img := &encoding.ImageEncoding{Data: asmblr.Bytes(), Compress: a.compress}

	b, err := img.MarshalBinary()
	if err != nil {
		logger.Error("encode failed", "err", err)
		return -1
	}

	out, err := os.Create(a.output)
	if err != nil {
		logger.Error("create failed", "out", a.output, "err", err)
		return -1
	}
	defer out.Close()

	wrote, err := out.Write(b)
	if err != nil {
		logger.Error("write failed", "out", a.output, "err", err)
		return -1
	}

	logger.Debug("assembled image", "out", a.output, "bytes", wrote, "origin", a.origin)

	return 0
}
