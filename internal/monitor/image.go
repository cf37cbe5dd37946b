// Package monitor implements a small system monitor: a default set of
// interrupt service routines assembled from source and installed into the
// machine's interrupt table at construction, the way a BIOS or boot ROM
// would. Grounded on smoynes-elsie internal/monitor/image.go's SystemImage
// loader, re-targeted from LC-3 TRAP vectors and ObjectCode/asm.Operation to
// this machine's INT/interrupt-table mechanism and the new asm.Assembler.
package monitor

import (
	"fmt"
	"strings"

	"github.com/segvm/segvm/internal/asm"
	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/vm"
)

// Routine is one interrupt service routine: assembly source, the vector it
// answers, and the code-segment address it is loaded at (which also becomes
// the CS value written into the interrupt table, since IP starts at 0 on
// entry).
type Routine struct {
	Name    string
	Vector  byte
	Segment vm.Word
	Source  string
}

// SystemImage holds the set of routines to install before a machine runs.
type SystemImage struct {
	Routines []Routine

	log *log.Logger
}

// NewSystemImage returns the default monitor image: a console-output
// routine and a halt routine, at the vectors documented on ConsoleOutVector
// and HaltVector.
func NewSystemImage() *SystemImage {
	return &SystemImage{
		Routines: []Routine{ConsoleOut, Halt},
		log:      log.DefaultLogger(),
	}
}

// WithSystemImage installs image's routines once the machine's memory
// controller exists. Assembly or loading failures are logged, not
// returned -- OptionFn, per internal/vm/cpu.go, reports no error, so a
// built-in routine that fails to assemble is a programming error in this
// package, not a runtime condition a caller can recover from.
func WithSystemImage(image *SystemImage) vm.OptionFn {
	return func(cpu *vm.CPU, late bool) {
		if !late {
			return
		}

		if err := image.LoadTo(cpu); err != nil {
			image.log.Error("failed to load system image", "err", err)
		}
	}
}

// WithDefaultSystemImage installs NewSystemImage()'s routines.
func WithDefaultSystemImage() vm.OptionFn {
	return WithSystemImage(NewSystemImage())
}

// LoadTo assembles and loads every routine into cpu, then points the
// interrupt table's entry for each routine's vector at its segment.
func (img *SystemImage) LoadTo(cpu *vm.CPU) error {
	for _, r := range img.Routines {
		img.log.Debug("loading routine", "name", r.Name, "vector", r.Vector, "segment", r.Segment)

		a := asm.NewAssembler(r.Segment)

		if err := a.Assemble(strings.NewReader(r.Source)); err != nil {
			return fmt.Errorf("monitor: %s: %w", r.Name, err)
		}

		if err := a.LoadInto(cpu); err != nil {
			return fmt.Errorf("monitor: %s: %w", r.Name, err)
		}

		vecAddr := cpu.Mem.IntTableBase() + vm.Word(r.Vector)*2
		if err := cpu.Mem.Write16(vecAddr, r.Segment); err != nil {
			return fmt.Errorf("monitor: %s: vector: %w", r.Name, err)
		}
	}

	return nil
}
