package vm

import (
	"context"
	"errors"

	"github.com/segvm/segvm/internal/log"
)

// CPU ties the memory controller, the register file, FLAGS, and the opcode
// dispatch table together. It is the sole type external callers construct.
// Grounded on smoynes-elsie internal/vm/vm.go's LC3 struct and
// New(opts ...OptionFn) two-phase construction pattern.
type CPU struct {
	Reg   RegisterFile
	Flags Flags
	Mem   *MemoryController

	running    bool
	exitCode   U8
	breakpoint *Word

	log *log.Logger
}

// OptionFn configures a CPU at construction. New calls every option twice:
// first with late=false, before the memory controller and default data
// blocks exist, then with late=true, after, so an option acting in the late
// call may register devices or load images. This mirrors smoynes-elsie's
// (machine, late bool) signature exactly.
type OptionFn func(cpu *CPU, late bool)

// New constructs a CPU, running early options, installing the default
// memory layout, then running late options.
func New(opts ...OptionFn) *CPU {
	cpu := &CPU{
		log: log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(cpu, false)
	}

	if cpu.Mem == nil {
		cpu.Mem = NewMemoryController()

		for block := Word(0); block <= 0xE; block += 2 {
			if block == IOBlock {
				continue
			}

			cpu.Mem.AddMap(block, NewMemoryMap(0x2000))
		}
	}

	for _, opt := range opts {
		opt(cpu, true)
	}

	return cpu
}

// WithLogger sets the CPU's logger. The memory controller and devices are
// not given it.
func WithLogger(logger *log.Logger) OptionFn {
	return func(cpu *CPU, late bool) {
		if !late {
			cpu.log = logger
		}
	}
}

// WithController overrides the default memory controller, for callers that
// need a nonstandard size or bank layout.
func WithController(mem *MemoryController) OptionFn {
	return func(cpu *CPU, late bool) {
		if !late {
			cpu.Mem = mem
		}
	}
}

// WithDevice registers a device with the controller's IOMap once it exists.
func WithDevice(dev Device) OptionFn {
	return func(cpu *CPU, late bool) {
		if late {
			cpu.Mem.IOMap().Register(dev)
		}
	}
}

// WithBreakpoint installs a fetch breakpoint at the given linear address.
func WithBreakpoint(addr Word) OptionFn {
	return func(cpu *CPU, late bool) {
		if late {
			a := addr
			cpu.breakpoint = &a
		}
	}
}

// SetRegister assigns w to register g.
func (cpu *CPU) SetRegister(g GPR, w Word) {
	cpu.Reg.Set(g, w)
}

// Register returns the current value of register g.
func (cpu *CPU) Register(g GPR) Word {
	return cpu.Reg.Get(g)
}

// ClearRegisters zeroes every register not named in persistent.
func (cpu *CPU) ClearRegisters(persistent ...GPR) {
	cpu.Reg.Clear(persistent...)
}

// ExitCode returns the code HLT stopped the machine with.
func (cpu *CPU) ExitCode() U8 { return cpu.exitCode }

// SetBreakpoint installs or clears (addr == nil) a fetch breakpoint.
func (cpu *CPU) SetBreakpoint(addr *Word) {
	cpu.breakpoint = addr
}

// linearAddr forms seg+offset using 16-bit wraparound addition: there is
// deliberately no shift, a segment is just a base pointer.
func linearAddr(seg, offset Word) Word {
	return seg + offset
}

// Push writes w at SS:SP and advances SP by 2.
func (cpu *CPU) Push(w Word) error {
	addr := linearAddr(cpu.Reg.Get(SS), cpu.Reg.Get(SP))
	if err := cpu.Mem.Write16(addr, w); err != nil {
		return err
	}

	cpu.Reg.Set(SP, cpu.Reg.Get(SP)+2)

	return nil
}

// Pop retreats SP by 2 and reads the word at SS:SP. SP would underflow if it
// is already 0 or 1; that is a CPUError.
func (cpu *CPU) Pop() (Word, error) {
	sp := cpu.Reg.Get(SP)
	if sp < 2 {
		return 0, &CPUError{Kind: KindBounds, Msg: "stack underflow"}
	}

	cpu.Reg.Set(SP, sp-2)
	addr := linearAddr(cpu.Reg.Get(SS), cpu.Reg.Get(SP))

	return cpu.Mem.Read16(addr)
}

// Run clears registers (except persistent), then executes Step in a loop
// until HLT, a breakpoint, a CPUError/MemoryError, or ctx is done. Device
// Stop hooks run unconditionally on the way out.
func (cpu *CPU) Run(ctx context.Context, persistent ...GPR) error {
	cpu.ClearRegisters(persistent...)
	cpu.running = true

	for _, dev := range cpu.Mem.IOMap().Devices() {
		if lc, ok := dev.(Lifecycle); ok {
			if err := lc.Start(); err != nil {
				return err
			}
		}
	}

	defer func() {
		for _, dev := range cpu.Mem.IOMap().Devices() {
			if lc, ok := dev.(Lifecycle); ok {
				_ = lc.Stop()
			}
		}
	}()

	var err error

	for cpu.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if cpu.breakpoint != nil {
			if linearAddr(cpu.Reg.Get(CS), cpu.Reg.Get(IP)) == *cpu.breakpoint {
				cpu.log.Debug("breakpoint hit", "addr", *cpu.breakpoint)
				return nil
			}
		}

		if err = cpu.Step(); err != nil {
			if errors.Is(err, errHalt) {
				return nil
			}

			return err
		}
	}

	return nil
}

// errHalt is a sentinel signalling a clean HLT, not a fault.
var errHalt = errors.New("vm: halt")
