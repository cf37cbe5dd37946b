package monitor

import "github.com/segvm/segvm/internal/vm"

// ConsolePort is the I/O port the default ConsoleOut routine writes
// through. Callers wiring up a device.Console are expected to answer this
// port, e.g. device.NewConsole(monitor.ConsolePort).
const ConsolePort vm.Word = 0x00F0

// Vector assignments for the default routines, chosen arbitrarily at 0x20
// and above to leave the first 32 vectors free for processor-defined
// exceptions, matching the convention of reserving the low vectors for
// faults rather than software interrupts.
const (
	ConsoleOutVector byte = 0x20
	HaltVector       byte = 0x21
)

const consoleOutSegment vm.Word = 0xF000

const haltSegment vm.Word = 0xF100

// ConsoleOut writes AX's low byte to ConsolePort and returns. Callers load
// the byte into AX and execute "int h20".
var ConsoleOut = Routine{
	Name:    "console.out",
	Vector:  ConsoleOutVector,
	Segment: consoleOutSegment,
	Source: `
		out h00f0, ax
		int h0
	`,
}

// Halt stops the machine with exit code 0. Callers execute "int h21".
var Halt = Routine{
	Name:    "halt",
	Vector:  HaltVector,
	Segment: haltSegment,
	Source: `
		hlt h0
	`,
}
