// Package device provides the two in-scope, concrete Device implementations
// this repo ships: a console output device and a file-backed storage
// device. Neither is imported by internal/vm; they are wired in by the CLI,
// the way spec.md keeps "external collaborators" out of the core. Grounded
// on smoynes-elsie internal/vm/kbd.go and disp.go's mutex-guarded
// register-pair device pattern, generalized away from their LC-3-specific
// KBSR/KBDR semantics.
package device

import (
	"sync"

	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/vm"
)

// Console is a single-port output device: Output appends the low byte of
// its value to an internal buffer and, if a Writer is attached, also writes
// it through immediately. Matches spec.md §8 scenario 6 exactly.
type Console struct {
	mut sync.Mutex

	port   vm.Word
	buffer []byte
	writer writer

	log *log.Logger
}

type writer interface {
	Write([]byte) (int, error)
}

// NewConsole constructs a Console answering the given port.
func NewConsole(port vm.Word) *Console {
	return &Console{port: port, log: log.DefaultLogger()}
}

// Attach wires a live writer (e.g. the terminal bridge in internal/tty) so
// output is echoed immediately, not only buffered.
func (c *Console) Attach(w writer) {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.writer = w
}

// Ports implements vm.Device.
func (c *Console) Ports() []vm.Word { return []vm.Word{c.port} }

// Input implements vm.Device; the console has no input.
func (c *Console) Input(vm.Word) (vm.Word, error) { return 0, nil }

// Output implements vm.Device: appends the low byte of value to the buffer.
func (c *Console) Output(_ vm.Word, value vm.Word) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	b := byte(value)
	c.buffer = append(c.buffer, b)

	if c.writer != nil {
		if _, err := c.writer.Write([]byte{b}); err != nil {
			return err
		}
	}

	return nil
}

// Buffer returns a copy of everything written so far.
func (c *Console) Buffer() []byte {
	c.mut.Lock()
	defer c.mut.Unlock()

	out := make([]byte, len(c.buffer))
	copy(out, c.buffer)

	return out
}
