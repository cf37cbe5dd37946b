package asm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/segvm/segvm/internal/asm"
	"github.com/segvm/segvm/internal/vm"
)

func assemble(t *testing.T, src string) *asm.Assembler {
	t.Helper()

	a := asm.NewAssembler(0)
	if err := a.Assemble(strings.NewReader(src)); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	return a
}

func TestArithmetic(t *testing.T) {
	src := `
		mov h10, ax
		add h20, ax
		hlt
	`

	a := assemble(t, src)

	cpu := vm.New()
	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cpu.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := cpu.Register(vm.AX); got != 0x30 {
		t.Errorf("AX = %#x, want 0x30", got)
	}
}

func TestForwardLabelReference(t *testing.T) {
	src := `
		mov h5, cx
		jmp *body
	label skip
		hlt h1
	label body
		dec cx
		cmp h0, cx
		jne *body
		hlt h0
	`

	a := assemble(t, src)

	cpu := vm.New()
	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cpu.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := cpu.Register(vm.CX); got != 0 {
		t.Errorf("CX = %d, want 0", got)
	}

	if cpu.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0 (skip label should never execute)", cpu.ExitCode())
	}
}

func TestNewSegment(t *testing.T) {
	src := `
		h1000
	label   !handler
		mov h42, ax
		int h0
	`

	a := asm.NewAssembler(0x1000)
	if err := a.Assemble(strings.NewReader(src)); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if len(a.Bytes()) == 0 {
		t.Fatal("expected bytes emitted")
	}
}

func TestUnresolvedLabelIsError(t *testing.T) {
	src := `
		jmp *nowhere
		hlt
	`

	a := asm.NewAssembler(0)

	err := a.Assemble(strings.NewReader(src))

	var lerr *asm.LabelError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *LabelError", err)
	}
}

func TestUnknownMnemonic(t *testing.T) {
	a := asm.NewAssembler(0)

	err := a.Assemble(strings.NewReader("frobnicate ax\n"))

	var serr *asm.SyntaxError
	if !errors.As(err, &serr) || !errors.Is(serr, asm.ErrOpcode) {
		t.Fatalf("err = %v, want SyntaxError wrapping ErrOpcode", err)
	}
}

func TestMemoryOperand(t *testing.T) {
	src := `
		mov h7, &h40.b
		mov &h40.b, ax
		hlt
	`

	a := assemble(t, src)

	cpu := vm.New()
	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cpu.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := cpu.Register(vm.AX); got != 7 {
		t.Errorf("AX = %d, want 7", got)
	}
}

func TestPortOperand(t *testing.T) {
	src := `
		mov h41, ax
		out h1f40, ax
		hlt
	`

	a := assemble(t, src)

	dev := &echoDevice{port: 0x1f40}
	cpu := vm.New(vm.WithDevice(dev))

	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := cpu.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(dev.written) != 1 || dev.written[0] != 0x41 {
		t.Errorf("written = %v, want [0x41]", dev.written)
	}
}

type echoDevice struct {
	port    vm.Word
	written []vm.Word
}

func (d *echoDevice) Ports() []vm.Word { return []vm.Word{d.port} }

func (d *echoDevice) Input(vm.Word) (vm.Word, error) { return 0, nil }

func (d *echoDevice) Output(_ vm.Word, v vm.Word) error {
	d.written = append(d.written, v)
	return nil
}
