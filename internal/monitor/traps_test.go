package monitor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segvm/segvm/internal/asm"
	"github.com/segvm/segvm/internal/device"
	"github.com/segvm/segvm/internal/monitor"
	"github.com/segvm/segvm/internal/vm"
)

func TestConsoleOutRoutineWritesThroughToDevice(t *testing.T) {
	src := `
		mov h41, ax
		int h20
		int h21
	`

	a := asm.NewAssembler(0)
	if err := a.Assemble(strings.NewReader(src)); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	con := device.NewConsole(monitor.ConsolePort)

	cpu := vm.New(monitor.WithDefaultSystemImage(), vm.WithDevice(con))

	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := cpu.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := con.Buffer(); len(got) != 1 || got[0] != 'A' {
		t.Errorf("console buffer = %q, want %q", got, "A")
	}
}

func TestHaltRoutineSetsExitCode(t *testing.T) {
	src := `int h21`

	a := asm.NewAssembler(0)
	if err := a.Assemble(strings.NewReader(src)); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	cpu := vm.New(monitor.WithDefaultSystemImage())

	if err := a.LoadInto(cpu); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := cpu.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if cpu.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", cpu.ExitCode())
	}
}
