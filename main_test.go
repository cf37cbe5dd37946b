package main_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segvm/segvm/internal/asm"
	"github.com/segvm/segvm/internal/device"
	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/monitor"
	"github.com/segvm/segvm/internal/vm"
)

// timeout is how long to wait for the machine to stop running. It is very likely to take
// much less than this.
const timeout = 1 * time.Second

// TestMain assembles and runs a small program end to end, through the same
// asm/vm/monitor wiring the CLI uses, exercising interrupt dispatch against
// the default system image.
func TestMain(t *testing.T) {
	log.LogLevel.Set(log.Error)

	src := `
		mov h4000, ss   ; keep the stack clear of the code loaded at 0
		mov h5, cx
	label loop
		mov cx, ax
		add h30, ax
		int h20
		dec cx
		cmp h0, cx
		jne *loop
		int h21
	`

	a := asm.NewAssembler(0)
	if err := a.Assemble(strings.NewReader(src)); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	con := device.NewConsole(monitor.ConsolePort)

	machine := vm.New(monitor.WithDefaultSystemImage(), vm.WithDevice(con))

	if err := a.LoadInto(machine); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()

	if err := machine.Run(ctx); err != nil {
		t.Fatalf("run: %v, elapsed %s", err, time.Since(start))
	}

	t.Logf("test: ok, elapsed: %s", time.Since(start))

	if got := machine.Register(vm.CX); got != 0 {
		t.Errorf("CX = %d, want 0", got)
	}

	if machine.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", machine.ExitCode())
	}
}
