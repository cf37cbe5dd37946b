package monitor_test

import (
	"testing"

	"github.com/segvm/segvm/internal/monitor"
	"github.com/segvm/segvm/internal/vm"
)

func TestLoadToInstallsVectors(t *testing.T) {
	cpu := vm.New()

	img := monitor.NewSystemImage()
	if err := img.LoadTo(cpu); err != nil {
		t.Fatalf("LoadTo: %v", err)
	}

	for _, r := range img.Routines {
		vecAddr := cpu.Mem.IntTableBase() + vm.Word(r.Vector)*2

		got, err := cpu.Mem.Read16(vecAddr)
		if err != nil {
			t.Fatalf("Read16(%#04x): %v", vecAddr, err)
		}

		if got != r.Segment {
			t.Errorf("vector %#02x = %#04x, want %#04x", r.Vector, got, r.Segment)
		}
	}
}

func TestLoadToIsIdempotent(t *testing.T) {
	cpu := vm.New()
	img := monitor.NewSystemImage()

	if err := img.LoadTo(cpu); err != nil {
		t.Fatalf("first LoadTo: %v", err)
	}

	if err := img.LoadTo(cpu); err != nil {
		t.Fatalf("second LoadTo: %v", err)
	}
}

func TestWithDefaultSystemImageRunsLate(t *testing.T) {
	cpu := vm.New(monitor.WithDefaultSystemImage())

	vecAddr := cpu.Mem.IntTableBase() + vm.Word(monitor.ConsoleOutVector)*2

	got, err := cpu.Mem.Read16(vecAddr)
	if err != nil {
		t.Fatalf("Read16: %v", err)
	}

	if got == 0 {
		t.Error("console.out vector was not installed by WithDefaultSystemImage")
	}
}
