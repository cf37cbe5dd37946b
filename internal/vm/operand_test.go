package vm

import (
	"errors"
	"testing"
)

func TestDecodeOperandRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		want  Operand
	}{
		{"register", []byte{byte(TagRegister)<<4 | 0x3}, Operand{Tag: TagRegister, Value: 3}},
		{"imm4", []byte{byte(TagImm4)<<4 | 0xA}, Operand{Tag: TagImm4, Value: 0xA}},
		{"imm12", []byte{byte(TagImm12)<<4 | 0x5, 0xAB}, Operand{Tag: TagImm12, Value: 0xAB5}},
		{"memByte", []byte{byte(TagMemByte)<<4 | 0x1, 0x23}, Operand{Tag: TagMemByte, Value: 0x231}},
		{"memWord", []byte{byte(TagMemWord)<<4 | 0x2, 0x34}, Operand{Tag: TagMemWord, Value: 0x342}},
		{"imm20", []byte{byte(TagImm20)<<4 | 0x1, 0x23, 0x45}, Operand{Tag: TagImm20, Value: 0x45231}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			i := 0
			fetch := func() (byte, error) {
				b := c.bytes[i]
				i++
				return b, nil
			}

			got, err := decodeOperand(fetch)
			if err != nil {
				t.Fatalf("decodeOperand: %v", err)
			}

			if got != c.want {
				t.Errorf("decodeOperand = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestDecodeOperandInvalidTag(t *testing.T) {
	i := 0
	bytes := []byte{0xF0} // tag 0xF is unassigned
	fetch := func() (byte, error) {
		b := bytes[i]
		i++
		return b, nil
	}

	if _, err := decodeOperand(fetch); err == nil {
		t.Fatal("expected error decoding an invalid operand tag")
	}
}

func TestResolveAndAssignRegister(t *testing.T) {
	cpu := New()

	op := Operand{Tag: TagRegister, Value: U32(AX)}
	if err := cpu.Assign(op, 0x1234, TagRegister); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	got, err := cpu.Resolve(op)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got != 0x1234 {
		t.Errorf("Resolve = %#04x, want 0x1234", got)
	}
}

func TestAssignRejectsImmediateDestination(t *testing.T) {
	cpu := New()

	op := Operand{Tag: TagImm4, Value: 5}
	if err := cpu.Assign(op, 1, TagRegister, TagMemWord); err == nil {
		t.Fatal("expected error assigning to an immediate operand")
	}
}

func TestStackPushPopUnderflow(t *testing.T) {
	cpu := New()

	if _, err := cpu.Pop(); err == nil {
		t.Fatal("expected stack underflow error popping an empty stack")
	}

	if err := cpu.Push(0xBEEF); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := cpu.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}

	if got != 0xBEEF {
		t.Errorf("Pop = %#04x, want 0xBEEF", got)
	}

	if _, err := cpu.Pop(); err == nil {
		t.Fatal("expected stack underflow error popping past the last push")
	}
}

func TestInterruptUnconfiguredVectorIsError(t *testing.T) {
	cpu := New()

	if err := cpu.Mem.Write(0, byte(INT)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := cpu.Mem.Write(1, 0x07); err != nil {
		t.Fatalf("Write: %v", err)
	}

	err := cpu.Step()
	if err == nil {
		t.Fatal("expected error executing INT to an unconfigured vector")
	}

	var cpuErr *CPUError
	if !errors.As(err, &cpuErr) {
		t.Fatalf("err = %v, want *CPUError", err)
	}

	if cpuErr.Kind != KindInvalidInterrupt {
		t.Errorf("Kind = %v, want %v", cpuErr.Kind, KindInvalidInterrupt)
	}
}
