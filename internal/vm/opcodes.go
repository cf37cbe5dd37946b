package vm

import "fmt"

//go:generate go run golang.org/x/tools/cmd/stringer -type Opcode -output opcode_string.go

// Opcode identifies an instruction. Values and mnemonics are the final
// generation found in original_source/simple_cpu/cpu.py's get_value/process
// dispatch; the earlier get_xop/run_old generation and its SWP opcode are
// not implemented (spec §9, Open questions).
type Opcode byte

const (
	NOP   Opcode = 0x00
	INT   Opcode = 0x01 // also RET-from-interrupt/call when operand is 0
	MOV   Opcode = 0x02
	IN    Opcode = 0x03
	OUT   Opcode = 0x04
	HLT   Opcode = 0x05
	JMP   Opcode = 0x06
	PUSH  Opcode = 0x07
	POP   Opcode = 0x08
	CALL  Opcode = 0x09
	INC   Opcode = 0x0A
	DEC   Opcode = 0x0B
	ADD   Opcode = 0x0C
	SUB   Opcode = 0x0D
	TEST  Opcode = 0x0E
	JE    Opcode = 0x0F
	JNE   Opcode = 0x10
	CMP   Opcode = 0x11
	MUL   Opcode = 0x12
	DIV   Opcode = 0x13
	PUSHF Opcode = 0x14
	POPF  Opcode = 0x15
	AND   Opcode = 0x16
	OR    Opcode = 0x17
	XOR   Opcode = 0x18
	NOT   Opcode = 0x19
	RET   Opcode = 0x1A
)

// opHandler executes one decoded instruction. It returns true if it wrote IP
// itself (JMP/CALL/JE-taken/JNE-taken/INT/RET); otherwise the dispatch loop
// advances IP to the post-fetch cursor.
type opHandler func(cpu *CPU) (wroteIP bool, err error)

// dispatch is the static opcode -> handler table, built once; an opcode
// outside the table is CPUError(KindInvalidOpcode). Grounded on spec §9's
// "reflection-style opcode lookup -> static dispatch table" design note.
var dispatch = [0x1B]opHandler{
	NOP:   opNOP,
	INT:   opINT,
	MOV:   opMOV,
	IN:    opIN,
	OUT:   opOUT,
	HLT:   opHLT,
	JMP:   opJMP,
	PUSH:  opPUSH,
	POP:   opPOP,
	CALL:  opCALL,
	INC:   opINC,
	DEC:   opDEC,
	ADD:   opADD,
	SUB:   opSUB,
	TEST:  opTEST,
	JE:    opJE,
	JNE:   opJNE,
	CMP:   opCMP,
	MUL:   opMUL,
	DIV:   opDIV,
	PUSHF: opPUSHF,
	POPF:  opPOPF,
	AND:   opAND,
	OR:    opOR,
	XOR:   opXOR,
	NOT:   opNOT,
	RET:   opRET,
}

func (cpu *CPU) fetch() (byte, error) { return cpu.Mem.Fetch() }

// nextIP reconstructs the offset, within CS, of the byte immediately
// following everything fetched so far this instruction. INT and CALL push
// this as their return address rather than the pre-fetch IP, so RET resumes
// after the call instead of re-executing it.
func (cpu *CPU) nextIP() (Word, error) {
	addr, err := cpu.Mem.ActiveAddr()
	if err != nil {
		return 0, err
	}

	return addr - cpu.Reg.Get(CS), nil
}

func (cpu *CPU) fetchWord() (Word, error) {
	lo, err := cpu.fetch()
	if err != nil {
		return 0, err
	}

	hi, err := cpu.fetch()
	if err != nil {
		return 0, err
	}

	return Unpack(lo, hi), nil
}

func (cpu *CPU) fetchOperand() (Operand, error) {
	return decodeOperand(cpu.fetch)
}

func (cpu *CPU) fetchRegOperand() (GPR, error) {
	b, err := cpu.fetch()
	if err != nil {
		return 0, err
	}

	return GPR(b), nil
}

func opNOP(cpu *CPU) (bool, error) { return false, nil }

func opINT(cpu *CPU) (bool, error) {
	b, err := cpu.fetch()
	if err != nil {
		return false, err
	}

	vector := U8(b)

	if vector != 0 {
		retIP, err := cpu.nextIP()
		if err != nil {
			return false, err
		}

		if err := cpu.Push(cpu.Reg.Get(CS)); err != nil {
			return false, err
		}

		if err := cpu.Push(retIP); err != nil {
			return false, err
		}

		vecAddr := cpu.Mem.IntTableBase() + Word(vector)*2

		newCS, err := cpu.Mem.Read16(vecAddr)
		if err != nil {
			return false, err
		}

		if newCS == 0 {
			return false, &CPUError{
				Kind: KindInvalidInterrupt,
				Msg:  fmt.Sprintf("vector %d unconfigured", vector),
			}
		}

		cpu.Reg.Set(CS, newCS)
		cpu.Reg.Set(IP, 0)

		return true, nil
	}

	ip, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cs, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(IP, ip)
	cpu.Reg.Set(CS, cs)

	return true, nil
}

func opMOV(cpu *CPU) (bool, error) {
	src, err := cpu.fetchOperand()
	if err != nil {
		return false, err
	}

	dst, err := cpu.fetchOperand()
	if err != nil {
		return false, err
	}

	value, err := cpu.Resolve(src)
	if err != nil {
		return false, err
	}

	return false, cpu.Assign(dst, value, TagRegister, TagMemByte, TagMemWord)
}

func opIN(cpu *CPU) (bool, error) {
	port, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	dstWord, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	value, err := cpu.Mem.IOMap().In(port)
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(GPR(dstWord), value)

	return false, nil
}

func opOUT(cpu *CPU) (bool, error) {
	port, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	srcWord, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	return false, cpu.Mem.IOMap().Out(port, cpu.Reg.Get(GPR(srcWord)))
}

func opHLT(cpu *CPU) (bool, error) {
	cpu.running = false

	if b, err := cpu.fetch(); err == nil {
		cpu.exitCode = U8(b)
	} else {
		cpu.exitCode = 0
	}

	return true, errHalt
}

func opJMP(cpu *CPU) (bool, error) {
	addr, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(IP, addr)

	return true, nil
}

func opPUSH(cpu *CPU) (bool, error) {
	reg, err := cpu.fetchRegOperand()
	if err != nil {
		return false, err
	}

	return false, cpu.Push(cpu.Reg.Get(reg))
}

func opPOP(cpu *CPU) (bool, error) {
	reg, err := cpu.fetchRegOperand()
	if err != nil {
		return false, err
	}

	value, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(reg, value)

	return false, nil
}

func opCALL(cpu *CPU) (bool, error) {
	addr, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	retIP, err := cpu.nextIP()
	if err != nil {
		return false, err
	}

	if err := cpu.Push(cpu.Reg.Get(CS)); err != nil {
		return false, err
	}

	if err := cpu.Push(retIP); err != nil {
		return false, err
	}

	cpu.Reg.Set(IP, addr)

	return true, nil
}

func notIP(reg GPR) error {
	if reg == IP {
		return &CPUError{Kind: KindInvalidOpcode, Msg: "IP is not a legal operand"}
	}

	return nil
}

func opINC(cpu *CPU) (bool, error) {
	reg, err := cpu.fetchRegOperand()
	if err != nil {
		return false, err
	}

	if err := notIP(reg); err != nil {
		return false, err
	}

	cpu.Reg.Set(reg, cpu.Reg.Get(reg)+1)

	return false, nil
}

func opDEC(cpu *CPU) (bool, error) {
	reg, err := cpu.fetchRegOperand()
	if err != nil {
		return false, err
	}

	if err := notIP(reg); err != nil {
		return false, err
	}

	cpu.Reg.Set(reg, cpu.Reg.Get(reg)-1)

	return false, nil
}

// regDst decodes a two-operand instruction's src and dst, requiring dst to
// be a register (per the ADD/SUB/MUL/DIV/AND/OR/XOR/NOT family).
func (cpu *CPU) regDst() (srcVal Word, dst GPR, err error) {
	src, err := cpu.fetchOperand()
	if err != nil {
		return 0, 0, err
	}

	dstOp, err := cpu.fetchOperand()
	if err != nil {
		return 0, 0, err
	}

	if dstOp.Tag != TagRegister {
		return 0, 0, &CPUError{Kind: KindInvalidOpcode, Msg: "destination must be a register"}
	}

	srcVal, err = cpu.Resolve(src)
	if err != nil {
		return 0, 0, err
	}

	return srcVal, GPR(dstOp.Value), nil
}

func opADD(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)+src)

	return false, nil
}

func opSUB(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)-src)

	return false, nil
}

// twoValues decodes a comparison instruction's two operands without
// requiring either to be a register.
func (cpu *CPU) twoValues() (a, b Word, err error) {
	aOp, err := cpu.fetchOperand()
	if err != nil {
		return 0, 0, err
	}

	bOp, err := cpu.fetchOperand()
	if err != nil {
		return 0, 0, err
	}

	a, err = cpu.Resolve(aOp)
	if err != nil {
		return 0, 0, err
	}

	b, err = cpu.Resolve(bOp)
	if err != nil {
		return 0, 0, err
	}

	return a, b, nil
}

func opTEST(cpu *CPU) (bool, error) {
	a, b, err := cpu.twoValues()
	if err != nil {
		return false, err
	}

	cpu.Flags.SetZero(a == b)

	return false, nil
}

func jumpIf(cpu *CPU, cond bool) (bool, error) {
	addr, err := cpu.fetchWord()
	if err != nil {
		return false, err
	}

	if cond {
		cpu.Reg.Set(IP, addr)
		return true, nil
	}

	return false, nil
}

func opJE(cpu *CPU) (bool, error)  { return jumpIf(cpu, cpu.Flags.Zero()) }
func opJNE(cpu *CPU) (bool, error) { return jumpIf(cpu, !cpu.Flags.Zero()) }

func opCMP(cpu *CPU) (bool, error) {
	a, b, err := cpu.twoValues()
	if err != nil {
		return false, err
	}

	cpu.Flags.SetZero(a-b == 0)

	return false, nil
}

func opMUL(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)*src)

	return false, nil
}

func opDIV(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	if src == 0 {
		return false, &CPUError{Kind: KindArithmetic, Msg: "division by zero"}
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)/src)

	return false, nil
}

func opPUSHF(cpu *CPU) (bool, error) {
	return false, cpu.Push(Word(cpu.Flags))
}

func opPOPF(cpu *CPU) (bool, error) {
	value, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cpu.Flags = Flags(U8(value))

	return false, nil
}

func opAND(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)&src)

	return false, nil
}

func opOR(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)|src)

	return false, nil
}

func opXOR(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)^src)

	return false, nil
}

func opNOT(cpu *CPU) (bool, error) {
	src, dst, err := cpu.regDst()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(dst, cpu.Reg.Get(dst)&^src)

	return false, nil
}

func opRET(cpu *CPU) (bool, error) {
	ip, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cs, err := cpu.Pop()
	if err != nil {
		return false, err
	}

	cpu.Reg.Set(IP, ip)
	cpu.Reg.Set(CS, cs)

	return true, nil
}
