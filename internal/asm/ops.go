package asm

import (
	"strconv"
	"strings"

	"github.com/segvm/segvm/internal/vm"
)

// family names the encoding shape a mnemonic's operands take, per spec §4.6.
type family uint8

const (
	famZero   family = iota // single opcode byte: NOP, RET, PUSHF, POPF
	famHalt                 // opcode + optional literal byte (exit code): HLT
	famByte                 // opcode + optional operand byte, default 0: INT, PUSH, POP, INC, DEC
	famWord                 // opcode + one 16-bit operand (address): JMP, CALL, JE, JNE
	famPort                 // opcode + two 16-bit operands (port, reg): IN, OUT
	famTwoOp                // opcode + two typed-nibble operands: MOV, ADD, SUB, ...
)

type mnemonic struct {
	op     vm.Opcode
	fam    family
	regDst bool // famTwoOp only: second operand must be a register
}

// mnemonics is the complete table of opcodes 0x00-0x1A, keyed by the
// upper-cased surface syntax name. Grounded on spec §4.4's opcode table and
// internal/vm/opcodes.go's dispatch table -- the two must agree exactly.
var mnemonics = map[string]mnemonic{
	"NOP":   {vm.NOP, famZero, false},
	"INT":   {vm.INT, famByte, false},
	"MOV":   {vm.MOV, famTwoOp, false},
	"IN":    {vm.IN, famPort, false},
	"OUT":   {vm.OUT, famPort, false},
	"HLT":   {vm.HLT, famHalt, false},
	"JMP":   {vm.JMP, famWord, false},
	"PUSH":  {vm.PUSH, famByte, false},
	"POP":   {vm.POP, famByte, false},
	"CALL":  {vm.CALL, famWord, false},
	"INC":   {vm.INC, famByte, false},
	"DEC":   {vm.DEC, famByte, false},
	"ADD":   {vm.ADD, famTwoOp, true},
	"SUB":   {vm.SUB, famTwoOp, true},
	"TEST":  {vm.TEST, famTwoOp, false},
	"JE":    {vm.JE, famWord, false},
	"JNE":   {vm.JNE, famWord, false},
	"CMP":   {vm.CMP, famTwoOp, false},
	"MUL":   {vm.MUL, famTwoOp, true},
	"DIV":   {vm.DIV, famTwoOp, true},
	"PUSHF": {vm.PUSHF, famZero, false},
	"POPF":  {vm.POPF, famZero, false},
	"AND":   {vm.AND, famTwoOp, true},
	"OR":    {vm.OR, famTwoOp, true},
	"XOR":   {vm.XOR, famTwoOp, true},
	"NOT":   {vm.NOT, famTwoOp, true},
	"RET":   {vm.RET, famZero, false},
}

// registers is the surface-syntax register name table, matching
// internal/vm/registers.go's GPR order.
var registers = map[string]vm.GPR{
	"IP": vm.IP,
	"AX": vm.AX,
	"BX": vm.BX,
	"CX": vm.CX,
	"DX": vm.DX,
	"SP": vm.SP,
	"BP": vm.BP,
	"SI": vm.SI,
	"DI": vm.DI,
	"CS": vm.CS,
	"DS": vm.DS,
	"ES": vm.ES,
	"SS": vm.SS,
	"CR": vm.CR,
}

func registerIndex(tok string) (vm.GPR, bool) {
	reg, ok := registers[strings.ToUpper(strings.TrimSpace(tok))]
	return reg, ok
}

// parseLiteral parses a decimal integer or an "h"-prefixed hex integer, per
// spec §4.6's operand syntax.
func parseLiteral(tok string) (uint32, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, ErrLiteral
	}

	if (tok[0] == 'h' || tok[0] == 'H') && len(tok) > 1 {
		v, err := strconv.ParseUint(tok[1:], 16, 32)
		if err != nil {
			return 0, ErrLiteral
		}

		return uint32(v), nil
	}

	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, ErrLiteral
	}

	return uint32(v), nil
}

// tryLiteral parses tok as a literal, reporting ok=false (rather than an
// error) when tok does not look like one at all -- used to detect a leading
// address relocation versus an ordinary mnemonic.
func tryLiteral(tok string) (uint32, bool) {
	v, err := parseLiteral(tok)
	return v, err == nil
}

// widthFor picks the narrowest immediate tag that can hold v.
func widthFor(v uint32) (vm.OperandTag, error) {
	switch {
	case v <= 0xF:
		return vm.TagImm4, nil
	case v <= 0xFFF:
		return vm.TagImm12, nil
	case v <= 0xFFFFF:
		return vm.TagImm20, nil
	default:
		return 0, ErrLiteral
	}
}

// memOperand parses an "&expr" or "&expr.b" memory reference.
func memOperand(tok string) (vm.OperandTag, uint32, error) {
	expr := tok[1:]
	tag := vm.TagMemWord

	if len(expr) >= 2 && strings.EqualFold(expr[len(expr)-2:], ".b") {
		tag = vm.TagMemByte
		expr = expr[:len(expr)-2]
	}

	v, err := parseLiteral(expr)
	if err != nil {
		return 0, 0, err
	}

	return tag, v, nil
}
