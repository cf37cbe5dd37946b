package asm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/vm"
)

// label tracks one symbol's binding state and any forward references still
// waiting to be patched.
type label struct {
	bound  bool
	value  vm.Word
	fixups []int // byte offsets into Assembler.out awaiting a patch
}

// Assembler translates source text into a byte image, one line at a time,
// maintaining a current write cursor and code-segment origin and
// back-patching forward label references as they're bound. Grounded on
// spec §4.6 and smoynes-elsie internal/asm's SyntaxTable/SymbolTable
// two-table architecture, adapted to a single-pass, directly-emitting
// design since this machine's assembler writes into the CPU's memory
// controller directly rather than building an intermediate syntax tree.
type Assembler struct {
	out    []byte
	base   vm.Word
	cursor vm.Word
	cseg   vm.Word

	labels map[string]*label

	log *log.Logger
}

// NewAssembler creates an Assembler that writes starting at base.
func NewAssembler(base vm.Word) *Assembler {
	return &Assembler{
		base:   base,
		cursor: base,
		cseg:   base,
		labels: make(map[string]*label),
		log:    log.DefaultLogger(),
	}
}

// Bytes returns the assembled image. Gaps created by relocating the cursor
// ahead of the current length are zero-filled.
func (a *Assembler) Bytes() []byte { return a.out }

// Base returns the address the image's first byte loads at.
func (a *Assembler) Base() vm.Word { return a.base }

// LoadInto writes the assembled image into cpu's memory at Base().
func (a *Assembler) LoadInto(cpu *vm.CPU) error {
	return cpu.LoadImage(a.out, a.base)
}

func (a *Assembler) ensure(n int) {
	if n > len(a.out) {
		grown := make([]byte, n)
		copy(grown, a.out)
		a.out = grown
	}
}

func (a *Assembler) writeByte(b byte) {
	off := int(a.cursor - a.base)
	a.ensure(off + 1)
	a.out[off] = b
	a.cursor++
}

func (a *Assembler) writeWord(w vm.Word) {
	b := w.Pack()
	a.writeByte(b[0])
	a.writeByte(b[1])
}

// reserveWord writes two placeholder zero bytes and returns their offset,
// for a fixup to patch in later.
func (a *Assembler) reserveWord() int {
	off := int(a.cursor - a.base)
	a.writeWord(0)

	return off
}

func (a *Assembler) patchWord(off int, w vm.Word) {
	b := w.Pack()
	a.out[off], a.out[off+1] = b[0], b[1]
}

func (a *Assembler) labelFor(name string) *label {
	name = strings.ToUpper(name)

	l, ok := a.labels[name]
	if !ok {
		l = &label{}
		a.labels[name] = l
	}

	return l
}

// bind resolves name to the current offset (relative to cseg), patching
// every pending forward reference.
func (a *Assembler) bind(name string) error {
	l := a.labelFor(name)
	if l.bound {
		return &LabelError{Name: name, Err: fmt.Errorf("%w: already bound", ErrLabel)}
	}

	l.bound = true
	l.value = a.cursor - a.cseg

	for _, off := range l.fixups {
		a.patchWord(off, l.value)
	}

	l.fixups = nil

	return nil
}

// segment starts a new code segment at the current cursor and binds name to
// its origin (offset 0).
func (a *Assembler) segment(name string) error {
	a.cseg = a.cursor
	return a.bind(name)
}

// reference emits a reserved word for name, to be patched when (or if)
// name is bound. If name is already bound, the value is written immediately.
func (a *Assembler) reference(name string) {
	l := a.labelFor(name)

	if l.bound {
		a.writeWord(l.value)
		return
	}

	off := a.reserveWord()
	l.fixups = append(l.fixups, off)
}

// unresolved returns the name of some label that was referenced but never
// bound, or "" if every label resolved.
func (a *Assembler) unresolved() string {
	for name, l := range a.labels {
		if !l.bound {
			return name
		}
	}

	return ""
}

// Assemble reads source from r, emitting bytes and patching labels as it
// goes. Label resolution finishes, and an error is returned, only after the
// entire source has been scanned -- a symbol may be bound on a later line
// than it's referenced.
func (a *Assembler) Assemble(r io.Reader) error {
	return a.AssembleFile("", r)
}

// AssembleFile is Assemble, annotating any SyntaxError with a file name.
func (a *Assembler) AssembleFile(file string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		raw := scanner.Text()
		line := stripComment(raw)
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if err := a.line(line); err != nil {
			return &SyntaxError{File: file, Loc: lineNo, Line: raw, Err: err}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	if name := a.unresolved(); name != "" {
		return &LabelError{Name: name, Err: fmt.Errorf("%w: never bound", ErrLabel)}
	}

	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}

	return line
}

func (a *Assembler) line(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	if strings.EqualFold(fields[0], "label") {
		if len(fields) != 2 {
			return fmt.Errorf("%w: label directive wants exactly one name", ErrOperand)
		}

		name := fields[1]
		if strings.HasPrefix(name, "!") {
			return a.segment(name[1:])
		}

		return a.bind(name)
	}

	if v, ok := tryLiteral(fields[0]); ok {
		a.cursor = a.base + vm.Word(v)
		fields = fields[1:]

		if len(fields) == 0 {
			return nil
		}
	}

	name := strings.ToUpper(fields[0])

	m, ok := mnemonics[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrOpcode, fields[0])
	}

	operands := []string{}
	if len(fields) > 1 {
		operands = splitOperands(strings.Join(fields[1:], " "))
	}

	return a.emit(m, operands)
}

func splitOperands(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

func (a *Assembler) emit(m mnemonic, operands []string) error {
	a.writeByte(byte(m.op))

	switch m.fam {
	case famZero:
		if len(operands) != 0 && operands[0] != "" {
			return fmt.Errorf("%w: takes no operands", ErrOperand)
		}

		return nil
	case famHalt:
		if len(operands) == 0 || operands[0] == "" {
			return nil
		}

		v, err := parseLiteral(operands[0])
		if err != nil {
			return err
		}

		if v > 0xFF {
			return fmt.Errorf("%w: exit code out of range: %#x", ErrLiteral, v)
		}

		a.writeByte(byte(v))

		return nil
	case famByte:
		if len(operands) == 0 || operands[0] == "" {
			a.writeByte(0)
			return nil
		}

		if reg, ok := registerIndex(operands[0]); ok {
			a.writeByte(byte(reg))
			return nil
		}

		v, err := parseLiteral(operands[0])
		if err != nil {
			return err
		}

		if v > 0xFF {
			return fmt.Errorf("%w: operand out of range: %#x", ErrLiteral, v)
		}

		a.writeByte(byte(v))

		return nil
	case famWord:
		if len(operands) != 1 {
			return fmt.Errorf("%w: wants exactly one address operand", ErrOperand)
		}

		tok := operands[0]
		if strings.HasPrefix(tok, "*") {
			a.reference(tok[1:])
			return nil
		}

		v, err := parseLiteral(tok)
		if err != nil {
			return err
		}

		a.writeWord(vm.Word(v))

		return nil
	case famPort:
		if len(operands) != 2 {
			return fmt.Errorf("%w: wants port and register operands", ErrOperand)
		}

		port, err := parseLiteral(operands[0])
		if err != nil {
			return err
		}

		reg, ok := registerIndex(operands[1])
		if !ok {
			return &RegisterError{Op: "in/out", Tok: operands[1]}
		}

		a.writeWord(vm.Word(port))
		a.writeWord(vm.Word(reg))

		return nil
	case famTwoOp:
		if len(operands) != 2 {
			return fmt.Errorf("%w: wants exactly two operands", ErrOperand)
		}

		if m.regDst {
			if _, ok := registerIndex(operands[1]); !ok {
				return &RegisterError{Op: "dst", Tok: operands[1]}
			}
		}

		if err := a.encodeValueOperand(operands[0]); err != nil {
			return err
		}

		return a.encodeValueOperand(operands[1])
	default:
		return fmt.Errorf("%w: unhandled encoding family", ErrOpcode)
	}
}

// encodeValueOperand appends one typed-nibble operand (§4.3), matching
// internal/vm/operand.go's decodeOperand exactly. Label references
// ("*foo") are not supported here -- only as the address operand of the
// jump family (famWord), which is a raw word, not typed-nibble -- since an unresolved forward
// reference has no natural typed-nibble width to commit to up front.
func (a *Assembler) encodeValueOperand(tok string) error {
	tok = strings.TrimSpace(tok)

	switch {
	case tok == "":
		return fmt.Errorf("%w: empty operand", ErrOperand)
	case strings.HasPrefix(tok, "*"):
		return fmt.Errorf("%w: label reference not valid here", ErrOperand)
	case strings.HasPrefix(tok, "&"):
		tag, v, err := memOperand(tok)
		if err != nil {
			return err
		}

		return a.writeTyped(tag, v)
	default:
		if reg, ok := registerIndex(tok); ok {
			return a.writeTyped(vm.TagRegister, uint32(reg))
		}

		v, err := parseLiteral(tok)
		if err != nil {
			return err
		}

		tag, err := widthFor(v)
		if err != nil {
			return err
		}

		return a.writeTyped(tag, v)
	}
}

func (a *Assembler) writeTyped(tag vm.OperandTag, v uint32) error {
	switch tag {
	case vm.TagRegister, vm.TagImm4:
		a.writeByte(byte(tag)<<4 | byte(v&0xF))
	case vm.TagImm12, vm.TagMemByte, vm.TagMemWord:
		a.writeByte(byte(tag)<<4 | byte(v&0xF))
		a.writeByte(byte((v >> 4) & 0xFF))
	case vm.TagImm20:
		if v > 0xFFFFF {
			return fmt.Errorf("%w: immediate out of range: %#x", ErrLiteral, v)
		}

		w := vm.Word(v >> 4)
		b := w.Pack()

		a.writeByte(byte(tag)<<4 | byte(v&0xF))
		a.writeByte(b[0])
		a.writeByte(b[1])
	default:
		return fmt.Errorf("%w: bad operand tag", ErrOperand)
	}

	return nil
}
