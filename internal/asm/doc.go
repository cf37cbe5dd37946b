/*
Package asm implements a line-oriented assembler for the machine's mnemonic
surface language.

	        h3000             ; relocate the write cursor
	label   !main             ; start a new code segment named main
	        mov h10, ax
	        add h20, ax
	        out h0050, ax
	label   loop
	        dec cx
	        cmp h0, cx
	        jne *loop
	        hlt h0

Each line is `[address] mnemonic [operand[,operand]]`; a leading decimal or
h-prefixed hex literal relocates the write cursor before the rest of the line
(if any) is assembled. Mnemonics fall into six encoding families -- zero
operand, HLT's optional exit code, an optional 8-bit operand, a 16-bit address,
a port/register pair, and two typed-nibble operands -- see the mnemonics table
in ops.go.

Labels are resolved with forward references: `label foo` binds foo to the
current offset, relative to the current code segment's origin, and patches
every `*foo` reference seen so far; `label !foo` additionally starts a new
segment. A label that is referenced but never bound is a hard error at the
end of assembly.

Typically, one assembles source with the "segvm asm" command:

	go run github.com/segvm/segvm asm -o program.bin program.asm

See github.com/segvm/segvm/internal/cli/cmd for the command-line wrapper.
*/
package asm
