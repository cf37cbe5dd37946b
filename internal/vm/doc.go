// Package vm implements a register-based, segmented, 16-bit virtual machine: a
// banked memory controller with memory-mapped I/O, a fetch-decode-dispatch CPU
// core, and synchronous software interrupts.
//
// Address space layout, for the default controller parameters (size=0xFFFF,
// even=true, habit=12, blksize=0xE):
//
//	block  0x0           0x2           ...          0xa           ...    0xe
//	       +-------------+-------------+ ... +-------------+ ... +-------------+
//	       | data map 0  | data map 1  |     |    IOMap    |     | data map N  |
//	       +-------------+-------------+ ... +-------------+ ... +-------------+
//	       0x0000        0x2000                0xa000               0xe000
//
// Each data block is 0x2000 bytes, selected by address bits above the "habit"
// (floor(log2(size+1))-4 for the default size, that is 12). Block 0xa is
// permanently reserved for the IOMap; everything else is an ordinary
// MemoryMap registered with AddMap.
//
// A linear address is never shifted: segment registers (CS, DS, ES, SS) are
// added to an offset with plain 16-bit wraparound arithmetic to form the
// address passed to the controller. There is no MMU and no protection
// between segments; protection exists only at the MemoryMap level (R/W/X
// bits per block).
//
// Instructions are fetched from CS:IP, one opcode byte at a time, and their
// operands -- when present -- use the typed-nibble encoding documented on
// Operand. The CPU type ties the controller, the register file, and the
// opcode dispatch table together and exposes the four operations external
// callers are expected to use: LoadImage, SetRegister, Step, and Run.
package vm
