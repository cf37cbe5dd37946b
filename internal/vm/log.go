package vm

import "github.com/segvm/segvm/internal/log"

// LogValue implements slog.LogValuer so a CPU can be logged directly as a
// structured group of its registers and flags.
func (cpu *CPU) LogValue() log.Value {
	return log.GroupValue(
		log.Any("ip", cpu.Reg.Get(IP)),
		log.Any("cs", cpu.Reg.Get(CS)),
		log.Any("ax", cpu.Reg.Get(AX)),
		log.Any("flags", cpu.Flags),
		log.Any("running", cpu.running),
	)
}
