package vm

// Step runs one fetch-decode-dispatch cycle: every registered device's
// Cycle hook runs first, then one instruction is fetched from CS:IP and
// dispatched. If the handler did not set IP directly, IP is advanced to the
// post-fetch cursor. Grounded on spec §4.5 and smoynes-elsie
// internal/vm/exec.go's Step/Run split.
func (cpu *CPU) Step() error {
	for _, dev := range cpu.Mem.IOMap().Devices() {
		if lc, ok := dev.(Lifecycle); ok {
			if err := lc.Cycle(); err != nil {
				return err
			}
		}
	}

	addr := cpu.Reg.Get(CS) + cpu.Reg.Get(IP)
	if err := cpu.Mem.SetActiveAddr(addr); err != nil {
		return err
	}

	opByte, err := cpu.Mem.Fetch()
	if err != nil {
		return err
	}

	op := Opcode(opByte)
	if int(op) >= len(dispatch) || dispatch[op] == nil {
		return &CPUError{Kind: KindInvalidOpcode}
	}

	wroteIP, err := dispatch[op](cpu)
	if err != nil {
		return err
	}

	if !wroteIP {
		cursor, cerr := cpu.Mem.ActiveAddr()
		if cerr != nil {
			return cerr
		}

		cpu.Reg.Set(IP, cursor-cpu.Reg.Get(CS))
	}

	return nil
}
