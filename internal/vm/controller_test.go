package vm

import "testing"

func TestMemoryControllerBlockDecode(t *testing.T) {
	c := NewMemoryController()

	for block := Word(0); block <= 0xE; block += 2 {
		if block == IOBlock {
			continue
		}

		c.AddMap(block, NewMemoryMap(0x2000))
	}

	// Each block is addressed by its top nibble with the low bit masked
	// off, so block N starts at N<<12.
	for block := Word(0); block <= 0xE; block += 2 {
		if block == IOBlock {
			continue
		}

		addr := block << 12
		if got := c.block(addr); got != block {
			t.Errorf("block(%#04x) = %#x, want %#x", addr, got, block)
		}

		if got := c.offset(addr); got != 0 {
			t.Errorf("offset(%#04x) = %#x, want 0", addr, got)
		}
	}
}

func TestMemoryControllerIOBlockAlwaysMapped(t *testing.T) {
	c := NewMemoryController()

	if c.block(IOBlock << 12) != IOBlock {
		t.Fatalf("IOBlock address does not decode to IOBlock")
	}

	if c.IOMap() == nil {
		t.Fatal("IOMap() returned nil")
	}
}

func TestMemoryControllerSetActiveAddrRoundTrip(t *testing.T) {
	c := NewMemoryController()

	for block := Word(0); block <= 0xE; block += 2 {
		if block == IOBlock {
			continue
		}

		c.AddMap(block, NewMemoryMap(0x2000))
	}

	addr := (Word(2) << 12) + 0x10

	if err := c.SetActiveAddr(addr); err != nil {
		t.Fatalf("SetActiveAddr: %v", err)
	}

	got, err := c.ActiveAddr()
	if err != nil {
		t.Fatalf("ActiveAddr: %v", err)
	}

	if got != addr {
		t.Errorf("ActiveAddr() = %#04x, want %#04x", got, addr)
	}
}

func TestMemoryControllerUnmappedBlockIsError(t *testing.T) {
	c := NewMemoryController()

	if err := c.SetActiveAddr(4 * 0x2000); err == nil {
		t.Fatal("expected error addressing an unmapped block")
	}
}

func TestMemoryControllerReadWrite16RoundTrip(t *testing.T) {
	c := NewMemoryController()
	c.AddMap(0, NewMemoryMap(0x2000))

	if err := c.Write16(0x10, 0xBEEF); err != nil {
		t.Fatalf("Write16: %v", err)
	}

	got, err := c.Read16(0x10)
	if err != nil {
		t.Fatalf("Read16: %v", err)
	}

	if got != 0xBEEF {
		t.Errorf("Read16 = %#04x, want 0xBEEF", got)
	}
}

func TestMemoryControllerIntTableBase(t *testing.T) {
	c := NewMemoryController()

	want := Word(0xFFFF + 1 - 512)
	if got := c.IntTableBase(); got != want {
		t.Errorf("IntTableBase() = %#04x, want %#04x", got, want)
	}
}
