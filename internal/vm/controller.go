package vm

import "math"

// subMap is the common capability a MemoryController routes to: a
// MemoryMap or an IOMap.
type subMap interface {
	Read(addr Word) (byte, error)
	Write(addr Word, b byte) error
	ReadBlock(addr Word, size int) ([]byte, error)
	WriteBlock(addr Word, data []byte) error
}

// fetcher is a subMap that also supports the instruction-fetch path. Only
// MemoryMap implements it; IOMap cannot be banked for fetch.
type fetcher interface {
	subMap
	Fetch() (byte, error)
	SetCursor(addr Word)
	Cursor() Word
}

// IOBlock is the block number permanently reserved for the IOMap.
const IOBlock Word = 0xa

// MemoryController is the top-level address decoder: it routes linear
// 16-bit addresses to MemoryMaps or the IOMap by their high-order bits, and
// tracks which block is currently banked for instruction fetch. Grounded on
// original_source/simple_cpu/cpu.py's MemoryController class.
type MemoryController struct {
	size Word
	even bool

	habit   uint
	blksize Word

	blocks map[Word]subMap

	bank Word
}

// ControllerOption configures NewMemoryController.
type ControllerOption func(*MemoryController)

// WithSize overrides the default 0xFFFF controller size.
func WithSize(size Word) ControllerOption {
	return func(c *MemoryController) { c.size = size }
}

// WithOdd selects the odd block-size variant (blksize=0xF instead of 0xE).
func WithOdd() ControllerOption {
	return func(c *MemoryController) { c.even = false }
}

// NewMemoryController builds a controller with the default parameters
// (size=0xFFFF, even=true) unless overridden, and registers the IOMap at
// block 0xa.
func NewMemoryController(opts ...ControllerOption) *MemoryController {
	c := &MemoryController{
		size: 0xFFFF,
		even: true,
		bank: 0,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.habit = uint(math.Log2(float64(c.size)+1)) - 4

	if c.even {
		c.blksize = 0xE
	} else {
		c.blksize = 0xF
	}

	c.blocks = make(map[Word]subMap)
	c.blocks[IOBlock] = NewIOMap()

	return c
}

func (c *MemoryController) block(addr Word) Word {
	return (addr >> c.habit) & c.blksize
}

func (c *MemoryController) offset(addr Word) Word {
	return addr & (c.size >> 3)
}

// AddMap registers m at the given block number. Passing a value with
// neither read nor write capability (i.e. not a MemoryMap or IOMap) is a
// compile-time error since the parameter is typed as subMap.
func (c *MemoryController) AddMap(block Word, m subMap) {
	c.blocks[block] = m
}

// IOMap returns the controller's I/O sub-map, for device registration.
func (c *MemoryController) IOMap() *IOMap {
	return c.blocks[IOBlock].(*IOMap)
}

// SetBank selects which block is used for instruction fetch.
func (c *MemoryController) SetBank(block Word) {
	c.bank = block
}

// Bank returns the currently banked block number.
func (c *MemoryController) Bank() Word {
	return c.bank
}

// IntTableBase returns the linear address of the interrupt table: 256
// little-endian word entries at len(memory)-512.
func (c *MemoryController) IntTableBase() Word {
	return Word(uint32(c.size) + 1 - 512)
}

// SetActiveAddr banks the block addr decodes to and positions its cursor at
// addr's offset, in one step. Used at the top of the fetch-decode loop to
// move the instruction stream to CS+IP.
func (c *MemoryController) SetActiveAddr(addr Word) error {
	c.bank = c.block(addr)

	f, err := c.bankedMap()
	if err != nil {
		return err
	}

	f.SetCursor(c.offset(addr))

	return nil
}

// ActiveAddr reconstructs the linear address the banked map's cursor
// currently points at.
func (c *MemoryController) ActiveAddr() (Word, error) {
	f, err := c.bankedMap()
	if err != nil {
		return 0, err
	}

	return (c.bank << c.habit) + f.Cursor(), nil
}

func (c *MemoryController) bankedMap() (fetcher, error) {
	m, ok := c.blocks[c.bank]
	if !ok {
		return nil, &MemoryError{Kind: KindBounds, Addr: c.bank << c.habit}
	}

	f, ok := m.(fetcher)
	if !ok {
		return nil, &MemoryError{Kind: KindProtection, Addr: c.bank << c.habit}
	}

	return f, nil
}

// SetCursor positions the fetch cursor of the banked map at the offset
// portion of addr.
func (c *MemoryController) SetCursor(addr Word) error {
	f, err := c.bankedMap()
	if err != nil {
		return err
	}

	f.SetCursor(c.offset(addr))

	return nil
}

// Fetch reads one byte from the banked map's cursor and advances it.
func (c *MemoryController) Fetch() (byte, error) {
	f, err := c.bankedMap()
	if err != nil {
		return 0, err
	}

	return f.Fetch()
}

// Fetch16 reads a little-endian word from the banked map's cursor.
func (c *MemoryController) Fetch16() (Word, error) {
	lo, err := c.Fetch()
	if err != nil {
		return 0, err
	}

	hi, err := c.Fetch()
	if err != nil {
		return 0, err
	}

	return Unpack(lo, hi), nil
}

func (c *MemoryController) mapFor(addr Word) (subMap, error) {
	m, ok := c.blocks[c.block(addr)]
	if !ok {
		return nil, &MemoryError{Kind: KindBounds, Addr: addr}
	}

	return m, nil
}

// Read performs a block-decoded byte read.
func (c *MemoryController) Read(addr Word) (byte, error) {
	m, err := c.mapFor(addr)
	if err != nil {
		return 0, err
	}

	return m.Read(c.offset(addr))
}

// Write performs a block-decoded byte write.
func (c *MemoryController) Write(addr Word, b byte) error {
	m, err := c.mapFor(addr)
	if err != nil {
		return err
	}

	return m.Write(c.offset(addr), b)
}

// Read16 reads a little-endian word: read(A) | read(A+1)<<8.
func (c *MemoryController) Read16(addr Word) (Word, error) {
	lo, err := c.Read(addr)
	if err != nil {
		return 0, err
	}

	hi, err := c.Read(addr + 1)
	if err != nil {
		return 0, err
	}

	return Unpack(lo, hi), nil
}

// Write16 is the dual of Read16.
func (c *MemoryController) Write16(addr Word, w Word) error {
	b := w.Pack()
	if err := c.Write(addr, b[0]); err != nil {
		return err
	}

	return c.Write(addr+1, b[1])
}

// ReadBlock reads size contiguous bytes starting at addr, all from the one
// sub-map addr decodes to.
func (c *MemoryController) ReadBlock(addr Word, size int) ([]byte, error) {
	m, err := c.mapFor(addr)
	if err != nil {
		return nil, err
	}

	return m.ReadBlock(c.offset(addr), size)
}

// WriteBlock writes data starting at addr, all into the one sub-map addr
// decodes to.
func (c *MemoryController) WriteBlock(addr Word, data []byte) error {
	m, err := c.mapFor(addr)
	if err != nil {
		return err
	}

	return m.WriteBlock(c.offset(addr), data)
}

// Memcopy reads size bytes from src and writes them to dest; the two
// addresses may decode to different sub-maps.
func (c *MemoryController) Memcopy(src, dest Word, size int) error {
	data, err := c.ReadBlock(src, size)
	if err != nil {
		return err
	}

	return c.WriteBlock(dest, data)
}

// Memmove is Memcopy followed by clearing the source region.
func (c *MemoryController) Memmove(src, dest Word, size int) error {
	if err := c.Memcopy(src, dest, size); err != nil {
		return err
	}

	m, err := c.mapFor(src)
	if err != nil {
		return err
	}

	mm, ok := m.(*MemoryMap)
	if !ok {
		return &MemoryError{Kind: KindProtection, Addr: src}
	}

	return mm.ClearBlock(c.offset(src), size)
}
