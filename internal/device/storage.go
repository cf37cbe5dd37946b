package device

import (
	"os"
	"sync"

	"github.com/segvm/segvm/internal/log"
	"github.com/segvm/segvm/internal/vm"
)

const pageSize = 512

// Storage is a file-backed persistent device, exposed through a
// page-register + data-register port pair: writing a page number to the
// page port selects a pageSize-byte window into the backing file; reading
// or writing the data port accesses that window one byte at a time,
// advancing an internal offset. The backing file has no fixed size: any
// page number can be selected, a page past the end of the file reads as
// zeros, and flushing a written page there extends the file. Matches spec.md §6's "Persistent state"
// external interface; this file is the device implementation the CLI wires
// in, not a core responsibility.
type Storage struct {
	mut sync.Mutex

	pagePort, dataPort vm.Word

	file *os.File
	page int64
	off  int
	buf  [pageSize]byte
	dirt bool

	log *log.Logger
}

// NewStorage opens the backing file (creating it empty if absent), selects
// page 0, and returns a Storage answering pagePort/dataPort.
func NewStorage(path string, pagePort, dataPort vm.Word) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		pagePort: pagePort,
		dataPort: dataPort,
		file:     f,
		log:      log.DefaultLogger(),
	}

	if err := s.loadPage(0); err != nil {
		f.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) loadPage(page int64) error {
	if s.dirt {
		if err := s.flush(); err != nil {
			return err
		}
	}

	var zero [pageSize]byte

	s.buf = zero
	s.off = 0
	s.page = page

	n, err := s.file.ReadAt(s.buf[:], page*pageSize)
	if err != nil && n == 0 {
		// A short/empty read at a not-yet-extended offset just means the
		// page is implicitly all zero.
		return nil
	}

	return nil
}

func (s *Storage) flush() error {
	if !s.dirt {
		return nil
	}

	if _, err := s.file.WriteAt(s.buf[:], s.page*pageSize); err != nil {
		return err
	}

	s.dirt = false

	return nil
}

// Ports implements vm.Device.
func (s *Storage) Ports() []vm.Word { return []vm.Word{s.pagePort, s.dataPort} }

// Input implements vm.Device: reading the data port returns the current
// byte and advances the window offset; reading the page port returns the
// current page number.
func (s *Storage) Input(port vm.Word) (vm.Word, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	switch port {
	case s.pagePort:
		return vm.Word(s.page), nil
	case s.dataPort:
		b := s.buf[s.off%pageSize]
		s.off = (s.off + 1) % pageSize

		return vm.Word(b), nil
	default:
		return 0, nil
	}
}

// Output implements vm.Device: writing the page port selects a window
// (flushing the previous one first); writing the data port stores a byte at
// the current offset and advances it.
func (s *Storage) Output(port vm.Word, value vm.Word) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	switch port {
	case s.pagePort:
		return s.loadPage(int64(value))
	case s.dataPort:
		s.buf[s.off%pageSize] = byte(value)
		s.off = (s.off + 1) % pageSize
		s.dirt = true

		return nil
	default:
		return nil
	}
}

// Stop implements vm.Lifecycle: flushes any dirty page and closes the file.
func (s *Storage) Stop() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if err := s.flush(); err != nil {
		return err
	}

	return s.file.Close()
}

// Start implements vm.Lifecycle.
func (s *Storage) Start() error { return nil }

// Cycle implements vm.Lifecycle; the storage device has no per-instruction
// work.
func (s *Storage) Cycle() error { return nil }
