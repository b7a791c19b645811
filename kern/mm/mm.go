// Package mm provides the address-translation capability a process holds
// and a page-granular hosted implementation behind it.
package mm

import (
	"errors"
	"fmt"
	"math"
)

// PageSize is the translation granule.
const PageSize = 4096

// Perm is a page permission mask in mmap prot encoding.
type Perm uint8

const (
	PermR Perm = 1 << iota
	PermW
	PermX
)

// PermMask covers every defined permission bit.
const PermMask = PermR | PermW | PermX

var (
	// ErrFault marks an access to unmapped memory or one the page
	// permissions forbid.
	ErrFault = errors.New("mm: page fault")
	// ErrBadRange marks a misaligned or malformed range argument.
	ErrBadRange = errors.New("mm: bad range")
	// ErrOverlap marks a mapping request over an already-mapped page.
	ErrOverlap = errors.New("mm: range overlaps existing mapping")
	// ErrNotMapped marks an unmap of a page that is not mapped.
	ErrNotMapped = errors.New("mm: range not fully mapped")
	// ErrNoMemory marks frame-budget exhaustion.
	ErrNoMemory = errors.New("mm: out of memory")
)

// AddressSpace is the translation capability. The kernel never hands out
// raw frames; every user-memory access goes through one of these.
type AddressSpace interface {
	// Map establishes len bytes of fresh zeroed memory at va.
	Map(va, length uint64, perm Perm) error
	// Unmap removes exactly the pages covering [va, va+length).
	Unmap(va, length uint64) error
	// Sbrk grows or shrinks the data segment and returns the old break.
	Sbrk(delta int64) (uint64, error)
	// ReadAt copies len(p) bytes from user memory at va.
	ReadAt(va uint64, p []byte) error
	// WriteAt copies p into user memory at va, honoring write permission.
	WriteAt(va uint64, p []byte) error
}

type frame struct {
	data []byte
	perm Perm
}

// PagedSpace is the hosted address space: a sparse page map with a frame
// budget standing in for physical memory.
type PagedSpace struct {
	frames  map[uint64]*frame
	budget  uint64
	used    uint64
	brkBase uint64
	brk     uint64
}

// NewPagedSpace returns an empty space allowed to hold at most budget
// bytes of frames. brkBase is where the data segment starts.
func NewPagedSpace(budget, brkBase uint64) *PagedSpace {
	return &PagedSpace{
		frames:  make(map[uint64]*frame),
		budget:  budget,
		brkBase: brkBase,
		brk:     brkBase,
	}
}

func vpn(va uint64) uint64 { return va / PageSize }

func (s *PagedSpace) allocFrame(n uint64, perm Perm) (*frame, error) {
	if s.used+PageSize > s.budget {
		return nil, ErrNoMemory
	}
	f := &frame{data: make([]byte, PageSize), perm: perm}
	s.frames[n] = f
	s.used += PageSize
	return f, nil
}

func (s *PagedSpace) freeFrame(n uint64) {
	if _, ok := s.frames[n]; ok {
		delete(s.frames, n)
		s.used -= PageSize
	}
}

// Map establishes len bytes of fresh zeroed memory at va. The range must
// be page-aligned, must not wrap the top of the address space, and must
// not touch an existing mapping.
func (s *PagedSpace) Map(va, length uint64, perm Perm) error {
	if va%PageSize != 0 || length == 0 || length > math.MaxUint64-va {
		return ErrBadRange
	}
	if perm&^PermMask != 0 || perm&PermMask == 0 {
		return ErrBadRange
	}
	first := vpn(va)
	last := vpn(va + length - 1)
	for n := first; n <= last; n++ {
		if _, ok := s.frames[n]; ok {
			return ErrOverlap
		}
	}
	for n := first; n <= last; n++ {
		if _, err := s.allocFrame(n, perm); err != nil {
			for m := first; m < n; m++ {
				s.freeFrame(m)
			}
			return err
		}
	}
	return nil
}

// Unmap removes the pages covering [va, va+length). The range must not
// wrap, and every page in it must be mapped.
func (s *PagedSpace) Unmap(va, length uint64) error {
	if va%PageSize != 0 || length == 0 || length > math.MaxUint64-va {
		return ErrBadRange
	}
	first := vpn(va)
	last := vpn(va + length - 1)
	for n := first; n <= last; n++ {
		if _, ok := s.frames[n]; !ok {
			return ErrNotMapped
		}
	}
	for n := first; n <= last; n++ {
		s.freeFrame(n)
	}
	return nil
}

// Sbrk moves the data-segment break by delta bytes and returns the old
// break. Growth maps fresh RW pages; shrink unmaps whole pages below the
// old break, never under brkBase.
func (s *PagedSpace) Sbrk(delta int64) (uint64, error) {
	old := s.brk
	if delta == 0 {
		return old, nil
	}
	if delta > 0 {
		newBrk := old + uint64(delta)
		var added []uint64
		for n := vpn(old); n <= vpn(newBrk-1); n++ {
			if _, ok := s.frames[n]; ok {
				continue
			}
			if _, err := s.allocFrame(n, PermR|PermW); err != nil {
				for _, m := range added {
					s.freeFrame(m)
				}
				return 0, err
			}
			added = append(added, n)
		}
		s.brk = newBrk
		return old, nil
	}
	shrink := uint64(-delta)
	if shrink > old-s.brkBase {
		return 0, ErrBadRange
	}
	newBrk := old - shrink
	firstDead := vpn(newBrk)
	if newBrk%PageSize != 0 {
		firstDead++
	}
	if old > s.brkBase {
		for n := firstDead; n <= vpn(old-1); n++ {
			s.freeFrame(n)
		}
	}
	s.brk = newBrk
	return old, nil
}

// ReadAt copies len(p) bytes from user memory at va.
func (s *PagedSpace) ReadAt(va uint64, p []byte) error {
	return s.walk(va, len(p), false, func(dst []byte, off int) {
		copy(p[off:], dst)
	})
}

// WriteAt copies p into user memory at va, honoring write permission.
func (s *PagedSpace) WriteAt(va uint64, p []byte) error {
	return s.walk(va, len(p), true, func(dst []byte, off int) {
		copy(dst, p[off:])
	})
}

func (s *PagedSpace) walk(va uint64, n int, write bool, visit func(page []byte, off int)) error {
	if n == 0 {
		return nil
	}
	done := 0
	for done < n {
		cur := va + uint64(done)
		f, ok := s.frames[vpn(cur)]
		if !ok {
			return fmt.Errorf("%w: va %#x", ErrFault, cur)
		}
		if write && f.perm&PermW == 0 {
			return fmt.Errorf("%w: write to read-only va %#x", ErrFault, cur)
		}
		if !write && f.perm&PermR == 0 {
			return fmt.Errorf("%w: read from unreadable va %#x", ErrFault, cur)
		}
		pageOff := int(cur % PageSize)
		chunk := PageSize - pageOff
		if chunk > n-done {
			chunk = n - done
		}
		visit(f.data[pageOff:pageOff+chunk], done)
		done += chunk
	}
	return nil
}

// Used reports the bytes of frames currently mapped.
func (s *PagedSpace) Used() uint64 { return s.used }

// Brk reports the current data-segment break.
func (s *PagedSpace) Brk() uint64 { return s.brk }
