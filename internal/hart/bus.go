package hart

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// MemoryBus is the sole contract between the execution core and the storage
// subsystem (spec.md §4.2/§6). A real host allocates the backing RAM and
// implements device routing; the core only ever calls through this
// interface.
type MemoryBus interface {
	ReadByte(addr uint32) (uint8, error)
	ReadHalf(addr uint32) (uint16, error)
	ReadWord(addr uint32) (uint32, error)
	WriteByte(addr uint32, v uint8) error
	WriteHalf(addr uint32, v uint16) error
	WriteWord(addr uint32, v uint32) error

	// PeekWord is non-faulting, used by breakpoint/disassembly detection.
	PeekWord(addr uint32) (uint32, bool)

	ReadWordReserved(addr uint32, hartID uint32) (uint32, error)
	WriteWordConditional(addr uint32, v uint32, hartID uint32) (bool, error)

	AtomicSwap(addr uint32, v uint32) (uint32, error)
	AtomicAdd(addr uint32, v uint32) (uint32, error)
	AtomicXor(addr uint32, v uint32) (uint32, error)
	AtomicAnd(addr uint32, v uint32) (uint32, error)
	AtomicOr(addr uint32, v uint32) (uint32, error)
	AtomicMin(addr uint32, v int32) (int32, error)
	AtomicMax(addr uint32, v int32) (int32, error)
	AtomicMinU(addr uint32, v uint32) (uint32, error)
	AtomicMaxU(addr uint32, v uint32) (uint32, error)

	// Time and TimeCmp expose the CSR-mapped monotonic clock region
	// (spec.md §3/§6), shared across all harts on this bus.
	Time() uint64
	TimeCmp() uint64
	SetTimeCmp(v uint64)

	GetTotalMemory() uint64
	GetUsedMemory() uint64
}

// Bus is the reference MemoryBus implementation: a flat byte-addressable RAM
// region plus the per-hart reservation tracking LR.W/SC.W need. Modeled on
// the teacher's Bus/MemoryRegion split (bus.go), collapsed to a single RAM
// region since the core has no device-mapped I/O space of its own (§2: the
// host-memory allocator is out of scope, this is the narrow reference the
// core is tested against).
type Bus struct {
	mu   sync.Mutex
	ram  []byte
	used uint64

	reservations map[uint32]uint32 // hart id -> reserved granule address

	time    uint64
	timecmp uint64
}

var cpuEndian = binary.LittleEndian

// NewBus allocates a Bus with the given RAM size in bytes.
func NewBus(size uint64) *Bus {
	return &Bus{
		ram:          make([]byte, size),
		reservations: make(map[uint32]uint32),
		timecmp:      ^uint64(0),
	}
}

func (b *Bus) bounds(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(len(b.ram)) {
		return fmt.Errorf("memory access out of bounds: addr=0x%x size=%d len=%d", addr, n, len(b.ram))
	}
	return nil
}

// ReadByte reads a single byte.
func (b *Bus) ReadByte(addr uint32) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 1); err != nil {
		return 0, err
	}
	return b.ram[addr], nil
}

// ReadHalf reads a 16-bit halfword.
func (b *Bus) ReadHalf(addr uint32) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 2); err != nil {
		return 0, err
	}
	return cpuEndian.Uint16(b.ram[addr:]), nil
}

// ReadWord reads a 32-bit word. Callers must have already checked alignment;
// the bus itself does not enforce it (fetch/load/store alignment is the
// execution core's responsibility per spec.md §4.6).
func (b *Bus) ReadWord(addr uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 4); err != nil {
		return 0, err
	}
	return cpuEndian.Uint32(b.ram[addr:]), nil
}

// WriteByte writes a single byte.
func (b *Bus) WriteByte(addr uint32, v uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 1); err != nil {
		return err
	}
	b.ram[addr] = v
	b.clearConflicting(addr, 1)
	return nil
}

// WriteHalf writes a 16-bit halfword.
func (b *Bus) WriteHalf(addr uint32, v uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 2); err != nil {
		return err
	}
	cpuEndian.PutUint16(b.ram[addr:], v)
	b.clearConflicting(addr, 2)
	return nil
}

// WriteWord writes a 32-bit word.
func (b *Bus) WriteWord(addr uint32, v uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 4); err != nil {
		return err
	}
	cpuEndian.PutUint32(b.ram[addr:], v)
	b.clearConflicting(addr, 4)
	return nil
}

// PeekWord performs a non-faulting word read, used by breakpoint/EBREAK
// detection and the Sv32 page-table walk (spec.md §4.4/§4.7).
func (b *Bus) PeekWord(addr uint32) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bounds(addr, 4) != nil {
		return 0, false
	}
	return cpuEndian.Uint32(b.ram[addr:]), true
}

func granule(addr uint32) uint32 { return addr &^ 3 }

// clearConflicting clears every hart's reservation on the granule containing
// addr, the side effect spec.md §5 requires of ordinary stores with respect
// to LR/SC. The writing hart's own reservation is cleared too (the bus does
// not know which hart wrote), and only the granule of addr is checked; size
// is not consulted.
func (b *Bus) clearConflicting(addr uint32, size int) {
	g := granule(addr)
	for hartID, res := range b.reservations {
		if res == g {
			delete(b.reservations, hartID)
		}
	}
}

// ReadWordReserved implements LR.W's memory-bus half: read, then set the
// reservation for hartID on the 4-byte granule containing addr.
func (b *Bus) ReadWordReserved(addr uint32, hartID uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 4); err != nil {
		return 0, err
	}
	v := cpuEndian.Uint32(b.ram[addr:])
	b.reservations[hartID] = granule(addr)
	return v, nil
}

// WriteWordConditional implements SC.W: stores only if hartID's reservation
// is present and matches the granule, and always clears that reservation.
func (b *Bus) WriteWordConditional(addr uint32, v uint32, hartID uint32) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.reservations[hartID]
	delete(b.reservations, hartID)
	if !ok || res != granule(addr) {
		return false, nil
	}
	if err := b.bounds(addr, 4); err != nil {
		return false, err
	}
	cpuEndian.PutUint32(b.ram[addr:], v)
	b.clearConflicting(addr, 4)
	return true, nil
}

func (b *Bus) atomicRMW(addr uint32, f func(old uint32) uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bounds(addr, 4); err != nil {
		return 0, err
	}
	old := cpuEndian.Uint32(b.ram[addr:])
	cpuEndian.PutUint32(b.ram[addr:], f(old))
	b.clearConflicting(addr, 4)
	return old, nil
}

func (b *Bus) AtomicSwap(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(uint32) uint32 { return v })
}

func (b *Bus) AtomicAdd(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 { return old + v })
}

func (b *Bus) AtomicXor(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 { return old ^ v })
}

func (b *Bus) AtomicAnd(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 { return old & v })
}

func (b *Bus) AtomicOr(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 { return old | v })
}

func (b *Bus) AtomicMin(addr uint32, v int32) (int32, error) {
	old, err := b.atomicRMW(addr, func(old uint32) uint32 {
		if int32(old) < v {
			return old
		}
		return uint32(v)
	})
	return int32(old), err
}

func (b *Bus) AtomicMax(addr uint32, v int32) (int32, error) {
	old, err := b.atomicRMW(addr, func(old uint32) uint32 {
		if int32(old) > v {
			return old
		}
		return uint32(v)
	})
	return int32(old), err
}

func (b *Bus) AtomicMinU(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 {
		if old < v {
			return old
		}
		return v
	})
}

func (b *Bus) AtomicMaxU(addr uint32, v uint32) (uint32, error) {
	return b.atomicRMW(addr, func(old uint32) uint32 {
		if old > v {
			return old
		}
		return v
	})
}

// Time returns the CSR-mapped monotonic time counter.
func (b *Bus) Time() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.time
}

// TimeCmp returns the CSR-mapped timer compare value.
func (b *Bus) TimeCmp() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timecmp
}

// SetTimeCmp sets the timer compare value.
func (b *Bus) SetTimeCmp(v uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timecmp = v
}

// Tick advances time externally from a wall-clock delta expressed directly
// in ticks (the caller scales by the ticks-per-second constant, spec.md §6).
// The invariant time < timecmp must hold after the advance, else the tick
// is fatal (spec.md §3/§7/§9).
func (b *Bus) Tick(deltaTicks uint64) error {
	b.mu.Lock()
	b.time += deltaTicks
	breached := b.time >= b.timecmp
	now := b.time
	cmp := b.timecmp
	b.mu.Unlock()
	if breached {
		return fmt.Errorf("timer invariant breach: time=%d timecmp=%d", now, cmp)
	}
	return nil
}

// LoadBytes loads a flat image into RAM at addr, the one loading primitive
// this core's bus exposes (ELF loading is out of scope, spec.md §1).
func (b *Bus) LoadBytes(addr uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if uint64(addr)+uint64(len(data)) > uint64(len(b.ram)) {
		return fmt.Errorf("load out of bounds: addr=0x%x size=%d", addr, len(data))
	}
	copy(b.ram[addr:], data)
	if u := uint64(addr) + uint64(len(data)); u > b.used {
		b.used = u
	}
	return nil
}

// GetTotalMemory returns the size of the backing RAM, for introspection.
func (b *Bus) GetTotalMemory() uint64 {
	return uint64(len(b.ram))
}

// GetUsedMemory returns the high-water mark of bytes touched by LoadBytes,
// for introspection. Not updated by ordinary instruction-driven stores —
// matching the teacher's "observational only" framing of this accessor.
func (b *Bus) GetUsedMemory() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

var _ MemoryBus = (*Bus)(nil)
