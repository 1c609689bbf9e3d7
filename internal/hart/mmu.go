package hart

// Sv32 page table entry flags (spec.md §4.4).
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

// PTEFlags is the permission bit-set a translation resolves to. Returned
// alongside the physical address so a future, tightened checkMemoryAccess
// can consult it without re-walking the page table (spec.md §9, Open
// Question on CheckMemoryAccess).
type PTEFlags uint8

func (f PTEFlags) Readable() bool   { return f&pteR != 0 }
func (f PTEFlags) Writable() bool   { return f&pteW != 0 }
func (f PTEFlags) Executable() bool { return f&pteX != 0 }
func (f PTEFlags) User() bool       { return f&pteU != 0 }

// translate performs the Sv32 two-level page walk described in spec.md
// §4.4, for a write=false/true access. All PTE reads are non-faulting
// (PeekWord); an absent PTE is an access fault.
func (h *Hart) translate(vaddr uint32, write bool) (uint32, PTEFlags, *Fault) {
	offset := vaddr & 0xfff
	vpn0 := (vaddr >> 12) & 0x3ff
	vpn1 := (vaddr >> 22) & 0x3ff

	root := h.csrs[csrSatp] << 12

	ptAddr1 := root + vpn1*4
	pte1, ok := h.Bus.PeekWord(ptAddr1)
	if !ok {
		return 0, 0, newFault(FaultMemory, h.PC, "access fault reading PTE at 0x%x", ptAddr1)
	}
	if pte1&pteV == 0 || (pte1&pteR == 0 && pte1&pteW != 0) {
		return 0, 0, newFault(FaultMemory, h.PC, "page fault: invalid level-1 PTE 0x%x", pte1)
	}

	if pte1&(pteR|pteX|pteW) != 0 {
		// Leaf at level 1: a 4 MiB superpage. PPN[0] (PTE[19:10]) must be
		// zero; only PPN[1] (PTE[31:20]) contributes to the physical
		// address.
		if (pte1>>10)&0x3ff != 0 {
			return 0, 0, newFault(FaultMemory, h.PC, "page fault: misaligned superpage PPN")
		}
		if err := checkAD(pte1, write); err != nil {
			return 0, 0, h.faultAt(err)
		}
		ppn1 := pte1 >> 20
		phys := (ppn1 << 22) | (vpn0 << 12) | offset
		return phys, PTEFlags(pte1 & 0xff), nil
	}

	ppn := pte1 >> 10
	ptAddr0 := ppn*4096 + vpn0*4
	pte0, ok := h.Bus.PeekWord(ptAddr0)
	if !ok {
		return 0, 0, newFault(FaultMemory, h.PC, "access fault reading PTE at 0x%x", ptAddr0)
	}
	if pte0&pteV == 0 || (pte0&pteR == 0 && pte0&pteW != 0) {
		return 0, 0, newFault(FaultMemory, h.PC, "page fault: invalid level-0 PTE 0x%x", pte0)
	}
	if pte0&(pteR|pteX|pteW) == 0 {
		return 0, 0, newFault(FaultMemory, h.PC, "page fault: level-0 PTE is not a leaf")
	}
	if err := checkAD(pte0, write); err != nil {
		return 0, 0, h.faultAt(err)
	}
	ppn0 := pte0 >> 10
	phys := (ppn0 << 12) | offset
	return phys, PTEFlags(pte0 & 0xff), nil
}

func checkAD(pte uint32, write bool) error {
	if pte&pteA == 0 {
		return errPageFault
	}
	if write && pte&pteD != 0 {
		return errPageFault
	}
	return nil
}

var errPageFault = faultSentinel{}

type faultSentinel struct{}

func (faultSentinel) Error() string { return "page fault: A/D bit policy" }

func (h *Hart) faultAt(err error) *Fault {
	return newFault(FaultMemory, h.PC, "%s", err.Error())
}

// checkMemoryAccess always allows, per spec.md §4.4/§9: tightening this to
// consult PTEFlags is required before the translator is wired to real
// faulting loads/stores, and is intentionally left as a stub the caller can
// swap in once that wiring happens.
func checkMemoryAccess(PTEFlags, bool, Privilege) bool {
	return true
}
