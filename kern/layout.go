package kern

import "tern/kern/mm"

// User address-space layout. Every process gets the same map: an entry
// page whose slots name task entry points, a stack band with one region
// per tid, and the data segment the break grows through.
const (
	// entryBase is the page thread entry addresses live on. Entry slot i
	// sits at entryBase + i*entryStride.
	entryBase   uint64 = 0x1000_0000
	entryStride uint64 = 4

	// stackBase is the bottom of tid 0's stack region. Regions are
	// stackSize bytes with an unmapped guard page between neighbours.
	stackBase  uint64 = 0x2000_0000
	stackSize  uint64 = 8 * 1024
	stackSlide uint64 = stackSize + mm.PageSize

	// brkBase is where the data segment starts.
	brkBase uint64 = 0x4000_0000
)

// Operation costs in cycles. Every user-level operation retires opCost
// cycles before trapping, so time moves even for tasks that only spin on
// calls. Compute bursts retire spinChunk cycles between interrupt polls.
const (
	opCost    uint64 = 16
	spinChunk uint64 = 64
)

// stackLowVA returns the lowest mapped address of a tid's stack region.
func stackLowVA(tid int) uint64 {
	return stackBase + uint64(tid)*stackSlide
}

// stackTopVA returns the initial stack pointer for a tid.
func stackTopVA(tid int) uint64 {
	return stackLowVA(tid) + stackSize
}

// entryVA returns the synthetic entry address for entry slot idx.
func entryVA(idx int) uint64 {
	return entryBase + uint64(idx)*entryStride
}

// entryIndex inverts entryVA, reporting ok=false for addresses outside
// the entry page's slot grid.
func entryIndex(va uint64) (int, bool) {
	if va < entryBase || (va-entryBase)%entryStride != 0 {
		return 0, false
	}
	return int((va - entryBase) / entryStride), true
}
