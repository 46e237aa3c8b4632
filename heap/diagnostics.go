package heap

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// DumpHeap renders every non-free tracked block as multi-line human
// readable text (stdio-backed; never call this from a signal handler —
// use DumpHeapSignalSafe there), mirroring HeapManager::dumpHeap.
func (h *HeapManager) DumpHeap() string {
	var b strings.Builder
	fmt.Fprintln(&b, "=== Debug: Heap Blocks ===")
	active := 0
	for i, block := range h.blocks {
		if block.Type == AllocFree || block.Type == AllocUnknown {
			continue
		}
		fmt.Fprintf(&b, "Block %d: Type=%s, Handle=%d, Size=%d\n", i, block.Type, block.Handle, block.Size)
		if block.Type == AllocVec {
			if vec, err := h.VecData(block.Handle); err == nil {
				n := len(vec) - 1
				if n > 10 {
					n = 10
				}
				fmt.Fprintf(&b, "  Vector length: %d\n  Elements: ", len(vec)-1)
				for j := 0; j < n; j++ {
					fmt.Fprintf(&b, "%d ", vec[j+1])
				}
				if len(vec)-1 > 10 {
					fmt.Fprint(&b, "...")
				}
				fmt.Fprintln(&b)
			}
		}
		active++
	}
	fmt.Fprintf(&b, "Total active blocks: %d\n", active)
	if h.trackingDropped > 0 {
		fmt.Fprintf(&b, "Tracking dropped: %d records\n", h.trackingDropped)
	}
	return b.String()
}

// PrintMetrics renders the allocation/free counters, mirroring
// HeapManager::printMetrics.
func (h *HeapManager) PrintMetrics() string {
	var b strings.Builder
	fmt.Fprintln(&b, "=== Heap Metrics ===")
	fmt.Fprintf(&b, "Total Bytes Allocated: %d\n", h.totalBytesAllocated)
	fmt.Fprintf(&b, "Total Bytes Freed: %d\n", h.totalBytesFreed)
	fmt.Fprintf(&b, "Total Vectors Allocated: %d\n", h.vectorsAllocated)
	fmt.Fprintf(&b, "Total Strings Allocated: %d\n", h.stringsAllocated)
	fmt.Fprintf(&b, "Total Vectors Freed: %d\n", h.vectorsFreed)
	fmt.Fprintf(&b, "Total Strings Freed: %d\n", h.stringsFreed)
	fmt.Fprintf(&b, "Tracking Dropped (display-only): %d\n", h.trackingDropped)
	return b.String()
}

// DumpHeapSignalSafe is the async-signal-safe diagnostic dump spec.md §5
// requires the fatal-signal handler to be able to call: no heap
// allocation, no buffered/non-reentrant stdio, only a raw write(2) to
// stderr via syscall.Write and fixed-size on-stack buffers for integer
// formatting. Grounded on original_source's Heap_dumpHeapSignalSafe.cpp,
// whose safe_print/int_to_dec helpers this reimplements with Go's
// stack-allocated byte arrays instead of C's char buffers. Each line gives
// the block index, type and size in decimal; no address or hex field is
// printed.
func (h *HeapManager) DumpHeapSignalSafe() {
	rawWrite(stderrFD, "\n=== Heap Allocation Report (signal-safe) ===\n")
	active := 0
	for i, block := range h.blocks {
		if block.Type != AllocVec && block.Type != AllocString {
			continue
		}
		active++
		var idx, size [21]byte
		rawWrite(stderrFD, "Block ")
		rawWrite(stderrFD, string(intToDec(i, idx[:])))
		rawWrite(stderrFD, ": Type=")
		rawWrite(stderrFD, block.Type.String())
		rawWrite(stderrFD, ", Size=")
		rawWrite(stderrFD, string(intToDec(block.Size, size[:])))
		rawWrite(stderrFD, "\n")
	}
	if active == 0 {
		rawWrite(stderrFD, "No active Vector or String allocations found.\n")
	}
	rawWrite(stderrFD, "=== End Allocation Report ===\n")
}

const stderrFD = 2

// rawWrite calls write(2) directly, the signal-safe primitive the original
// leans on — no fmt, no buffered os.Stderr.
func rawWrite(fd int, s string) {
	_, _ = syscall.Write(fd, []byte(s))
}

// intToDec formats n into buf using only stack space, returning the
// written slice — the signal-safe replacement for int_to_dec's char
// buffer. strconv.AppendInt allocates only when buf's capacity is
// exceeded; buf is sized generously (21 bytes covers any int64) so the
// fast path never does.
func intToDec(n int, buf []byte) []byte {
	return strconv.AppendInt(buf[:0], int64(n), 10)
}
