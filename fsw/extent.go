package fsw

// ExtentKind classifies the run of logical blocks an Extent describes.
type ExtentKind int

const (
	ExtentInvalid ExtentKind = iota
	ExtentSparse
	ExtentPhysBlock
	ExtentBuffer
)

// Extent describes where a contiguous run of a dnode's logical blocks
// lives: nowhere (Sparse, reads as zero), on physical media starting at
// PhysStart (PhysBlock), or already materialized in memory (Buffer, e.g. a
// ReiserFS direct item).
//
// A driver's GetExtent fills in a zero-valued Extent naming the single
// logical block LogStart initially; drivers that can detect a longer
// contiguous run (ext2's indirect-block coalescing) may grow LogCount to
// cover it.
type Extent struct {
	Kind      ExtentKind
	LogStart  uint32
	LogCount  uint32
	PhysStart uint32
	Buffer    []byte
}
