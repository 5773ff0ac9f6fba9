// Package hostfile implements fsw.HostAdapter over a raw disk image backed
// by an io.ReaderAt (typically an *os.File), with a single-slot block
// cache matching the lifetime contract fsw.HostAdapter documents.
package hostfile

import (
	"context"
	"fmt"
	"io"

	"github.com/refitfs/gofsw/fsw"
	"github.com/refitfs/gofsw/internal/logger"
	"github.com/refitfs/gofsw/internal/metrics"
)

// Adapter reads blocks from an underlying image, optionally offset (so a
// filesystem living in a partition, not at offset 0, can be mounted
// without the caller having to slice the reader themselves).
type Adapter struct {
	r      io.ReaderAt
	offset int64

	cachedBno   uint32
	cachedValid bool
	cached      []byte
}

// New creates an Adapter reading r starting at byteOffset.
func New(r io.ReaderAt, byteOffset int64) *Adapter {
	return &Adapter{r: r, offset: byteOffset}
}

// ReadBlock implements fsw.HostAdapter.
func (a *Adapter) ReadBlock(ctx context.Context, vol *fsw.Volume, physBno uint32) ([]byte, error) {
	if a.cachedValid && a.cachedBno == physBno {
		metrics.HostCacheHits.Inc()
		return a.cached, nil
	}

	size := int(vol.PhysBlockSize)
	buf := make([]byte, size)
	off := a.offset + int64(physBno)*int64(size)
	if _, err := io.ReadFull(io.NewSectionReader(a.r, off, int64(size)), buf); err != nil {
		return nil, fmt.Errorf("%w: read block %d at offset %d: %v", fsw.ErrIO, physBno, off, err)
	}

	a.cached = buf
	a.cachedBno = physBno
	a.cachedValid = true
	metrics.HostBlockReads.Inc()
	logger.Tracef("hostfile: read block %d (%d bytes at offset %d)", physBno, size, off)
	return buf, nil
}

// ChangeBlockSize implements fsw.HostAdapter, invalidating the cached
// block since it was sized for the old geometry.
func (a *Adapter) ChangeBlockSize(vol *fsw.Volume, oldPhys, oldLog, newPhys, newLog uint32) {
	a.cachedValid = false
	a.cached = nil
}
