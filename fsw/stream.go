package fsw

import (
	"context"
	"fmt"
)

// Shandle is an open stream over a dnode's data: a cursor position plus the
// most recently resolved Extent, so sequential reads within one extent's
// run don't re-invoke the driver per block.
type Shandle struct {
	Dnode *Dnode
	Pos   int64
	ext   Extent
}

// ShandleOpen opens a stream handle on dn, retaining it. Pair with
// ShandleClose.
func (vol *Volume) ShandleOpen(ctx context.Context, dn *Dnode) (*Shandle, error) {
	if err := vol.DnodeFill(ctx, dn); err != nil {
		return nil, err
	}
	vol.DnodeRetain(dn)
	return &Shandle{Dnode: dn}, nil
}

// ShandleClose releases the stream handle's dnode reference.
func (vol *Volume) ShandleClose(shand *Shandle) {
	vol.DnodeRelease(shand.Dnode)
}

// ShandleRead reads up to len(buf) bytes starting at shand.Pos, advancing
// Pos by the number of bytes read. A short read (n < len(buf)) with a nil
// error means end of file was reached. Sparse extents are zero-filled.
func (vol *Volume) ShandleRead(ctx context.Context, shand *Shandle, buf []byte) (int, error) {
	dn := shand.Dnode
	total := 0
	for total < len(buf) {
		if uint64(shand.Pos) >= dn.Size {
			break
		}
		remaining := dn.Size - uint64(shand.Pos)
		want := len(buf) - total
		if uint64(want) > remaining {
			want = int(remaining)
		}

		logBno := uint32(uint64(shand.Pos) / uint64(vol.LogBlockSize))
		blockOff := uint32(uint64(shand.Pos) % uint64(vol.LogBlockSize))

		if shand.ext.Kind == ExtentInvalid || logBno < shand.ext.LogStart || logBno >= shand.ext.LogStart+shand.ext.LogCount {
			if shand.ext.Kind == ExtentBuffer {
				shand.ext.Buffer = nil
			}
			shand.ext = Extent{LogStart: logBno, LogCount: 1}
			if err := vol.Driver.GetExtent(ctx, dn, &shand.ext); err != nil {
				return total, fmt.Errorf("get extent for block %d: %w", logBno, err)
			}
		}

		blockRemaining := int(vol.LogBlockSize) - int(blockOff)
		chunk := want
		if chunk > blockRemaining {
			chunk = blockRemaining
		}

		switch shand.ext.Kind {
		case ExtentPhysBlock:
			blockWithinRun := logBno - shand.ext.LogStart
			physBno := shand.ext.PhysStart + blockWithinRun
			block, err := vol.ReadBlock(ctx, physBno)
			if err != nil {
				return total, err
			}
			copy(buf[total:total+chunk], block[blockOff:int(blockOff)+chunk])
		case ExtentBuffer:
			copy(buf[total:total+chunk], shand.ext.Buffer[blockOff:int(blockOff)+chunk])
		case ExtentSparse, ExtentInvalid:
			for i := 0; i < chunk; i++ {
				buf[total+i] = 0
			}
		default:
			return total, fmt.Errorf("stream read: %w", ErrUnknown)
		}

		total += chunk
		shand.Pos += int64(chunk)
	}
	return total, nil
}
