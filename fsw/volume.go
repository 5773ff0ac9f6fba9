package fsw

import (
	"context"
	"fmt"
)

// DnodeType classifies what a dnode refers to, mirroring fsw_dnode_type_t.
// Fresh dnodes created by identity alone (before DnodeFill runs) start out
// TypeUnknown.
type DnodeType int

const (
	TypeUnknown DnodeType = iota
	TypeFile
	TypeDir
	TypeSymlink
	TypeSpecial
)

// Volume is a mounted filesystem instance: the physical/logical block
// geometry, the host adapter backing it, the driver implementing its
// on-disk format, and the live dnode cache. Driver implementations embed
// *Volume in their own wrapper struct (e.g. ext2.Volume) to attach
// filesystem-specific fields such as cached superblock geometry.
//
// Not safe for concurrent use; see the package doc comment.
type Volume struct {
	PhysBlockSize uint32
	LogBlockSize  uint32
	Label         String

	Host   HostAdapter
	Driver Driver

	Root *Dnode

	// DriverState is a slot for the mounting driver's own volume-wide
	// state (e.g. *ext2.Volume's decoded superblock geometry), set during
	// Driver.VolumeMount and type-asserted back by that same driver. The
	// generic fsw.Volume has no need to know its shape.
	DriverState any

	dnodes []*Dnode // live dnode cache, most-recently-created first
}

// Mount allocates a Volume, wires up the host adapter and driver, and
// delegates to driver.VolumeMount to probe and validate the on-disk
// format. On failure the partially-built volume is torn down before the
// error is returned, so callers never have to call Unmount themselves
// after a failed Mount.
func Mount(ctx context.Context, host HostAdapter, driver Driver) (*Volume, error) {
	vol := &Volume{
		PhysBlockSize: 512,
		LogBlockSize:  512,
		Host:          host,
		Driver:        driver,
	}
	if err := driver.VolumeMount(ctx, vol); err != nil {
		vol.teardown()
		return nil, fmt.Errorf("mount %s volume: %w", driver.Name(), err)
	}
	return vol, nil
}

// Unmount releases the root dnode and all driver-private volume state.
func (vol *Volume) Unmount() {
	if vol.Root != nil {
		vol.DnodeRelease(vol.Root)
		vol.Root = nil
	}
	vol.teardown()
}

func (vol *Volume) teardown() {
	vol.Driver.VolumeFree(vol)
}

// SetBlockSize updates the volume's physical/logical block size,
// informing the host adapter so it can drop any cached block that was
// sized for the old geometry. Drivers call this first to set the probe
// geometry they read their superblock with, and again once they know the
// real block size (the initial Mount default of 512/512 is only a starting
// value).
func (vol *Volume) SetBlockSize(physBlockSize, logBlockSize uint32) {
	oldPhys, oldLog := vol.PhysBlockSize, vol.LogBlockSize
	vol.Host.ChangeBlockSize(vol, oldPhys, oldLog, physBlockSize, logBlockSize)
	vol.PhysBlockSize = physBlockSize
	vol.LogBlockSize = logBlockSize
}

// ReadBlock reads physical block physBno through the volume's host
// adapter.
func (vol *Volume) ReadBlock(ctx context.Context, physBno uint32) ([]byte, error) {
	b, err := vol.Host.ReadBlock(ctx, vol, physBno)
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", physBno, err)
	}
	return b, nil
}

// Stat reports the volume's total and free capacity.
func (vol *Volume) Stat(ctx context.Context) (totalBytes, freeBytes uint64, err error) {
	return vol.Driver.VolumeStat(ctx, vol)
}

// DnodeCacheLen reports the number of dnodes currently live in the
// volume's cache, for metrics/diagnostics.
func (vol *Volume) DnodeCacheLen() int {
	return len(vol.dnodes)
}
