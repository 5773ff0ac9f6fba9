package fsw

import (
	"context"
	"fmt"
)

// Dnode is a filesystem object: a file, directory, symlink or special
// node. Dnodes are reference-counted and deduplicated by DnodeID within a
// volume, so two lookups reaching the same on-disk object (via different
// paths, or the same path twice) return the same *Dnode with its refcount
// incremented, never two independent copies racing to fill themselves.
type Dnode struct {
	Vol    *Volume
	Parent *Dnode
	ID     DnodeID
	Type   DnodeType
	Size   uint64
	Name   String

	// Payload is the driver-private on-disk record (e.g. *ext2.RawInode),
	// set by Driver.DnodeFill. Nil until the dnode has been filled.
	Payload any

	refcount int
}

// CreateRootDnode creates the volume's root dnode. It must be called
// exactly once, from within Driver.VolumeMount, and its result assigned to
// vol.Root.
func (vol *Volume) CreateRootDnode(id DnodeID) *Dnode {
	dn := &Dnode{Vol: vol, Parent: nil, ID: id, Type: TypeDir, refcount: 1}
	vol.dnodes = append(vol.dnodes, dn)
	return dn
}

// CreateDnode returns the dnode identified by id under parent, creating it
// if this is the first time id has been seen on this volume. An existing
// dnode is returned with its refcount incremented rather than duplicated,
// so identity is preserved across repeated lookups of the same object.
func (vol *Volume) CreateDnode(parent *Dnode, id DnodeID, name String) (*Dnode, error) {
	for _, existing := range vol.dnodes {
		if existing.ID == id {
			existing.refcount++
			return existing, nil
		}
	}
	dupName, err := name.DuplicateCoerced(name.Encoding)
	if err != nil {
		return nil, err
	}
	dn := &Dnode{Vol: vol, Parent: parent, ID: id, Name: dupName, refcount: 1}
	if parent != nil {
		parent.refcount++
	}
	vol.dnodes = append([]*Dnode{dn}, vol.dnodes...)
	return dn, nil
}

// DnodeRetain increments dn's reference count.
func (vol *Volume) DnodeRetain(dn *Dnode) {
	dn.refcount++
}

// DnodeRelease decrements dn's reference count, and once it reaches zero:
// unlinks dn from the volume's live dnode cache, lets the driver release
// Payload, and recursively releases dn's parent (whose own refcount may
// now drop to zero in turn).
func (vol *Volume) DnodeRelease(dn *Dnode) {
	dn.refcount--
	if dn.refcount > 0 {
		return
	}
	for i, existing := range vol.dnodes {
		if existing == dn {
			vol.dnodes = append(vol.dnodes[:i], vol.dnodes[i+1:]...)
			break
		}
	}
	if dn.Payload != nil {
		vol.Driver.DnodeFree(dn)
	}
	parent := dn.Parent
	dn.Parent = nil
	if parent != nil {
		vol.DnodeRelease(parent)
	}
}

// DnodeFill ensures dn.Type/Size/Payload are populated, calling the driver
// at most once per dnode.
func (vol *Volume) DnodeFill(ctx context.Context, dn *Dnode) error {
	if dn.Payload != nil {
		return nil
	}
	if err := vol.Driver.DnodeFill(ctx, dn); err != nil {
		return fmt.Errorf("fill dnode %+v: %w", dn.ID, err)
	}
	return nil
}

// DnodeStat fills dn if necessary and reports its extended metadata. A
// driver reporting UsedBytes == 0 gets a default estimate of
// ceil(Size / LogBlockSize) blocks' worth of bytes substituted in, matching
// the reference implementation's fallback for drivers that don't track
// actual block usage.
func (vol *Volume) DnodeStat(ctx context.Context, dn *Dnode) (DnodeStat, error) {
	if err := vol.DnodeFill(ctx, dn); err != nil {
		return DnodeStat{}, err
	}
	st, err := vol.Driver.DnodeStat(ctx, dn)
	if err != nil {
		return DnodeStat{}, fmt.Errorf("stat dnode %+v: %w", dn.ID, err)
	}
	if st.UsedBytes == 0 {
		blocks := (dn.Size + uint64(vol.LogBlockSize) - 1) / uint64(vol.LogBlockSize)
		st.UsedBytes = blocks * uint64(vol.LogBlockSize)
	}
	return st, nil
}

// DnodeDirRead reads the next directory entry through shand, which must
// have been opened on a directory dnode.
func (vol *Volume) DnodeDirRead(ctx context.Context, shand *Shandle) (*Dnode, error) {
	if err := vol.DnodeFill(ctx, shand.Dnode); err != nil {
		return nil, err
	}
	if shand.Dnode.Type != TypeDir {
		return nil, fmt.Errorf("dir read: %w", ErrUnsupported)
	}
	child, err := vol.Driver.DirRead(ctx, shand)
	if err != nil {
		return nil, fmt.Errorf("dir read: %w", err)
	}
	return child, nil
}

// Readlink returns the target path text of symlink dnode dn.
func (vol *Volume) Readlink(ctx context.Context, dn *Dnode) (String, error) {
	if err := vol.DnodeFill(ctx, dn); err != nil {
		return String{}, err
	}
	if dn.Type != TypeSymlink {
		return String{}, fmt.Errorf("readlink: %w", ErrUnsupported)
	}
	target, err := vol.Driver.Readlink(ctx, dn)
	if err != nil {
		return String{}, fmt.Errorf("readlink: %w", err)
	}
	return target, nil
}
