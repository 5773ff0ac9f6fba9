package fsw

import "context"

// HostAdapter is the environment a Volume is mounted against: something
// that can hand back physical blocks and be told when the volume's block
// size changes. fsw/hostfile implements this over a raw disk image file;
// tests implement it over an in-memory byte slice.
//
// ReadBlock's returned slice is only guaranteed valid until the adapter's
// next ReadBlock call for the same Volume — adapters are expected to keep
// at most one block cached at a time, mirroring the single-slot host
// buffer the core engine was designed against. Callers that need a block's
// contents to outlive the next read must copy it.
type HostAdapter interface {
	ReadBlock(ctx context.Context, vol *Volume, physBno uint32) ([]byte, error)
	ChangeBlockSize(vol *Volume, oldPhys, oldLog, newPhys, newLog uint32)
}

// DnodeID identifies an on-disk object within a volume. Ext2 only ever
// populates Object (its inode number); ReiserFS populates both Dir
// (the containing directory's object id, "parent key") and Object, since a
// ReiserFS stat-data item is addressed by the pair.
type DnodeID struct {
	Dir    uint32
	Object uint32
}

// Driver is the Go realization of the fsw_fstype_table function pointer
// set: everything a concrete on-disk format must supply so the core engine
// can mount, walk and read it. Name is the driver's label ("ext2",
// "reiserfs") used in logs and CLI driver selection.
type Driver interface {
	Name() string

	// VolumeMount probes and mounts vol, whose HostAdapter and Volume
	// fields are already populated. On success it must have set vol.Root
	// to the volume's root dnode (created via vol.CreateRootDnode).
	VolumeMount(ctx context.Context, vol *Volume) error

	// VolumeFree releases any driver-private volume state. The core
	// engine has already released vol.Root by the time this is called.
	VolumeFree(vol *Volume)

	// VolumeStat reports capacity in bytes.
	VolumeStat(ctx context.Context, vol *Volume) (totalBytes, freeBytes uint64, err error)

	// DnodeFill populates dn.Type, dn.Size and dn.Payload (driver-private
	// on-disk record) for a dnode that was just created by identity alone
	// (CreateDnode sets only vol/parent/id/name). Filling the same dnode
	// twice must be a cheap no-op once dn.Payload is set.
	DnodeFill(ctx context.Context, dn *Dnode) error

	// DnodeFree releases driver-private state attached to dn.Payload.
	DnodeFree(dn *Dnode)

	// DnodeStat reports used_bytes and POSIX mode/timestamps for a filled
	// dnode. Returning used_bytes == 0 tells the core engine to fall back
	// to a default estimate (ceil(size / block size)).
	DnodeStat(ctx context.Context, dn *Dnode) (DnodeStat, error)

	// GetExtent resolves the logical block at ext.LogStart for dn (a
	// filled dnode; a directory too, when its driver reads directory data
	// through a stream handle, as ext2 does) into an Extent. Implementations may
	// widen ext.LogCount beyond 1 to describe a longer contiguous run.
	GetExtent(ctx context.Context, dn *Dnode, ext *Extent) error

	// DirLookup resolves one path component (lookupName, already in the
	// volume's native encoding) inside the filled directory dn, returning
	// the matching child dnode (created/deduped via vol.CreateDnode).
	DirLookup(ctx context.Context, dn *Dnode, lookupName String) (*Dnode, error)

	// DirRead returns the next directory entry at shand's current
	// position, advancing it, or (nil, nil) at end of directory. "." and
	// ".." are never reported.
	DirRead(ctx context.Context, shand *Shandle) (*Dnode, error)

	// Readlink returns the target path text of a symlink dnode. Drivers
	// that do not support symlinks return ErrUnsupported.
	Readlink(ctx context.Context, dn *Dnode) (String, error)
}

// DnodeStat is the extended, driver-supplied half of a dnode's metadata
// that the core engine does not itself track (size/type/name are on the
// Dnode already).
type DnodeStat struct {
	UsedBytes uint64
	ModePosix uint32
	ATime     int64
	MTime     int64
	CTime     int64
}
