package ext2

import (
	"context"
	"errors"
	"fmt"

	"github.com/refitfs/gofsw/fsw"
)

var errShort = errors.New("ext2: short buffer")

// Volume carries the ext2-specific geometry alongside the generic
// *fsw.Volume, mirroring fsw_ext2_volume's embedding of struct fsw_volume.
type Volume struct {
	*fsw.Volume
	sb        superblock
	indBcnt   uint32 // pointers per indirect block
	dindBcnt  uint32 // indBcnt^2
	inodeSize uint32
}

// driver implements fsw.Driver for ext2. Table is the package's single
// instance, analogous to the reference fsw_ext2_table.
type driver struct{}

// Table is the ext2 fsw.Driver implementation.
var Table fsw.Driver = driver{}

func (driver) Name() string { return "ext2" }

// VolumeMount probes for an ext2 superblock, following
// fsw_ext2_volume_mount: read the fixed 1024-byte-offset block at the
// bootstrap 1024/1024 geometry, validate magic and revision/feature bits,
// then switch to the volume's real block size before creating the root
// dnode.
func (driver) VolumeMount(ctx context.Context, gv *fsw.Volume) error {
	gv.SetBlockSize(superblockSize, superblockSize)
	blk, err := gv.ReadBlock(ctx, SuperblockOffset/superblockSize)
	if err != nil {
		return err
	}
	sb, err := parseSuperblock(blk)
	if err != nil {
		return fmt.Errorf("%w: %v", fsw.ErrVolumeCorrupted, err)
	}
	if sb.Magic != magicExt2 {
		return fmt.Errorf("bad magic %#x: %w", sb.Magic, fsw.ErrUnsupported)
	}
	if sb.RevLevel != revGoodOld && sb.RevLevel != revDynamic {
		return fmt.Errorf("unsupported revision %d: %w", sb.RevLevel, fsw.ErrUnsupported)
	}
	if sb.RevLevel == revDynamic && sb.FeatureIncompat&^uint32(incompatSupported) != 0 {
		return fmt.Errorf("unsupported incompat features %#x: %w", sb.FeatureIncompat, fsw.ErrUnsupported)
	}

	realBlockSize := uint32(1024) << sb.LogBlockSize
	gv.SetBlockSize(realBlockSize, realBlockSize)

	indBcnt := realBlockSize / 4

	gv.DriverState = &Volume{
		Volume:    gv,
		sb:        sb,
		indBcnt:   indBcnt,
		dindBcnt:  indBcnt * indBcnt,
		inodeSize: uint32(sb.InodeSize),
	}

	gv.Label = fsw.NewISO88591(trimNUL(sb.VolumeName[:]))
	gv.Root = gv.CreateRootDnode(fsw.DnodeID{Object: rootInode})
	return nil
}

func (driver) VolumeFree(gv *fsw.Volume) {
	gv.DriverState = nil
}

func state(gv *fsw.Volume) *Volume {
	return gv.DriverState.(*Volume)
}

func (driver) VolumeStat(ctx context.Context, gv *fsw.Volume) (total, free uint64, err error) {
	v := state(gv)
	total = uint64(v.sb.BlocksCount) * uint64(gv.LogBlockSize)
	free = uint64(v.sb.FreeBlocksCount) * uint64(gv.LogBlockSize)
	return total, free, nil
}

// DnodeFill follows fsw_ext2_dnode_fill: locate the inode's block group,
// the group descriptor, the inode table entry, and decode it.
func (driver) DnodeFill(ctx context.Context, dn *fsw.Dnode) error {
	v := state(dn.Vol)
	id := dn.ID.Object

	group := (id - 1) / v.sb.InodesPerGroup
	descsPerBlock := dn.Vol.PhysBlockSize / groupDescSize
	gdescBno := (v.sb.FirstDataBlock + 1) + group/descsPerBlock
	gdescIndex := group % descsPerBlock

	gdBlk, err := dn.Vol.ReadBlock(ctx, gdescBno)
	if err != nil {
		return err
	}
	off := int(gdescIndex) * groupDescSize
	if off+groupDescSize > len(gdBlk) {
		return fmt.Errorf("group descriptor out of range: %w", fsw.ErrVolumeCorrupted)
	}
	gd := parseGroupDesc(gdBlk[off : off+groupDescSize])

	inodesPerBlock := dn.Vol.PhysBlockSize / v.inodeSize
	inoInGroup := (id - 1) % v.sb.InodesPerGroup
	inoBno := gd.InodeTable + inoInGroup/inodesPerBlock
	inoIndex := inoInGroup % inodesPerBlock

	inoBlk, err := dn.Vol.ReadBlock(ctx, inoBno)
	if err != nil {
		return err
	}
	ioff := int(inoIndex) * int(v.inodeSize)
	if ioff+128 > len(inoBlk) {
		return fmt.Errorf("inode out of range: %w", fsw.ErrVolumeCorrupted)
	}
	raw := parseInode(inoBlk[ioff:])

	switch raw.Mode & modeFmt {
	case modeFmtReg:
		dn.Type = fsw.TypeFile
	case modeFmtDir:
		dn.Type = fsw.TypeDir
	case modeFmtLink:
		dn.Type = fsw.TypeSymlink
	default:
		dn.Type = fsw.TypeSpecial
	}
	dn.Size = uint64(raw.SizeLo)
	dn.Payload = &raw
	return nil
}

func (driver) DnodeFree(dn *fsw.Dnode) {
	dn.Payload = nil
}

func (driver) DnodeStat(ctx context.Context, dn *fsw.Dnode) (fsw.DnodeStat, error) {
	raw := dn.Payload.(*RawInode)
	return fsw.DnodeStat{
		UsedBytes: uint64(raw.Blocks512) * 512,
		ModePosix: uint32(raw.Mode),
		ATime:     int64(raw.ATime),
		MTime:     int64(raw.MTime),
		CTime:     int64(raw.CTime),
	}, nil
}

// GetExtent follows fsw_ext2_get_extent's 4-level block map (direct,
// single, double, triple indirect) and coalesces forward-contiguous runs
// within the same indirect block, exactly as the reference driver does.
func (driver) GetExtent(ctx context.Context, dn *fsw.Dnode, ext *fsw.Extent) error {
	v := state(dn.Vol)
	raw := dn.Payload.(*RawInode)
	bno := ext.LogStart

	var path []uint32 // sequence of block-pointer-table indices to follow
	switch {
	case bno < blockPtrDirect:
		phys := raw.Block[bno]
		return fillSingle(ext, phys)
	case bno-blockPtrDirect < v.indBcnt:
		rel := bno - blockPtrDirect
		path = []uint32{blockPtrIndirect, rel}
	case bno-blockPtrDirect-v.indBcnt < v.dindBcnt:
		rel := bno - blockPtrDirect - v.indBcnt
		path = []uint32{blockPtrDIndirect, rel / v.indBcnt, rel % v.indBcnt}
	default:
		rel := bno - blockPtrDirect - v.indBcnt - v.dindBcnt
		path = []uint32{blockPtrTIndirect, rel / v.dindBcnt, (rel / v.indBcnt) % v.indBcnt, rel % v.indBcnt}
	}

	phys := raw.Block[path[0]]
	var blockBuf []byte
	for i := 1; i < len(path); i++ {
		if phys == 0 {
			ext.Kind = fsw.ExtentSparse
			ext.LogCount = 1
			return nil
		}
		blk, err := dn.Vol.ReadBlock(ctx, phys)
		if err != nil {
			return err
		}
		blockBuf = blk
		idx := path[i]
		if int(idx)*4+4 > len(blockBuf) {
			return fmt.Errorf("indirect block index out of range: %w", fsw.ErrVolumeCorrupted)
		}
		phys = le32(blockBuf, int(idx)*4)
	}

	if phys == 0 {
		ext.Kind = fsw.ExtentSparse
		ext.LogCount = 1
		return nil
	}
	ext.Kind = fsw.ExtentPhysBlock
	ext.PhysStart = phys
	ext.LogCount = 1

	// Coalesce forward-contiguous physical runs described by consecutive
	// entries of the same indirect block, as fsw_ext2_get_extent does.
	if blockBuf != nil {
		idx := int(path[len(path)-1])
		totalBlocks := (dn.Size + uint64(dn.Vol.LogBlockSize) - 1) / uint64(dn.Vol.LogBlockSize)
		for {
			nextIdx := idx + int(ext.LogCount)
			if nextIdx*4+4 > len(blockBuf) {
				break
			}
			if uint64(ext.LogStart+ext.LogCount) >= totalBlocks {
				break
			}
			next := le32(blockBuf, nextIdx*4)
			if next != phys+ext.LogCount {
				break
			}
			ext.LogCount++
		}
	}
	return nil
}

func fillSingle(ext *fsw.Extent, phys uint32) error {
	ext.LogCount = 1
	if phys == 0 {
		ext.Kind = fsw.ExtentSparse
		return nil
	}
	ext.Kind = fsw.ExtentPhysBlock
	ext.PhysStart = phys
	return nil
}

// DirLookup scans dn's directory entries linearly for lookupName,
// following fsw_ext2_dir_lookup.
func (driver) DirLookup(ctx context.Context, dn *fsw.Dnode, lookupName fsw.String) (*fsw.Dnode, error) {
	shand, err := dn.Vol.ShandleOpen(ctx, dn)
	if err != nil {
		return nil, err
	}
	defer dn.Vol.ShandleClose(shand)

	for {
		ino, name, err := readDentry(ctx, dn.Vol, shand)
		if err != nil {
			return nil, err
		}
		if ino == 0 {
			return nil, fsw.ErrNotFound
		}
		if lookupName.Equal(name) {
			return dn.Vol.CreateDnode(dn, fsw.DnodeID{Object: ino}, name)
		}
	}
}

// DirRead returns the next non-"."/".." directory entry, following
// fsw_ext2_dir_read.
func (driver) DirRead(ctx context.Context, shand *fsw.Shandle) (*fsw.Dnode, error) {
	dn := shand.Dnode
	for {
		ino, name, err := readDentry(ctx, dn.Vol, shand)
		if err != nil {
			return nil, err
		}
		if ino == 0 {
			return nil, nil
		}
		if name.EqualCString(".") || name.EqualCString("..") {
			continue
		}
		return dn.Vol.CreateDnode(dn, fsw.DnodeID{Object: ino}, name)
	}
}

// readDentry reads one directory entry at shand's current position,
// following fsw_ext2_read_dentry: an 8-byte header (inode, rec_len,
// name_len, file_type) then the name, 4-byte padded. rec_len == 0 signals
// end of directory (reported as ino==0, nil error).
func readDentry(ctx context.Context, vol *fsw.Volume, shand *fsw.Shandle) (uint32, fsw.String, error) {
	for {
		var hdr [8]byte
		n, err := vol.ShandleRead(ctx, shand, hdr[:])
		if err != nil {
			return 0, fsw.String{}, err
		}
		if n < 8 {
			return 0, fsw.String{}, nil
		}
		ino := le32(hdr[:], 0)
		recLen := le16(hdr[:], 4)
		nameLen := hdr[6]
		if recLen == 0 {
			return 0, fsw.String{}, nil
		}
		if recLen < 8 {
			return 0, fsw.String{}, fmt.Errorf("dirent rec_len %d too small: %w", recLen, fsw.ErrVolumeCorrupted)
		}
		if recLen < 8+uint16(nameLen) {
			return 0, fsw.String{}, fmt.Errorf("dirent rec_len %d shorter than name: %w", recLen, fsw.ErrVolumeCorrupted)
		}
		if ino == 0 {
			// unused slot: skip the remainder of the record and continue.
			if _, err := skip(ctx, vol, shand, int(recLen)-8); err != nil {
				return 0, fsw.String{}, err
			}
			continue
		}
		name := make([]byte, nameLen)
		if _, err := vol.ShandleRead(ctx, shand, name); err != nil {
			return 0, fsw.String{}, err
		}
		pad := int(recLen) - 8 - int(nameLen)
		if pad > 0 {
			if _, err := skip(ctx, vol, shand, pad); err != nil {
				return 0, fsw.String{}, err
			}
		}
		return ino, fsw.NewISO88591(name), nil
	}
}

func skip(ctx context.Context, vol *fsw.Volume, shand *fsw.Shandle, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	buf := make([]byte, n)
	return vol.ShandleRead(ctx, shand, buf)
}

// Readlink is unimplemented, matching fsw_ext2_readlink's stub.
func (driver) Readlink(ctx context.Context, dn *fsw.Dnode) (fsw.String, error) {
	return fsw.String{}, fsw.ErrUnsupported
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
