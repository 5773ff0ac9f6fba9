package reiserfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/refitfs/gofsw/fsw"
)

var (
	errShort   = errors.New("reiserfs: short buffer")
	errNoMagic = errors.New("reiserfs: no reiserfs magic found")
)

// Volume carries the ReiserFS-specific geometry alongside the generic
// *fsw.Volume, mirroring fsw_reiserfs_volume's embedding of struct
// fsw_volume.
type Volume struct {
	*fsw.Volume
	sb      superblock
	version int
}

type driver struct{}

// Table is the ReiserFS fsw.Driver implementation.
var Table fsw.Driver = driver{}

func (driver) Name() string { return "reiserfs" }

// VolumeMount probes the two fixed superblock offsets (65536 preferred,
// 8192 legacy), following fsw_reiserfs_volume_mount.
func (driver) VolumeMount(ctx context.Context, gv *fsw.Volume) error {
	gv.SetBlockSize(probeBlockSize, probeBlockSize)

	var sb superblock
	var version int
	var err error
	found := false
	for _, byteOff := range []int64{diskOffsetStd, diskOffsetOld} {
		bno := uint32(byteOff / probeBlockSize)
		blk, rerr := gv.ReadBlock(ctx, bno)
		if rerr != nil {
			return rerr
		}
		inBlockOff := int(byteOff % probeBlockSize)
		if inBlockOff+superblockSize > len(blk) {
			continue
		}
		sb, version, err = parseSuperblock(blk[inBlockOff:])
		if err == nil {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no reiserfs superblock found: %w", fsw.ErrUnsupported)
	}
	if sb.RootBlock == 0xFFFFFFFF {
		return fmt.Errorf("root block missing: %w", fsw.ErrVolumeCorrupted)
	}

	gv.SetBlockSize(uint32(sb.BlockSize), uint32(sb.BlockSize))

	gv.DriverState = &Volume{Volume: gv, sb: sb, version: version}
	gv.Label = fsw.NewISO88591(trimNUL(sb.Label[:]))
	gv.Root = gv.CreateRootDnode(fsw.DnodeID{Dir: rootParentObjectID, Object: rootObjectID})
	return nil
}

func (driver) VolumeFree(gv *fsw.Volume) {
	gv.DriverState = nil
}

func (driver) VolumeStat(ctx context.Context, gv *fsw.Volume) (total, free uint64, err error) {
	v := state(gv)
	total = uint64(v.sb.BlockCount) * uint64(gv.LogBlockSize)
	return total, 0, nil
}

func state(gv *fsw.Volume) *Volume {
	return gv.DriverState.(*Volume)
}

// searchResult is what searchKey returns: the item head found and a copy
// of its on-disk payload bytes (copied out of the host adapter's
// single-slot block buffer before it can be reused by a later read).
type searchResult struct {
	Head     itemHead
	Data     []byte
	ItemOff  uint64 // key offset of the start of this item (0 if not found)
}

// searchKey descends the B+-tree from the superblock's root block looking
// for the item addressed by (dirID, objectID, offset), following
// fsw_reiserfs_search_key. If no item with that exact key exists, it
// returns the nearest preceding item belonging to the same object (so
// callers can detect "object has no such item" vs "object does not
// exist"); a zero searchResult (nil Data) with a nil error signals nothing
// was found for this object at all. A found stat-data item also has
// ItemOff == 0, so callers tell the two apart by Data.
func (v *Volume) searchKey(ctx context.Context, dirID, objectID uint32, offset uint64) (searchResult, error) {
	bno := v.sb.RootBlock
	for {
		blk, err := v.ReadBlock(ctx, bno)
		if err != nil {
			return searchResult{}, err
		}
		if len(blk) < blkhSize {
			return searchResult{}, fmt.Errorf("short tree block: %w", fsw.ErrVolumeCorrupted)
		}
		bh := parseBlockHead(blk)
		if bh.Level != leafNodeLevel {
			child, err := v.descendInternal(blk, bh, dirID, objectID, offset)
			if err != nil {
				return searchResult{}, err
			}
			bno = child
			continue
		}
		return v.scanLeaf(blk, bh, dirID, objectID, offset)
	}
}

func (v *Volume) descendInternal(blk []byte, bh blockHead, dirID, objectID uint32, offset uint64) (uint32, error) {
	keysOff := blkhSize
	childrenOff := keysOff + int(bh.NrItem)*keySize
	i := 0
	for ; i < int(bh.NrItem); i++ {
		off := keysOff + i*keySize
		if off+keySize > len(blk) {
			return 0, fmt.Errorf("internal node key out of range: %w", fsw.ErrVolumeCorrupted)
		}
		k := parseKey(blk[off : off+keySize])
		if compareKeyTriple(dirID, objectID, offset, k) < 0 {
			break
		}
	}
	childOff := childrenOff + i*diskChildSize
	if childOff+diskChildSize > len(blk) {
		return 0, fmt.Errorf("internal node child out of range: %w", fsw.ErrVolumeCorrupted)
	}
	return parseDiskChildBlockNumber(blk[childOff : childOff+diskChildSize]), nil
}

func (v *Volume) scanLeaf(blk []byte, bh blockHead, dirID, objectID uint32, offset uint64) (searchResult, error) {
	itemsOff := blkhSize
	i := 0
	var ih itemHead
	matched := false
	for ; i < int(bh.NrItem); i++ {
		off := itemsOff + i*itemHeadSize
		if off+itemHeadSize > len(blk) {
			return searchResult{}, fmt.Errorf("leaf item head out of range: %w", fsw.ErrVolumeCorrupted)
		}
		ih = parseItemHead(blk[off : off+itemHeadSize])
		cmp := compareKeyTriple(dirID, objectID, offset, ih.Key)
		if cmp == 0 {
			matched = true
			break
		}
		if cmp < 0 {
			break
		}
	}
	if !matched {
		if i == 0 {
			return searchResult{}, nil
		}
		i--
		off := itemsOff + i*itemHeadSize
		ih = parseItemHead(blk[off : off+itemHeadSize])
		if ih.Key.DirID != dirID || ih.Key.ObjectID != objectID {
			return searchResult{}, nil
		}
	}

	dataOff := int(ih.Location)
	dataEnd := dataOff + int(ih.ItemLen)
	if dataOff < 0 || dataEnd > len(blk) {
		return searchResult{}, fmt.Errorf("item data out of range: %w", fsw.ErrVolumeCorrupted)
	}
	data := make([]byte, ih.ItemLen)
	copy(data, blk[dataOff:dataEnd])
	return searchResult{Head: ih, Data: data, ItemOff: ih.Key.Offset}, nil
}

// compareKeyTriple orders (dirID, objectID, offset) against k, following
// fsw_reiserfs_compare_key's ordering: dir_id, then objectid, then offset.
// Returns <0 if the triple sorts before k, 0 if equal, >0 if after.
func compareKeyTriple(dirID, objectID uint32, offset uint64, k key) int {
	if dirID != k.DirID {
		if dirID < k.DirID {
			return -1
		}
		return 1
	}
	if objectID != k.ObjectID {
		if objectID < k.ObjectID {
			return -1
		}
		return 1
	}
	if offset != k.Offset {
		if offset < k.Offset {
			return -1
		}
		return 1
	}
	return 0
}

// DnodeFill locates an object's stat-data item and dispatches on its
// item-head version/length to decode either a v1 or v2 stat record,
// following fsw_reiserfs_dnode_fill.
func (driver) DnodeFill(ctx context.Context, dn *fsw.Dnode) error {
	v := state(dn.Vol)
	res, err := v.searchKey(ctx, dn.ID.Dir, dn.ID.Object, 0)
	if err != nil {
		return err
	}
	if res.Data == nil || res.ItemOff != 0 {
		return fmt.Errorf("stat data not found: %w", fsw.ErrVolumeCorrupted)
	}

	var mode uint16
	switch {
	case res.Head.Version == keyFormat35 && len(res.Data) == sdV1Size:
		sd := parseStatDataV1(res.Data)
		mode = sd.Mode
		dn.Size = uint64(sd.Size)
		dn.Payload = &sd
	case res.Head.Version == keyFormat36 && len(res.Data) == sdV2Size:
		sd := parseStatDataV2(res.Data)
		mode = sd.Mode
		dn.Size = sd.Size
		dn.Payload = &sd
	default:
		return fmt.Errorf("unrecognized stat data item (version=%d len=%d): %w", res.Head.Version, len(res.Data), fsw.ErrVolumeCorrupted)
	}

	switch mode & modeFmt {
	case modeFmtReg:
		dn.Type = fsw.TypeFile
	case modeFmtDir:
		dn.Type = fsw.TypeDir
	case modeFmtLink:
		dn.Type = fsw.TypeSymlink
	default:
		dn.Type = fsw.TypeSpecial
	}
	return nil
}

func (driver) DnodeFree(dn *fsw.Dnode) {
	dn.Payload = nil
}

func (driver) DnodeStat(ctx context.Context, dn *fsw.Dnode) (fsw.DnodeStat, error) {
	switch sd := dn.Payload.(type) {
	case *statDataV1:
		used := uint64(sd.Blocks) * uint64(dn.Vol.LogBlockSize)
		if dn.Type == fsw.TypeSpecial {
			used = 0
		}
		return fsw.DnodeStat{UsedBytes: used, ModePosix: uint32(sd.Mode), ATime: int64(sd.ATime), MTime: int64(sd.MTime), CTime: int64(sd.CTime)}, nil
	case *statDataV2:
		used := uint64(sd.Blocks) * uint64(dn.Vol.LogBlockSize)
		return fsw.DnodeStat{UsedBytes: used, ModePosix: uint32(sd.Mode), ATime: int64(sd.ATime), MTime: int64(sd.MTime), CTime: int64(sd.CTime)}, nil
	default:
		return fsw.DnodeStat{}, fmt.Errorf("unfilled dnode: %w", fsw.ErrUnknown)
	}
}

// GetExtent resolves the logical block at ext.LogStart by searching for
// the indirect or direct item covering that byte offset, following
// fsw_reiserfs_get_extent. No coalescing across items or array entries is
// performed, matching the reference driver's own TODO-marked gap.
func (driver) GetExtent(ctx context.Context, dn *fsw.Dnode, ext *fsw.Extent) error {
	v := state(dn.Vol)
	searchOffset := uint64(ext.LogStart)*uint64(dn.Vol.LogBlockSize) + 1

	res, err := v.searchKey(ctx, dn.ID.Dir, dn.ID.Object, searchOffset)
	if err != nil {
		return err
	}
	if res.Data == nil {
		ext.Kind = fsw.ExtentSparse
		ext.LogCount = 1
		return nil
	}
	if res.ItemOff == 0 {
		ext.Kind = fsw.ExtentSparse
		ext.LogCount = 1
		return nil
	}

	intraOffset := searchOffset - res.ItemOff
	ext.LogCount = 1

	switch res.Head.Key.ItemType {
	case typeIndirect:
		if intraOffset%uint64(dn.Vol.LogBlockSize) != 0 {
			return fmt.Errorf("indirect item misaligned: %w", fsw.ErrVolumeCorrupted)
		}
		intraBno := int(intraOffset / uint64(dn.Vol.LogBlockSize))
		nrItem := len(res.Data) / 4
		if intraBno >= nrItem {
			return fmt.Errorf("indirect item index out of range: %w", fsw.ErrVolumeCorrupted)
		}
		phys := le32(res.Data, intraBno*4)
		if phys == 0 {
			ext.Kind = fsw.ExtentSparse
		} else {
			ext.Kind = fsw.ExtentPhysBlock
			ext.PhysStart = phys
		}
		return nil
	case typeDirect:
		if intraOffset != 0 {
			return fmt.Errorf("direct item misaligned: %w", fsw.ErrVolumeCorrupted)
		}
		ext.Kind = fsw.ExtentBuffer
		ext.Buffer = res.Data
		return nil
	default:
		return fmt.Errorf("unexpected item type for extent: %w", fsw.ErrVolumeCorrupted)
	}
}

// DirLookup searches dn's first directory item for lookupName, following
// fsw_reiserfs_dir_lookup. Only the first item of a directory's entries is
// examined; directories whose entries spill into a second tree item are
// not fully enumerable, matching the reference driver's documented
// limitation.
func (driver) DirLookup(ctx context.Context, dn *fsw.Dnode, lookupName fsw.String) (*fsw.Dnode, error) {
	v := state(dn.Vol)
	res, err := v.searchKey(ctx, dn.ID.Dir, dn.ID.Object, firstItemOffset)
	if err != nil {
		return nil, err
	}
	if res.Data == nil || res.ItemOff == 0 {
		return nil, fsw.ErrNotFound
	}

	entries := int(res.Head.EntryCount)
	for i := 0; i < entries; i++ {
		dehOff := i * dehSize
		if dehOff+dehSize > len(res.Data) {
			return nil, fmt.Errorf("dir entry head out of range: %w", fsw.ErrVolumeCorrupted)
		}
		deh := parseDirEntryHead(res.Data[dehOff : dehOff+dehSize])

		nameStart := int(deh.Location)
		nameEnd := len(res.Data)
		if i > 0 {
			prevOff := (i - 1) * dehSize
			prev := parseDirEntryHead(res.Data[prevOff : prevOff+dehSize])
			nameEnd = int(prev.Location)
		}
		if nameStart < 0 || nameEnd > len(res.Data) || nameStart > nameEnd {
			return nil, fmt.Errorf("dir entry name out of range: %w", fsw.ErrVolumeCorrupted)
		}
		name := trimNUL(res.Data[nameStart:nameEnd])
		nameStr := fsw.NewISO88591(name)
		if nameStr.EqualCString(".") || nameStr.EqualCString("..") || nameStr.EqualCString(".reiserfs_priv") {
			continue
		}
		if lookupName.Equal(nameStr) {
			return dn.Vol.CreateDnode(dn, fsw.DnodeID{Dir: dn.ID.Object, Object: deh.ObjectID}, nameStr)
		}
	}
	return nil, fsw.ErrNotFound
}

// DirRead returns the next entry past shand.Pos within dn's first
// directory item, following fsw_reiserfs_dir_read's bookmark convention.
// Same single-item limitation as DirLookup.
func (driver) DirRead(ctx context.Context, shand *fsw.Shandle) (*fsw.Dnode, error) {
	dn := shand.Dnode
	v := state(dn.Vol)
	if shand.Pos == 0 {
		shand.Pos = firstItemOffset
	}

	res, err := v.searchKey(ctx, dn.ID.Dir, dn.ID.Object, uint64(shand.Pos))
	if err != nil {
		return nil, err
	}
	if res.Data == nil || res.ItemOff == 0 {
		return nil, nil
	}

	entries := int(res.Head.EntryCount)
	for i := 0; i < entries; i++ {
		dehOff := i * dehSize
		if dehOff+dehSize > len(res.Data) {
			return nil, fmt.Errorf("dir entry head out of range: %w", fsw.ErrVolumeCorrupted)
		}
		deh := parseDirEntryHead(res.Data[dehOff : dehOff+dehSize])
		if uint64(deh.Offset) < uint64(shand.Pos) {
			continue
		}
		if deh.Offset == dotOffset || deh.Offset == dotDotOffset {
			continue
		}

		nameStart := int(deh.Location)
		nameEnd := len(res.Data)
		if i > 0 {
			prevOff := (i - 1) * dehSize
			prev := parseDirEntryHead(res.Data[prevOff : prevOff+dehSize])
			nameEnd = int(prev.Location)
		}
		if nameStart < 0 || nameEnd > len(res.Data) || nameStart > nameEnd {
			return nil, fmt.Errorf("dir entry name out of range: %w", fsw.ErrVolumeCorrupted)
		}
		name := trimNUL(res.Data[nameStart:nameEnd])
		nameStr := fsw.NewISO88591(name)
		if nameStr.EqualCString(".reiserfs_priv") {
			continue
		}

		shand.Pos = int64(deh.Offset) + 1
		return dn.Vol.CreateDnode(dn, fsw.DnodeID{Dir: dn.ID.Object, Object: deh.ObjectID}, nameStr)
	}
	return nil, nil
}

// Readlink reads a symlink's entire data stream as its target text,
// following fsw_reiserfs_readlink's use of the generic
// fsw_dnode_readlink_data helper (unlike ext2, ReiserFS symlinks are
// supported).
func (driver) Readlink(ctx context.Context, dn *fsw.Dnode) (fsw.String, error) {
	shand, err := dn.Vol.ShandleOpen(ctx, dn)
	if err != nil {
		return fsw.String{}, err
	}
	defer dn.Vol.ShandleClose(shand)

	buf := make([]byte, dn.Size)
	if _, err := dn.Vol.ShandleRead(ctx, shand, buf); err != nil {
		return fsw.String{}, err
	}
	return fsw.NewISO88591(buf), nil
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
