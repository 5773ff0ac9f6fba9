// Package ext2 implements the fsw.Driver contract for read-only ext2
// volumes, grounded on the reference fsw_ext2.c/fsw_ext2.h sources: the
// superblock at byte offset 1024, group descriptors, a 128(+)-byte inode
// table entry, 4-byte-aligned variable-length directory entries, and a
// 4-level direct/indirect/double-indirect/triple-indirect block map with
// forward-run coalescing.
package ext2

import "encoding/binary"

const (
	// SuperblockOffset is the fixed byte offset of the ext2 superblock,
	// independent of the volume's eventual block size.
	SuperblockOffset = 1024
	superblockSize   = 1024

	magicExt2 = 0xEF53

	revGoodOld = 0
	revDynamic = 1

	incompatFiletype   = 0x0002
	incompatRecover    = 0x0004
	incompatSupported  = incompatFiletype | incompatRecover

	rootInode = 2

	// direct block pointer count plus the three indirection slots.
	blockPtrDirect    = 12
	blockPtrIndirect  = 12
	blockPtrDIndirect = 13
	blockPtrTIndirect = 14
	blockPtrCount     = 15
)

// superblock is the decoded subset of ext2_super_block fields the driver
// needs. Only the fields read by fsw_ext2_volume_mount are kept.
type superblock struct {
	InodesCount      uint32
	BlocksCount      uint32
	FreeBlocksCount  uint32
	FreeInodesCount  uint32
	FirstDataBlock   uint32
	LogBlockSize     uint32
	BlocksPerGroup   uint32
	InodesPerGroup   uint32
	Magic            uint16
	RevLevel         uint32
	InodeSize        uint16
	FeatureIncompat  uint32
	VolumeName       [16]byte
}

func parseSuperblock(b []byte) (superblock, error) {
	if len(b) < superblockSize {
		return superblock{}, errShort
	}
	var sb superblock
	sb.InodesCount = le32(b, 0)
	sb.BlocksCount = le32(b, 4)
	sb.FreeBlocksCount = le32(b, 12)
	sb.FreeInodesCount = le32(b, 16)
	sb.FirstDataBlock = le32(b, 20)
	sb.LogBlockSize = le32(b, 24)
	sb.BlocksPerGroup = le32(b, 32)
	sb.InodesPerGroup = le32(b, 40)
	sb.Magic = le16(b, 56)
	sb.RevLevel = le32(b, 76)
	sb.InodeSize = 128
	if sb.RevLevel == revDynamic {
		sb.InodeSize = le16(b, 88)
		sb.FeatureIncompat = le32(b, 96)
	}
	copy(sb.VolumeName[:], b[120:136])
	return sb, nil
}

// groupDesc is the decoded ext2_group_desc fields the driver needs.
type groupDesc struct {
	InodeTable uint32
}

const groupDescSize = 32

func parseGroupDesc(b []byte) groupDesc {
	return groupDesc{InodeTable: le32(b, 8)}
}

// RawInode is the decoded ext2_inode record, kept verbatim as a dnode's
// driver Payload.
type RawInode struct {
	Mode       uint16
	SizeLo     uint32
	SizeHi     uint32 // i_dir_acl, upper size bits for regular files
	ATime      uint32
	CTime      uint32
	MTime      uint32
	LinksCount uint16
	Blocks512  uint32 // i_blocks, in 512-byte sectors
	Block      [blockPtrCount]uint32
}

func parseInode(b []byte) RawInode {
	var in RawInode
	in.Mode = le16(b, 0)
	in.SizeLo = le32(b, 4)
	in.ATime = le32(b, 8)
	in.CTime = le32(b, 12)
	in.MTime = le32(b, 16)
	in.LinksCount = le16(b, 26)
	in.Blocks512 = le32(b, 28)
	for i := 0; i < blockPtrCount; i++ {
		in.Block[i] = le32(b, 40+i*4)
	}
	in.SizeHi = le32(b, 108)
	return in
}

// POSIX S_IF* mode bits, from fsw_core.h's mode macros.
const (
	modeFmt     = 0xF000
	modeFmtReg  = 0x8000
	modeFmtDir  = 0x4000
	modeFmtLink = 0xA000
)

func le16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off : off+2]) }
func le32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }
