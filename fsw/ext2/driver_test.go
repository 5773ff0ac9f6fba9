package ext2_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/refitfs/gofsw/fsw"
	"github.com/refitfs/gofsw/fsw/ext2"
	"github.com/refitfs/gofsw/fsw/hostfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 1024

// buildImage lays out a minimal 6-block ext2 image by hand:
//
//	block 0: boot block (unused)
//	block 1: superblock
//	block 2: group descriptor table
//	block 3: inode table (root dir inode + one file inode)
//	block 4: root directory data (one entry: "hello.txt")
//	block 5: file data ("hello\n")
func buildImage(t *testing.T) []byte {
	t.Helper()
	img := make([]byte, 6*blockSize)

	sb := img[1*blockSize : 2*blockSize]
	putLE32(sb, 0, 128)          // s_inodes_count
	putLE32(sb, 4, 6)            // s_blocks_count
	putLE32(sb, 20, 1)           // s_first_data_block
	putLE32(sb, 24, 0)           // s_log_block_size -> 1024 << 0
	putLE32(sb, 32, 8192)        // s_blocks_per_group
	putLE32(sb, 40, 8)           // s_inodes_per_group
	binary.LittleEndian.PutUint16(sb[56:58], 0xEF53) // s_magic
	putLE32(sb, 76, 0)           // s_rev_level (GOOD_OLD)

	gdt := img[2*blockSize : 3*blockSize]
	putLE32(gdt, 8, 3) // bg_inode_table

	inodes := img[3*blockSize : 4*blockSize]
	rootOff := 1 * 128
	binary.LittleEndian.PutUint16(inodes[rootOff:rootOff+2], 0x41ED) // dir, 0755
	putLE32(inodes, rootOff+4, 1024)                                 // i_size
	putLE32(inodes, rootOff+40, 4)                                   // i_block[0]

	fileOff := 2 * 128
	binary.LittleEndian.PutUint16(inodes[fileOff:fileOff+2], 0x81A4) // regular, 0644
	putLE32(inodes, fileOff+4, 6)                                    // i_size
	putLE32(inodes, fileOff+40, 5)                                   // i_block[0]

	dirBlk := img[4*blockSize : 5*blockSize]
	putLE32(dirBlk, 0, 3)                               // inode
	binary.LittleEndian.PutUint16(dirBlk[4:6], 1024)    // rec_len spans rest of block
	dirBlk[6] = 9                                       // name_len
	dirBlk[7] = 1                                       // file_type: regular
	copy(dirBlk[8:17], "hello.txt")

	fileBlk := img[5*blockSize : 6*blockSize]
	copy(fileBlk, "hello\n")

	return img
}

func putLE32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

func mountImage(t *testing.T) *fsw.Volume {
	t.Helper()
	img := buildImage(t)
	host := hostfile.New(bytes.NewReader(img), 0)
	vol, err := fsw.Mount(context.Background(), host, ext2.Table)
	require.NoError(t, err)
	t.Cleanup(vol.Unmount)
	return vol
}

func TestMountValidatesMagic(t *testing.T) {
	img := buildImage(t)
	binary.LittleEndian.PutUint16(img[1*blockSize+56:1*blockSize+58], 0x1234)
	host := hostfile.New(bytes.NewReader(img), 0)
	_, err := fsw.Mount(context.Background(), host, ext2.Table)
	assert.ErrorIs(t, err, fsw.ErrUnsupported)
}

func TestDirLookupAndRead(t *testing.T) {
	vol := mountImage(t)
	ctx := context.Background()

	dn, err := vol.LookupPath(ctx, vol.Root, fsw.NewISO88591([]byte("hello.txt")), '/')
	require.NoError(t, err)
	defer vol.DnodeRelease(dn)

	require.NoError(t, vol.DnodeFill(ctx, dn))
	assert.Equal(t, fsw.TypeFile, dn.Type)
	assert.EqualValues(t, 6, dn.Size)

	shand, err := vol.ShandleOpen(ctx, dn)
	require.NoError(t, err)
	defer vol.ShandleClose(shand)

	buf := make([]byte, 6)
	n, err := vol.ShandleRead(ctx, shand, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(buf[:n]))
}

func TestLookupMissingFileNotFound(t *testing.T) {
	vol := mountImage(t)
	ctx := context.Background()

	_, err := vol.LookupPath(ctx, vol.Root, fsw.NewISO88591([]byte("missing")), '/')
	assert.ErrorIs(t, err, fsw.ErrNotFound)
}

func TestReadlinkUnsupported(t *testing.T) {
	vol := mountImage(t)
	ctx := context.Background()

	dn, err := vol.LookupPath(ctx, vol.Root, fsw.NewISO88591([]byte("hello.txt")), '/')
	require.NoError(t, err)
	defer vol.DnodeRelease(dn)
	require.NoError(t, vol.DnodeFill(ctx, dn))

	_, err = ext2.Table.Readlink(ctx, dn)
	assert.ErrorIs(t, err, fsw.ErrUnsupported)
}
