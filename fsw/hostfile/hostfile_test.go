package hostfile_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/refitfs/gofsw/fsw"
	"github.com/refitfs/gofsw/fsw/hostfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockVolume(host fsw.HostAdapter, physBlockSize uint32) *fsw.Volume {
	vol := &fsw.Volume{Host: host}
	vol.SetBlockSize(physBlockSize, physBlockSize)
	return vol
}

func TestReadBlockReadsAtOffset(t *testing.T) {
	img := make([]byte, 4096)
	copy(img[1024:1028], []byte("BLK1"))
	a := hostfile.New(bytes.NewReader(img), 0)
	vol := blockVolume(a, 1024)

	b, err := a.ReadBlock(context.Background(), vol, 1)
	require.NoError(t, err)
	assert.Equal(t, "BLK1", string(b[:4]))
}

func TestReadBlockHonorsByteOffset(t *testing.T) {
	img := make([]byte, 8192)
	copy(img[512+1024:512+1028], []byte("PART"))
	a := hostfile.New(bytes.NewReader(img), 512)
	vol := blockVolume(a, 1024)

	b, err := a.ReadBlock(context.Background(), vol, 1)
	require.NoError(t, err)
	assert.Equal(t, "PART", string(b[:4]))
}

func TestReadBlockCachesSingleSlot(t *testing.T) {
	img := make([]byte, 4096)
	a := hostfile.New(bytes.NewReader(img), 0)
	vol := blockVolume(a, 1024)
	ctx := context.Background()

	b1, err := a.ReadBlock(ctx, vol, 2)
	require.NoError(t, err)
	b2, err := a.ReadBlock(ctx, vol, 2)
	require.NoError(t, err)
	assert.Same(t, &b1[0], &b2[0], "repeated reads of the same block should return the cached slice")
}

func TestReadBlockPastEndOfImageIsIOError(t *testing.T) {
	img := make([]byte, 1024)
	a := hostfile.New(bytes.NewReader(img), 0)
	vol := blockVolume(a, 1024)

	_, err := a.ReadBlock(context.Background(), vol, 5)
	assert.ErrorIs(t, err, fsw.ErrIO)
}

func TestChangeBlockSizeInvalidatesCache(t *testing.T) {
	img := make([]byte, 4096)
	copy(img[0:4], []byte("AAAA"))
	copy(img[2048:2052], []byte("BBBB"))
	a := hostfile.New(bytes.NewReader(img), 0)
	vol := blockVolume(a, 1024)
	ctx := context.Background()

	_, err := a.ReadBlock(ctx, vol, 1)
	require.NoError(t, err)

	vol.SetBlockSize(2048, 2048)
	b, err := a.ReadBlock(ctx, vol, 1)
	require.NoError(t, err)
	assert.Equal(t, "BBBB", string(b[:4]))
}
