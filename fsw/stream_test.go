package fsw_test

import (
	"context"
	"testing"

	"github.com/refitfs/gofsw/fsw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShandleReadClampsAtEOF(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	dn, err := vol.LookupPath(ctx, vol.Root, pathStr("a"), '/')
	require.NoError(t, err)
	defer vol.DnodeRelease(dn)

	shand, err := vol.ShandleOpen(ctx, dn)
	require.NoError(t, err)
	defer vol.ShandleClose(shand)

	buf := make([]byte, 1024)
	n, err := vol.ShandleRead(ctx, shand, buf)
	require.NoError(t, err)
	assert.Equal(t, len("hello world"), n)
	assert.Equal(t, "hello world", string(buf[:n]))

	n2, err := vol.ShandleRead(ctx, shand, buf)
	require.NoError(t, err)
	assert.Zero(t, n2, "reading past EOF must return 0, nil rather than an error")
}

// sparseFileDriver is a minimal fsw.Driver whose sole file is backed by a
// Sparse extent, to exercise zero-filled reads.
type sparseFileDriver struct{}

func (sparseFileDriver) Name() string { return "sparse" }
func (sparseFileDriver) VolumeMount(ctx context.Context, vol *fsw.Volume) error {
	vol.Root = vol.CreateRootDnode(fsw.DnodeID{Object: 1})
	return nil
}
func (sparseFileDriver) VolumeFree(vol *fsw.Volume) {}
func (sparseFileDriver) VolumeStat(ctx context.Context, vol *fsw.Volume) (uint64, uint64, error) {
	return 0, 0, nil
}
func (sparseFileDriver) DnodeFill(ctx context.Context, dn *fsw.Dnode) error {
	dn.Type = fsw.TypeFile
	dn.Size = 16
	dn.Payload = dn // just needs to be non-nil
	return nil
}
func (sparseFileDriver) DnodeFree(dn *fsw.Dnode)                                     {}
func (sparseFileDriver) DnodeStat(ctx context.Context, dn *fsw.Dnode) (fsw.DnodeStat, error) {
	return fsw.DnodeStat{}, nil
}
func (sparseFileDriver) GetExtent(ctx context.Context, dn *fsw.Dnode, ext *fsw.Extent) error {
	ext.Kind = fsw.ExtentSparse
	ext.LogCount = 1
	return nil
}
func (sparseFileDriver) DirLookup(ctx context.Context, dn *fsw.Dnode, name fsw.String) (*fsw.Dnode, error) {
	return nil, fsw.ErrNotFound
}
func (sparseFileDriver) DirRead(ctx context.Context, shand *fsw.Shandle) (*fsw.Dnode, error) {
	return nil, nil
}
func (sparseFileDriver) Readlink(ctx context.Context, dn *fsw.Dnode) (fsw.String, error) {
	return fsw.String{}, fsw.ErrUnsupported
}

func TestShandleReadSparseExtentIsZeroFilled(t *testing.T) {
	ctx := context.Background()
	vol, err := fsw.Mount(ctx, &fakeHost{}, sparseFileDriver{})
	require.NoError(t, err)
	defer vol.Unmount()

	shand, err := vol.ShandleOpen(ctx, vol.Root)
	require.NoError(t, err)
	defer vol.ShandleClose(shand)

	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := vol.ShandleRead(ctx, shand, buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	for _, b := range buf {
		assert.Zero(t, b)
	}
}
