package fsw_test

import (
	"context"
	"testing"

	"github.com/refitfs/gofsw/fsw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountFake(t *testing.T) *fsw.Volume {
	t.Helper()
	ctx := context.Background()
	vol, err := fsw.Mount(ctx, &fakeHost{}, newFakeDriver())
	require.NoError(t, err)
	t.Cleanup(vol.Unmount)
	return vol
}

func TestLookupPathLeavesTerminalSymlinkUnresolved(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	dn, err := vol.LookupPath(ctx, vol.Root, pathStr("link"), '/')
	require.NoError(t, err)
	defer vol.DnodeRelease(dn)

	require.NoError(t, vol.DnodeFill(ctx, dn))
	assert.Equal(t, fsw.TypeSymlink, dn.Type, "lookup alone must not auto-dereference the final component")

	resolved, err := vol.DnodeResolve(ctx, dn)
	require.NoError(t, err)
	defer vol.DnodeRelease(resolved)
	assert.Equal(t, fsw.TypeFile, resolved.Type)
	assert.Equal(t, fsw.DnodeID{Object: 2}, resolved.ID)
}

func TestLookupPathIsIdempotentAndDedups(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	a1, err := vol.LookupPath(ctx, vol.Root, pathStr("a"), '/')
	require.NoError(t, err)
	a2, err := vol.LookupPath(ctx, vol.Root, pathStr("a"), '/')
	require.NoError(t, err)

	assert.Same(t, a1, a2, "two lookups of the same object must dedup to one dnode")
	vol.DnodeRelease(a1)
	vol.DnodeRelease(a2)
}

func TestLookupPathSelfAndParent(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	self, err := vol.LookupPath(ctx, vol.Root, pathStr("."), '/')
	require.NoError(t, err)
	assert.Same(t, vol.Root, self)
	vol.DnodeRelease(self)

	dir, err := vol.LookupPath(ctx, vol.Root, pathStr("dir"), '/')
	require.NoError(t, err)
	parent, err := vol.LookupPath(ctx, dir, pathStr(".."), '/')
	require.NoError(t, err)
	assert.Same(t, vol.Root, parent)
	vol.DnodeRelease(parent)
	vol.DnodeRelease(dir)
}

func TestLookupPathDotDotAtRootFails(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	_, err := vol.LookupPath(ctx, vol.Root, pathStr(".."), '/')
	assert.ErrorIs(t, err, fsw.ErrNotFound)
}

func TestLookupPathNotFound(t *testing.T) {
	vol := mountFake(t)
	ctx := context.Background()

	_, err := vol.LookupPath(ctx, vol.Root, pathStr("nope"), '/')
	assert.ErrorIs(t, err, fsw.ErrNotFound)
}

func TestSymlinkCycleIsBounded(t *testing.T) {
	ctx := context.Background()
	cyclic := &fakeDriver{nodes: map[uint32]*fakeNode{
		1: {typ: fsw.TypeDir, children: map[string]uint32{"x": 2}},
		2: {typ: fsw.TypeSymlink, target: "x"},
	}}
	// dnode 2's "lookup" for "x" inside its own parent (root) resolves
	// back to dnode 2 itself, forming a cycle.
	vol, err := fsw.Mount(ctx, &fakeHost{}, cyclic)
	require.NoError(t, err)
	defer vol.Unmount()

	dn, err := vol.LookupPath(ctx, vol.Root, pathStr("x"), '/')
	require.NoError(t, err)

	_, err = vol.DnodeResolve(ctx, dn)
	assert.ErrorIs(t, err, fsw.ErrUnsupported)
}
