package fsw_test

import (
	"context"
	"fmt"

	"github.com/refitfs/gofsw/fsw"
)

// fakeHost is an in-memory fsw.HostAdapter over a byte slice, used by the
// core package's own tests and as a template for driver-package tests.
type fakeHost struct {
	data      []byte
	readCount int
}

func (h *fakeHost) ReadBlock(ctx context.Context, vol *fsw.Volume, physBno uint32) ([]byte, error) {
	h.readCount++
	size := int(vol.PhysBlockSize)
	off := int(physBno) * size
	if off+size > len(h.data) {
		return nil, fmt.Errorf("%w: block %d out of range", fsw.ErrIO, physBno)
	}
	return h.data[off : off+size], nil
}

func (h *fakeHost) ChangeBlockSize(vol *fsw.Volume, oldPhys, oldLog, newPhys, newLog uint32) {}

// fakeDriver is a minimal fsw.Driver backing a single in-memory directory
// tree, used to exercise the core engine's path lookup, symlink
// resolution and refcount behavior independent of any real on-disk
// format.
type fakeDriver struct {
	nodes map[uint32]*fakeNode
}

type fakeNode struct {
	typ      fsw.DnodeType
	children map[string]uint32
	target   string // symlink target
	data     []byte // file content
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{nodes: map[uint32]*fakeNode{
		1: {typ: fsw.TypeDir, children: map[string]uint32{"a": 2, "link": 3, "self": 1, "dir": 4}},
		2: {typ: fsw.TypeFile, data: []byte("hello world")},
		3: {typ: fsw.TypeSymlink, target: "a"},
		4: {typ: fsw.TypeDir, children: map[string]uint32{}},
	}}
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) VolumeMount(ctx context.Context, vol *fsw.Volume) error {
	vol.Root = vol.CreateRootDnode(fsw.DnodeID{Object: 1})
	return nil
}

func (d *fakeDriver) VolumeFree(vol *fsw.Volume) {}

func (d *fakeDriver) VolumeStat(ctx context.Context, vol *fsw.Volume) (uint64, uint64, error) {
	return 0, 0, nil
}

func (d *fakeDriver) DnodeFill(ctx context.Context, dn *fsw.Dnode) error {
	n, ok := d.nodes[dn.ID.Object]
	if !ok {
		return fsw.ErrNotFound
	}
	dn.Type = n.typ
	dn.Size = uint64(len(n.data))
	dn.Payload = n
	return nil
}

func (d *fakeDriver) DnodeFree(dn *fsw.Dnode) { dn.Payload = nil }

func (d *fakeDriver) DnodeStat(ctx context.Context, dn *fsw.Dnode) (fsw.DnodeStat, error) {
	return fsw.DnodeStat{}, nil
}

func (d *fakeDriver) GetExtent(ctx context.Context, dn *fsw.Dnode, ext *fsw.Extent) error {
	n := dn.Payload.(*fakeNode)
	ext.Kind = fsw.ExtentBuffer
	ext.Buffer = n.data
	ext.LogCount = 1
	return nil
}

func (d *fakeDriver) DirLookup(ctx context.Context, dn *fsw.Dnode, name fsw.String) (*fsw.Dnode, error) {
	n := dn.Payload.(*fakeNode)
	id, ok := n.children[name.GoString()]
	if !ok {
		return nil, fsw.ErrNotFound
	}
	return dn.Vol.CreateDnode(dn, fsw.DnodeID{Object: id}, name)
}

func (d *fakeDriver) DirRead(ctx context.Context, shand *fsw.Shandle) (*fsw.Dnode, error) {
	return nil, nil
}

func (d *fakeDriver) Readlink(ctx context.Context, dn *fsw.Dnode) (fsw.String, error) {
	n := dn.Payload.(*fakeNode)
	return fsw.String{Encoding: fsw.EncodingUTF8, CharCount: len(n.target), Data: []byte(n.target)}, nil
}

func pathStr(s string) fsw.String {
	return fsw.String{Encoding: fsw.EncodingUTF8, CharCount: len(s), Data: []byte(s)}
}
