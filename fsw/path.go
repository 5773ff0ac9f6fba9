package fsw

import (
	"context"
	"fmt"
)

// MaxSymlinkHops bounds symlink resolution depth, guarding against cycles
// that the on-disk format itself does not rule out. The reference
// implementation relies on the host environment's stack/time limits
// instead of an explicit counter; an explicit cap is the safer choice in a
// long-running Go process (recorded as an Open Question decision in
// DESIGN.md).
const MaxSymlinkHops = 40

// LookupPath resolves path (encoded in the volume's native string
// encoding, components separated by sep) starting from root, following
// symlinks along the way. The returned dnode is retained; callers must
// release it with vol.DnodeRelease when done.
func (vol *Volume) LookupPath(ctx context.Context, root *Dnode, path String, sep byte) (*Dnode, error) {
	vol.DnodeRetain(root)
	dno := root
	rest := path
	first := true

	for {
		var comp String
		var err error
		comp, rest, err = Split(rest, sep)
		if err != nil {
			vol.DnodeRelease(dno)
			return nil, err
		}

		if comp.IsEmpty() {
			if first {
				// leading separator: re-anchor at the volume root.
				vol.DnodeRelease(dno)
				vol.DnodeRetain(vol.Root)
				dno = vol.Root
			}
			if rest.IsEmpty() {
				break
			}
			first = false
			continue
		}
		first = false

		if err := vol.DnodeFill(ctx, dno); err != nil {
			vol.DnodeRelease(dno)
			return nil, err
		}
		resolved, err := vol.DnodeResolve(ctx, dno)
		if err != nil {
			vol.DnodeRelease(dno)
			return nil, err
		}
		vol.DnodeRelease(dno)
		dno = resolved

		if dno.Type != TypeDir {
			vol.DnodeRelease(dno)
			return nil, fmt.Errorf("lookup %q: not a directory: %w", comp.GoString(), ErrUnsupported)
		}

		switch {
		case comp.EqualCString("."):
			// stay on dno
		case comp.EqualCString(".."):
			if dno.Parent == nil {
				vol.DnodeRelease(dno)
				return nil, fmt.Errorf("lookup \"..\": %w", ErrNotFound)
			}
			parent := dno.Parent
			vol.DnodeRetain(parent)
			vol.DnodeRelease(dno)
			dno = parent
		default:
			child, err := vol.Driver.DirLookup(ctx, dno, comp)
			if err != nil {
				vol.DnodeRelease(dno)
				return nil, fmt.Errorf("lookup %q: %w", comp.GoString(), err)
			}
			vol.DnodeRelease(dno)
			dno = child
		}

		if rest.IsEmpty() {
			break
		}
	}

	return dno, nil
}

// DnodeResolve follows dn through symlinks (relative to dn's parent
// directory) until it names a non-symlink dnode, or MaxSymlinkHops is
// exceeded. The returned dnode carries its own retain (it may be dn
// itself); the caller's reference to dn is left in place and must still be
// released separately.
func (vol *Volume) DnodeResolve(ctx context.Context, dn *Dnode) (*Dnode, error) {
	vol.DnodeRetain(dn)
	for hop := 0; ; hop++ {
		if err := vol.DnodeFill(ctx, dn); err != nil {
			vol.DnodeRelease(dn)
			return nil, err
		}
		if dn.Type != TypeSymlink {
			return dn, nil
		}
		if hop >= MaxSymlinkHops {
			vol.DnodeRelease(dn)
			return nil, fmt.Errorf("resolve symlink: too many levels: %w", ErrUnsupported)
		}
		target, err := vol.Readlink(ctx, dn)
		if err != nil {
			vol.DnodeRelease(dn)
			return nil, err
		}
		next, err := vol.LookupPath(ctx, dn.Parent, target, '/')
		vol.DnodeRelease(dn)
		if err != nil {
			return nil, err
		}
		dn = next
	}
}
