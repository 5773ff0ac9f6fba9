// Package fsw implements a filesystem-agnostic read-only volume, dnode and
// stream model. Concrete on-disk formats plug in through the Driver
// interface; see fsw/ext2 and fsw/reiserfs.
//
// A *Volume is not safe for concurrent use by multiple goroutines. The
// dnode cache and stream handles assume a single caller at a time, the
// same way the host environment this model was ported from runs
// cooperatively scheduled, single-threaded firmware code. A caller that
// needs concurrent access should mount one *Volume per goroutine (each
// with its own HostAdapter) or serialize its own calls.
package fsw
