// Package filesystem exposes host directories as a virtual filesystem.
//
// Each mount maps a VFS root such as "home:/" onto a host directory. VFS
// paths use "/" separators below the root and never escape their mount:
// ".." segments and paths that match no mount are rejected.
//
// Files are read as UTF-8 text and never transcoded. Binary data and text in
// any other charset are reported as manifest.ErrUnreadableContent, with the
// detected charset named in the error, so callers can keep the entry without
// its content.
//
// Example Usage:
//
//	mount, _ := filesystem.ParseMount("home:/=./vfs/home")
//	vfs, err := filesystem.New(mount)
//	entries, err := vfs.ReadDir(ctx, "home:/")
package filesystem
