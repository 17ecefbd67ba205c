//go:build darwin

package fs

import (
	"io/fs"
	"syscall"
	"time"
)

// CreationTime returns the file's birth time, which macOS exposes through
// stat. Falls back to the modification time if the syscall data is missing.
func CreationTime(info fs.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	}
	return info.ModTime()
}
