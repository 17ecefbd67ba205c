//go:build !darwin

package fs

import (
	"io/fs"
	"time"
)

// CreationTime returns the best available capture time. Linux filesystems
// don't expose a birth time through stat, so content modification time is
// the fallback.
func CreationTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
