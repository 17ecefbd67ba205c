// Package zip packs bundle directories into zip archives and unpacks them
// again, preserving each entry's modification time so date partitioning
// downstream stays correct.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mantis/internal/mantis"
)

// Codec implements mantis.Codec using archive/zip.
type Codec struct {
	// SkipPrefixes are base-name prefixes omitted during unpack, e.g.
	// resource-fork droppings ("._") and editor leftovers ("~").
	SkipPrefixes []string
}

var _ mantis.Codec = (*Codec)(nil)

// New creates a Codec with the given unpack skip prefixes.
func New(skipPrefixes []string) *Codec {
	return &Codec{SkipPrefixes: skipPrefixes}
}

// Pack archives sourceDir into a sibling {dirName}.zip. Entry names are
// rooted at the directory's base name so unpacking recreates one directory.
func (c *Codec) Pack(sourceDir string) (string, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", mantis.Tag(mantis.ErrInput, fmt.Errorf("not a directory: %s", sourceDir))
	}

	zipPath := sourceDir + ".zip"
	out, err := os.Create(zipPath)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating zip file: %w", err))
	}

	w := zip.NewWriter(out)
	root := filepath.Dir(sourceDir)

	err = filepath.Walk(sourceDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("computing archive name: %w", err)
		}

		header, err := zip.FileInfoHeader(fi)
		if err != nil {
			return fmt.Errorf("building header for %s: %w", path, err)
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate
		header.Modified = fi.ModTime()

		entry, err := w.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("creating entry %s: %w", header.Name, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		if _, err := io.Copy(entry, f); err != nil {
			return fmt.Errorf("writing entry %s: %w", header.Name, err)
		}
		return nil
	})
	if err != nil {
		w.Close()
		out.Close()
		os.Remove(zipPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("packing %s: %w", sourceDir, err))
	}

	if err := w.Close(); err != nil {
		out.Close()
		os.Remove(zipPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("finalizing zip: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(zipPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("closing zip: %w", err))
	}
	return zipPath, nil
}

// Unpack extracts archivePath under destDir and returns the extracted
// directory. Each entry's modification time is restored after extraction;
// entries whose base name carries a skip prefix are omitted.
func (c *Codec) Unpack(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", mantis.Tag(mantis.ErrState, fmt.Errorf("opening archive %s: %w", archivePath, err))
	}
	defer r.Close()

	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	extractedDir := filepath.Join(destDir, base)
	if err := os.MkdirAll(extractedDir, 0755); err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating extraction directory: %w", err))
	}

	for _, member := range r.File {
		if c.skip(member.Name) {
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(member.Name))
		// Reject entries that would escape destDir.
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return "", mantis.Tag(mantis.ErrState, fmt.Errorf("archive entry escapes destination: %s", member.Name))
		}

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating directory %s: %w", target, err))
			}
			continue
		}

		if err := extractMember(member, target); err != nil {
			return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("extracting %s: %w", member.Name, err))
		}
	}
	return extractedDir, nil
}

func (c *Codec) skip(entryName string) bool {
	base := filepath.Base(filepath.FromSlash(entryName))
	for _, p := range c.SkipPrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

func extractMember(member *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	in, err := member.Open()
	if err != nil {
		return fmt.Errorf("opening entry: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, member.Mode().Perm()|0200)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	return os.Chtimes(target, member.Modified, member.Modified)
}
