package mantis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	mfs "mantis/internal/fs"
)

// Manifest is the result of scanning a source tree: every keepable media
// file, ordered ascending by capture time.
type Manifest struct {
	SourceDir  string
	Records    []*MediaRecord
	TotalBytes int64

	PictureCount int
	MovieCount   int
	AudioCount   int
	UnknownCount int

	Earliest time.Time
	Latest   time.Time
}

// Scanner walks a source tree and produces a Manifest.
type Scanner struct {
	classifier *Classifier
	logger     Logger
}

// NewScanner creates a Scanner using the given classification rules.
func NewScanner(classifier *Classifier, logger Logger) *Scanner {
	return &Scanner{classifier: classifier, logger: logger}
}

// Scan enumerates regular files under root, classifies each, and returns a
// Manifest sorted ascending by creation time. The walk is read-only.
func (s *Scanner) Scan(root string) (*Manifest, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, Tag(ErrInput, fmt.Errorf("not a directory: %s", root))
	}

	m := &Manifest{SourceDir: root}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", p, err)
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			s.logger.Debug("skipping symbolic link", "path", p)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		if s.classifier.Skip(name) {
			s.logger.Debug("skipping file by rule", "path", p)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}

		kind := s.classifier.Kind(name)
		creation := mfs.CreationTime(fi)
		m.add(NewMediaRecord(p, name, creation, fi.Size(), kind))
		return nil
	})
	if err != nil {
		return nil, Tag(ErrResource, fmt.Errorf("scanning %s: %w", root, err))
	}

	sort.SliceStable(m.Records, func(i, j int) bool {
		return m.Records[i].CreationTime < m.Records[j].CreationTime
	})

	s.logger.Info("scan complete",
		"dir", root,
		"files", len(m.Records),
		"bytes", m.TotalBytes,
		"pictures", m.PictureCount,
		"movies", m.MovieCount,
		"audio", m.AudioCount,
		"unknown", m.UnknownCount,
	)
	return m, nil
}

func (m *Manifest) add(r *MediaRecord) {
	m.Records = append(m.Records, r)
	m.TotalBytes += r.SizeBytes

	switch r.Kind {
	case KindPicture:
		m.PictureCount++
	case KindMovie:
		m.MovieCount++
	case KindAudio:
		m.AudioCount++
	case KindUnknown:
		m.UnknownCount++
	}

	c := r.Creation()
	if m.Earliest.IsZero() || c.Before(m.Earliest) {
		m.Earliest = c
	}
	if m.Latest.IsZero() || c.After(m.Latest) {
		m.Latest = c
	}
}
