package mantis

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProvenanceFileName is the metadata file written into every closed bundle
// directory. The importer treats it as metadata, never as media.
const ProvenanceFileName = "mantis_info.txt"

// DefaultLibrary is recorded when no library was specified.
const DefaultLibrary = "default"

// Provenance records how and when a bundle was created.
type Provenance struct {
	Version     string
	CreatedOn   time.Time
	CreatedFrom string // source directory the bundle was archived from
	Keyword     string // identity word used in the bundle name
	Library     string
}

// WriteProvenance writes the provenance file into dir as plain
// "key: value" lines.
func WriteProvenance(dir string, p Provenance) error {
	library := p.Library
	if library == "" {
		library = DefaultLibrary
	}

	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\n", p.Version)
	fmt.Fprintf(&b, "created_on: %s\n", p.CreatedOn.Format(time.RFC3339))
	fmt.Fprintf(&b, "created_from: %s\n", p.CreatedFrom)
	fmt.Fprintf(&b, "keyword: %s\n", p.Keyword)
	fmt.Fprintf(&b, "library: %s\n", library)

	path := filepath.Join(dir, ProvenanceFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return Tag(ErrResource, fmt.Errorf("writing provenance file: %w", err))
	}
	return nil
}

// ReadProvenance reads the provenance file from dir. All four required
// fields (version, created_on, created_from, keyword) must be present; a
// missing field yields an error naming it.
func ReadProvenance(dir string) (*Provenance, error) {
	path := filepath.Join(dir, ProvenanceFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, Tag(ErrState, fmt.Errorf("opening provenance file: %w", err))
	}
	defer f.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, Tag(ErrState, fmt.Errorf("malformed provenance line: %q", line))
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, Tag(ErrState, fmt.Errorf("reading provenance file: %w", err))
	}

	var missing []string
	for _, required := range []string{"version", "created_on", "created_from", "keyword"} {
		if fields[required] == "" {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, Tag(ErrState, fmt.Errorf("provenance file %s missing field(s): %s",
			path, strings.Join(missing, ", ")))
	}

	createdOn, err := time.Parse(time.RFC3339, fields["created_on"])
	if err != nil {
		return nil, Tag(ErrState, fmt.Errorf("parsing created_on: %w", err))
	}

	library := fields["library"]
	if library == "" {
		library = DefaultLibrary
	}

	return &Provenance{
		Version:     fields["version"],
		CreatedOn:   createdOn,
		CreatedFrom: fields["created_from"],
		Keyword:     fields["keyword"],
		Library:     library,
	}, nil
}
