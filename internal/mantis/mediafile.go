package mantis

import (
	"time"
)

// TimestampLayout is the compact timestamp format used in bundle names and
// serialized records: yyyymmdd-HHMMSS.
const TimestampLayout = "20060102-150405"

// ImportPrefixLayout is the prefix prepended to imported file names.
const ImportPrefixLayout = "2006-01-02_150405"

// MediaRecord is one discovered media file. It is a transient in-memory
// projection of filesystem state; the ledger is the durable record.
type MediaRecord struct {
	Path            string        `json:"file_path"`
	Name            string        `json:"file_name"`
	CreationTime    int64         `json:"creation_time"`
	CreationStamp   string        `json:"creation_timestamp"`
	SizeBytes       int64         `json:"size_bytes"`
	Kind            MediaKind     `json:"file_type"`
	ArchiveStatus   ArchiveStatus `json:"archive_status"`
	ImportStatus    ImportStatus  `json:"import_status"`
	DestinationPath string        `json:"destination_path,omitempty"`
	ImportPath      string        `json:"import_path,omitempty"`
}

// NewMediaRecord creates a pending record for a discovered file.
func NewMediaRecord(path, name string, creation time.Time, size int64, kind MediaKind) *MediaRecord {
	return &MediaRecord{
		Path:          path,
		Name:          name,
		CreationTime:  creation.Unix(),
		CreationStamp: creation.Format(TimestampLayout),
		SizeBytes:     size,
		Kind:          kind,
		ArchiveStatus: ArchivePending,
		ImportStatus:  ImportPending,
	}
}

// Creation returns the record's capture time.
func (r *MediaRecord) Creation() time.Time {
	return time.Unix(r.CreationTime, 0)
}
