package mantis

import (
	"encoding/json"
	"fmt"
)

// MediaKind classifies a file by its extension.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindPicture
	KindMovie
	KindAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindPicture:
		return "PICTURE"
	case KindMovie:
		return "MOVIE"
	case KindAudio:
		return "AUDIO"
	case KindUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("MediaKind(%d)", int(k))
}

// ParseMediaKind maps the serialized name back to a MediaKind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch s {
	case "PICTURE":
		return KindPicture, nil
	case "MOVIE":
		return KindMovie, nil
	case "AUDIO":
		return KindAudio, nil
	case "UNKNOWN":
		return KindUnknown, nil
	}
	return KindUnknown, fmt.Errorf("unknown media kind: %q", s)
}

func (k MediaKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *MediaKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMediaKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ArchiveStatus tracks whether a record has been moved into a bundle.
type ArchiveStatus int

const (
	ArchivePending ArchiveStatus = iota
	ArchiveCompleted
)

func (s ArchiveStatus) String() string {
	switch s {
	case ArchivePending:
		return "PENDING"
	case ArchiveCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("ArchiveStatus(%d)", int(s))
}

// ParseArchiveStatus maps the serialized name back to an ArchiveStatus.
func ParseArchiveStatus(s string) (ArchiveStatus, error) {
	switch s {
	case "PENDING":
		return ArchivePending, nil
	case "COMPLETED":
		return ArchiveCompleted, nil
	}
	return ArchivePending, fmt.Errorf("unknown archive status: %q", s)
}

func (s ArchiveStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ArchiveStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseArchiveStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ImportStatus tracks a record's position in the import state machine.
type ImportStatus int

const (
	ImportPending ImportStatus = iota
	ImportCompleted
	ImportAlreadyExists
	ImportDoNotImport
	ImportUnimported
)

func (s ImportStatus) String() string {
	switch s {
	case ImportPending:
		return "PENDING"
	case ImportCompleted:
		return "COMPLETED"
	case ImportAlreadyExists:
		return "ALREADY_EXISTS"
	case ImportDoNotImport:
		return "DO_NOT_IMPORT"
	case ImportUnimported:
		return "UNIMPORTED"
	}
	return fmt.Sprintf("ImportStatus(%d)", int(s))
}

// ParseImportStatus maps the serialized name back to an ImportStatus.
func ParseImportStatus(s string) (ImportStatus, error) {
	switch s {
	case "PENDING":
		return ImportPending, nil
	case "COMPLETED":
		return ImportCompleted, nil
	case "ALREADY_EXISTS":
		return ImportAlreadyExists, nil
	case "DO_NOT_IMPORT":
		return ImportDoNotImport, nil
	case "UNIMPORTED":
		return ImportUnimported, nil
	}
	return ImportPending, fmt.Errorf("unknown import status: %q", s)
}

func (s ImportStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ImportStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseImportStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
