package mantis

// RunResults are the aggregate counters for one import run.
type RunResults struct {
	TotalImportCount     int `json:"total_import_count"`
	PictureImportCount   int `json:"picture_import_count"`
	MovieImportCount     int `json:"movie_import_count"`
	AudioImportCount     int `json:"audio_import_count"`
	AlreadyImportedCount int `json:"already_imported_count"`
	NotImportedCount     int `json:"not_imported_count"`
	UnimportedCount      int `json:"un_imported_count"`
}

// RunManifest is the persisted record of one import run: a header
// identifying the source, every per-file outcome, and aggregate counters.
type RunManifest struct {
	RunID           string         `json:"run_id"`
	ImportTimestamp string         `json:"import_timestamp"`
	SourceDirectory string         `json:"source_directory"`
	SourceDirName   string         `json:"source_directory_name"`
	S3Bucket        string         `json:"s3_bucket,omitempty"`
	S3Key           string         `json:"s3_key,omitempty"`
	MediaInbox      string         `json:"media_inbox,omitempty"`
	Library         string         `json:"library,omitempty"`
	MediaImportRoot string         `json:"media_import_root_directory"`
	Unimport        bool           `json:"unimport"`
	Imports         []*MediaRecord `json:"imports"`
	Results         RunResults     `json:"results"`
}

// RunWriter persists one run's manifest. Write replaces the file in full;
// it is called after every processed file.
type RunWriter interface {
	Write() error
	Path() string
}

// ManifestStore creates and reads run manifests under a media import root.
type ManifestStore interface {
	NewRun(mediaImportRoot string, m *RunManifest) (RunWriter, error)
}
