package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for mantis.
type Config struct {
	HostID     string           `toml:"host_id"`
	MediaRoot  string           `toml:"media_root"`
	MediaInbox string           `toml:"media_inbox"`
	LogDir     string           `toml:"log_dir"`
	Scan       ScanConfig       `toml:"scan"`
	Archive    ArchiveConfig    `toml:"archive"`
	Import     ImportConfig     `toml:"import"`
	S3         S3Config         `toml:"s3"`
	Encryption EncryptionConfig `toml:"encryption"`
	Mega       MegaConfig       `toml:"mega"`
	History    HistoryConfig    `toml:"history"`
}

// ScanConfig holds the extension sets and skip rules used to classify
// discovered files.
type ScanConfig struct {
	PictureExtensions []string `toml:"picture_extensions"`
	MovieExtensions   []string `toml:"movie_extensions"`
	AudioExtensions   []string `toml:"audio_extensions"`
	SkipFiles         []string `toml:"skip_files"`
	SkipPrefixes      []string `toml:"skip_prefixes"`
	SkipExtensions    []string `toml:"skip_extensions"`
}

// ArchiveConfig controls bundle planning.
type ArchiveConfig struct {
	// MaxBundleBytes is the soft cap: a bundle closes once its running
	// size exceeds this value.
	MaxBundleBytes int64  `toml:"max_bundle_bytes"`
	WordFile       string `toml:"word_file"`
	WordURL        string `toml:"word_url"`
}

// ImportConfig controls the import destination and batch width.
type ImportConfig struct {
	MediaImportRoot string `toml:"media_import_root"`
	MaxConcurrent   int    `toml:"max_concurrent"`
}

// S3Config names the bucket holding packed bundles. Region and static
// credentials are optional; the SDK default chain applies otherwise.
type S3Config struct {
	Bucket          string `toml:"bucket,omitempty"`
	Prefix          string `toml:"prefix,omitempty"`
	Region          string `toml:"region,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
}

// EncryptionConfig selects optional bundle encryption before upload.
// Type is "none" (default) or "age".
type EncryptionConfig struct {
	Type          string `toml:"type"`
	RecipientPath string `toml:"recipient_path,omitempty"`
	IdentityPath  string `toml:"identity_path,omitempty"`
}

// MegaConfig locates the MEGA remote and bounds the retry loop.
type MegaConfig struct {
	// Root is the remote base directory that mirrors the media import
	// root.
	Root           string `toml:"root"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetrySeconds   int    `toml:"retry_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HistoryConfig selects the run-history database. Type is "sqlite" or
// "memory".
type HistoryConfig struct {
	Type    string `toml:"type"`
	DataDir string `toml:"data_dir,omitempty"`
}

// NewConfig creates a Config with the stock extension sets, skip rules and
// limits for the given host and media root.
func NewConfig(hostID, mediaRoot string) *Config {
	return &Config{
		HostID:    hostID,
		MediaRoot: mediaRoot,
		Scan: ScanConfig{
			PictureExtensions: []string{"aae", "bmp", "gif", "heic", "jpg", "jpeg", "png", "tif", "tiff"},
			MovieExtensions:   []string{"avi", "3gp", "mov", "m4v", "mp4", "mpg", "wmv"},
			AudioExtensions:   []string{"aac", "flac", "m4a", "m4p", "mp3", "wav", "webm", "wma"},
			SkipFiles:         []string{".DS_Store"},
			SkipPrefixes:      []string{"._", "~"},
			SkipExtensions:    []string{"zip"},
		},
		Archive: ArchiveConfig{
			MaxBundleBytes: 2000000000,
			WordFile:       "/usr/share/dict/words",
			WordURL:        "https://svnweb.freebsd.org/csrg/share/dict/words?view=co&content-type=text/plain",
		},
		Import: ImportConfig{
			MaxConcurrent: 5,
		},
		Encryption: EncryptionConfig{Type: "none"},
		Mega: MegaConfig{
			Root:           "/media",
			MaxAttempts:    5,
			RetrySeconds:   10,
			TimeoutSeconds: 600,
		},
		History: HistoryConfig{Type: "sqlite"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
