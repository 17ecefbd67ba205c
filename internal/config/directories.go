package config

import (
	"path/filepath"
	"runtime"
)

// Directories is the resolved directory layout for one host: where media
// lives, where bundles are staged, and where the flat-text ledgers sit.
type Directories struct {
	MediaRoot  string
	MediaInbox string

	PictureDir string
	MovieDir   string
	MusicDir   string

	AutoImportDir   string
	ArchiveFilesDir string

	CompletedImportsFile  string
	FailedImportsFile     string
	ReArchiveFile         string
	ReArchiveCompleteFile string
	SyncLedgerFile        string
}

// ResolveDirectories computes the directory layout from the config,
// defaulting the inbox to Desktop/Media_Inbox when a Desktop directory
// exists, else MediaRoot/Media_Inbox.
func ResolveDirectories(cfg *Config, isDir func(string) bool) Directories {
	root := cfg.MediaRoot

	inbox := cfg.MediaInbox
	if inbox == "" {
		desktop := filepath.Join(root, "Desktop")
		if isDir(desktop) {
			inbox = filepath.Join(desktop, "Media_Inbox")
		} else {
			inbox = filepath.Join(root, "Media_Inbox")
		}
	}

	movieDir := filepath.Join(root, "Movies")
	if runtime.GOOS == "windows" {
		movieDir = filepath.Join(root, "Videos")
	}

	autoImport := filepath.Join(inbox, "auto_import")
	archiveFiles := filepath.Join(inbox, "archive_files")

	return Directories{
		MediaRoot:  root,
		MediaInbox: inbox,

		PictureDir: filepath.Join(root, "Pictures"),
		MovieDir:   movieDir,
		MusicDir:   filepath.Join(root, "Music"),

		AutoImportDir:   autoImport,
		ArchiveFilesDir: archiveFiles,

		CompletedImportsFile:  filepath.Join(autoImport, "completed_imports.txt"),
		FailedImportsFile:     filepath.Join(autoImport, "failed_imports.txt"),
		ReArchiveFile:         filepath.Join(archiveFiles, "rearchive.txt"),
		ReArchiveCompleteFile: filepath.Join(archiveFiles, "rearchive_complete.txt"),
		SyncLedgerFile:        filepath.Join(autoImport, "mega_sync.json"),
	}
}
