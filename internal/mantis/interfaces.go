package mantis

import "context"

// ObjectStore is an opaque key-value blob store holding packed bundles.
// Failures surface wrapped in ErrTransient by the implementations.
type ObjectStore interface {
	// ListKeys returns every key starting with prefix. An empty prefix
	// lists the whole store.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// GetObject downloads the blob at key into destDir and returns the
	// local file path.
	GetObject(ctx context.Context, key, destDir string) (string, error)

	// PutObject uploads the local file under the given key.
	PutObject(ctx context.Context, localPath, key string) error
}

// Codec packs a directory into a compressed bundle and unpacks one back,
// preserving each entry's modification time.
type Codec interface {
	// Pack archives sourceDir into a sibling {dirName}.zip and returns the
	// archive path.
	Pack(sourceDir string) (string, error)

	// Unpack extracts archivePath under destDir, skipping entries whose
	// base name matches a configured skip prefix, and returns the
	// extracted directory.
	Unpack(archivePath, destDir string) (string, error)
}

// KeySet is a persisted, append-only set of processed keys. It is an
// advisory cache: destination existence on disk stays the authoritative
// idempotency check.
type KeySet interface {
	Contains(key string) bool
	Append(key string) error
	Keys() []string
	Len() int
}

// Notifier announces finished runs. Delivery beyond the local machine is
// a collaborator concern; LogNotifier is the shipped implementation.
type Notifier interface {
	Notify(subject, body string) error
}

// LogNotifier writes run notifications to the structured log.
type LogNotifier struct {
	Logger Logger
}

func (n *LogNotifier) Notify(subject, body string) error {
	n.Logger.Info("notification", "subject", subject, "body", body)
	return nil
}

// Encryptor optionally seals packed bundles before they leave the box.
type Encryptor interface {
	// EncryptFile seals path into a sibling artifact and returns its path.
	EncryptFile(path string) (string, error)

	// DecryptFile opens path into a sibling artifact and returns its path.
	DecryptFile(path string) (string, error)
}
