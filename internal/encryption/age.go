// Package encryption optionally seals packed bundles with age before they
// leave the box, and opens sealed bundles fetched back for import.
package encryption

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"mantis/internal/mantis"
)

// EncryptedSuffix marks sealed bundle artifacts.
const EncryptedSuffix = ".age"

// AgeEncryptor implements mantis.Encryptor using filippo.io/age X25519
// keys. The recipient (public key) lives in plaintext; the identity file is
// only needed for decryption on import.
type AgeEncryptor struct {
	recipientPath string
	identityPath  string
}

var _ mantis.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an encryptor reading keys from the given paths.
func NewAgeEncryptor(recipientPath, identityPath string) *AgeEncryptor {
	return &AgeEncryptor{recipientPath: recipientPath, identityPath: identityPath}
}

// Setup generates a new X25519 key pair and writes both files.
func (e *AgeEncryptor) Setup() error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{e.recipientPath, e.identityPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}
	if err := os.WriteFile(e.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient file: %w", err)
	}
	if err := os.WriteFile(e.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

// EncryptFile seals path into path+".age" and returns the sealed path.
func (e *AgeEncryptor) EncryptFile(path string) (string, error) {
	data, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return "", fmt.Errorf("reading recipient file: %w", err)
	}
	recipient, err := age.ParseX25519Recipient(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("parsing recipient: %w", err)
	}

	in, err := os.Open(path)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("opening %s: %w", path, err))
	}
	defer in.Close()

	sealedPath := path + EncryptedSuffix
	out, err := os.Create(sealedPath)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating %s: %w", sealedPath, err))
	}

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		out.Close()
		os.Remove(sealedPath)
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		os.Remove(sealedPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("encrypting %s: %w", path, err))
	}
	if err := w.Close(); err != nil {
		out.Close()
		os.Remove(sealedPath)
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(sealedPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("closing %s: %w", sealedPath, err))
	}
	return sealedPath, nil
}

// DecryptFile opens a sealed artifact into its unsealed sibling (the path
// without the ".age" suffix) and returns that path.
func (e *AgeEncryptor) DecryptFile(path string) (string, error) {
	identities, err := e.loadIdentities()
	if err != nil {
		return "", err
	}

	in, err := os.Open(path)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("opening %s: %w", path, err))
	}
	defer in.Close()

	r, err := age.Decrypt(in, identities...)
	if err != nil {
		return "", mantis.Tag(mantis.ErrState, fmt.Errorf("decrypting %s: %w", path, err))
	}

	openPath := strings.TrimSuffix(path, EncryptedSuffix)
	if openPath == path {
		openPath = path + ".out"
	}
	out, err := os.Create(openPath)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating %s: %w", openPath, err))
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(openPath)
		return "", mantis.Tag(mantis.ErrState, fmt.Errorf("decrypting %s: %w", path, err))
	}
	if err := out.Close(); err != nil {
		os.Remove(openPath)
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("closing %s: %w", openPath, err))
	}
	return openPath, nil
}

func (e *AgeEncryptor) loadIdentities() ([]age.Identity, error) {
	f, err := os.Open(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	return ids, nil
}
