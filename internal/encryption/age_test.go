package encryption

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mantis/internal/config"
)

func newTestEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	e := NewAgeEncryptor(filepath.Join(dir, "recipient.txt"), filepath.Join(dir, "identity.txt"))
	if err := e.Setup(); err != nil {
		t.Fatalf("Setup() unexpected error: %v", err)
	}
	return e
}

func TestSetupWritesKeyPair(t *testing.T) {
	e := newTestEncryptor(t)

	recipient, err := os.ReadFile(e.recipientPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(recipient)), "age1") {
		t.Errorf("recipient = %q, want an age1 public key", recipient)
	}

	identity, err := os.ReadFile(e.identityPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(identity)), "AGE-SECRET-KEY-") {
		t.Errorf("identity = %q, want an age secret key", identity)
	}
	info, err := os.Stat(e.identityPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("identity mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := newTestEncryptor(t)

	dir := t.TempDir()
	plainPath := filepath.Join(dir, "bundle.zip")
	if err := os.WriteFile(plainPath, []byte("packed media"), 0644); err != nil {
		t.Fatal(err)
	}

	sealedPath, err := e.EncryptFile(plainPath)
	if err != nil {
		t.Fatalf("EncryptFile() unexpected error: %v", err)
	}
	if sealedPath != plainPath+".age" {
		t.Errorf("sealed path = %q, want %q", sealedPath, plainPath+".age")
	}
	sealed, err := os.ReadFile(sealedPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(sealed), "packed media") {
		t.Error("sealed artifact contains the plaintext")
	}

	// Simulate the import side: only the sealed artifact is present.
	if err := os.Remove(plainPath); err != nil {
		t.Fatal(err)
	}
	openPath, err := e.DecryptFile(sealedPath)
	if err != nil {
		t.Fatalf("DecryptFile() unexpected error: %v", err)
	}
	if openPath != plainPath {
		t.Errorf("open path = %q, want %q", openPath, plainPath)
	}
	got, err := os.ReadFile(openPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "packed media" {
		t.Errorf("decrypted content = %q, want the original", got)
	}
}

func TestDecryptWithWrongIdentity(t *testing.T) {
	sealer := newTestEncryptor(t)
	other := newTestEncryptor(t)

	plainPath := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(plainPath, []byte("packed media"), 0644); err != nil {
		t.Fatal(err)
	}
	sealedPath, err := sealer.EncryptFile(plainPath)
	if err != nil {
		t.Fatalf("EncryptFile() unexpected error: %v", err)
	}

	if _, err := other.DecryptFile(sealedPath); err == nil {
		t.Error("DecryptFile() with the wrong identity expected error, got nil")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "none"})
		if err != nil || e != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", e, err)
		}
	})

	t.Run("age without key paths", func(t *testing.T) {
		if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "age"}); err == nil {
			t.Error("expected error for missing key paths, got nil")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "pgp"}); err == nil {
			t.Error("expected error for unknown type, got nil")
		}
	})
}
