package encryption

import (
	"fmt"

	"mantis/internal/config"
	"mantis/internal/mantis"
)

// NewEncryptorFromConfig returns the configured Encryptor, or nil when
// encryption is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (mantis.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		if cfg.RecipientPath == "" || cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age encryption requires recipient_path and identity_path")
		}
		return NewAgeEncryptor(cfg.RecipientPath, cfg.IdentityPath), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
