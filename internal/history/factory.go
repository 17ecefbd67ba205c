package history

import (
	"fmt"
	"path/filepath"

	"mantis/internal/config"
	"mantis/internal/mantis"
)

// NewFromConfig creates the run history selected by the config. The sqlite
// file is named after the host so synced data directories never collide.
func NewFromConfig(cfg config.HistoryConfig, hostID string) (mantis.RunHistory, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("data_dir required for sqlite run history"))
		}
		return NewSQLiteHistory(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return NewSQLiteHistory(":memory:")
	case "none", "":
		return nil, nil
	default:
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("unknown run history type: %s", cfg.Type))
	}
}
