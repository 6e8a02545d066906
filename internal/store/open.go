package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/config"
)

// Open builds the store selected by configuration.
func Open(cfg *config.Config, logger *logrus.Logger) (Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	case "sqlite", "":
		return NewSQLiteStore(cfg.Storage.LocalPath, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
