package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/nvs"
)

// openStore opens the credential store described by cfg. The returned
// close function releases the store and everything beneath it.
func openStore(ctx context.Context, cfg StorageConfig) (*credentials.Store, func(), error) {
	db, err := nvs.OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var kv credentials.KV = db.Namespace(credentials.Namespace)
	var sealed *nvs.Sealed
	if cfg.SealKey != "" {
		key, err := nvs.ParseSealKey(cfg.SealKey)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		sealed, err = nvs.NewSealed(kv, credentials.Namespace, key)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		kv = sealed
		slog.Info("Credential sealing enabled")
	}

	store, err := credentials.NewStore(kv)
	if err != nil {
		if sealed != nil {
			_ = sealed.Close()
		}
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close credential store", "error", err)
		}
		if sealed != nil {
			_ = sealed.Close()
		}
		if err := db.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}
	return store, closeFn, nil
}
