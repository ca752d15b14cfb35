package storage

import (
	"context"
	"fmt"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/nvs"
)

// Device is the persistent half of a simulated device: its storage file
// survives Reboot while everything in memory is dropped.
type Device struct {
	Path    string
	SealKey []byte

	db     *nvs.SQLite
	sealed *nvs.Sealed
	Store  *credentials.Store
}

// Open mounts the device storage at path. sealKey may be nil.
func Open(ctx context.Context, path string, sealKey []byte) (*Device, error) {
	d := &Device{Path: path, SealKey: sealKey}
	if err := d.mount(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) mount(ctx context.Context) error {
	db, err := nvs.OpenSQLite(ctx, d.Path)
	if err != nil {
		return fmt.Errorf("failed to open device storage: %w", err)
	}

	var kv credentials.KV = db.Namespace(credentials.Namespace)
	if d.SealKey != nil {
		sealed, err := nvs.NewSealed(kv, credentials.Namespace, append([]byte(nil), d.SealKey...))
		if err != nil {
			_ = db.Close()
			return err
		}
		d.sealed = sealed
		kv = sealed
	}

	store, err := credentials.NewStore(kv)
	if err != nil {
		_ = db.Close()
		return err
	}

	d.db = db
	d.Store = store
	return nil
}

// Reboot drops the in-memory state and remounts the storage file.
func (d *Device) Reboot(ctx context.Context) error {
	if err := d.Close(); err != nil {
		return err
	}
	return d.mount(ctx)
}

func (d *Device) Close() error {
	if d.Store != nil {
		_ = d.Store.Close()
		d.Store = nil
	}
	if d.sealed != nil {
		_ = d.sealed.Close()
		d.sealed = nil
	}
	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

// DB exposes the raw storage for assertions on persisted bytes.
func (d *Device) DB() *nvs.SQLite {
	return d.db
}
