//go:build linux

package secret

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

func allocate(size int) ([]byte, bool) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		slog.Debug("Secret buffer falling back to heap", "reason", "mmap", "error", err)
		return make([]byte, size), false
	}

	if err := unix.Mlock(data); err != nil {
		_ = unix.Munmap(data)
		slog.Debug("Secret buffer falling back to heap", "reason", "mlock", "error", err)
		return make([]byte, size), false
	}

	// Best effort: older kernels do not know MADV_DONTDUMP.
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		slog.Debug("MADV_DONTDUMP not supported", "error", err)
	}

	return data, true
}

func release(data []byte, locked bool) error {
	if !locked {
		return nil
	}
	if err := unix.Munlock(data); err != nil {
		_ = unix.Munmap(data)
		return err
	}
	return unix.Munmap(data)
}
