package systemtest

import (
	"context"
	"path/filepath"
	"testing"

	internalhttp "github.com/EternisAI/silo-device/internal/api/http"
	"github.com/EternisAI/silo-device/internal/provisioning"
	"github.com/EternisAI/silo-device/systemtest/storage"
	"github.com/EternisAI/silo-device/systemtest/tests"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var sealKey = []byte("0123456789abcdef0123456789abcdef")

func openDevice(t *testing.T, key []byte) *storage.Device {
	t.Helper()
	dev, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "nvs.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestSystemIntegration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Portal", func(t *testing.T) {
		dev := openDevice(t, nil)
		engine := internalhttp.NewEngine(internalhttp.Config{}, &internalhttp.Services{
			Store:      dev.Store,
			Completion: &provisioning.Signal{},
		})
		tests.TestPortal(t, engine, dev.Store)
	})

	t.Run("FirstBoot", func(t *testing.T) { tests.TestFirstBoot(t, openDevice(t, nil)) })
	t.Run("FirstBootSealed", func(t *testing.T) { tests.TestFirstBoot(t, openDevice(t, sealKey)) })
	t.Run("WrongPassword", func(t *testing.T) { tests.TestWrongPassword(t, openDevice(t, nil)) })
}
